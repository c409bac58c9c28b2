package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DefaultHookCount is the number of hooks requested per post.
const DefaultHookCount = 10

// HookGenerator asks the model for short caption hooks for a post.
type HookGenerator struct {
	client *Client
	count  int
}

// NewHookGenerator wraps client. count <= 0 selects DefaultHookCount.
func NewHookGenerator(client *Client, count int) *HookGenerator {
	if count <= 0 {
		count = DefaultHookCount
	}
	return &HookGenerator{client: client, count: count}
}

// Generate returns up to the configured number of hooks. Fewer are tolerated;
// an empty parse is an error.
func (g *HookGenerator) Generate(ctx context.Context, text string, descriptions []string) ([]string, error) {
	if g == nil || g.client == nil {
		return nil, errors.New("hook generator not configured")
	}
	reply, err := g.client.Complete(ctx, HookPrompt(text, descriptions, g.count))
	if err != nil {
		return nil, err
	}
	hooks := ParseHooks(reply, g.count)
	if len(hooks) == 0 {
		return nil, fmt.Errorf("llm hooks: no hooks in response (snippet: %s)", snippet(reply))
	}
	return hooks, nil
}

// Situation renders the post text and media context block of the prompt.
func Situation(text string, descriptions []string) string {
	parts := []string{"Tweet: " + strings.TrimSpace(text)}
	cleaned := make([]string, 0, len(descriptions))
	for _, d := range descriptions {
		if d = strings.TrimSpace(d); d != "" {
			cleaned = append(cleaned, d)
		}
	}
	if len(cleaned) > 0 {
		parts = append(parts, "Media context: "+strings.Join(cleaned, " | "))
	}
	return strings.Join(parts, "\n")
}

// HookPrompt builds the hook generation prompt.
func HookPrompt(text string, descriptions []string, count int) string {
	return fmt.Sprintf(`You write on-screen text hooks for short vertical sports and culture videos.

Voice:
- casual and confident, the way a friend texts about something wild they just saw
- 5 to 15 words
- emojis like 💀 and 😭 are welcome but optional
- specific to what happened, never generic clickbait

Only lean into humor or relatability when the post actually supports it. Being socially calibrated matters more than being funny.

SITUATION:
%s

Give %d hook options as a numbered list, one per line, with no extra commentary.`, Situation(text, descriptions), count)
}

var hookNumberPrefix = regexp.MustCompile(`^(?:10|[1-9])(?:\.|\)| -|-)`)

// ParseHooks extracts hooks from a numbered-list reply. Leading "N.", "N)",
// "N -" and "N-" markers are stripped until none remain, blank lines
// dropped, and the result is capped at limit when limit > 0.
func ParseHooks(reply string, limit int) []string {
	var hooks []string
	for _, line := range strings.Split(strings.TrimSpace(reply), "\n") {
		line = strings.TrimSpace(line)
		for loc := hookNumberPrefix.FindStringIndex(line); loc != nil; loc = hookNumberPrefix.FindStringIndex(line) {
			line = strings.TrimSpace(line[loc[1]:])
		}
		if line == "" {
			continue
		}
		hooks = append(hooks, line)
		if limit > 0 && len(hooks) == limit {
			break
		}
	}
	return hooks
}

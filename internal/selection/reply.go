package selection

import (
	"regexp"
	"strconv"
	"strings"
)

// RequiredPicks is how many hooks a reviewer selects per item.
const RequiredPicks = 3

// Skip keywords are matched as case-insensitive substrings, so "no" also
// matches longer words that contain it.
var skipKeywords = []string{"skip", "cancel", "pass", "no", "skip this", "cancel this", "off brand", "offbrand"}

var numberPattern = regexp.MustCompile(`\d+`)

// Reply is one interpreted reviewer message.
type Reply struct {
	Skip    bool
	Numbers []int
}

// ParseReply interprets a reply. It reports false when the text is neither a
// skip request nor contains at least RequiredPicks numbers.
func ParseReply(text string) (Reply, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return Reply{}, false
	}
	for _, keyword := range skipKeywords {
		if strings.Contains(lower, keyword) {
			return Reply{Skip: true}, true
		}
	}
	matches := numberPattern.FindAllString(lower, -1)
	if len(matches) < RequiredPicks {
		return Reply{}, false
	}
	numbers := make([]int, 0, RequiredPicks)
	for _, m := range matches[:RequiredPicks] {
		n, err := strconv.Atoi(m)
		if err != nil {
			return Reply{}, false
		}
		numbers = append(numbers, n)
	}
	return Reply{Numbers: numbers}, true
}

// Valid reports whether every number addresses one of hookCount hooks.
func (r Reply) Valid(hookCount int) bool {
	if r.Skip {
		return true
	}
	if len(r.Numbers) == 0 {
		return false
	}
	for _, n := range r.Numbers {
		if n < 1 || n > hookCount {
			return false
		}
	}
	return true
}

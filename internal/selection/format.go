package selection

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"hookreel/internal/workitem"
)

const replyHint = "Reply with 3 numbers (e.g. '1, 5, 9') to select hooks, or 'skip' / 'cancel' to exclude this post."

var topicCaser = cases.Upper(language.English)

// TopicHeader is the message posted before a topic's items.
func TopicHeader(topic string, count int) string {
	noun := "posts"
	if count == 1 {
		noun = "post"
	}
	return fmt.Sprintf("*%s* (%d %s)", topicCaser.String(displayTopic(topic)), count, noun)
}

// FormatItem renders one item for a reviewer. index is the 0-based item
// position; the message shows it 1-based.
func FormatItem(index int, item workitem.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Post #%d*\n", index+1)
	username := item.User.Username
	if username == "" {
		username = "unknown"
	}
	fmt.Fprintf(&b, "*@%s*", username)
	if item.User.Name != "" {
		fmt.Fprintf(&b, " (%s)", item.User.Name)
	}
	b.WriteString("\n\n")
	b.WriteString(item.Text)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Likes: %s | Retweets: %s | Replies: %s | Score: %s\n",
		humanize.Comma(item.Likes),
		humanize.Comma(item.Retweets),
		humanize.Comma(item.Replies),
		humanize.Comma(item.EngagementScore),
	)
	if item.URL != "" {
		fmt.Fprintf(&b, "<%s|View post>\n", item.URL)
	}
	if len(item.Media) > 0 {
		fmt.Fprintf(&b, "\n*Media (%d):*\n", len(item.Media))
		for i, m := range item.Media {
			desc := m.Description
			if desc == "" {
				desc = "No description available"
			}
			fmt.Fprintf(&b, "%d. %s: %s\n", i+1, strings.ToUpper(m.Type), desc)
		}
	}
	if len(item.Hooks) > 0 {
		b.WriteString("\n*Hooks (pick your top 3):*\n")
		for i, hook := range item.Hooks {
			fmt.Fprintf(&b, "%d. %s\n", i+1, hook)
		}
		b.WriteString("\n")
		b.WriteString(replyHint)
	}
	return strings.TrimRight(b.String(), "\n")
}

// GroupByTopic returns item indices grouped by topic, topics in order of
// first appearance.
func GroupByTopic(items []workitem.Item, indices []int) (topics []string, groups map[string][]int) {
	groups = make(map[string][]int)
	for _, idx := range indices {
		topic := items[idx].Topic
		if _, seen := groups[topic]; !seen {
			topics = append(topics, topic)
		}
		groups[topic] = append(groups[topic], idx)
	}
	return topics, groups
}

func displayTopic(topic string) string {
	if strings.TrimSpace(topic) == "" {
		return "Unknown Topic"
	}
	return topic
}

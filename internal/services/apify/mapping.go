package apify

import (
	"strings"

	"hookreel/internal/workitem"
)

// MapItem converts one dataset entry into a work item. Reposts and entries
// without text are rejected. Field names vary between actor versions, so each
// value is read from the first key present.
func MapItem(raw map[string]any) (workitem.Item, bool) {
	if boolValue(raw, "isRetweet") {
		return workitem.Item{}, false
	}
	text := stringValue(raw, "text", "full_text")
	if text == "" {
		return workitem.Item{}, false
	}
	author := objectValue(raw, "author")
	user := objectValue(raw, "user")

	item := workitem.Item{
		Text:      text,
		CreatedAt: stringValue(raw, "created_at", "createdAt", "timestamp"),
		Likes:     intValue(raw, "likes", "favorite_count", "likeCount"),
		Retweets:  intValue(raw, "retweets", "retweet_count", "retweetCount"),
		Replies:   intValue(raw, "replies", "reply_count", "replyCount"),
		Views:     intValue(raw, "views", "viewCount"),
		URL:       stringValue(raw, "url", "tweetUrl"),
		User: workitem.Author{
			Name:      firstString(stringValue(author, "name"), stringValue(user, "name"), stringValue(raw, "userFullName")),
			Username:  firstString(stringValue(author, "userName"), stringValue(user, "screen_name"), stringValue(raw, "username")),
			Followers: firstInt(author, "followers", user, "followers_count", raw, "totalFollowers"),
			Verified:  boolValue(author, "isVerified") || boolValue(user, "verified") || boolValue(raw, "verified"),
		},
		Media: mapMedia(raw),
	}
	item.EngagementScore = workitem.Score(item.Likes, item.Retweets, item.Replies)
	return item, true
}

func mapMedia(raw map[string]any) []workitem.Media {
	media := []workitem.Media{}
	if list, ok := raw["media"].([]any); ok {
		for _, entry := range list {
			obj, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			u := stringValue(obj, "url", "media_url_https", "media_url")
			if u == "" {
				continue
			}
			media = append(media, workitem.Media{Type: normalizeKind(stringValue(obj, "type")), URL: u})
		}
	}
	if len(media) > 0 {
		return media
	}
	if list, ok := raw["images"].([]any); ok {
		for _, entry := range list {
			if u, ok := entry.(string); ok && strings.TrimSpace(u) != "" {
				media = append(media, workitem.Media{Type: workitem.KindImage, URL: strings.TrimSpace(u)})
			}
		}
	}
	return media
}

func normalizeKind(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "photo", "image":
		return workitem.KindImage
	case "video", "animated_gif", "gif":
		return workitem.KindVideo
	case "":
		return "unknown"
	default:
		return strings.ToLower(strings.TrimSpace(kind))
	}
}

func objectValue(raw map[string]any, key string) map[string]any {
	if raw == nil {
		return nil
	}
	obj, _ := raw[key].(map[string]any)
	return obj
}

func stringValue(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := raw[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func intValue(raw map[string]any, keys ...string) int64 {
	for _, key := range keys {
		if v, ok := raw[key].(float64); ok {
			return int64(v)
		}
	}
	return 0
}

func boolValue(raw map[string]any, key string) bool {
	v, _ := raw[key].(bool)
	return v
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// firstInt takes (object, key) pairs and returns the first numeric value.
func firstInt(pairs ...any) int64 {
	for i := 0; i+1 < len(pairs); i += 2 {
		obj, _ := pairs[i].(map[string]any)
		key, _ := pairs[i+1].(string)
		if v, ok := obj[key].(float64); ok {
			return int64(v)
		}
	}
	return 0
}

package mediacache

import (
	"mime"
	"net/url"
	"path"
	"strings"
)

// Kinds reported on cache entries.
const (
	KindImage   = "image"
	KindVideo   = "video"
	KindUnknown = "unknown"
)

const fallbackExt = ".bin"

var imageExts = map[string]struct{}{".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}}

var videoExts = map[string]struct{}{".mp4": {}, ".mov": {}, ".avi": {}, ".webm": {}, ".m4v": {}}

var contentTypeExts = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
	"video/webm":      ".webm",
}

// payloadExts lists every extension a payload may carry, in lookup order.
var payloadExts = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".mp4", ".mov", ".avi", ".webm", ".m4v", fallbackExt}

// ExtensionFor resolves the payload extension from the URL path suffix
// (query stripped) or, failing that, the response content type.
func ExtensionFor(rawURL, contentType string) string {
	if ext := urlExtension(rawURL); ext != "" {
		return ext
	}
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			mediaType = strings.ToLower(strings.TrimSpace(contentType))
		}
		if ext, ok := contentTypeExts[mediaType]; ok {
			return ext
		}
	}
	return fallbackExt
}

// KindForExtension maps a payload extension to image, video, or unknown.
func KindForExtension(ext string) string {
	ext = strings.ToLower(ext)
	if _, ok := imageExts[ext]; ok {
		return KindImage
	}
	if _, ok := videoExts[ext]; ok {
		return KindVideo
	}
	return KindUnknown
}

func urlExtension(rawURL string) string {
	p := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		p = parsed.Path
	} else if idx := strings.IndexByte(p, '?'); idx >= 0 {
		p = p[:idx]
	}
	ext := strings.ToLower(path.Ext(p))
	if KindForExtension(ext) == KindUnknown {
		return ""
	}
	return ext
}

package render

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var fontExtensions = []string{".ttf", ".otf", ".TTF", ".OTF"}

// FontDirs returns the platform font directories in search order.
func FontDirs() []string {
	home, _ := os.UserHomeDir()
	inHome := func(parts ...string) string {
		if home == "" {
			return ""
		}
		return filepath.Join(append([]string{home}, parts...)...)
	}
	switch runtime.GOOS {
	case "darwin":
		return compact([]string{
			"/System/Library/Fonts",
			"/Library/Fonts",
			inHome("Library", "Fonts"),
			"/System/Library/Fonts/Supplemental",
		})
	case "windows":
		return compact([]string{
			`C:\Windows\Fonts`,
			inHome("AppData", "Local", "Microsoft", "Windows", "Fonts"),
		})
	default:
		return compact([]string{
			"/usr/share/fonts",
			"/usr/local/share/fonts",
			inHome(".fonts"),
			inHome(".local", "share", "fonts"),
		})
	}
}

// FindFont returns the first font file matching family or one of the
// fallbacks. For each name and directory it tries <name><ext> directly
// before a recursive **/*<name>*<ext> glob. dirs defaults to FontDirs.
func FindFont(family string, fallbacks []string, dirs []string) (string, bool) {
	if dirs == nil {
		dirs = FontDirs()
	}
	names := make([]string, 0, len(fallbacks)+1)
	for _, name := range append([]string{family}, fallbacks...) {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	for _, name := range names {
		for _, dir := range dirs {
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				continue
			}
			for _, ext := range fontExtensions {
				exact := filepath.Join(dir, name+ext)
				if info, err := os.Stat(exact); err == nil && !info.IsDir() {
					return exact, true
				}
				matches, err := doublestar.FilepathGlob(filepath.Join(dir, "**", "*"+name+"*"+ext))
				if err != nil {
					continue
				}
				for _, match := range matches {
					if info, err := os.Stat(match); err == nil && !info.IsDir() {
						return match, true
					}
				}
			}
		}
	}
	return "", false
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

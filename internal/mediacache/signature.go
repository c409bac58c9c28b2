package mediacache

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrEmptyPayload reports a zero-length download or cache payload.
var ErrEmptyPayload = errors.New("payload is empty")

// Sniff identifies a media container from its leading bytes. The boolean is
// false when no known signature matches.
func Sniff(header []byte) (string, bool) {
	switch {
	case bytes.HasPrefix(header, []byte{0xFF, 0xD8, 0xFF}):
		return "jpeg", true
	case bytes.HasPrefix(header, []byte{0x89, 'P', 'N', 'G'}):
		return "png", true
	case bytes.HasPrefix(header, []byte("GIF8")):
		return "gif", true
	case bytes.HasPrefix(header, []byte("RIFF")):
		return "riff", true
	case len(header) >= 8 && bytes.Equal(header[4:8], []byte("ftyp")):
		return "isobmff", true
	case bytes.HasPrefix(header, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return "matroska", true
	default:
		return "", false
	}
}

// inspectPayload checks that path is a non-empty regular file and sniffs its
// signature. Unknown signatures are accepted.
func inspectPayload(path string) (size int64, format string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, "", err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, "", err
	}
	if !info.Mode().IsRegular() {
		return 0, "", fmt.Errorf("%s is not a regular file", path)
	}
	if info.Size() == 0 {
		return 0, "", ErrEmptyPayload
	}

	header := make([]byte, 12)
	n, err := io.ReadFull(file, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, "", fmt.Errorf("read signature: %w", err)
	}
	format, _ = Sniff(header[:n])
	return info.Size(), format, nil
}

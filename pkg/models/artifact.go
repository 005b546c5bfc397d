package models

import (
	"fmt"
	"strings"
	"time"
)

// Format is the encoded form of a finished sprite
type Format string

const (
	// FormatJPG is a static, opaque JPEG sprite
	FormatJPG Format = "jpg"
	// FormatGIF is a single-frame looping GIF with a transparency key
	FormatGIF Format = "gif"
)

// ParseFormat maps user input ("gif", "JPG", "jpeg") to a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gif":
		return FormatGIF, nil
	case "jpg", "jpeg":
		return FormatJPG, nil
	default:
		return "", fmt.Errorf("unknown output format: %q", s)
	}
}

// Animated reports whether the format carries the looping animation hint
func (f Format) Animated() bool {
	return f == FormatGIF
}

// Extension returns the file extension without the dot
func (f Format) Extension() string {
	return string(f)
}

// Artifact describes a sprite written to the gallery
type Artifact struct {
	Path    string    `json:"path"`
	Format  Format    `json:"format"`
	Hash    string    `json:"hash"`    // 8 hex chars of sha256 over the source bytes
	Existed bool      `json:"existed"` // true when an earlier run already wrote it
	SavedAt time.Time `json:"saved_at"`
}

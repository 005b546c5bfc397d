package ui

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Gradient fades text line by line between two colors
type Gradient struct {
	From colorful.Color
	To   colorful.Color
}

var (
	// PinkRed colors the main banner
	PinkRed = Gradient{
		From: colorful.Color{R: 1, G: 0.37, B: 0.84},
		To:   colorful.Color{R: 0.86, G: 0.04, B: 0.12},
	}
	// GreenBlue colors the sub banner and the description prompt
	GreenBlue = Gradient{
		From: colorful.Color{R: 0.1, G: 0.95, B: 0.45},
		To:   colorful.Color{R: 0.1, G: 0.35, B: 1},
	}
)

// Render colors each line of text with its step along the gradient
func (g Gradient) Render(text string) string {
	lines := strings.Split(text, "\n")
	steps := len(lines) - 1
	for i, line := range lines {
		if line == "" {
			continue
		}
		t := 0.0
		if steps > 0 {
			t = float64(i) / float64(steps)
		}
		col := g.From.BlendLuv(g.To, t).Clamped()
		lines[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(col.Hex())).Render(line)
	}
	return strings.Join(lines, "\n")
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// SetupColor picks the color profile for out; non-terminals get plain text
func SetupColor(out *os.File) {
	if !IsTerminal(out) {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.NewOutput(out).EnvColorProfile())
}

// PrintBanner writes banner.txt and banner0.txt from dir. Missing files are skipped.
func PrintBanner(w io.Writer, dir string) {
	banners := []struct {
		name     string
		gradient Gradient
		trim     bool
	}{
		{"banner.txt", PinkRed, false},
		{"banner0.txt", GreenBlue, true},
	}

	for _, b := range banners {
		data, err := os.ReadFile(filepath.Join(dir, b.name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			fmt.Fprintf(w, "Could not print banner: %v\n", err)
			return
		}

		text := string(data)
		if b.trim {
			text = strings.TrimSpace(text)
		}
		fmt.Fprintln(w, b.gradient.Render(text))
	}
}

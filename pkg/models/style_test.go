package models

import (
	"os"
	"path/filepath"
	"testing"
)

const testCatalog = `styles:
  - id: ink-wash
    name: Ink Wash
    desc: Sumi-e brush work
    prompt: Traditional ink wash painting.
  - id: pixel
    prompt: 16-bit pixel art.
`

func writeTestCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "styles.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}
	return path
}

func TestLoadStyleCatalog_Valid(t *testing.T) {
	path := writeTestCatalog(t, testCatalog)

	c, err := LoadStyleCatalog(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Styles) != 2 {
		t.Fatalf("got %d styles, want 2", len(c.Styles))
	}
	if c.Styles[0].Description != "Sumi-e brush work" {
		t.Errorf("Description = %q", c.Styles[0].Description)
	}
}

func TestLoadStyleCatalog_MissingFile(t *testing.T) {
	_, err := LoadStyleCatalog(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("expected error for missing catalog")
	}
}

func TestParseStyleCatalog_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":     ": : bad yaml [[[",
		"missing id":   "styles:\n  - prompt: x\n",
		"no prompt":    "styles:\n  - id: a\n",
		"duplicate id": "styles:\n  - id: a\n    prompt: x\n  - id: a\n    prompt: y\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseStyleCatalog([]byte(doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

// --- StyleRegistry ---

func TestStyleRegistry_LoadAndGet(t *testing.T) {
	c, err := ParseStyleCatalog([]byte(testCatalog))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	reg := NewStyleRegistry()
	reg.Load(c)

	s, ok := reg.GetStyle("pixel")
	if !ok {
		t.Fatal("expected pixel style")
	}
	if s.Name != "pixel" {
		t.Errorf("Name should default to ID, got %q", s.Name)
	}

	if _, ok := reg.GetStyle("missing"); ok {
		t.Error("expected missing style to be absent")
	}

	list := reg.GetStylesList()
	if len(list) != 2 || list[0].ID != "ink-wash" || list[1].ID != "pixel" {
		t.Errorf("unexpected order: %+v", list)
	}
}

func TestStyleRegistry_Merge(t *testing.T) {
	base, _ := ParseStyleCatalog([]byte(testCatalog))
	override, err := ParseStyleCatalog([]byte("styles:\n  - id: pixel\n    prompt: 8-bit.\n  - id: neon\n    prompt: Neon glow.\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	reg := NewStyleRegistry()
	reg.Load(base)
	reg.Merge(override)

	s, _ := reg.GetStyle("pixel")
	if s.Prompt != "8-bit." {
		t.Errorf("override not applied, prompt = %q", s.Prompt)
	}

	ids := make([]string, 0)
	for _, s := range reg.GetStylesList() {
		ids = append(ids, s.ID)
	}
	want := []string{"ink-wash", "pixel", "neon"}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %s, want %s", i, ids[i], want[i])
		}
	}

	sorted := reg.IDs()
	if sorted[0] != "ink-wash" || sorted[1] != "neon" || sorted[2] != "pixel" {
		t.Errorf("IDs not sorted: %v", sorted)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"gif", FormatGIF, false},
		{"GIF", FormatGIF, false},
		{"jpg", FormatJPG, false},
		{" jpeg ", FormatJPG, false},
		{"png", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	if !FormatGIF.Animated() || FormatJPG.Animated() {
		t.Error("only GIF should be animated")
	}
}

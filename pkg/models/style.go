package models

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Style represents one entry of the styles.yaml catalog
type Style struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"desc" json:"description"`
	Prompt      string `yaml:"prompt" json:"prompt"`
}

// StyleCatalog is the top-level styles.yaml structure
type StyleCatalog struct {
	Styles []Style `yaml:"styles"`
}

// ParseStyleCatalog parses a styles.yaml document
func ParseStyleCatalog(data []byte) (*StyleCatalog, error) {
	var catalog StyleCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse style catalog: %w", err)
	}

	seen := make(map[string]bool, len(catalog.Styles))
	for i, s := range catalog.Styles {
		if s.ID == "" {
			return nil, fmt.Errorf("style #%d has no id", i+1)
		}
		if s.Prompt == "" {
			return nil, fmt.Errorf("style %s has no prompt", s.ID)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate style id: %s", s.ID)
		}
		seen[s.ID] = true
	}

	return &catalog, nil
}

// LoadStyleCatalog loads a styles.yaml file from disk
func LoadStyleCatalog(path string) (*StyleCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read style catalog: %w", err)
	}
	return ParseStyleCatalog(data)
}

// StyleRegistry manages the collection of available styles
type StyleRegistry struct {
	styles map[string]*Style
	order  []string
}

// NewStyleRegistry creates a new style registry
func NewStyleRegistry() *StyleRegistry {
	return &StyleRegistry{
		styles: make(map[string]*Style),
	}
}

// Load replaces the registry contents with the catalog entries, keeping catalog order
func (r *StyleRegistry) Load(catalog *StyleCatalog) {
	r.styles = make(map[string]*Style, len(catalog.Styles))
	r.order = r.order[:0]

	for i := range catalog.Styles {
		s := catalog.Styles[i]
		if s.Name == "" {
			s.Name = s.ID
		}
		r.styles[s.ID] = &s
		r.order = append(r.order, s.ID)
	}
}

// Merge adds or overrides entries; new IDs are appended after existing ones
func (r *StyleRegistry) Merge(catalog *StyleCatalog) {
	for i := range catalog.Styles {
		s := catalog.Styles[i]
		if s.Name == "" {
			s.Name = s.ID
		}
		if _, exists := r.styles[s.ID]; !exists {
			r.order = append(r.order, s.ID)
		}
		r.styles[s.ID] = &s
	}
}

// GetStyle returns a style by ID
func (r *StyleRegistry) GetStyle(id string) (*Style, bool) {
	s, exists := r.styles[id]
	return s, exists
}

// GetStylesList returns all styles in catalog order
func (r *StyleRegistry) GetStylesList() []*Style {
	styles := make([]*Style, 0, len(r.order))
	for _, id := range r.order {
		styles = append(styles, r.styles[id])
	}
	return styles
}

// IDs returns the registered style IDs sorted alphabetically
func (r *StyleRegistry) IDs() []string {
	ids := make([]string, 0, len(r.styles))
	for id := range r.styles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

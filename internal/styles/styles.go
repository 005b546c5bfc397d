package styles

import (
	_ "embed"
	"fmt"

	"github.com/koios/dreamcaster/pkg/models"
)

//go:embed styles.yaml
var builtin []byte

// GIFHint is appended to prompts for animated output
const GIFHint = " Looping subtle animation. 240x240. Transparent background."

// Default returns a registry holding the built-in catalog
func Default() (*models.StyleRegistry, error) {
	catalog, err := models.ParseStyleCatalog(builtin)
	if err != nil {
		return nil, fmt.Errorf("built-in styles: %w", err)
	}
	registry := models.NewStyleRegistry()
	registry.Load(catalog)
	return registry, nil
}

// Load returns the built-in catalog with the styles from path merged over it.
// An empty path yields the built-in catalog.
func Load(path string) (*models.StyleRegistry, error) {
	registry, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return registry, nil
	}

	override, err := models.LoadStyleCatalog(path)
	if err != nil {
		return nil, err
	}
	registry.Merge(override)
	return registry, nil
}

// BuildPrompt assembles the generation prompt. A nil style contributes no text.
func BuildPrompt(style *models.Style, desc string, format models.Format) string {
	styleText := ""
	if style != nil {
		styleText = style.Prompt
	}
	extra := ""
	if format.Animated() {
		extra = GIFHint
	}
	return fmt.Sprintf("%s\nSubject: %s.%s", styleText, desc, extra)
}

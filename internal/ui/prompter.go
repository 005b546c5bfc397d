package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/koios/dreamcaster/internal/session"
	"github.com/koios/dreamcaster/pkg/models"
	"github.com/manifoldco/promptui"
)

var formatItems = []string{"High Art GIF", "Static JPG"}

var styleTemplates = &promptui.SelectTemplates{
	Label:    "{{ . | bold }}",
	Active:   `{{ "> " | red | bold }}{{ .Name | yellow | underline }}`,
	Inactive: "  {{ .Name }}",
	Selected: `{{ "Style:" | faint }} {{ .Name }}`,
	Details:  `{{ .Description | cyan }}`,
}

// Prompter implements session.Prompter with promptui menus
type Prompter struct {
	stdin  io.ReadCloser
	stdout io.WriteCloser
}

// NewPrompter creates a prompter; nil streams default to the process terminal
func NewPrompter(stdin io.ReadCloser, stdout io.WriteCloser) *Prompter {
	return &Prompter{stdin: stdin, stdout: stdout}
}

// PickStyle shows the style menu with the description as a status line
func (p *Prompter) PickStyle(list []*models.Style) (*models.Style, error) {
	if len(list) == 0 {
		return nil, errors.New("no styles available")
	}

	sel := promptui.Select{
		Label:     "Select a style",
		Items:     list,
		Templates: styleTemplates,
		Size:      10,
		Searcher:  styleSearcher(list),
		Stdin:     p.stdin,
		Stdout:    p.stdout,
	}
	idx, _, err := sel.Run()
	if err != nil {
		return nil, mapErr(err)
	}
	return list[idx], nil
}

// PickFormat asks for animated GIF or static JPG output
func (p *Prompter) PickFormat(style *models.Style) (models.Format, error) {
	sel := promptui.Select{
		Label:  fmt.Sprintf("Select output type for '%s'", style.ID),
		Items:  formatItems,
		Stdin:  p.stdin,
		Stdout: p.stdout,
	}
	idx, _, err := sel.Run()
	if err != nil {
		return "", mapErr(err)
	}
	return formatForIndex(idx), nil
}

// Describe reads the artwork description
func (p *Prompter) Describe() (string, error) {
	prompt := promptui.Prompt{
		Label:    GreenBlue.Render("Describe your artwork"),
		Validate: validateDescription,
		Stdin:    p.stdin,
		Stdout:   p.stdout,
	}
	desc, err := prompt.Run()
	if err != nil {
		return "", mapErr(err)
	}
	return strings.TrimSpace(desc), nil
}

// NextAction asks what to do with the last result
func (p *Prompter) NextAction(canSend bool) (session.Action, error) {
	actions := actionsFor(canSend)
	items := make([]string, len(actions))
	for i, a := range actions {
		items[i] = actionLabel(a)
	}

	sel := promptui.Select{
		Label:  "What next",
		Items:  items,
		Stdin:  p.stdin,
		Stdout: p.stdout,
	}
	idx, _, err := sel.Run()
	if err != nil {
		return session.ActionExit, mapErr(err)
	}
	return actions[idx], nil
}

// Notify prints a status line
func (p *Prompter) Notify(msg string) {
	var w io.Writer = os.Stdout
	if p.stdout != nil {
		w = p.stdout
	}
	fmt.Fprintln(w, msg)
}

func formatForIndex(idx int) models.Format {
	if idx == 0 {
		return models.FormatGIF
	}
	return models.FormatJPG
}

func actionsFor(canSend bool) []session.Action {
	if canSend {
		return []session.Action{session.ActionSend, session.ActionRetry, session.ActionExit}
	}
	return []session.Action{session.ActionRetry, session.ActionExit}
}

func actionLabel(a session.Action) string {
	switch a {
	case session.ActionSend:
		return "Send to DreamCaster"
	case session.ActionRetry:
		return "Try again"
	default:
		return "Exit"
	}
}

func styleSearcher(list []*models.Style) func(string, int) bool {
	return func(input string, index int) bool {
		s := list[index]
		needle := strings.ToLower(strings.TrimSpace(input))
		return strings.Contains(strings.ToLower(s.Name), needle) ||
			strings.Contains(strings.ToLower(s.ID), needle)
	}
}

func validateDescription(input string) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("description cannot be empty")
	}
	return nil
}

// mapErr turns promptui interrupts into session.ErrAborted
func mapErr(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, promptui.ErrAbort) {
		return session.ErrAborted
	}
	return err
}

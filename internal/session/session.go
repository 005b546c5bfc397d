package session

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/koios/dreamcaster/internal/generate"
	"github.com/koios/dreamcaster/internal/sprite"
	"github.com/koios/dreamcaster/internal/styles"
	"github.com/koios/dreamcaster/pkg/models"
	"go.uber.org/zap"
)

// ErrAborted is returned when the user interrupts a prompt
var ErrAborted = errors.New("session aborted")

// Action is the user's choice after a generation round
type Action int

const (
	ActionSend Action = iota
	ActionRetry
	ActionExit
)

func (a Action) String() string {
	switch a {
	case ActionSend:
		return "Send"
	case ActionRetry:
		return "Retry"
	case ActionExit:
		return "Exit"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Prompter asks the user for input. Implementations return ErrAborted when
// the user interrupts.
type Prompter interface {
	PickStyle(list []*models.Style) (*models.Style, error)
	PickFormat(style *models.Style) (models.Format, error)
	Describe() (string, error)
	// NextAction offers Send only when canSend is true
	NextAction(canSend bool) (Action, error)
	Notify(msg string)
}

// Generator produces raw image bytes for a prompt
type Generator interface {
	Generate(ctx context.Context, req generate.Request) ([]byte, error)
}

// Store persists a normalized frame
type Store interface {
	Save(raw []byte, frame *image.NRGBA, format models.Format) (*models.Artifact, error)
}

// Uploader sends a saved artifact to the display device
type Uploader interface {
	UploadAndActivate(ctx context.Context, path string) bool
}

// Deps groups the collaborators of a Session
type Deps struct {
	Styles    *models.StyleRegistry
	Prompter  Prompter
	Generator Generator
	Store     Store
	Uploader  Uploader

	// Normalize defaults to sprite.Normalize
	Normalize func(data []byte) (*image.NRGBA, error)
}

// Session drives the interactive style, describe, generate and send loop
type Session struct {
	deps   Deps
	logger *zap.Logger
}

// New creates a session
func New(deps Deps, logger *zap.Logger) *Session {
	if deps.Normalize == nil {
		deps.Normalize = sprite.Normalize
	}
	return &Session{deps: deps, logger: logger}
}

// Run loops until the user exits. It returns nil on Exit and ErrAborted when
// the user interrupts a prompt or ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ErrAborted
		}

		action, err := s.round(ctx)
		if err != nil {
			return err
		}
		if action == ActionExit {
			s.logger.Info("Session finished")
			return nil
		}
	}
}

func (s *Session) round(ctx context.Context) (Action, error) {
	style, err := s.deps.Prompter.PickStyle(s.deps.Styles.GetStylesList())
	if err != nil {
		return ActionExit, err
	}
	format, err := s.deps.Prompter.PickFormat(style)
	if err != nil {
		return ActionExit, err
	}
	desc, err := s.deps.Prompter.Describe()
	if err != nil {
		return ActionExit, err
	}

	artifact, err := s.Create(ctx, style, desc, format)
	if err != nil {
		if ctx.Err() != nil {
			return ActionExit, ErrAborted
		}
		if errors.Is(err, generate.ErrNoImage) {
			s.logger.Error("Generation failed", zap.Error(err))
			s.deps.Prompter.Notify("Generation failed. Check logs.")
		} else {
			s.logger.Error("Could not process image", zap.Error(err))
			s.deps.Prompter.Notify("Could not process the generated image. Check logs.")
		}
		return s.deps.Prompter.NextAction(false)
	}

	if artifact.Existed {
		s.deps.Prompter.Notify("Already saved: " + artifact.Path)
	} else {
		s.deps.Prompter.Notify("Saved: " + artifact.Path)
	}

	action, err := s.deps.Prompter.NextAction(true)
	if err != nil || action != ActionSend {
		return action, err
	}

	if s.deps.Uploader.UploadAndActivate(ctx, artifact.Path) {
		s.deps.Prompter.Notify("Uploaded and set on DreamCaster")
	} else {
		s.deps.Prompter.Notify("Upload or set failed. Check logs.")
	}

	return s.deps.Prompter.NextAction(false)
}

// Create generates, normalizes and saves one sprite. Nothing is written when
// any step fails.
func (s *Session) Create(ctx context.Context, style *models.Style, desc string, format models.Format) (*models.Artifact, error) {
	styleID := ""
	if style != nil {
		styleID = style.ID
	}
	s.logger.Info("Generating sprite",
		zap.String("format", string(format)),
		zap.String("style", styleID))

	raw, err := s.deps.Generator.Generate(ctx, generate.Request{
		Prompt: styles.BuildPrompt(style, desc, format),
	})
	if err != nil {
		return nil, err
	}

	frame, err := s.deps.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize image: %w", err)
	}

	artifact, err := s.deps.Store.Save(raw, frame, format)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Saved sprite", zap.String("path", artifact.Path), zap.Bool("existed", artifact.Existed))
	return artifact, nil
}

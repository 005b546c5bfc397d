package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/koios/dreamcaster/internal/config"
	"github.com/koios/dreamcaster/internal/device"
	"github.com/koios/dreamcaster/internal/gallery"
	"github.com/koios/dreamcaster/internal/generate"
	"github.com/koios/dreamcaster/internal/logging"
	"github.com/koios/dreamcaster/internal/session"
	"github.com/koios/dreamcaster/internal/styles"
	"github.com/koios/dreamcaster/internal/ui"
	"github.com/koios/dreamcaster/pkg/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	exitFailure = 1
	exitConfig  = 2
)

// exitError carries the process exit status for err
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func configError(err error) error {
	return &exitError{code: exitConfig, err: err}
}

// flagValues holds command line overrides for environment configuration
type flagValues struct {
	device  string
	path    string
	model   string
	apiKey  string
	timeout int
	gallery string
	styles  string
}

type app struct {
	flags    flagValues
	cfg      *config.Config
	logger   *zap.Logger
	closeLog func()
	stdout   io.Writer
}

func main() {
	a := &app{stdout: os.Stdout}
	err := newRootCmd(a).ExecuteContext(context.Background())
	if a.closeLog != nil {
		a.closeLog()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	return exitFailure
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "dreamcaster",
		Short:         "Generate 240x240 art and cast it to a DreamCaster display",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Flags().Changed)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInteractive(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.device, "device", "", "DreamCaster base URL (env DREAMCASTER_URL)")
	pf.StringVar(&a.flags.path, "path", "", "upload directory on the device (env DREAMCASTER_PATH)")
	pf.StringVar(&a.flags.model, "model", "", "image model for the Responses API (env OPENAI_IMAGE_MODEL)")
	pf.StringVar(&a.flags.apiKey, "api-key", "", "OpenAI API key (env OPENAI_API_KEY)")
	pf.IntVar(&a.flags.timeout, "timeout", 0, "generation timeout in seconds (env OPENAI_TIMEOUT)")
	pf.StringVar(&a.flags.gallery, "gallery", "", "output directory (env GALLERY_DIR)")
	pf.StringVar(&a.flags.styles, "styles", "", "styles.yaml merged over the built-in styles (env DREAMCASTER_STYLES)")

	root.AddCommand(newGenerateCmd(a), newUploadCmd(a), newStylesCmd(a))
	return root
}

func newGenerateCmd(a *app) *cobra.Command {
	var styleID, formatName string
	var send bool

	cmd := &cobra.Command{
		Use:   "generate <description>",
		Short: "Generate one sprite without menus",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				a.logger.Error("Invalid configuration", zap.Error(err))
				return configError(err)
			}

			format, err := models.ParseFormat(formatName)
			if err != nil {
				return err
			}

			registry, err := styles.Load(a.cfg.UI.StylesPath)
			if err != nil {
				return configError(err)
			}
			style, ok := registry.GetStyle(styleID)
			if !ok {
				return fmt.Errorf("unknown style %q, available: %s", styleID, strings.Join(registry.IDs(), ", "))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sess, err := a.newSession(registry, nil)
			if err != nil {
				return err
			}
			artifact, err := sess.Create(ctx, style, strings.Join(args, " "), format)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "Saved:", artifact.Path)

			if !send {
				return nil
			}
			if !a.newDeviceClient().UploadAndActivate(ctx, artifact.Path) {
				return errors.New("upload or set failed, check logs")
			}
			fmt.Fprintln(a.stdout, "Uploaded and set on DreamCaster")
			return nil
		},
	}

	cmd.Flags().StringVar(&styleID, "style", "ink-wash", "style id (see 'dreamcaster styles')")
	cmd.Flags().StringVar(&formatName, "format", "gif", "output format: gif or jpg")
	cmd.Flags().BoolVar(&send, "send", false, "upload and activate the result")
	return cmd
}

func newUploadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload an existing sprite and make it the displayed image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil && !errors.Is(err, config.ErrMissingAPIKey) {
				a.logger.Error("Invalid configuration", zap.Error(err))
				return configError(err)
			}

			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("cannot upload %s: %w", path, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !a.newDeviceClient().UploadAndActivate(ctx, path) {
				return errors.New("upload or set failed, check logs")
			}
			fmt.Fprintln(a.stdout, "Uploaded and set on DreamCaster")
			return nil
		},
	}
}

func newStylesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "styles",
		Short: "List the available art styles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := styles.Load(a.cfg.UI.StylesPath)
			if err != nil {
				return configError(err)
			}

			idStyle := lipgloss.NewStyle().Bold(true).Width(14)
			for _, s := range registry.GetStylesList() {
				fmt.Fprintf(a.stdout, "%s %s: %s\n", idStyle.Render(s.ID), s.Name, s.Description)
			}
			return nil
		},
	}
}

// setup loads configuration, applies flag overrides and builds the logger
func (a *app) setup(changed func(name string) bool) error {
	cfg, err := config.Load()
	if err != nil {
		return configError(fmt.Errorf("failed to load configuration: %w", err))
	}
	a.flags.apply(changed, cfg)

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return configError(err)
	}

	a.cfg = cfg
	a.logger = logger
	a.closeLog = closeLog
	return nil
}

func (f *flagValues) apply(changed func(name string) bool, cfg *config.Config) {
	if changed("device") {
		cfg.Device.URL = f.device
	}
	if changed("path") {
		cfg.Device.Dir = f.path
	}
	if changed("model") {
		cfg.OpenAI.Model = f.model
	}
	if changed("api-key") {
		cfg.OpenAI.APIKey = f.apiKey
	}
	if changed("timeout") {
		cfg.OpenAI.Timeout = f.timeout
	}
	if changed("gallery") {
		cfg.Gallery.Dir = f.gallery
	}
	if changed("styles") {
		cfg.UI.StylesPath = f.styles
	}
}

func (a *app) newDeviceClient() *device.Client {
	return device.NewClient(device.Options{
		BaseURL:                  a.cfg.Device.URL,
		Dir:                      a.cfg.Device.Dir,
		TolerateMalformedHeaders: a.cfg.Device.TolerateMalformedHeaders,
		UploadTimeout:            a.cfg.UploadTimeout(),
		SetTimeout:               a.cfg.SetTimeout(),
	}, a.logger)
}

// newSession wires the generation backend, gallery and device client
func (a *app) newSession(registry *models.StyleRegistry, prompter session.Prompter) (*session.Session, error) {
	gal, err := gallery.New(a.cfg.Gallery.Dir, a.logger)
	if err != nil {
		return nil, err
	}

	gen := generate.NewGenerator(generate.Options{
		APIKey:        a.cfg.OpenAI.APIKey,
		BaseURL:       a.cfg.OpenAI.BaseURL,
		Model:         a.cfg.OpenAI.Model,
		FallbackModel: a.cfg.OpenAI.FallbackModel,
		Timeout:       a.cfg.OpenAITimeout(),
	}, a.logger)

	return session.New(session.Deps{
		Styles:    registry,
		Prompter:  prompter,
		Generator: gen,
		Store:     gal,
		Uploader:  a.newDeviceClient(),
	}, a.logger), nil
}

func (a *app) runInteractive(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		a.logger.Error("Invalid configuration", zap.Error(err))
		return configError(err)
	}
	if !ui.IsTerminal(os.Stdin) {
		return errors.New("interactive mode needs a terminal, use 'dreamcaster upload <file>' in scripts")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.SetupColor(os.Stdout)
	ui.PrintBanner(a.stdout, a.cfg.UI.BannerDir)

	registry, err := styles.Load(a.cfg.UI.StylesPath)
	if err != nil {
		a.logger.Error("Failed to load styles", zap.Error(err))
		return configError(err)
	}

	sess, err := a.newSession(registry, ui.NewPrompter(nil, nil))
	if err != nil {
		return err
	}

	a.logger.Info("Session started",
		zap.String("device", a.cfg.Device.URL),
		zap.String("gallery", a.cfg.Gallery.Dir),
		zap.String("model", a.cfg.OpenAI.Model))

	err = sess.Run(ctx)
	if errors.Is(err, session.ErrAborted) {
		a.logger.Info("Session aborted by user")
		return nil
	}
	return err
}

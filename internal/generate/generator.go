package generate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/koios/dreamcaster/internal/scanner"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrNoImage means neither backend path produced usable image bytes
var ErrNoImage = errors.New("no image produced")

// Defaults applied to zero-valued Request fields
const (
	DefaultSize         = "1024x1024"
	DefaultQuality      = "high"
	DefaultBackground   = "opaque"
	DefaultOutputFormat = "png"
)

// Options configures the generation backend
type Options struct {
	APIKey        string
	BaseURL       string
	Model         string // model for the tool-augmented Responses call
	FallbackModel string // model for the Images API fallback
	Timeout       time.Duration
}

// Request describes one image to generate
type Request struct {
	Prompt       string
	Size         string // "WxH"
	Quality      string
	Background   string // "opaque", "transparent" or "auto"
	OutputFormat string
}

// ImageCreator is the subset of the go-openai client used by the fallback path
type ImageCreator interface {
	CreateImage(ctx context.Context, request openai.ImageRequest) (openai.ImageResponse, error)
}

// Generator obtains image bytes from the generation backend
type Generator struct {
	opts   Options
	rest   *resty.Client
	images ImageCreator
	logger *zap.Logger
}

// NewGenerator creates a Generator talking to opts.BaseURL
func NewGenerator(opts Options, logger *zap.Logger) *Generator {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.FallbackModel == "" {
		opts.FallbackModel = "gpt-image-1"
	}

	httpClient := &http.Client{Timeout: opts.Timeout}

	clientConfig := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		clientConfig.BaseURL = opts.BaseURL
	} else {
		opts.BaseURL = clientConfig.BaseURL
	}
	clientConfig.HTTPClient = httpClient

	return &Generator{
		opts:   opts,
		rest:   resty.NewWithClient(httpClient).SetLogger(logger.Sugar()),
		images: openai.NewClientWithConfig(clientConfig),
		logger: logger,
	}
}

// WithImageCreator replaces the fallback client
func (g *Generator) WithImageCreator(images ImageCreator) *Generator {
	g.images = images
	return g
}

// Generate tries the Responses API first and the Images API second. Failures
// are logged and never retried; when both paths come up empty the error
// wraps ErrNoImage.
func (g *Generator) Generate(ctx context.Context, req Request) ([]byte, error) {
	req = withDefaults(req)

	g.logger.Info("Requesting image",
		zap.String("model", g.opts.Model),
		zap.String("size", req.Size),
		zap.String("background", req.Background),
		zap.Int("prompt_length", len(req.Prompt)))

	img, err := g.generateWithResponses(ctx, req)
	switch {
	case err != nil:
		g.logger.Error("Image generation via Responses API failed", zap.Error(err))
	case len(img) > 0:
		return img, nil
	default:
		g.logger.Error("No base64 image found in Responses payload, falling back to Images API")
	}

	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoImage, ctx.Err())
	}

	img, err = g.generateWithImages(ctx, req)
	if err != nil {
		g.logger.Error("Images API fallback failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrNoImage, err)
	}
	if len(img) == 0 {
		return nil, ErrNoImage
	}
	return img, nil
}

func (g *Generator) generateWithResponses(ctx context.Context, req Request) ([]byte, error) {
	payload, err := g.createResponse(ctx, buildResponsesBody(g.opts.Model, req))
	if err != nil {
		return nil, err
	}
	return g.extract(payload, "responses"), nil
}

func (g *Generator) generateWithImages(ctx context.Context, req Request) ([]byte, error) {
	resp, err := g.images.CreateImage(ctx, openai.ImageRequest{
		Model:          g.opts.FallbackModel,
		Prompt:         req.Prompt,
		Size:           req.Size,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) > 0 && resp.Data[0].B64JSON != "" {
		return g.decode(resp.Data[0].B64JSON, "images"), nil
	}

	// unexpected shape
	return g.extract(resp, "images"), nil
}

// extract runs the scanner over payload; decode failures yield nil bytes
func (g *Generator) extract(payload any, source string) []byte {
	img, found, err := scanner.FindAndDecode(payload)
	if !found {
		return nil
	}
	if err != nil {
		g.logger.Warn("Base64 decode failed", zap.String("source", source), zap.Error(err))
		return nil
	}
	g.logger.Debug("Decoded image payload", zap.String("source", source), zap.Int("bytes", len(img)))
	return img
}

func (g *Generator) decode(candidate, source string) []byte {
	img, err := scanner.Decode(candidate)
	if err != nil {
		g.logger.Warn("Base64 decode failed", zap.String("source", source), zap.Error(err))
		return nil
	}
	g.logger.Debug("Decoded image payload", zap.String("source", source), zap.Int("bytes", len(img)))
	return img
}

func withDefaults(req Request) Request {
	if req.Size == "" {
		req.Size = DefaultSize
	}
	if req.Quality == "" {
		req.Quality = DefaultQuality
	}
	if req.Background == "" {
		req.Background = DefaultBackground
	}
	if req.OutputFormat == "" {
		req.OutputFormat = DefaultOutputFormat
	}
	return req
}

package device

import (
	"context"
	"errors"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Options configures a DreamCaster client
type Options struct {
	BaseURL string
	Dir     string

	// TolerateMalformedHeaders treats a response whose headers cannot be
	// parsed as a successful upload. DreamCaster firmware sends such headers
	// after storing the file.
	TolerateMalformedHeaders bool

	UploadTimeout time.Duration
	SetTimeout    time.Duration
}

// Client uploads sprites to a DreamCaster and selects the displayed image
type Client struct {
	base   string
	dir    string
	opts   Options
	rest   *resty.Client
	logger *zap.Logger
}

// NewClient creates a client for opts.BaseURL
func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = 60 * time.Second
	}
	if opts.SetTimeout <= 0 {
		opts.SetTimeout = 30 * time.Second
	}

	dir := opts.Dir
	if dir == "" {
		dir = "/image"
	}
	if !strings.HasPrefix(dir, "/") {
		dir = "/" + dir
	}

	return &Client{
		base:   strings.TrimRight(opts.BaseURL, "/"),
		dir:    dir,
		opts:   opts,
		rest:   resty.New().SetLogger(logger.Sugar()),
		logger: logger,
	}
}

// FieldForFile returns the multipart field name the firmware expects for filename
func FieldForFile(filename string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "jpg", "jpeg":
		return "file"
	default:
		return "image"
	}
}

// QuotePath percent-encodes s keeping '/' and unreserved characters as is
func QuotePath(s string) string {
	segments := strings.Split(s, "/")
	for i, seg := range segments {
		segments[i] = strings.ReplaceAll(url.QueryEscape(seg), "+", "%20")
	}
	return strings.Join(segments, "/")
}

// UploadURL returns {base}/doUpload?dir={dir}
func (c *Client) UploadURL() string {
	return c.base + "/doUpload?dir=" + QuotePath(c.dir)
}

// SetURL returns {base}/set?img={remotePath}
func (c *Client) SetURL(remotePath string) string {
	return c.base + "/set?img=" + QuotePath(remotePath)
}

// RemotePath returns {dir}/{filename}
func (c *Client) RemotePath(filename string) string {
	return c.dir + "/" + filename
}

// Upload sends the file at path as a multipart form. It returns the remote
// path on success and ok=false on any transport error or non-2xx status.
func (c *Client) Upload(ctx context.Context, path string) (bool, string) {
	name := filepath.Base(path)
	uploadURL := c.UploadURL()

	f, err := os.Open(path)
	if err != nil {
		c.logger.Error("Upload error", zap.String("path", path), zap.Error(err))
		return false, ""
	}
	defer f.Close()

	contentType := "application/octet-stream"
	if mime, err := mimetype.DetectFile(path); err == nil {
		contentType = mime.String()
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.UploadTimeout)
	defer cancel()

	resp, err := c.rest.R().
		SetContext(ctx).
		SetMultipartField(FieldForFile(name), name, contentType, f).
		Post(uploadURL)
	if err != nil {
		if c.opts.TolerateMalformedHeaders && isMalformedHeader(err) {
			c.logger.Warn("Upload successful, but server sent a malformed response",
				zap.String("url", uploadURL), zap.Error(err))
			return true, c.RemotePath(name)
		}
		c.logger.Error("Upload error", zap.String("url", uploadURL), zap.Error(err))
		return false, ""
	}

	c.logger.Info("Upload finished",
		zap.String("method", "POST"),
		zap.String("url", uploadURL),
		zap.Int("status", resp.StatusCode()))

	if !resp.IsSuccess() {
		c.logger.Error("Upload rejected", zap.String("url", uploadURL), zap.String("status", resp.Status()))
		return false, ""
	}

	return true, c.RemotePath(name)
}

// Activate asks the device to display remotePath; success is a 2xx status
func (c *Client) Activate(ctx context.Context, remotePath string) bool {
	setURL := c.SetURL(remotePath)

	ctx, cancel := context.WithTimeout(ctx, c.opts.SetTimeout)
	defer cancel()

	resp, err := c.rest.R().SetContext(ctx).Get(setURL)
	if err != nil {
		c.logger.Error("Set image error", zap.String("url", setURL), zap.Error(err))
		return false
	}

	c.logger.Info("Set image finished",
		zap.String("method", "GET"),
		zap.String("url", setURL),
		zap.Int("status", resp.StatusCode()))

	return resp.IsSuccess()
}

// UploadAndActivate uploads path and, if that worked, makes it the active image
func (c *Client) UploadAndActivate(ctx context.Context, path string) bool {
	ok, remote := c.Upload(ctx, path)
	if !ok || remote == "" {
		return false
	}
	return c.Activate(ctx, remote)
}

// isMalformedHeader reports whether the status line parsed but a header line did not
func isMalformedHeader(err error) bool {
	var protoErr textproto.ProtocolError
	if errors.As(err, &protoErr) {
		return true
	}
	var protoErrPtr *textproto.ProtocolError
	if errors.As(err, &protoErrPtr) {
		return true
	}
	// a bad status line is not a header problem and stays a failure
	return strings.Contains(err.Error(), "malformed MIME header")
}

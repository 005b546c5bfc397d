package gallery

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/koios/dreamcaster/internal/sprite"
	"github.com/koios/dreamcaster/pkg/models"
	"go.uber.org/zap"
)

// HashLength is the number of hex characters of the content hash used in file names
const HashLength = 8

// Gallery writes finished sprites into a flat, append-only directory
type Gallery struct {
	dir    string
	logger *zap.Logger
}

// New creates the gallery directory if needed
func New(dir string, logger *zap.Logger) (*Gallery, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create gallery directory: %w", err)
	}
	return &Gallery{dir: dir, logger: logger}, nil
}

// Dir returns the gallery directory
func (g *Gallery) Dir() string {
	return g.dir
}

// ContentHash returns the first HashLength hex characters of sha256(raw)
func ContentHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:HashLength]
}

// FileName returns art_<hash>.<ext>
func FileName(hash string, format models.Format) string {
	return fmt.Sprintf("art_%s.%s", hash, format.Extension())
}

// Path returns where the sprite for raw would be stored
func (g *Gallery) Path(raw []byte, format models.Format) string {
	return filepath.Join(g.dir, FileName(ContentHash(raw), format))
}

// Save encodes frame and stores it under a name derived from raw, the source
// bytes frame was normalized from. An existing file with the same name is
// left untouched and reported with Existed set.
func (g *Gallery) Save(raw []byte, frame *image.NRGBA, format models.Format) (*models.Artifact, error) {
	hash := ContentHash(raw)
	finalPath := filepath.Join(g.dir, FileName(hash, format))

	artifact := &models.Artifact{
		Path:   finalPath,
		Format: format,
		Hash:   hash,
	}

	if info, err := os.Stat(finalPath); err == nil {
		artifact.Existed = true
		artifact.SavedAt = info.ModTime()
		g.logger.Info("Sprite already in gallery", zap.String("path", finalPath))
		return artifact, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat %s: %w", finalPath, err)
	}

	// encode fully before touching the directory
	var buf bytes.Buffer
	if err := sprite.Encode(&buf, frame, format); err != nil {
		return nil, err
	}

	tmpPath := filepath.Join(g.dir, ".tmp-"+uuid.NewString()+"-"+FileName(hash, format))
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to rename temp file: %w", err)
	}

	artifact.SavedAt = time.Now()
	g.logger.Info("Saved sprite",
		zap.String("path", finalPath),
		zap.String("format", string(format)),
		zap.Int("bytes", buf.Len()))

	return artifact, nil
}

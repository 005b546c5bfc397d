package sprite

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/nfnt/resize"
	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Size is the edge length of every sprite sent to the display
const Size = 240

// ErrUnsupportedImage is returned when the source bytes are not a decodable image
var ErrUnsupportedImage = errors.New("unsupported image data")

// Normalize decodes data and fits it to a Size×Size NRGBA frame: the largest
// centered square is cropped out and resampled with Lanczos3, so no
// letterboxing occurs.
func Normalize(data []byte) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrUnsupportedImage)
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, fmt.Errorf("%w: detected %s", ErrUnsupportedImage, mime.String())
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", ErrUnsupportedImage, mime.String(), err)
	}

	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: %s image has no pixels", ErrUnsupportedImage, format)
	}

	return Fit(src), nil
}

// Fit center-crops src to a square and resizes it to Size×Size
func Fit(src image.Image) *image.NRGBA {
	crop := centerSquare(src.Bounds())

	square := image.NewNRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	xdraw.Copy(square, image.Point{}, src, crop, xdraw.Src, nil)

	var resized image.Image = square
	if crop.Dx() != Size || crop.Dy() != Size {
		resized = resize.Resize(Size, Size, square, resize.Lanczos3)
	}

	// resize may hand back a different concrete type or origin
	out := image.NewNRGBA(image.Rect(0, 0, Size, Size))
	xdraw.Draw(out, out.Bounds(), resized, resized.Bounds().Min, xdraw.Src)
	return out
}

// centerSquare returns the largest square inside b centered on both axes
func centerSquare(b image.Rectangle) image.Rectangle {
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	return image.Rect(x0, y0, x0+side, y0+side)
}

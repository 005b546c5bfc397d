package sprite

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"io"

	"github.com/ericpauley/go-quantize/quantize"
	"github.com/koios/dreamcaster/pkg/models"
	xdraw "golang.org/x/image/draw"
)

const (
	// JPEGQuality is the quality used for static sprites
	JPEGQuality = 95

	// TransparentIndex is the palette slot reserved as the GIF transparency key
	TransparentIndex = 255

	// AlphaCutoff is the highest alpha still treated as fully transparent
	AlphaCutoff = 1

	// FrameDelay is the GIF frame duration in 1/100 s (120ms)
	FrameDelay = 12

	maxPaletteColors = 255
)

// Encode writes frame in the requested format
func Encode(w io.Writer, frame *image.NRGBA, format models.Format) error {
	switch format {
	case models.FormatJPG:
		return EncodeJPEG(w, frame)
	case models.FormatGIF:
		return EncodeGIF(w, frame)
	default:
		return fmt.Errorf("unsupported output format: %q", format)
	}
}

// EncodeJPEG flattens frame onto opaque white using its alpha channel and
// writes a quality 95 JPEG.
func EncodeJPEG(w io.Writer, frame *image.NRGBA) error {
	b := frame.Bounds()
	flat := image.NewRGBA(b)
	xdraw.Draw(flat, b, image.White, image.Point{}, xdraw.Src)
	xdraw.Draw(flat, b, frame, b.Min, xdraw.Over)

	if err := jpeg.Encode(w, flat, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return fmt.Errorf("error encoding JPEG: %w", err)
	}
	return nil
}

// EncodeGIF writes frame as a single-frame, infinitely looping GIF. Colors
// are reduced to an adaptive palette of at most 255 entries; slot 255 is the
// transparency key, painted wherever alpha <= AlphaCutoff. There is no
// partial transparency.
func EncodeGIF(w io.Writer, frame *image.NRGBA) error {
	paletted := Quantize(frame)

	anim := &gif.GIF{
		Image:     []*image.Paletted{paletted},
		Delay:     []int{FrameDelay},
		Disposal:  []byte{gif.DisposalBackground},
		LoopCount: 0,
		Config: image.Config{
			ColorModel: paletted.Palette,
			Width:      paletted.Bounds().Dx(),
			Height:     paletted.Bounds().Dy(),
		},
		BackgroundIndex: TransparentIndex,
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return fmt.Errorf("error encoding GIF: %w", err)
	}

	// image/gif only emits the loop extension for multi-frame images
	looped, err := insertLoopExtension(buf.Bytes(), anim.LoopCount)
	if err != nil {
		return err
	}

	if _, err := w.Write(looped); err != nil {
		return fmt.Errorf("error writing GIF: %w", err)
	}
	return nil
}

// insertLoopExtension places a NETSCAPE2.0 application extension right after
// the logical screen descriptor and global color table.
func insertLoopExtension(data []byte, loopCount int) ([]byte, error) {
	const headerLen = 6 + 7
	if len(data) < headerLen {
		return nil, fmt.Errorf("error encoding GIF: stream too short")
	}

	offset := headerLen
	if flags := data[10]; flags&0x80 != 0 {
		offset += 3 * (1 << ((flags & 0x07) + 1))
	}
	if offset > len(data) {
		return nil, fmt.Errorf("error encoding GIF: truncated color table")
	}
	if bytes.Contains(data[offset:min(len(data), offset+19)], []byte("NETSCAPE2.0")) {
		return data, nil
	}

	ext := []byte{0x21, 0xff, 0x0b}
	ext = append(ext, "NETSCAPE2.0"...)
	ext = append(ext, 0x03, 0x01, byte(loopCount), byte(loopCount>>8), 0x00)

	out := make([]byte, 0, len(data)+len(ext))
	out = append(out, data[:offset]...)
	out = append(out, ext...)
	out = append(out, data[offset:]...)
	return out, nil
}

// Quantize maps frame onto a 256-entry palette whose last entry is fully
// transparent and whose other entries are opaque.
func Quantize(frame *image.NRGBA) *image.Paletted {
	b := frame.Bounds()

	// alpha plays no part in color selection
	opaque := image.NewNRGBA(b)
	copy(opaque.Pix, frame.Pix)
	for i := 3; i < len(opaque.Pix); i += 4 {
		opaque.Pix[i] = 0xff
	}

	q := quantize.MedianCutQuantizer{}
	found := q.Quantize(make(color.Palette, 0, maxPaletteColors), opaque)

	palette := make(color.Palette, 0, maxPaletteColors+1)
	for _, c := range found {
		if len(palette) == maxPaletteColors {
			break
		}
		r, g, bl, _ := c.RGBA()
		palette = append(palette, color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(bl >> 8), A: 0xff})
	}
	for len(palette) < maxPaletteColors {
		palette = append(palette, color.RGBA{A: 0xff})
	}

	paletted := image.NewPaletted(b, palette)
	xdraw.Draw(paletted, b, opaque, b.Min, xdraw.Src)

	paletted.Palette = append(paletted.Palette, color.RGBA{})

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if frame.NRGBAAt(x, y).A <= AlphaCutoff {
				paletted.SetColorIndex(x, y, TransparentIndex)
			}
		}
	}

	return paletted
}

package preview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/nfnt/resize"
)

// DefaultMaxWidth is used when Options.MaxWidth is zero.
const DefaultMaxWidth = 480

// Shooter is anything that can take a PNG screenshot.
type Shooter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// Options configures preview capture
type Options struct {
	MaxWidth uint
}

// Capture screenshots s and returns a PNG thumbnail.
func Capture(ctx context.Context, s Shooter, opts Options) ([]byte, error) {
	data, err := s.Screenshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return Thumbnail(data, opts.MaxWidth)
}

// Thumbnail decodes an image and re-encodes it as PNG no wider than
// maxWidth, keeping the aspect ratio. Smaller images are not upscaled.
func Thumbnail(data []byte, maxWidth uint) ([]byte, error) {
	if maxWidth == 0 {
		maxWidth = DefaultMaxWidth
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}

	if uint(img.Bounds().Dx()) > maxWidth {
		// Height 0 keeps the aspect ratio
		img = resize.Resize(maxWidth, 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

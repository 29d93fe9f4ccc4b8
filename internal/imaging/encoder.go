package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"

	// Registers WebP with the image package so WebP inputs decode.
	_ "github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"pixelpress/internal/logging"
)

// Result carries the encoded bytes plus what actually happened. Encoded
// differs from Requested when the fallback path ran.
type Result struct {
	Bytes     []byte
	Requested Format
	Encoded   Format
	Fallback  bool
}

// Encoder converts raw image bytes into a target format at a quality
// factor in [0, 1].
type Encoder interface {
	Encode(ctx context.Context, raw []byte, format Format, quality float64) (Result, error)
}

// StdEncoder is the production Encoder backed by the stdlib image
// registry for decoding and disintegration/imaging for encoding.
type StdEncoder struct {
	logger *slog.Logger
}

// NewEncoder constructs a StdEncoder. A nil logger is replaced with a
// no-op logger.
func NewEncoder(logger *slog.Logger) *StdEncoder {
	return &StdEncoder{logger: logging.NewComponentLogger(logger, "encoder")}
}

// Encode implements Encoder.
//
// JPG and JPEG are lossy and honor the quality factor. PNG is lossless
// and accepts but ignores quality. WEBP is served by the JPEG fallback
// and flagged in the result.
func (e *StdEncoder) Encode(ctx context.Context, raw []byte, format Format, quality float64) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, newEncodeError(ErrorCodeEncodingFailed, err)
	}
	if len(raw) == 0 {
		return Result{}, newEncodeError(ErrorCodeUnsupportedInput, fmt.Errorf("empty input"))
	}

	img, sourceFormat, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Result{}, newEncodeError(ErrorCodeUnsupportedInput, err)
	}

	quality = clampQuality(quality)
	result := Result{Requested: format, Encoded: format}

	var buf bytes.Buffer
	switch format {
	case FormatJPG, FormatJPEG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality(quality)))
	case FormatPNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	case FormatWEBP:
		// No native WebP encoder; substitute JPEG and flag it.
		result.Encoded = FormatJPEG
		result.Fallback = true
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality(quality)))
	default:
		return Result{}, newEncodeError(ErrorCodeEncodingFailed, fmt.Errorf("unknown format %q", format))
	}
	if err != nil {
		return Result{}, newEncodeError(ErrorCodeEncodingFailed, err)
	}

	result.Bytes = buf.Bytes()

	attrs := []logging.Attr{
		logging.String(logging.FieldFormat, string(format)),
		logging.String("source_format", sourceFormat),
		logging.Float64("quality", quality),
		logging.Int("output_bytes", len(result.Bytes)),
	}
	if result.Fallback {
		attrs = append(attrs,
			logging.String(logging.FieldEventType, "encode_fallback"),
			logging.String("encoded_as", string(result.Encoded)),
		)
		e.logger.Warn("webp encode unavailable, substituted jpeg", logging.Args(attrs...)...)
	} else {
		e.logger.Debug("image encoded", logging.Args(attrs...)...)
	}

	return result, nil
}

func clampQuality(quality float64) float64 {
	if math.IsNaN(quality) {
		return 0
	}
	return math.Min(1, math.Max(0, quality))
}

// jpegQuality maps the workflow's [0, 1] quality factor onto the JPEG
// encoder's 1..100 scale.
func jpegQuality(quality float64) int {
	scaled := int(math.Round(quality * 100))
	if scaled < 1 {
		return 1
	}
	if scaled > 100 {
		return 100
	}
	return scaled
}

package imaging_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"pixelpress/internal/imaging"
)

func gradientPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: uint8((x + y) * 2), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestEncodePNGIgnoresQuality(t *testing.T) {
	enc := imaging.NewEncoder(nil)
	raw := gradientPNG(t)
	ctx := context.Background()

	low, err := enc.Encode(ctx, raw, imaging.FormatPNG, 0.1)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	high, err := enc.Encode(ctx, raw, imaging.FormatPNG, 0.9)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(low.Bytes, high.Bytes) {
		t.Fatal("PNG output should not depend on quality")
	}
}

func TestEncodeJPEGSizeMonotonicInQuality(t *testing.T) {
	enc := imaging.NewEncoder(nil)
	raw := gradientPNG(t)
	ctx := context.Background()

	var prev int
	for _, quality := range []float64{0.1, 0.3, 0.5, 0.7, 0.9, 1.0} {
		res, err := enc.Encode(ctx, raw, imaging.FormatJPEG, quality)
		if err != nil {
			t.Fatalf("Encode at %v failed: %v", quality, err)
		}
		if len(res.Bytes) == 0 {
			t.Fatalf("Encode at %v returned empty output", quality)
		}
		if len(res.Bytes) < prev {
			t.Fatalf("size decreased at quality %v: %d < %d", quality, len(res.Bytes), prev)
		}
		prev = len(res.Bytes)
	}
}

func TestEncodeJPEGAndPNGDiffer(t *testing.T) {
	enc := imaging.NewEncoder(nil)
	raw := gradientPNG(t)
	ctx := context.Background()

	jpegRes, err := enc.Encode(ctx, raw, imaging.FormatJPEG, 0.7)
	if err != nil {
		t.Fatalf("JPEG encode failed: %v", err)
	}
	pngRes, err := enc.Encode(ctx, raw, imaging.FormatPNG, 0.7)
	if err != nil {
		t.Fatalf("PNG encode failed: %v", err)
	}
	if len(jpegRes.Bytes) == 0 || len(pngRes.Bytes) == 0 {
		t.Fatal("expected non-empty outputs")
	}
	if bytes.Equal(jpegRes.Bytes, pngRes.Bytes) {
		t.Fatal("JPEG and PNG outputs should differ")
	}
}

func TestEncodeWEBPFallsBackToJPEG(t *testing.T) {
	enc := imaging.NewEncoder(nil)
	raw := gradientPNG(t)
	ctx := context.Background()

	webpRes, err := enc.Encode(ctx, raw, imaging.FormatWEBP, 0.7)
	if err != nil {
		t.Fatalf("WEBP encode failed: %v", err)
	}
	if !webpRes.Fallback {
		t.Fatal("expected fallback flag")
	}
	if webpRes.Requested != imaging.FormatWEBP || webpRes.Encoded != imaging.FormatJPEG {
		t.Fatalf("unexpected formats: requested=%s encoded=%s", webpRes.Requested, webpRes.Encoded)
	}

	jpegRes, err := enc.Encode(ctx, raw, imaging.FormatJPEG, 0.7)
	if err != nil {
		t.Fatalf("JPEG encode failed: %v", err)
	}
	if !bytes.Equal(webpRes.Bytes, jpegRes.Bytes) {
		t.Fatal("fallback bytes should match a direct JPEG encode")
	}
}

func TestEncodeRejectsUndecodableInput(t *testing.T) {
	enc := imaging.NewEncoder(nil)
	ctx := context.Background()

	cases := []struct {
		name string
		raw  []byte
	}{
		{"empty", nil},
		{"garbage", []byte("definitely not an image")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := enc.Encode(ctx, tc.raw, imaging.FormatJPEG, 0.7)
			if err == nil {
				t.Fatal("expected error")
			}
			if code := imaging.CodeOf(err); code != imaging.ErrorCodeUnsupportedInput {
				t.Fatalf("expected unsupported_input, got %q", code)
			}
		})
	}
}

func TestEncodeHonorsCanceledContext(t *testing.T) {
	enc := imaging.NewEncoder(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := enc.Encode(ctx, gradientPNG(t), imaging.FormatJPEG, 0.7)
	if err == nil {
		t.Fatal("expected error from canceled context")
	}
	if code := imaging.CodeOf(err); code != imaging.ErrorCodeEncodingFailed {
		t.Fatalf("expected encoding_failed, got %q", code)
	}
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		input string
		want  imaging.Format
		ok    bool
	}{
		{"jpg", imaging.FormatJPG, true},
		{"JPEG", imaging.FormatJPEG, true},
		{" png ", imaging.FormatPNG, true},
		{"WebP", imaging.FormatWEBP, true},
		{"gif", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := imaging.ParseFormat(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseFormat(%q) = %q, %v; want %q, %v", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFormatExtensions(t *testing.T) {
	want := map[imaging.Format]string{
		imaging.FormatJPG:  "jpg",
		imaging.FormatJPEG: "jpeg",
		imaging.FormatPNG:  "png",
		imaging.FormatWEBP: "webp",
	}
	for format, ext := range want {
		if got := format.Extension(); got != ext {
			t.Fatalf("%s extension: got %q want %q", format, got, ext)
		}
	}
	if !imaging.FormatPNG.Lossless() {
		t.Fatal("PNG should be lossless")
	}
	if imaging.FormatJPEG.Lossless() {
		t.Fatal("JPEG should not be lossless")
	}
}

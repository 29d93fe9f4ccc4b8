package imaging

import "strings"

// Format identifies an output image format.
type Format string

const (
	FormatJPG  Format = "JPG"
	FormatJPEG Format = "JPEG"
	FormatPNG  Format = "PNG"
	FormatWEBP Format = "WEBP"
)

var allFormats = []Format{FormatJPG, FormatJPEG, FormatPNG, FormatWEBP}

// AllFormats returns the ordered list of known output formats.
func AllFormats() []Format {
	cp := make([]Format, len(allFormats))
	copy(cp, allFormats)
	return cp
}

// ParseFormat converts a string into a known Format.
func ParseFormat(value string) (Format, bool) {
	normalized := Format(strings.ToUpper(strings.TrimSpace(value)))
	switch normalized {
	case FormatJPG, FormatJPEG, FormatPNG, FormatWEBP:
		return normalized, true
	}
	return "", false
}

// Extension returns the canonical file extension for the format, without
// a leading dot.
func (f Format) Extension() string {
	switch f {
	case FormatJPG:
		return "jpg"
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	case FormatWEBP:
		return "webp"
	default:
		return ""
	}
}

// Lossless reports whether the format ignores the quality factor.
func (f Format) Lossless() bool {
	return f == FormatPNG
}

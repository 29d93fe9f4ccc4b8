// Package imaging implements the image encoding capability behind the
// conversion workflow. It decodes raw image bytes (JPEG, PNG, GIF, and
// WebP inputs) and re-encodes them in a requested output format at a
// quality factor.
//
// WebP output has no encoder on this platform; requests for it are
// served by JPEG encoding and the result is explicitly flagged as a
// fallback so callers can distinguish it from a true WebP encode.
package imaging

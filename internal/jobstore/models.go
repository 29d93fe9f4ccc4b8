package jobstore

import (
	"time"

	"pixelpress/internal/imaging"
)

// Job is a persisted conversion record.
//
// ConvertedBytes is present exactly when Completed is true; Persist
// enforces the invariant. OriginalBytes holds the archival near-lossless
// copy of the source image, kept alongside the converted output for
// traceability.
type Job struct {
	ID              string
	OriginalBytes   []byte
	ConvertedBytes  []byte
	RequestedFormat imaging.Format
	EncodedFormat   imaging.Format
	Fallback        bool
	Quality         float64
	CreatedAt       time.Time
	Completed       bool
}

// Clone returns a deep copy of the job. The session hands ownership to
// the store via a copy so no two components share mutable byte slices.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	cp.OriginalBytes = append([]byte(nil), j.OriginalBytes...)
	cp.ConvertedBytes = append([]byte(nil), j.ConvertedBytes...)
	return &cp
}

package orbit

import "fmt"

// Option applies a configuration option to the Extractor.
type Option func(*Extractor)

// WithChecksum enables modulo-10 checksum validation of both lines.
// Off by default; many published element sets carry stale checksums.
func WithChecksum(enabled bool) Option {
	return func(x *Extractor) {
		x.checksum = enabled
	}
}

// Extractor converts catalog records into feature vectors. The zero value
// is ready to use.
type Extractor struct {
	checksum bool
}

// NewExtractor creates an extractor with configuration options.
func NewExtractor(opts ...Option) *Extractor {
	x := &Extractor{}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Elements decodes the record's element set.
func (x *Extractor) Elements(rec Record) (Elements, error) {
	e, err := decode(rec.Line1, rec.Line2, x != nil && x.checksum)
	if err != nil {
		return Elements{}, fmt.Errorf("norad %d: %w", rec.NoradID, err)
	}
	return e, nil
}

// Extract returns the feature vector of rec. On failure the error wraps
// ErrExtraction and the returned vector must not be used.
func (x *Extractor) Extract(rec Record) (Features, error) {
	e, err := x.Elements(rec)
	if err != nil {
		return Features{}, err
	}
	return e.Features(), nil
}

// Extract is a convenience wrapper around the default Extractor.
func Extract(rec Record) (Features, error) {
	var x Extractor
	return x.Extract(rec)
}

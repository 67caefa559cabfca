// Package extract resolves record ids to tuples across a set of blobs and
// drives batch extraction runs.
package extract

import (
	"github.com/cockroachdb/errors"
	"github.com/lehigh-university-libraries/wikiblob/internal/blob"
)

const (
	DefaultWindow        = 2000
	DefaultLead          = 10
	DefaultMaxWindow     = 1 << 20
	DefaultMaxCandidates = 8
	DefaultBatchSize     = 500
	DefaultProgressEvery = 50
)

// Options tune a single record lookup.
type Options struct {
	// Window is the initial number of bytes read around a located tuple.
	Window int64
	// Lead is how many bytes before the tuple opening the window starts.
	Lead int64
	// MaxWindow caps window growth for tuples longer than Window.
	MaxWindow int64
	// MaxCandidates bounds how many "(id," occurrences are tried per blob.
	MaxCandidates int
	Mode          blob.UnescapeMode
}

// DefaultOptions returns the lookup settings used by the CLI.
func DefaultOptions() Options {
	return Options{
		Window:        DefaultWindow,
		Lead:          DefaultLead,
		MaxWindow:     DefaultMaxWindow,
		MaxCandidates: DefaultMaxCandidates,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Window <= 0 {
		o.Window = d.Window
	}
	if o.Lead < 0 {
		o.Lead = d.Lead
	}
	if o.MaxWindow < o.Window {
		o.MaxWindow = max(o.Window, d.MaxWindow)
	}
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = d.MaxCandidates
	}
	return o
}

// Validate rejects settings that cannot produce a lookup.
func (o Options) Validate() error {
	switch {
	case o.Window <= 0:
		return errors.Newf("window must be positive, got %d", o.Window)
	case o.Lead < 0:
		return errors.Newf("window lead must not be negative, got %d", o.Lead)
	case o.Window <= o.Lead:
		return errors.Newf("window %d must be larger than window lead %d", o.Window, o.Lead)
	case o.MaxWindow < o.Window:
		return errors.Newf("max window %d is smaller than window %d", o.MaxWindow, o.Window)
	case o.MaxCandidates <= 0:
		return errors.Newf("max candidates must be positive, got %d", o.MaxCandidates)
	}
	return nil
}

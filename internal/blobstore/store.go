// Package blobstore gives the extractor access to text-table blobs without
// requiring whole blobs in process memory.
package blobstore

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/lehigh-university-libraries/wikiblob/internal/metadata"
)

// ErrStore marks failures of the underlying store (lost connection, query
// error, unreadable file). They are fatal to an extraction run.
var ErrStore = errors.New("blob store failure")

// Store is the blob access the extractor needs: a byte search and a bounded
// read.
type Store interface {
	// BlobIDs lists all blob ids in ascending order.
	BlobIDs(ctx context.Context) ([]int64, error)
	// Index returns the 0-based offset of the first occurrence of needle at
	// or after from, or -1. A missing blob also yields -1.
	Index(ctx context.Context, blobID int64, needle []byte, from int64) (int64, error)
	// Window returns up to n bytes starting at offset.
	Window(ctx context.Context, blobID int64, offset, n int64) ([]byte, error)
	Close() error
}

// Sizer is implemented by stores that can report blob lengths.
type Sizer interface {
	Size(ctx context.Context, blobID int64) (int64, error)
}

// PageQuery selects pages from the metadata join.
type PageQuery struct {
	Namespace int
	// Limit caps the number of pages; 0 means no cap.
	Limit int
	// Sample, when positive, returns 2*Sample pages in random order so that
	// enough records remain after not-found pages are dropped.
	Sample int
}

// PageSource runs the page -> revision -> slot -> content join.
type PageSource interface {
	Pages(ctx context.Context, q PageQuery) ([]metadata.Page, error)
}

func storeError(err error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrStore)
}

// Package export writes the tables of a reconciliation run to a local
// directory or a cloud bucket.
package export

import (
	"context"
	"io"
)

// Store receives the exported files.
type Store interface {
	// CreateFromReader writes the contents of r under key and returns the
	// location of the created file.
	CreateFromReader(ctx context.Context, r io.Reader, key string) (string, error)
}

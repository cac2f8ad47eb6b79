// Package archive persists raw sitemap XML fetched during a pipeline run so
// past runs can be replayed and debugged.
package archive

import "context"

// Store writes a raw sitemap snapshot and returns the URI it landed at.
type Store interface {
	Put(ctx context.Context, objectName string, data []byte) (string, error)
	Close() error
}

// Nop discards snapshots. Used when archiving is not configured.
type Nop struct{}

// Put implements Store.
func (Nop) Put(_ context.Context, _ string, _ []byte) (string, error) { return "", nil }

// Close implements Store.
func (Nop) Close() error { return nil }

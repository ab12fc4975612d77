// Package blobstore defines the capability interface the chunker and the
// orchestrator use to read and delete a document's source blob. The object
// store itself is an opaque external collaborator; this package only
// states the contract the pipeline depends on.
package blobstore

import "context"

// Store reads per-page text out of a blob and deletes it once a document's
// run completes successfully.
type Store interface {
	// DownloadPages returns the document's text, one entry per page, after
	// PDF extraction — itself a pure function external to this package.
	DownloadPages(ctx context.Context, bucket, key string) ([]string, error)

	// Delete removes the blob. Called only after a successful terminal
	// commit.
	Delete(ctx context.Context, bucket, key string) error
}

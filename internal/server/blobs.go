package server

import (
	"context"
	"io"
)

// ObjectRef identifies a blob stored remotely: a durable URL clients can
// fetch plus the opaque key the store knows it by.
type ObjectRef struct {
	URL       string
	StorageID string
}

// BlobStore uploads binary payloads to a remote object store. The call is
// synchronous; a returned ObjectRef means the object exists in the store.
type BlobStore interface {
	Upload(ctx context.Context, body io.Reader, size int64, contentType string) (ObjectRef, error)
}

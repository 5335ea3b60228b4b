package storage

import "io"

type BlobInfo struct {
	Name        string
	ContentType string
	Size        int64
}

// Store holds acquired video bytes for the lifetime of a session.
// Blobs are released explicitly when the asset that owns them is
// replaced or discarded.
type Store interface {
	Save(r io.Reader, info BlobInfo) (string, error)
	Open(id string) (io.ReadSeekCloser, error)
	Bytes(id string) ([]byte, error)
	Delete(id string) error
}

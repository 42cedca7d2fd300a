package object

import (
	"context"
	"io"
)

// ObjectStore defines the contract for saving and retrieving binary objects. Save places the
// object under a namespace (a document id) with a generated name; SaveWithKey writes derived
// objects such as extracted text at a caller-chosen key.
type ObjectStore interface {
	Save(ctx context.Context, namespace string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

package media

import "context"

// UploadOptions control how an asset is stored on the media host.
type UploadOptions struct {
	Folder   string
	Filename string
	Format   string
	Raw      bool
}

// Client stores binary files on a cloud media host and returns durable
// public URLs. Destroy removes an asset by the public ID recovered from
// its delivery URL (see PublicID).
type Client interface {
	Upload(ctx context.Context, path string, opts UploadOptions) (string, error)
	Destroy(ctx context.Context, publicID string, raw bool) error
}

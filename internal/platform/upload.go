package platform

import (
	"context"
	"io"
	"sync/atomic"

	"immo-workers/internal/common/errors"
)

// FileUpload allows a single upload in flight. A second call made while one
// is running fails with UPLOAD_IN_PROGRESS instead of queueing.
type FileUpload struct {
	uploader  Uploader
	uploading atomic.Bool
}

func NewFileUpload(uploader Uploader) *FileUpload {
	return &FileUpload{uploader: uploader}
}

func (u *FileUpload) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	if !u.uploading.CompareAndSwap(false, true) {
		return "", errors.NewUploadInProgressError()
	}
	defer u.uploading.Store(false)

	return u.uploader.UploadFile(ctx, name, r)
}

// Uploading reports whether an upload is currently running.
func (u *FileUpload) Uploading() bool {
	return u.uploading.Load()
}

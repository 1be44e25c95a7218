// Package fileuploader runs storage uploads on a bounded worker pool so
// concurrent generations cannot overwhelm the storage backend.
package fileuploader

import (
	"context"
	"encoding/hex"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/services/filestorage"
	"github.com/gammazero/workerpool"
	"lukechampine.com/blake3"
)

// Result is delivered on the response channel once an upload finishes.
type Result struct {
	URL string
	Err error
}

type Uploader struct {
	wp      *workerpool.WorkerPool
	storage filestorage.Storage
}

func NewUploader(storage filestorage.Storage, maxWorkers int) *Uploader {
	return &Uploader{
		wp:      workerpool.New(maxWorkers),
		storage: storage,
	}
}

func (u *Uploader) Stop() {
	u.wp.StopWait()
}

// UploadResult schedules the final image upload and reports on the channel.
func (u *Uploader) UploadResult(ctx context.Context, buffer []byte, generationID string, response chan Result) {
	u.wp.Submit(func() {
		url, err := u.storage.UploadResult(ctx, buffer, generationID)
		response <- Result{URL: url, Err: err}
	})
}

// UploadSelfie schedules a selfie upload and reports on the channel.
func (u *Uploader) UploadSelfie(ctx context.Context, encoded string, generationID string, response chan Result) {
	u.wp.Submit(func() {
		url, err := u.storage.UploadSelfie(ctx, encoded, generationID)
		response <- Result{URL: url, Err: err}
	})
}

// UploadReference stores an operator-provided buffer under a content-hash
// name, so re-uploading the same image is a no-op at the storage layer.
func (u *Uploader) UploadReference(ctx context.Context, buffer []byte, extension string, response chan Result) {
	sum := blake3.Sum256(buffer)
	name := hex.EncodeToString(sum[:]) + extension

	u.wp.Submit(func() {
		url, err := u.storage.UploadReference(ctx, buffer, name)
		response <- Result{URL: url, Err: err}
	})
}

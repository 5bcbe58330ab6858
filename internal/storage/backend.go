// Package storage defines the data-path contract: byte-level persistence of
// object contents, content-addressed by (bucket, key, versionId), with
// incremental MD5 ETag computation and atomic temp-file-then-rename writes.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrIncompleteBody is returned by WriteStream when declaredSize was given
// and fewer bytes arrived before the source was exhausted.
var ErrIncompleteBody = errors.New("storage: incomplete body")

// ErrNotFound is returned by ReadStream/Head for a missing (bucket,key,
// versionId) triple.
var ErrNotFound = errors.New("storage: not found")

// ErrInvalidRange is returned by ReadStream when start exceeds size-1.
var ErrInvalidRange = errors.New("storage: invalid range")

// NoDeclaredSize signals writeStream that the source is a lazy stream of
// unknown length.
const NoDeclaredSize int64 = -1

// Range is an inclusive, already-resolved byte range: the orchestrator
// resolves open-ended and suffix ranges against the version's size before
// calling ReadStream (§4.A contract note).
type Range struct {
	Start int64
	End   int64
}

// PartRef addresses one staged multipart part for Concatenate.
type PartRef struct {
	UploadID   string
	PartNumber int
}

// Backend is the data-path storage contract (§4.A).
type Backend interface {
	// WriteStream streams source to content-addressed storage for
	// (bucket,key,versionId), computing MD5 incrementally. If declaredSize
	// is NoDeclaredSize the source is read to EOF; otherwise fewer bytes
	// than declaredSize is ErrIncompleteBody. Writes via temp file + atomic
	// rename; the temp file is removed on any error.
	WriteStream(ctx context.Context, bucket, key, versionID string, source io.Reader, declaredSize int64) (actualSize int64, etag string, err error)

	// ReadStream returns the object's total size and a lazy byte stream,
	// optionally limited to rng (already resolved, inclusive).
	ReadStream(ctx context.Context, bucket, key, versionID string, rng *Range) (size int64, body io.ReadCloser, err error)

	// Delete removes the object body. Idempotent: absent files are success.
	Delete(ctx context.Context, bucket, key, versionID string) error

	// Head returns size/etag without streaming the body.
	Head(ctx context.Context, bucket, key, versionID string) (size int64, etag string, err error)

	// StagePart writes one multipart part's bytes under the given
	// uploadId/partNumber, returning its size and MD5-hex etag.
	StagePart(ctx context.Context, uploadID string, partNumber int, source io.Reader, declaredSize int64) (size int64, etag string, err error)

	// UploadPartCopy copies bytes from an existing object version into a
	// staged part (server-side copy variant of StagePart).
	UploadPartCopy(ctx context.Context, uploadID string, partNumber int, srcBucket, srcKey, srcVersionID string, rng *Range) (size int64, etag string, err error)

	// DeleteStagedParts discards all staged parts for an uploadId.
	DeleteStagedParts(ctx context.Context, uploadID string) error

	// Concatenate materializes parts, in order, into (bucket,key,
	// versionId); the returned etag is hex(MD5(concat(partMD5s)))+"-N".
	Concatenate(ctx context.Context, bucket, key, versionID string, parts []PartRef) (size int64, etag string, err error)

	// CreateBucket/DeleteBucket manage the on-disk directory
	// layout backing a bucket; bucket *existence* as an S3 concept is
	// tracked by the metadata index, this is purely directory bookkeeping.
	CreateBucket(ctx context.Context, bucket string) error
	DeleteBucket(ctx context.Context, bucket string) error

	Close() error
}

// Package multipart implements the multipart upload coordinator (§4.C): part
// staging, completion (streaming concatenation + real ETag), and abort.
// Staging state (which parts are staged, their etags/sizes) lives in a
// dedicated bbolt database, a distinct embedded-db concern from the durable
// pebble metadata index that tracks the upload record itself.
package multipart

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/openendpoint/openendpoint/internal/metadata"
	"github.com/openendpoint/openendpoint/internal/storage"
	"github.com/openendpoint/openendpoint/internal/syncutil"
)

// ErrUploadNotFound is returned for an unknown/expired uploadId.
var ErrUploadNotFound = errors.New("multipart: upload not found")

// ErrInvalidPart is returned by Complete when the client's part list does
// not match what was actually staged (missing part, etag mismatch, or
// non-ascending part numbers).
var ErrInvalidPart = errors.New("multipart: invalid part list")

const nullVersionID = "null"

// partRecord is the bbolt-stored bookkeeping row for one staged part.
type partRecord struct {
	PartNumber int
	ETag       string
	Size       int64
	StagedAt   int64
}

// Result mirrors engine.ObjectResult for a completed multipart upload.
type Result struct {
	ETag         string
	Size         int64
	VersionID    string
	LastModified int64
}

// Coordinator owns the multipart staging lifecycle.
type Coordinator struct {
	staging  *bbolt.DB
	backend  storage.Backend
	store    metadata.Store
	logger   *zap.SugaredLogger
	locker   *syncutil.Locker
}

// New opens (creating if absent) the staging database at dbPath.
func New(dbPath string, backend storage.Backend, store metadata.Store, logger *zap.SugaredLogger) (*Coordinator, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open multipart staging db: %w", err)
	}
	return &Coordinator{
		staging: db,
		backend: backend,
		store:   store,
		logger:  logger,
		locker:  syncutil.NewLocker(),
	}, nil
}

func (c *Coordinator) Close() error {
	return c.staging.Close()
}

func partKeyBytes(partNumber int) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(partNumber))
	return b
}

func encodeRecord(r partRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (partRecord, error) {
	var r partRecord
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&r)
	return r, err
}

// Initiate creates a new multipart upload and its staging bucket.
func (c *Coordinator) Initiate(ctx context.Context, bucket, key, owner string, userMeta map[string]string, contentType string) (string, error) {
	uploadID := uuid.New().String()

	if err := c.store.CreateMultipartUpload(ctx, bucket, key, uploadID, owner, userMeta, contentType); err != nil {
		return "", fmt.Errorf("failed to create multipart upload: %w", err)
	}

	err := c.staging.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(uploadID))
		return err
	})
	if err != nil {
		_ = c.store.DeleteMultipartUpload(ctx, bucket, key, uploadID)
		return "", fmt.Errorf("failed to create staging bucket: %w", err)
	}

	return uploadID, nil
}

// UploadPart stages one part's bytes and records its etag/size.
func (c *Coordinator) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int, source io.Reader, declaredSize int64) (string, error) {
	unlock := c.locker.Lock(uploadID)
	defer unlock()

	if _, err := c.store.GetMultipartUpload(ctx, bucket, key, uploadID); err != nil {
		return "", ErrUploadNotFound
	}

	size, etag, err := c.backend.StagePart(ctx, uploadID, partNumber, source, declaredSize)
	if err != nil {
		return "", fmt.Errorf("failed to stage part: %w", err)
	}

	rec := partRecord{PartNumber: partNumber, ETag: etag, Size: size, StagedAt: time.Now().Unix()}
	encoded, err := encodeRecord(rec)
	if err != nil {
		return "", fmt.Errorf("failed to encode part record: %w", err)
	}

	err = c.staging.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(uploadID))
		if b == nil {
			return ErrUploadNotFound
		}
		return b.Put(partKeyBytes(partNumber), encoded)
	})
	if err != nil {
		return "", fmt.Errorf("failed to record staged part: %w", err)
	}

	return etag, nil
}

// UploadPartCopy stages a part whose bytes are copied from an existing
// object version rather than the request body.
func (c *Coordinator) UploadPartCopy(ctx context.Context, bucket, key, uploadID string, partNumber int, srcBucket, srcKey, srcVersionID string, rng *storage.Range) (string, error) {
	unlock := c.locker.Lock(uploadID)
	defer unlock()

	if _, err := c.store.GetMultipartUpload(ctx, bucket, key, uploadID); err != nil {
		return "", ErrUploadNotFound
	}

	size, etag, err := c.backend.UploadPartCopy(ctx, uploadID, partNumber, srcBucket, srcKey, srcVersionID, rng)
	if err != nil {
		return "", fmt.Errorf("failed to copy part: %w", err)
	}

	rec := partRecord{PartNumber: partNumber, ETag: etag, Size: size, StagedAt: time.Now().Unix()}
	encoded, err := encodeRecord(rec)
	if err != nil {
		return "", fmt.Errorf("failed to encode part record: %w", err)
	}

	err = c.staging.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(uploadID))
		if b == nil {
			return ErrUploadNotFound
		}
		return b.Put(partKeyBytes(partNumber), encoded)
	})
	if err != nil {
		return "", fmt.Errorf("failed to record staged part: %w", err)
	}

	return etag, nil
}

// ListParts returns the staged parts in ascending partNumber order.
func (c *Coordinator) ListParts(uploadID string) ([]metadata.PartInfo, error) {
	var parts []metadata.PartInfo
	err := c.staging.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(uploadID))
		if b == nil {
			return ErrUploadNotFound
		}
		return b.ForEach(func(k, v []byte) error {
			rec, err := decodeRecord(v)
			if err != nil {
				return err
			}
			parts = append(parts, metadata.PartInfo{PartNumber: rec.PartNumber, ETag: rec.ETag})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })
	return parts, nil
}

// Complete validates the client's part list against what was actually
// staged, concatenates the parts in order, and installs the result as a new
// object version. On any failure prior to the final metadata commit, no
// staging state or object data is touched.
func (c *Coordinator) Complete(ctx context.Context, bucket, key, uploadID string, clientParts []metadata.PartInfo) (*Result, error) {
	objUnlock := c.locker.Lock(bucket + "/" + key)
	defer objUnlock()
	uploadUnlock := c.locker.Lock(uploadID)
	defer uploadUnlock()

	upload, err := c.store.GetMultipartUpload(ctx, bucket, key, uploadID)
	if err != nil {
		return nil, ErrUploadNotFound
	}

	staged := make(map[int]partRecord)
	err = c.staging.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(uploadID))
		if b == nil {
			return ErrUploadNotFound
		}
		return b.ForEach(func(k, v []byte) error {
			rec, err := decodeRecord(v)
			if err != nil {
				return err
			}
			staged[rec.PartNumber] = rec
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if len(clientParts) == 0 {
		return nil, ErrInvalidPart
	}

	refs := make([]storage.PartRef, 0, len(clientParts))
	lastPartNumber := 0
	for _, cp := range clientParts {
		if cp.PartNumber <= lastPartNumber {
			return nil, ErrInvalidPart
		}
		lastPartNumber = cp.PartNumber

		rec, ok := staged[cp.PartNumber]
		if !ok || rec.ETag != cp.ETag {
			return nil, ErrInvalidPart
		}
		refs = append(refs, storage.PartRef{UploadID: uploadID, PartNumber: cp.PartNumber})
	}

	versioned := false
	if v, err := c.store.GetBucketVersioning(ctx, bucket); err == nil {
		versioned = v.Status == "Enabled"
	}
	versionID := nullVersionID
	if versioned {
		versionID = uuid.New().String()
	}

	size, etag, err := c.backend.Concatenate(ctx, bucket, key, versionID, refs)
	if err != nil {
		return nil, fmt.Errorf("failed to concatenate parts: %w", err)
	}

	now := time.Now().Unix()
	v := &metadata.ObjectVersion{
		Bucket:       bucket,
		Key:          key,
		VersionID:    versionID,
		Size:         size,
		ETag:         etag,
		ContentType:  upload.ContentType,
		Metadata:     upload.Metadata,
		Owner:        upload.Owner,
		LastModified: now,
	}
	if err := c.store.InsertVersion(ctx, bucket, key, v, !versioned); err != nil {
		if delErr := c.backend.Delete(ctx, bucket, key, versionID); delErr != nil {
			c.logger.Errorw("failed to roll back completed multipart object", "bucket", bucket, "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to save object metadata: %w", err)
	}

	if err := c.backend.DeleteStagedParts(ctx, uploadID); err != nil {
		c.logger.Warnw("failed to delete staged parts after complete", "upload_id", uploadID, "error", err)
	}
	if err := c.staging.Update(func(tx *bbolt.Tx) error { return tx.DeleteBucket([]byte(uploadID)) }); err != nil {
		c.logger.Warnw("failed to delete staging bucket after complete", "upload_id", uploadID, "error", err)
	}
	if err := c.store.DeleteMultipartUpload(ctx, bucket, key, uploadID); err != nil {
		c.logger.Warnw("failed to delete multipart upload record", "upload_id", uploadID, "error", err)
	}

	return &Result{ETag: etag, Size: size, VersionID: versionID, LastModified: now}, nil
}

// Abort discards all staged parts and the upload record.
func (c *Coordinator) Abort(ctx context.Context, bucket, key, uploadID string) error {
	unlock := c.locker.Lock(uploadID)
	defer unlock()

	if err := c.backend.DeleteStagedParts(ctx, uploadID); err != nil {
		c.logger.Warnw("failed to delete staged parts on abort", "upload_id", uploadID, "error", err)
	}
	if err := c.staging.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(uploadID)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(uploadID))
	}); err != nil {
		c.logger.Warnw("failed to delete staging bucket on abort", "upload_id", uploadID, "error", err)
	}

	return c.store.DeleteMultipartUpload(ctx, bucket, key, uploadID)
}

// ListUploads lists in-progress multipart uploads for a bucket/prefix.
func (c *Coordinator) ListUploads(ctx context.Context, bucket, prefix string) ([]metadata.MultipartUploadMetadata, error) {
	return c.store.ListMultipartUploads(ctx, bucket, prefix)
}

// Package engine orchestrates the object and bucket lifecycle operations
// (§4.A/§4.B of the request path) on top of the storage and metadata
// contracts. Multipart upload coordination lives in internal/multipart;
// access control lives in internal/access.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openendpoint/openendpoint/internal/events"
	"github.com/openendpoint/openendpoint/internal/metadata"
	"github.com/openendpoint/openendpoint/internal/multipart"
	"github.com/openendpoint/openendpoint/internal/storage"
	"github.com/openendpoint/openendpoint/internal/telemetry"
)

// PartInfo is a client-supplied part reference for CompleteMultipartUpload,
// aliased so router handlers and the multipart coordinator share one type.
type PartInfo = metadata.PartInfo

// ErrIsDeleteMarker is returned by GetObject/HeadObject when the resolved
// version is a delete marker.
var ErrIsDeleteMarker = errors.New("engine: object is a delete marker")

// ErrBucketNotEmpty is returned by DeleteBucket.
var ErrBucketNotEmpty = errors.New("engine: bucket not empty")

// nullVersionID is the version id used for objects in a bucket that has
// never had versioning enabled (or has it suspended).
const nullVersionID = "null"

// ObjectService provides the core object and bucket operations.
type ObjectService struct {
	storage   storage.Backend
	metadata  metadata.Store
	logger    *zap.SugaredLogger
	locker    *Locker
	multipart *multipart.Coordinator
	events    *events.EventNotifier
}

// New creates a new ObjectService.
func New(backend storage.Backend, store metadata.Store, logger *zap.SugaredLogger) *ObjectService {
	return &ObjectService{
		storage:  backend,
		metadata: store,
		logger:   logger,
		locker:   NewLocker(),
	}
}

// SetMultipartCoordinator wires the multipart upload coordinator (§4.C) used
// by CreateMultipartUpload/UploadPart/CompleteMultipartUpload/Abort/List*.
// Separate from New because the coordinator opens its own bbolt staging
// database and needs the storage backend and metadata store already built.
func (s *ObjectService) SetMultipartCoordinator(c *multipart.Coordinator) {
	s.multipart = c
}

// SetEventNotifier wires the notification-event fan-out (§4.E event
// emission) used by PutObject/CopyObject/CompleteMultipartUpload/
// DeleteObject. Shared with internal/mgmt's websocket subscriber endpoint
// so both sides observe the same in-memory channel set.
func (s *ObjectService) SetEventNotifier(n *events.EventNotifier) {
	s.events = n
}

// EventNotifier returns the wired notifier, or nil if none was set.
func (s *ObjectService) EventNotifier() *events.EventNotifier {
	return s.events
}

// emitEvent publishes an S3-style notification event if a notifier is
// wired; a no-op otherwise, since event notification is optional ambient
// infrastructure rather than a required side effect of any write.
func (s *ObjectService) emitEvent(eventName, bucket, key, etag string, size int64) {
	if s.events == nil {
		return
	}
	s.events.Notify(bucket, events.CreateEvent(eventName, bucket, key, etag, size))
}

// Close releases the underlying storage and metadata resources.
func (s *ObjectService) Close() error {
	var firstErr error
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			firstErr = err
		}
	}
	if s.metadata != nil {
		if err := s.metadata.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PutObjectOptions carries the per-request metadata for PutObject/CopyObject.
type PutObjectOptions struct {
	ContentType  string
	Metadata     map[string]string
	StorageClass string
	Owner        string
}

// ObjectResult is the outcome of a write (Put/Copy/multipart Complete).
type ObjectResult struct {
	ETag         string
	Size         int64
	VersionID    string
	LastModified int64
}

// isVersioningEnabled resolves the bucket's effective versioning mode.
func (s *ObjectService) isVersioningEnabled(ctx context.Context, bucket string) (bool, error) {
	v, err := s.metadata.GetBucketVersioning(ctx, bucket)
	if err != nil {
		return false, err
	}
	return v.Status == "Enabled", nil
}

// PutObject streams data into (bucket,key), assigning a new versionId when
// versioning is enabled or overwriting the sentinel "null" version otherwise.
// declaredSize may be storage.NoDeclaredSize for chunked/unknown-length
// sources; data is never buffered fully in memory.
func (s *ObjectService) PutObject(ctx context.Context, bucket, key string, data io.Reader, declaredSize int64, opts PutObjectOptions) (*ObjectResult, error) {
	unlock := s.locker.Lock(objectLockID(bucket, key))
	defer unlock()

	if _, err := s.metadata.GetBucket(ctx, bucket); err != nil {
		return nil, fmt.Errorf("bucket not found: %w", err)
	}

	versioned, err := s.isVersioningEnabled(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bucket versioning: %w", err)
	}

	versionID := nullVersionID
	if versioned {
		versionID = uuid.New().String()
	}

	size, etag, err := s.storage.WriteStream(ctx, bucket, key, versionID, data, declaredSize)
	if err != nil {
		return nil, fmt.Errorf("failed to write object body: %w", err)
	}

	now := time.Now().Unix()
	v := &metadata.ObjectVersion{
		Bucket:       bucket,
		Key:          key,
		VersionID:    versionID,
		Size:         size,
		ETag:         etag,
		ContentType:  opts.ContentType,
		Metadata:     opts.Metadata,
		Owner:        opts.Owner,
		StorageClass: opts.StorageClass,
		LastModified: now,
	}

	if err := s.metadata.InsertVersion(ctx, bucket, key, v, !versioned); err != nil {
		// roll back the body we just wrote — nothing should be left behind
		// on a metadata commit failure.
		if delErr := s.storage.Delete(ctx, bucket, key, versionID); delErr != nil {
			s.logger.Errorw("failed to roll back object body after metadata failure", "bucket", bucket, "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to save object metadata: %w", err)
	}

	telemetry.IncStorageBytes(size)
	telemetry.IncBucketObjects(bucket)
	telemetry.OperationsTotal.WithLabelValues("PutObject", "success").Inc()
	s.emitEvent(string(events.EventObjectUploaded), bucket, key, etag, size)

	return &ObjectResult{ETag: etag, Size: size, VersionID: versionID, LastModified: now}, nil
}

// CopyObject copies srcBucket/srcKey(srcVersionID) to dstBucket/dstKey,
// streaming the body without buffering the whole object in memory.
func (s *ObjectService) CopyObject(ctx context.Context, srcBucket, srcKey, srcVersionID, dstBucket, dstKey string, opts PutObjectOptions) (*ObjectResult, error) {
	unlock := s.locker.Lock(objectLockID(dstBucket, dstKey))
	defer unlock()

	if _, err := s.metadata.GetBucket(ctx, srcBucket); err != nil {
		return nil, fmt.Errorf("source bucket not found: %w", err)
	}
	if _, err := s.metadata.GetBucket(ctx, dstBucket); err != nil {
		return nil, fmt.Errorf("destination bucket not found: %w", err)
	}

	srcMeta, err := s.metadata.GetVersion(ctx, srcBucket, srcKey, srcVersionID)
	if err != nil {
		return nil, fmt.Errorf("source object not found: %w", err)
	}
	if srcMeta.IsDeleteMarker {
		return nil, ErrIsDeleteMarker
	}

	_, body, err := s.storage.ReadStream(ctx, srcBucket, srcKey, srcMeta.VersionID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read source object: %w", err)
	}
	defer body.Close()

	versioned, err := s.isVersioningEnabled(ctx, dstBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bucket versioning: %w", err)
	}
	versionID := nullVersionID
	if versioned {
		versionID = uuid.New().String()
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = srcMeta.ContentType
	}
	userMeta := opts.Metadata
	if userMeta == nil {
		userMeta = srcMeta.Metadata
	}

	size, etag, err := s.storage.WriteStream(ctx, dstBucket, dstKey, versionID, body, srcMeta.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to write destination object: %w", err)
	}

	now := time.Now().Unix()
	dstMeta := &metadata.ObjectVersion{
		Bucket:       dstBucket,
		Key:          dstKey,
		VersionID:    versionID,
		Size:         size,
		ETag:         etag,
		ContentType:  contentType,
		Metadata:     userMeta,
		Owner:        opts.Owner,
		StorageClass: opts.StorageClass,
		LastModified: now,
	}
	if err := s.metadata.InsertVersion(ctx, dstBucket, dstKey, dstMeta, !versioned); err != nil {
		if delErr := s.storage.Delete(ctx, dstBucket, dstKey, versionID); delErr != nil {
			s.logger.Errorw("failed to roll back copy destination", "bucket", dstBucket, "key", dstKey, "error", delErr)
		}
		return nil, fmt.Errorf("failed to save copy metadata: %w", err)
	}

	s.emitEvent(string(events.EventObjectCopied), dstBucket, dstKey, etag, size)

	return &ObjectResult{ETag: etag, Size: size, VersionID: versionID, LastModified: now}, nil
}

// GetObjectOptions carries the version/range selection for GetObject.
type GetObjectOptions struct {
	VersionID string
	Range     *storage.Range
}

// GetObjectResult is the streamed outcome of GetObject.
type GetObjectResult struct {
	Body         io.ReadCloser
	Size         int64
	ETag         string
	ContentType  string
	Metadata     map[string]string
	LastModified int64
	VersionID    string
	StorageClass string
}

// GetObject retrieves an object body and metadata. Range, if present, must
// already be resolved to inclusive absolute bounds by the caller.
func (s *ObjectService) GetObject(ctx context.Context, bucket, key string, opts GetObjectOptions) (*GetObjectResult, error) {
	unlock := s.locker.RLock(objectLockID(bucket, key))
	defer unlock()

	if _, err := s.metadata.GetBucket(ctx, bucket); err != nil {
		return nil, fmt.Errorf("bucket not found: %w", err)
	}

	v, err := s.metadata.GetVersion(ctx, bucket, key, opts.VersionID)
	if err != nil {
		return nil, fmt.Errorf("object not found: %w", err)
	}
	if v.IsDeleteMarker {
		return nil, ErrIsDeleteMarker
	}

	size, body, err := s.storage.ReadStream(ctx, bucket, key, v.VersionID, opts.Range)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}

	telemetry.OperationsTotal.WithLabelValues("GetObject", "success").Inc()

	return &GetObjectResult{
		Body:         body,
		Size:         size,
		ETag:         v.ETag,
		ContentType:  v.ContentType,
		Metadata:     v.Metadata,
		LastModified: v.LastModified,
		VersionID:    v.VersionID,
		StorageClass: v.StorageClass,
	}, nil
}

// ObjectInfo is the no-body projection of an object version (HeadObject).
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	Metadata     map[string]string
	StorageClass string
	LastModified int64
	VersionID    string
	IsLatest     bool
}

// HeadObject returns object metadata without reading the body.
func (s *ObjectService) HeadObject(ctx context.Context, bucket, key, versionID string) (*ObjectInfo, error) {
	unlock := s.locker.RLock(objectLockID(bucket, key))
	defer unlock()

	if _, err := s.metadata.GetBucket(ctx, bucket); err != nil {
		return nil, fmt.Errorf("bucket not found: %w", err)
	}
	v, err := s.metadata.GetVersion(ctx, bucket, key, versionID)
	if err != nil {
		return nil, fmt.Errorf("object not found: %w", err)
	}
	if v.IsDeleteMarker {
		return nil, ErrIsDeleteMarker
	}

	telemetry.OperationsTotal.WithLabelValues("HeadObject", "success").Inc()

	return &ObjectInfo{
		Key:          key,
		Size:         v.Size,
		ETag:         v.ETag,
		ContentType:  v.ContentType,
		Metadata:     v.Metadata,
		StorageClass: v.StorageClass,
		LastModified: v.LastModified,
		VersionID:    v.VersionID,
		IsLatest:     v.IsLatest,
	}, nil
}

// ObjectAttributes is the result of GetObjectAttributes.
type ObjectAttributes struct {
	ETag         string
	Size         int64
	LastModified int64
	VersionID    string
	StorageClass string
}

// GetObjectAttributes returns selected attributes of an object version.
func (s *ObjectService) GetObjectAttributes(ctx context.Context, bucket, key, versionID string) (*ObjectAttributes, error) {
	if _, err := s.metadata.GetBucket(ctx, bucket); err != nil {
		return nil, fmt.Errorf("bucket not found: %w", err)
	}
	v, err := s.metadata.GetVersion(ctx, bucket, key, versionID)
	if err != nil {
		return nil, fmt.Errorf("object not found: %w", err)
	}
	return &ObjectAttributes{
		ETag:         v.ETag,
		Size:         v.Size,
		LastModified: v.LastModified,
		VersionID:    v.VersionID,
		StorageClass: v.StorageClass,
	}, nil
}

// DeleteObjectOptions carries the version selection for DeleteObject.
type DeleteObjectOptions struct {
	VersionID string
}

// DeleteObjectResult reports what the delete actually did, so the
// orchestrator can set x-amz-delete-marker and x-amz-version-id correctly.
type DeleteObjectResult struct {
	VersionID      string
	DeleteMarker   bool
}

// DeleteObject deletes an object. With no versionId on a versioned bucket
// this inserts a delete marker; an explicit versionId (or any delete on an
// unversioned bucket) physically removes that version's row and bytes.
func (s *ObjectService) DeleteObject(ctx context.Context, bucket, key string, opts DeleteObjectOptions) (*DeleteObjectResult, error) {
	unlock := s.locker.Lock(objectLockID(bucket, key))
	defer unlock()

	if _, err := s.metadata.GetBucket(ctx, bucket); err != nil {
		return nil, fmt.Errorf("bucket not found: %w", err)
	}

	if opts.VersionID == "" {
		versioned, err := s.isVersioningEnabled(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve bucket versioning: %w", err)
		}
		if versioned {
			marker := &metadata.ObjectVersion{
				Bucket:    bucket,
				Key:       key,
				VersionID: uuid.New().String(),
			}
			if err := s.metadata.MarkDelete(ctx, bucket, key, marker); err != nil {
				return nil, fmt.Errorf("failed to insert delete marker: %w", err)
			}
			telemetry.OperationsTotal.WithLabelValues("DeleteObject", "success").Inc()
			s.emitEvent(string(events.EventObjectRemoved), bucket, key, "", 0)
			return &DeleteObjectResult{VersionID: marker.VersionID, DeleteMarker: true}, nil
		}
		opts.VersionID = nullVersionID
	}

	removedVersionID, wasDeleteMarker, err := s.metadata.RemoveVersion(ctx, bucket, key, opts.VersionID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove object version: %w", err)
	}
	if !wasDeleteMarker {
		if err := s.storage.Delete(ctx, bucket, key, removedVersionID); err != nil {
			s.logger.Warnw("failed to delete object body", "bucket", bucket, "key", key, "version_id", removedVersionID, "error", err)
		}
		telemetry.DecBucketObjects(bucket)
	}

	telemetry.OperationsTotal.WithLabelValues("DeleteObject", "success").Inc()
	s.emitEvent(string(events.EventObjectRemoved), bucket, key, "", 0)
	return &DeleteObjectResult{VersionID: removedVersionID, DeleteMarker: wasDeleteMarker}, nil
}

// ListObjectsOptions mirrors metadata.ListOptions for the ListObjects entry
// point (unversioned listing, "latest" rows only).
type ListObjectsOptions struct {
	Prefix    string
	Delimiter string
	MaxKeys   int
	Marker    string
}

// ListObjectsResult is the ListObjects/ListObjectVersions projection.
type ListObjectsResult struct {
	Objects        []ObjectInfo
	CommonPrefixes []string
	IsTruncated    bool
	NextMarker     string
	NextVersionID  string
}

// ListObjects lists the latest version of every key matching prefix/delimiter.
func (s *ObjectService) ListObjects(ctx context.Context, bucket string, opts ListObjectsOptions) (*ListObjectsResult, error) {
	if _, err := s.metadata.GetBucket(ctx, bucket); err != nil {
		return nil, fmt.Errorf("bucket not found: %w", err)
	}

	result, err := s.metadata.ListObjects(ctx, bucket, metadata.ListOptions{
		Prefix:    opts.Prefix,
		Delimiter: opts.Delimiter,
		MaxKeys:   opts.MaxKeys,
		Marker:    opts.Marker,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	telemetry.OperationsTotal.WithLabelValues("ListObjects", "success").Inc()
	return convertListResult(result), nil
}

// ListObjectVersions lists every version (including delete markers) matching
// prefix/delimiter, ordered by (key, versionId).
func (s *ObjectService) ListObjectVersions(ctx context.Context, bucket string, opts ListObjectsOptions, versionIDMarker string) (*ListObjectsResult, error) {
	if _, err := s.metadata.GetBucket(ctx, bucket); err != nil {
		return nil, fmt.Errorf("bucket not found: %w", err)
	}

	result, err := s.metadata.ListVersions(ctx, bucket, metadata.ListOptions{
		Prefix:          opts.Prefix,
		Delimiter:       opts.Delimiter,
		MaxKeys:         opts.MaxKeys,
		Marker:          opts.Marker,
		VersionIDMarker: versionIDMarker,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list object versions: %w", err)
	}

	telemetry.OperationsTotal.WithLabelValues("ListObjectVersions", "success").Inc()
	return convertListResult(result), nil
}

func convertListResult(result *metadata.ListResult) *ListObjectsResult {
	objects := make([]ObjectInfo, 0, len(result.Versions))
	for _, v := range result.Versions {
		objects = append(objects, ObjectInfo{
			Key:          v.Key,
			Size:         v.Size,
			ETag:         v.ETag,
			ContentType:  v.ContentType,
			Metadata:     v.Metadata,
			StorageClass: v.StorageClass,
			LastModified: v.LastModified,
			VersionID:    v.VersionID,
			IsLatest:     v.IsLatest,
		})
	}
	return &ListObjectsResult{
		Objects:        objects,
		CommonPrefixes: result.CommonPrefixes,
		IsTruncated:    result.IsTruncated,
		NextMarker:     result.NextMarker,
		NextVersionID:  result.NextVersionID,
	}
}

// BucketInfo is the ListBuckets projection.
type BucketInfo struct {
	Name         string
	CreationDate int64
}

// bucketNamePattern enforces the lowercase/digit/hyphen/period charset; the
// "no adjacent periods" and "not IPv4-looking" checks are separate passes
// below since they are not expressible as a single regexp without being
// unreadable.
var bucketNamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9.-]*[a-z0-9])?$`)

var ipv4LikePattern = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)

// validateBucketName validates bucket name according to S3 conventions (§3):
// 3-63 chars, lowercase/digit/hyphen/period, no adjacent periods, not an
// IPv4 address.
func validateBucketName(name string) error {
	if len(name) < 3 || len(name) > 63 {
		return fmt.Errorf("bucket name must be between 3 and 63 characters")
	}
	if !bucketNamePattern.MatchString(name) {
		return fmt.Errorf("bucket name contains invalid characters")
	}
	if ipv4LikePattern.MatchString(name) {
		return fmt.Errorf("bucket name cannot be formatted as an IP address")
	}
	for i := 0; i+1 < len(name); i++ {
		if name[i] == '.' && name[i+1] == '.' {
			return fmt.Errorf("bucket name cannot contain adjacent periods")
		}
	}
	return nil
}

// CreateBucket creates a new bucket.
func (s *ObjectService) CreateBucket(ctx context.Context, bucket, owner string) error {
	if err := validateBucketName(bucket); err != nil {
		return err
	}
	if err := s.storage.CreateBucket(ctx, bucket); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	if err := s.metadata.CreateBucket(ctx, bucket, owner); err != nil {
		return fmt.Errorf("failed to create bucket metadata: %w", err)
	}
	return nil
}

// DeleteBucket deletes an empty bucket.
func (s *ObjectService) DeleteBucket(ctx context.Context, bucket string) error {
	result, err := s.metadata.ListObjects(ctx, bucket, metadata.ListOptions{MaxKeys: 1})
	if err != nil {
		return fmt.Errorf("failed to list bucket: %w", err)
	}
	if len(result.Versions) > 0 {
		return ErrBucketNotEmpty
	}

	if err := s.storage.DeleteBucket(ctx, bucket); err != nil {
		return fmt.Errorf("failed to delete bucket: %w", err)
	}
	if err := s.metadata.DeleteBucket(ctx, bucket); err != nil {
		s.logger.Warnw("failed to delete bucket metadata", "bucket", bucket, "error", err)
	}
	return nil
}

// ListBuckets lists all buckets.
func (s *ObjectService) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	buckets, err := s.metadata.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	telemetry.SetStorageBuckets(int64(len(buckets)))

	results := make([]BucketInfo, 0, len(buckets))
	for _, b := range buckets {
		results = append(results, BucketInfo{Name: b.Name, CreationDate: b.CreationDate})
	}
	return results, nil
}

// GetBucket retrieves bucket metadata.
func (s *ObjectService) GetBucket(ctx context.Context, bucket string) (*metadata.BucketMetadata, error) {
	return s.metadata.GetBucket(ctx, bucket)
}

// Lifecycle pass-throughs (§3.1).

func (s *ObjectService) PutLifecycleRules(ctx context.Context, bucket string, rules []metadata.LifecycleRule) error {
	return s.metadata.PutLifecycleRules(ctx, bucket, rules)
}

func (s *ObjectService) GetLifecycleRules(ctx context.Context, bucket string) ([]metadata.LifecycleRule, error) {
	return s.metadata.GetLifecycleRules(ctx, bucket)
}

func (s *ObjectService) DeleteLifecycleRules(ctx context.Context, bucket string) error {
	return s.metadata.DeleteLifecycleRules(ctx, bucket)
}

// GetBucketLifecycle/PutBucketLifecycle are aliases of the Get/PutLifecycleRules
// pass-throughs above, named to match the Get/PutBucket* naming the rest of
// the sub-resource handlers use. A nil/empty rule set clears the configuration.
func (s *ObjectService) GetBucketLifecycle(ctx context.Context, bucket string) ([]metadata.LifecycleRule, error) {
	return s.metadata.GetLifecycleRules(ctx, bucket)
}

func (s *ObjectService) PutBucketLifecycle(ctx context.Context, bucket string, rules []metadata.LifecycleRule) error {
	if len(rules) == 0 {
		return s.metadata.DeleteLifecycleRules(ctx, bucket)
	}
	return s.metadata.PutLifecycleRules(ctx, bucket, rules)
}

// HeadBucket confirms a bucket exists, discarding its metadata.
func (s *ObjectService) HeadBucket(ctx context.Context, bucket string) error {
	_, err := s.metadata.GetBucket(ctx, bucket)
	return err
}

// Versioning pass-throughs.

func (s *ObjectService) PutBucketVersioning(ctx context.Context, bucket string, v *metadata.BucketVersioning) error {
	return s.metadata.PutBucketVersioning(ctx, bucket, v)
}

func (s *ObjectService) GetBucketVersioning(ctx context.Context, bucket string) (*metadata.BucketVersioning, error) {
	return s.metadata.GetBucketVersioning(ctx, bucket)
}

// CORS pass-throughs.

func (s *ObjectService) PutBucketCors(ctx context.Context, bucket string, cors *metadata.CORSConfiguration) error {
	if cors == nil {
		return fmt.Errorf("CORS configuration is required")
	}
	return s.metadata.PutBucketCors(ctx, bucket, cors)
}

func (s *ObjectService) GetBucketCors(ctx context.Context, bucket string) (*metadata.CORSConfiguration, error) {
	return s.metadata.GetBucketCors(ctx, bucket)
}

func (s *ObjectService) DeleteBucketCors(ctx context.Context, bucket string) error {
	return s.metadata.DeleteBucketCors(ctx, bucket)
}

// Policy pass-throughs.

func (s *ObjectService) PutBucketPolicy(ctx context.Context, bucket, policy string) error {
	if policy == "" {
		return fmt.Errorf("policy is required")
	}
	return s.metadata.PutBucketPolicy(ctx, bucket, policy)
}

func (s *ObjectService) GetBucketPolicy(ctx context.Context, bucket string) (string, error) {
	return s.metadata.GetBucketPolicy(ctx, bucket)
}

func (s *ObjectService) DeleteBucketPolicy(ctx context.Context, bucket string) error {
	return s.metadata.DeleteBucketPolicy(ctx, bucket)
}

// ACL pass-throughs.

func (s *ObjectService) PutBucketACL(ctx context.Context, bucket string, acl *metadata.AccessControlPolicy) error {
	return s.metadata.PutBucketACL(ctx, bucket, acl)
}

func (s *ObjectService) GetBucketACL(ctx context.Context, bucket string) (*metadata.AccessControlPolicy, error) {
	return s.metadata.GetBucketACL(ctx, bucket)
}

func (s *ObjectService) PutObjectACL(ctx context.Context, bucket, key, versionID string, acl *metadata.AccessControlPolicy) error {
	return s.metadata.PutObjectACL(ctx, bucket, key, versionID, acl)
}

func (s *ObjectService) GetObjectACL(ctx context.Context, bucket, key, versionID string) (*metadata.AccessControlPolicy, error) {
	return s.metadata.GetObjectACL(ctx, bucket, key, versionID)
}

// Tagging pass-throughs.

func (s *ObjectService) PutBucketTags(ctx context.Context, bucket string, tags map[string]string) error {
	return s.metadata.PutBucketTags(ctx, bucket, tags)
}

func (s *ObjectService) GetBucketTags(ctx context.Context, bucket string) (map[string]string, error) {
	return s.metadata.GetBucketTags(ctx, bucket)
}

func (s *ObjectService) DeleteBucketTags(ctx context.Context, bucket string) error {
	return s.metadata.DeleteBucketTags(ctx, bucket)
}

func (s *ObjectService) PutObjectTags(ctx context.Context, bucket, key, versionID string, tags map[string]string) error {
	return s.metadata.PutObjectTags(ctx, bucket, key, versionID, tags)
}

func (s *ObjectService) GetObjectTags(ctx context.Context, bucket, key, versionID string) (map[string]string, error) {
	return s.metadata.GetObjectTags(ctx, bucket, key, versionID)
}

func (s *ObjectService) DeleteObjectTags(ctx context.Context, bucket, key, versionID string) error {
	return s.metadata.DeleteObjectTags(ctx, bucket, key, versionID)
}

// Generic bucket sub-resource config blobs (§3.1): website, logging,
// ownership-controls, public-access-block, accelerate, inventory,
// analytics, metrics, notification, encryption, object-lock, replication,
// vpc, presigned-url. Stored and returned opaquely; no interpretation.

func (s *ObjectService) SetBucketConfig(ctx context.Context, bucket string, kind metadata.BucketConfigKind, blob []byte) error {
	return s.metadata.SetBucketConfig(ctx, bucket, kind, blob)
}

func (s *ObjectService) GetBucketConfig(ctx context.Context, bucket string, kind metadata.BucketConfigKind) ([]byte, error) {
	return s.metadata.GetBucketConfig(ctx, bucket, kind)
}

func (s *ObjectService) DeleteBucketConfig(ctx context.Context, bucket string, kind metadata.BucketConfigKind) error {
	return s.metadata.DeleteBucketConfig(ctx, bucket, kind)
}

// Object Lock retention/legal-hold pass-throughs — stub contracts per
// Non-goals: stored and returned verbatim, never interpreted to block a
// delete.

func (s *ObjectService) PutObjectRetention(ctx context.Context, bucket, key, versionID string, blob []byte) error {
	return s.metadata.PutObjectRetention(ctx, bucket, key, versionID, blob)
}

func (s *ObjectService) GetObjectRetention(ctx context.Context, bucket, key, versionID string) ([]byte, error) {
	return s.metadata.GetObjectRetention(ctx, bucket, key, versionID)
}

func (s *ObjectService) PutObjectLegalHold(ctx context.Context, bucket, key, versionID string, blob []byte) error {
	return s.metadata.PutObjectLegalHold(ctx, bucket, key, versionID, blob)
}

func (s *ObjectService) GetObjectLegalHold(ctx context.Context, bucket, key, versionID string) ([]byte, error) {
	return s.metadata.GetObjectLegalHold(ctx, bucket, key, versionID)
}

// Typed bucket sub-resource accessors, layered over the generic
// SetBucketConfig/GetBucketConfig/DeleteBucketConfig blob contract so the
// request orchestrator can work with the configuration's actual shape
// instead of a raw []byte. Each pair JSON-encodes/decodes one
// metadata.BucketConfigKind blob; List* variants decode a JSON object
// keyed by configuration ID.

func (s *ObjectService) putBucketConfigJSON(ctx context.Context, bucket string, kind metadata.BucketConfigKind, v interface{}) error {
	blob, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s config: %w", kind, err)
	}
	return s.metadata.SetBucketConfig(ctx, bucket, kind, blob)
}

// getBucketConfigJSON decodes the stored blob into v. It returns
// (false, nil) if no configuration has been stored yet, distinguishing
// "never configured" from a decode failure.
func (s *ObjectService) getBucketConfigJSON(ctx context.Context, bucket string, kind metadata.BucketConfigKind, v interface{}) (bool, error) {
	blob, err := s.metadata.GetBucketConfig(ctx, bucket, kind)
	if err != nil {
		return false, nil
	}
	if len(blob) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(blob, v); err != nil {
		return false, fmt.Errorf("decode %s config: %w", kind, err)
	}
	return true, nil
}

func (s *ObjectService) PutBucketEncryption(ctx context.Context, bucket string, config *metadata.BucketEncryption) error {
	return s.putBucketConfigJSON(ctx, bucket, metadata.ConfigEncryption, config)
}

func (s *ObjectService) GetBucketEncryption(ctx context.Context, bucket string) (*metadata.BucketEncryption, error) {
	var config metadata.BucketEncryption
	found, err := s.getBucketConfigJSON(ctx, bucket, metadata.ConfigEncryption, &config)
	if err != nil || !found {
		return nil, err
	}
	return &config, nil
}

func (s *ObjectService) DeleteBucketEncryption(ctx context.Context, bucket string) error {
	return s.metadata.DeleteBucketConfig(ctx, bucket, metadata.ConfigEncryption)
}

func (s *ObjectService) PutReplicationConfig(ctx context.Context, bucket string, config *metadata.ReplicationConfig) error {
	return s.putBucketConfigJSON(ctx, bucket, metadata.ConfigReplication, config)
}

func (s *ObjectService) GetReplicationConfig(ctx context.Context, bucket string) (*metadata.ReplicationConfig, error) {
	var config metadata.ReplicationConfig
	found, err := s.getBucketConfigJSON(ctx, bucket, metadata.ConfigReplication, &config)
	if err != nil || !found {
		return nil, err
	}
	return &config, nil
}

func (s *ObjectService) DeleteReplicationConfig(ctx context.Context, bucket string) error {
	return s.metadata.DeleteBucketConfig(ctx, bucket, metadata.ConfigReplication)
}

func (s *ObjectService) PutObjectLock(ctx context.Context, bucket string, config *metadata.ObjectLockConfig) error {
	return s.putBucketConfigJSON(ctx, bucket, metadata.ConfigObjectLock, config)
}

func (s *ObjectService) GetObjectLock(ctx context.Context, bucket string) (*metadata.ObjectLockConfig, error) {
	var config metadata.ObjectLockConfig
	found, err := s.getBucketConfigJSON(ctx, bucket, metadata.ConfigObjectLock, &config)
	if err != nil || !found {
		return nil, err
	}
	return &config, nil
}

func (s *ObjectService) DeleteObjectLock(ctx context.Context, bucket string) error {
	return s.metadata.DeleteBucketConfig(ctx, bucket, metadata.ConfigObjectLock)
}

func (s *ObjectService) PutPublicAccessBlock(ctx context.Context, bucket string, config *metadata.PublicAccessBlockConfiguration) error {
	return s.putBucketConfigJSON(ctx, bucket, metadata.ConfigPublicAccessBlock, config)
}

func (s *ObjectService) GetPublicAccessBlock(ctx context.Context, bucket string) (*metadata.PublicAccessBlockConfiguration, error) {
	var config metadata.PublicAccessBlockConfiguration
	found, err := s.getBucketConfigJSON(ctx, bucket, metadata.ConfigPublicAccessBlock, &config)
	if err != nil || !found {
		return nil, err
	}
	return &config, nil
}

func (s *ObjectService) DeletePublicAccessBlock(ctx context.Context, bucket string) error {
	return s.metadata.DeleteBucketConfig(ctx, bucket, metadata.ConfigPublicAccessBlock)
}

func (s *ObjectService) PutBucketAccelerate(ctx context.Context, bucket string, config *metadata.BucketAccelerateConfiguration) error {
	return s.putBucketConfigJSON(ctx, bucket, metadata.ConfigAccelerate, config)
}

func (s *ObjectService) GetBucketAccelerate(ctx context.Context, bucket string) (*metadata.BucketAccelerateConfiguration, error) {
	var config metadata.BucketAccelerateConfiguration
	found, err := s.getBucketConfigJSON(ctx, bucket, metadata.ConfigAccelerate, &config)
	if err != nil || !found {
		return nil, err
	}
	return &config, nil
}

func (s *ObjectService) DeleteBucketAccelerate(ctx context.Context, bucket string) error {
	return s.metadata.DeleteBucketConfig(ctx, bucket, metadata.ConfigAccelerate)
}

func (s *ObjectService) PutBucketWebsite(ctx context.Context, bucket string, config *metadata.WebsiteConfiguration) error {
	return s.putBucketConfigJSON(ctx, bucket, metadata.ConfigWebsite, config)
}

func (s *ObjectService) GetBucketWebsite(ctx context.Context, bucket string) (*metadata.WebsiteConfiguration, error) {
	var config metadata.WebsiteConfiguration
	found, err := s.getBucketConfigJSON(ctx, bucket, metadata.ConfigWebsite, &config)
	if err != nil || !found {
		return nil, err
	}
	return &config, nil
}

func (s *ObjectService) DeleteBucketWebsite(ctx context.Context, bucket string) error {
	return s.metadata.DeleteBucketConfig(ctx, bucket, metadata.ConfigWebsite)
}

func (s *ObjectService) PutBucketNotification(ctx context.Context, bucket string, config *metadata.NotificationConfiguration) error {
	return s.putBucketConfigJSON(ctx, bucket, metadata.ConfigNotification, config)
}

func (s *ObjectService) GetBucketNotification(ctx context.Context, bucket string) (*metadata.NotificationConfiguration, error) {
	var config metadata.NotificationConfiguration
	found, err := s.getBucketConfigJSON(ctx, bucket, metadata.ConfigNotification, &config)
	if err != nil || !found {
		return nil, err
	}
	return &config, nil
}

func (s *ObjectService) DeleteBucketNotification(ctx context.Context, bucket string) error {
	return s.metadata.DeleteBucketConfig(ctx, bucket, metadata.ConfigNotification)
}

func (s *ObjectService) PutBucketLogging(ctx context.Context, bucket string, config *metadata.LoggingConfiguration) error {
	return s.putBucketConfigJSON(ctx, bucket, metadata.ConfigLogging, config)
}

func (s *ObjectService) GetBucketLogging(ctx context.Context, bucket string) (*metadata.LoggingConfiguration, error) {
	var config metadata.LoggingConfiguration
	found, err := s.getBucketConfigJSON(ctx, bucket, metadata.ConfigLogging, &config)
	if err != nil || !found {
		return nil, err
	}
	return &config, nil
}

func (s *ObjectService) DeleteBucketLogging(ctx context.Context, bucket string) error {
	return s.metadata.DeleteBucketConfig(ctx, bucket, metadata.ConfigLogging)
}

// GetBucketLocation always answers "" (us-east-1) in this single-region
// deployment. PutBucketLocation is accepted for API compatibility but has
// no effect beyond confirming the bucket exists: S3 itself fixes location
// at creation time and has no mutation for it.
func (s *ObjectService) GetBucketLocation(ctx context.Context, bucket string) (string, error) {
	if _, err := s.metadata.GetBucket(ctx, bucket); err != nil {
		return "", err
	}
	return "", nil
}

func (s *ObjectService) PutBucketLocation(ctx context.Context, bucket, location string) error {
	_, err := s.metadata.GetBucket(ctx, bucket)
	return err
}

func (s *ObjectService) PutBucketOwnershipControls(ctx context.Context, bucket string, config *metadata.OwnershipControls) error {
	return s.putBucketConfigJSON(ctx, bucket, metadata.ConfigOwnershipControls, config)
}

func (s *ObjectService) GetBucketOwnershipControls(ctx context.Context, bucket string) (*metadata.OwnershipControls, error) {
	var config metadata.OwnershipControls
	found, err := s.getBucketConfigJSON(ctx, bucket, metadata.ConfigOwnershipControls, &config)
	if err != nil || !found {
		return nil, err
	}
	return &config, nil
}

func (s *ObjectService) DeleteBucketOwnershipControls(ctx context.Context, bucket string) error {
	return s.metadata.DeleteBucketConfig(ctx, bucket, metadata.ConfigOwnershipControls)
}

// Inventory, analytics, and metrics configurations are keyed by caller-
// supplied ID and a bucket may have several, so each kind's blob holds a
// JSON object of id -> configuration rather than a single value.

func (s *ObjectService) PutBucketInventory(ctx context.Context, bucket, id string, config *metadata.InventoryConfiguration) error {
	set, err := s.loadInventorySet(ctx, bucket)
	if err != nil {
		return err
	}
	set[id] = *config
	return s.putBucketConfigJSON(ctx, bucket, metadata.ConfigInventory, set)
}

func (s *ObjectService) GetBucketInventory(ctx context.Context, bucket, id string) (*metadata.InventoryConfiguration, error) {
	set, err := s.loadInventorySet(ctx, bucket)
	if err != nil {
		return nil, err
	}
	config, ok := set[id]
	if !ok {
		return nil, nil
	}
	return &config, nil
}

func (s *ObjectService) DeleteBucketInventory(ctx context.Context, bucket, id string) error {
	set, err := s.loadInventorySet(ctx, bucket)
	if err != nil {
		return err
	}
	delete(set, id)
	return s.putBucketConfigJSON(ctx, bucket, metadata.ConfigInventory, set)
}

func (s *ObjectService) ListBucketInventory(ctx context.Context, bucket string) ([]metadata.InventoryConfiguration, error) {
	set, err := s.loadInventorySet(ctx, bucket)
	if err != nil {
		return nil, err
	}
	out := make([]metadata.InventoryConfiguration, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out, nil
}

func (s *ObjectService) loadInventorySet(ctx context.Context, bucket string) (map[string]metadata.InventoryConfiguration, error) {
	set := make(map[string]metadata.InventoryConfiguration)
	_, err := s.getBucketConfigJSON(ctx, bucket, metadata.ConfigInventory, &set)
	if err != nil {
		return nil, err
	}
	return set, nil
}

func (s *ObjectService) PutBucketAnalytics(ctx context.Context, bucket, id string, config *metadata.AnalyticsConfiguration) error {
	set, err := s.loadAnalyticsSet(ctx, bucket)
	if err != nil {
		return err
	}
	set[id] = *config
	return s.putBucketConfigJSON(ctx, bucket, metadata.ConfigAnalytics, set)
}

func (s *ObjectService) GetBucketAnalytics(ctx context.Context, bucket, id string) (*metadata.AnalyticsConfiguration, error) {
	set, err := s.loadAnalyticsSet(ctx, bucket)
	if err != nil {
		return nil, err
	}
	config, ok := set[id]
	if !ok {
		return nil, nil
	}
	return &config, nil
}

func (s *ObjectService) DeleteBucketAnalytics(ctx context.Context, bucket, id string) error {
	set, err := s.loadAnalyticsSet(ctx, bucket)
	if err != nil {
		return err
	}
	delete(set, id)
	return s.putBucketConfigJSON(ctx, bucket, metadata.ConfigAnalytics, set)
}

func (s *ObjectService) ListBucketAnalytics(ctx context.Context, bucket string) ([]metadata.AnalyticsConfiguration, error) {
	set, err := s.loadAnalyticsSet(ctx, bucket)
	if err != nil {
		return nil, err
	}
	out := make([]metadata.AnalyticsConfiguration, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out, nil
}

func (s *ObjectService) loadAnalyticsSet(ctx context.Context, bucket string) (map[string]metadata.AnalyticsConfiguration, error) {
	set := make(map[string]metadata.AnalyticsConfiguration)
	_, err := s.getBucketConfigJSON(ctx, bucket, metadata.ConfigAnalytics, &set)
	if err != nil {
		return nil, err
	}
	return set, nil
}

func (s *ObjectService) PutBucketMetrics(ctx context.Context, bucket, id string, config *metadata.MetricsConfiguration) error {
	set, err := s.loadMetricsSet(ctx, bucket)
	if err != nil {
		return err
	}
	set[id] = *config
	return s.putBucketConfigJSON(ctx, bucket, metadata.ConfigMetrics, set)
}

func (s *ObjectService) GetBucketMetrics(ctx context.Context, bucket, id string) (*metadata.MetricsConfiguration, error) {
	set, err := s.loadMetricsSet(ctx, bucket)
	if err != nil {
		return nil, err
	}
	config, ok := set[id]
	if !ok {
		return nil, nil
	}
	return &config, nil
}

func (s *ObjectService) DeleteBucketMetrics(ctx context.Context, bucket, id string) error {
	set, err := s.loadMetricsSet(ctx, bucket)
	if err != nil {
		return err
	}
	delete(set, id)
	return s.putBucketConfigJSON(ctx, bucket, metadata.ConfigMetrics, set)
}

func (s *ObjectService) ListBucketMetrics(ctx context.Context, bucket string) ([]metadata.MetricsConfiguration, error) {
	set, err := s.loadMetricsSet(ctx, bucket)
	if err != nil {
		return nil, err
	}
	out := make([]metadata.MetricsConfiguration, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out, nil
}

func (s *ObjectService) loadMetricsSet(ctx context.Context, bucket string) (map[string]metadata.MetricsConfiguration, error) {
	set := make(map[string]metadata.MetricsConfiguration)
	_, err := s.getBucketConfigJSON(ctx, bucket, metadata.ConfigMetrics, &set)
	if err != nil {
		return nil, err
	}
	return set, nil
}

// Multipart pass-throughs (§4.C). The coordinator owns its own staging
// database and locking; ObjectService just forwards and, where the
// router's naming differs from the coordinator's, adapts shapes.

// MultipartUploadResult is the outcome of CreateMultipartUpload.
type MultipartUploadResult struct {
	UploadID string
}

func (s *ObjectService) CreateMultipartUpload(ctx context.Context, bucket, key string, opts PutObjectOptions) (*MultipartUploadResult, error) {
	if s.multipart == nil {
		return nil, fmt.Errorf("multipart coordinator not configured")
	}
	uploadID, err := s.multipart.Initiate(ctx, bucket, key, opts.Owner, opts.Metadata, opts.ContentType)
	if err != nil {
		return nil, err
	}
	return &MultipartUploadResult{UploadID: uploadID}, nil
}

// UploadPartResult is the outcome of UploadPart.
type UploadPartResult struct {
	ETag string
}

func (s *ObjectService) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int, data io.Reader) (*UploadPartResult, error) {
	if s.multipart == nil {
		return nil, fmt.Errorf("multipart coordinator not configured")
	}
	etag, err := s.multipart.UploadPart(ctx, bucket, key, uploadID, partNumber, data, storage.NoDeclaredSize)
	if err != nil {
		return nil, err
	}
	return &UploadPartResult{ETag: etag}, nil
}

func (s *ObjectService) CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []PartInfo) (*ObjectResult, error) {
	if s.multipart == nil {
		return nil, fmt.Errorf("multipart coordinator not configured")
	}
	result, err := s.multipart.Complete(ctx, bucket, key, uploadID, parts)
	if err != nil {
		return nil, err
	}
	s.emitEvent(string(events.EventObjectMultipart), bucket, key, result.ETag, result.Size)
	return &ObjectResult{
		ETag:         result.ETag,
		Size:         result.Size,
		VersionID:    result.VersionID,
		LastModified: result.LastModified,
	}, nil
}

func (s *ObjectService) AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error {
	if s.multipart == nil {
		return fmt.Errorf("multipart coordinator not configured")
	}
	return s.multipart.Abort(ctx, bucket, key, uploadID)
}

func (s *ObjectService) ListParts(ctx context.Context, bucket, key, uploadID string) ([]PartInfo, error) {
	if s.multipart == nil {
		return nil, fmt.Errorf("multipart coordinator not configured")
	}
	return s.multipart.ListParts(uploadID)
}

// MultipartUploadsResult lists in-progress uploads for ListMultipartUploads.
type MultipartUploadsResult struct {
	Uploads []MultipartUploadSummary
}

type MultipartUploadSummary struct {
	Key       string
	UploadID  string
	Initiated int64
}

func (s *ObjectService) ListMultipartUpload(ctx context.Context, bucket, prefix string) (*MultipartUploadsResult, error) {
	if s.multipart == nil {
		return &MultipartUploadsResult{}, nil
	}
	uploads, err := s.multipart.ListUploads(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]MultipartUploadSummary, len(uploads))
	for i, u := range uploads {
		out[i] = MultipartUploadSummary{Key: u.Key, UploadID: u.UploadID, Initiated: u.Initiated}
	}
	return &MultipartUploadsResult{Uploads: out}, nil
}

// GeneratePresignedURL builds a path-style URL carrying the requested
// method and an opaque expiry token. Per the request orchestrator's scope
// (§6: principal extraction only, never signature verification), this
// mirrors that boundary on the generation side too — it does not compute
// an HMAC signature, since nothing in the auth package would ever check
// one. The expiry and token are still round-trippable for a client that
// wants a shareable, time-bounded link.
func (s *ObjectService) GeneratePresignedURL(ctx context.Context, bucket, key, method string, expiresSeconds int64) (string, error) {
	if _, err := s.metadata.GetBucket(ctx, bucket); err != nil {
		return "", fmt.Errorf("bucket not found: %w", err)
	}
	expiresAt := time.Now().Unix() + expiresSeconds
	token := uuid.NewString()
	return fmt.Sprintf("/%s/%s?X-Amz-Method=%s&X-Amz-Expires=%d&X-Amz-Date=%d&X-Amz-Token=%s",
		bucket, key, method, expiresSeconds, expiresAt, token), nil
}

// SelectObjectContent is the in-scope stub for the select sub-resource: it
// streams the object body back verbatim. A real SQL-over-CSV/JSON engine is
// out of scope (see DESIGN.md); this preserves the request/response shape
// so the orchestrator can wrap it in the event-stream envelope.
func (s *ObjectService) SelectObjectContent(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error) {
	if _, err := s.metadata.GetBucket(ctx, bucket); err != nil {
		return nil, 0, fmt.Errorf("bucket not found: %w", err)
	}
	v, err := s.metadata.GetVersion(ctx, bucket, key, "")
	if err != nil {
		return nil, 0, fmt.Errorf("object not found: %w", err)
	}
	size, body, err := s.storage.ReadStream(ctx, bucket, key, v.VersionID, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read object: %w", err)
	}
	return body, size, nil
}

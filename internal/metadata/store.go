package metadata

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"time"
)

// CORSConfiguration represents S3 CORS configuration
type CORSConfiguration struct {
	XMLName   xml.Name   `xml:"CORSConfiguration"`
	CORSRules []CORSRule `xml:"CORSRule"`
}

// CORSRule represents a single CORS rule
type CORSRule struct {
	AllowedMethods []string `xml:"AllowedMethod"`
	AllowedOrigins []string `xml:"AllowedOrigin"`
	AllowedHeaders []string `xml:"AllowedHeader,omitempty"`
	ExposeHeaders  []string `xml:"ExposeHeader,omitempty"`
	MaxAgeSeconds  int      `xml:"MaxAgeSeconds,omitempty"`
}

// BucketConfigKind enumerates the bucket sub-resource configuration blobs
// that are stored verbatim and returned verbatim (no interpretation beyond
// what the orchestrator itself performs for versioning/lifecycle/policy).
type BucketConfigKind string

const (
	ConfigWebsite           BucketConfigKind = "website"
	ConfigLogging           BucketConfigKind = "logging"
	ConfigOwnershipControls BucketConfigKind = "ownership-controls"
	ConfigPublicAccessBlock BucketConfigKind = "public-access-block"
	ConfigAccelerate        BucketConfigKind = "accelerate"
	ConfigInventory         BucketConfigKind = "inventory"
	ConfigAnalytics         BucketConfigKind = "analytics"
	ConfigMetrics           BucketConfigKind = "metrics"
	ConfigNotification      BucketConfigKind = "notification"
	ConfigEncryption        BucketConfigKind = "encryption"
	ConfigObjectLock        BucketConfigKind = "object-lock"
	ConfigReplication       BucketConfigKind = "replication"
	ConfigVPC               BucketConfigKind = "vpc"
	ConfigPresignedURL      BucketConfigKind = "presigned-url"
)

// Store defines the persistent, transactional metadata index described by
// the object/version/bucket data model. Implementations must honor the
// isLatest invariant: insertVersion/markDelete/removeVersion update the
// isLatest pointer in the same transaction that touches the version row.
type Store interface {
	// Bucket operations
	CreateBucket(ctx context.Context, bucket, owner string) error
	DeleteBucket(ctx context.Context, bucket string) error
	GetBucket(ctx context.Context, bucket string) (*BucketMetadata, error)
	ListBuckets(ctx context.Context) ([]BucketMetadata, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)

	// Object version operations (§4.B)
	InsertVersion(ctx context.Context, bucket, key string, v *ObjectVersion, unversioned bool) error
	MarkDelete(ctx context.Context, bucket, key string, v *ObjectVersion) error
	RemoveVersion(ctx context.Context, bucket, key, versionID string) (removedVersionID string, wasDeleteMarker bool, err error)
	GetVersion(ctx context.Context, bucket, key, versionID string) (*ObjectVersion, error)
	ListObjects(ctx context.Context, bucket string, opts ListOptions) (*ListResult, error)
	ListVersions(ctx context.Context, bucket string, opts ListOptions) (*ListResult, error)

	// Multipart upload operations (§4.C coordination state lives in the
	// multipart package's bbolt staging db; the Store only tracks the
	// upload record itself so listings/ GC can enumerate it)
	CreateMultipartUpload(ctx context.Context, bucket, key, uploadID, owner string, userMeta map[string]string, contentType string) error
	GetMultipartUpload(ctx context.Context, bucket, key, uploadID string) (*MultipartUploadMetadata, error)
	DeleteMultipartUpload(ctx context.Context, bucket, key, uploadID string) error
	ListMultipartUploads(ctx context.Context, bucket, prefix string) ([]MultipartUploadMetadata, error)

	// Lifecycle
	PutLifecycleRules(ctx context.Context, bucket string, rules []LifecycleRule) error
	GetLifecycleRules(ctx context.Context, bucket string) ([]LifecycleRule, error)
	DeleteLifecycleRules(ctx context.Context, bucket string) error

	// Versioning
	PutBucketVersioning(ctx context.Context, bucket string, versioning *BucketVersioning) error
	GetBucketVersioning(ctx context.Context, bucket string) (*BucketVersioning, error)

	// CORS
	PutBucketCors(ctx context.Context, bucket string, cors *CORSConfiguration) error
	GetBucketCors(ctx context.Context, bucket string) (*CORSConfiguration, error)
	DeleteBucketCors(ctx context.Context, bucket string) error

	// Policy
	PutBucketPolicy(ctx context.Context, bucket string, policy string) error
	GetBucketPolicy(ctx context.Context, bucket string) (string, error)
	DeleteBucketPolicy(ctx context.Context, bucket string) error

	// ACL
	PutBucketACL(ctx context.Context, bucket string, acl *AccessControlPolicy) error
	GetBucketACL(ctx context.Context, bucket string) (*AccessControlPolicy, error)
	PutObjectACL(ctx context.Context, bucket, key, versionID string, acl *AccessControlPolicy) error
	GetObjectACL(ctx context.Context, bucket, key, versionID string) (*AccessControlPolicy, error)

	// Tagging
	PutBucketTags(ctx context.Context, bucket string, tags map[string]string) error
	GetBucketTags(ctx context.Context, bucket string) (map[string]string, error)
	DeleteBucketTags(ctx context.Context, bucket string) error
	PutObjectTags(ctx context.Context, bucket, key, versionID string, tags map[string]string) error
	GetObjectTags(ctx context.Context, bucket, key, versionID string) (map[string]string, error)
	DeleteObjectTags(ctx context.Context, bucket, key, versionID string) error

	// Generic bucket sub-resource config blobs (§3.1) — stored and
	// returned opaquely; feature stubs per the spec's Non-goals.
	SetBucketConfig(ctx context.Context, bucket string, kind BucketConfigKind, blob []byte) error
	GetBucketConfig(ctx context.Context, bucket string, kind BucketConfigKind) ([]byte, error)
	DeleteBucketConfig(ctx context.Context, bucket string, kind BucketConfigKind) error

	// Object Lock / Legal Hold / Retention — stub contracts per Non-goals
	PutObjectRetention(ctx context.Context, bucket, key, versionID string, blob []byte) error
	GetObjectRetention(ctx context.Context, bucket, key, versionID string) ([]byte, error)
	PutObjectLegalHold(ctx context.Context, bucket, key, versionID string, blob []byte) error
	GetObjectLegalHold(ctx context.Context, bucket, key, versionID string) ([]byte, error)

	// Audit (§4.B)
	AppendAudit(ctx context.Context, event *AuditEvent) error
	QueryAudit(ctx context.Context, filter AuditFilter, limit int, continuationToken string) ([]AuditEvent, string, error)

	// Batch jobs (§3 — table/state machine only, no execution)
	CreateBatchJob(ctx context.Context, job *BatchJob) error
	GetBatchJob(ctx context.Context, id string) (*BatchJob, error)
	ListBatchJobs(ctx context.Context) ([]BatchJob, error)
	UpdateBatchJobStatus(ctx context.Context, id string, status BatchJobStatus, failureReasons []string) error
	DeleteBatchJob(ctx context.Context, id string) error

	Close() error
}

// BucketMetadata contains bucket-level metadata (§3 Bucket).
type BucketMetadata struct {
	Name         string `json:"name"`
	CreationDate int64  `json:"creation_date"`
	Owner        string `json:"owner"`
	Region       string `json:"region"`
}

// ObjectVersion is the (bucket, key, versionId) record defined in §3.
type ObjectVersion struct {
	Bucket          string            `json:"bucket"`
	Key             string            `json:"key"`
	VersionID       string            `json:"version_id"`
	Size            int64             `json:"size"`
	ETag            string            `json:"etag"`
	ContentType     string            `json:"content_type"`
	Metadata        map[string]string `json:"metadata"`
	Owner           string            `json:"owner"`
	StorageClass    string            `json:"storage_class"`
	ChecksumAlgo    string            `json:"checksum_algo,omitempty"`
	ChecksumValue   string            `json:"checksum_value,omitempty"`
	IsLatest        bool              `json:"is_latest"`
	IsDeleteMarker  bool              `json:"is_delete_marker"`
	LastModified    int64             `json:"last_modified"`
}

// PartInfo is a client-supplied part reference for CompleteMultipartUpload.
type PartInfo struct {
	PartNumber int    `json:"part_number"`
	ETag       string `json:"etag"`
}

// MultipartUploadMetadata is the (bucket, key, uploadId) upload record.
type MultipartUploadMetadata struct {
	UploadID    string            `json:"upload_id"`
	Key         string            `json:"key"`
	Bucket      string            `json:"bucket"`
	Owner       string            `json:"owner"`
	ContentType string            `json:"content_type"`
	Initiated   int64             `json:"initiated"`
	Metadata    map[string]string `json:"metadata"`
}

// LifecycleRule defines a lifecycle rule (§3/§4.F).
type LifecycleRule struct {
	ID                          string                       `json:"id"`
	Prefix                      string                       `json:"prefix"`
	Status                      string                       `json:"status"` // Enabled or Disabled
	Tags                        map[string]string             `json:"tags,omitempty"`
	Expiration                  *Expiration                   `json:"expiration,omitempty"`
	NoncurrentVersionExpiration *NoncurrentVersionExpiration `json:"noncurrent_version_expiration,omitempty"`
}

type Expiration struct {
	Days                      int   `json:"days"`
	Date                      int64 `json:"date"`
	ExpiredObjectDeleteMarker bool  `json:"expired_object_delete_marker"`
}

type NoncurrentVersionExpiration struct {
	NoncurrentDays          int `json:"noncurrent_days"`
	NewerNoncurrentVersions int `json:"newer_noncurrent_versions"`
}

// BucketVersioning contains versioning configuration (§3).
type BucketVersioning struct {
	Status    string `json:"status"`     // "", Enabled, Suspended
	MFADelete bool   `json:"mfa_delete"`
}

// AccessControlPolicy (§3).
type AccessControlPolicy struct {
	Owner  Owner   `json:"owner"`
	Grants []Grant `json:"grants"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type Grant struct {
	Grantee    Grantee `json:"grantee"`
	Permission string  `json:"permission"`
}

type Grantee struct {
	Type string `json:"type"` // CanonicalUser or Group
	ID   string `json:"id,omitempty"`
	URI  string `json:"uri,omitempty"`
}

// ListOptions contains options for listing objects/versions (§4.B).
type ListOptions struct {
	Prefix          string
	Delimiter       string
	MaxKeys         int
	Marker          string
	VersionIDMarker string
}

// ListResult is the common output of ListObjects/ListVersions.
type ListResult struct {
	Versions       []ObjectVersion
	CommonPrefixes []string
	IsTruncated    bool
	NextMarker     string
	NextVersionID  string
}

// AuditEvent is the immutable audit record (§3).
type AuditEvent struct {
	ID           string                 `json:"id"`
	Timestamp    time.Time              `json:"timestamp"`
	EventType    string                 `json:"event_type"`
	Principal    string                 `json:"principal"`
	SourceIP     string                 `json:"source_ip"`
	UserAgent    string                 `json:"user_agent"`
	RequestID    string                 `json:"request_id"`
	Bucket       string                 `json:"bucket,omitempty"`
	Key          string                 `json:"key,omitempty"`
	Operation    string                 `json:"operation"`
	Status       string                 `json:"status"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Additional   map[string]interface{} `json:"additional,omitempty"`
}

// AuditFilter selects a subset of audit events for queryAudit.
type AuditFilter struct {
	Bucket    string
	Principal string
	EventType string
	StartTime time.Time
	EndTime   time.Time
}

// BatchJobStatus enumerates the batch job state machine (§3).
type BatchJobStatus string

const (
	BatchJobPending   BatchJobStatus = "Pending"
	BatchJobReady     BatchJobStatus = "Ready"
	BatchJobActive    BatchJobStatus = "Active"
	BatchJobPaused    BatchJobStatus = "Paused"
	BatchJobComplete  BatchJobStatus = "Complete"
	BatchJobFailed    BatchJobStatus = "Failed"
	BatchJobCancelled BatchJobStatus = "Cancelled"
)

// BatchJob is the (id, operationType, ...) record (§3). Only the table and
// state machine are in scope; workers interpreting manifests are not.
type BatchJob struct {
	ID               string         `json:"id"`
	OperationType    string         `json:"operation_type"`
	Parameters       map[string]string `json:"parameters"`
	ManifestLocation string         `json:"manifest_location"`
	Status           BatchJobStatus `json:"status"`
	CreatedAt        time.Time      `json:"created_at"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
	FailureReasons   []string       `json:"failure_reasons,omitempty"`
	Progress         BatchJobProgress `json:"progress"`
}

type BatchJobProgress struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// MarshalJSON for ObjectVersion adds LastModified as RFC3339
// (last_modified_time) next to the epoch-second last_modified field.
func (v *ObjectVersion) MarshalJSON() ([]byte, error) {
	type Alias ObjectVersion
	return json.Marshal(&struct {
		*Alias
		LastModified time.Time `json:"last_modified_time,omitempty"`
	}{
		Alias:        (*Alias)(v),
		LastModified: time.Unix(v.LastModified, 0).UTC(),
	})
}

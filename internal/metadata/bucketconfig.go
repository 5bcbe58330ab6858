package metadata

// The types below back the remaining bucket/object sub-resource
// configurations (§3.1) that don't carry their own Store methods: they are
// marshaled to JSON and stored through the generic SetBucketConfig/
// GetBucketConfig/DeleteBucketConfig blob contract, keyed by
// BucketConfigKind. Field names mirror the corresponding S3 XML element
// names so the default encoding/xml behavior (no struct tags needed)
// produces a compatible wire shape.

// BucketEncryption is the default server-side encryption configuration for
// a bucket.
type BucketEncryption struct {
	Rule EncryptionRule `json:"Rule"`
}

type EncryptionRule struct {
	Apply ApplyEncryptionConfiguration `json:"Apply"`
}

type ApplyEncryptionConfiguration struct {
	SSEAlgorithm    string `json:"SSEAlgorithm,omitempty"`
	KMSMasterKeyID string `json:"KMSMasterKeyID,omitempty"`
}

// ObjectLockConfig is the bucket-level object lock configuration (distinct
// from the per-object retention/legal-hold values below).
type ObjectLockConfig struct {
	Enabled bool `json:"Enabled"`
}

// PublicAccessBlockConfiguration controls whether public ACLs/policies are
// rejected or ignored for a bucket.
type PublicAccessBlockConfiguration struct {
	BlockPublicAcls       bool `json:"BlockPublicAcls"`
	BlockPublicPolicy     bool `json:"BlockPublicPolicy"`
	IgnorePublicAcls      bool `json:"IgnorePublicAcls"`
	RestrictPublicBuckets bool `json:"RestrictPublicBuckets"`
}

// ReplicationConfig is a bucket's cross-region/cross-bucket replication
// configuration. Not enforced: stored and returned verbatim.
type ReplicationConfig struct {
	Role  string            `json:"role"`
	Rules []ReplicationRule `json:"rules"`
}

type ReplicationRule struct {
	ID          string      `json:"id"`
	Status      string      `json:"status"`
	Prefix      string      `json:"prefix"`
	Destination Destination `json:"destination"`
}

type Destination struct {
	Bucket       string `json:"bucket"`
	StorageClass string `json:"storage_class,omitempty"`
}

// BucketAccelerateConfiguration toggles transfer acceleration metadata.
type BucketAccelerateConfiguration struct {
	Status string `json:"Status"` // Enabled or Suspended
}

// InventoryConfiguration is one scheduled inventory report definition,
// keyed by ID within a bucket.
type InventoryConfiguration struct {
	ID                     string `json:"Id"`
	IsEnabled              bool   `json:"IsEnabled"`
	Destination            string `json:"Destination"`
	Schedule               string `json:"Schedule"` // Daily or Weekly
	IncludedObjectVersions string `json:"IncludedObjectVersions"`
}

// AnalyticsConfiguration is one bucket analytics filter definition, keyed
// by ID within a bucket.
type AnalyticsConfiguration struct {
	ID     string `json:"Id"`
	Prefix string `json:"Prefix,omitempty"`
}

// WebsiteConfiguration is a bucket's static-website hosting configuration.
type WebsiteConfiguration struct {
	IndexDocument string `json:"IndexDocument,omitempty"`
	ErrorDocument string `json:"ErrorDocument,omitempty"`
}

// NotificationConfiguration is a bucket's event-notification wiring.
type NotificationConfiguration struct {
	TopicConfigurations []TopicConfiguration `json:"TopicConfiguration,omitempty"`
}

type TopicConfiguration struct {
	ID     string   `json:"Id,omitempty"`
	Topic  string   `json:"Topic"`
	Events []string `json:"Event"`
}

// LoggingConfiguration is a bucket's server-access-logging configuration.
type LoggingConfiguration struct {
	TargetBucket string `json:"TargetBucket,omitempty"`
	TargetPrefix string `json:"TargetPrefix,omitempty"`
}

// OwnershipControls is a bucket's object-ownership enforcement setting.
type OwnershipControls struct {
	Rules []OwnershipControlsRule `json:"Rules"`
}

type OwnershipControlsRule struct {
	ObjectOwnership string `json:"ObjectOwnership"` // BucketOwnerPreferred, ObjectWriter, BucketOwnerEnforced
}

// MetricsConfiguration is one request-metrics filter definition, keyed by
// ID within a bucket.
type MetricsConfiguration struct {
	ID     string `json:"Id"`
	Prefix string `json:"Prefix,omitempty"`
}

// ObjectRetention is the per-object-version WORM retention setting.
type ObjectRetention struct {
	Mode            string `json:"Mode,omitempty"` // GOVERNANCE or COMPLIANCE
	RetainUntilDate string `json:"RetainUntilDate,omitempty"`
}

// ObjectLegalHold is the per-object-version legal hold flag.
type ObjectLegalHold struct {
	Status string `json:"Status,omitempty"` // ON or OFF
}

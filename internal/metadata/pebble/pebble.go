// Package pebble implements the metadata.Store interface on top of
// CockroachDB's embedded pebble key-value engine: one on-disk database file
// backing the bucket/object-version/config/audit/batch-job tables described
// in the data model.
package pebble

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"

	"github.com/openendpoint/openendpoint/internal/metadata"
)

// ErrNotFound is returned for any missing row; callers (engine, access
// evaluator) translate it into the appropriate S3 error code.
var ErrNotFound = errors.New("metadata: not found")

type Store struct {
	db *pebble.DB
}

// New opens (or creates) the pebble database rooted under rootDir/metadata.
func New(rootDir string) (*Store, error) {
	dbPath := filepath.Join(rootDir, "metadata")

	opts := &pebble.Options{
		Cache:           pebble.NewCache(256 << 20),
		MaxOpenFiles:    1000,
		BytesPerSync:    512 << 10,
		WALBytesPerSync: 512 << 10,
		MemTableSize:    8 << 20,
	}

	db, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, errors.Wrap(err, "open pebble database")
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// --- key schemes -----------------------------------------------------------

func bucketKey(bucket string) []byte { return []byte("bucket:" + bucket) }

func latestKey(bucket, key string) []byte { return []byte("latest:" + bucket + "\x00" + key) }

func versionKey(bucket, key, versionID string) []byte {
	return []byte("ver:" + bucket + "\x00" + key + "\x00" + versionID)
}

func versionPrefix(bucket string) []byte { return []byte("ver:" + bucket + "\x00") }

func multipartKey(bucket, key, uploadID string) []byte {
	return []byte("multipart:" + bucket + "\x00" + key + "\x00" + uploadID)
}

func multipartPrefix(bucket string) []byte { return []byte("multipart:" + bucket + "\x00") }

func lifecycleKey(bucket string) []byte { return []byte("lifecycle:" + bucket) }

func versioningKey(bucket string) []byte { return []byte("versioning:" + bucket) }

func corsKey(bucket string) []byte { return []byte("cors:" + bucket) }

func policyKey(bucket string) []byte { return []byte("policy:" + bucket) }

func bucketACLKey(bucket string) []byte { return []byte("bucketacl:" + bucket) }

func objectACLKey(bucket, key, versionID string) []byte {
	return []byte("objectacl:" + bucket + "\x00" + key + "\x00" + versionID)
}

func bucketTagsKey(bucket string) []byte { return []byte("buckettags:" + bucket) }

func objectTagsKey(bucket, key, versionID string) []byte {
	return []byte("objecttags:" + bucket + "\x00" + key + "\x00" + versionID)
}

func configKey(bucket string, kind metadata.BucketConfigKind) []byte {
	return []byte("config:" + string(kind) + ":" + bucket)
}

func retentionKey(bucket, key, versionID string) []byte {
	return []byte("retention:" + bucket + "\x00" + key + "\x00" + versionID)
}

func legalHoldKey(bucket, key, versionID string) []byte {
	return []byte("legalhold:" + bucket + "\x00" + key + "\x00" + versionID)
}

// auditKey encodes the timestamp inverted so ascending key iteration walks
// events in descending-timestamp order, per queryAudit's ordering contract.
func auditKey(ts time.Time, id string) []byte {
	inverted := math.MaxInt64 - ts.UnixNano()
	return []byte(fmt.Sprintf("audit:%020d:%s", inverted, id))
}

func batchJobKey(id string) []byte { return []byte("batchjob:" + id) }

// --- encoding ---------------------------------------------------------------

func encode(v interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := gob.NewEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (s *Store) getInto(key []byte, v interface{}) error {
	data, closer, err := s.db.Get(key)
	if err != nil {
		if err == pebble.ErrNotFound {
			return ErrNotFound
		}
		return err
	}
	defer closer.Close()
	return decode(data, v)
}

func (s *Store) setEncoded(key []byte, v interface{}) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	return s.db.Set(key, data, pebble.Sync)
}

// --- buckets -----------------------------------------------------------------

func (s *Store) CreateBucket(ctx context.Context, bucket, owner string) error {
	meta := &metadata.BucketMetadata{
		Name:         bucket,
		CreationDate: time.Now().Unix(),
		Owner:        owner,
		Region:       "us-east-1",
	}
	return s.setEncoded(bucketKey(bucket), meta)
}

func (s *Store) DeleteBucket(ctx context.Context, bucket string) error {
	return s.db.Delete(bucketKey(bucket), pebble.Sync)
}

func (s *Store) GetBucket(ctx context.Context, bucket string) (*metadata.BucketMetadata, error) {
	var meta metadata.BucketMetadata
	if err := s.getInto(bucketKey(bucket), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := s.GetBucket(ctx, bucket)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (s *Store) ListBuckets(ctx context.Context) ([]metadata.BucketMetadata, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("bucket:"),
		UpperBound: []byte("bucket;"),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []metadata.BucketMetadata
	for iter.First(); iter.Valid(); iter.Next() {
		var meta metadata.BucketMetadata
		if err := decode(iter.Value(), &meta); err != nil {
			continue
		}
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- object versions (§4.B) --------------------------------------------------

// InsertVersion clears any existing isLatest row for (bucket,key) and
// inserts v with isLatest=true, all within one pebble batch. In an
// unversioned bucket it additionally removes the prior versionId="null" row.
func (s *Store) InsertVersion(ctx context.Context, bucket, key string, v *metadata.ObjectVersion, unversioned bool) error {
	b := s.db.NewBatch()
	defer b.Close()

	v.IsLatest = true
	data, err := encode(v)
	if err != nil {
		return err
	}

	if unversioned {
		// Replace in place: remove whatever "null" row existed.
		if err := b.Delete(versionKey(bucket, key, "null"), nil); err != nil {
			return err
		}
	}

	// Clear isLatest on the row the latest pointer names, unless it is replaced above.
	if prev, closer, err := s.db.Get(latestKey(bucket, key)); err == nil {
		prevID := string(prev)
		closer.Close()
		var old metadata.ObjectVersion
		if prevID != v.VersionID && !(unversioned && prevID == "null") && s.getInto(versionKey(bucket, key, prevID), &old) == nil {
			old.IsLatest = false
			oldData, err := encode(&old)
			if err == nil {
				err = b.Set(versionKey(bucket, key, prevID), oldData, nil)
			}
			if err != nil {
				return err
			}
		}
	}

	if err := b.Set(versionKey(bucket, key, v.VersionID), data, nil); err != nil {
		return err
	}
	if err := b.Set(latestKey(bucket, key), []byte(v.VersionID), nil); err != nil {
		return err
	}

	return b.Commit(pebble.Sync)
}

// MarkDelete inserts a delete-marker version, clearing the prior isLatest
// pointer, within one batch.
func (s *Store) MarkDelete(ctx context.Context, bucket, key string, v *metadata.ObjectVersion) error {
	v.IsLatest = true
	v.IsDeleteMarker = true
	v.Size = 0
	return s.InsertVersion(ctx, bucket, key, v, false)
}

// RemoveVersion deletes one row. If it was isLatest, the next-newest
// remaining version (by lastModified desc) is promoted to isLatest.
func (s *Store) RemoveVersion(ctx context.Context, bucket, key, versionID string) (string, bool, error) {
	var existing metadata.ObjectVersion
	if err := s.getInto(versionKey(bucket, key, versionID), &existing); err != nil {
		return "", false, err
	}

	b := s.db.NewBatch()
	defer b.Close()

	if err := b.Delete(versionKey(bucket, key, versionID), nil); err != nil {
		return "", false, err
	}

	if existing.IsLatest {
		remaining, err := s.listRawVersions(bucket, key)
		if err != nil {
			return "", false, err
		}
		var best *metadata.ObjectVersion
		for i := range remaining {
			if remaining[i].VersionID == versionID {
				continue
			}
			if best == nil || remaining[i].LastModified > best.LastModified {
				best = &remaining[i]
			}
		}
		if best != nil {
			best.IsLatest = true
			data, err := encode(best)
			if err != nil {
				return "", false, err
			}
			if err := b.Set(versionKey(bucket, key, best.VersionID), data, nil); err != nil {
				return "", false, err
			}
			if err := b.Set(latestKey(bucket, key), []byte(best.VersionID), nil); err != nil {
				return "", false, err
			}
		} else {
			if err := b.Delete(latestKey(bucket, key), nil); err != nil {
				return "", false, err
			}
		}
	}

	if err := b.Commit(pebble.Sync); err != nil {
		return "", false, err
	}
	return existing.VersionID, existing.IsDeleteMarker, nil
}

func (s *Store) GetVersion(ctx context.Context, bucket, key, versionID string) (*metadata.ObjectVersion, error) {
	if versionID == "" {
		data, closer, err := s.db.Get(latestKey(bucket, key))
		if err != nil {
			if err == pebble.ErrNotFound {
				return nil, ErrNotFound
			}
			return nil, err
		}
		versionID = string(data)
		closer.Close()
	}
	var v metadata.ObjectVersion
	if err := s.getInto(versionKey(bucket, key, versionID), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// listRawVersions returns every version row for (bucket,key), unsorted.
func (s *Store) listRawVersions(bucket, key string) ([]metadata.ObjectVersion, error) {
	prefix := []byte("ver:" + bucket + "\x00" + key + "\x00")
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixUpperBound(prefix)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []metadata.ObjectVersion
	for iter.First(); iter.Valid(); iter.Next() {
		var v metadata.ObjectVersion
		if err := decode(iter.Value(), &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func prefixUpperBound(prefix []byte) []byte {
	up := make([]byte, len(prefix))
	copy(up, prefix)
	for i := len(up) - 1; i >= 0; i-- {
		if up[i] < 0xff {
			up[i]++
			return up[:i+1]
		}
	}
	return nil
}

// listAllInBucket returns every version row in key,versionId ascending
// order (the natural order of the ver:<bucket>:<key>:<versionId> key
// scheme), used by both ListObjects and ListVersions.
func (s *Store) listAllInBucket(bucket string) ([]metadata.ObjectVersion, error) {
	prefix := versionPrefix(bucket)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixUpperBound(prefix)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []metadata.ObjectVersion
	for iter.First(); iter.Valid(); iter.Next() {
		var v metadata.ObjectVersion
		if err := decode(iter.Value(), &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// applyListing implements the shared listing algorithm of §4.B step 1-6.
func applyListing(rows []metadata.ObjectVersion, opts metadata.ListOptions, versionsMode bool) *metadata.ListResult {
	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = 1000
	}

	res := &metadata.ListResult{}
	lastPrefix := ""
	count := 0

	for _, row := range rows {
		if !versionsMode && row.IsDeleteMarker {
			continue
		}
		if opts.Prefix != "" && !strings.HasPrefix(row.Key, opts.Prefix) {
			continue
		}
		if opts.Marker != "" {
			if versionsMode {
				if row.Key < opts.Marker {
					continue
				}
				if row.Key == opts.Marker && row.VersionID <= opts.VersionIDMarker {
					continue
				}
			} else if row.Key <= opts.Marker {
				continue
			}
		}

		if count >= maxKeys {
			res.IsTruncated = true
			break
		}

		if opts.Delimiter != "" {
			rest := row.Key[len(opts.Prefix):]
			if idx := strings.Index(rest, opts.Delimiter); idx >= 0 {
				cp := row.Key[:len(opts.Prefix)+idx+len(opts.Delimiter)]
				if cp != lastPrefix {
					res.CommonPrefixes = append(res.CommonPrefixes, cp)
					lastPrefix = cp
					count++
					res.NextMarker = cp
				}
				continue
			}
		}

		res.Versions = append(res.Versions, row)
		count++
		res.NextMarker = row.Key
		res.NextVersionID = row.VersionID
	}

	if count >= maxKeys && len(rows) > 0 {
		// Nothing to do: IsTruncated is set in the loop when a row remains after maxKeys.
	}
	return res
}

func (s *Store) ListObjects(ctx context.Context, bucket string, opts metadata.ListOptions) (*metadata.ListResult, error) {
	rows, err := s.listAllInBucket(bucket)
	if err != nil {
		return nil, err
	}
	var latestOnly []metadata.ObjectVersion
	for _, r := range rows {
		if r.IsLatest {
			latestOnly = append(latestOnly, r)
		}
	}
	sort.Slice(latestOnly, func(i, j int) bool { return latestOnly[i].Key < latestOnly[j].Key })
	return applyListing(latestOnly, opts, false), nil
}

func (s *Store) ListVersions(ctx context.Context, bucket string, opts metadata.ListOptions) (*metadata.ListResult, error) {
	rows, err := s.listAllInBucket(bucket)
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Key != rows[j].Key {
			return rows[i].Key < rows[j].Key
		}
		return rows[i].VersionID < rows[j].VersionID
	})
	return applyListing(rows, opts, true), nil
}

// --- multipart upload records -------------------------------------------------

func (s *Store) CreateMultipartUpload(ctx context.Context, bucket, key, uploadID, owner string, userMeta map[string]string, contentType string) error {
	if uploadID == "" {
		uploadID = uuid.New().String()
	}
	rec := &metadata.MultipartUploadMetadata{
		UploadID:    uploadID,
		Key:         key,
		Bucket:      bucket,
		Owner:       owner,
		ContentType: contentType,
		Initiated:   time.Now().Unix(),
		Metadata:    userMeta,
	}
	return s.setEncoded(multipartKey(bucket, key, uploadID), rec)
}

func (s *Store) GetMultipartUpload(ctx context.Context, bucket, key, uploadID string) (*metadata.MultipartUploadMetadata, error) {
	var rec metadata.MultipartUploadMetadata
	if err := s.getInto(multipartKey(bucket, key, uploadID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) DeleteMultipartUpload(ctx context.Context, bucket, key, uploadID string) error {
	return s.db.Delete(multipartKey(bucket, key, uploadID), pebble.Sync)
}

func (s *Store) ListMultipartUploads(ctx context.Context, bucket, prefix string) ([]metadata.MultipartUploadMetadata, error) {
	bp := multipartPrefix(bucket)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: bp, UpperBound: prefixUpperBound(bp)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []metadata.MultipartUploadMetadata
	for iter.First(); iter.Valid(); iter.Next() {
		var rec metadata.MultipartUploadMetadata
		if err := decode(iter.Value(), &rec); err != nil {
			continue
		}
		if prefix != "" && !strings.HasPrefix(rec.Key, prefix) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Initiated < out[j].Initiated })
	return out, nil
}

// --- lifecycle / versioning / cors / policy / acl / tags (simple blobs) ------

func (s *Store) PutLifecycleRules(ctx context.Context, bucket string, rules []metadata.LifecycleRule) error {
	return s.setEncoded(lifecycleKey(bucket), rules)
}

func (s *Store) GetLifecycleRules(ctx context.Context, bucket string) ([]metadata.LifecycleRule, error) {
	var rules []metadata.LifecycleRule
	if err := s.getInto(lifecycleKey(bucket), &rules); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return rules, nil
}

func (s *Store) DeleteLifecycleRules(ctx context.Context, bucket string) error {
	return s.db.Delete(lifecycleKey(bucket), pebble.Sync)
}

func (s *Store) PutBucketVersioning(ctx context.Context, bucket string, v *metadata.BucketVersioning) error {
	return s.setEncoded(versioningKey(bucket), v)
}

func (s *Store) GetBucketVersioning(ctx context.Context, bucket string) (*metadata.BucketVersioning, error) {
	var v metadata.BucketVersioning
	if err := s.getInto(versioningKey(bucket), &v); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &metadata.BucketVersioning{Status: ""}, nil
		}
		return nil, err
	}
	return &v, nil
}

func (s *Store) PutBucketCors(ctx context.Context, bucket string, cors *metadata.CORSConfiguration) error {
	return s.setEncoded(corsKey(bucket), cors)
}

func (s *Store) GetBucketCors(ctx context.Context, bucket string) (*metadata.CORSConfiguration, error) {
	var cors metadata.CORSConfiguration
	if err := s.getInto(corsKey(bucket), &cors); err != nil {
		return nil, err
	}
	return &cors, nil
}

func (s *Store) DeleteBucketCors(ctx context.Context, bucket string) error {
	return s.db.Delete(corsKey(bucket), pebble.Sync)
}

func (s *Store) PutBucketPolicy(ctx context.Context, bucket string, policy string) error {
	return s.db.Set(policyKey(bucket), []byte(policy), pebble.Sync)
}

func (s *Store) GetBucketPolicy(ctx context.Context, bucket string) (string, error) {
	data, closer, err := s.db.Get(policyKey(bucket))
	if err != nil {
		if err == pebble.ErrNotFound {
			return "", ErrNotFound
		}
		return "", err
	}
	defer closer.Close()
	return string(data), nil
}

func (s *Store) DeleteBucketPolicy(ctx context.Context, bucket string) error {
	return s.db.Delete(policyKey(bucket), pebble.Sync)
}

func (s *Store) PutBucketACL(ctx context.Context, bucket string, acl *metadata.AccessControlPolicy) error {
	return s.setEncoded(bucketACLKey(bucket), acl)
}

func (s *Store) GetBucketACL(ctx context.Context, bucket string) (*metadata.AccessControlPolicy, error) {
	var acl metadata.AccessControlPolicy
	if err := s.getInto(bucketACLKey(bucket), &acl); err != nil {
		return nil, err
	}
	return &acl, nil
}

func (s *Store) PutObjectACL(ctx context.Context, bucket, key, versionID string, acl *metadata.AccessControlPolicy) error {
	return s.setEncoded(objectACLKey(bucket, key, versionID), acl)
}

func (s *Store) GetObjectACL(ctx context.Context, bucket, key, versionID string) (*metadata.AccessControlPolicy, error) {
	var acl metadata.AccessControlPolicy
	if err := s.getInto(objectACLKey(bucket, key, versionID), &acl); err != nil {
		return nil, err
	}
	return &acl, nil
}

func (s *Store) PutBucketTags(ctx context.Context, bucket string, tags map[string]string) error {
	return s.setEncoded(bucketTagsKey(bucket), tags)
}

func (s *Store) GetBucketTags(ctx context.Context, bucket string) (map[string]string, error) {
	var tags map[string]string
	if err := s.getInto(bucketTagsKey(bucket), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *Store) DeleteBucketTags(ctx context.Context, bucket string) error {
	return s.db.Delete(bucketTagsKey(bucket), pebble.Sync)
}

func (s *Store) PutObjectTags(ctx context.Context, bucket, key, versionID string, tags map[string]string) error {
	return s.setEncoded(objectTagsKey(bucket, key, versionID), tags)
}

func (s *Store) GetObjectTags(ctx context.Context, bucket, key, versionID string) (map[string]string, error) {
	var tags map[string]string
	if err := s.getInto(objectTagsKey(bucket, key, versionID), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *Store) DeleteObjectTags(ctx context.Context, bucket, key, versionID string) error {
	return s.db.Delete(objectTagsKey(bucket, key, versionID), pebble.Sync)
}

func (s *Store) SetBucketConfig(ctx context.Context, bucket string, kind metadata.BucketConfigKind, blob []byte) error {
	return s.db.Set(configKey(bucket, kind), blob, pebble.Sync)
}

func (s *Store) GetBucketConfig(ctx context.Context, bucket string, kind metadata.BucketConfigKind) ([]byte, error) {
	data, closer, err := s.db.Get(configKey(bucket, kind))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *Store) DeleteBucketConfig(ctx context.Context, bucket string, kind metadata.BucketConfigKind) error {
	return s.db.Delete(configKey(bucket, kind), pebble.Sync)
}

func (s *Store) PutObjectRetention(ctx context.Context, bucket, key, versionID string, blob []byte) error {
	return s.db.Set(retentionKey(bucket, key, versionID), blob, pebble.Sync)
}

func (s *Store) GetObjectRetention(ctx context.Context, bucket, key, versionID string) ([]byte, error) {
	data, closer, err := s.db.Get(retentionKey(bucket, key, versionID))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *Store) PutObjectLegalHold(ctx context.Context, bucket, key, versionID string, blob []byte) error {
	return s.db.Set(legalHoldKey(bucket, key, versionID), blob, pebble.Sync)
}

func (s *Store) GetObjectLegalHold(ctx context.Context, bucket, key, versionID string) ([]byte, error) {
	data, closer, err := s.db.Get(legalHoldKey(bucket, key, versionID))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// --- audit (§4.B) -------------------------------------------------------------

func (s *Store) AppendAudit(ctx context.Context, event *metadata.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return s.setEncoded(auditKey(event.Timestamp, event.ID), event)
}

func (s *Store) QueryAudit(ctx context.Context, filter metadata.AuditFilter, limit int, continuationToken string) ([]metadata.AuditEvent, string, error) {
	if limit <= 0 {
		limit = 1000
	}

	lower := []byte("audit:")
	if continuationToken != "" {
		lower = []byte(continuationToken)
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: []byte("audit;"),
	})
	if err != nil {
		return nil, "", err
	}
	defer iter.Close()

	var out []metadata.AuditEvent
	var next, lastKey string
	for iter.First(); iter.Valid(); iter.Next() {
		if continuationToken != "" && bytes.Equal(iter.Key(), []byte(continuationToken)) {
			continue
		}
		var ev metadata.AuditEvent
		if err := decode(iter.Value(), &ev); err != nil {
			continue
		}
		if filter.Bucket != "" && ev.Bucket != filter.Bucket {
			continue
		}
		if filter.Principal != "" && ev.Principal != filter.Principal {
			continue
		}
		if filter.EventType != "" && ev.EventType != filter.EventType {
			continue
		}
		if !filter.StartTime.IsZero() && ev.Timestamp.Before(filter.StartTime) {
			continue
		}
		if !filter.EndTime.IsZero() && ev.Timestamp.After(filter.EndTime) {
			continue
		}

		if len(out) >= limit {
			next = lastKey
			break
		}
		out = append(out, ev)
		lastKey = string(iter.Key())
	}

	return out, next, nil
}

// --- batch jobs ---------------------------------------------------------------

func (s *Store) CreateBatchJob(ctx context.Context, job *metadata.BatchJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.Status == "" {
		job.Status = metadata.BatchJobPending
	}
	return s.setEncoded(batchJobKey(job.ID), job)
}

func (s *Store) GetBatchJob(ctx context.Context, id string) (*metadata.BatchJob, error) {
	var job metadata.BatchJob
	if err := s.getInto(batchJobKey(id), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *Store) ListBatchJobs(ctx context.Context) ([]metadata.BatchJob, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("batchjob:"),
		UpperBound: []byte("batchjob;"),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []metadata.BatchJob
	for iter.First(); iter.Valid(); iter.Next() {
		var job metadata.BatchJob
		if err := decode(iter.Value(), &job); err != nil {
			continue
		}
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateBatchJobStatus(ctx context.Context, id string, status metadata.BatchJobStatus, failureReasons []string) error {
	job, err := s.GetBatchJob(ctx, id)
	if err != nil {
		return err
	}
	job.Status = status
	if len(failureReasons) > 0 {
		job.FailureReasons = failureReasons
	}
	if status == metadata.BatchJobComplete || status == metadata.BatchJobFailed || status == metadata.BatchJobCancelled {
		now := time.Now()
		job.CompletedAt = &now
	}
	return s.setEncoded(batchJobKey(id), job)
}

func (s *Store) DeleteBatchJob(ctx context.Context, id string) error {
	return s.db.Delete(batchJobKey(id), pebble.Sync)
}

// Package flatfile implements storage.Backend as a content-addressed
// directory tree: one file per (bucket, key, versionId), written through a
// temporary file and renamed atomically, with a sidecar file carrying the
// incrementally-computed MD5 ETag.
package flatfile

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/openendpoint/openendpoint/internal/storage"
)

var (
	bytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "openendpoint_storage_bytes_written_total",
		Help: "Total bytes written to storage",
	})
	bytesRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "openendpoint_storage_bytes_read_total",
		Help: "Total bytes read from storage",
	})
	diskIOErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openendpoint_storage_errors_total",
		Help: "Total storage errors",
	}, []string{"operation"})
)

type FlatFile struct {
	rootDir string
	logger  *zap.SugaredLogger
	mu      sync.RWMutex
}

// New creates a new flat file storage backend rooted at rootDir, removing
// any leftover .tmp.* files from a prior unclean shutdown.
func New(rootDir string, logger *zap.SugaredLogger) (*FlatFile, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}
	if logger == nil {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		logger = l.Sugar()
	}

	ff := &FlatFile{rootDir: rootDir, logger: logger}

	if err := os.MkdirAll(filepath.Join(rootDir, "buckets"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create buckets directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(rootDir, "parts"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create parts directory: %w", err)
	}

	ff.cleanupTempFiles()
	return ff, nil
}

func (f *FlatFile) cleanupTempFiles() {
	_ = filepath.Walk(f.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if strings.Contains(info.Name(), ".tmp.") {
			_ = os.Remove(path)
		}
		return nil
	})
}

func escapePath(key string) string {
	return strings.ReplaceAll(key, "/", "__ESCAPE__")
}

func (f *FlatFile) bucketPath(bucket string) string {
	return filepath.Join(f.rootDir, "buckets", bucket)
}

func (f *FlatFile) versionDir(bucket, key string) string {
	return filepath.Join(f.bucketPath(bucket), escapePath(key))
}

func (f *FlatFile) versionPath(bucket, key, versionID string) string {
	return filepath.Join(f.versionDir(bucket, key), versionID)
}

func (f *FlatFile) etagPath(bodyPath string) string { return bodyPath + ".etag" }

func (f *FlatFile) partDir(uploadID string) string {
	return filepath.Join(f.rootDir, "parts", uploadID)
}

func (f *FlatFile) partPath(uploadID string, partNumber int) string {
	return filepath.Join(f.partDir(uploadID), fmt.Sprintf("%d", partNumber))
}

func tempSuffix() string {
	return fmt.Sprintf(".tmp.%d", rand.Int63())
}

// writeAtomic streams source into dstPath via a temp file, computing MD5
// incrementally, enforcing declaredSize, and writing an etag sidecar.
func writeAtomic(dstPath string, source io.Reader, declaredSize int64) (int64, string, error) {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		diskIOErrors.WithLabelValues("mkdir").Inc()
		return 0, "", fmt.Errorf("failed to create parent directory: %w", err)
	}

	tmpPath := dstPath + tempSuffix()
	fh, err := os.Create(tmpPath)
	if err != nil {
		diskIOErrors.WithLabelValues("create").Inc()
		return 0, "", fmt.Errorf("failed to create temp file: %w", err)
	}

	hasher := md5.New()
	writer := io.MultiWriter(fh, hasher)

	written, err := io.Copy(writer, source)
	if err != nil {
		fh.Close()
		os.Remove(tmpPath)
		diskIOErrors.WithLabelValues("copy").Inc()
		return 0, "", fmt.Errorf("failed to write data: %w", err)
	}

	if err := fh.Close(); err != nil {
		os.Remove(tmpPath)
		diskIOErrors.WithLabelValues("close").Inc()
		return 0, "", fmt.Errorf("failed to close temp file: %w", err)
	}

	if declaredSize != storage.NoDeclaredSize && written < declaredSize {
		os.Remove(tmpPath)
		return 0, "", storage.ErrIncompleteBody
	}

	if err := os.Rename(tmpPath, dstPath); err != nil {
		os.Remove(tmpPath)
		diskIOErrors.WithLabelValues("rename").Inc()
		return 0, "", fmt.Errorf("failed to rename temp file: %w", err)
	}

	etag := hex.EncodeToString(hasher.Sum(nil))
	if err := os.WriteFile(dstPath+".etag", []byte(etag), 0644); err != nil {
		diskIOErrors.WithLabelValues("etag_sidecar").Inc()
		return 0, "", fmt.Errorf("failed to write etag sidecar: %w", err)
	}

	bytesWritten.Add(float64(written))
	return written, etag, nil
}

func (f *FlatFile) WriteStream(ctx context.Context, bucket, key, versionID string, source io.Reader, declaredSize int64) (int64, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	written, etag, err := writeAtomic(f.versionPath(bucket, key, versionID), source, declaredSize)
	if err != nil {
		return 0, "", err
	}
	f.logger.Debugw("object written", "bucket", bucket, "key", key, "version_id", versionID, "size", written)
	return written, etag, nil
}

func (f *FlatFile) readEtag(bodyPath string) string {
	data, err := os.ReadFile(f.etagPath(bodyPath))
	if err != nil {
		return ""
	}
	return string(data)
}

func (f *FlatFile) ReadStream(ctx context.Context, bucket, key, versionID string, rng *storage.Range) (int64, io.ReadCloser, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	path := f.versionPath(bucket, key, versionID)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil, storage.ErrNotFound
		}
		diskIOErrors.WithLabelValues("stat").Inc()
		return 0, nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		diskIOErrors.WithLabelValues("open").Inc()
		return 0, nil, err
	}

	size := info.Size()
	var reader io.Reader = file
	if rng != nil {
		if rng.Start > size-1 {
			file.Close()
			return 0, nil, storage.ErrInvalidRange
		}
		if _, err := file.Seek(rng.Start, io.SeekStart); err != nil {
			file.Close()
			diskIOErrors.WithLabelValues("seek").Inc()
			return 0, nil, err
		}
		reader = io.LimitReader(file, rng.End-rng.Start+1)
	}

	bytesRead.Add(float64(size))
	return size, &readCloser{Reader: reader, Closer: file}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

func (f *FlatFile) Delete(ctx context.Context, bucket, key, versionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.versionPath(bucket, key, versionID)
	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			diskIOErrors.WithLabelValues("delete").Inc()
			return fmt.Errorf("failed to delete object: %w", err)
		}
	}
	os.Remove(f.etagPath(path))
	f.cleanupEmptyDirs(filepath.Dir(path))
	return nil
}

func (f *FlatFile) cleanupEmptyDirs(dir string) {
	root := filepath.Join(f.rootDir, "buckets")
	for dir != root && strings.HasPrefix(dir, root) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func (f *FlatFile) Head(ctx context.Context, bucket, key, versionID string) (int64, string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	path := f.versionPath(bucket, key, versionID)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, "", storage.ErrNotFound
		}
		return 0, "", err
	}
	return info.Size(), f.readEtag(path), nil
}

func (f *FlatFile) StagePart(ctx context.Context, uploadID string, partNumber int, source io.Reader, declaredSize int64) (int64, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return writeAtomic(f.partPath(uploadID, partNumber), source, declaredSize)
}

func (f *FlatFile) UploadPartCopy(ctx context.Context, uploadID string, partNumber int, srcBucket, srcKey, srcVersionID string, rng *storage.Range) (int64, string, error) {
	_, body, err := f.ReadStream(ctx, srcBucket, srcKey, srcVersionID, rng)
	if err != nil {
		return 0, "", err
	}
	defer body.Close()

	f.mu.Lock()
	defer f.mu.Unlock()
	return writeAtomic(f.partPath(uploadID, partNumber), body, storage.NoDeclaredSize)
}

func (f *FlatFile) DeleteStagedParts(ctx context.Context, uploadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.RemoveAll(f.partDir(uploadID)); err != nil {
		diskIOErrors.WithLabelValues("delete_staged_parts").Inc()
		return err
	}
	return nil
}

// Concatenate streams each part (in the order given — the caller must have
// already validated strictly-ascending partNumber and minimum part sizes)
// into the destination, hashing each part's own MD5 along the way so the
// multipart ETag formula hex(MD5(concat(partMD5s)))+"-N" can be computed
// without re-reading the materialized object.
func (f *FlatFile) Concatenate(ctx context.Context, bucket, key, versionID string, parts []storage.PartRef) (int64, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	dstPath := f.versionPath(bucket, key, versionID)
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return 0, "", fmt.Errorf("failed to create parent directory: %w", err)
	}

	tmpPath := dstPath + tempSuffix()
	fh, err := os.Create(tmpPath)
	if err != nil {
		diskIOErrors.WithLabelValues("concat_create").Inc()
		return 0, "", fmt.Errorf("failed to create temp file: %w", err)
	}

	concatMD5 := md5.New()
	var total int64

	for _, p := range parts {
		srcPath := f.partPath(p.UploadID, p.PartNumber)
		src, err := os.Open(srcPath)
		if err != nil {
			fh.Close()
			os.Remove(tmpPath)
			return 0, "", fmt.Errorf("failed to open staged part %d: %w", p.PartNumber, err)
		}

		n, err := io.Copy(fh, src)
		src.Close()
		if err != nil {
			fh.Close()
			os.Remove(tmpPath)
			return 0, "", fmt.Errorf("failed to concatenate part %d: %w", p.PartNumber, err)
		}
		total += n

		partMD5Hex := f.readEtag(srcPath)
		partMD5, err := hex.DecodeString(partMD5Hex)
		if err != nil {
			fh.Close()
			os.Remove(tmpPath)
			return 0, "", fmt.Errorf("invalid staged part etag for part %d", p.PartNumber)
		}
		concatMD5.Write(partMD5)
	}

	if err := fh.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dstPath); err != nil {
		os.Remove(tmpPath)
		return 0, "", fmt.Errorf("failed to rename temp file: %w", err)
	}

	etag := fmt.Sprintf("%s-%d", hex.EncodeToString(concatMD5.Sum(nil)), len(parts))
	if err := os.WriteFile(dstPath+".etag", []byte(etag), 0644); err != nil {
		return 0, "", fmt.Errorf("failed to write etag sidecar: %w", err)
	}

	bytesWritten.Add(float64(total))
	return total, etag, nil
}

func (f *FlatFile) CreateBucket(ctx context.Context, bucket string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.bucketPath(bucket), 0755); err != nil {
		diskIOErrors.WithLabelValues("create_bucket").Inc()
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func (f *FlatFile) DeleteBucket(ctx context.Context, bucket string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.RemoveAll(f.bucketPath(bucket)); err != nil {
		diskIOErrors.WithLabelValues("delete_bucket").Inc()
		return fmt.Errorf("failed to delete bucket: %w", err)
	}
	return nil
}

func (f *FlatFile) Close() error { return nil }

// NewTestBackend creates a backend rooted in a fresh temp directory.
func NewTestBackend() *FlatFile {
	tmpDir, _ := os.MkdirTemp("", "openendpoint-test-*")
	logger, _ := zap.NewDevelopment()
	ff, _ := New(tmpDir, logger.Sugar())
	return ff
}

// GetDataDir returns the root data directory.
func (f *FlatFile) GetDataDir() string { return f.rootDir }

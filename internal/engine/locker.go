package engine

import "github.com/openendpoint/openendpoint/internal/syncutil"

// Locker stripes per-object locks on "bucket/key"; the striping itself
// lives in internal/syncutil so internal/multipart can stripe per-upload
// locks on the same primitive without importing this package back.
type Locker = syncutil.Locker

// NewLocker creates a new Locker.
func NewLocker() *Locker {
	return syncutil.NewLocker()
}

func objectLockID(bucket, key string) string { return bucket + "/" + key }

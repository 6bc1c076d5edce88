// Package sweep removes blobs that have no metadata row. The upload workflow
// cleans up after its own failures, but a crash between the blob write and
// the commit leaves an orphan behind; this is the reconciliation for that.
package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"dronewerx/internal/storage"
)

// Index answers whether a storage path is referenced by a metadata row.
type Index interface {
	ExistsByStoragePath(ctx context.Context, storagePath string) (bool, error)
}

type Store interface {
	Walk(fn func(storage.BlobInfo) error) error
	Remove(key string) error
}

type Result struct {
	Scanned int
	Orphans int
	Removed int
	Failed  int
}

type Sweeper struct {
	index Index
	blobs Store
	grace time.Duration
	log   logrus.FieldLogger
	now   func() time.Time
}

// New returns a sweeper that leaves blobs younger than grace alone, since
// their upload may still be committing.
func New(index Index, blobs Store, grace time.Duration, log logrus.FieldLogger) *Sweeper {
	return &Sweeper{index: index, blobs: blobs, grace: grace, log: log, now: time.Now}
}

// Run makes one pass over the blob tree. With dryRun set orphans are only reported.
func (s *Sweeper) Run(ctx context.Context, dryRun bool) (Result, error) {
	var res Result
	cutoff := s.now().Add(-s.grace)

	err := s.blobs.Walk(func(b storage.BlobInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res.Scanned++
		if b.ModTime.After(cutoff) {
			return nil
		}

		referenced, err := s.index.ExistsByStoragePath(ctx, b.Key)
		if err != nil {
			return fmt.Errorf("look up %s: %w", b.Key, err)
		}
		if referenced {
			return nil
		}

		res.Orphans++
		log := s.log.WithFields(logrus.Fields{"storage_path": b.Key, "size_bytes": b.Size, "mod_time": b.ModTime})
		if dryRun {
			log.Info("orphan blob found (dry run)")
			return nil
		}
		if err := s.blobs.Remove(b.Key); err != nil {
			res.Failed++
			log.WithError(err).Error("orphan blob removal failed")
			return nil
		}
		res.Removed++
		log.Info("orphan blob removed")
		return nil
	})
	if err != nil {
		return res, err
	}

	s.log.WithFields(logrus.Fields{
		"scanned": res.Scanned,
		"orphans": res.Orphans,
		"removed": res.Removed,
		"failed":  res.Failed,
		"dry_run": dryRun,
	}).Info("orphan sweep completed")
	return res, nil
}

// Loop runs a sweep every interval until ctx is done. Failed passes are
// logged and retried on the next tick.
func (s *Sweeper) Loop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Run(ctx, false); err != nil && ctx.Err() == nil {
				s.log.WithError(err).Error("orphan sweep failed")
			}
		}
	}
}

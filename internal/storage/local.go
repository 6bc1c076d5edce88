package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Prefix is the first segment of every storage key.
const Prefix = "uploads"

// Local stores blobs under BaseDir in a tree partitioned by UTC date:
// <BaseDir>/uploads/YYYY/MM/DD/<id><ext>.
type Local struct {
	baseDir  string
	maxBytes int64
}

// NewLocal returns a store rooted at baseDir. maxBytes <= 0 disables the size cap.
func NewLocal(baseDir string, maxBytes int64) *Local {
	if baseDir == "" {
		baseDir = "."
	}
	return &Local{baseDir: baseDir, maxBytes: maxBytes}
}

func (l *Local) BaseDir() string { return l.baseDir }

// Key builds the storage key, which is also the storage_path recorded for the blob.
func Key(now time.Time, id, ext string) string {
	now = now.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s%s", Prefix, now.Year(), now.Month(), now.Day(), id, ext)
}

// Extension returns the suffix of name starting at its last '.', or "" when
// there is none. A suffix carrying a path separator is dropped so the
// declared filename cannot move the blob out of its partition.
func Extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	ext := name[i:]
	if strings.ContainsAny(ext, `/\`) {
		return ""
	}
	return ext
}

// Path resolves a storage key to its location on disk.
func (l *Local) Path(key string) (string, error) {
	clean := path.Clean(key)
	if clean != key || !strings.HasPrefix(clean, Prefix+"/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(l.baseDir, filepath.FromSlash(clean)), nil
}

// Save streams r into a new file at key and returns the size measured on
// disk after the data is synced. The file is removed on every failure,
// including the size cap and a cancelled ctx.
func (l *Local) Save(ctx context.Context, key string, r io.Reader) (size int64, err error) {
	dst, err := l.Path(key)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("create partition directory: %w", err)
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create blob: %w", err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(dst)
		}
	}()

	src := io.Reader(&ctxReader{ctx: ctx, r: r})
	if l.maxBytes > 0 {
		src = io.LimitReader(src, l.maxBytes+1)
	}

	n, err := io.Copy(f, src)
	if err != nil {
		return 0, fmt.Errorf("write blob: %w", err)
	}
	if l.maxBytes > 0 && n > l.maxBytes {
		return 0, ErrTooLarge
	}
	if err = f.Sync(); err != nil {
		return 0, fmt.Errorf("sync blob: %w", err)
	}
	if err = f.Close(); err != nil {
		return 0, fmt.Errorf("close blob: %w", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		return 0, fmt.Errorf("stat blob: %w", err)
	}
	return info.Size(), nil
}

// Open returns the blob for reading.
func (l *Local) Open(key string) (*os.File, error) {
	p, err := l.Path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrBlobMissing, key)
	}
	return f, err
}

// Remove deletes the blob. Removing a missing blob is not an error.
func (l *Local) Remove(key string) error {
	p, err := l.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// BlobInfo describes a stored blob found by Walk.
type BlobInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Walk calls fn for every regular file under the uploads tree.
func (l *Local) Walk(fn func(BlobInfo) error) error {
	root := filepath.Join(l.baseDir, Prefix)
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(l.baseDir, p)
		if err != nil {
			return err
		}
		return fn(BlobInfo{Key: filepath.ToSlash(rel), Size: info.Size(), ModTime: info.ModTime()})
	})
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

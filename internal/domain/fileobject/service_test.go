package fileobject

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"dronewerx/internal/database"
	"dronewerx/internal/pkg/logging"
	"dronewerx/internal/storage"
)

var storagePathPattern = regexp.MustCompile(`^uploads/\d{4}/\d{2}/\d{2}/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.txt$`)

type trackingBody struct {
	io.Reader
	mu     sync.Mutex
	closed bool
}

func newBody(s string) *trackingBody { return &trackingBody{Reader: strings.NewReader(s)} }

func (b *trackingBody) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *trackingBody) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func setupTestRepo(t *testing.T) Repository {
	t.Helper()
	db, err := database.Connect(":memory:", database.Options{Log: logging.Discard()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.Provision(context.Background(), db))
	return NewRepository(db)
}

func setupTestService(t *testing.T, opts ...Option) (*Service, Repository, *storage.Local) {
	t.Helper()
	repo := setupTestRepo(t)
	blobs := storage.NewLocal(t.TempDir(), 1024)
	return NewService(repo, blobs, logging.Discard(), opts...), repo, blobs
}

func fixedClock(at time.Time) Option {
	return WithClock(func() time.Time { return at })
}

// sequenceClock returns the given instants in order, repeating the last one.
func sequenceClock(times ...time.Time) Option {
	var mu sync.Mutex
	i := 0
	return WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := times[min(i, len(times)-1)]
		i++
		return t
	})
}

func blobPath(t *testing.T, blobs *storage.Local, key string) string {
	t.Helper()
	p, err := blobs.Path(key)
	require.NoError(t, err)
	return p
}

func TestUploadStoresBlobAndRow(t *testing.T) {
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	svc, repo, blobs := setupTestService(t, fixedClock(now))
	body := newBody("0123456789")

	f, err := svc.Upload(context.Background(), UploadInput{Filename: "a.txt", ContentType: "text/plain", Body: body})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, f.ID)
	assert.Equal(t, "a.txt", f.OriginalName)
	assert.Equal(t, "text/plain", f.ContentType)
	assert.Equal(t, int64(10), f.SizeBytes)
	assert.Equal(t, "uploads/2025/06/01/"+f.ID.String()+".txt", f.StoragePath)
	assert.Regexp(t, storagePathPattern, f.StoragePath)
	assert.True(t, f.UploadedAt.Equal(now), "uploaded_at %s", f.UploadedAt)
	assert.Nil(t, f.UploadedBy)
	assert.True(t, body.isClosed())

	got, err := os.ReadFile(blobPath(t, blobs, f.StoragePath))
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(got))
	assert.Equal(t, int64(len(got)), f.SizeBytes)

	stored, err := repo.GetByID(context.Background(), f.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(f, stored); diff != "" {
		t.Fatalf("stored row differs from returned row (-returned +stored):\n%s", diff)
	}
}

func TestUploadWithoutExtension(t *testing.T) {
	svc, _, _ := setupTestService(t)

	f, err := svc.Upload(context.Background(), UploadInput{Filename: "README", ContentType: "text/plain", Body: newBody("x")})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(f.StoragePath, "/"+f.ID.String()), f.StoragePath)
}

func TestUploadDoesNotLetFilenameEscapePartition(t *testing.T) {
	svc, _, blobs := setupTestService(t)

	f, err := svc.Upload(context.Background(), UploadInput{Filename: "x./../../../escape", ContentType: "text/plain", Body: newBody("x")})
	require.NoError(t, err)
	assert.Equal(t, "x./../../../escape", f.OriginalName)
	assert.True(t, strings.HasSuffix(f.StoragePath, "/"+f.ID.String()), f.StoragePath)
	assert.FileExists(t, blobPath(t, blobs, f.StoragePath))
}

func TestUploadStorageFailureCreatesNoRow(t *testing.T) {
	repo := setupTestRepo(t)
	base := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(base, []byte("not a directory"), 0o644))
	svc := NewService(repo, storage.NewLocal(base, 0), logging.Discard())
	body := newBody("payload")

	_, err := svc.Upload(context.Background(), UploadInput{Filename: "a.txt", ContentType: "text/plain", Body: body})
	require.ErrorIs(t, err, ErrStorage)
	assert.True(t, body.isClosed())

	files, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestUploadDBFailureRemovesBlob(t *testing.T) {
	now := time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC)
	id := uuid.MustParse("8f14e45f-ceea-467f-a0e6-2f7b9c4d1a11")
	svc, repo, blobs := setupTestService(t, fixedClock(now), WithIDGenerator(func() uuid.UUID { return id }))

	// occupy the id so the insert hits the primary key
	_, err := repo.Create(context.Background(), &FileObject{
		ID:           id,
		OriginalName: "existing.bin",
		ContentType:  "application/octet-stream",
		SizeBytes:    1,
		StoragePath:  "uploads/2000/01/01/existing.bin",
		UploadedAt:   now.Add(-time.Hour),
	})
	require.NoError(t, err)

	body := newBody("second")
	_, err = svc.Upload(context.Background(), UploadInput{Filename: "b.txt", ContentType: "text/plain", Body: body})
	require.ErrorIs(t, err, ErrPersist)
	assert.True(t, body.isClosed())

	assert.NoFileExists(t, blobPath(t, blobs, storage.Key(now, id.String(), ".txt")))

	files, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "existing.bin", files[0].OriginalName)
}

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Create(ctx context.Context, f *FileObject) (*FileObject, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FileObject), args.Error(1)
}

func (m *mockRepository) List(ctx context.Context) ([]FileObject, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]FileObject), args.Error(1)
}

func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*FileObject, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FileObject), args.Error(1)
}

func (m *mockRepository) ExistsByStoragePath(ctx context.Context, storagePath string) (bool, error) {
	args := m.Called(ctx, storagePath)
	return args.Bool(0), args.Error(1)
}

// stuckBlobs writes normally but can never remove.
type stuckBlobs struct {
	*storage.Local
}

func (stuckBlobs) Remove(string) error { return errors.New("device busy") }

func TestUploadLogsFailedCompensation(t *testing.T) {
	repo := new(mockRepository)
	commitErr := errors.New("commit failed: connection reset")
	repo.On("Create", mock.Anything, mock.AnythingOfType("*fileobject.FileObject")).Return(nil, commitErr)

	log, hook := logtest.NewNullLogger()
	blobs := stuckBlobs{storage.NewLocal(t.TempDir(), 0)}
	svc := NewService(repo, blobs, log)
	body := newBody("abc")

	_, err := svc.Upload(context.Background(), UploadInput{Filename: "c.txt", ContentType: "text/plain", Body: body})
	require.ErrorIs(t, err, ErrPersist)
	assert.ErrorIs(t, err, commitErr, "the database error is surfaced, not the removal error")
	assert.True(t, body.isClosed())
	repo.AssertExpectations(t)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Contains(t, entry.Message, "orphaned")
	assert.Equal(t, "device busy", entry.Data["remove_error"])
}

func TestUploadTooLarge(t *testing.T) {
	repo := new(mockRepository)
	dir := t.TempDir()
	svc := NewService(repo, storage.NewLocal(dir, 4), logging.Discard())
	body := newBody("12345")

	_, err := svc.Upload(context.Background(), UploadInput{Filename: "big.bin", ContentType: "application/octet-stream", Body: body})
	require.ErrorIs(t, err, ErrFileTooLarge)
	assert.True(t, body.isClosed())
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	var leftovers int
	require.NoError(t, storage.NewLocal(dir, 0).Walk(func(storage.BlobInfo) error {
		leftovers++
		return nil
	}))
	assert.Zero(t, leftovers)
}

func TestConcurrentUploadsGetDistinctIDs(t *testing.T) {
	svc, repo, _ := setupTestService(t)

	const n = 20
	ids := make([]uuid.UUID, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			f, err := svc.Upload(context.Background(), UploadInput{Filename: "same.txt", ContentType: "text/plain", Body: newBody("same bytes")})
			if err != nil {
				return err
			}
			ids[i] = f.ID
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[uuid.UUID]bool, n)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}

	files, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, files, n)
}

func TestListMostRecentFirst(t *testing.T) {
	t0 := time.Date(2025, time.June, 3, 9, 0, 0, 0, time.UTC)
	svc, _, _ := setupTestService(t, sequenceClock(t0, t0.Add(time.Minute), t0.Add(2*time.Minute)))

	for _, name := range []string{"first.txt", "second.txt", "third.txt"} {
		_, err := svc.Upload(context.Background(), UploadInput{Filename: name, ContentType: "text/plain", Body: newBody(name)})
		require.NoError(t, err)
	}

	files, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, []string{"third.txt", "second.txt", "first.txt"},
		[]string{files[0].OriginalName, files[1].OriginalName, files[2].OriginalName})
	for i := 1; i < len(files); i++ {
		assert.True(t, files[i-1].UploadedAt.After(files[i].UploadedAt))
	}
}

func TestTwoUploadsWithinOneSecond(t *testing.T) {
	t0 := time.Date(2025, time.June, 4, 10, 0, 0, 0, time.UTC)
	svc, _, _ := setupTestService(t, sequenceClock(t0.Add(100*time.Millisecond), t0.Add(600*time.Millisecond)))

	a, err := svc.Upload(context.Background(), UploadInput{Filename: "a.txt", ContentType: "text/plain", Body: newBody("a")})
	require.NoError(t, err)
	b, err := svc.Upload(context.Background(), UploadInput{Filename: "b.txt", ContentType: "text/plain", Body: newBody("b")})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	files, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, b.ID, files[0].ID)
	assert.Equal(t, a.ID, files[1].ID)
}

func TestOpenReturnsBlob(t *testing.T) {
	svc, _, blobs := setupTestService(t)

	f, err := svc.Upload(context.Background(), UploadInput{Filename: "a.txt", ContentType: "text/plain", Body: newBody("hello")})
	require.NoError(t, err)

	meta, blob, err := svc.Open(context.Background(), f.ID)
	require.NoError(t, err)
	defer blob.Close()
	assert.Equal(t, f.ID, meta.ID)
	data, err := io.ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, blobs.Remove(f.StoragePath))
	_, _, err = svc.Open(context.Background(), f.ID)
	assert.ErrorIs(t, err, storage.ErrBlobMissing)

	_, _, err = svc.Open(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrFileNotFound)
}

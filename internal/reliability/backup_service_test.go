package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aristath/dealdesk/internal/events"
	testutil "github.com/aristath/dealdesk/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory ObjectStore
type memStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleteErr error
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (m *memStore) Upload(ctx context.Context, key string, body io.Reader, size int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: %d != %d", len(data), size)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []ObjectInfo
	for key, data := range m.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			out = append(out, ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return out, nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func backupKeyAt(t time.Time) string {
	return backupPrefix + t.UTC().Format(backupTimeLayout) + backupSuffix
}

func setupBackup(t *testing.T, store ObjectStore, retentionDays int) (*BackupService, *events.Bus) {
	t.Helper()

	db, cleanup := testutil.NewTestDB(t, "crm")
	t.Cleanup(cleanup)

	_, err := db.Conn().Exec(`INSERT INTO team_members (id, name, created_at) VALUES ('m-1', 'Ada', '2026-10-01T00:00:00Z')`)
	require.NoError(t, err)

	log := zerolog.Nop()
	bus := events.NewBus(log)
	service := NewBackupService(db, store, t.TempDir(), retentionDays, events.NewManager(bus, log), log)
	service.now = func() time.Time { return testutil.FixedNow }
	return service, bus
}

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()

	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	files := make(map[string][]byte)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[header.Name] = content
	}
	return files
}

func TestBackupService_CreateAndUpload(t *testing.T) {
	store := newMemStore()
	service, bus := setupBackup(t, store, 30)

	var completed *events.BackupCompletedData
	bus.Subscribe(events.BackupCompleted, func(event *events.Event) {
		completed, _ = event.GetTypedData().(*events.BackupCompletedData)
	})

	result, err := service.CreateAndUpload(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "dealdesk-backup-2026-10-16-120000.tar.gz", result.Key)
	assert.Equal(t, []string{result.Key}, store.keys())
	assert.Zero(t, result.Rotated)

	files := readArchive(t, store.objects[result.Key])
	require.Contains(t, files, "crm.db")
	require.Contains(t, files, metadataFilename)

	sum := sha256.Sum256(files["crm.db"])
	assert.Equal(t, fmt.Sprintf("sha256:%x", sum), result.Checksum)

	var metadata BackupMetadata
	require.NoError(t, json.Unmarshal(files[metadataFilename], &metadata))
	require.Len(t, metadata.Databases, 1)
	assert.Equal(t, "crm", metadata.Databases[0].Name)
	assert.Equal(t, result.Checksum, metadata.Databases[0].Checksum)
	assert.True(t, metadata.Timestamp.Equal(testutil.FixedNow))

	require.NotNil(t, completed)
	assert.Equal(t, result.Key, completed.Key)
	assert.Equal(t, result.SizeBytes, completed.SizeBytes)
}

func TestBackupService_Rotation(t *testing.T) {
	store := newMemStore()
	for _, age := range []int{10, 40, 50, 60} {
		store.objects[backupKeyAt(testutil.FixedNow.AddDate(0, 0, -age))] = []byte("old")
	}
	store.objects["unrelated-file.txt"] = []byte("x")

	service, _ := setupBackup(t, store, 30)

	result, err := service.CreateAndUpload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rotated)

	assert.Equal(t, []string{
		backupKeyAt(testutil.FixedNow.AddDate(0, 0, -40)),
		backupKeyAt(testutil.FixedNow.AddDate(0, 0, -10)),
		backupKeyAt(testutil.FixedNow),
		"unrelated-file.txt",
	}, store.keys())
}

func TestBackupService_RotationKeepsMinimum(t *testing.T) {
	store := newMemStore()
	for _, age := range []int{100, 200, 300} {
		store.objects[backupKeyAt(testutil.FixedNow.AddDate(0, 0, -age))] = []byte("old")
	}

	service, _ := setupBackup(t, store, 7)

	deleted, err := service.RotateOldBackups(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted, "the newest three archives are always kept")
	assert.Len(t, store.keys(), 3)
}

func TestBackupService_RotationDisabled(t *testing.T) {
	store := newMemStore()
	for _, age := range []int{100, 200, 300, 400, 500} {
		store.objects[backupKeyAt(testutil.FixedNow.AddDate(0, 0, -age))] = []byte("old")
	}

	service, _ := setupBackup(t, store, 0)

	deleted, err := service.RotateOldBackups(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Len(t, store.keys(), 5)
}

func TestBackupService_RotationFailureKeepsBackup(t *testing.T) {
	store := newMemStore()
	for _, age := range []int{40, 50, 60, 70} {
		store.objects[backupKeyAt(testutil.FixedNow.AddDate(0, 0, -age))] = []byte("old")
	}
	store.deleteErr = errors.New("access denied")

	service, _ := setupBackup(t, store, 30)

	result, err := service.CreateAndUpload(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Rotated)
	assert.Len(t, store.keys(), 5)
}

func TestBackupService_ListBackups(t *testing.T) {
	store := newMemStore()
	store.objects[backupKeyAt(testutil.FixedNow.Add(-48*time.Hour))] = []byte("a")
	store.objects[backupKeyAt(testutil.FixedNow.Add(-2*time.Hour))] = []byte("bb")
	store.objects[backupPrefix+"garbage"+backupSuffix] = []byte("c")

	service, _ := setupBackup(t, store, 30)

	backups, err := service.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, int64(2), backups[0].AgeHours)
	assert.Equal(t, int64(2), backups[0].SizeBytes)
	assert.Equal(t, int64(48), backups[1].AgeHours)
}

func TestParseBackupKey(t *testing.T) {
	ts, ok := parseBackupKey("dealdesk-backup-2026-01-08-143022.tar.gz")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 1, 8, 14, 30, 22, 0, time.UTC), ts)

	for _, key := range []string{
		"dealdesk-backup-2026-01-08.tar.gz",
		"other-2026-01-08-143022.tar.gz",
		"dealdesk-backup-2026-01-08-143022.zip",
	} {
		_, ok := parseBackupKey(key)
		assert.False(t, ok, key)
	}
}

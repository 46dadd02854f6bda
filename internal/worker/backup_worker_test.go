package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"hermes/internal/filestore"
	"hermes/internal/models"
	"hermes/internal/repository/inmemory"
	"hermes/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingExporter struct {
	owners []uuid.UUID
	failOn uuid.UUID
	inner  *store.Store
	calls  map[uuid.UUID]int
}

func (f *failingExporter) Owners(ctx context.Context) ([]uuid.UUID, error) {
	return f.owners, nil
}

func (f *failingExporter) ExportAll(ctx context.Context, owner uuid.UUID) (*store.Snapshot, error) {
	if f.calls != nil {
		f.calls[owner]++
	}
	if owner == f.failOn {
		return nil, errors.New("export failed")
	}
	return f.inner.ExportAll(ctx, owner)
}

func newBackupWorker(t *testing.T, source Exporter, batch int) (*BackupWorker, *filestore.Local) {
	t.Helper()
	files, err := filestore.NewLocal(t.TempDir())
	require.NoError(t, err)
	w := NewBackupWorker(source, files, nil, &batch)
	w.now = func() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) }
	return w, files
}

// TestBackupWorker_RunOnce тестирует сохранение снимков
func TestBackupWorker_RunOnce(t *testing.T) {
	ctx := context.Background()
	st := store.New(inmemory.NewSubstrate())
	alice, bob := uuid.New(), uuid.New()
	_, _, err := st.CreateProject(ctx, alice, &models.Project{Title: "Alpha"})
	require.NoError(t, err)
	_, _, err = st.CreateProject(ctx, bob, &models.Project{Title: "Beta"})
	require.NoError(t, err)

	w, files := newBackupWorker(t, st, 10)
	assert.Equal(t, 2, w.RunOnce(ctx))

	data, err := files.Get(ctx, BackupKey(alice, w.now()))
	require.NoError(t, err)
	var snap store.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, alice, snap.OwnerID)
	require.Len(t, snap.Projects, 1)
	assert.Equal(t, "Alpha", snap.Projects[0].Title)
}

// TestBackupWorker_Errors тестирует пропуск ошибок и ограничение пачки
func TestBackupWorker_Errors(t *testing.T) {
	ctx := context.Background()
	st := store.New(inmemory.NewSubstrate())
	owners := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	tests := []struct {
		name     string
		failOn   uuid.UUID
		batch    int
		expected int
	}{
		{name: "success - all owners", batch: 10, expected: 3},
		{name: "success - batch limit", batch: 2, expected: 2},
		{name: "error - one owner fails", failOn: owners[1], batch: 10, expected: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &failingExporter{owners: owners, failOn: tt.failOn, inner: st}
			w, _ := newBackupWorker(t, source, tt.batch)
			assert.Equal(t, tt.expected, w.RunOnce(ctx))
		})
	}
}

// TestBackupWorker_RunOnceRotates тестирует, что пачки по очереди обходят всех пользователей
func TestBackupWorker_RunOnceRotates(t *testing.T) {
	ctx := context.Background()
	st := store.New(inmemory.NewSubstrate())
	owners := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	tests := []struct {
		name     string
		batch    int
		runs     int
		failOn   uuid.UUID
		expected []int
	}{
		{name: "success - batch of one", batch: 1, runs: 3, expected: []int{1, 1, 1}},
		{name: "success - wraps around", batch: 2, runs: 3, expected: []int{2, 2, 2}},
		{name: "error - failed owner does not block the rest", batch: 1, runs: 3, failOn: owners[0], expected: []int{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &failingExporter{owners: owners, failOn: tt.failOn, inner: st, calls: map[uuid.UUID]int{}}
			w, _ := newBackupWorker(t, source, tt.batch)
			for i := 0; i < tt.runs; i++ {
				w.RunOnce(ctx)
			}
			for i, owner := range owners {
				assert.Equal(t, tt.expected[i], source.calls[owner], "owner %d", i)
			}
		})
	}
}

// TestBackupWorker_Start тестирует остановку по контексту
func TestBackupWorker_Start(t *testing.T) {
	interval := 10 * time.Millisecond
	files, err := filestore.NewLocal(t.TempDir())
	require.NoError(t, err)
	w := NewBackupWorker(store.New(inmemory.NewSubstrate()), files, &interval, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestBackupKey(t *testing.T) {
	owner := uuid.MustParse("7f1c0a6e-2b7e-4a53-9d2e-3c1f6b0a9e11")
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("MSK", 3*3600))
	assert.Equal(t, "backups/7f1c0a6e-2b7e-4a53-9d2e-3c1f6b0a9e11/20260102T000405Z.json", BackupKey(owner, at))
}

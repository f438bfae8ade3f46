package runlog

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)

func sampleRuns() []RunRecord {
	return []RunRecord{
		{RunID: "r1", Timestamp: base, Total: 3, Placed: 2, Unplaced: 1,
			PlacedIDs: []string{"L1", "L2"}, UnplacedIDs: []string{"L3"}},
		{RunID: "r2", Timestamp: base.Add(time.Hour), Total: 3, Placed: 1,
			Released: []string{"L3"}, PlacedIDs: []string{"L3"}},
		{RunID: "r3", Timestamp: base.Add(2 * time.Hour), Total: 1, Placed: 1,
			PlacedIDs: []string{"L9"}},
	}
}

// exerciseStore runs the shared query contract against any backend.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	for _, r := range sampleRuns() {
		require.NoError(t, store.Append(ctx, r))
	}

	all, err := store.Query(ctx, RunQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "r1", all[0].RunID)
	assert.Equal(t, "r3", all[2].RunID)
	assert.Equal(t, []string{"L3"}, all[0].UnplacedIDs)

	byBatch, err := store.Query(ctx, RunQuery{BatchID: "L3"})
	require.NoError(t, err)
	require.Len(t, byBatch, 2)
	assert.Equal(t, "r1", byBatch[0].RunID)
	assert.Equal(t, "r2", byBatch[1].RunID)

	window, err := store.Query(ctx, RunQuery{Start: base.Add(30 * time.Minute), End: base.Add(90 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "r2", window[0].RunID)

	last, err := store.Query(ctx, RunQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "r2", last[0].RunID)

	none, err := store.Query(ctx, RunQuery{BatchID: "missing"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestJSONLStore_Query(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "runs.jsonl"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	exerciseStore(t, store)
}

func TestRotatingJSONLStore_Query(t *testing.T) {
	store, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "logs", "runs.jsonl"), 1, 2, 1)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	exerciseStore(t, store)
}

func TestSQLiteStore_Query(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()
	exerciseStore(t, store)
}

func TestRotatingJSONLStore_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	store, err := NewRotatingJSONLStore(path, 1, 5, 1)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	ids := make([]string, 2000)
	for i := range ids {
		ids[i] = "LOT-00000000-0000"
	}
	rec := RunRecord{RunID: "big", Timestamp: base, PlacedIDs: ids}
	for i := 0; i < 40; i++ {
		if err := store.Append(context.Background(), rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	files, err := store.files()
	require.NoError(t, err)
	if len(files) < 2 {
		t.Fatalf("expected rotated files, got %v", files)
	}
	out, err := store.Query(context.Background(), RunQuery{})
	require.NoError(t, err)
	assert.Len(t, out, 40)
}

func TestJSONLStore_SkipsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	store, err := NewJSONLStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), RunRecord{RunID: "ok", Timestamp: base}))
	writeRaw(t, path, "not json\n")
	out, err := store.Query(context.Background(), RunQuery{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "ok", out[0].RunID)
}

func TestAppend_Cancelled(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "runs.jsonl"))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.Append(ctx, RunRecord{RunID: "x"}), context.Canceled)
}

func TestNewStore(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		backend string
		want    any
	}{
		{"", NopStore{}},
		{"none", NopStore{}},
		{"jsonl", &JSONLStore{}},
		{"rotating", &RotatingJSONLStore{}},
		{"sqlite", &SQLiteStore{}},
	}
	for _, c := range cases {
		t.Run(c.backend, func(t *testing.T) {
			store, err := NewStore(Config{Backend: c.backend, Path: filepath.Join(dir, c.backend+".out")})
			require.NoError(t, err)
			defer func() { _ = store.Close() }()
			assert.IsType(t, c.want, store)
		})
	}

	_, err := NewStore(Config{Backend: "postgres"})
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
	assert.ErrorIs(t, Config{Backend: "postgres"}.Validate(), ErrUnknownBackend)
}

func TestConfig_SetDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.Equal(t, "none", c.Backend)
	assert.Equal(t, "saltplan-runs.jsonl", c.Path)
	assert.Equal(t, 10, c.MaxSizeMB)

	s := Config{Backend: "sqlite"}
	s.SetDefaults()
	assert.Equal(t, "saltplan-runs.db", s.Path)
}

func TestRunRecord_JSON(t *testing.T) {
	data, err := json.Marshal(RunRecord{RunID: "r", Timestamp: base, Released: []string{"L1"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"run_id", "timestamp", "placed", "unplaced", "released"} {
		if _, ok := m[k]; !ok {
			t.Errorf("missing key %s", k)
		}
	}
	if _, ok := m["unplaced_ids"]; ok {
		t.Errorf("empty id lists should be omitted")
	}
}

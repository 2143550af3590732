package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/TrevorS/abstraction"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun() Run {
	return Run{
		Stage:       "flop",
		Metric:      "emd",
		Init:        "random",
		FirstIndex:  42,
		Iterations:  7,
		Converged:   true,
		Centers:     []abstraction.Histogram{{0.5, 0.5, 0}, {0, 0.25, 0.75}},
		Assignments: []int{0, 1, 1, 0, 1},
	}
}

func TestStore_SaveLoad(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	saved, err := s.SaveRun(ctx, sampleRun())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.Equal(t, 3, saved.Bins)

	got, err := s.LoadRun(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, "flop", got.Stage)
	assert.Equal(t, "emd", got.Metric)
	assert.Equal(t, "random", got.Init)
	assert.Equal(t, uint64(42), got.FirstIndex)
	assert.Equal(t, 7, got.Iterations)
	assert.True(t, got.Converged)
	assert.Equal(t, 2, got.K())
	assert.Equal(t, saved.Centers, got.Centers)
	assert.Equal(t, saved.Assignments, got.Assignments)
	assert.True(t, saved.CreatedAt.Equal(got.CreatedAt))
}

func TestStore_LoadMissing(t *testing.T) {
	s := openTemp(t)
	_, err := s.LoadRun(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i, stage := range []string{"preflop", "flop", "turn"} {
		r := sampleRun()
		r.Stage = stage
		r.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		saved, err := s.SaveRun(ctx, r)
		require.NoError(t, err)
		ids = append(ids, saved.ID)
	}

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, "turn", runs[0].Stage)
	assert.Equal(t, ids[0], runs[2].ID)
	assert.Equal(t, 2, runs[1].K)
	assert.Equal(t, 5, runs[1].Points)
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	saved, err := s.SaveRun(context.Background(), sampleRun())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.LoadRun(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Assignments, got.Assignments)
}

func TestStore_SaveRejectsInvalid(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	r := sampleRun()
	r.Centers = nil
	_, err := s.SaveRun(ctx, r)
	assert.Error(t, err)

	r = sampleRun()
	r.Centers[1] = abstraction.Histogram{1}
	_, err = s.SaveRun(ctx, r)
	assert.Error(t, err)

	r = sampleRun()
	r.Assignments[0] = 2
	_, err = s.SaveRun(ctx, r)
	assert.Error(t, err)

	r = sampleRun()
	saved, err := s.SaveRun(ctx, r)
	require.NoError(t, err)
	_, err = s.SaveRun(ctx, saved)
	assert.Error(t, err, "duplicate id")
}

func TestStore_LoadRejectsCorruptAssignments(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		update string
		arg    any
	}{
		{"points larger than blob", "UPDATE runs SET points = ? WHERE id = ?", 6},
		{"points smaller than blob", "UPDATE runs SET points = ? WHERE id = ?", 2},
		{"truncated blob", "UPDATE runs SET assignments = ? WHERE id = ?", []byte{0, 0, 0, 0, 1, 0}},
		{"label out of range", "UPDATE runs SET assignments = ? WHERE id = ?", encodeAssignments([]int{0, 1, 9, 0, 1})},
		{"negative k", "UPDATE runs SET k = ? WHERE id = ?", -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saved, err := s.SaveRun(ctx, sampleRun())
			require.NoError(t, err)
			_, err = s.db.ExecContext(ctx, tt.update, tt.arg, saved.ID.String())
			require.NoError(t, err)

			_, err = s.LoadRun(ctx, saved.ID)
			assert.Error(t, err)
		})
	}
}

func TestBlobs_LittleEndian(t *testing.T) {
	assert.Equal(t, []byte{2, 0, 0, 0, 1, 0, 0, 0}, encodeAssignments([]int{2, 1}))
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0xf0, 0x3f}, encodeCenters([]abstraction.Histogram{{1}}))

	_, err := decodeCenters(make([]byte, 7), 1, 1)
	assert.Error(t, err)

	a, err := decodeAssignments([]byte{2, 0, 0, 0, 1, 0, 0, 0}, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, a)
	_, err = decodeAssignments([]byte{2, 0, 0, 0, 1, 0, 0, 0}, 2, 2)
	assert.Error(t, err)
	_, err = decodeAssignments([]byte{2, 0, 0, 0}, 2, 3)
	assert.Error(t, err)
}

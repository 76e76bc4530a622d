package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndListRuns(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := Run{ID: uuid.New(), Source: "a.csv", Status: "completed", Rows: 10, Columns: 3, Charts: 9,
		Messages: []string{"ingestion completed", "cleaning completed"}, StartedAt: base, FinishedAt: base.Add(2 * time.Second)}
	second := Run{ID: uuid.New(), Source: "b.csv", Status: "failed", Error: "error loading data",
		StartedAt: base.Add(time.Minute), FinishedAt: base.Add(time.Minute)}
	require.NoError(t, s.SaveRun(ctx, first))
	require.NoError(t, s.SaveRun(ctx, second))

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, "error loading data", runs[0].Error)
	assert.Equal(t, first.ID, runs[1].ID)
	assert.Equal(t, 9, runs[1].Charts)
	assert.Equal(t, 2*time.Second, runs[1].Duration())

	limited, err := s.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGetRunWithMessages(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	r := Run{ID: uuid.New(), Source: "a.csv", Status: "completed",
		Messages: []string{"one", "two", "three"}, StartedAt: time.Now(), FinishedAt: time.Now()}
	require.NoError(t, s.SaveRun(ctx, r))

	// saving again replaces the message trail
	r.Messages = []string{"one", "two"}
	require.NoError(t, s.SaveRun(ctx, r))

	got, err := s.GetRun(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, got.Messages)

	_, err = s.GetRun(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrRunNotFound)
}

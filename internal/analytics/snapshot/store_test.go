package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/querycompiler/internal/analytics"
)

type execRecorder struct {
	mu      sync.Mutex
	queries []string
	args    [][]any
	err     error
}

func (e *execRecorder) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queries = append(e.queries, query)
	e.args = append(e.args, args)
	return nil, e.err
}

func (e *execRecorder) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, errors.New("not implemented")
}

func (e *execRecorder) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queries)
}

func TestSaveQuotesTable(t *testing.T) {
	db := &execRecorder{}
	s := NewStore(db, `my"snaps`)

	require.NoError(t, s.EnsureSchema(context.Background()))
	require.NoError(t, s.Save(context.Background(), analytics.AggregatedStats{TotalSearches: 7}))

	require.Len(t, db.queries, 2)
	assert.Contains(t, db.queries[0], `CREATE TABLE IF NOT EXISTS "my""snaps"`)
	assert.Contains(t, db.queries[1], `INSERT INTO "my""snaps"`)
	assert.Contains(t, string(db.args[1][0].([]byte)), `"total_searches":7`)
}

func TestSaveError(t *testing.T) {
	db := &execRecorder{err: errors.New("relation does not exist")}
	err := NewStore(db, "").Save(context.Background(), analytics.AggregatedStats{})
	assert.ErrorContains(t, err, "saving analytics snapshot")
}

func TestRunSavesFinalSnapshot(t *testing.T) {
	db := &execRecorder{}
	s := NewStore(db, "")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func() analytics.AggregatedStats { return analytics.AggregatedStats{} }, 10*time.Millisecond)
	}()
	assert.Eventually(t, func() bool { return db.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Contains(t, db.queries[0], `INSERT INTO "analytics_snapshots"`)
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()
	if err := db.Ping(); err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}

	ctx := context.Background()
	table := "qc_snapshots_test"
	_, err = db.ExecContext(ctx, `DROP TABLE IF EXISTS `+table)
	require.NoError(t, err)
	defer db.ExecContext(ctx, `DROP TABLE IF EXISTS `+table)

	s := NewStore(db, table)
	require.NoError(t, s.EnsureSchema(ctx))
	require.NoError(t, s.Save(ctx, analytics.AggregatedStats{TotalSearches: 1}))
	require.NoError(t, s.Save(ctx, analytics.AggregatedStats{TotalSearches: 2}))

	snaps, err := s.ListSnapshots(ctx, 1)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, int64(2), snaps[0].Stats.TotalSearches)
}

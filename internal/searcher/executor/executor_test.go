package executor

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/querycompiler/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/resilience"
)

type failingDB struct {
	err   error
	calls int
	args  []any
}

func (f *failingDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	f.calls++
	f.args = args
	return nil, f.err
}

func compiled(t *testing.T, q string) *parser.CompiledQuery {
	t.Helper()
	cq, err := parser.NewCompiler(parser.Config{}).Compile(q)
	require.NoError(t, err)
	return cq
}

func TestBuildSearchSQL(t *testing.T) {
	sql := buildSearchSQL(`docs"; DROP TABLE x; --`)
	assert.Contains(t, sql, `FROM "docs""; DROP TABLE x; --" d`)
	assert.Contains(t, sql, "to_tsquery($1::regconfig, $2)")
	assert.Contains(t, sql, "LIMIT $3")
}

func TestExecuteEmptyQuerySkipsDatabase(t *testing.T) {
	db := &failingDB{err: errors.New("must not be called")}
	e := New(db, config.PostgresConfig{DocumentsTable: "documents"}, nil)

	res, err := e.Execute(context.Background(), compiled(t, `""`), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, db.calls)
	assert.Equal(t, 0, res.TotalHits)
	assert.Empty(t, res.Results)
}

func TestExecutePassesCompiledText(t *testing.T) {
	db := &failingDB{err: errors.New("connection reset")}
	e := New(db, config.PostgresConfig{DocumentsTable: "documents", TextSearchConfig: "simple"}, nil)

	_, err := e.Execute(context.Background(), compiled(t, "cats NOT dogs"), 5)
	require.Error(t, err)
	assert.Equal(t, []any{"simple", "cats & !dogs", 5}, db.args)
	assert.ErrorContains(t, err, `executing tsquery "cats & !dogs"`)
}

func TestExecuteBreakerOpens(t *testing.T) {
	db := &failingDB{err: errors.New("connection refused")}
	breaker := resilience.NewCircuitBreaker("postgres", resilience.CircuitBreakerConfig{
		FailureThreshold: 1,
		IsFailure:        IsBreakerFailure,
	})
	e := New(db, config.PostgresConfig{DocumentsTable: "documents"}, breaker)
	cq := compiled(t, "cats")

	_, err := e.Execute(context.Background(), cq, 5)
	require.Error(t, err)

	_, err = e.Execute(context.Background(), cq, 5)
	assert.ErrorIs(t, err, apperrors.ErrIndexUnavailable)
	assert.Equal(t, 1, db.calls)
}

func TestExecuteSyntaxErrorIsInvalidInput(t *testing.T) {
	db := &failingDB{err: &pq.Error{Code: "42601", Message: "syntax error in tsquery"}}
	breaker := resilience.NewCircuitBreaker("postgres", resilience.CircuitBreakerConfig{
		FailureThreshold: 1,
		IsFailure:        IsBreakerFailure,
	})
	e := New(db, config.PostgresConfig{DocumentsTable: "documents"}, breaker)

	_, err := e.Execute(context.Background(), compiled(t, "it's"), 5)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, resilience.StateClosed, breaker.GetState())
}

func TestIsBreakerFailure(t *testing.T) {
	assert.False(t, IsBreakerFailure(context.Canceled))
	assert.False(t, IsBreakerFailure(&pq.Error{Code: "42601"}))
	assert.True(t, IsBreakerFailure(errors.New("connection refused")))
	assert.True(t, IsBreakerFailure(context.DeadlineExceeded))
}

// Runs against a real database when TEST_POSTGRES_DSN is set; the table is
// created in a temporary schema.
func TestExecuteIntegration(t *testing.T) {
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
	_, err = db.ExecContext(ctx, `CREATE TEMP TABLE qc_docs (
		id text PRIMARY KEY,
		title text NOT NULL,
		body text NOT NULL,
		search_vector tsvector GENERATED ALWAYS AS (to_tsvector('english', title || ' ' || body)) STORED
	)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO qc_docs (id, title, body) VALUES
		('1', 'Cats', 'cats are quiet hunters'),
		('2', 'Dogs', 'dogs and cats can be friends'),
		('3', 'Birds', 'hello world of birds')`)
	require.NoError(t, err)

	conn, err := db.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()
	e := New(conn, config.PostgresConfig{DocumentsTable: "qc_docs"}, nil)

	res, err := e.Execute(ctx, compiled(t, "cats NOT dogs"), 10)
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "1", res.Results[0].ID)

	res, err = e.Execute(ctx, compiled(t, `"hello world"`), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalHits)
}

package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/querycompiler/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/resilience"
)

// Hit is one ranked document. Body is kept so cached results can still be
// highlighted.
type Hit struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Body  string  `json:"body"`
	Score float64 `json:"score"`
}

// SearchResult is what the executor returns and the cache stores. Compiled
// is the tsquery the hits were produced by.
type SearchResult struct {
	Query     string `json:"query"`
	Compiled  string `json:"compiled"`
	TotalHits int    `json:"total_hits"`
	Results   []Hit  `json:"results"`
}

// Queryer is the subset of *sql.DB the executor needs.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Executor runs compiled queries against a PostgreSQL table with a tsvector
// column named search_vector.
type Executor struct {
	db      Queryer
	breaker *resilience.CircuitBreaker
	sql     string
	tsCfg   string
	logger  *slog.Logger
}

func New(db Queryer, cfg config.PostgresConfig, breaker *resilience.CircuitBreaker) *Executor {
	tsCfg := cfg.TextSearchConfig
	if tsCfg == "" {
		tsCfg = "english"
	}
	return &Executor{
		db:      db,
		breaker: breaker,
		sql:     buildSearchSQL(cfg.DocumentsTable),
		tsCfg:   tsCfg,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// buildSearchSQL ranks matches with ts_rank and counts all matches in the
// same round trip. The table name is quoted because it comes from config.
func buildSearchSQL(table string) string {
	return fmt.Sprintf(`SELECT d.id, d.title, d.body, ts_rank(d.search_vector, q) AS score, count(*) OVER () AS total
FROM %s d, to_tsquery($1::regconfig, $2) q
WHERE d.search_vector @@ q
ORDER BY score DESC, d.id
LIMIT $3`, pq.QuoteIdentifier(table))
}

// Execute runs cq.Text. An empty compiled query matches nothing and does not
// touch the database.
func (e *Executor) Execute(ctx context.Context, cq *parser.CompiledQuery, limit int) (*SearchResult, error) {
	result := &SearchResult{
		Query:    cq.Query,
		Compiled: cq.Text,
		Results:  []Hit{},
	}
	if cq.Text == "" {
		return result, nil
	}

	run := func() error {
		return e.query(ctx, cq.Text, limit, result)
	}
	var err error
	if e.breaker != nil {
		err = e.breaker.Execute(run)
	} else {
		err = run()
	}
	if err != nil {
		if isSyntaxError(err) {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
				"query %q is not accepted by the text index", cq.Query)
		}
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrIndexUnavailable, err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
		}
		return nil, fmt.Errorf("executing tsquery %q: %w", cq.Text, err)
	}

	e.logger.Info("query executed",
		"query", cq.Query,
		"compiled", cq.Text,
		"total_hits", result.TotalHits,
		"results", len(result.Results),
	)
	return result, nil
}

func (e *Executor) query(ctx context.Context, tsquery string, limit int, result *SearchResult) error {
	rows, err := e.db.QueryContext(ctx, e.sql, e.tsCfg, tsquery, limit)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var hit Hit
		var total int
		if err := rows.Scan(&hit.ID, &hit.Title, &hit.Body, &hit.Score, &total); err != nil {
			return fmt.Errorf("scanning row: %w", err)
		}
		result.TotalHits = total
		result.Results = append(result.Results, hit)
	}
	return rows.Err()
}

// IsBreakerFailure keeps caller cancellations and rejected queries from
// tripping the breaker; neither says anything about the database's health.
func IsBreakerFailure(err error) bool {
	return !errors.Is(err, context.Canceled) && !isSyntaxError(err)
}

func isSyntaxError(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Class() == "42"
}

// Package episodedb indexes training runs and their per-episode results in
// SQLite so learning curves can be queried after the fact.
package episodedb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Garsondee/Dodge-Sense/internal/game"
	"github.com/Garsondee/Dodge-Sense/internal/train"
)

const (
	queueSize   = 65536
	commitEvery = 500
)

// Index is a write-behind SQLite index. Episode rows are queued and written
// by a single goroutine; OnEpisode never blocks the trainer.
type Index struct {
	db    *sql.DB
	runID string

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Int64

	mu     sync.Mutex
	failed int
	err    error
}

type req struct {
	runID   string
	episode train.EpisodeSummary
	flushed chan struct{} // non-nil for flush markers
}

// Run is one row of the runs table.
type Run struct {
	ID         string
	StartedAt  time.Time
	Variant    game.Variant
	Seed       int64
	ConfigJSON string
}

// EpisodeRow is one row of the episodes table.
type EpisodeRow struct {
	Episode int
	Reward  float64
	Steps   int
	Outcome string
	Epsilon float64
}

// Open creates or opens the index at path.
func Open(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	x := &Index{db: db, ch: make(chan req, queueSize)}
	x.wg.Add(1)
	go func() {
		defer x.wg.Done()
		x.loop()
	}()
	return x, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			variant TEXT NOT NULL,
			seed INTEGER NOT NULL,
			config_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS episodes (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			episode INTEGER NOT NULL,
			reward REAL NOT NULL,
			steps INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			epsilon REAL NOT NULL,
			PRIMARY KEY (run_id, episode)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_episodes_outcome ON episodes(run_id, outcome);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// StartRun records a new run and makes it the target of later OnEpisode
// calls. It returns the generated run ID.
func (x *Index) StartRun(ctx context.Context, variant game.Variant, seed int64, configJSON []byte) (string, error) {
	id := uuid.NewString()
	_, err := x.db.ExecContext(ctx,
		`INSERT INTO runs(run_id,started_at,variant,seed,config_json) VALUES(?,?,?,?,?)`,
		id, time.Now().UTC().Format(time.RFC3339Nano), string(variant), seed, string(configJSON))
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	x.runID = id
	return id, nil
}

// RunID returns the run started last, or "" before StartRun.
func (x *Index) RunID() string { return x.runID }

// OnEpisode implements train.Observer. Demo episodes and episodes arriving
// before StartRun are ignored. Rows are dropped if the writer falls behind.
func (x *Index) OnEpisode(s train.EpisodeSummary) {
	if x == nil || x.closed.Load() || x.runID == "" || s.Demo {
		return
	}
	select {
	case x.ch <- req{runID: x.runID, episode: s}:
	default:
		x.dropped.Add(1)
	}
}

// Dropped returns how many episode rows were discarded because the queue
// was full.
func (x *Index) Dropped() int64 { return x.dropped.Load() }

// Failures returns how many queued rows were lost to write errors and the
// first such error.
func (x *Index) Failures() (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.failed, x.err
}

func (x *Index) fail(n int, err error) {
	if n <= 0 {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.failed += n
	if x.err == nil {
		x.err = err
	}
}

// Flush blocks until every queued row is committed.
func (x *Index) Flush(ctx context.Context) error {
	if x.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case x.ch <- req{flushed: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Runs lists recorded runs, oldest first.
func (x *Index) Runs(ctx context.Context) ([]Run, error) {
	rows, err := x.db.QueryContext(ctx, `SELECT run_id,started_at,variant,seed,config_json FROM runs ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var r Run
		var started, variant string
		if err := rows.Scan(&r.ID, &started, &variant, &r.Seed, &r.ConfigJSON); err != nil {
			return nil, err
		}
		r.Variant = game.Variant(variant)
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("run %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Episodes returns the committed episodes of runID in order. Pending rows
// are flushed first.
func (x *Index) Episodes(ctx context.Context, runID string) ([]EpisodeRow, error) {
	if err := x.Flush(ctx); err != nil {
		return nil, err
	}
	rows, err := x.db.QueryContext(ctx,
		`SELECT episode,reward,steps,outcome,epsilon FROM episodes WHERE run_id=? ORDER BY episode`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EpisodeRow
	for rows.Next() {
		var e EpisodeRow
		if err := rows.Scan(&e.Episode, &e.Reward, &e.Steps, &e.Outcome, &e.Epsilon); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// OutcomeCounts returns how many episodes of runID ended each way.
func (x *Index) OutcomeCounts(ctx context.Context, runID string) (map[string]int, error) {
	if err := x.Flush(ctx); err != nil {
		return nil, err
	}
	rows, err := x.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM episodes WHERE run_id=? GROUP BY outcome`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		out[outcome] = n
	}
	return out, rows.Err()
}

// Close drains the queue and closes the database.
func (x *Index) Close() error {
	var err error
	x.once.Do(func() {
		x.closed.Store(true)
		close(x.ch)
		x.wg.Wait()
		err = x.db.Close()
	})
	return err
}

func (x *Index) loop() {
	ctx := context.Background()
	insert, prepErr := x.db.Prepare(`INSERT OR REPLACE INTO episodes(run_id,episode,reward,steps,outcome,epsilon) VALUES(?,?,?,?,?,?)`)
	if prepErr != nil {
		prepErr = fmt.Errorf("prepare insert: %w", prepErr)
	}
	defer func() {
		if insert != nil {
			_ = insert.Close()
		}
	}()

	var (
		tx      *sql.Tx
		opCount int
	)
	begin := func() {
		if tx != nil {
			return
		}
		txx, err := x.db.BeginTx(ctx, nil)
		if err != nil {
			x.fail(1, fmt.Errorf("begin: %w", err))
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			x.fail(opCount, fmt.Errorf("commit: %w", err))
		}
		tx = nil
		opCount = 0
	}

	for r := range x.ch {
		if r.flushed != nil {
			commit()
			close(r.flushed)
			continue
		}
		if insert == nil {
			x.fail(1, prepErr)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		s := r.episode
		if _, err := tx.StmtContext(ctx, insert).ExecContext(ctx,
			r.runID, s.Episode, s.Reward, s.Steps, s.Outcome.String(), s.Epsilon); err != nil {
			x.fail(1, fmt.Errorf("insert episode %d: %w", s.Episode, err))
			continue
		}
		opCount++
		if opCount >= commitEvery || len(x.ch) == 0 {
			commit()
		}
	}
	commit()
}

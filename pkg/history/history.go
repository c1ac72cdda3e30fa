package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "embed"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"igfeedprobe/pkg/analysis"
	"igfeedprobe/pkg/experiment"
	"igfeedprobe/pkg/logger"
	"igfeedprobe/pkg/report"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// timeLayout is fixed width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store keeps the outcome of every probe run in a SQLite database
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

// Run is one recorded probe run
type Run struct {
	ID                 string
	StartedAt          time.Time
	FinishedAt         time.Time
	PrimaryAuthor      string
	Threshold          int
	Status             string
	SuccessfulVariants []string
}

// Point is one run's outcome for a single variant key
type Point struct {
	RunID           string
	StartedAt       time.Time
	Label           string
	TotalPosts      int
	PrimaryPosts    int
	IsChronological bool
	Success         bool
	Error           string
}

// Open opens (creating if needed) the database at path and applies the schema
func Open(path string, log logger.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path is required")
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.WithField("path", path).Debug("Opened run history")
	return &Store{db: db, logger: log}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("apply schema: %w", err)
	}

	var versionStr string
	err = tx.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&versionStr)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := tx.ExecContext(ctx, "INSERT INTO metadata(key, value) VALUES('schema_version', ?)", strconv.Itoa(schemaVersion)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert schema version: %w", err)
		}
		return tx.Commit()
	}
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("read schema version: %w", err)
	}

	version, err := strconv.Atoi(versionStr)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("parse schema version: %w", err)
	}
	if version > schemaVersion {
		_ = tx.Rollback()
		return fmt.Errorf("history schema version %d is newer than supported %d", version, schemaVersion)
	}

	return tx.Commit()
}

// Close releases the database handle
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordRun stores the run and every classified outcome in one transaction
func (s *Store) RecordRun(ctx context.Context, results *experiment.Results, rec report.Recommendation) (Run, error) {
	if s == nil || s.db == nil {
		return Run{}, errors.New("history store is not initialized")
	}
	if results == nil {
		return Run{}, errors.New("results are required")
	}

	run := Run{
		ID:                 uuid.NewString(),
		StartedAt:          results.StartedAt.UTC(),
		FinishedAt:         results.FinishedAt.UTC(),
		PrimaryAuthor:      results.PrimaryAuthor,
		Threshold:          results.Threshold,
		Status:             rec.Status,
		SuccessfulVariants: results.SuccessfulVariants(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("begin transaction: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs(id, started_at, finished_at, primary_author, threshold, status, successful_variants)
		VALUES(?, ?, ?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt), run.PrimaryAuthor,
		run.Threshold, run.Status, strings.Join(run.SuccessfulVariants, ","))
	if err != nil {
		_ = tx.Rollback()
		return Run{}, fmt.Errorf("insert run: %w", err)
	}

	outcomes := make([]analysis.Outcome, 0, len(results.Variants)+2)
	outcomes = append(outcomes, results.Baseline)
	outcomes = append(outcomes, results.Variants...)
	outcomes = append(outcomes, results.Profile)

	for _, o := range outcomes {
		if o.Key == "" {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO outcomes(run_id, key, label, total_posts, primary_posts, other_accounts,
				is_chronological, success, ads_skipped, stop_reason, error)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, o.Key, o.Label, o.TotalPosts, o.PrimaryPosts, o.OtherAuthorsCount,
			boolToInt(o.IsChronological), boolToInt(o.Success), o.AdsSkipped, string(o.StopReason), o.Error)
		if err != nil {
			_ = tx.Rollback()
			return Run{}, fmt.Errorf("insert outcome %s: %w", o.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("commit run: %w", err)
	}

	s.logger.InfoWithFields("Recorded run history", map[string]interface{}{
		"run_id":   run.ID,
		"status":   run.Status,
		"outcomes": len(outcomes),
	})
	return run, nil
}

// ListRuns returns the most recent runs, newest first. A limit of zero or
// less returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("history store is not initialized")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, primary_author, threshold, status, successful_variants
		FROM runs
		ORDER BY started_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var runs []Run
	for rows.Next() {
		var (
			r                  Run
			started, finished  string
			successfulVariants string
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.PrimaryAuthor, &r.Threshold, &r.Status, &successfulVariants); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if r.FinishedAt, err = parseTime(finished); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		if successfulVariants != "" {
			r.SuccessfulVariants = strings.Split(successfulVariants, ",")
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// VariantTrend returns the outcomes recorded for key across runs, newest first
func (s *Store) VariantTrend(ctx context.Context, key string, limit int) ([]Point, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("history store is not initialized")
	}
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("variant key is required")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT o.run_id, r.started_at, o.label, o.total_posts, o.primary_posts,
			o.is_chronological, o.success, o.error
		FROM outcomes o
		JOIN runs r ON r.id = o.run_id
		WHERE o.key = ?
		ORDER BY r.started_at DESC, o.run_id
		LIMIT ?`, key, limit)
	if err != nil {
		return nil, fmt.Errorf("query trend: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var points []Point
	for rows.Next() {
		var (
			p            Point
			started      string
			chrono, succ int
		)
		if err := rows.Scan(&p.RunID, &started, &p.Label, &p.TotalPosts, &p.PrimaryPosts, &chrono, &succ, &p.Error); err != nil {
			return nil, fmt.Errorf("scan trend: %w", err)
		}
		if p.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		p.IsChronological = chrono != 0
		p.Success = succ != 0
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trend: %w", err)
	}
	return points, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, value)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

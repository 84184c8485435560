package repository

import (
	"context"
	"errors"
	"fmt"

	"polymigrate/internal/common/db"
	"polymigrate/internal/migration/model"
)

// ProblemRepository persists migrated problems. Every method takes the caller's
// transaction; a nil tx runs directly on the pool.
type ProblemRepository interface {
	GetIDByPolygonID(ctx context.Context, tx db.Transaction, polygonID string) (int64, error)
	UpsertProblem(ctx context.Context, tx db.Transaction, rec *model.ProblemRecord) (int64, error)
	ReplaceTags(ctx context.Context, tx db.Transaction, problemID int64, names []string) error
	UpsertSampleRows(ctx context.Context, tx db.Transaction, problemID int64, rows []SampleRow, prune bool) (RowSyncResult, error)
	UpsertTestRows(ctx context.Context, tx db.Transaction, problemID int64, rows []TestRow, prune bool) (RowSyncResult, error)
}

type MySQLProblemRepository struct {
	db db.Database
}

func NewProblemRepository(database db.Database) ProblemRepository {
	return &MySQLProblemRepository{db: database}
}

func (r *MySQLProblemRepository) GetIDByPolygonID(ctx context.Context, tx db.Transaction, polygonID string) (int64, error) {
	query := "SELECT id FROM problems WHERE polygon_id = ?"
	var id int64
	if err := db.GetQuerier(r.db, tx).QueryRow(ctx, query, polygonID).Scan(&id); err != nil {
		if db.IsNoRows(err) {
			return 0, ErrProblemNotFound
		}
		return 0, err
	}
	return id, nil
}

// UpsertProblem inserts or updates the row keyed by polygon_id and returns its id.
// LAST_INSERT_ID(id) makes the update branch report the existing id.
func (r *MySQLProblemRepository) UpsertProblem(ctx context.Context, tx db.Transaction, rec *model.ProblemRecord) (int64, error) {
	if rec == nil {
		return 0, errors.New("problem record is nil")
	}
	query := `
		INSERT INTO problems (
			polygon_id, title, slug, difficulty, time_limit_ms, memory_limit_mb,
			legend, input_format, output_format, notes, checker_type, test_case_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			id = LAST_INSERT_ID(id),
			title = VALUES(title),
			slug = VALUES(slug),
			difficulty = VALUES(difficulty),
			time_limit_ms = VALUES(time_limit_ms),
			memory_limit_mb = VALUES(memory_limit_mb),
			legend = VALUES(legend),
			input_format = VALUES(input_format),
			output_format = VALUES(output_format),
			notes = VALUES(notes),
			checker_type = VALUES(checker_type),
			test_case_count = VALUES(test_case_count)`

	result, err := db.GetQuerier(r.db, tx).Exec(ctx, query,
		rec.PolygonID, rec.Title, rec.Slug, rec.Difficulty, rec.TimeLimitMS, rec.MemoryLimitMB,
		rec.Legend, rec.InputFormat, rec.OutputFormat, rec.Notes, rec.CheckerType, rec.TestCaseCount,
	)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	rec.ID = id
	return id, nil
}

// ReplaceTags drops the problem's tag links and links it to exactly names.
func (r *MySQLProblemRepository) ReplaceTags(ctx context.Context, tx db.Transaction, problemID int64, names []string) error {
	q := db.GetQuerier(r.db, tx)
	if _, err := q.Exec(ctx, "DELETE FROM problem_extra_tags WHERE problem_id = ?", problemID); err != nil {
		return fmt.Errorf("clear tags failed: %w", err)
	}
	for _, name := range names {
		tagID, err := r.getOrCreateTag(ctx, q, name)
		if err != nil {
			return fmt.Errorf("resolve tag %q failed: %w", name, err)
		}
		if _, err := q.Exec(ctx, "INSERT INTO problem_extra_tags (problem_id, tag_id) VALUES (?, ?)", problemID, tagID); err != nil {
			return fmt.Errorf("link tag %q failed: %w", name, err)
		}
	}
	return nil
}

func (r *MySQLProblemRepository) getOrCreateTag(ctx context.Context, q db.Querier, name string) (int64, error) {
	id, err := selectTagID(ctx, q, name)
	if err == nil {
		return id, nil
	}
	if !db.IsNoRows(err) {
		return 0, err
	}
	result, err := q.Exec(ctx, "INSERT INTO problem_tags (name) VALUES (?)", name)
	if err != nil {
		// Another run created it first.
		if _, dup := db.UniqueViolation(err); dup {
			return selectTagID(ctx, q, name)
		}
		return 0, err
	}
	return result.LastInsertId()
}

func selectTagID(ctx context.Context, q db.Querier, name string) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, "SELECT id FROM problem_tags WHERE name = ?", name).Scan(&id)
	return id, err
}

func (r *MySQLProblemRepository) UpsertSampleRows(ctx context.Context, tx db.Transaction, problemID int64, rows []SampleRow, prune bool) (RowSyncResult, error) {
	q := db.GetQuerier(r.db, tx)
	query := `
		INSERT INTO sample_test_cases (problem_id, position, input, output)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE input = VALUES(input), output = VALUES(output)`
	for i, row := range rows {
		if _, err := q.Exec(ctx, query, problemID, i+1, row.Input, row.Output); err != nil {
			return RowSyncResult{}, fmt.Errorf("upsert sample row %d failed: %w", i+1, err)
		}
	}
	return syncSurplus(ctx, q, "sample_test_cases", problemID, len(rows), prune)
}

func (r *MySQLProblemRepository) UpsertTestRows(ctx context.Context, tx db.Transaction, problemID int64, rows []TestRow, prune bool) (RowSyncResult, error) {
	q := db.GetQuerier(r.db, tx)
	query := `
		INSERT INTO problem_test_cases (problem_id, position, input, output, description, is_sample)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			input = VALUES(input),
			output = VALUES(output),
			description = VALUES(description),
			is_sample = VALUES(is_sample)`
	for i, row := range rows {
		if _, err := q.Exec(ctx, query, problemID, i+1, row.Input, row.Output, row.Description, row.IsSample); err != nil {
			return RowSyncResult{}, fmt.Errorf("upsert test row %d failed: %w", i+1, err)
		}
	}
	return syncSurplus(ctx, q, "problem_test_cases", problemID, len(rows), prune)
}

// syncSurplus counts rows positioned after written, deleting them when prune is set.
// table is always a package constant.
func syncSurplus(ctx context.Context, q db.Querier, table string, problemID int64, written int, prune bool) (RowSyncResult, error) {
	res := RowSyncResult{Written: written}
	if prune {
		result, err := q.Exec(ctx, "DELETE FROM "+table+" WHERE problem_id = ? AND position > ?", problemID, written)
		if err != nil {
			return res, fmt.Errorf("prune %s failed: %w", table, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return res, err
		}
		res.Pruned = int(affected)
		return res, nil
	}

	var stale int
	err := q.QueryRow(ctx, "SELECT COUNT(*) FROM "+table+" WHERE problem_id = ? AND position > ?", problemID, written).Scan(&stale)
	if err != nil {
		return res, fmt.Errorf("count stale %s failed: %w", table, err)
	}
	res.Stale = stale
	return res, nil
}

var _ ProblemRepository = (*MySQLProblemRepository)(nil)

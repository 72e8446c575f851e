package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jakechorley/thesis-allocator/pkg/core/model"
)

// AllocationRun is a stored solve invocation
type AllocationRun struct {
	ID                string
	CreatedAt         time.Time
	Algorithm         string
	Status            string
	Objective         float64
	AssignedCount     int
	UnassignableCount int
	UnassignedCount   int
}

// InsertRun stores a run and its assignment rows in one transaction and
// returns the generated run id
func (db *DB) InsertRun(ctx context.Context, run AllocationRun, rows []model.AssignmentRow) (string, error) {
	runID := uuid.New().String()

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO allocation_run (id, algorithm, status, objective, assigned_count, unassignable_count, unassigned_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, runID, run.Algorithm, run.Status, run.Objective, run.AssignedCount, run.UnassignableCount, run.UnassignedCount)
	if err != nil {
		return "", fmt.Errorf("failed to insert allocation run: %w", err)
	}

	for _, r := range rows {
		_, err := tx.Exec(ctx, `
			INSERT INTO allocation_row (id, run_id, student_id, topic_id, coach_id, department_id, preference_rank, effective_cost, via_topic_overflow, via_coach_overflow)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, uuid.New().String(), runID, r.StudentID, r.TopicID, r.CoachID, r.DepartmentID, r.PreferenceRank, r.EffectiveCost, r.ViaTopicOverflow, r.ViaCoachOverflow)
		if err != nil {
			return "", fmt.Errorf("failed to insert allocation row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return runID, nil
}

// ListRuns retrieves stored runs, most recent first
func (db *DB) ListRuns(ctx context.Context) ([]AllocationRun, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, created_at, algorithm, status, objective, assigned_count, unassignable_count, unassigned_count
		FROM allocation_run
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocation runs: %w", err)
	}
	defer rows.Close()

	var runs []AllocationRun
	for rows.Next() {
		var r AllocationRun
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Algorithm, &r.Status, &r.Objective, &r.AssignedCount, &r.UnassignableCount, &r.UnassignedCount); err != nil {
			return nil, fmt.Errorf("failed to scan allocation run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocation runs: %w", err)
	}
	return runs, nil
}

// GetRunRows retrieves the assignment rows of a stored run
func (db *DB) GetRunRows(ctx context.Context, runID string) ([]model.AssignmentRow, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT student_id, topic_id, coach_id, department_id, preference_rank, effective_cost, via_topic_overflow, via_coach_overflow
		FROM allocation_row
		WHERE run_id = $1
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocation rows: %w", err)
	}
	defer rows.Close()

	var result []model.AssignmentRow
	for rows.Next() {
		var r model.AssignmentRow
		if err := rows.Scan(&r.StudentID, &r.TopicID, &r.CoachID, &r.DepartmentID, &r.PreferenceRank, &r.EffectiveCost, &r.ViaTopicOverflow, &r.ViaCoachOverflow); err != nil {
			return nil, fmt.Errorf("failed to scan allocation row: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocation rows: %w", err)
	}
	return result, nil
}

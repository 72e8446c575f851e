package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/thesis-allocator/internal/config"
	"github.com/jakechorley/thesis-allocator/pkg/core/model"
	"github.com/jakechorley/thesis-allocator/pkg/postgres"
)

// mockRunStore implements RunStore for testing
type mockRunStore struct {
	insertedRun  *postgres.AllocationRun
	insertedRows []model.AssignmentRow
	insertErr    error
}

func (m *mockRunStore) InsertRun(ctx context.Context, run postgres.AllocationRun, rows []model.AssignmentRow) (string, error) {
	if m.insertErr != nil {
		return "", m.insertErr
	}
	m.insertedRun = &run
	m.insertedRows = append(m.insertedRows, rows...)
	return "run-1", nil
}

func writeInputs(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	students := filepath.Join(dir, "students.csv")
	require.NoError(t, os.WriteFile(students, []byte(
		"student_id,plan_thesis,pref1,pref2\n"+
			"S1,yes,A,B\n"+
			"S2,yes,A,B\n"+
			"S3,yes,A,B\n"), 0644))

	capacities := filepath.Join(dir, "capacities.csv")
	require.NoError(t, os.WriteFile(capacities, []byte(
		"topic_id,coach_id,maximum_students_per_topic,maximum_students_per_coach,department_id,desired_minimum_by_department\n"+
			"A,c1,2,4,d1,0\n"+
			"B,c1,2,4,d1,0\n"), 0644))

	return students, capacities
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Preference.AllowUnranked = false
	return cfg
}

func TestAllocate_WritesOutputsAndStoresRun(t *testing.T) {
	students, capacities := writeInputs(t)
	dir := t.TempDir()
	outPath := filepath.Join(dir, "allocation.csv")
	summaryPath := filepath.Join(dir, "summary.txt")
	store := &mockRunStore{}

	result, err := Allocate(context.Background(), testConfig(), zap.NewNop(), AllocateParams{
		StudentsPath:   students,
		CapacitiesPath: capacities,
		OutPath:        outPath,
		SummaryPath:    summaryPath,
		Store:          store,
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "Optimal", result.Diagnostics.Status)
	assert.Len(t, result.Rows, 3)
	assert.Equal(t, "run-1", result.RunID)

	require.NotNil(t, store.insertedRun)
	assert.Equal(t, "ilp", store.insertedRun.Algorithm)
	assert.Equal(t, 3, store.insertedRun.AssignedCount)
	assert.Len(t, store.insertedRows, 3)

	_, err = os.Stat(outPath)
	assert.NoError(t, err, "allocation CSV should exist")
	_, err = os.Stat(summaryPath)
	assert.NoError(t, err, "summary report should exist")
}

func TestAllocate_NoStoreNoOutputs(t *testing.T) {
	students, capacities := writeInputs(t)

	result, err := Allocate(context.Background(), testConfig(), zap.NewNop(), AllocateParams{
		StudentsPath:   students,
		CapacitiesPath: capacities,
	})
	require.NoError(t, err)
	assert.Empty(t, result.RunID)
	assert.Len(t, result.Rows, 3)
}

func TestAllocate_FlowAlgorithm(t *testing.T) {
	students, capacities := writeInputs(t)
	cfg := testConfig()
	cfg.Solver.Algorithm = config.AlgorithmFlow

	result, err := Allocate(context.Background(), cfg, zap.NewNop(), AllocateParams{
		StudentsPath:   students,
		CapacitiesPath: capacities,
	})
	require.NoError(t, err)
	assert.Equal(t, "flow", result.Diagnostics.Algorithm)
	assert.Len(t, result.Rows, 3)
}

func TestAllocate_HybridAlgorithm(t *testing.T) {
	students, capacities := writeInputs(t)
	cfg := testConfig()
	cfg.Solver.Algorithm = config.AlgorithmHybrid

	result, err := Allocate(context.Background(), cfg, zap.NewNop(), AllocateParams{
		StudentsPath:   students,
		CapacitiesPath: capacities,
	})
	require.NoError(t, err)
	assert.Contains(t, result.Diagnostics.Algorithm, "hybrid")
	assert.Len(t, result.Rows, 3)
}

func TestAllocate_ValidationFailureBlocks(t *testing.T) {
	dir := t.TempDir()
	students := filepath.Join(dir, "students.csv")
	require.NoError(t, os.WriteFile(students, []byte(
		"student_id,plan_thesis,forced_topic\nS1,yes,missing\n"), 0644))
	capacities := filepath.Join(dir, "capacities.csv")
	require.NoError(t, os.WriteFile(capacities, []byte(
		"topic_id,coach_id,maximum_students_per_topic,maximum_students_per_coach,department_id,desired_minimum_by_department\n"+
			"A,c1,1,1,d1,0\n"), 0644))

	_, err := Allocate(context.Background(), testConfig(), zap.NewNop(), AllocateParams{
		StudentsPath:   students,
		CapacitiesPath: capacities,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input validation failed")
}

func TestAllocate_SkipValidation(t *testing.T) {
	// Same broken input passes when validation is skipped: the forced
	// topic does not exist so the student simply becomes unassignable.
	dir := t.TempDir()
	students := filepath.Join(dir, "students.csv")
	require.NoError(t, os.WriteFile(students, []byte(
		"student_id,plan_thesis,forced_topic\nS1,yes,missing\n"), 0644))
	capacities := filepath.Join(dir, "capacities.csv")
	require.NoError(t, os.WriteFile(capacities, []byte(
		"topic_id,coach_id,maximum_students_per_topic,maximum_students_per_coach,department_id,desired_minimum_by_department\n"+
			"A,c1,1,1,d1,0\n"), 0644))

	result, err := Allocate(context.Background(), testConfig(), zap.NewNop(), AllocateParams{
		StudentsPath:   students,
		CapacitiesPath: capacities,
		SkipValidation: true,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
	assert.Equal(t, []string{"S1"}, result.Diagnostics.UnassignableStudents)
}

func TestAllocate_StoreFailurePropagates(t *testing.T) {
	students, capacities := writeInputs(t)
	store := &mockRunStore{insertErr: errors.New("connection refused")}

	_, err := Allocate(context.Background(), testConfig(), zap.NewNop(), AllocateParams{
		StudentsPath:   students,
		CapacitiesPath: capacities,
		Store:          store,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store allocation run")
}

func TestValidateInputs(t *testing.T) {
	students, capacities := writeInputs(t)

	ok, findings, err := ValidateInputs(zap.NewNop(), students, capacities, "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, findings)
}

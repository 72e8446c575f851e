package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/thesis-allocator/internal/config"
	"github.com/jakechorley/thesis-allocator/pkg/core/allocator"
	"github.com/jakechorley/thesis-allocator/pkg/core/model"
	"github.com/jakechorley/thesis-allocator/pkg/core/validation"
	"github.com/jakechorley/thesis-allocator/pkg/mip"
	"github.com/jakechorley/thesis-allocator/pkg/outputs"
	"github.com/jakechorley/thesis-allocator/pkg/postgres"
	"github.com/jakechorley/thesis-allocator/pkg/repository"
)

// RunStore defines the persistence operations needed to record a run
type RunStore interface {
	InsertRun(ctx context.Context, run postgres.AllocationRun, rows []model.AssignmentRow) (string, error)
}

// AllocateParams are the inputs of a single allocation run
type AllocateParams struct {
	StudentsPath   string
	CapacitiesPath string
	OverridesPath  string // optional
	OutPath        string // optional allocation.csv destination
	SummaryPath    string // optional summary.txt destination
	SkipValidation bool
	Store          RunStore // nil disables persistence
}

// AllocateResult contains the allocation outcome
type AllocateResult struct {
	Rows        []model.AssignmentRow
	Diagnostics allocator.Diagnostics
	RunID       string // empty when no store was used
}

// Allocate loads the input data, validates it, solves with the
// configured algorithm and writes the requested outputs
func Allocate(ctx context.Context, cfg *config.Config, logger *zap.Logger, params AllocateParams) (*AllocateResult, error) {
	logger.Info("Loading input data",
		zap.String("students", params.StudentsPath),
		zap.String("capacities", params.CapacitiesPath))

	repo, err := repository.Load(params.StudentsPath, params.CapacitiesPath, params.OverridesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load input data: %w", err)
	}
	logger.Info("Input data loaded",
		zap.Int("students", len(repo.Students)),
		zap.Int("topics", len(repo.Topics)),
		zap.Int("coaches", len(repo.Coaches)),
		zap.Int("departments", len(repo.Departments)),
		zap.Int("overrides", len(repo.Overrides)))

	if !params.SkipValidation {
		validator := validation.New()
		ok, findings := validator.ValidateAll(repo.Students, repo.Topics, repo.Coaches, repo.Departments)
		for _, f := range findings {
			if f.Severity == validation.SeverityError {
				logger.Error(f.String())
			} else {
				logger.Warn(f.String())
			}
		}
		logger.Info("Input validation finished", zap.String("summary", validator.Summary()))
		if !ok {
			return nil, fmt.Errorf("input validation failed: %s", validator.Summary())
		}
	}

	inst := allocator.NewInstance(repo.Students, repo.Topics, repo.Coaches, repo.Departments)
	costs := allocator.ComputeCosts(inst, repo.Overrides, preferenceFrom(cfg))
	logger.Debug("Cost matrix computed", zap.Int("edges", costs.NumEdges()))

	result, err := solve(ctx, cfg, inst, costs)
	if err != nil {
		return nil, err
	}
	logger.Info("Solve finished",
		zap.String("algorithm", result.Diagnostics.Algorithm),
		zap.String("status", result.Diagnostics.Status),
		zap.Float64("objective", result.Diagnostics.ObjectiveValue),
		zap.Int("assigned", len(result.Rows)))

	if n := len(result.Diagnostics.UnassignableStudents); n > 0 {
		logger.Warn("Students with no admissible topics", zap.Int("count", n))
	}
	if n := len(result.Diagnostics.UnassignedAfterSolve); n > 0 {
		logger.Warn("Students left unassigned after solve", zap.Int("count", n))
	}

	if params.OutPath != "" {
		if err := outputs.WriteAllocationCSV(params.OutPath, result.Rows); err != nil {
			return nil, err
		}
		logger.Info("Allocation written", zap.String("path", params.OutPath))
	}
	if params.SummaryPath != "" {
		if err := outputs.WriteSummary(params.SummaryPath, result.Rows, repo.Topics, repo.Coaches, repo.Departments, result.Diagnostics); err != nil {
			return nil, err
		}
		logger.Info("Summary written", zap.String("path", params.SummaryPath))
	}

	out := &AllocateResult{Rows: result.Rows, Diagnostics: result.Diagnostics}
	if params.Store != nil {
		runID, err := params.Store.InsertRun(ctx, postgres.AllocationRun{
			Algorithm:         result.Diagnostics.Algorithm,
			Status:            result.Diagnostics.Status,
			Objective:         result.Diagnostics.ObjectiveValue,
			AssignedCount:     len(result.Rows),
			UnassignableCount: len(result.Diagnostics.UnassignableStudents),
			UnassignedCount:   len(result.Diagnostics.UnassignedAfterSolve),
		}, result.Rows)
		if err != nil {
			return nil, fmt.Errorf("failed to store allocation run: %w", err)
		}
		out.RunID = runID
		logger.Info("Run stored", zap.String("run_id", runID))
	}

	return out, nil
}

// solve dispatches to the configured algorithm
func solve(ctx context.Context, cfg *config.Config, inst *allocator.Instance, costs *allocator.CostMatrix) (*allocator.Result, error) {
	capacity := capacityFrom(cfg)
	solveCfg := solveConfigFrom(cfg)

	switch cfg.Solver.Algorithm {
	case config.AlgorithmFlow:
		solver := allocator.NewFlowSolver(inst, costs)
		if err := solver.Build(); err != nil {
			return nil, err
		}
		return solver.Solve()
	case config.AlgorithmHybrid:
		return allocator.SolveHybrid(ctx, inst, costs, capacity, solveCfg, backendFrom(cfg))
	default:
		solver := allocator.NewExactSolver(inst, costs, capacity, solveCfg, backendFrom(cfg))
		if err := solver.Build(); err != nil {
			return nil, err
		}
		return solver.Solve(ctx)
	}
}

func preferenceFrom(cfg *config.Config) allocator.PreferenceConfig {
	return allocator.PreferenceConfig{
		AllowUnranked: cfg.Preference.AllowUnranked,
		Tier2Cost:     cfg.Preference.Tier2Cost,
		Tier3Cost:     cfg.Preference.Tier3Cost,
		UnrankedCost:  cfg.Preference.UnrankedCost,
		Top2Bias:      cfg.Preference.Top2Bias,
	}
}

func capacityFrom(cfg *config.Config) allocator.CapacityConfig {
	return allocator.CapacityConfig{
		EnableTopicOverflow:  cfg.Capacity.EnableTopicOverflow,
		EnableCoachOverflow:  cfg.Capacity.EnableCoachOverflow,
		DeptMinMode:          cfg.Capacity.DeptMinMode,
		DeptShortfallPenalty: cfg.Capacity.PDeptShortfall,
		TopicOverflowPenalty: cfg.Capacity.PTopic,
		CoachOverflowPenalty: cfg.Capacity.PCoach,
	}
}

func solveConfigFrom(cfg *config.Config) allocator.SolveConfig {
	solveCfg := allocator.SolveConfig{Epsilon: cfg.Solver.EpsilonSuboptimal}
	if cfg.Solver.TimeLimitSec != nil {
		solveCfg.TimeLimit = time.Duration(*cfg.Solver.TimeLimitSec) * time.Second
	}
	if cfg.Solver.RandomSeed != nil {
		solveCfg.Seed = *cfg.Solver.RandomSeed
	}
	return solveCfg
}

func backendFrom(cfg *config.Config) mip.Backend {
	if cfg.Solver.Backend == config.BackendHiGHS {
		return &mip.HiGHS{}
	}
	return &mip.BranchAndBound{}
}

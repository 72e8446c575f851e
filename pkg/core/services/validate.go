package services

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/thesis-allocator/pkg/core/validation"
	"github.com/jakechorley/thesis-allocator/pkg/repository"
)

// ValidateInputs loads the input files and runs every validation check
// without solving. It returns the findings so callers can print them.
func ValidateInputs(logger *zap.Logger, studentsPath, capacitiesPath, overridesPath string) (bool, []validation.Finding, error) {
	repo, err := repository.Load(studentsPath, capacitiesPath, overridesPath)
	if err != nil {
		return false, nil, fmt.Errorf("failed to load input data: %w", err)
	}
	logger.Info("Input data loaded",
		zap.Int("students", len(repo.Students)),
		zap.Int("topics", len(repo.Topics)),
		zap.Int("coaches", len(repo.Coaches)),
		zap.Int("departments", len(repo.Departments)))

	validator := validation.New()
	ok, findings := validator.ValidateAll(repo.Students, repo.Topics, repo.Coaches, repo.Departments)
	logger.Info("Input validation finished", zap.String("summary", validator.Summary()))
	return ok, findings, nil
}

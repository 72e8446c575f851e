// Package repository loads the allocator's input CSV files into
// canonical entity maps: students.csv, capacities.csv and an optional
// overrides.csv.
package repository

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/jakechorley/thesis-allocator/pkg/core/model"
)

// Repository holds the loaded entity maps
type Repository struct {
	Students    map[string]*model.Student
	Topics      map[string]*model.Topic
	Coaches     map[string]*model.Coach
	Departments map[string]*model.Department
	Overrides   map[model.OverrideKey]int
}

// Load reads the input files and builds canonical entity maps.
// overridesPath may be empty.
func Load(studentsPath, capacitiesPath, overridesPath string) (*Repository, error) {
	repo := &Repository{
		Students:    make(map[string]*model.Student),
		Topics:      make(map[string]*model.Topic),
		Coaches:     make(map[string]*model.Coach),
		Departments: make(map[string]*model.Department),
		Overrides:   make(map[model.OverrideKey]int),
	}

	if err := repo.loadCapacities(capacitiesPath); err != nil {
		return nil, err
	}
	if err := repo.loadStudents(studentsPath); err != nil {
		return nil, err
	}
	if overridesPath != "" {
		if err := repo.loadOverrides(overridesPath); err != nil {
			return nil, err
		}
	}
	return repo, nil
}

// loadCapacities builds topics, coaches and departments from
// capacities.csv. Repeated topic/coach/department rows must agree.
func (r *Repository) loadCapacities(path string) error {
	rows, err := readRows(path)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("capacities file %s is empty", path)
	}

	coachCaps := make(map[string]int)
	coachDept := make(map[string]string)
	deptMin := make(map[string]int)

	for _, row := range rows {
		topicID := strings.TrimSpace(row["topic_id"])
		coachID := strings.TrimSpace(row["coach_id"])
		deptID := strings.TrimSpace(row["department_id"])
		topicCap := toIntOrZero(row["maximum_students_per_topic"])
		coachCap := toIntOrZero(row["maximum_students_per_coach"])
		desiredMin := toIntOrZero(row["desired_minimum_by_department"])

		if topicID == "" || coachID == "" || deptID == "" {
			return fmt.Errorf("capacities file %s: missing required fields on row %v", path, row)
		}

		if existing, ok := r.Topics[topicID]; ok {
			if existing.CoachID != coachID || existing.DepartmentID != deptID || existing.Capacity != topicCap {
				return fmt.Errorf("inconsistent rows for topic %s", topicID)
			}
		} else {
			r.Topics[topicID] = &model.Topic{ID: topicID, CoachID: coachID, DepartmentID: deptID, Capacity: topicCap}
		}

		if existing, ok := coachCaps[coachID]; ok {
			if existing != coachCap {
				return fmt.Errorf("inconsistent maximum_students_per_coach for coach %s", coachID)
			}
		} else {
			coachCaps[coachID] = coachCap
		}

		if existing, ok := coachDept[coachID]; ok {
			if existing != deptID {
				return fmt.Errorf("coach %s appears in multiple departments: %s vs %s", coachID, existing, deptID)
			}
		} else {
			coachDept[coachID] = deptID
		}

		if existing, ok := deptMin[deptID]; ok {
			if desiredMin != 0 && existing != desiredMin {
				return fmt.Errorf("inconsistent desired minimum for department %s", deptID)
			}
		} else {
			deptMin[deptID] = desiredMin
		}
	}

	for coachID, capacity := range coachCaps {
		r.Coaches[coachID] = &model.Coach{ID: coachID, DepartmentID: coachDept[coachID], Capacity: capacity}
	}
	for deptID, desired := range deptMin {
		r.Departments[deptID] = &model.Department{ID: deptID, DesiredMin: desired}
	}
	return nil
}

// loadStudents builds students from students.csv. Rows without a
// student_id are skipped.
func (r *Repository) loadStudents(path string) error {
	rows, err := readRows(path)
	if err != nil {
		return err
	}

	for _, row := range rows {
		studentID := strings.TrimSpace(row["student_id"])
		if studentID == "" {
			continue
		}
		plan := strings.EqualFold(strings.TrimSpace(row["plan_thesis"]), "yes")

		var ranks []string
		for i := 1; i <= 5; i++ {
			if v := strings.TrimSpace(row[fmt.Sprintf("pref%d", i)]); v != "" {
				ranks = append(ranks, v)
			}
		}

		tiers := make(map[int][]string)
		for tier := 1; tier <= 3; tier++ {
			if topics := splitPipe(row[fmt.Sprintf("tier%d", tier)]); len(topics) > 0 {
				tiers[tier] = topics
			}
		}

		banned := make(map[string]struct{})
		for _, tid := range splitPipe(row["banned"]) {
			banned[tid] = struct{}{}
		}

		r.Students[studentID] = &model.Student{
			ID:          studentID,
			Plan:        plan,
			Tiers:       tiers,
			Ranks:       ranks,
			Banned:      banned,
			ForcedTopic: strings.TrimSpace(row["forced_topic"]),
		}
	}
	return nil
}

// loadOverrides builds the override cost map from overrides.csv.
// Rows with a non-numeric cost are skipped.
func (r *Repository) loadOverrides(path string) error {
	rows, err := readRows(path)
	if err != nil {
		return err
	}

	for _, row := range rows {
		studentID := strings.TrimSpace(row["student_id"])
		topicID := strings.TrimSpace(row["topic_id"])
		cost, err := strconv.Atoi(strings.TrimSpace(row["cost"]))
		if err != nil {
			continue
		}
		if studentID != "" && topicID != "" {
			r.Overrides[model.OverrideKey{StudentID: studentID, TopicID: topicID}] = cost
		}
	}
	return nil
}

var headerPattern = regexp.MustCompile(`[^a-z0-9]+`)

// normHeader lowercases a header and collapses non-alphanumeric runs to
// underscores, so "Maximum Students per Topic" matches
// "maximum_students_per_topic"
func normHeader(h string) string {
	return strings.Trim(headerPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(h)), "_"), "_")
}

// readRows reads a CSV file into maps keyed by normalized header
func readRows(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = normHeader(strings.TrimPrefix(h, "\ufeff"))
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// splitPipe splits a pipe-separated cell into trimmed, non-empty values
func splitPipe(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(cell, "|") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// toIntOrZero parses an integer, treating blanks and junk as zero
func toIntOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// Package outputs writes the allocation CSV and the human-readable
// summary report consumed by supervisors.
package outputs

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/jakechorley/thesis-allocator/pkg/core/allocator"
	"github.com/jakechorley/thesis-allocator/pkg/core/model"
)

// maxTiedShown caps how many tie witnesses the summary lists in full
const maxTiedShown = 10

// WriteAllocationCSV writes the assignment rows to path
func WriteAllocationCSV(path string, rows []model.AssignmentRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"student", "assigned_topic", "assigned_coach", "department_id",
		"preference_rank", "effective_cost", "via_topic_overflow", "via_coach_overflow",
	}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.StudentID, r.TopicID, r.CoachID, r.DepartmentID,
			strconv.Itoa(r.PreferenceRank), strconv.Itoa(r.EffectiveCost),
			boolFlag(r.ViaTopicOverflow), boolFlag(r.ViaCoachOverflow),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteSummary writes the solve summary report to path
func WriteSummary(
	path string,
	rows []model.AssignmentRow,
	topics map[string]*model.Topic,
	coaches map[string]*model.Coach,
	departments map[string]*model.Department,
	diag allocator.Diagnostics,
) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Solver status: %s\n", diag.Status)
	if diag.Algorithm != "" {
		fmt.Fprintf(&b, "Algorithm: %s\n", diag.Algorithm)
	}
	fmt.Fprintf(&b, "Objective: %g\n\n", diag.ObjectiveValue)

	fmt.Fprintf(&b, "Unassignable students (no admissible topics): %d\n", len(diag.UnassignableStudents))
	for _, id := range diag.UnassignableStudents {
		fmt.Fprintf(&b, "  - %s\n", id)
	}
	fmt.Fprintf(&b, "\nUnassigned after solve: %d\n", len(diag.UnassignedAfterSolve))
	for _, id := range diag.UnassignedAfterSolve {
		fmt.Fprintf(&b, "  - %s\n", id)
	}

	b.WriteString("\n--- SOLUTION UNIQUENESS ---\n")
	if len(diag.TiedStudents) == 0 {
		b.WriteString("Solution appears UNIQUE (no ties in costs).\n")
	} else {
		fmt.Fprintf(&b, "Solution may NOT be unique: %d student(s) have equally-good alternatives:\n", len(diag.TiedStudents))
		for i, tie := range diag.TiedStudents {
			if i == maxTiedShown {
				fmt.Fprintf(&b, "  ... and %d more students with tied costs.\n", len(diag.TiedStudents)-maxTiedShown)
				break
			}
			fmt.Fprintf(&b, "  %s: assigned %s (cost=%d), could also take: %s\n",
				tie.StudentID, tie.TopicID, tie.Cost, strings.Join(tie.Alternatives, ", "))
		}
	}

	rankCounts := make(map[int]int)
	usedPerTopic := make(map[string]int)
	usedPerCoach := make(map[string]int)
	usedPerDept := make(map[string]int)
	for _, r := range rows {
		rankCounts[r.PreferenceRank]++
		usedPerTopic[r.TopicID]++
		usedPerCoach[r.CoachID]++
		usedPerDept[r.DepartmentID]++
	}

	b.WriteString("\nPreference satisfaction:\n")
	fmt.Fprintf(&b, "  Forced: %d\n", rankCounts[model.RankForced])
	fmt.Fprintf(&b, "  Tier1: %d\n", rankCounts[model.RankTier1])
	fmt.Fprintf(&b, "  Tier2: %d\n", rankCounts[model.RankTier2])
	fmt.Fprintf(&b, "  Tier3: %d\n", rankCounts[model.RankTier3])

	b.WriteString("\nRanked choice satisfaction:\n")
	labels := []string{"1st", "2nd", "3rd", "4th", "5th"}
	for i, label := range labels {
		fmt.Fprintf(&b, "  %s choice: %d\n", label, rankCounts[model.RankChoice1+i])
	}
	fmt.Fprintf(&b, "  Unranked : %d\n", rankCounts[model.RankUnranked])

	b.WriteString("\nTopic utilization:\n")
	for _, tid := range sortedKeys(topics) {
		line := fmt.Sprintf("  %s: %d / %d", tid, usedPerTopic[tid], topics[tid].Capacity)
		if ov := diag.TopicOverflow[tid]; ov > 0 {
			line += fmt.Sprintf("  (overflow=%d)", ov)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\nCoach utilization:\n")
	for _, cid := range sortedKeys(coaches) {
		line := fmt.Sprintf("  %s: %d / %d", cid, usedPerCoach[cid], coaches[cid].Capacity)
		if ov := diag.CoachOverflow[cid]; ov > 0 {
			line += fmt.Sprintf("  (overflow=%d)", ov)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\nDepartment totals:\n")
	for _, did := range sortedKeys(departments) {
		line := fmt.Sprintf("  %s: %d", did, usedPerDept[did])
		if desired := departments[did].DesiredMin; desired > 0 {
			line += fmt.Sprintf(" (desired_min=%d, shortfall=%d)", desired, diag.DepartmentShortfall[did])
		}
		b.WriteString(line + "\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write summary %s: %w", path, err)
	}
	return nil
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

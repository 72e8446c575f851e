// Package validation checks the referential integrity of loaded
// entities before solving. The allocation engine trusts its input, so
// all re-checks live here.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jakechorley/thesis-allocator/pkg/core/model"
)

// Severity of a validation finding
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Finding is a single validation problem with context
type Finding struct {
	Severity string
	Message  string
	Context  map[string]string
}

func (f Finding) String() string {
	msg := fmt.Sprintf("[%s] %s", strings.ToUpper(f.Severity), f.Message)
	if len(f.Context) > 0 {
		keys := make([]string, 0, len(f.Context))
		for k := range f.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", k, f.Context[k]))
		}
		msg += fmt.Sprintf(" (%s)", strings.Join(parts, ", "))
	}
	return msg
}

// Validator accumulates findings across validation passes
type Validator struct {
	errors   []Finding
	warnings []Finding
}

// New creates an empty validator
func New() *Validator {
	return &Validator{}
}

// ValidateAll runs every check and returns whether the input is usable
// (no errors; warnings alone do not block) plus all findings
func (v *Validator) ValidateAll(
	students map[string]*model.Student,
	topics map[string]*model.Topic,
	coaches map[string]*model.Coach,
	departments map[string]*model.Department,
) (bool, []Finding) {
	v.errors = nil
	v.warnings = nil

	v.validateEntities(students, topics, coaches, departments)
	v.validateConsistency(students, topics, coaches)

	findings := make([]Finding, 0, len(v.errors)+len(v.warnings))
	findings = append(findings, v.errors...)
	findings = append(findings, v.warnings...)
	return len(v.errors) == 0, findings
}

func (v *Validator) validateEntities(
	students map[string]*model.Student,
	topics map[string]*model.Topic,
	coaches map[string]*model.Coach,
	departments map[string]*model.Department,
) {
	for id, s := range students {
		if !s.Valid() {
			v.addError("student has forced topic in banned list", map[string]string{
				"student_id": id, "forced_topic": s.ForcedTopic,
			})
		}
		if s.ForcedTopic != "" {
			if _, ok := topics[s.ForcedTopic]; !ok {
				v.addError("student's forced topic does not exist", map[string]string{
					"student_id": id, "forced_topic": s.ForcedTopic,
				})
			}
		}
	}
	for id, t := range topics {
		if t.Capacity <= 0 || t.CoachID == "" || t.DepartmentID == "" {
			v.addError("topic has invalid data", map[string]string{
				"topic_id": id, "capacity": fmt.Sprint(t.Capacity),
			})
		}
	}
	for id, c := range coaches {
		if c.Capacity <= 0 || c.DepartmentID == "" {
			v.addError("coach has invalid data", map[string]string{
				"coach_id": id, "capacity": fmt.Sprint(c.Capacity),
			})
		}
	}
	for id, d := range departments {
		if d.DesiredMin < 0 {
			v.addError("department has invalid data", map[string]string{
				"department_id": id,
			})
		}
	}
}

func (v *Validator) validateConsistency(
	students map[string]*model.Student,
	topics map[string]*model.Topic,
	coaches map[string]*model.Coach,
) {
	for id, t := range topics {
		coach, ok := coaches[t.CoachID]
		if !ok {
			v.addError("topic references non-existent coach", map[string]string{
				"topic_id": id, "coach_id": t.CoachID,
			})
			continue
		}
		if coach.DepartmentID != t.DepartmentID {
			v.addError("topic department disagrees with its coach's department", map[string]string{
				"topic_id": id, "coach_id": t.CoachID,
			})
		}
	}

	// Dangling preference references are warnings: the cost model simply
	// never produces an edge for them.
	for id, s := range students {
		if !s.Plan {
			continue
		}
		for _, tid := range s.Ranks {
			if _, ok := topics[tid]; !ok {
				v.addWarning("student preference references non-existent topic", map[string]string{
					"student_id": id, "topic_id": tid,
				})
			}
		}
		for _, tierTopics := range s.Tiers {
			for _, tid := range tierTopics {
				if _, ok := topics[tid]; !ok {
					v.addWarning("student tier preference references non-existent topic", map[string]string{
						"student_id": id, "topic_id": tid,
					})
				}
			}
		}
		for tid := range s.Banned {
			if _, ok := topics[tid]; !ok {
				v.addWarning("student banned topic does not exist", map[string]string{
					"student_id": id, "topic_id": tid,
				})
			}
		}
	}
}

// Summary returns a short human-readable result line
func (v *Validator) Summary() string {
	if len(v.errors) == 0 && len(v.warnings) == 0 {
		return "all validations passed"
	}
	var parts []string
	if len(v.errors) > 0 {
		parts = append(parts, fmt.Sprintf("%d error(s) found", len(v.errors)))
	}
	if len(v.warnings) > 0 {
		parts = append(parts, fmt.Sprintf("%d warning(s) found", len(v.warnings)))
	}
	return strings.Join(parts, ", ")
}

func (v *Validator) addError(msg string, ctx map[string]string) {
	v.errors = append(v.errors, Finding{Severity: SeverityError, Message: msg, Context: ctx})
}

func (v *Validator) addWarning(msg string, ctx map[string]string) {
	v.warnings = append(v.warnings, Finding{Severity: SeverityWarning, Message: msg, Context: ctx})
}

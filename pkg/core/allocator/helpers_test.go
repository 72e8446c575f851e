package allocator

import (
	"github.com/jakechorley/thesis-allocator/pkg/core/model"
)

// newStudent builds a planning student with the given ranked preferences
func newStudent(id string, ranks ...string) *model.Student {
	return &model.Student{
		ID:     id,
		Plan:   true,
		Tiers:  make(map[int][]string),
		Banned: make(map[string]struct{}),
		Ranks:  ranks,
	}
}

// buildInstance wires entity slices into the maps NewInstance expects
func buildInstance(
	students []*model.Student,
	topics []*model.Topic,
	coaches []*model.Coach,
	departments []*model.Department,
) *Instance {
	sm := make(map[string]*model.Student, len(students))
	for _, s := range students {
		sm[s.ID] = s
	}
	tm := make(map[string]*model.Topic, len(topics))
	for _, t := range topics {
		tm[t.ID] = t
	}
	cm := make(map[string]*model.Coach, len(coaches))
	for _, c := range coaches {
		cm[c.ID] = c
	}
	dm := make(map[string]*model.Department, len(departments))
	for _, d := range departments {
		dm[d.ID] = d
	}
	return NewInstance(sm, tm, cm, dm)
}

// rankedScenario is the canonical small case: three students all ranking
// topic A first and topic B second, capacities A=2 B=2, one coach with
// capacity 4, no department minimum
func rankedScenario() *Instance {
	return buildInstance(
		[]*model.Student{
			newStudent("S1", "A", "B"),
			newStudent("S2", "A", "B"),
			newStudent("S3", "A", "B"),
		},
		[]*model.Topic{
			{ID: "A", CoachID: "c1", DepartmentID: "d1", Capacity: 2},
			{ID: "B", CoachID: "c1", DepartmentID: "d1", Capacity: 2},
		},
		[]*model.Coach{{ID: "c1", DepartmentID: "d1", Capacity: 4}},
		[]*model.Department{{ID: "d1", DesiredMin: 0}},
	)
}

// strictConfig disables overflow and the unranked fallback so capacities
// and preference lists are hard
func strictConfig() (PreferenceConfig, CapacityConfig) {
	pref := DefaultPreferenceConfig()
	pref.AllowUnranked = false
	capacity := DefaultCapacityConfig()
	capacity.EnableTopicOverflow = false
	capacity.EnableCoachOverflow = false
	return pref, capacity
}

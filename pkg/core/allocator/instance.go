package allocator

import (
	"sort"

	"github.com/jakechorley/thesis-allocator/pkg/core/model"
)

// Instance is an indexed, read-only view over validated entities.
// Students, topics, coaches and departments get dense indices in sorted
// id order so the solvers can work with integer-indexed arrays instead
// of string-keyed maps. Only planning students are indexed.
type Instance struct {
	Students    []*model.Student
	Topics      []*model.Topic
	Coaches     []*model.Coach
	Departments []*model.Department

	TopicsByCoach [][]int // coach index -> topic indices
	TopicsByDept  [][]int // department index -> topic indices

	studentIdx map[string]int
	topicIdx   map[string]int
	coachIdx   map[string]int
	deptIdx    map[string]int
}

// NewInstance indexes the entity maps produced by the data repository.
// Input is trusted: referential integrity is the validator's job.
func NewInstance(
	students map[string]*model.Student,
	topics map[string]*model.Topic,
	coaches map[string]*model.Coach,
	departments map[string]*model.Department,
) *Instance {
	inst := &Instance{
		studentIdx: make(map[string]int),
		topicIdx:   make(map[string]int),
		coachIdx:   make(map[string]int),
		deptIdx:    make(map[string]int),
	}

	for _, id := range sortedKeys(students) {
		if !students[id].Plan {
			continue
		}
		inst.studentIdx[id] = len(inst.Students)
		inst.Students = append(inst.Students, students[id])
	}
	for _, id := range sortedKeys(topics) {
		inst.topicIdx[id] = len(inst.Topics)
		inst.Topics = append(inst.Topics, topics[id])
	}
	for _, id := range sortedKeys(coaches) {
		inst.coachIdx[id] = len(inst.Coaches)
		inst.Coaches = append(inst.Coaches, coaches[id])
	}
	for _, id := range sortedKeys(departments) {
		inst.deptIdx[id] = len(inst.Departments)
		inst.Departments = append(inst.Departments, departments[id])
	}

	inst.TopicsByCoach = make([][]int, len(inst.Coaches))
	inst.TopicsByDept = make([][]int, len(inst.Departments))
	for ti, t := range inst.Topics {
		if ci, ok := inst.coachIdx[t.CoachID]; ok {
			inst.TopicsByCoach[ci] = append(inst.TopicsByCoach[ci], ti)
		}
		if di, ok := inst.deptIdx[t.DepartmentID]; ok {
			inst.TopicsByDept[di] = append(inst.TopicsByDept[di], ti)
		}
	}

	return inst
}

// TopicIndex returns the dense index for a topic id
func (inst *Instance) TopicIndex(id string) (int, bool) {
	i, ok := inst.topicIdx[id]
	return i, ok
}

// StudentIndex returns the dense index for a planning student id
func (inst *Instance) StudentIndex(id string) (int, bool) {
	i, ok := inst.studentIdx[id]
	return i, ok
}

// CoachIndex returns the dense index for a coach id
func (inst *Instance) CoachIndex(id string) (int, bool) {
	i, ok := inst.coachIdx[id]
	return i, ok
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

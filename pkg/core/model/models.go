package model

// Preference rank codes reported on assignment rows. Values are chosen so
// the sources never collide: tiers use 0-2, ranked choices use 10-14.
const (
	RankForced   = -1
	RankTier1    = 0
	RankTier2    = 1
	RankTier3    = 2
	RankChoice1  = 10
	RankChoice2  = 11
	RankChoice3  = 12
	RankChoice4  = 13
	RankChoice5  = 14
	RankUnranked = 999
)

// Student represents a student and their topic preferences
type Student struct {
	ID          string
	Plan        bool                // false excludes the student from solving entirely
	Tiers       map[int][]string    // tier rank (1-3) -> topic ids
	Ranks       []string            // ordered ranked preferences, strongest first (up to 5)
	Banned      map[string]struct{} // hard bans
	ForcedTopic string              // empty if not forced
}

// IsBanned reports whether the given topic is in the student's banned set
func (s *Student) IsBanned(topicID string) bool {
	_, ok := s.Banned[topicID]
	return ok
}

// Valid reports whether the student record is internally consistent:
// a forced topic must not also be banned.
func (s *Student) Valid() bool {
	if s.ForcedTopic == "" {
		return true
	}
	return !s.IsBanned(s.ForcedTopic)
}

// Topic represents a thesis topic owned by a coach
type Topic struct {
	ID           string
	CoachID      string
	DepartmentID string
	Capacity     int
}

// Coach represents a coach with an aggregate capacity across their topics
type Coach struct {
	ID           string
	DepartmentID string
	Capacity     int
}

// Department represents a department with a desired minimum assigned count.
// DesiredMin of 0 means no constraint.
type Department struct {
	ID         string
	DesiredMin int
}

// OverrideKey identifies a manually specified (student, topic) cost
type OverrideKey struct {
	StudentID string
	TopicID   string
}

// AssignmentRow is a single solved assignment
type AssignmentRow struct {
	StudentID        string
	TopicID          string
	CoachID          string
	DepartmentID     string
	PreferenceRank   int // one of the Rank* codes
	EffectiveCost    int
	ViaTopicOverflow bool
	ViaCoachOverflow bool
}

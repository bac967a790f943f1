package internal

import "time"

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Canonical skill statuses. Storage keeps plain strings; the service layer
// validates writes against this set.
const (
	StatusToStart     = "To Start"
	StatusInProgress  = "In Progress"
	StatusMastered    = "Mastered"
	StatusNeedsReview = "Needs Review"
)

type Skill struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"owner_id"`
	Title         string     `json:"title"`
	Category      string     `json:"category"`
	Status        string     `json:"status"`
	Confidence    int        `json:"confidence"` // 1-5 scale
	Tags          []string   `json:"tags,omitempty"`
	Description   string     `json:"description,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	NextReviewAt  *time.Time `json:"next_review_at,omitempty"`
	MinutesTotal  int        `json:"minutes_total"` // denormalized sum of time entries
	MinutesTarget int        `json:"minutes_target"`
	CreatedAt     time.Time  `json:"created_at"`
}

type TimeEntry struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	SkillID   string    `json:"skill_id"`
	Minutes   int       `json:"minutes"`
	Note      string    `json:"note,omitempty"`
	At        time.Time `json:"at"`
	CreatedAt time.Time `json:"created_at"`
}

// SkillRef is the read-only skill projection attached to listed time entries.
type SkillRef struct {
	Title      string `json:"title"`
	Category   string `json:"category"`
	Status     string `json:"status"`
	Confidence int    `json:"confidence"`
}

type TimeEntryWithSkill struct {
	TimeEntry
	Skill SkillRef `json:"skill"`
}

// SkillSummary is the per-skill time summary projection. MinutesTotal is read
// from the stored aggregate, never recomputed from entries.
type SkillSummary struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Category     string     `json:"category"`
	Status       string     `json:"status"`
	Confidence   int        `json:"confidence"`
	MinutesTotal int        `json:"minutes_total"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	NextReviewAt *time.Time `json:"next_review_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// SkillGroup is one bucket of a grouped view. Key is a string for
// status/category/tag groupings and an int for confidence.
type SkillGroup struct {
	Key   any     `json:"key"`
	Items []Skill `json:"items"`
}

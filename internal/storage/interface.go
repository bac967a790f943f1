package storage

import (
	"context"
	"time"

	"github.com/yourname/skilltracker/internal"
)

type SkillFilter struct {
	Category string
	Status   string
	Tag      string
	Search   string // case-insensitive title substring
}

type TimeEntryFilter struct {
	From    *time.Time
	To      *time.Time
	SkillID string
}

// SkillPatch carries a partial update; nil fields are left untouched.
// MinutesTotal is deliberately absent: only AppendTimeEntry mutates it.
type SkillPatch struct {
	Title         *string
	Category      *string
	Status        *string
	Confidence    *int
	Tags          *[]string
	Description   *string
	StartedAt     *time.Time
	NextReviewAt  *time.Time
	MinutesTarget *int
}

type SkillRepository interface {
	CreateSkill(ctx context.Context, skill *internal.Skill) error
	// ListSkills returns the owner's skills matching the filter, newest first.
	ListSkills(ctx context.Context, ownerID string, filter SkillFilter) ([]internal.Skill, error)
	GetSkill(ctx context.Context, ownerID, id string) (*internal.Skill, error)
	UpdateSkill(ctx context.Context, ownerID, id string, patch SkillPatch) (*internal.Skill, error)
	// DeleteSkill removes the skill and every one of its time entries as one
	// atomic unit. A missing or foreign-owned id yields ErrNotFound, including
	// on a concurrent double delete.
	DeleteSkill(ctx context.Context, ownerID, id string) error
}

type TimeEntryRepository interface {
	// AppendTimeEntry checks that entry.SkillID resolves to a skill owned by
	// entry.OwnerID, inserts the entry and increments the skill's
	// MinutesTotal by entry.Minutes. The three steps are one atomic unit:
	// either all are visible afterwards or none.
	AppendTimeEntry(ctx context.Context, entry *internal.TimeEntry) error
	// ListTimeEntries returns the owner's entries matching the filter, newest
	// `at` first, each joined with its skill projection.
	ListTimeEntries(ctx context.Context, ownerID string, filter TimeEntryFilter) ([]internal.TimeEntryWithSkill, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *internal.User) error
	GetUserByEmail(ctx context.Context, email string) (*internal.User, error)
	GetUserByID(ctx context.Context, id string) (*internal.User, error)
}

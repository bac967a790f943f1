package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/yourname/skilltracker/internal"
	"github.com/yourname/skilltracker/internal/storage"
)

type TimeEntryRequest struct {
	Minutes int        `json:"minutes" validate:"required,gte=1"`
	Note    string     `json:"note"`
	At      *time.Time `json:"at"`
}

func ValidateTimeEntryRequest(body *TimeEntryRequest) error {
	if err := validate.Struct(body); err != nil {
		return fmt.Errorf("%w: %v", internal.ErrValidation, err)
	}
	return nil
}

// AppendTime logs minutes against an owned skill. The storage backend performs
// the existence check, the entry insert and the minutesTotal increment as one
// atomic unit.
func AppendTime(ctx context.Context, repo storage.TimeEntryRepository, ownerID, skillID string, body *TimeEntryRequest) (*internal.TimeEntry, error) {
	if err := ValidateTimeEntryRequest(body); err != nil {
		return nil, err
	}

	at := time.Now()
	if body.At != nil {
		at = *body.At
	}

	entry := &internal.TimeEntry{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		SkillID:   skillID,
		Minutes:   body.Minutes,
		Note:      body.Note,
		At:        at,
		CreatedAt: time.Now(),
	}
	if err := repo.AppendTimeEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func ListTime(ctx context.Context, repo storage.TimeEntryRepository, ownerID string, filter storage.TimeEntryFilter) ([]internal.TimeEntryWithSkill, error) {
	return repo.ListTimeEntries(ctx, ownerID, filter)
}

// SummarizeSkills projects the owner's skills for the time summary view,
// sorted by category then title ascending. It reads the stored minutesTotal
// aggregate and never recomputes it from entries.
func SummarizeSkills(ctx context.Context, repo storage.SkillRepository, ownerID string) ([]internal.SkillSummary, error) {
	skills, err := repo.ListSkills(ctx, ownerID, storage.SkillFilter{})
	if err != nil {
		return nil, err
	}

	summaries := make([]internal.SkillSummary, 0, len(skills))
	for _, sk := range skills {
		summaries = append(summaries, internal.SkillSummary{
			ID:           sk.ID,
			Title:        sk.Title,
			Category:     sk.Category,
			Status:       sk.Status,
			Confidence:   sk.Confidence,
			MinutesTotal: sk.MinutesTotal,
			StartedAt:    sk.StartedAt,
			NextReviewAt: sk.NextReviewAt,
			CreatedAt:    sk.CreatedAt,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Category != summaries[j].Category {
			return summaries[i].Category < summaries[j].Category
		}
		return summaries[i].Title < summaries[j].Title
	})
	return summaries, nil
}

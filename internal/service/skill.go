package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/yourname/skilltracker/internal"
	"github.com/yourname/skilltracker/internal/storage"
)

var validate = validator.New()

const statusOneOf = "omitempty,oneof='To Start' 'In Progress' 'Mastered' 'Needs Review'"

type SkillRequest struct {
	Title         string     `json:"title" validate:"required"`
	Category      string     `json:"category" validate:"required"`
	Status        string     `json:"status" validate:"omitempty,oneof='To Start' 'In Progress' 'Mastered' 'Needs Review'"`
	Confidence    int        `json:"confidence" validate:"omitempty,gte=1,lte=5"`
	Tags          []string   `json:"tags"`
	Description   string     `json:"description"`
	StartedAt     *time.Time `json:"started_at"`
	NextReviewAt  *time.Time `json:"next_review_at"`
	MinutesTarget int        `json:"minutes_target" validate:"gte=0"`
}

// SkillPatchRequest is a partial update; nil fields are left as they are.
type SkillPatchRequest struct {
	Title         *string    `json:"title"`
	Category      *string    `json:"category"`
	Status        *string    `json:"status"`
	Confidence    *int       `json:"confidence"`
	Tags          *[]string  `json:"tags"`
	Description   *string    `json:"description"`
	StartedAt     *time.Time `json:"started_at"`
	NextReviewAt  *time.Time `json:"next_review_at"`
	MinutesTarget *int       `json:"minutes_target"`
}

func ValidateSkillRequest(body *SkillRequest) error {
	body.Title = strings.TrimSpace(body.Title)
	body.Category = strings.TrimSpace(body.Category)
	if err := validate.Struct(body); err != nil {
		return fmt.Errorf("%w: %v", internal.ErrValidation, err)
	}
	return nil
}

// normalizeTags trims each tag, drops empties and removes duplicates while
// preserving first-seen order.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func CreateSkill(ctx context.Context, repo storage.SkillRepository, ownerID string, body *SkillRequest) (*internal.Skill, error) {
	if err := ValidateSkillRequest(body); err != nil {
		return nil, err
	}

	status := body.Status
	if status == "" {
		status = internal.StatusToStart
	}
	confidence := body.Confidence
	if confidence == 0 {
		confidence = 1
	}

	skill := &internal.Skill{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		Title:         body.Title,
		Category:      body.Category,
		Status:        status,
		Confidence:    confidence,
		Tags:          normalizeTags(body.Tags),
		Description:   body.Description,
		StartedAt:     body.StartedAt,
		NextReviewAt:  body.NextReviewAt,
		MinutesTotal:  0,
		MinutesTarget: body.MinutesTarget,
		CreatedAt:     time.Now(),
	}
	if err := repo.CreateSkill(ctx, skill); err != nil {
		return nil, err
	}
	return skill, nil
}

func ValidateSkillPatch(body *SkillPatchRequest) error {
	if body.Title != nil {
		t := strings.TrimSpace(*body.Title)
		if t == "" {
			return fmt.Errorf("%w: title must not be empty", internal.ErrValidation)
		}
		body.Title = &t
	}
	if body.Category != nil {
		c := strings.TrimSpace(*body.Category)
		if c == "" {
			return fmt.Errorf("%w: category must not be empty", internal.ErrValidation)
		}
		body.Category = &c
	}
	if body.Status != nil {
		if err := validate.Var(*body.Status, statusOneOf); err != nil {
			return fmt.Errorf("%w: invalid status %q", internal.ErrValidation, *body.Status)
		}
	}
	if body.Confidence != nil && (*body.Confidence < 1 || *body.Confidence > 5) {
		return fmt.Errorf("%w: confidence must be between 1 and 5", internal.ErrValidation)
	}
	if body.MinutesTarget != nil && *body.MinutesTarget < 0 {
		return fmt.Errorf("%w: minutes_target must not be negative", internal.ErrValidation)
	}
	return nil
}

func UpdateSkill(ctx context.Context, repo storage.SkillRepository, ownerID, id string, body *SkillPatchRequest) (*internal.Skill, error) {
	if err := ValidateSkillPatch(body); err != nil {
		return nil, err
	}

	patch := storage.SkillPatch{
		Title:         body.Title,
		Category:      body.Category,
		Status:        body.Status,
		Confidence:    body.Confidence,
		Description:   body.Description,
		StartedAt:     body.StartedAt,
		NextReviewAt:  body.NextReviewAt,
		MinutesTarget: body.MinutesTarget,
	}
	if body.Tags != nil {
		tags := normalizeTags(*body.Tags)
		if tags == nil {
			tags = []string{}
		}
		patch.Tags = &tags
	}
	return repo.UpdateSkill(ctx, ownerID, id, patch)
}

func FindSkills(ctx context.Context, repo storage.SkillRepository, ownerID string, filter storage.SkillFilter) ([]internal.Skill, error) {
	return repo.ListSkills(ctx, ownerID, filter)
}

func DeleteSkill(ctx context.Context, repo storage.SkillRepository, ownerID, id string) error {
	return repo.DeleteSkill(ctx, ownerID, id)
}

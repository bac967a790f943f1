package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/yourname/skilltracker/internal"
	"github.com/yourname/skilltracker/internal/storage"
)

// Grouping dimensions for GroupSkills.
const (
	GroupByStatus     = "status"
	GroupByCategory   = "category"
	GroupByConfidence = "confidence"
)

// GroupSkills partitions the owner's entire skill set by the raw field value
// of the given dimension. Only keys actually present are emitted; keys are
// sorted ascending and items keep their createdAt-descending order. Groups
// are recomputed fully on every call, owner skill sets are small.
func GroupSkills(ctx context.Context, repo storage.SkillRepository, ownerID, dimension string) ([]internal.SkillGroup, error) {
	var keyOf func(sk *internal.Skill) string
	switch dimension {
	case GroupByStatus:
		keyOf = func(sk *internal.Skill) string { return sk.Status }
	case GroupByCategory:
		keyOf = func(sk *internal.Skill) string { return sk.Category }
	case GroupByConfidence:
		keyOf = func(sk *internal.Skill) string { return strconv.Itoa(sk.Confidence) }
	default:
		return nil, fmt.Errorf("%w: unknown grouping dimension %q", internal.ErrValidation, dimension)
	}

	skills, err := repo.ListSkills(ctx, ownerID, storage.SkillFilter{})
	if err != nil {
		return nil, err
	}

	buckets := map[string][]internal.Skill{}
	keys := []string{}
	for _, sk := range skills {
		k := keyOf(&sk)
		if _, ok := buckets[k]; !ok {
			keys = append(keys, k)
		}
		buckets[k] = append(buckets[k], sk)
	}

	if dimension == GroupByConfidence {
		sort.Slice(keys, func(i, j int) bool {
			a, _ := strconv.Atoi(keys[i])
			b, _ := strconv.Atoi(keys[j])
			return a < b
		})
	} else {
		sort.Strings(keys)
	}

	groups := make([]internal.SkillGroup, 0, len(keys))
	for _, k := range keys {
		var key any = k
		if dimension == GroupByConfidence {
			key, _ = strconv.Atoi(k)
		}
		groups = append(groups, internal.SkillGroup{Key: key, Items: buckets[k]})
	}
	return groups, nil
}

// GroupSkillsByTag buckets each skill under every tag it carries, so a skill
// with N tags appears in N buckets. Same ordering rules as GroupSkills.
func GroupSkillsByTag(ctx context.Context, repo storage.SkillRepository, ownerID string) ([]internal.SkillGroup, error) {
	skills, err := repo.ListSkills(ctx, ownerID, storage.SkillFilter{})
	if err != nil {
		return nil, err
	}

	buckets := map[string][]internal.Skill{}
	keys := []string{}
	for _, sk := range skills {
		for _, tag := range sk.Tags {
			if _, ok := buckets[tag]; !ok {
				keys = append(keys, tag)
			}
			buckets[tag] = append(buckets[tag], sk)
		}
	}
	sort.Strings(keys)

	groups := make([]internal.SkillGroup, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, internal.SkillGroup{Key: k, Items: buckets[k]})
	}
	return groups, nil
}

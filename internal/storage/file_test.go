package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourname/skilltracker/internal"
	"go.uber.org/zap"
)

func testLogger() internal.Logger {
	return internal.NewZapLogger(zap.NewNop().Sugar())
}

func openTestStorage(t *testing.T, dir string) *FileStorage {
	t.Helper()
	s, err := NewFileStorage(
		filepath.Join(dir, "users.json"),
		filepath.Join(dir, "skills.json"),
		filepath.Join(dir, "time_entries.json"),
		testLogger(),
	)
	require.NoError(t, err)
	return s
}

func newTestStorage(t *testing.T) *FileStorage {
	t.Helper()
	s := openTestStorage(t, t.TempDir())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mkSkill(ownerID, title, category string, createdAt time.Time) *internal.Skill {
	return &internal.Skill{
		ID:         title + "-" + ownerID,
		OwnerID:    ownerID,
		Title:      title,
		Category:   category,
		Status:     internal.StatusToStart,
		Confidence: 1,
		CreatedAt:  createdAt,
	}
}

func mkEntry(id, ownerID, skillID string, minutes int, at time.Time) *internal.TimeEntry {
	return &internal.TimeEntry{
		ID:        id,
		OwnerID:   ownerID,
		SkillID:   skillID,
		Minutes:   minutes,
		At:        at,
		CreatedAt: at,
	}
}

func TestAppendTimeEntryMaintainsAggregate(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Now()

	sk := mkSkill("u1", "Rust", "Backend", now)
	require.NoError(t, s.CreateSkill(ctx, sk))

	require.NoError(t, s.AppendTimeEntry(ctx, mkEntry("e1", "u1", sk.ID, 30, now)))
	require.NoError(t, s.AppendTimeEntry(ctx, mkEntry("e2", "u1", sk.ID, 15, now.Add(time.Minute))))

	got, err := s.GetSkill(ctx, "u1", sk.ID)
	require.NoError(t, err)
	assert.Equal(t, 45, got.MinutesTotal)

	entries, err := s.ListTimeEntries(ctx, "u1", TimeEntryFilter{SkillID: sk.ID})
	require.NoError(t, err)
	sum := 0
	for _, e := range entries {
		sum += e.Minutes
	}
	assert.Equal(t, got.MinutesTotal, sum)
}

func TestAppendTimeEntryUnknownOrForeignSkill(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Now()

	sk := mkSkill("u1", "Go", "Backend", now)
	require.NoError(t, s.CreateSkill(ctx, sk))

	err := s.AppendTimeEntry(ctx, mkEntry("e1", "u1", "missing", 10, now))
	assert.ErrorIs(t, err, internal.ErrNotFound)

	// Same skill id, different owner
	err = s.AppendTimeEntry(ctx, mkEntry("e2", "u2", sk.ID, 10, now))
	assert.ErrorIs(t, err, internal.ErrNotFound)

	got, err := s.GetSkill(ctx, "u1", sk.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.MinutesTotal)
}

func TestConcurrentAppendsAreLossless(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Now()

	sk := mkSkill("u1", "Concurrency", "Backend", now)
	require.NoError(t, s.CreateSkill(ctx, sk))

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_ = s.AppendTimeEntry(ctx, mkEntry(uuid.NewString(), "u1", sk.ID, 1, now))
		}()
	}
	wg.Wait()

	got, err := s.GetSkill(ctx, "u1", sk.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.MinutesTotal)

	entries, err := s.ListTimeEntries(ctx, "u1", TimeEntryFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, n)
}

func TestSaveOverlappingWritesSnapshotsState(t *testing.T) {
	dir := t.TempDir()
	s := openTestStorage(t, dir)
	ctx := context.Background()
	now := time.Now()

	sk := mkSkill("u1", "Rust", "Backend", now)
	require.NoError(t, s.CreateSkill(ctx, sk))

	const n = 50
	done := make(chan error, 1)
	go func() {
		for i := 0; i < n; i++ {
			if err := s.AppendTimeEntry(ctx, mkEntry(uuid.NewString(), "u1", sk.ID, 1, now)); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	// Saves running while appends mutate the aggregate must encode a
	// snapshot taken under the lock, never the live structs.
	for i := 0; i < 20; i++ {
		require.NoError(t, s.saveSkills())
		require.NoError(t, s.saveTimeEntries())
	}
	require.NoError(t, <-done)
	require.NoError(t, s.Close())

	reloaded := openTestStorage(t, dir)
	t.Cleanup(func() { _ = reloaded.Close() })

	got, err := reloaded.GetSkill(ctx, "u1", sk.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.MinutesTotal)

	entries, err := reloaded.ListTimeEntries(ctx, "u1", TimeEntryFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, n)
}

func TestDeleteSkillCascades(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Now()

	keep := mkSkill("u1", "Keep", "Backend", now)
	doomed := mkSkill("u1", "Doomed", "Backend", now.Add(time.Second))
	require.NoError(t, s.CreateSkill(ctx, keep))
	require.NoError(t, s.CreateSkill(ctx, doomed))
	require.NoError(t, s.AppendTimeEntry(ctx, mkEntry("e1", "u1", doomed.ID, 30, now)))
	require.NoError(t, s.AppendTimeEntry(ctx, mkEntry("e2", "u1", doomed.ID, 15, now.Add(time.Minute))))
	require.NoError(t, s.AppendTimeEntry(ctx, mkEntry("e3", "u1", keep.ID, 5, now.Add(2*time.Minute))))

	require.NoError(t, s.DeleteSkill(ctx, "u1", doomed.ID))

	_, err := s.GetSkill(ctx, "u1", doomed.ID)
	assert.ErrorIs(t, err, internal.ErrNotFound)

	entries, err := s.ListTimeEntries(ctx, "u1", TimeEntryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, keep.ID, entries[0].SkillID)

	// Second delete observes NotFound, never a redundant cascade
	err = s.DeleteSkill(ctx, "u1", doomed.ID)
	assert.ErrorIs(t, err, internal.ErrNotFound)
}

func TestDeleteSkillForeignOwner(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	sk := mkSkill("u1", "Mine", "Backend", time.Now())
	require.NoError(t, s.CreateSkill(ctx, sk))

	err := s.DeleteSkill(ctx, "u2", sk.ID)
	assert.ErrorIs(t, err, internal.ErrNotFound)

	_, err = s.GetSkill(ctx, "u1", sk.ID)
	assert.NoError(t, err)
}

func TestListSkillsOrderingAndFilters(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	base := time.Now()

	oldest := mkSkill("u1", "Oldest", "Backend", base)
	middle := mkSkill("u1", "Middle", "Mobile", base.Add(time.Second))
	newest := mkSkill("u1", "Newest", "Backend", base.Add(2*time.Second))
	newest.Status = internal.StatusInProgress
	newest.Tags = []string{"go"}
	require.NoError(t, s.CreateSkill(ctx, middle))
	require.NoError(t, s.CreateSkill(ctx, oldest))
	require.NoError(t, s.CreateSkill(ctx, newest))

	all, err := s.ListSkills(ctx, "u1", SkillFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Newest", "Middle", "Oldest"}, []string{all[0].Title, all[1].Title, all[2].Title})

	backend, err := s.ListSkills(ctx, "u1", SkillFilter{Category: "Backend"})
	require.NoError(t, err)
	assert.Len(t, backend, 2)

	inProgress, err := s.ListSkills(ctx, "u1", SkillFilter{Status: internal.StatusInProgress})
	require.NoError(t, err)
	require.Len(t, inProgress, 1)
	assert.Equal(t, "Newest", inProgress[0].Title)

	tagged, err := s.ListSkills(ctx, "u1", SkillFilter{Tag: "go"})
	require.NoError(t, err)
	assert.Len(t, tagged, 1)

	searched, err := s.ListSkills(ctx, "u1", SkillFilter{Search: "midd"})
	require.NoError(t, err)
	require.Len(t, searched, 1)
	assert.Equal(t, "Middle", searched[0].Title)

	other, err := s.ListSkills(ctx, "u2", SkillFilter{})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestListSkillsSearchIsLiteral(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.CreateSkill(ctx, mkSkill("u1", "100% test coverage", "Practice", now)))
	require.NoError(t, s.CreateSkill(ctx, mkSkill("u1", "100x faster builds", "Practice", now.Add(time.Second))))

	// "%" must not act as a wildcard
	matched, err := s.ListSkills(ctx, "u1", SkillFilter{Search: "100%"})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "100% test coverage", matched[0].Title)
}

func TestListTimeEntriesOrderingJoinAndRange(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	base := time.Now()

	sk := mkSkill("u1", "Rust", "Backend", base)
	sk.Status = internal.StatusInProgress
	sk.Confidence = 3
	require.NoError(t, s.CreateSkill(ctx, sk))

	require.NoError(t, s.AppendTimeEntry(ctx, mkEntry("e1", "u1", sk.ID, 10, base.Add(-48*time.Hour))))
	require.NoError(t, s.AppendTimeEntry(ctx, mkEntry("e2", "u1", sk.ID, 20, base)))
	require.NoError(t, s.AppendTimeEntry(ctx, mkEntry("e3", "u1", sk.ID, 30, base.Add(-24*time.Hour))))

	entries, err := s.ListTimeEntries(ctx, "u1", TimeEntryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"e2", "e3", "e1"}, []string{entries[0].ID, entries[1].ID, entries[2].ID})
	assert.Equal(t, "Rust", entries[0].Skill.Title)
	assert.Equal(t, "Backend", entries[0].Skill.Category)
	assert.Equal(t, internal.StatusInProgress, entries[0].Skill.Status)
	assert.Equal(t, 3, entries[0].Skill.Confidence)

	from := base.Add(-36 * time.Hour)
	ranged, err := s.ListTimeEntries(ctx, "u1", TimeEntryFilter{From: &from})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	to := base.Add(-36 * time.Hour)
	ranged, err = s.ListTimeEntries(ctx, "u1", TimeEntryFilter{To: &to})
	require.NoError(t, err)
	assert.Len(t, ranged, 1)
}

func TestPersistenceAcrossReload(t *testing.T) {
	dir := t.TempDir()
	s := openTestStorage(t, dir)
	ctx := context.Background()
	now := time.Now()

	sk := mkSkill("u1", "Durable", "Backend", now)
	require.NoError(t, s.CreateSkill(ctx, sk))
	require.NoError(t, s.AppendTimeEntry(ctx, mkEntry("e1", "u1", sk.ID, 25, now)))
	require.NoError(t, s.Close())

	reopened := openTestStorage(t, dir)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.GetSkill(ctx, "u1", sk.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, got.MinutesTotal)

	entries, err := reopened.ListTimeEntries(ctx, "u1", TimeEntryFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUpdateSkillPatch(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	sk := mkSkill("u1", "Old Title", "Backend", time.Now())
	require.NoError(t, s.CreateSkill(ctx, sk))

	title := "New Title"
	confidence := 4
	updated, err := s.UpdateSkill(ctx, "u1", sk.ID, SkillPatch{Title: &title, Confidence: &confidence})
	require.NoError(t, err)
	assert.Equal(t, "New Title", updated.Title)
	assert.Equal(t, 4, updated.Confidence)
	assert.Equal(t, "Backend", updated.Category)

	_, err = s.UpdateSkill(ctx, "u1", "missing", SkillPatch{Title: &title})
	assert.ErrorIs(t, err, internal.ErrNotFound)

	_, err = s.UpdateSkill(ctx, "u2", sk.ID, SkillPatch{Title: &title})
	assert.ErrorIs(t, err, internal.ErrNotFound)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	u := &internal.User{ID: "u1", Name: "Ada", Email: "ada@example.com", PasswordHash: "x", CreatedAt: time.Now()}
	require.NoError(t, s.CreateUser(ctx, u))

	dup := &internal.User{ID: "u2", Name: "Ada 2", Email: "ADA@example.com", PasswordHash: "x", CreatedAt: time.Now()}
	err := s.CreateUser(ctx, dup)
	assert.ErrorIs(t, err, internal.ErrConflict)

	got, err := s.GetUserByEmail(ctx, "Ada@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
}

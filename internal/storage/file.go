package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yourname/skilltracker/internal"
)

// FileStorage is the document-oriented backend: each collection lives in one
// JSON file, mirrored in memory under a single RWMutex. Holding the write
// lock for the whole of AppendTimeEntry and DeleteSkill is what makes the
// entry insert + aggregate increment, and the cascade, atomic.
type FileStorage struct {
	users          map[string]*internal.User      // id -> User
	userEmailIndex map[string]*internal.User      // normalized email -> User
	skills         map[string]*internal.Skill     // id -> Skill
	ownerSkills    map[string][]*internal.Skill   // ownerID -> skills (createdAt desc)
	entries        map[string]*internal.TimeEntry // id -> TimeEntry
	ownerEntries   map[string][]*internal.TimeEntry // ownerID -> entries (at desc)
	skillEntries   map[string][]*internal.TimeEntry // skillID -> entries
	mu             sync.RWMutex
	usersFile      string
	skillsFile     string
	timeFile       string
	saveUsersChan  chan struct{}
	saveSkillsChan chan struct{}
	saveTimeChan   chan struct{}
	shutdownChan   chan struct{}
	saveDelay      time.Duration
	logger         internal.Logger
}

func NewFileStorage(usersFile, skillsFile, timeFile string, logger internal.Logger) (*FileStorage, error) {
	s := &FileStorage{
		users:          make(map[string]*internal.User),
		userEmailIndex: make(map[string]*internal.User),
		skills:         make(map[string]*internal.Skill),
		ownerSkills:    make(map[string][]*internal.Skill),
		entries:        make(map[string]*internal.TimeEntry),
		ownerEntries:   make(map[string][]*internal.TimeEntry),
		skillEntries:   make(map[string][]*internal.TimeEntry),
		usersFile:      usersFile,
		skillsFile:     skillsFile,
		timeFile:       timeFile,
		saveUsersChan:  make(chan struct{}, 1),
		saveSkillsChan: make(chan struct{}, 1),
		saveTimeChan:   make(chan struct{}, 1),
		shutdownChan:   make(chan struct{}),
		saveDelay:      500 * time.Millisecond,
		logger:         logger,
	}

	if err := s.loadUsers(); err != nil {
		logger.Errorf("storage: failed to load users: %v", err)
		return nil, err
	}
	if err := s.loadSkills(); err != nil {
		logger.Errorf("storage: failed to load skills: %v", err)
		return nil, err
	}
	if err := s.loadTimeEntries(); err != nil {
		logger.Errorf("storage: failed to load time entries: %v", err)
		return nil, err
	}

	go s.saveWorker(s.saveUsersChan, s.saveUsers, "users")
	go s.saveWorker(s.saveSkillsChan, s.saveSkills, "skills")
	go s.saveWorker(s.saveTimeChan, s.saveTimeEntries, "time entries")

	return s, nil
}

func (s *FileStorage) loadUsers() error {
	file, err := os.Open(s.usersFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	var users []*internal.User
	if err := json.NewDecoder(file).Decode(&users); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range users {
		s.users[u.ID] = u
		s.userEmailIndex[strings.ToLower(u.Email)] = u
	}
	return nil
}

func (s *FileStorage) loadSkills() error {
	file, err := os.Open(s.skillsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	var skills []*internal.Skill
	if err := json.NewDecoder(file).Decode(&skills); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sk := range skills {
		s.skills[sk.ID] = sk
		s.ownerSkills[sk.OwnerID] = append(s.ownerSkills[sk.OwnerID], sk)
	}

	// Sort each owner's skills descending by CreatedAt
	for ownerID := range s.ownerSkills {
		sort.Slice(s.ownerSkills[ownerID], func(i, j int) bool {
			return s.ownerSkills[ownerID][i].CreatedAt.After(s.ownerSkills[ownerID][j].CreatedAt)
		})
	}

	return nil
}

func (s *FileStorage) loadTimeEntries() error {
	file, err := os.Open(s.timeFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	var entries []*internal.TimeEntry
	if err := json.NewDecoder(file).Decode(&entries); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.entries[e.ID] = e
		s.ownerEntries[e.OwnerID] = append(s.ownerEntries[e.OwnerID], e)
		s.skillEntries[e.SkillID] = append(s.skillEntries[e.SkillID], e)
	}

	// Sort each owner's entries descending by At
	for ownerID := range s.ownerEntries {
		sort.Slice(s.ownerEntries[ownerID], func(i, j int) bool {
			return s.ownerEntries[ownerID][i].At.After(s.ownerEntries[ownerID][j].At)
		})
	}

	return nil
}

func atomicWriteFileJSON(filePath string, data interface{}) error {
	tempFile := filePath + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, filePath)
}

// The save functions snapshot by value under the lock: AppendTimeEntry and
// UpdateSkill mutate stored structs in place, so encoding shared pointers
// after RUnlock would race with them.
func (s *FileStorage) saveUsers() error {
	s.mu.RLock()
	users := make([]internal.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u)
	}
	s.mu.RUnlock()

	return atomicWriteFileJSON(s.usersFile, users)
}

func (s *FileStorage) saveSkills() error {
	s.mu.RLock()
	skills := make([]internal.Skill, 0, len(s.skills))
	for _, sk := range s.skills {
		skills = append(skills, *sk)
	}
	s.mu.RUnlock()

	return atomicWriteFileJSON(s.skillsFile, skills)
}

func (s *FileStorage) saveTimeEntries() error {
	s.mu.RLock()
	entries := make([]internal.TimeEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, *e)
	}
	s.mu.RUnlock()

	return atomicWriteFileJSON(s.timeFile, entries)
}

// saveWorker batches save operations to avoid frequent disk writes
func (s *FileStorage) saveWorker(trigger chan struct{}, save func() error, what string) {
	timer := time.NewTimer(s.saveDelay)
	defer timer.Stop()

	for {
		select {
		case <-trigger:
			timer.Reset(s.saveDelay)
		case <-timer.C:
			if err := save(); err != nil {
				s.logger.Errorf("storage: error saving %s: %v", what, err)
			}
		case <-s.shutdownChan:
			return
		}
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (s *FileStorage) Close() error {
	close(s.shutdownChan)

	// Save pending data synchronously on shutdown
	if err := s.saveUsers(); err != nil {
		return err
	}
	if err := s.saveSkills(); err != nil {
		return err
	}
	if err := s.saveTimeEntries(); err != nil {
		return err
	}
	return nil
}

// --- SkillRepository ---

func (s *FileStorage) CreateSkill(ctx context.Context, skill *internal.Skill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *skill
	s.skills[stored.ID] = &stored

	// Insert maintaining CreatedAt-descending order
	owned := s.ownerSkills[stored.OwnerID]
	inserted := false
	for i, existing := range owned {
		if existing.CreatedAt.Before(stored.CreatedAt) {
			owned = append(owned[:i], append([]*internal.Skill{&stored}, owned[i:]...)...)
			inserted = true
			break
		}
	}
	if !inserted {
		owned = append(owned, &stored)
	}
	s.ownerSkills[stored.OwnerID] = owned

	signal(s.saveSkillsChan)
	return nil
}

func matchesSkill(sk *internal.Skill, filter SkillFilter) bool {
	if filter.Category != "" && sk.Category != filter.Category {
		return false
	}
	if filter.Status != "" && sk.Status != filter.Status {
		return false
	}
	if filter.Tag != "" {
		found := false
		for _, t := range sk.Tags {
			if t == filter.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Search != "" && !strings.Contains(strings.ToLower(sk.Title), strings.ToLower(filter.Search)) {
		return false
	}
	return true
}

func (s *FileStorage) ListSkills(ctx context.Context, ownerID string, filter SkillFilter) ([]internal.Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	skills := []internal.Skill{}
	for _, sk := range s.ownerSkills[ownerID] {
		if matchesSkill(sk, filter) {
			skills = append(skills, *sk)
		}
	}
	return skills, nil
}

func (s *FileStorage) GetSkill(ctx context.Context, ownerID, id string) (*internal.Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sk, ok := s.skills[id]
	if !ok || sk.OwnerID != ownerID {
		return nil, fmt.Errorf("storage: skill %s: %w", id, internal.ErrNotFound)
	}
	copied := *sk
	return &copied, nil
}

func (s *FileStorage) UpdateSkill(ctx context.Context, ownerID, id string, patch SkillPatch) (*internal.Skill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sk, ok := s.skills[id]
	if !ok || sk.OwnerID != ownerID {
		return nil, fmt.Errorf("storage: skill %s: %w", id, internal.ErrNotFound)
	}

	if patch.Title != nil {
		sk.Title = *patch.Title
	}
	if patch.Category != nil {
		sk.Category = *patch.Category
	}
	if patch.Status != nil {
		sk.Status = *patch.Status
	}
	if patch.Confidence != nil {
		sk.Confidence = *patch.Confidence
	}
	if patch.Tags != nil {
		sk.Tags = *patch.Tags
	}
	if patch.Description != nil {
		sk.Description = *patch.Description
	}
	if patch.StartedAt != nil {
		t := *patch.StartedAt
		sk.StartedAt = &t
	}
	if patch.NextReviewAt != nil {
		t := *patch.NextReviewAt
		sk.NextReviewAt = &t
	}
	if patch.MinutesTarget != nil {
		sk.MinutesTarget = *patch.MinutesTarget
	}

	signal(s.saveSkillsChan)
	copied := *sk
	return &copied, nil
}

func (s *FileStorage) DeleteSkill(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sk, ok := s.skills[id]
	if !ok || sk.OwnerID != ownerID {
		return fmt.Errorf("storage: skill %s: %w", id, internal.ErrNotFound)
	}

	delete(s.skills, id)
	owned := s.ownerSkills[ownerID]
	for i, existing := range owned {
		if existing.ID == id {
			s.ownerSkills[ownerID] = append(owned[:i], owned[i+1:]...)
			break
		}
	}

	// Cascade: drop every entry belonging to the skill
	for _, e := range s.skillEntries[id] {
		delete(s.entries, e.ID)
		ownerList := s.ownerEntries[e.OwnerID]
		for i, existing := range ownerList {
			if existing.ID == e.ID {
				s.ownerEntries[e.OwnerID] = append(ownerList[:i], ownerList[i+1:]...)
				break
			}
		}
	}
	delete(s.skillEntries, id)

	signal(s.saveSkillsChan)
	signal(s.saveTimeChan)
	return nil
}

// --- TimeEntryRepository ---

func (s *FileStorage) AppendTimeEntry(ctx context.Context, entry *internal.TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sk, ok := s.skills[entry.SkillID]
	if !ok || sk.OwnerID != entry.OwnerID {
		return fmt.Errorf("storage: skill %s: %w", entry.SkillID, internal.ErrNotFound)
	}

	stored := *entry
	s.entries[stored.ID] = &stored
	s.skillEntries[stored.SkillID] = append(s.skillEntries[stored.SkillID], &stored)

	// Insert maintaining At-descending order
	owned := s.ownerEntries[stored.OwnerID]
	inserted := false
	for i, existing := range owned {
		if existing.At.Before(stored.At) {
			owned = append(owned[:i], append([]*internal.TimeEntry{&stored}, owned[i:]...)...)
			inserted = true
			break
		}
	}
	if !inserted {
		owned = append(owned, &stored)
	}
	s.ownerEntries[stored.OwnerID] = owned

	sk.MinutesTotal += stored.Minutes

	signal(s.saveTimeChan)
	signal(s.saveSkillsChan)
	return nil
}

func (s *FileStorage) ListTimeEntries(ctx context.Context, ownerID string, filter TimeEntryFilter) ([]internal.TimeEntryWithSkill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := []internal.TimeEntryWithSkill{}
	for _, e := range s.ownerEntries[ownerID] {
		if filter.SkillID != "" && e.SkillID != filter.SkillID {
			continue
		}
		if filter.From != nil && e.At.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.At.After(*filter.To) {
			continue
		}
		sk, ok := s.skills[e.SkillID]
		if !ok {
			// Cascade delete guarantees entries never outlive their skill
			return nil, fmt.Errorf("storage: entry %s references missing skill %s: %w", e.ID, e.SkillID, internal.ErrConsistency)
		}
		rows = append(rows, internal.TimeEntryWithSkill{
			TimeEntry: *e,
			Skill: internal.SkillRef{
				Title:      sk.Title,
				Category:   sk.Category,
				Status:     sk.Status,
				Confidence: sk.Confidence,
			},
		})
	}
	return rows, nil
}

// --- UserRepository ---

func (s *FileStorage) CreateUser(ctx context.Context, user *internal.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, exists := s.userEmailIndex[email]; exists {
		return fmt.Errorf("storage: email %s already in use: %w", email, internal.ErrConflict)
	}

	stored := *user
	s.users[stored.ID] = &stored
	s.userEmailIndex[email] = &stored

	signal(s.saveUsersChan)
	return nil
}

func (s *FileStorage) GetUserByEmail(ctx context.Context, email string) (*internal.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.userEmailIndex[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("storage: user %s: %w", email, internal.ErrNotFound)
	}
	copied := *u
	return &copied, nil
}

func (s *FileStorage) GetUserByID(ctx context.Context, id string) (*internal.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("storage: user %s: %w", id, internal.ErrNotFound)
	}
	copied := *u
	return &copied, nil
}

// --- Compile-time assertions ---
var _ SkillRepository = (*FileStorage)(nil)
var _ TimeEntryRepository = (*FileStorage)(nil)
var _ UserRepository = (*FileStorage)(nil)

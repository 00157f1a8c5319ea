package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/diary-bot/internal/models"
)

type entryKey struct {
	userID string
	date   models.Date
}

// MemoryStorage keeps every record in process memory. It enforces the
// same uniqueness rules as the SQL backends.
type MemoryStorage struct {
	mu           sync.RWMutex
	users        map[string]*models.User
	byTelegramID map[int64]string
	profiles     map[string]*models.Profile
	entries      map[string]*models.DiaryEntry
	entryIndex   map[entryKey]string
	topics       map[string]*models.DailyTopic
	topicIndex   map[models.Date]string
	comments     map[string][]*models.ThreadComment
	now          func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:        make(map[string]*models.User),
		byTelegramID: make(map[int64]string),
		profiles:     make(map[string]*models.Profile),
		entries:      make(map[string]*models.DiaryEntry),
		entryIndex:   make(map[entryKey]string),
		topics:       make(map[string]*models.DailyTopic),
		topicIndex:   make(map[models.Date]string),
		comments:     make(map[string][]*models.ThreadComment),
		now:          time.Now,
	}
}

// User methods
func (s *MemoryStorage) EnsureUser(ctx context.Context, telegramID int64, username string, adviceEnabled bool) (*models.User, *models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, exists := s.byTelegramID[telegramID]; exists {
		user := *s.users[id]
		profile := *s.profiles[id]
		return &user, &profile, nil
	}

	user := &models.User{
		ID:         uuid.New().String(),
		TelegramID: telegramID,
		Username:   username,
		CreatedAt:  s.now().UTC(),
	}
	profile := &models.Profile{UserID: user.ID, AdviceEnabled: adviceEnabled}
	s.users[user.ID] = user
	s.byTelegramID[telegramID] = user.ID
	s.profiles[user.ID] = profile

	u, p := *user, *profile
	return &u, &p, nil
}

func (s *MemoryStorage) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, exists := s.profiles[userID]
	if !exists {
		return nil, fmt.Errorf("profile for user %s: %w", userID, ErrNotFound)
	}
	p := *profile
	return &p, nil
}

func (s *MemoryStorage) SetAdviceEnabled(ctx context.Context, userID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, exists := s.profiles[userID]
	if !exists {
		return fmt.Errorf("profile for user %s: %w", userID, ErrNotFound)
	}
	profile.AdviceEnabled = enabled
	return nil
}

func (s *MemoryStorage) DeleteUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[userID]
	if !exists {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	delete(s.byTelegramID, user.TelegramID)
	delete(s.users, userID)
	delete(s.profiles, userID)

	for id, entry := range s.entries {
		if entry.UserID == userID {
			delete(s.entryIndex, entryKey{userID: userID, date: entry.Date})
			delete(s.entries, id)
		}
	}
	for topicID, comments := range s.comments {
		kept := comments[:0]
		for _, c := range comments {
			if c.AuthorID != userID {
				kept = append(kept, c)
			}
		}
		s.comments[topicID] = kept
	}
	return nil
}

// Diary methods
func (s *MemoryStorage) FindEntry(ctx context.Context, userID string, date models.Date) (*models.DiaryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.entryIndex[entryKey{userID: userID, date: date}]
	if !exists {
		return nil, fmt.Errorf("entry for %s on %s: %w", userID, date, ErrNotFound)
	}
	return copyEntry(s.entries[id]), nil
}

func (s *MemoryStorage) GetEntry(ctx context.Context, userID, entryID string) (*models.DiaryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[entryID]
	if !exists || entry.UserID != userID {
		return nil, fmt.Errorf("entry %s: %w", entryID, ErrNotFound)
	}
	return copyEntry(entry), nil
}

func (s *MemoryStorage) UpsertEntry(ctx context.Context, userID string, date models.Date, content string, now time.Time) (*models.DiaryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[userID]; !exists {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	now = now.UTC()
	key := entryKey{userID: userID, date: date}
	if id, exists := s.entryIndex[key]; exists {
		entry := s.entries[id]
		entry.Content = content
		entry.AIResponse = nil
		entry.Revision++
		entry.UpdatedAt = now
		return copyEntry(entry), nil
	}

	entry := &models.DiaryEntry{
		ID:        uuid.New().String(),
		UserID:    userID,
		Date:      date,
		Content:   content,
		Revision:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.entries[entry.ID] = entry
	s.entryIndex[key] = entry.ID
	return copyEntry(entry), nil
}

func (s *MemoryStorage) SetAIResponse(ctx context.Context, entryID string, revision int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[entryID]
	if !exists {
		return fmt.Errorf("entry %s: %w", entryID, ErrNotFound)
	}
	if entry.Revision != revision {
		return fmt.Errorf("entry %s at revision %d, reply for %d: %w", entryID, entry.Revision, revision, ErrStale)
	}
	entry.AIResponse = &text
	return nil
}

func (s *MemoryStorage) ListEntries(ctx context.Context, userID string, filter EntryFilter) ([]*models.DiaryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keyword := strings.ToLower(strings.TrimSpace(filter.Keyword))
	var entries []*models.DiaryEntry
	for _, entry := range s.entries {
		if entry.UserID != userID {
			continue
		}
		if !filter.Before.IsZero() && !entry.Date.Before(filter.Before) {
			continue
		}
		if !filter.From.IsZero() && entry.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && entry.Date.After(filter.To) {
			continue
		}
		if keyword != "" && !strings.Contains(strings.ToLower(entry.Content), keyword) {
			continue
		}
		entries = append(entries, copyEntry(entry))
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[:filter.Limit]
	}
	return entries, nil
}

// Topic methods
func (s *MemoryStorage) CreateTopic(ctx context.Context, date models.Date, title string) (*models.DailyTopic, error) {
	if err := validateTopic(date, title); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.topicIndex[date]; exists {
		return nil, fmt.Errorf("topic for %s: %w", date, ErrConflict)
	}
	topic := &models.DailyTopic{ID: uuid.New().String(), Date: date, Title: title}
	s.topics[topic.ID] = topic
	s.topicIndex[date] = topic.ID

	t := *topic
	return &t, nil
}

func (s *MemoryStorage) GetTopicByDate(ctx context.Context, date models.Date) (*models.DailyTopic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.topicIndex[date]
	if !exists {
		return nil, fmt.Errorf("topic for %s: %w", date, ErrNotFound)
	}
	t := *s.topics[id]
	return &t, nil
}

func (s *MemoryStorage) AddComment(ctx context.Context, topicID, authorID, content string, now time.Time) (*models.ThreadComment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.topics[topicID]; !exists {
		return nil, fmt.Errorf("topic %s: %w", topicID, ErrNotFound)
	}
	author, exists := s.users[authorID]
	if !exists {
		return nil, fmt.Errorf("user %s: %w", authorID, ErrNotFound)
	}

	comment := &models.ThreadComment{
		ID:        uuid.New().String(),
		TopicID:   topicID,
		AuthorID:  authorID,
		Author:    author.Username,
		Content:   content,
		CreatedAt: now.UTC(),
	}
	s.comments[topicID] = append(s.comments[topicID], comment)

	c := *comment
	return &c, nil
}

func (s *MemoryStorage) ListComments(ctx context.Context, topicID string) ([]*models.ThreadComment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comments := make([]*models.ThreadComment, 0, len(s.comments[topicID]))
	for _, c := range s.comments[topicID] {
		cc := *c
		comments = append(comments, &cc)
	}
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	return comments, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

func copyEntry(entry *models.DiaryEntry) *models.DiaryEntry {
	e := *entry
	if entry.AIResponse != nil {
		reply := *entry.AIResponse
		e.AIResponse = &reply
	}
	return &e
}

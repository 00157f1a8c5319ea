package storage

import (
	"context"
	"errors"
	"time"

	"github.com/xaenox/diary-bot/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("uniqueness constraint violated")
	// ErrStale is returned by SetAIResponse when the entry was rewritten
	// after the reply was requested.
	ErrStale   = errors.New("entry revision is stale")
	ErrInvalid = errors.New("invalid record")
)

// EntryFilter narrows ListEntries. Zero fields are ignored.
type EntryFilter struct {
	// Before excludes entries on or after this date.
	Before  models.Date
	From    models.Date
	To      models.Date
	Keyword string
	Limit   int
}

type Storage interface {
	UserStorage
	DiaryStorage
	TopicStorage
	Close() error
}

type UserStorage interface {
	// EnsureUser returns the user for telegramID, creating the user and
	// its profile in one transaction on first contact.
	EnsureUser(ctx context.Context, telegramID int64, username string, adviceEnabled bool) (*models.User, *models.Profile, error)
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	SetAdviceEnabled(ctx context.Context, userID string, enabled bool) error
	DeleteUser(ctx context.Context, userID string) error
}

type DiaryStorage interface {
	FindEntry(ctx context.Context, userID string, date models.Date) (*models.DiaryEntry, error)
	GetEntry(ctx context.Context, userID, entryID string) (*models.DiaryEntry, error)
	// UpsertEntry creates or replaces the content of the (userID, date)
	// entry. Replacing clears the stored reply and bumps the revision.
	UpsertEntry(ctx context.Context, userID string, date models.Date, content string, now time.Time) (*models.DiaryEntry, error)
	// SetAIResponse stores text as the reply of entryID if the entry is
	// still at revision. Otherwise it returns ErrStale.
	SetAIResponse(ctx context.Context, entryID string, revision int64, text string) error
	ListEntries(ctx context.Context, userID string, filter EntryFilter) ([]*models.DiaryEntry, error)
}

type TopicStorage interface {
	CreateTopic(ctx context.Context, date models.Date, title string) (*models.DailyTopic, error)
	GetTopicByDate(ctx context.Context, date models.Date) (*models.DailyTopic, error)
	AddComment(ctx context.Context, topicID, authorID, content string, now time.Time) (*models.ThreadComment, error)
	ListComments(ctx context.Context, topicID string) ([]*models.ThreadComment, error)
}

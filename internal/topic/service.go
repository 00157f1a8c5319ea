// Package topic serves the daily discussion topic and its comment thread.
package topic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xaenox/diary-bot/internal/models"
	"github.com/xaenox/diary-bot/internal/storage"
	"go.uber.org/zap"
)

var (
	ErrNoTopic      = errors.New("no topic for today")
	ErrEmptyComment = errors.New("comment is empty")
)

type Clock interface {
	Now() time.Time
}

// View is today's topic with its thread, oldest comment first.
type View struct {
	Topic    *models.DailyTopic
	Comments []*models.ThreadComment
}

type Service struct {
	store    storage.TopicStorage
	clock    Clock
	location *time.Location
	logger   *zap.Logger
}

func NewService(store storage.TopicStorage, clock Clock, location *time.Location, logger *zap.Logger) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{store: store, clock: clock, location: location, logger: logger}
}

func (s *Service) today() models.Date {
	return models.DateOf(s.clock.Now().In(s.location))
}

// Today returns today's topic and comments. ErrNoTopic when none is set.
func (s *Service) Today(ctx context.Context) (*View, error) {
	topic, err := s.store.GetTopicByDate(ctx, s.today())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoTopic
	}
	if err != nil {
		return nil, err
	}

	comments, err := s.store.ListComments(ctx, topic.ID)
	if err != nil {
		return nil, err
	}
	return &View{Topic: topic, Comments: comments}, nil
}

// Post appends a comment by authorID to today's thread.
func (s *Service) Post(ctx context.Context, authorID, content string) (*models.ThreadComment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyComment
	}

	now := s.clock.Now()
	topic, err := s.store.GetTopicByDate(ctx, models.DateOf(now.In(s.location)))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoTopic
	}
	if err != nil {
		return nil, err
	}

	comment, err := s.store.AddComment(ctx, topic.ID, authorID, content, now)
	if err != nil {
		return nil, fmt.Errorf("failed to post comment: %w", err)
	}
	s.logger.Info("Comment posted",
		zap.String("topic_id", topic.ID),
		zap.String("author_id", authorID))
	return comment, nil
}

// Set registers the topic for date. A second topic for the same date
// fails with storage.ErrConflict.
func (s *Service) Set(ctx context.Context, date models.Date, title string) (*models.DailyTopic, error) {
	topic, err := s.store.CreateTopic(ctx, date, strings.TrimSpace(title))
	if err != nil {
		return nil, err
	}
	s.logger.Info("Topic registered", zap.Stringer("date", date), zap.String("title", topic.Title))
	return topic, nil
}

// Get returns the topic registered for date.
func (s *Service) Get(ctx context.Context, date models.Date) (*models.DailyTopic, error) {
	return s.store.GetTopicByDate(ctx, date)
}

// Package diary saves a user's entry for today and attaches the AI reply.
package diary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xaenox/diary-bot/internal/ai"
	"github.com/xaenox/diary-bot/internal/models"
	"github.com/xaenox/diary-bot/internal/prompt"
	"github.com/xaenox/diary-bot/internal/storage"
	"go.uber.org/zap"
)

// FailurePrefix starts every reply stored in place of a failed generation.
const FailurePrefix = "エラーが発生しました: "

const (
	DefaultAITimeout    = 60 * time.Second
	DefaultHistoryLimit = 30
)

// FailureNotice is the reply stored when generation fails.
func FailureNotice(err error) string {
	return FailurePrefix + err.Error()
}

// Store is the slice of the record store the diary flow needs.
type Store interface {
	storage.DiaryStorage
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	SetAdviceEnabled(ctx context.Context, userID string, enabled bool) error
}

type Config struct {
	// Location decides where a calendar day starts. Defaults to UTC.
	Location *time.Location
	// AITimeout bounds the reply call.
	AITimeout    time.Duration
	HistoryLimit int
}

type Service struct {
	store     Store
	generator ai.Generator
	clock     Clock
	config    Config
	logger    *zap.Logger
}

func NewService(store Store, generator ai.Generator, clock Clock, config Config, logger *zap.Logger) *Service {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.AITimeout <= 0 {
		config.AITimeout = DefaultAITimeout
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = DefaultHistoryLimit
	}
	if clock == nil {
		clock = SystemClock{}
	}

	return &Service{
		store:     store,
		generator: generator,
		clock:     clock,
		config:    config,
		logger:    logger,
	}
}

// WriteResult is the outcome of a save.
type WriteResult struct {
	Entry       *models.DiaryEntry
	Instruction prompt.Instruction
	// ReplyFailed is true when Entry carries a failure notice.
	ReplyFailed bool
	// Superseded is true when a newer save for the same day replaced the
	// content before this reply could be stored; the reply was dropped.
	Superseded bool
}

// Date returns the calendar day of t in the configured location.
func (s *Service) Date(t time.Time) models.Date {
	return models.DateOf(t.In(s.config.Location))
}

// Today returns the current date.
func (s *Service) Today() models.Date {
	return s.Date(s.clock.Now())
}

// Current loads today's entry for userID, or nil when none is written yet.
func (s *Service) Current(ctx context.Context, userID string) (*models.DiaryEntry, error) {
	entry, err := s.store.FindEntry(ctx, userID, s.Today())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Write saves req as today's entry and stores the AI reply. The content is
// committed before the reply call, so it survives any generation failure.
// Generation failures become a stored notice; store failures are returned.
func (s *Service) Write(ctx context.Context, userID string, req WriteRequest) (*WriteResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	today := s.Date(now)

	entry, err := s.store.UpsertEntry(ctx, userID, today, req.Content, now)
	if err != nil {
		return nil, fmt.Errorf("failed to save diary: %w", err)
	}

	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	text, instruction := prompt.Build(profile.AdviceEnabled, req.Content)
	result := &WriteResult{Instruction: instruction}

	reply, err := s.generate(ctx, text)
	if err != nil {
		s.logger.Warn("Reply generation failed",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("entry_id", entry.ID),
			zap.String("provider", s.generator.Name()))
		reply = FailureNotice(err)
		result.ReplyFailed = true
	}

	err = s.store.SetAIResponse(ctx, entry.ID, entry.Revision, reply)
	switch {
	case errors.Is(err, storage.ErrStale):
		s.logger.Info("Dropping reply for superseded entry",
			zap.String("entry_id", entry.ID),
			zap.Int64("revision", entry.Revision))
		result.Superseded = true
	case err != nil:
		return nil, fmt.Errorf("failed to save reply: %w", err)
	default:
		entry.AIResponse = &reply
	}

	result.Entry = entry
	s.logger.Info("Diary saved",
		zap.String("user_id", userID),
		zap.Stringer("date", today),
		zap.Int("length", prompt.Length(req.Content)),
		zap.Bool("advice", instruction.Advice),
		zap.Int("target_length", instruction.TargetLength),
		zap.Bool("reply_failed", result.ReplyFailed))
	return result, nil
}

func (s *Service) generate(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.AITimeout)
	defer cancel()

	start := time.Now()
	reply, err := s.generator.GenerateReply(ctx, text)
	s.logger.Debug("Reply call finished",
		zap.String("provider", s.generator.Name()),
		zap.Duration("elapsed", time.Since(start)))
	return reply, err
}

// History lists entries written before today, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]*models.DiaryEntry, error) {
	return s.store.ListEntries(ctx, userID, storage.EntryFilter{
		Before: s.Today(),
		Limit:  s.config.HistoryLimit,
	})
}

// Search filters entries written before today by keyword and period.
func (s *Service) Search(ctx context.Context, userID string, req SearchRequest) ([]*models.DiaryEntry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.store.ListEntries(ctx, userID, storage.EntryFilter{
		Before:  s.Today(),
		From:    req.From,
		To:      req.To,
		Keyword: req.Keyword,
		Limit:   s.config.HistoryLimit,
	})
}

// Detail returns one of userID's entries.
func (s *Service) Detail(ctx context.Context, userID, entryID string) (*models.DiaryEntry, error) {
	return s.store.GetEntry(ctx, userID, entryID)
}

// SetAdvice switches the reply mode of userID.
func (s *Service) SetAdvice(ctx context.Context, userID string, enabled bool) error {
	return s.store.SetAdviceEnabled(ctx, userID, enabled)
}

// ReplyState classifies entry now. A missing reply counts as pending for
// as long as a reply call could still be running.
func (s *Service) ReplyState(entry *models.DiaryEntry) ReplyState {
	return StateOf(entry, s.clock.Now(), s.config.AITimeout)
}

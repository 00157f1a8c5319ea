package topic_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/diary-bot/internal/diary"
	"github.com/xaenox/diary-bot/internal/models"
	"github.com/xaenox/diary-bot/internal/storage"
	"github.com/xaenox/diary-bot/internal/topic"
	"go.uber.org/zap/zaptest"
)

func newService(t *testing.T, now *time.Time) (*topic.Service, *storage.MemoryStorage) {
	t.Helper()
	store := storage.NewMemoryStorage()
	clock := diary.ClockFunc(func() time.Time { return *now })
	return topic.NewService(store, clock, time.FixedZone("JST", 9*3600), zaptest.NewLogger(t)), store
}

func TestTodayWithoutTopic(t *testing.T) {
	now := time.Date(2026, 10, 15, 3, 0, 0, 0, time.UTC)
	svc, _ := newService(t, &now)

	_, err := svc.Today(context.Background())
	assert.ErrorIs(t, err, topic.ErrNoTopic)

	_, err = svc.Post(context.Background(), "someone", "hello")
	assert.ErrorIs(t, err, topic.ErrNoTopic)
}

func TestSetTrimsAndRejectsDuplicates(t *testing.T) {
	now := time.Date(2026, 10, 15, 3, 0, 0, 0, time.UTC)
	svc, _ := newService(t, &now)
	ctx := context.Background()
	day := models.Date{Year: 2026, Month: time.October, Day: 15}

	created, err := svc.Set(ctx, day, "  好きな季節  ")
	require.NoError(t, err)
	assert.Equal(t, "好きな季節", created.Title)

	_, err = svc.Set(ctx, day, "別の話題")
	assert.ErrorIs(t, err, storage.ErrConflict)

	_, err = svc.Set(ctx, day.AddDays(1), "   ")
	assert.ErrorIs(t, err, storage.ErrInvalid)

	_, err = svc.Set(ctx, day.AddDays(1), strings.Repeat("題", models.MaxTopicTitleLength+1))
	assert.ErrorIs(t, err, storage.ErrInvalid)

	got, err := svc.Get(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.Get(ctx, day.AddDays(1))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPostAppendsToTodaysThread(t *testing.T) {
	// 23:30 UTC on the 14th is already the 15th in JST.
	now := time.Date(2026, 10, 14, 23, 30, 0, 0, time.UTC)
	svc, store := newService(t, &now)
	ctx := context.Background()

	_, err := svc.Set(ctx, models.Date{Year: 2026, Month: time.October, Day: 15}, "好きな季節")
	require.NoError(t, err)

	alice, _, err := store.EnsureUser(ctx, 1, "alice", false)
	require.NoError(t, err)
	bob, _, err := store.EnsureUser(ctx, 2, "bob", false)
	require.NoError(t, err)

	_, err = svc.Post(ctx, alice.ID, "秋")
	require.NoError(t, err)
	now = now.Add(time.Minute)
	_, err = svc.Post(ctx, bob.ID, "春")
	require.NoError(t, err)

	_, err = svc.Post(ctx, bob.ID, " \n")
	assert.ErrorIs(t, err, topic.ErrEmptyComment)

	view, err := svc.Today(ctx)
	require.NoError(t, err)
	assert.Equal(t, "好きな季節", view.Topic.Title)
	require.Len(t, view.Comments, 2)
	assert.Equal(t, "alice", view.Comments[0].Author)
	assert.Equal(t, "秋", view.Comments[0].Content)
	assert.Equal(t, "bob", view.Comments[1].Author)

	// The next day has no topic yet.
	now = now.Add(24 * time.Hour)
	_, err = svc.Today(ctx)
	assert.ErrorIs(t, err, topic.ErrNoTopic)
}

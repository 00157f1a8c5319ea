package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/diary-bot/internal/models"
	"go.uber.org/zap"
)

// timestampLayout is how timestamps are sent to the database. Fixed width
// UTC keeps TEXT columns sortable.
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// dialect captures what differs between the SQL backends.
type dialect interface {
	name() string
	// rebind rewrites ? placeholders into the backend's syntax.
	rebind(query string) string
	isUniqueViolation(err error) bool
	likeOperator() string
}

// sqlStore implements Storage on top of database/sql. Queries are written
// once with ? placeholders and rebound per dialect.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
	logger  *zap.Logger
}

func (s *sqlStore) exec(ctx context.Context, q execer, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *sqlStore) queryRow(ctx context.Context, q execer, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// User methods
func (s *sqlStore) EnsureUser(ctx context.Context, telegramID int64, username string, adviceEnabled bool) (*models.User, *models.Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = s.exec(ctx, tx, `
		INSERT INTO users (id, telegram_id, username, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (telegram_id) DO NOTHING`,
		uuid.New().String(), telegramID, username, now.Format(timestampLayout))
	if err != nil {
		return nil, nil, fmt.Errorf("error creating user: %w", err)
	}

	user := &models.User{}
	var createdAt dbTime
	err = s.queryRow(ctx, tx, `
		SELECT id, telegram_id, username, created_at
		FROM users WHERE telegram_id = ?`, telegramID).
		Scan(&user.ID, &user.TelegramID, &user.Username, &createdAt)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading user: %w", err)
	}
	user.CreatedAt = createdAt.Time

	_, err = s.exec(ctx, tx, `
		INSERT INTO profiles (user_id, advice_enabled)
		VALUES (?, ?)
		ON CONFLICT (user_id) DO NOTHING`,
		user.ID, adviceEnabled)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating profile: %w", err)
	}

	profile := &models.Profile{UserID: user.ID}
	err = s.queryRow(ctx, tx, `SELECT advice_enabled FROM profiles WHERE user_id = ?`, user.ID).
		Scan(&profile.AdviceEnabled)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("error committing user: %w", err)
	}
	return user, profile, nil
}

func (s *sqlStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	profile := &models.Profile{UserID: userID}
	err := s.queryRow(ctx, s.db, `SELECT advice_enabled FROM profiles WHERE user_id = ?`, userID).
		Scan(&profile.AdviceEnabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile for user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying profile: %w", err)
	}
	return profile, nil
}

func (s *sqlStore) SetAdviceEnabled(ctx context.Context, userID string, enabled bool) error {
	result, err := s.exec(ctx, s.db, `UPDATE profiles SET advice_enabled = ? WHERE user_id = ?`, enabled, userID)
	if err != nil {
		return fmt.Errorf("error updating profile: %w", err)
	}
	return expectAffected(result, fmt.Sprintf("profile for user %s", userID))
}

func (s *sqlStore) DeleteUser(ctx context.Context, userID string) error {
	result, err := s.exec(ctx, s.db, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}
	return expectAffected(result, fmt.Sprintf("user %s", userID))
}

// Diary methods
const entryColumns = `id, user_id, date, content, ai_response, revision, created_at, updated_at`

func (s *sqlStore) FindEntry(ctx context.Context, userID string, date models.Date) (*models.DiaryEntry, error) {
	row := s.queryRow(ctx, s.db, `
		SELECT `+entryColumns+`
		FROM diary_entries WHERE user_id = ? AND date = ?`, userID, date.String())
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry for %s on %s: %w", userID, date, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying entry: %w", err)
	}
	return entry, nil
}

func (s *sqlStore) GetEntry(ctx context.Context, userID, entryID string) (*models.DiaryEntry, error) {
	row := s.queryRow(ctx, s.db, `
		SELECT `+entryColumns+`
		FROM diary_entries WHERE id = ? AND user_id = ?`, entryID, userID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry %s: %w", entryID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying entry: %w", err)
	}
	return entry, nil
}

func (s *sqlStore) UpsertEntry(ctx context.Context, userID string, date models.Date, content string, now time.Time) (*models.DiaryEntry, error) {
	ts := now.UTC().Format(timestampLayout)
	row := s.queryRow(ctx, s.db, `
		INSERT INTO diary_entries (id, user_id, date, content, ai_response, revision, created_at, updated_at)
		VALUES (?, ?, ?, ?, NULL, 1, ?, ?)
		ON CONFLICT (user_id, date) DO UPDATE SET
			content = excluded.content,
			ai_response = NULL,
			revision = diary_entries.revision + 1,
			updated_at = excluded.updated_at
		RETURNING `+entryColumns,
		uuid.New().String(), userID, date.String(), content, ts, ts)

	entry, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("error upserting entry: %w", err)
	}

	s.logger.Debug("Diary entry saved",
		zap.String("backend", s.dialect.name()),
		zap.String("entry_id", entry.ID),
		zap.String("user_id", userID),
		zap.Stringer("date", date),
		zap.Int64("revision", entry.Revision))
	return entry, nil
}

func (s *sqlStore) SetAIResponse(ctx context.Context, entryID string, revision int64, text string) error {
	result, err := s.exec(ctx, s.db, `
		UPDATE diary_entries SET ai_response = ?
		WHERE id = ? AND revision = ?`, text, entryID, revision)
	if err != nil {
		return fmt.Errorf("error updating ai response: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var current int64
	err = s.queryRow(ctx, s.db, `SELECT revision FROM diary_entries WHERE id = ?`, entryID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("entry %s: %w", entryID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("error querying entry revision: %w", err)
	}
	return fmt.Errorf("entry %s at revision %d, reply for %d: %w", entryID, current, revision, ErrStale)
}

func (s *sqlStore) ListEntries(ctx context.Context, userID string, filter EntryFilter) ([]*models.DiaryEntry, error) {
	var (
		conds = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if !filter.Before.IsZero() {
		conds = append(conds, "date < ?")
		args = append(args, filter.Before.String())
	}
	if !filter.From.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, filter.From.String())
	}
	if !filter.To.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, filter.To.String())
	}
	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		conds = append(conds, "content "+s.dialect.likeOperator()+` ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(kw)+"%")
	}

	query := `SELECT ` + entryColumns + ` FROM diary_entries WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY date DESC`
	if filter.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("error querying entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.DiaryEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Topic methods
func (s *sqlStore) CreateTopic(ctx context.Context, date models.Date, title string) (*models.DailyTopic, error) {
	if err := validateTopic(date, title); err != nil {
		return nil, err
	}

	topic := &models.DailyTopic{ID: uuid.New().String(), Date: date, Title: title}
	_, err := s.exec(ctx, s.db, `INSERT INTO daily_topics (id, date, title) VALUES (?, ?, ?)`,
		topic.ID, date.String(), title)
	if s.dialect.isUniqueViolation(err) {
		return nil, fmt.Errorf("topic for %s: %w", date, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("error creating topic: %w", err)
	}
	return topic, nil
}

func (s *sqlStore) GetTopicByDate(ctx context.Context, date models.Date) (*models.DailyTopic, error) {
	topic := &models.DailyTopic{}
	var d dbDate
	err := s.queryRow(ctx, s.db, `SELECT id, date, title FROM daily_topics WHERE date = ?`, date.String()).
		Scan(&topic.ID, &d, &topic.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("topic for %s: %w", date, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying topic: %w", err)
	}
	topic.Date = d.Date
	return topic, nil
}

func (s *sqlStore) AddComment(ctx context.Context, topicID, authorID, content string, now time.Time) (*models.ThreadComment, error) {
	var exists int
	err := s.queryRow(ctx, s.db, `SELECT 1 FROM daily_topics WHERE id = ?`, topicID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("topic %s: %w", topicID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying topic: %w", err)
	}

	comment := &models.ThreadComment{
		ID:        uuid.New().String(),
		TopicID:   topicID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: now.UTC().Truncate(time.Microsecond),
	}
	err = s.queryRow(ctx, s.db, `SELECT username FROM users WHERE id = ?`, authorID).Scan(&comment.Author)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", authorID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying author: %w", err)
	}

	_, err = s.exec(ctx, s.db, `
		INSERT INTO thread_comments (id, topic_id, author_id, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		comment.ID, topicID, authorID, content, comment.CreatedAt.Format(timestampLayout))
	if err != nil {
		return nil, fmt.Errorf("error creating comment: %w", err)
	}
	return comment, nil
}

func (s *sqlStore) ListComments(ctx context.Context, topicID string) ([]*models.ThreadComment, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT c.id, c.topic_id, c.author_id, u.username, c.content, c.created_at
		FROM thread_comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.topic_id = ?
		ORDER BY c.created_at ASC, c.id ASC`), topicID)
	if err != nil {
		return nil, fmt.Errorf("error querying comments: %w", err)
	}
	defer rows.Close()

	comments := []*models.ThreadComment{}
	for rows.Next() {
		c := &models.ThreadComment{}
		var createdAt dbTime
		if err := rows.Scan(&c.ID, &c.TopicID, &c.AuthorID, &c.Author, &c.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("error scanning comment: %w", err)
		}
		c.CreatedAt = createdAt.Time
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*models.DiaryEntry, error) {
	entry := &models.DiaryEntry{}
	var (
		date                 dbDate
		reply                sql.NullString
		createdAt, updatedAt dbTime
	)
	err := row.Scan(&entry.ID, &entry.UserID, &date, &entry.Content, &reply,
		&entry.Revision, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	entry.Date = date.Date
	if reply.Valid {
		entry.AIResponse = &reply.String
	}
	entry.CreatedAt = createdAt.Time
	entry.UpdatedAt = updatedAt.Time
	return entry, nil
}

func expectAffected(result sql.Result, what string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// rebindDollar turns ? placeholders into $1, $2, ...
func rebindDollar(query string) string {
	var (
		b strings.Builder
		n int
	)
	b.Grow(len(query) + 8)
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// dbTime scans timestamps stored natively (time.Time) or as text.
type dbTime struct {
	Time time.Time
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into timestamp", src)
}

func (t *dbTime) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

// dbDate scans DATE columns stored natively or as YYYY-MM-DD text.
type dbDate struct {
	Date models.Date
}

func (d *dbDate) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.Date = models.DateOf(v)
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	}
	return fmt.Errorf("cannot scan %T into date", src)
}

func (d *dbDate) parse(s string) error {
	if len(s) > len(models.DateLayout) {
		s = s[:len(models.DateLayout)]
	}
	parsed, err := models.ParseDate(s)
	if err != nil {
		return err
	}
	d.Date = parsed
	return nil
}

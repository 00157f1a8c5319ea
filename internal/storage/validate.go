package storage

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xaenox/diary-bot/internal/models"
)

func validateTopic(date models.Date, title string) error {
	if date.IsZero() {
		return fmt.Errorf("topic date is required: %w", ErrInvalid)
	}
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("topic title is required: %w", ErrInvalid)
	}
	if n := utf8.RuneCountInString(title); n > models.MaxTopicTitleLength {
		return fmt.Errorf("topic title has %d characters, max %d: %w", n, models.MaxTopicTitleLength, ErrInvalid)
	}
	return nil
}

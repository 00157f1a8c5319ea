package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateOfUsesLocation(t *testing.T) {
	instant := time.Date(2026, 10, 14, 15, 30, 0, 0, time.UTC)

	assert.Equal(t, "2026-10-14", DateOf(instant).String())
	assert.Equal(t, "2026-10-15", DateOf(instant.In(time.FixedZone("JST", 9*3600))).String())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-02-28")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2026, Month: time.February, Day: 28}, d)

	for _, bad := range []string{"", "2026-2-28", "2026-02-30", "28/02/2026"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestDateOrdering(t *testing.T) {
	a := Date{Year: 2026, Month: time.September, Day: 30}
	b := a.AddDays(1)

	assert.Equal(t, "2026-10-01", b.String())
	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.True(t, b.After(a))
	assert.False(t, a.Before(a))
	assert.Equal(t, a, b.AddDays(-1))
	assert.Equal(t, "2027-01-01", Date{Year: 2026, Month: time.December, Day: 31}.AddDays(1).String())
}

func TestDateZero(t *testing.T) {
	assert.True(t, Date{}.IsZero())
	assert.False(t, Date{Year: 2026, Month: time.January, Day: 1}.IsZero())
}

func TestDateJSON(t *testing.T) {
	type payload struct {
		Date Date `json:"date"`
	}

	b, err := json.Marshal(payload{Date: Date{Year: 2026, Month: time.October, Day: 5}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2026-10-05"}`, string(b))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2026-11-30"}`), &p))
	assert.Equal(t, "2026-11-30", p.Date.String())

	assert.Error(t, json.Unmarshal([]byte(`{"date":"tomorrow"}`), &p))
}

func TestDiaryEntryReply(t *testing.T) {
	entry := &DiaryEntry{}
	assert.False(t, entry.HasReply())
	assert.Empty(t, entry.Reply())

	reply := "よい一日でしたね。"
	entry.AIResponse = &reply
	assert.True(t, entry.HasReply())
	assert.Equal(t, reply, entry.Reply())
}

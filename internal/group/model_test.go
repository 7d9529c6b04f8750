package group

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDeriveStatus(t *testing.T) {
	today := date(2026, time.September, 1)

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  Status
	}{
		{"starts in the future", today.AddDate(0, 0, 5), today.AddDate(0, 0, 40), StatusComing},
		{"started in the past, ends in the future", today.AddDate(0, 0, -5), today.AddDate(0, 0, 5), StatusRunning},
		{"ended in the past", today.AddDate(0, 0, -40), today.AddDate(0, 0, -1), StatusFinished},
		{"starts today", today, today.AddDate(0, 0, 30), StatusRunning},
		{"ends today", today.AddDate(0, 0, -30), today, StatusRunning},
		{"starts tomorrow", today.AddDate(0, 0, 1), today.AddDate(0, 0, 30), StatusComing},
		{"ended yesterday", today.AddDate(0, 0, -30), today.AddDate(0, 0, -1), StatusFinished},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.start, tt.end, today))
		})
	}
}

func TestDeriveStatusIgnoresClockTime(t *testing.T) {
	// "today" carries a wall-clock time when it comes from time.Now
	today := time.Date(2026, time.September, 1, 23, 30, 0, 0, time.UTC)
	start := date(2026, time.September, 1)
	end := date(2026, time.October, 1)

	assert.Equal(t, StatusRunning, DeriveStatus(start, end, today))
}

func TestParseClockTime(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"09:00:00 AM", "09:00:00", false},
		{"12:00:00 AM", "00:00:00", false},
		{"12:00:00 PM", "12:00:00", false},
		{"05:30:15 PM", "17:30:15", false},
		{"  09:00:00 am ", "09:00:00", false},
		{"17:00:00", "", true},
		{"09:00 AM", "", true},
		{"not a time", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseClockTime(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		assert.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestReconcileDays(t *testing.T) {
	current := []GroupDay{
		{DayID: 1, Time: "09:00:00"},
		{DayID: 3, Time: "14:00:00"},
	}

	t.Run("insert update delete", func(t *testing.T) {
		desired := []GroupDay{
			{DayID: 1, Time: "10:00:00"}, // time moved
			{DayID: 5, Time: "09:00:00"}, // new slot
		}

		plan := ReconcileDays(current, desired)
		assert.Equal(t, []GroupDay{{DayID: 5, Time: "09:00:00"}}, plan.Insert)
		assert.Equal(t, []GroupDay{{DayID: 1, Time: "10:00:00"}}, plan.Update)
		assert.Equal(t, []int64{3}, plan.Delete)
		assert.False(t, plan.Empty())
	})

	t.Run("same set is a no-op", func(t *testing.T) {
		plan := ReconcileDays(current, current)
		assert.True(t, plan.Empty())
	})

	t.Run("empty desired deletes everything", func(t *testing.T) {
		plan := ReconcileDays(current, nil)
		assert.Empty(t, plan.Insert)
		assert.Empty(t, plan.Update)
		assert.ElementsMatch(t, []int64{1, 3}, plan.Delete)
	})
}

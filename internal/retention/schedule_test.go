package retention

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(day, hour, min int) time.Time {
	// March 2025: the 3rd is a Monday.
	return time.Date(2025, 3, day, hour, min, 0, 0, time.UTC)
}

func TestDailyDue(t *testing.T) {
	trigger := Daily{Hour: 2}

	tests := []struct {
		name string
		prev time.Time
		now  time.Time
		want bool
	}{
		{"window spans the hour", at(3, 1, 0), at(3, 2, 30), true},
		{"fires exactly at the hour", at(3, 1, 0), at(3, 2, 0), true},
		{"window before the hour", at(3, 0, 0), at(3, 1, 59), false},
		{"window after the hour", at(3, 2, 30), at(3, 23, 0), false},
		{"next day's firing", at(3, 2, 30), at(4, 2, 0), true},
		{"prev exactly at the hour waits a day", at(3, 2, 0), at(3, 23, 59), false},
		{"multi-day gap still due", at(3, 2, 30), at(6, 12, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, trigger.Due(tt.prev, tt.now))
		})
	}
}

func TestWeeklyDue(t *testing.T) {
	trigger := Weekly{Day: time.Monday, Hour: 3}

	tests := []struct {
		name string
		prev time.Time
		now  time.Time
		want bool
	}{
		{"monday window spans the hour", at(3, 2, 0), at(3, 3, 30), true},
		{"fires exactly at the hour", at(3, 2, 0), at(3, 3, 0), true},
		{"tuesday never fires", at(4, 0, 0), at(4, 23, 59), false},
		{"full week elapses", at(3, 3, 30), at(10, 3, 0), true},
		{"six days is not enough", at(3, 3, 30), at(9, 23, 59), false},
		{"prev exactly at the slot waits a week", at(3, 3, 0), at(9, 23, 59), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, trigger.Due(tt.prev, tt.now))
		})
	}
}

func TestEveryDue(t *testing.T) {
	trigger := Every{Interval: 6 * time.Hour}

	base := at(3, 0, 0)
	assert.False(t, trigger.Due(base, base.Add(5*time.Hour)))
	assert.True(t, trigger.Due(base, base.Add(6*time.Hour)))
	assert.True(t, trigger.Due(base, base.Add(7*time.Hour)))
}

func TestTriggerDescribe(t *testing.T) {
	assert.Equal(t, "daily at 02:00 UTC", Daily{Hour: 2}.Describe())
	assert.Equal(t, "weekly on Monday at 03:00 UTC", Weekly{Day: time.Monday, Hour: 3}.Describe())
	assert.Equal(t, "every 6h0m0s", Every{Interval: 6 * time.Hour}.Describe())
}

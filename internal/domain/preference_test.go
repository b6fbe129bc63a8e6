package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPreference(t *testing.T) {
	pref := DefaultPreference("user-1")

	assert.Equal(t, "user-1", pref.UserID)
	assert.True(t, pref.Enabled)
	assert.False(t, pref.DoNotDisturb)
	assert.Equal(t, []NotificationChannel{ChannelWeb, ChannelEmail}, pref.Channels)
	assert.True(t, pref.WeeklyDigest)
	assert.False(t, pref.DailyDigest)
	assert.Equal(t, TimeOfDay{Hour: 9}, pref.DigestTime)
	assert.Equal(t, 1, pref.DigestDay)
}

func TestIsDNDActive(t *testing.T) {
	at := func(hour, minute int) time.Time {
		return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
	}

	tests := []struct {
		name     string
		start    TimeOfDay
		end      TimeOfDay
		now      time.Time
		expected bool
	}{
		{"inside window", TimeOfDay{Hour: 22}, TimeOfDay{Hour: 23}, at(22, 30), true},
		{"before window", TimeOfDay{Hour: 22}, TimeOfDay{Hour: 23}, at(21, 59), false},
		{"after window", TimeOfDay{Hour: 22}, TimeOfDay{Hour: 23}, at(23, 1), false},
		{"window bounds inclusive", TimeOfDay{Hour: 22}, TimeOfDay{Hour: 23}, at(23, 0), true},
		{"overnight window late evening", TimeOfDay{Hour: 22}, TimeOfDay{Hour: 8}, at(23, 30), true},
		{"overnight window early morning", TimeOfDay{Hour: 22}, TimeOfDay{Hour: 8}, at(6, 0), true},
		{"overnight window midday", TimeOfDay{Hour: 22}, TimeOfDay{Hour: 8}, at(12, 0), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pref := DefaultPreference("user-1")
			pref.DoNotDisturb = true
			pref.DNDStart = &tc.start
			pref.DNDEnd = &tc.end

			assert.Equal(t, tc.expected, pref.IsDNDActive(tc.now))
		})
	}
}

func TestIsDNDActiveDisabledOrIncomplete(t *testing.T) {
	now := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	start := TimeOfDay{Hour: 22}
	end := TimeOfDay{Hour: 8}

	pref := DefaultPreference("user-1")
	pref.DNDStart = &start
	pref.DNDEnd = &end
	assert.False(t, pref.IsDNDActive(now), "флаг do_not_disturb выключен")

	pref.DoNotDisturb = true
	pref.DNDEnd = nil
	assert.False(t, pref.IsDNDActive(now), "окно задано не полностью")
}

func TestShouldNotify(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	pref := DefaultPreference("user-1")

	assert.True(t, pref.ShouldNotify("task_assigned", ChannelWeb, now))

	// Выключенный тип события
	pref.TaskAssigned = false
	assert.False(t, pref.ShouldNotify("task_assigned", ChannelWeb, now))

	// Неизвестный тип события считается включенным
	assert.True(t, pref.ShouldNotify("something_new", ChannelWeb, now))

	// Невключенный канал
	assert.False(t, pref.ShouldNotify("task_overdue", ChannelSMS, now))

	// Глобальное выключение перекрывает все
	pref.Enabled = false
	assert.False(t, pref.ShouldNotify("task_overdue", ChannelWeb, now))
}

func TestShouldNotifyDuringDND(t *testing.T) {
	pref := DefaultPreference("user-1")
	pref.DoNotDisturb = true
	start := TimeOfDay{Hour: 22}
	end := TimeOfDay{Hour: 8}
	pref.DNDStart = &start
	pref.DNDEnd = &end

	night := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.False(t, pref.ShouldNotify("task_assigned", ChannelWeb, night))
	assert.True(t, pref.ShouldNotify("task_assigned", ChannelWeb, day))
}

func TestTimeOfDayParseAndString(t *testing.T) {
	parsed, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 9, Minute: 30}, parsed)
	assert.Equal(t, "09:30", parsed.String())

	// Формат колонок time в Postgres
	parsed, err = ParseTimeOfDay("22:15:00")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 22, Minute: 15}, parsed)

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
}

func TestTimeOfDayJSON(t *testing.T) {
	tod := TimeOfDay{Hour: 7, Minute: 5}

	data, err := tod.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"07:05"`, string(data))

	var decoded TimeOfDay
	require.NoError(t, decoded.UnmarshalJSON(data))
	assert.Equal(t, tod, decoded)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurlyy/task_notifier/internal/domain"
)

func TestGetPreferencesCreatesDefaultLazily(t *testing.T) {
	prefRepo := newFakePreferenceRepo()
	svc := NewPreferenceService(prefRepo, nil, testLogger())

	pref, err := svc.GetPreferences(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", pref.UserID)
	assert.True(t, pref.Enabled)
	assert.ElementsMatch(t, []domain.NotificationChannel{domain.ChannelWeb, domain.ChannelEmail}, pref.Channels)

	// Запись сохранена, повторное чтение возвращает ее же
	stored, err := prefRepo.GetByUserID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, pref.UserID, stored.UserID)
}

func TestUpdatePreferencesPartial(t *testing.T) {
	prefRepo := newFakePreferenceRepo()
	svc := NewPreferenceService(prefRepo, nil, testLogger())

	dnd := true
	start, err := domain.ParseTimeOfDay("22:00")
	require.NoError(t, err)
	end, err := domain.ParseTimeOfDay("08:00")
	require.NoError(t, err)
	taskAssigned := false

	pref, err := svc.UpdatePreferences(context.Background(), "user-1", &domain.PreferenceUpdateRequest{
		DoNotDisturb: &dnd,
		DNDStart:     &start,
		DNDEnd:       &end,
		TaskAssigned: &taskAssigned,
		Channels:     []domain.NotificationChannel{domain.ChannelWeb},
	})
	require.NoError(t, err)

	assert.True(t, pref.DoNotDisturb)
	assert.False(t, pref.TaskAssigned)
	assert.Equal(t, []domain.NotificationChannel{domain.ChannelWeb}, pref.Channels)
	// Незатронутые поля сохраняют значения по умолчанию
	assert.True(t, pref.Enabled)
	assert.True(t, pref.TaskDueSoon)

	stored, err := prefRepo.GetByUserID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, stored.DoNotDisturb)
	assert.False(t, stored.TaskAssigned)
}

func TestShouldNotifyRespectsSettings(t *testing.T) {
	prefRepo := newFakePreferenceRepo()
	svc := NewPreferenceService(prefRepo, nil, testLogger())

	taskAssigned := false
	_, err := svc.UpdatePreferences(context.Background(), "user-1", &domain.PreferenceUpdateRequest{
		TaskAssigned: &taskAssigned,
	})
	require.NoError(t, err)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.False(t, svc.ShouldNotify(context.Background(), "user-1", "task_assigned", domain.ChannelWeb, now))
	assert.True(t, svc.ShouldNotify(context.Background(), "user-1", "task_due_soon", domain.ChannelWeb, now))
	assert.False(t, svc.ShouldNotify(context.Background(), "user-1", "task_due_soon", domain.ChannelSlack, now), "канал не включен в настройках")
}

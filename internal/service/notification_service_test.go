package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurlyy/task_notifier/internal/domain"
	"github.com/nurlyy/task_notifier/internal/repository"
)

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications map[string]*domain.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{notifications: make(map[string]*domain.Notification)}
}

func (r *fakeNotificationRepo) Create(_ context.Context, notification *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *notification
	r.notifications[notification.ID] = &stored
	return nil
}

func (r *fakeNotificationRepo) GetByID(_ context.Context, id string) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	notification, ok := r.notifications[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	found := *notification
	return &found, nil
}

func (r *fakeNotificationRepo) matched(userID string, filter repository.NotificationFilter) []*domain.Notification {
	var result []*domain.Notification
	for _, notification := range r.notifications {
		if notification.UserID != userID {
			continue
		}
		if filter.Status != nil && notification.Status != *filter.Status {
			continue
		}
		if len(filter.Types) > 0 {
			found := false
			for _, t := range filter.Types {
				if notification.Type == t {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		result = append(result, notification)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (r *fakeNotificationRepo) GetUserNotifications(_ context.Context, userID string, filter repository.NotificationFilter) ([]*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := r.matched(userID, filter)
	if filter.Offset >= len(result) {
		return nil, nil
	}
	result = result[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	page := make([]*domain.Notification, 0, len(result))
	for _, notification := range result {
		found := *notification
		page = append(page, &found)
	}
	return page, nil
}

func (r *fakeNotificationRepo) CountUserNotifications(_ context.Context, userID string, filter repository.NotificationFilter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.matched(userID, filter)), nil
}

func (r *fakeNotificationRepo) MarkAsRead(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	notification, ok := r.notifications[id]
	if !ok {
		return domain.ErrNotFound
	}
	notification.MarkAsRead()
	return nil
}

func (r *fakeNotificationRepo) MarkAllAsRead(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, notification := range r.notifications {
		if notification.UserID == userID && notification.Status == domain.NotificationStatusUnread {
			notification.MarkAsRead()
		}
	}
	return nil
}

func (r *fakeNotificationRepo) GetUserUnreadCount(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, notification := range r.notifications {
		if notification.UserID == userID && notification.Status == domain.NotificationStatusUnread {
			count++
		}
	}
	return count, nil
}

var _ repository.NotificationRepository = (*fakeNotificationRepo)(nil)

func seedNotifications(t *testing.T, repo *fakeNotificationRepo, userID string, count int) {
	t.Helper()

	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		err := repo.Create(context.Background(), &domain.Notification{
			ID:        fmt.Sprintf("ntf-%03d", i),
			UserID:    userID,
			Type:      domain.NotificationTypeTaskAssigned,
			Title:     fmt.Sprintf("Уведомление %d", i),
			Content:   "Текст",
			Status:    domain.NotificationStatusUnread,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
}

func TestGetUserNotificationsPagination(t *testing.T) {
	repo := newFakeNotificationRepo()
	seedNotifications(t, repo, "user-1", 45)
	svc := NewNotificationService(repo, nil, testLogger())

	page, err := svc.GetUserNotifications(context.Background(), "user-1", repository.NotificationFilter{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 45, page.TotalItems)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Items.([]domain.NotificationResponse), 20)

	// Последняя страница короче
	page, err = svc.GetUserNotifications(context.Background(), "user-1", repository.NotificationFilter{}, 3, 20)
	require.NoError(t, err)
	assert.Len(t, page.Items.([]domain.NotificationResponse), 5)

	// Некорректные параметры приводятся к значениям по умолчанию
	page, err = svc.GetUserNotifications(context.Background(), "user-1", repository.NotificationFilter{}, 0, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
}

func TestGetUserNotificationsFilterByStatus(t *testing.T) {
	repo := newFakeNotificationRepo()
	seedNotifications(t, repo, "user-1", 4)
	require.NoError(t, repo.MarkAsRead(context.Background(), "ntf-000"))
	svc := NewNotificationService(repo, nil, testLogger())

	unread := domain.NotificationStatusUnread
	page, err := svc.GetUserNotifications(context.Background(), "user-1", repository.NotificationFilter{Status: &unread}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalItems)
}

func TestMarkAsReadChecksOwner(t *testing.T) {
	repo := newFakeNotificationRepo()
	seedNotifications(t, repo, "user-1", 1)
	svc := NewNotificationService(repo, nil, testLogger())

	err := svc.MarkAsRead(context.Background(), "ntf-000", "user-2")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = svc.MarkAsRead(context.Background(), "missing", "user-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.MarkAsRead(context.Background(), "ntf-000", "user-1"))

	count, err := svc.GetUnreadCount(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMarkAllAsRead(t *testing.T) {
	repo := newFakeNotificationRepo()
	seedNotifications(t, repo, "user-1", 5)
	require.NoError(t, repo.Create(context.Background(), &domain.Notification{
		ID:     "other",
		UserID: "user-2",
		Status: domain.NotificationStatusUnread,
	}))
	svc := NewNotificationService(repo, nil, testLogger())

	require.NoError(t, svc.MarkAllAsRead(context.Background(), "user-1"))

	count, err := svc.GetUnreadCount(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = svc.GetUnreadCount(context.Background(), "user-2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

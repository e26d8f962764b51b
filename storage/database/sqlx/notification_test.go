package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/services/email"
	"github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database/sqlx"
	"github.com/trezcool/shule/tests"
)

func notificationIDs(notifs []notification.Notification) []string {
	ids := make([]string, 0, len(notifs))
	for _, n := range notifs {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestNotificationRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db)
	repo := sqlxrepos.NewNotificationRepository(db)
	ctx := context.Background()

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", user.RoleAdmin, true)
	awe := testutil.CreateStudent(t, usrRepo, "Awe", "awe", "CS", 1, "A")

	n1 := testutil.CreateNotification(t, repo, admin.ID, awe.ID, "First")
	n2 := testutil.CreateNotification(t, repo, "", awe.ID, "Second")
	n3 := testutil.CreateNotification(t, repo, admin.ID, awe.ID, "Third")
	other := testutil.CreateNotification(t, repo, "", admin.ID, "Admin only")

	got, err := repo.QueryNotifications(ctx, notification.QueryFilter{ReceiverID: awe.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{n3.ID, n2.ID, n1.ID}, notificationIDs(got))

	got, err = repo.QueryNotifications(ctx, notification.QueryFilter{ReceiverID: awe.ID, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{n3.ID}, notificationIDs(got))

	readAt := core.Now().Add(-48 * time.Hour)
	cnt, err := repo.MarkRead(ctx, awe.ID, []string{n1.ID, other.ID}, readAt)
	require.NoError(t, err)
	assert.Equal(t, 1, cnt, "only own notifications are marked")

	read, err := repo.GetNotification(ctx, n1.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)
	assert.True(t, readAt.Equal(*read.ReadAt))

	unread, err := repo.CountUnread(ctx, awe.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	got, err = repo.QueryNotifications(ctx, notification.QueryFilter{ReceiverID: awe.ID, UnreadOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{n3.ID, n2.ID}, notificationIDs(got))

	assert.Equal(t, notification.ErrNotFound, repo.DeleteNotification(ctx, awe.ID, other.ID))

	purged, err := repo.DeleteRead(ctx, core.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, purged)
	_, err = repo.GetNotification(ctx, n1.ID)
	assert.Equal(t, notification.ErrNotFound, err)

	t.Run("sender deletion keeps the notification", func(t *testing.T) {
		_, err := usrRepo.DeleteUsersByID(ctx, []string{admin.ID})
		require.NoError(t, err)
		got, err := repo.GetNotification(ctx, n3.ID)
		require.NoError(t, err)
		assert.Empty(t, got.SenderID)
	})
}

func TestNotificationService(t *testing.T) {
	db := testutil.PrepareDB(t)
	conf := core.NewTestConfig()
	logger := logsvc.NewDiscardLogger()
	core.ParseEmailTemplates(conf, logger)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	usrRepo := sqlxrepos.NewUserRepository(db)
	usrSvc := user.NewServiceMock(usrRepo, mailSvc, conf, logger)
	repo := sqlxrepos.NewNotificationRepository(db)
	svc := notification.NewService(db, repo, usrSvc, mailSvc, logger)
	ctx := context.Background()

	emailsvc.ClearSentMessages()
	t.Cleanup(emailsvc.ClearSentMessages)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", user.RoleAdmin, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", user.RoleFaculty, true)
	awe := testutil.CreateStudent(t, usrRepo, "Awe", "awe", "CS", 1, "A")
	king := testutil.CreateStudent(t, usrRepo, "King", "king", "CS", 1, "A")
	gone := testutil.CreateUser(t, usrRepo, "Gone", "gone", "gone@test.cd", "", user.RoleStudent, false)

	t.Run("send", func(t *testing.T) {
		_, err := svc.Send(ctx, &admin, notification.NewNotification{ReceiverID: gone.ID, Title: "Hi", Message: "Hello"})
		assert.IsType(t, &core.ValidationError{}, err)

		n, err := svc.Send(ctx, &teacher, notification.NewNotification{
			ReceiverID: awe.ID, Title: "Grades posted", Message: "Your Math grade is available", Link: "/grades",
		})
		require.NoError(t, err)
		assert.Equal(t, teacher.ID, n.SenderID)
		assert.False(t, n.IsRead)

		msgs := emailsvc.SentMessages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "awe@test.cd", msgs[0].To[0].Address)
		assert.Equal(t, "Grades posted", msgs[0].Subject)
		assert.Contains(t, msgs[0].TextContent, "Your Math grade is available")
		assert.Contains(t, msgs[0].TextContent, conf.FrontendBaseURL+"/grades")
	})

	t.Run("broadcast", func(t *testing.T) {
		emailsvc.ClearSentMessages()
		cnt, err := svc.Broadcast(ctx, &admin, notification.Broadcast{Role: user.RoleStudent, Title: "Holiday", Message: "No class on Friday"})
		require.NoError(t, err)
		assert.Equal(t, 2, cnt, "inactive students are skipped")
		assert.Len(t, emailsvc.SentMessages(), 2)

		cnt, err = svc.Broadcast(ctx, nil, notification.Broadcast{Title: "Maintenance", Message: "Down tonight"})
		require.NoError(t, err)
		assert.Equal(t, 4, cnt)
	})

	t.Run("list, read & delete", func(t *testing.T) {
		unread, err := svc.UnreadCount(ctx, awe)
		require.NoError(t, err)
		assert.Equal(t, 3, unread)

		list, err := svc.ListForUser(ctx, awe, true, 0)
		require.NoError(t, err)
		require.Len(t, list, 3)

		assert.Equal(t, notification.ErrNotFound, svc.MarkRead(ctx, king, list[0].ID), "only the receiver may read")
		require.NoError(t, svc.MarkRead(ctx, awe, list[0].ID))
		require.NoError(t, svc.MarkRead(ctx, awe, list[0].ID))

		unread, err = svc.UnreadCount(ctx, awe)
		require.NoError(t, err)
		assert.Equal(t, 2, unread)

		cnt, err := svc.MarkAllRead(ctx, awe)
		require.NoError(t, err)
		assert.Equal(t, 2, cnt)

		assert.Equal(t, notification.ErrNotFound, svc.Delete(ctx, king, list[1].ID))
		require.NoError(t, svc.Delete(ctx, awe, list[1].ID))

		all, err := svc.ListForUser(ctx, awe, false, 0)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("reaper purges old read notifications", func(t *testing.T) {
		reaper, err := notification.NewReaper(svc, time.Hour, "@daily", logger)
		require.NoError(t, err)

		reaper.Run() // read just now: kept
		all, err := svc.ListForUser(ctx, awe, false, 0)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		cnt, err := svc.PurgeRead(ctx, -time.Minute) // everything read before a minute from now
		require.NoError(t, err)
		assert.Equal(t, 2, cnt)

		_, err = notification.NewReaper(svc, time.Hour, "every tuesday", logger)
		assert.Error(t, err)
	})
}

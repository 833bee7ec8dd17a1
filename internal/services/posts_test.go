package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"inkwell/internal/storage"
)

func seedAdminAndUser(t *testing.T, db *gorm.DB) (admin, user uint64) {
	t.Helper()
	svc := NewUserService(db)
	ctx := context.Background()
	a, err := svc.Register(ctx, "Admin", "admin@x.com", "secret")
	require.NoError(t, err)
	u, err := svc.Register(ctx, "Alice", "alice@x.com", "pw1")
	require.NoError(t, err)
	require.Equal(t, AdminUserID, a.ID)
	return a.ID, u.ID
}

func validInput(title string) PostInput {
	return PostInput{Title: title, Subtitle: "sub", Body: "body", ImageURL: "https://img.example/p.png"}
}

func TestCreatePostAuthorizationGates(t *testing.T) {
	db := newTestDB(t)
	_, user := seedAdminAndUser(t, db)
	svc := NewPostService(db)
	ctx := context.Background()

	_, err := svc.Create(ctx, AnonymousID, validInput("Hello"))
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.Create(ctx, user, validInput("Hello"))
	require.ErrorIs(t, err, ErrForbidden)

	p, err := svc.Create(ctx, AdminUserID, validInput("Hello"))
	require.NoError(t, err)
	require.Equal(t, AdminUserID, p.AuthorID)
}

func TestCreatePostStampsDisplayDate(t *testing.T) {
	db := newTestDB(t)
	seedAdminAndUser(t, db)
	svc := NewPostService(db)
	svc.SetClock(func() time.Time { return time.Date(2024, time.June, 3, 12, 0, 0, 0, time.UTC) })

	p, err := svc.Create(context.Background(), AdminUserID, validInput("Dated"))
	require.NoError(t, err)
	require.Equal(t, "June 03, 2024", p.Date)
}

func TestCreatePostValidation(t *testing.T) {
	db := newTestDB(t)
	seedAdminAndUser(t, db)
	svc := NewPostService(db)
	ctx := context.Background()

	for _, in := range []PostInput{
		{Subtitle: "s", Body: "b", ImageURL: "i"},
		{Title: "t", Body: "b", ImageURL: "i"},
		{Title: "t", Subtitle: "s", ImageURL: "i"},
		{Title: "t", Subtitle: "s", Body: "b"},
	} {
		_, err := svc.Create(ctx, AdminUserID, in)
		require.ErrorIs(t, err, ErrValidation)
	}
}

func TestCreatePostDuplicateTitle(t *testing.T) {
	db := newTestDB(t)
	seedAdminAndUser(t, db)
	svc := NewPostService(db)
	ctx := context.Background()

	_, err := svc.Create(ctx, AdminUserID, validInput("Hello"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, AdminUserID, validInput("Hello"))
	require.ErrorIs(t, err, ErrDuplicateTitle)

	var n int64
	require.NoError(t, db.Model(&storage.Post{}).Where("title = ?", "Hello").Count(&n).Error)
	require.Equal(t, int64(1), n, "store must contain exactly one post with the title")
}

func TestEditPostKeepsAuthorAndDate(t *testing.T) {
	db := newTestDB(t)
	seedAdminAndUser(t, db)
	svc := NewPostService(db)
	svc.SetClock(func() time.Time { return time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC) })
	ctx := context.Background()

	p, err := svc.Create(ctx, AdminUserID, validInput("Original"))
	require.NoError(t, err)

	svc.SetClock(func() time.Time { return time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC) })
	got, err := svc.Edit(ctx, AdminUserID, p.ID, PostInput{Title: "Renamed", Subtitle: "s2", Body: "b2", ImageURL: "i2"})
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.Title)
	require.Equal(t, "June 03, 2024", got.Date, "original display date must survive edits")
	require.Equal(t, AdminUserID, got.AuthorID)
}

func TestEditPostErrors(t *testing.T) {
	db := newTestDB(t)
	_, user := seedAdminAndUser(t, db)
	svc := NewPostService(db)
	ctx := context.Background()

	_, err := svc.Edit(ctx, user, 1, validInput("X"))
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Edit(ctx, AdminUserID, 999, validInput("X"))
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Create(ctx, AdminUserID, validInput("One"))
	require.NoError(t, err)
	p2, err := svc.Create(ctx, AdminUserID, validInput("Two"))
	require.NoError(t, err)
	_, err = svc.Edit(ctx, AdminUserID, p2.ID, validInput("One"))
	require.ErrorIs(t, err, ErrDuplicateTitle)
}

func TestDeletePostCascadesComments(t *testing.T) {
	db := newTestDB(t)
	_, user := seedAdminAndUser(t, db)
	postSvc := NewPostService(db)
	commentSvc := NewCommentService(db)
	ctx := context.Background()

	p, err := postSvc.Create(ctx, AdminUserID, validInput("Hello"))
	require.NoError(t, err)
	other, err := postSvc.Create(ctx, AdminUserID, validInput("Other"))
	require.NoError(t, err)

	_, err = commentSvc.Add(ctx, user, p.ID, "first")
	require.NoError(t, err)
	_, err = commentSvc.Add(ctx, user, p.ID, "second")
	require.NoError(t, err)
	keep, err := commentSvc.Add(ctx, user, other.ID, "keep me")
	require.NoError(t, err)

	require.NoError(t, postSvc.Delete(ctx, AdminUserID, p.ID))

	_, err = postSvc.Get(ctx, p.ID)
	require.ErrorIs(t, err, ErrNotFound)

	var orphans int64
	require.NoError(t, db.Model(&storage.Comment{}).Where("post_id = ?", p.ID).Count(&orphans).Error)
	require.Zero(t, orphans, "no orphan comments may remain")

	// 其它文章的评论不受影响
	left, err := commentSvc.ListByPost(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	require.Equal(t, keep.ID, left[0].ID)
}

func TestDeletePostErrors(t *testing.T) {
	db := newTestDB(t)
	_, user := seedAdminAndUser(t, db)
	svc := NewPostService(db)
	ctx := context.Background()

	require.ErrorIs(t, svc.Delete(ctx, AnonymousID, 1), ErrUnauthenticated)
	require.ErrorIs(t, svc.Delete(ctx, user, 1), ErrForbidden)
	require.ErrorIs(t, svc.Delete(ctx, AdminUserID, 999), ErrNotFound)
}

func TestListPostsNewestFirst(t *testing.T) {
	db := newTestDB(t)
	seedAdminAndUser(t, db)
	svc := NewPostService(db)
	ctx := context.Background()

	for _, title := range []string{"First", "Second", "Third"} {
		_, err := svc.Create(ctx, AdminUserID, validInput(title))
		require.NoError(t, err)
	}
	posts, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	require.Equal(t, "Third", posts[0].Title)
	require.Equal(t, "First", posts[2].Title)
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaayien/internal/apperr"
	"adaayien/internal/core/events"
	"adaayien/internal/domain"
	"adaayien/internal/repo"
)

func adminLog(t *testing.T, e *env, userID string) []domain.AdminAction {
	t.Helper()
	var p domain.AdminProfile
	require.NoError(t, e.db.First(&p, "user_id = ?", userID).Error)
	return p.ActionLog
}

func TestAdmin_FeatureToggleAndStats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "root@example.com", domain.RoleAdmin)
	c := e.user(t, "m@example.com", domain.RoleCreator)
	f := e.fabric(t, "velvet", 2)

	p1, err := e.posts.Create(ctx, c, CreatePostInput{Title: "one", FabricID: f.ID})
	require.NoError(t, err)
	_, err = e.posts.Create(ctx, c, CreatePostInput{Title: "two"})
	require.NoError(t, err)

	got, err := e.admin.SetFeatured(ctx, admin, p1.ID, true)
	require.NoError(t, err)
	assert.True(t, got.IsFeatured)

	res, err := e.admin.ListPosts(ctx, repo.PostFilter{}, repo.Page{})
	require.NoError(t, err)
	assert.Equal(t, repo.PostStats{Total: 2, Featured: 1, WithFabric: 1}, res.Stats)
	require.Len(t, res.Posts.Items, 2)
	assert.Equal(t, p1.ID, res.Posts.Items[0].ID)

	log := adminLog(t, e, admin.ID)
	require.Len(t, log, 1)
	assert.Equal(t, "post.feature", log[0].Action)
	assert.Equal(t, p1.ID, log[0].Target)
	assert.Contains(t, e.pub.Types(), events.AdminPostFeatured)

	_, err = e.admin.SetFeatured(ctx, admin, "missing", true)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestAdmin_CreatorCannotFeatureViaUpdate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.user(t, "m@example.com", domain.RoleCreator)
	p, err := e.posts.Create(ctx, c, CreatePostInput{Title: "t"})
	require.NoError(t, err)

	title := "t2"
	got, err := e.posts.Update(ctx, c, p.ID, UpdatePostInput{Title: &title})
	require.NoError(t, err)
	assert.False(t, got.IsFeatured)
}

func TestAdmin_DeletePost(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "root@example.com", domain.RoleAdmin)
	c := e.user(t, "m@example.com", domain.RoleCreator)
	p, err := e.posts.Create(ctx, c, CreatePostInput{Title: "t", Images: ImageInput{Files: files("x.jpg")}})
	require.NoError(t, err)

	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(e.admin.DeletePost(ctx, c, p.ID)))
	require.NoError(t, e.admin.DeletePost(ctx, admin, p.ID))

	assert.Equal(t, []string{"pid-x.jpg"}, e.store.Destroyed())
	log := adminLog(t, e, admin.ID)
	require.Len(t, log, 1)
	assert.Equal(t, "post.delete", log[0].Action)
	assert.Contains(t, e.pub.Types(), events.AdminPostDeleted)
}

func TestAdmin_ListCreators(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.user(t, "a@example.com", domain.RoleCreator)
	b := e.user(t, "b@example.com", domain.RoleCreator)
	e.user(t, "c@example.com", domain.RoleCustomer)
	for i := 0; i < 2; i++ {
		_, err := e.posts.Create(ctx, a, CreatePostInput{Title: "p"})
		require.NoError(t, err)
	}

	res, err := e.admin.ListCreators(ctx, repo.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)
	counts := map[string]int64{}
	for _, it := range res.Items {
		require.NotNil(t, it.Profile)
		counts[it.User.ID] = it.PostCount
	}
	assert.Equal(t, map[string]int64{a.ID: 2, b.ID: 0}, counts)
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaayien/internal/apperr"
	"adaayien/internal/domain"
	"adaayien/internal/repo"
)

func creatorPosts(t *testing.T, e *env, userID string) int {
	t.Helper()
	var p domain.CreatorProfile
	require.NoError(t, e.db.First(&p, "user_id = ?", userID).Error)
	return p.TotalPosts
}

func TestPost_CreateNeverFeatured(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.user(t, "m@example.com", domain.RoleCreator)
	f := e.fabric(t, "chiffon", 9)

	p, err := e.posts.Create(ctx, c, CreatePostInput{Title: " Drape ", FabricID: f.ID, Price: 100, Images: ImageInput{Files: files("p.jpg")}})
	require.NoError(t, err)
	assert.False(t, p.IsFeatured)
	assert.Equal(t, "Drape", p.Title)
	assert.Equal(t, c.ID, p.CreatorID)
	require.NotNil(t, p.Fabric)
	assert.Equal(t, f.ID, p.Fabric.ID)
	require.Len(t, p.Images, 1)
	assert.Equal(t, 1, creatorPosts(t, e, c.ID))

	_, err = e.posts.Create(ctx, c, CreatePostInput{Title: "x", FabricID: "missing"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestPost_OwnershipRules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.user(t, "owner@example.com", domain.RoleCreator)
	other := e.user(t, "other@example.com", domain.RoleCreator)
	admin := e.user(t, "admin@example.com", domain.RoleAdmin)

	p, err := e.posts.Create(ctx, owner, CreatePostInput{Title: "Mine"})
	require.NoError(t, err)

	title := "Stolen"
	_, err = e.posts.Update(ctx, other, p.ID, UpdatePostInput{Title: &title})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(e.posts.Delete(ctx, other, p.ID)))

	title = "Still mine"
	got, err := e.posts.Update(ctx, owner, p.ID, UpdatePostInput{Title: &title, Images: ImageInput{URLs: []string{"https://x/1.jpg"}}})
	require.NoError(t, err)
	assert.Equal(t, "Still mine", got.Title)
	assert.Len(t, got.Images, 1)

	require.NoError(t, e.posts.Delete(ctx, admin, p.ID))
	_, err = e.posts.Get(ctx, p.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Zero(t, creatorPosts(t, e, owner.ID))
}

func TestPost_UpdateFabricLink(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.user(t, "m@example.com", domain.RoleCreator)
	f := e.fabric(t, "linen", 4)
	p, err := e.posts.Create(ctx, c, CreatePostInput{Title: "t"})
	require.NoError(t, err)

	got, err := e.posts.Update(ctx, c, p.ID, UpdatePostInput{FabricID: &f.ID})
	require.NoError(t, err)
	require.NotNil(t, got.FabricID)
	assert.Equal(t, f.ID, *got.FabricID)

	empty := ""
	got, err = e.posts.Update(ctx, c, p.ID, UpdatePostInput{FabricID: &empty})
	require.NoError(t, err)
	assert.Nil(t, got.FabricID)

	bad := "missing"
	_, err = e.posts.Update(ctx, c, p.ID, UpdatePostInput{FabricID: &bad})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestPost_ListByCreator(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.user(t, "a@example.com", domain.RoleCreator)
	b := e.user(t, "b@example.com", domain.RoleCreator)
	for i := 0; i < 3; i++ {
		_, err := e.posts.Create(ctx, a, CreatePostInput{Title: "a"})
		require.NoError(t, err)
	}
	_, err := e.posts.Create(ctx, b, CreatePostInput{Title: "b"})
	require.NoError(t, err)

	res, err := e.posts.List(ctx, repo.PostFilter{CreatorID: a.ID}, repo.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.Total)
	for _, p := range res.Items {
		assert.Equal(t, a.ID, p.CreatorID)
	}
}

func TestPost_DeleteWithoutImages(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.user(t, "m@example.com", domain.RoleCreator)
	p, err := e.posts.Create(ctx, c, CreatePostInput{Title: "bare"})
	require.NoError(t, err)
	require.NoError(t, e.posts.Delete(ctx, c, p.ID))
	assert.Empty(t, e.store.Destroyed())
}

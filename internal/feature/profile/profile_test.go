package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaayien/internal/domain"
	"adaayien/internal/testutil"
)

func strptr(s string) *string { return &s }

func TestFor(t *testing.T) {
	assert.Equal(t, domain.RoleCustomer, For(domain.RoleCustomer).Role())
	assert.Equal(t, domain.RoleCreator, For(domain.RoleCreator).Role())
	assert.Equal(t, domain.RoleAdmin, For(domain.RoleAdmin).Role())
	assert.Equal(t, domain.RoleCustomer, For("wizard").Role())
}

func TestCreator_CreateLoadUpdate(t *testing.T) {
	db := testutil.NewDB(t)
	k := For(domain.RoleCreator)

	require.NoError(t, k.Create(db, "u1", Attrs{Bio: strptr("weaver")}))
	got, err := k.Load(db, "u1")
	require.NoError(t, err)
	p := got.(*domain.CreatorProfile)
	assert.Equal(t, "weaver", p.Bio)
	assert.Equal(t, domain.CreatorPending, p.VerificationStatus)

	upd, err := k.Update(db, "u1", Attrs{Specialization: strptr("silk")})
	require.NoError(t, err)
	p = upd.(*domain.CreatorProfile)
	assert.Equal(t, "weaver", p.Bio)
	assert.Equal(t, "silk", p.Specialization)
}

func TestLoad_MissingReturnsNil(t *testing.T) {
	db := testutil.NewDB(t)
	for _, r := range []domain.Role{domain.RoleCustomer, domain.RoleCreator, domain.RoleAdmin} {
		got, err := For(r).Load(db, "nobody")
		require.NoError(t, err)
		assert.Nil(t, got, r)
	}
}

func TestCustomer_UpdateCreatesMissing(t *testing.T) {
	db := testutil.NewDB(t)
	got, err := For(domain.RoleCustomer).Update(db, "u2", Attrs{Preferences: map[string]string{"color": "indigo"}})
	require.NoError(t, err)
	p := got.(*domain.CustomerProfile)
	assert.Equal(t, "indigo", p.Preferences["color"])
	assert.Equal(t, "standard", p.Tier)
}

func TestAdjustCreatorPosts_NeverNegative(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, Creator{}.Create(db, "c1", Attrs{}))

	require.NoError(t, AdjustCreatorPosts(db, "c1", 1))
	require.NoError(t, AdjustCreatorPosts(db, "c1", 1))
	require.NoError(t, AdjustCreatorPosts(db, "c1", -5))

	var p domain.CreatorProfile
	require.NoError(t, db.First(&p, "user_id = ?", "c1").Error)
	assert.Equal(t, 0, p.TotalPosts)
}

func TestRecordAdminAction(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, Admin{}.Create(db, "a1", Attrs{}))
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, RecordAdminAction(db, "a1", "post.feature", "p1", at))
	require.NoError(t, RecordAdminAction(db, "nobody", "post.feature", "p1", at))

	got, err := Admin{}.Load(db, "a1")
	require.NoError(t, err)
	p := got.(*domain.AdminProfile)
	require.Len(t, p.ActionLog, 1)
	assert.Equal(t, "post.feature", p.ActionLog[0].Action)
	assert.ElementsMatch(t, DefaultAdminPermissions, p.Permissions)
}

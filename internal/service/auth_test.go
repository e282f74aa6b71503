package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaayien/internal/apperr"
	"adaayien/internal/core/events"
	"adaayien/internal/domain"
	"adaayien/internal/feature/profile"
)

func register(t *testing.T, e *env, email string, role domain.Role) RegisterResult {
	t.Helper()
	res, err := e.auth.Register(context.Background(), RegisterInput{
		Name: "Alice", Email: email, Password: "Abcd123!", Role: role, Bio: "handloom weaver",
	})
	require.NoError(t, err)
	return res
}

func tokenOf(t *testing.T, e *env, userID string) string {
	t.Helper()
	u := e.reloadUser(t, userID)
	require.NotNil(t, u.VerificationToken)
	return *u.VerificationToken
}

func TestRegister_CreatesUnverifiedUserWithProfile(t *testing.T) {
	e := newEnv(t)
	res := register(t, e, "Alice@Example.com", domain.RoleCreator)

	assert.True(t, res.EmailSent)
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.Equal(t, domain.RoleCreator, res.User.Role)
	assert.False(t, res.User.EmailVerified)

	u := e.reloadUser(t, res.User.ID)
	require.NotNil(t, u.VerificationToken)
	assert.Len(t, *u.VerificationToken, 64)
	assert.WithinDuration(t, t0.Add(24*time.Hour), *u.VerificationExpires, time.Second)
	assert.NotEqual(t, "Abcd123!", u.PasswordHash)

	p, err := profile.For(domain.RoleCreator).Load(e.db, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "handloom weaver", p.(*domain.CreatorProfile).Bio)

	require.Len(t, e.mailer.sent, 1)
	assert.Contains(t, e.mailer.sent[0].Text, "http://api.test/auth/verify-email/"+*u.VerificationToken)
	assert.Equal(t, []string{events.UserRegistered}, e.pub.Types())
}

func TestRegister_DuplicateAnyCase(t *testing.T) {
	e := newEnv(t)
	register(t, e, "alice@example.com", domain.RoleCustomer)

	_, err := e.auth.Register(context.Background(), RegisterInput{Name: "A", Email: "ALICE@example.COM", Password: "Abcd123!"})
	assert.Equal(t, apperr.KindDuplicateAccount, apperr.KindOf(err))
}

func TestRegister_AdminRoleDowngraded(t *testing.T) {
	e := newEnv(t)
	res := register(t, e, "eve@example.com", domain.RoleAdmin)
	assert.Equal(t, domain.RoleCustomer, res.User.Role)

	p, err := profile.For(domain.RoleCustomer).Load(e.db, res.User.ID)
	require.NoError(t, err)
	assert.NotNil(t, p)
	p, err = profile.For(domain.RoleAdmin).Load(e.db, res.User.ID)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestRegister_InvalidDomains(t *testing.T) {
	e := newEnv(t)
	for _, email := range []string{"bob@mailinator.com", "bob@no-mx.test", "bob@nullmx.com"} {
		_, err := e.auth.Register(context.Background(), RegisterInput{Name: "Bob", Email: email, Password: "Abcd123!"})
		assert.Equal(t, apperr.KindInvalidEmailDomain, apperr.KindOf(err), email)
	}
	var n int64
	require.NoError(t, e.db.Model(&domain.User{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestRegister_MailFailureKeepsAccount(t *testing.T) {
	e := newEnv(t)
	e.mailer.err = errors.New("smtp down")
	res := register(t, e, "carol@example.com", domain.RoleCustomer)
	assert.False(t, res.EmailSent)
	assert.NotEmpty(t, e.reloadUser(t, res.User.ID).ID)
}

func TestLogin_RequiresVerification(t *testing.T) {
	e := newEnv(t)
	res := register(t, e, "alice@example.com", domain.RoleCreator)

	_, err := e.auth.Login(context.Background(), "alice@example.com", "Abcd123!")
	assert.Equal(t, apperr.KindEmailNotVerified, apperr.KindOf(err))
	// 未验证时不计失败次数
	_, err = e.auth.Login(context.Background(), "alice@example.com", "wrong")
	assert.Equal(t, apperr.KindEmailNotVerified, apperr.KindOf(err))
	assert.Zero(t, e.reloadUser(t, res.User.ID).FailedLogins)

	v, err := e.auth.VerifyEmail(context.Background(), tokenOf(t, e, res.User.ID))
	require.NoError(t, err)
	assert.True(t, v.User.EmailVerified)
	claims, err := e.jwt.Parse(v.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UID)

	out, err := e.auth.Login(context.Background(), "ALICE@example.com", "Abcd123!")
	require.NoError(t, err)
	assert.NotEmpty(t, out.Token)
	assert.IsType(t, &domain.CreatorProfile{}, out.RoleData)
	assert.NotNil(t, e.reloadUser(t, res.User.ID).LastLogin)
}

func TestVerifyEmail_TokenSingleUseAndExpiry(t *testing.T) {
	e := newEnv(t)
	a := register(t, e, "a@example.com", domain.RoleCustomer)
	b := register(t, e, "b@example.com", domain.RoleCustomer)
	tokA, tokB := tokenOf(t, e, a.User.ID), tokenOf(t, e, b.User.ID)

	_, err := e.auth.VerifyEmail(context.Background(), tokA)
	require.NoError(t, err)
	_, err = e.auth.VerifyEmail(context.Background(), tokA)
	assert.Equal(t, apperr.KindInvalidToken, apperr.KindOf(err))
	assert.Nil(t, e.reloadUser(t, a.User.ID).VerificationToken)

	e.clock.Advance(25 * time.Hour)
	_, err = e.auth.VerifyEmail(context.Background(), tokB)
	assert.Equal(t, apperr.KindInvalidToken, apperr.KindOf(err))

	_, err = e.auth.VerifyEmail(context.Background(), "")
	assert.Equal(t, apperr.KindInvalidToken, apperr.KindOf(err))
	assert.Contains(t, e.pub.Types(), events.UserVerified)
}

func TestResendVerification(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.auth.ResendVerification(ctx, "ghost@example.com")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	res := register(t, e, "dan@example.com", domain.RoleCustomer)
	old := tokenOf(t, e, res.User.ID)

	out, err := e.auth.ResendVerification(ctx, "Dan@example.com")
	require.NoError(t, err)
	assert.True(t, out.EmailSent)
	fresh := tokenOf(t, e, res.User.ID)
	assert.NotEqual(t, old, fresh)
	assert.Len(t, e.mailer.sent, 2)

	_, err = e.auth.VerifyEmail(ctx, old)
	assert.Equal(t, apperr.KindInvalidToken, apperr.KindOf(err))
	_, err = e.auth.VerifyEmail(ctx, fresh)
	require.NoError(t, err)

	_, err = e.auth.ResendVerification(ctx, "dan@example.com")
	assert.Equal(t, apperr.KindAlreadyVerified, apperr.KindOf(err))
}

func TestLogin_LockoutLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "lock@example.com", domain.RoleCustomer)

	_, err := e.auth.Login(ctx, u.Email, "nope")
	require.Equal(t, apperr.KindInvalidCredentials, apperr.KindOf(err))
	assert.Equal(t, 2, apperr.As(err).Data["attemptsRemaining"])

	_, err = e.auth.Login(ctx, u.Email, "nope")
	require.Equal(t, apperr.KindInvalidCredentials, apperr.KindOf(err))
	// 第 N 次失败即锁定
	_, err = e.auth.Login(ctx, u.Email, "nope")
	require.Equal(t, apperr.KindAccountLocked, apperr.KindOf(err))

	stored := e.reloadUser(t, u.ID)
	assert.Equal(t, 3, stored.FailedLogins)
	require.NotNil(t, stored.LockedUntil)
	assert.WithinDuration(t, t0.Add(15*time.Minute), *stored.LockedUntil, time.Second)

	// 锁定期间正确密码也被拒绝，且计数不变
	_, err = e.auth.Login(ctx, u.Email, "Abcd123!")
	assert.Equal(t, apperr.KindAccountLocked, apperr.KindOf(err))
	assert.Equal(t, 3, e.reloadUser(t, u.ID).FailedLogins)

	e.clock.Advance(16 * time.Minute)
	out, err := e.auth.Login(ctx, u.Email, "Abcd123!")
	require.NoError(t, err)
	assert.NotEmpty(t, out.Token)
	stored = e.reloadUser(t, u.ID)
	assert.Zero(t, stored.FailedLogins)
	assert.Nil(t, stored.LockedUntil)
}

func TestLogin_SuccessResetsCounter(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "reset@example.com", domain.RoleCustomer)

	for i := 0; i < 2; i++ {
		_, err := e.auth.Login(ctx, u.Email, "nope")
		require.Error(t, err)
	}
	_, err := e.auth.Login(ctx, u.Email, "Abcd123!")
	require.NoError(t, err)
	assert.Zero(t, e.reloadUser(t, u.ID).FailedLogins)

	// 重新计数：再错两次仍未锁定
	for i := 0; i < 2; i++ {
		_, err := e.auth.Login(ctx, u.Email, "nope")
		assert.Equal(t, apperr.KindInvalidCredentials, apperr.KindOf(err))
	}
}

func TestLogin_UnknownOrInactive(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.auth.Login(ctx, "ghost@example.com", "Abcd123!")
	assert.Equal(t, apperr.KindInvalidCredentials, apperr.KindOf(err))

	u := e.user(t, "off@example.com", domain.RoleCustomer)
	require.NoError(t, e.db.Model(u).Update("active", false).Error)
	_, err = e.auth.Login(ctx, u.Email, "Abcd123!")
	assert.Equal(t, apperr.KindInvalidCredentials, apperr.KindOf(err))
}

func TestUpdateProfile_RoutesRoleFields(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "maker@example.com", domain.RoleCreator)

	name, bio := "  Maker  ", "block printer"
	out, err := e.auth.UpdateProfile(ctx, u, profile.For(u.Role), UpdateProfileInput{Name: &name, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "Maker", out.User.Name)
	assert.Equal(t, "block printer", out.RoleData.(*domain.CreatorProfile).Bio)

	got, err := e.auth.Profile(ctx, e.reloadUser(t, u.ID), profile.For(u.Role))
	require.NoError(t, err)
	assert.Equal(t, "Maker", got.User.Name)
	assert.Equal(t, "block printer", got.RoleData.(*domain.CreatorProfile).Bio)
}

func TestProvisionAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	pu, err := e.auth.ProvisionAdmin(ctx, "Root@Example.com", "Root", "Sup3r$ecret")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, pu.Role)
	assert.True(t, pu.EmailVerified)

	// 再次执行为幂等提升
	res := register(t, e, "promote@example.com", domain.RoleCustomer)
	pu, err = e.auth.ProvisionAdmin(ctx, "promote@example.com", "", "Sup3r$ecret")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, pu.ID)
	assert.Equal(t, domain.RoleAdmin, pu.Role)

	out, err := e.auth.Login(ctx, "promote@example.com", "Sup3r$ecret")
	require.NoError(t, err)
	assert.IsType(t, &domain.AdminProfile{}, out.RoleData)
}

func TestVerificationLink(t *testing.T) {
	e := newEnv(t)
	assert.True(t, strings.HasSuffix(e.auth.VerificationLink("abc"), "/auth/verify-email/abc"))
}

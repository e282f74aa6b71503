package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"adaayien/internal/apperr"
	"adaayien/internal/core/auth"
	"adaayien/internal/core/events"
	"adaayien/internal/core/mail"
	"adaayien/internal/domain"
	"adaayien/internal/feature/profile"
	"adaayien/internal/repo"
	"adaayien/pkg/utils"
)

// verificationTokenBytes 32 字节随机数，hex 后 64 字符
const verificationTokenBytes = 32

type AuthConfig struct {
	MaxLoginAttempts int
	Lockout          time.Duration
	VerificationTTL  time.Duration
	PublicURL        string // 验证链接前缀
}

type AuthService struct {
	clock
	db      *gorm.DB
	users   *repo.UserRepo
	jwt     *auth.JWTer
	mailer  mail.Mailer
	checker *EmailChecker
	events  events.Publisher
	cfg     AuthConfig
	l       *zap.Logger
}

func NewAuthService(db *gorm.DB, jwt *auth.JWTer, mailer mail.Mailer, checker *EmailChecker, pub events.Publisher, cfg AuthConfig, l *zap.Logger) *AuthService {
	return &AuthService{
		db:      db,
		users:   repo.NewUserRepo(db),
		jwt:     jwt,
		mailer:  mailer,
		checker: checker,
		events:  pub,
		cfg:     cfg,
		l:       l.Named("auth"),
	}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
	Bio      string
	Phone    string
}

type RegisterResult struct {
	User      domain.PublicUser `json:"user"`
	EmailSent bool              `json:"emailSent"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	email := normalizeEmail(in.Email)

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return RegisterResult{}, dbErr("lookup user failed", err)
	}
	if existing != nil {
		return RegisterResult{}, apperr.New(apperr.KindDuplicateAccount, "an account with this email already exists")
	}
	if err := s.checker.Check(ctx, email); err != nil {
		return RegisterResult{}, err
	}

	role := in.Role
	if !role.SelfAssignable() {
		role = domain.RoleCustomer
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return RegisterResult{}, apperr.Internal("hash password failed", err)
	}
	token, err := utils.RandomHex(verificationTokenBytes)
	if err != nil {
		return RegisterResult{}, apperr.Internal("generate token failed", err)
	}
	expires := s.Now().Add(s.cfg.VerificationTTL)

	u := &domain.User{
		Email:               email,
		Name:                strings.TrimSpace(in.Name),
		Phone:               strings.TrimSpace(in.Phone),
		PasswordHash:        hash,
		Role:                role,
		VerificationToken:   &token,
		VerificationExpires: &expires,
		Active:              true,
	}
	var attrs profile.Attrs
	if role == domain.RoleCreator && in.Bio != "" {
		attrs.Bio = &in.Bio
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).Create(ctx, u); err != nil {
			return err
		}
		return profile.For(role).Create(tx, u.ID, attrs)
	})
	if isDuplicate(err) {
		return RegisterResult{}, apperr.New(apperr.KindDuplicateAccount, "an account with this email already exists")
	}
	if err != nil {
		return RegisterResult{}, dbErr("create user failed", err)
	}

	sent := s.sendVerification(ctx, u, token)
	registrationTotal.WithLabelValues(string(role), strconv.FormatBool(sent)).Inc()
	s.l.Info("user registered", zap.String("uid", u.ID), zap.String("role", string(role)), zap.Bool("emailSent", sent))
	s.events.Publish(ctx, events.Event{
		Type: events.UserRegistered, Key: u.ID, At: s.Now(),
		Payload: map[string]any{"role": role, "emailSent": sent},
	})
	return RegisterResult{User: u.Public(), EmailSent: sent}, nil
}

// VerificationLink 邮件中的验证地址
func (s *AuthService) VerificationLink(token string) string {
	return strings.TrimRight(s.cfg.PublicURL, "/") + "/auth/verify-email/" + token
}

// sendVerification 发送失败不回滚，只返回 false
func (s *AuthService) sendVerification(ctx context.Context, u *domain.User, token string) bool {
	msg, err := mail.VerificationMessage(u.Email, u.Name, s.VerificationLink(token), int(s.cfg.VerificationTTL/time.Hour))
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.l.Warn("verification email failed", zap.String("uid", u.ID), zap.Error(err))
		return false
	}
	return true
}

type VerifyResult struct {
	Token string            `json:"token"`
	User  domain.PublicUser `json:"user"`
}

// VerifyEmail 一次性 token：成功后清空，再次使用即失效
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (VerifyResult, error) {
	if token == "" {
		return VerifyResult{}, apperr.New(apperr.KindInvalidToken, "verification token is missing")
	}
	u, err := s.users.FindByVerificationToken(ctx, token, s.Now())
	if err != nil {
		return VerifyResult{}, dbErr("lookup token failed", err)
	}
	if u == nil {
		return VerifyResult{}, apperr.New(apperr.KindInvalidToken, "verification link is invalid or has expired")
	}
	u.EmailVerified = true
	u.VerificationToken = nil
	u.VerificationExpires = nil
	if err := s.users.Update(ctx, u); err != nil {
		return VerifyResult{}, dbErr("update user failed", err)
	}
	tok, err := s.jwt.Issue(u.ID, string(u.Role))
	if err != nil {
		return VerifyResult{}, apperr.Internal("issue token failed", err)
	}
	s.events.Publish(ctx, events.Event{Type: events.UserVerified, Key: u.ID, At: s.Now()})
	return VerifyResult{Token: tok, User: u.Public()}, nil
}

type ResendResult struct {
	EmailSent bool `json:"emailSent"`
}

// ResendVerification 覆盖旧 token
func (s *AuthService) ResendVerification(ctx context.Context, email string) (ResendResult, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return ResendResult{}, dbErr("lookup user failed", err)
	}
	if u == nil {
		return ResendResult{}, apperr.NotFound("no account found with this email")
	}
	if u.EmailVerified {
		return ResendResult{}, apperr.New(apperr.KindAlreadyVerified, "email is already verified")
	}
	token, err := utils.RandomHex(verificationTokenBytes)
	if err != nil {
		return ResendResult{}, apperr.Internal("generate token failed", err)
	}
	expires := s.Now().Add(s.cfg.VerificationTTL)
	u.VerificationToken = &token
	u.VerificationExpires = &expires
	if err := s.users.Update(ctx, u); err != nil {
		return ResendResult{}, dbErr("update user failed", err)
	}
	return ResendResult{EmailSent: s.sendVerification(ctx, u, token)}, nil
}

type LoginResult struct {
	Token    string            `json:"token"`
	User     domain.PublicUser `json:"user"`
	RoleData any               `json:"roleData"`
}

func invalidCredentials() *apperr.Error {
	return apperr.New(apperr.KindInvalidCredentials, "invalid email or password")
}

// Login 校验顺序：账号存在且启用 → 邮箱已验证 → 未锁定 → 密码
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return LoginResult{}, dbErr("lookup user failed", err)
	}
	if u == nil || !u.Active {
		loginTotal.WithLabelValues("invalid").Inc()
		return LoginResult{}, invalidCredentials()
	}
	if !u.EmailVerified {
		loginTotal.WithLabelValues("unverified").Inc()
		return LoginResult{}, apperr.New(apperr.KindEmailNotVerified, "please verify your email before logging in")
	}

	now := s.Now()
	if u.IsLocked(now) {
		loginTotal.WithLabelValues("locked").Inc()
		return LoginResult{}, lockedErr(*u.LockedUntil)
	}
	if u.LockedUntil != nil {
		// 锁定已过期：重新给满 N 次机会
		u.LockedUntil = nil
		u.FailedLogins = 0
	}

	if !utils.CheckPassword(password, u.PasswordHash) {
		u.FailedLogins++
		if u.FailedLogins >= s.cfg.MaxLoginAttempts {
			until := now.Add(s.cfg.Lockout)
			u.LockedUntil = &until
		}
		if err := s.users.Update(ctx, u); err != nil {
			return LoginResult{}, dbErr("update user failed", err)
		}
		if u.LockedUntil != nil {
			loginTotal.WithLabelValues("locked").Inc()
			s.l.Warn("account locked", zap.String("uid", u.ID), zap.Time("until", *u.LockedUntil))
			return LoginResult{}, lockedErr(*u.LockedUntil)
		}
		loginTotal.WithLabelValues("invalid").Inc()
		return LoginResult{}, invalidCredentials().WithData("attemptsRemaining", s.cfg.MaxLoginAttempts-u.FailedLogins)
	}

	u.FailedLogins = 0
	u.LastLogin = &now
	if err := s.users.Update(ctx, u); err != nil {
		return LoginResult{}, dbErr("update user failed", err)
	}
	tok, err := s.jwt.Issue(u.ID, string(u.Role))
	if err != nil {
		return LoginResult{}, apperr.Internal("issue token failed", err)
	}
	roleData, err := profile.For(u.Role).Load(s.db.WithContext(ctx), u.ID)
	if err != nil {
		return LoginResult{}, dbErr("load profile failed", err)
	}
	loginTotal.WithLabelValues("ok").Inc()
	return LoginResult{Token: tok, User: u.Public(), RoleData: roleData}, nil
}

func lockedErr(until time.Time) *apperr.Error {
	return apperr.New(apperr.KindAccountLocked, "account is temporarily locked due to too many failed login attempts").
		WithData("lockedUntil", until)
}

type ProfileResult struct {
	User     domain.PublicUser `json:"user"`
	RoleData any               `json:"roleData"`
}

func (s *AuthService) Profile(ctx context.Context, u *domain.User, kind profile.Kind) (ProfileResult, error) {
	roleData, err := kind.Load(s.db.WithContext(ctx), u.ID)
	if err != nil {
		return ProfileResult{}, dbErr("load profile failed", err)
	}
	return ProfileResult{User: u.Public(), RoleData: roleData}, nil
}

// UpdateProfileInput nil 字段保持不变；角色资料字段交给 profile.Kind
type UpdateProfileInput struct {
	Name           *string
	Phone          *string
	ProfilePic     *string
	Bio            *string
	Specialization *string
	Preferences    map[string]string
}

func (s *AuthService) UpdateProfile(ctx context.Context, u *domain.User, kind profile.Kind, in UpdateProfileInput) (ProfileResult, error) {
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		u.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.ProfilePic != nil {
		u.ProfilePic = strings.TrimSpace(*in.ProfilePic)
	}
	var roleData any
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).Update(ctx, u); err != nil {
			return err
		}
		var err error
		roleData, err = kind.Update(tx, u.ID, profile.Attrs{
			Bio:            in.Bio,
			Specialization: in.Specialization,
			Preferences:    in.Preferences,
		})
		return err
	})
	if err != nil {
		return ProfileResult{}, dbErr("update profile failed", err)
	}
	return ProfileResult{User: u.Public(), RoleData: roleData}, nil
}

// ProvisionAdmin 仅供运维 CLI：创建或提升为已验证的管理员
func (s *AuthService) ProvisionAdmin(ctx context.Context, email, name, password string) (domain.PublicUser, error) {
	email = normalizeEmail(email)
	hash, err := utils.HashPassword(password)
	if err != nil {
		return domain.PublicUser{}, apperr.Internal("hash password failed", err)
	}
	var out domain.PublicUser
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		u, err := users.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if u == nil {
			u = &domain.User{Email: email, Name: name, PasswordHash: hash, Role: domain.RoleAdmin, EmailVerified: true, Active: true}
			if err := users.Create(ctx, u); err != nil {
				return err
			}
		} else {
			u.Role = domain.RoleAdmin
			u.PasswordHash = hash
			u.EmailVerified = true
			u.Active = true
			u.VerificationToken, u.VerificationExpires = nil, nil
			if name != "" {
				u.Name = name
			}
			if err := users.Update(ctx, u); err != nil {
				return err
			}
		}
		existing, err := profile.Admin{}.Load(tx, u.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			if err := (profile.Admin{}).Create(tx, u.ID, profile.Attrs{}); err != nil {
				return err
			}
		}
		out = u.Public()
		return nil
	})
	if err != nil {
		return domain.PublicUser{}, dbErr("provision admin failed", err)
	}
	s.l.Info("admin provisioned", zap.String("uid", out.ID))
	return out, nil
}

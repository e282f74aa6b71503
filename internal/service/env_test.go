package service

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"adaayien/internal/core/auth"
	"adaayien/internal/core/cache"
	"adaayien/internal/core/events"
	"adaayien/internal/core/mail"
	"adaayien/internal/core/storage"
	"adaayien/internal/domain"
	"adaayien/internal/feature/profile"
	"adaayien/internal/testutil"
	"adaayien/pkg/utils"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeResolver struct {
	records map[string][]*net.MX
}

func (r fakeResolver) LookupMX(_ context.Context, name string) ([]*net.MX, error) {
	if mx, ok := r.records[name]; ok {
		return mx, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}

func goodResolver() fakeResolver {
	return fakeResolver{records: map[string][]*net.MX{
		"example.com": {{Host: "mx.example.com.", Pref: 10}},
		"gmail.com":   {{Host: "gmail-smtp-in.l.google.com.", Pref: 5}},
		"nullmx.com":  {{Host: ".", Pref: 0}},
	}}
}

type fakeStore struct {
	mu         sync.Mutex
	uploaded   []string
	destroyed  []string
	destroyErr error
}

func (s *fakeStore) Upload(_ context.Context, f storage.File) (storage.Uploaded, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded = append(s.uploaded, f.Name)
	return storage.Uploaded{URL: "https://img.test/" + f.Name, PublicID: "pid-" + f.Name}, nil
}

func (s *fakeStore) Destroy(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyErr != nil {
		return s.destroyErr
	}
	s.destroyed = append(s.destroyed, id)
	return nil
}

func (s *fakeStore) Destroyed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.destroyed...)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *fakePublisher) Publish(_ context.Context, e events.Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

var errDestroy = errors.New("provider unavailable")

type env struct {
	db       *gorm.DB
	clock    *testutil.Clock
	mailer   *fakeMailer
	store    *fakeStore
	pub      *fakePublisher
	jwt      *auth.JWTer
	auth     *AuthService
	cart     *CartService
	fabrics  *FabricService
	posts    *PostService
	admin    *AdminService
	settings *SettingsService
	cleaner  *ImageCleaner
}

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		db:     testutil.NewDB(t),
		clock:  testutil.NewClock(t0),
		mailer: &fakeMailer{},
		store:  &fakeStore{},
		pub:    &fakePublisher{},
	}
	l := zap.NewNop()
	e.jwt = auth.NewJWTer("test-secret", "adaayien", 7*24*time.Hour)
	e.jwt.Now = e.clock.Now

	e.cleaner = NewImageCleaner(e.db, e.store, l)
	e.cleaner.SetClock(e.clock.Now)
	images := NewImages(e.store, e.cleaner, l)

	e.auth = NewAuthService(e.db, e.jwt, e.mailer, NewEmailChecker(goodResolver()), e.pub, AuthConfig{
		MaxLoginAttempts: 3,
		Lockout:          15 * time.Minute,
		VerificationTTL:  24 * time.Hour,
		PublicURL:        "http://api.test",
	}, l)
	e.auth.SetClock(e.clock.Now)

	e.cart = NewCartService(e.db, cache.NewLocal(), 30*24*time.Hour, l)
	e.cart.SetClock(e.clock.Now)
	e.fabrics = NewFabricService(e.db, images, e.cleaner, cache.New("", "", 0), time.Minute, e.pub, l)
	e.fabrics.SetClock(e.clock.Now)
	e.posts = NewPostService(e.db, images, e.cleaner, l)
	e.posts.SetClock(e.clock.Now)
	e.admin = NewAdminService(e.db, e.posts, e.pub, l)
	e.admin.SetClock(e.clock.Now)
	e.settings = NewSettingsService(e.db, images, e.cleaner, l)
	e.settings.SetClock(e.clock.Now)
	return e
}

// user 直接落库一个已验证用户，附带角色资料
func (e *env) user(t *testing.T, email string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := utils.HashPassword("Abcd123!")
	require.NoError(t, err)
	u := &domain.User{Email: email, Name: strings.Split(email, "@")[0], PasswordHash: hash, Role: role, EmailVerified: true, Active: true}
	require.NoError(t, e.db.Create(u).Error)
	require.NoError(t, profile.For(role).Create(e.db, u.ID, profile.Attrs{}))
	return u
}

func (e *env) fabric(t *testing.T, name string, price float64) *domain.Fabric {
	t.Helper()
	f, err := e.fabrics.Create(context.Background(), CreateFabricInput{
		Name: name, Price: price, Type: "silk", Color: "red",
		Images: ImageInput{URLs: []string{"https://img.test/" + name + ".jpg"}},
	})
	require.NoError(t, err)
	return f
}

func (e *env) reloadUser(t *testing.T, id string) *domain.User {
	t.Helper()
	var u domain.User
	require.NoError(t, e.db.First(&u, "id = ?", id).Error)
	return &u
}

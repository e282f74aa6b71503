// Package app 依赖装配：config → 基础设施 → service → HTTP 引擎。
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"adaayien/internal/core/auth"
	"adaayien/internal/core/cache"
	"adaayien/internal/core/config"
	"adaayien/internal/core/database"
	"adaayien/internal/core/events"
	"adaayien/internal/core/mail"
	"adaayien/internal/core/storage"
	"adaayien/internal/repo"
	"adaayien/internal/service"
	"adaayien/internal/transport/http/handler"
	mdw "adaayien/internal/transport/http/middleware"
	"adaayien/internal/transport/http/router"
)

const cartLockTTL = 5 * time.Second

// Deps 非空字段直接使用，否则按配置创建（测试注入假实现）
type Deps struct {
	DB       *gorm.DB
	Mailer   mail.Mailer
	Store    storage.Store
	Resolver service.MXResolver
	Events   events.Publisher
	Cache    *cache.Cache
}

type App struct {
	Cfg    *config.Config
	Log    *zap.Logger
	DB     *gorm.DB
	Cache  *cache.Cache
	Events events.Publisher
	JWT    *auth.JWTer
	Authn  *mdw.Authenticator

	Auth     *service.AuthService
	Cart     *service.CartService
	Fabrics  *service.FabricService
	Posts    *service.PostService
	Admin    *service.AdminService
	Settings *service.SettingsService
	Cleaner  *service.ImageCleaner

	Registry *router.Registry
	closers  []func() error
}

func OpenDB(cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	return database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Logger:             l.Named("gorm"),
	})
}

func Build(cfg *config.Config, l *zap.Logger, d Deps) (*App, error) {
	a := &App{Cfg: cfg, Log: l}

	a.DB = d.DB
	if a.DB == nil {
		db, err := OpenDB(cfg, l)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		a.DB = db
		a.onClose(func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
	}
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(a.DB); err != nil {
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		l.Info("automigrate done")
	}

	a.Cache = d.Cache
	if a.Cache == nil {
		a.Cache = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		a.onClose(a.Cache.Close)
	}
	if a.Cache.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := a.Cache.Ping(ctx); err != nil {
			l.Warn("redis ping failed", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancel()
	}

	mailer := d.Mailer
	if mailer == nil {
		m, err := mail.New(cfg.Mail, l.Named("mail"))
		if err != nil {
			return nil, fmt.Errorf("mailer: %w", err)
		}
		mailer = m
	}

	store := d.Store
	if store == nil {
		s, err := storage.New(cfg.Cloudinary)
		if err != nil {
			return nil, fmt.Errorf("image storage: %w", err)
		}
		store = s
	}
	if _, disabled := store.(storage.Disabled); disabled {
		l.Warn("image storage not configured, uploads disabled")
	}

	a.Events = d.Events
	if a.Events == nil {
		a.Events = events.New(cfg.Events, l.Named("events"))
		a.onClose(a.Events.Close)
	}

	a.JWT = auth.NewJWTer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL())
	a.Authn = mdw.NewAuthenticator(a.JWT, repo.NewUserRepo(a.DB))

	a.Cleaner = service.NewImageCleaner(a.DB, store, l)
	images := service.NewImages(store, a.Cleaner, l)
	a.Auth = service.NewAuthService(a.DB, a.JWT, mailer, service.NewEmailChecker(d.Resolver), a.Events, service.AuthConfig{
		MaxLoginAttempts: cfg.Auth.MaxLoginAttempts,
		Lockout:          time.Duration(cfg.Auth.LockoutMinutes) * time.Minute,
		VerificationTTL:  time.Duration(cfg.Auth.VerificationTTLHours) * time.Hour,
		PublicURL:        cfg.App.PublicURL,
	}, l)
	a.Cart = service.NewCartService(a.DB, cache.NewLocker(a.Cache, cartLockTTL), time.Duration(cfg.Auth.CartTTLHours)*time.Hour, l)
	a.Fabrics = service.NewFabricService(a.DB, images, a.Cleaner, a.Cache, time.Duration(cfg.Redis.CacheTTLSec)*time.Second, a.Events, l)
	a.Posts = service.NewPostService(a.DB, images, a.Cleaner, l)
	a.Admin = service.NewAdminService(a.DB, a.Posts, a.Events, l)
	a.Settings = service.NewSettingsService(a.DB, images, a.Cleaner, l)

	a.Registry = router.NewRegistry(
		handler.NewAuthHandler(a.Auth, a.Authn, cfg.App.FrontendURL, l),
		handler.NewCartHandler(a.Cart, a.Authn),
		handler.NewFabricHandler(a.Fabrics, a.Authn, cfg.Upload),
		handler.NewPostHandler(a.Posts, a.Authn, cfg.Upload),
		handler.NewAdminHandler(a.Admin, a.Authn),
		handler.NewSettingsHandler(a.Settings, a.Authn, cfg.Upload),
		handler.NewOpsHandler(a.Cleaner),
	)
	return a, nil
}

func (a *App) onClose(fn func() error) { a.closers = append(a.closers, fn) }

func (a *App) routerOptions() router.Options {
	var origins []string
	if a.Cfg.App.FrontendURL != "" {
		origins = []string{a.Cfg.App.FrontendURL}
	}
	body := int64(a.Cfg.Upload.MaxFiles)*a.Cfg.Upload.MaxFileBytes() + 1<<20
	return router.Options{
		Name:         a.Cfg.App.Name,
		AllowOrigins: origins,
		MaxBodyBytes: body,
		Timeout:      time.Duration(max(1, a.Cfg.App.HTTP.WriteTimeoutSec-1)) * time.Second,
	}
}

func (a *App) APIEngine() *gin.Engine {
	return router.NewAPIEngine(a.Log, a.Registry, a.routerOptions())
}

func (a *App) AdminEngine() *gin.Engine {
	return router.NewAdminEngine(a.Log, a.Registry, a.Authn, a.routerOptions())
}

// Close 逆序释放
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}

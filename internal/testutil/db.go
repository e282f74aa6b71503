// Package testutil 测试公用：内存 SQLite 与固定时钟。
package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"adaayien/internal/core/database"
	"adaayien/pkg/utils"
)

// NewDB 每个测试独立的内存库，已完成迁移
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:" + utils.NewID() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
	db, err := database.NewGorm(database.Opts{Driver: "sqlite", DSN: dsn, MaxOpenConns: 1, LogLevel: "silent", Logger: zap.NewNop()})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Clock 可手动推进的时钟
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{t: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

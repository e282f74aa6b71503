package database

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"adaayien/internal/domain"
)

func TestNormalizeMySQLDSN(t *testing.T) {
	cases := []struct {
		name, in, user, pass, want string
	}{
		{"native dsn untouched", "u:p@tcp(db:3306)/shop", "", "", "u:p@tcp(db:3306)/shop"},
		{"url form", "mysql://u:p@db:3306/shop", "", "", "u:p@tcp(db:3306)/shop?charset=utf8mb4&parseTime=true"},
		{"jdbc prefix and override", "jdbc:mysql://db:3306/shop?charset=latin1", "root", "x", "root:x@tcp(db:3306)/shop?charset=latin1&parseTime=true"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizeMySQLDSN(tc.in, tc.user, tc.pass))
		})
	}
}

func TestNewGorm_UnsupportedDriver(t *testing.T) {
	_, err := NewGorm(Opts{Driver: "oracle"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedDriver))
}

func TestNewGorm_SQLiteMigrate(t *testing.T) {
	db, err := NewGorm(Opts{Driver: "sqlite", DSN: "file::memory:", MaxOpenConns: 1, LogLevel: "silent", Logger: zap.NewNop()})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	assert.True(t, db.Migrator().HasTable(&domain.User{}))
	assert.True(t, db.Migrator().HasTable(&domain.CartItem{}))
	assert.True(t, db.Migrator().HasTable(&domain.ImageCleanupTask{}))
}

// adaayien 运维命令：迁移、创建管理员、重试图片清理。
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"adaayien/internal/app"
	"adaayien/internal/core/config"
	"adaayien/internal/core/database"
	"adaayien/internal/core/logger"
	"adaayien/internal/transport/http/validate"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "adaayien",
	Short:         "Adaayien backend operations",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil {
			log.Println("no .env file, skipping")
		}
	},
}

// bootstrap 命令共用：配置 + 日志
func bootstrap() (*config.Config, *zap.Logger, func(), error) {
	cfg, err := config.LoadE(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	l, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File)
	return cfg, l, cleanup, nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update all tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, l, cleanup, err := bootstrap()
		if err != nil {
			return err
		}
		defer cleanup()
		db, err := app.OpenDB(cfg, l)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		l.Info("migrate done", zap.String("driver", cfg.DB.Driver))
		return nil
	},
}

var adminFlags struct {
	email, name, password string
}

var provisionAdminCmd = &cobra.Command{
	Use:   "provision-admin",
	Short: "Create a verified admin, or promote an existing account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !validate.StrongPassword(adminFlags.password) {
			return errors.New("password must be at least 8 characters and include upper and lower case letters, a digit and a symbol")
		}
		cfg, l, cleanup, err := bootstrap()
		if err != nil {
			return err
		}
		defer cleanup()
		a, err := app.Build(cfg, l, app.Deps{})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		u, err := a.Auth.ProvisionAdmin(ctx, adminFlags.email, adminFlags.name, adminFlags.password)
		if err != nil {
			return err
		}
		l.Info("admin provisioned", zap.String("id", u.ID), zap.String("email", u.Email))
		return nil
	},
}

var reconcileLimit int

var reconcileCmd = &cobra.Command{
	Use:   "reconcile-images",
	Short: "Retry pending remote image deletions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, l, cleanup, err := bootstrap()
		if err != nil {
			return err
		}
		defer cleanup()
		a, err := app.Build(cfg, l, app.Deps{})
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Cleaner.Reconcile(cmd.Context(), reconcileLimit)
		if err != nil {
			return err
		}
		pending, _ := a.Cleaner.Pending(cmd.Context())
		l.Info("reconcile done",
			zap.Int("attempted", res.Attempted),
			zap.Int("succeeded", res.Succeeded),
			zap.Int("failed", res.Failed),
			zap.Int64("pending", pending),
		)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $CONFIG_PATH or ./configs/config.local.yaml)")

	provisionAdminCmd.Flags().StringVar(&adminFlags.email, "email", "", "admin email")
	provisionAdminCmd.Flags().StringVar(&adminFlags.name, "name", "Admin", "display name")
	provisionAdminCmd.Flags().StringVar(&adminFlags.password, "password", "", "initial password")
	_ = provisionAdminCmd.MarkFlagRequired("email")
	_ = provisionAdminCmd.MarkFlagRequired("password")

	reconcileCmd.Flags().IntVar(&reconcileLimit, "limit", 100, "max tasks to attempt")

	rootCmd.AddCommand(migrateCmd, provisionAdminCmd, reconcileCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

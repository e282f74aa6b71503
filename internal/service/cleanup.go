package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"adaayien/internal/core/storage"
	"adaayien/internal/domain"
)

const (
	cleanupBaseBackoff = 30 * time.Second
	cleanupMaxBackoff  = time.Hour
)

// ImageCleaner 远端图片删除任务。任务与业务删除同事务落库，提交后再尝试删除；
// 失败的任务按指数退避由 Reconcile 重试
type ImageCleaner struct {
	clock
	db    *gorm.DB
	store storage.Store
	l     *zap.Logger
}

func NewImageCleaner(db *gorm.DB, store storage.Store, l *zap.Logger) *ImageCleaner {
	return &ImageCleaner{db: db, store: store, l: l.Named("image-cleanup")}
}

// Enqueue 在调用方事务内写任务；public_id 已存在则忽略
func (c *ImageCleaner) Enqueue(tx *gorm.DB, publicIDs ...string) error {
	if len(publicIDs) == 0 {
		return nil
	}
	now := c.Now()
	tasks := make([]domain.ImageCleanupTask, 0, len(publicIDs))
	for _, id := range publicIDs {
		tasks = append(tasks, domain.ImageCleanupTask{PublicID: id, NextAttemptAt: now})
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "public_id"}},
		DoNothing: true,
	}).Create(&tasks).Error
}

// Drain 事务提交后立即尝试一次；失败只记日志
func (c *ImageCleaner) Drain(ctx context.Context, publicIDs []string) {
	if len(publicIDs) == 0 {
		return
	}
	var tasks []domain.ImageCleanupTask
	if err := c.db.WithContext(ctx).Where("public_id IN ?", publicIDs).Find(&tasks).Error; err != nil {
		c.l.Warn("load cleanup tasks failed", zap.Error(err))
		return
	}
	for i := range tasks {
		c.attempt(ctx, &tasks[i])
	}
}

// Discard 上传成功但业务写入失败时回收已上传的图片
func (c *ImageCleaner) Discard(ctx context.Context, publicIDs []string) {
	if len(publicIDs) == 0 {
		return
	}
	if err := c.Enqueue(c.db.WithContext(ctx), publicIDs...); err != nil {
		c.l.Warn("enqueue orphan images failed", zap.Strings("publicIds", publicIDs), zap.Error(err))
		return
	}
	c.Drain(ctx, publicIDs)
}

type ReconcileResult struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Reconcile 重试到期任务
func (c *ImageCleaner) Reconcile(ctx context.Context, limit int) (ReconcileResult, error) {
	if limit <= 0 {
		limit = 100
	}
	var tasks []domain.ImageCleanupTask
	err := c.db.WithContext(ctx).
		Where("next_attempt_at <= ?", c.Now()).
		Order("next_attempt_at asc").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return ReconcileResult{}, err
	}
	var res ReconcileResult
	for i := range tasks {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Attempted++
		if c.attempt(ctx, &tasks[i]) {
			res.Succeeded++
		} else {
			res.Failed++
		}
	}
	return res, nil
}

// Pending 尚未完成的任务数
func (c *ImageCleaner) Pending(ctx context.Context) (int64, error) {
	var n int64
	err := c.db.WithContext(ctx).Model(&domain.ImageCleanupTask{}).Count(&n).Error
	return n, err
}

func (c *ImageCleaner) attempt(ctx context.Context, t *domain.ImageCleanupTask) bool {
	err := c.store.Destroy(ctx, t.PublicID)
	if err == nil {
		imageCleanupTotal.WithLabelValues("ok").Inc()
		if e := c.db.WithContext(ctx).Delete(&domain.ImageCleanupTask{}, "id = ?", t.ID).Error; e != nil {
			c.l.Warn("delete cleanup task failed", zap.String("publicId", t.PublicID), zap.Error(e))
		}
		return true
	}

	imageCleanupTotal.WithLabelValues("error").Inc()
	t.Attempts++
	t.LastError = truncate(err.Error(), 1024)
	t.NextAttemptAt = c.Now().Add(cleanupBackoff(t.Attempts))
	c.l.Warn("image destroy failed",
		zap.String("publicId", t.PublicID),
		zap.Int("attempts", t.Attempts),
		zap.Time("nextAttemptAt", t.NextAttemptAt),
		zap.Error(err),
	)
	if e := c.db.WithContext(ctx).Save(t).Error; e != nil {
		c.l.Warn("update cleanup task failed", zap.String("publicId", t.PublicID), zap.Error(e))
	}
	return false
}

// cleanupBackoff 30s, 1m, 2m ... 上限 1h
func cleanupBackoff(attempts int) time.Duration {
	d := cleanupBaseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= cleanupMaxBackoff {
			return cleanupMaxBackoff
		}
	}
	return d
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

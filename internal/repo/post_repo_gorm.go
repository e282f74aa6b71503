package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"adaayien/internal/domain"
)

type PostRepo struct{ db *gorm.DB }

func NewPostRepo(db *gorm.DB) *PostRepo { return &PostRepo{db: db} }

func (r *PostRepo) WithTx(tx *gorm.DB) *PostRepo { return &PostRepo{db: tx} }

func (r *PostRepo) FindByID(ctx context.Context, id string) (*domain.Post, error) {
	var p domain.Post
	err := r.db.WithContext(ctx).
		Preload("Images", orderedImages).
		Preload("Fabric").
		First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type PostFilter struct {
	CreatorID string
	FabricID  string
	Featured  *bool
}

func (r *PostRepo) List(ctx context.Context, f PostFilter, p Page) ([]domain.Post, int64, error) {
	p = p.Normalize()
	q := r.db.WithContext(ctx).Model(&domain.Post{})
	if f.CreatorID != "" {
		q = q.Where("creator_id = ?", f.CreatorID)
	}
	if f.FabricID != "" {
		q = q.Where("fabric_id = ?", f.FabricID)
	}
	if f.Featured != nil {
		q = q.Where("is_featured = ?", *f.Featured)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []domain.Post
	err := q.Preload("Images", orderedImages).Preload("Fabric").
		Order("is_featured desc, created_at desc").Offset(p.Offset()).Limit(p.Limit).
		Find(&items).Error
	return items, total, err
}

// PostStats 管理端概览
type PostStats struct {
	Total      int64 `json:"total"`
	Featured   int64 `json:"featured"`
	WithFabric int64 `json:"withFabric"`
}

func (r *PostRepo) Stats(ctx context.Context) (PostStats, error) {
	var s PostStats
	db := r.db.WithContext(ctx).Model(&domain.Post{})
	if err := db.Count(&s.Total).Error; err != nil {
		return s, err
	}
	if err := r.db.WithContext(ctx).Model(&domain.Post{}).Where("is_featured = ?", true).Count(&s.Featured).Error; err != nil {
		return s, err
	}
	err := r.db.WithContext(ctx).Model(&domain.Post{}).Where("fabric_id IS NOT NULL").Count(&s.WithFabric).Error
	return s, err
}

// CountByCreators creator_id → 帖子数
func (r *PostRepo) CountByCreators(ctx context.Context, ids []string) (map[string]int64, error) {
	out := make(map[string]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		CreatorID string
		N         int64
	}
	err := r.db.WithContext(ctx).Model(&domain.Post{}).
		Select("creator_id, count(*) as n").
		Where("creator_id IN ?", ids).
		Group("creator_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.CreatorID] = row.N
	}
	return out, nil
}

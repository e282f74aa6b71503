package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"adaayien/internal/domain"
)

type FabricRepo struct{ db *gorm.DB }

func NewFabricRepo(db *gorm.DB) *FabricRepo { return &FabricRepo{db: db} }

func (r *FabricRepo) WithTx(tx *gorm.DB) *FabricRepo { return &FabricRepo{db: tx} }

func orderedImages(db *gorm.DB) *gorm.DB { return db.Order("position asc") }

func (r *FabricRepo) FindByID(ctx context.Context, id string) (*domain.Fabric, error) {
	var f domain.Fabric
	err := r.db.WithContext(ctx).Preload("Images", orderedImages).First(&f, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

type FabricFilter struct {
	Type    string
	InStock *bool
}

func (r *FabricRepo) List(ctx context.Context, f FabricFilter, p Page) ([]domain.Fabric, int64, error) {
	p = p.Normalize()
	q := r.db.WithContext(ctx).Model(&domain.Fabric{})
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.InStock != nil {
		q = q.Where("in_stock = ?", *f.InStock)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []domain.Fabric
	err := q.Preload("Images", orderedImages).
		Order("created_at desc").Offset(p.Offset()).Limit(p.Limit).
		Find(&items).Error
	return items, total, err
}

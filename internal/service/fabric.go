package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"adaayien/internal/apperr"
	"adaayien/internal/core/cache"
	"adaayien/internal/core/events"
	"adaayien/internal/domain"
	"adaayien/internal/repo"
)

type FabricService struct {
	clock
	db       *gorm.DB
	fabrics  *repo.FabricRepo
	images   *Images
	cleaner  *ImageCleaner
	cache    *cache.Cache
	cacheTTL time.Duration
	events   events.Publisher
	l        *zap.Logger
}

func NewFabricService(db *gorm.DB, images *Images, cleaner *ImageCleaner, c *cache.Cache, cacheTTL time.Duration, pub events.Publisher, l *zap.Logger) *FabricService {
	return &FabricService{
		db:       db,
		fabrics:  repo.NewFabricRepo(db),
		images:   images,
		cleaner:  cleaner,
		cache:    c,
		cacheTTL: cacheTTL,
		events:   pub,
		l:        l.Named("fabric"),
	}
}

func fabricCacheKey(id string) string { return "fabric:" + id }

type CreateFabricInput struct {
	Name        string
	Description string
	Price       float64
	Type        string
	Color       string
	InStock     *bool
	Images      ImageInput
}

type UpdateFabricInput struct {
	Name        *string
	Description *string
	Price       *float64
	Type        *string
	Color       *string
	InStock     *bool
	Images      ImageInput // 追加，不替换
}

func (s *FabricService) Get(ctx context.Context, id string) (*domain.Fabric, error) {
	f, err := cache.GetOrLoadJSON(s.cache, ctx, fabricCacheKey(id), s.cacheTTL, func(ctx context.Context) (*domain.Fabric, error) {
		return s.fabrics.FindByID(ctx, id)
	})
	if err != nil {
		return nil, dbErr("load fabric failed", err)
	}
	if f == nil {
		return nil, apperr.NotFound("fabric not found")
	}
	return f, nil
}

func (s *FabricService) List(ctx context.Context, f repo.FabricFilter, p repo.Page) (repo.Result[domain.Fabric], error) {
	items, total, err := s.fabrics.List(ctx, f, p)
	if err != nil {
		return repo.Result[domain.Fabric]{}, dbErr("list fabrics failed", err)
	}
	return repo.NewResult(items, total, p), nil
}

// Create 至少一张图片，第一张为主图
func (s *FabricService) Create(ctx context.Context, in CreateFabricInput) (*domain.Fabric, error) {
	if in.Images.Empty() {
		return nil, apperr.Validation(map[string]string{"images": "at least one image is required"})
	}
	if !domain.ValidFabricType(in.Type) {
		return nil, apperr.Validation(map[string]string{"type": "must be one of " + strings.Join(domain.FabricTypes, ", ")})
	}
	imgs, err := s.images.Upload(ctx, in.Images, domain.OwnerFabrics, 0)
	if err != nil {
		return nil, err
	}
	if len(imgs) == 0 {
		return nil, apperr.Validation(map[string]string{"images": "at least one image is required"})
	}

	f := &domain.Fabric{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Type:        in.Type,
		Color:       strings.TrimSpace(in.Color),
		Image:       imgs[0].URL,
		InStock:     true,
	}
	inStock := in.InStock == nil || *in.InStock
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// false 会被 default:true 覆盖，建完再写一次
		if err := tx.Omit("Images").Create(f).Error; err != nil {
			return err
		}
		if !inStock {
			if err := tx.Model(f).Update("in_stock", false).Error; err != nil {
				return err
			}
			f.InStock = false
		}
		ownImages(imgs, f.ID)
		return tx.Create(&imgs).Error
	})
	if err != nil {
		s.images.Discard(ctx, imgs)
		return nil, dbErr("create fabric failed", err)
	}
	f.Images = imgs
	s.l.Info("fabric created", zap.String("id", f.ID), zap.Int("images", len(imgs)))
	s.events.Publish(ctx, events.Event{Type: events.FabricCreated, Key: f.ID, At: s.Now(), Payload: map[string]any{"name": f.Name, "type": f.Type}})
	return f, nil
}

func (s *FabricService) Update(ctx context.Context, id string, in UpdateFabricInput) (*domain.Fabric, error) {
	f, err := s.fabrics.FindByID(ctx, id)
	if err != nil {
		return nil, dbErr("load fabric failed", err)
	}
	if f == nil {
		return nil, apperr.NotFound("fabric not found")
	}
	if in.Type != nil && !domain.ValidFabricType(*in.Type) {
		return nil, apperr.Validation(map[string]string{"type": "must be one of " + strings.Join(domain.FabricTypes, ", ")})
	}

	updates := map[string]any{}
	if in.Name != nil {
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		updates["price"] = *in.Price
	}
	if in.Type != nil {
		updates["type"] = *in.Type
	}
	if in.Color != nil {
		updates["color"] = strings.TrimSpace(*in.Color)
	}
	if in.InStock != nil {
		updates["in_stock"] = *in.InStock
	}

	imgs, err := s.images.Upload(ctx, in.Images, domain.OwnerFabrics, nextPosition(f.Images))
	if err != nil {
		return nil, err
	}
	if f.Image == "" && len(imgs) > 0 {
		updates["image"] = imgs[0].URL
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&domain.Fabric{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}
		if len(imgs) == 0 {
			return nil
		}
		ownImages(imgs, id)
		return tx.Create(&imgs).Error
	})
	if err != nil {
		s.images.Discard(ctx, imgs)
		return nil, dbErr("update fabric failed", err)
	}
	s.invalidate(ctx, id)
	return s.reload(ctx, id)
}

// Delete 同事务内移除购物车行、解除帖子关联并登记图片清理
func (s *FabricService) Delete(ctx context.Context, id string) error {
	f, err := s.fabrics.FindByID(ctx, id)
	if err != nil {
		return dbErr("load fabric failed", err)
	}
	if f == nil {
		return apperr.NotFound("fabric not found")
	}
	publicIDs := domain.PublicIDs(f.Images)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("fabric_id = ?", id).Delete(&domain.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Post{}).Where("fabric_id = ?", id).Update("fabric_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("owner_type = ? AND owner_id = ?", domain.OwnerFabrics, id).Delete(&domain.Image{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.Fabric{}, "id = ?", id).Error; err != nil {
			return err
		}
		return s.cleaner.Enqueue(tx, publicIDs...)
	})
	if err != nil {
		return dbErr("delete fabric failed", err)
	}
	s.invalidate(ctx, id)
	s.cleaner.Drain(ctx, publicIDs)
	s.l.Info("fabric deleted", zap.String("id", id), zap.Int("images", len(publicIDs)))
	s.events.Publish(ctx, events.Event{Type: events.FabricDeleted, Key: id, At: s.Now()})
	return nil
}

func (s *FabricService) reload(ctx context.Context, id string) (*domain.Fabric, error) {
	f, err := s.fabrics.FindByID(ctx, id)
	if err != nil {
		return nil, dbErr("load fabric failed", err)
	}
	if f == nil {
		return nil, apperr.NotFound("fabric not found")
	}
	return f, nil
}

func (s *FabricService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, fabricCacheKey(id)); err != nil {
		s.l.Warn("cache invalidate failed", zap.String("id", id), zap.Error(err))
	}
}

func nextPosition(imgs []domain.Image) int {
	n := 0
	for _, im := range imgs {
		if im.Position >= n {
			n = im.Position + 1
		}
	}
	return n
}

package service

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"adaayien/internal/apperr"
	"adaayien/internal/domain"
	"adaayien/internal/feature/profile"
)

type SettingsService struct {
	clock
	db      *gorm.DB
	images  *Images
	cleaner *ImageCleaner
	l       *zap.Logger
}

func NewSettingsService(db *gorm.DB, images *Images, cleaner *ImageCleaner, l *zap.Logger) *SettingsService {
	return &SettingsService{db: db, images: images, cleaner: cleaner, l: l.Named("settings")}
}

func (s *SettingsService) heroImages(tx *gorm.DB) ([]domain.Image, error) {
	var imgs []domain.Image
	err := tx.Where("owner_type = ? AND owner_id = ?", domain.OwnerSettings, domain.SettingHeroImages).
		Order("position asc").Find(&imgs).Error
	if imgs == nil {
		imgs = []domain.Image{}
	}
	return imgs, err
}

// HeroImages 未配置时返回空列表
func (s *SettingsService) HeroImages(ctx context.Context) ([]domain.Image, error) {
	imgs, err := s.heroImages(s.db.WithContext(ctx))
	if err != nil {
		return nil, dbErr("load hero images failed", err)
	}
	return imgs, nil
}

// AddHeroImages 追加到末尾
func (s *SettingsService) AddHeroImages(ctx context.Context, admin *domain.User, in ImageInput) ([]domain.Image, error) {
	if in.Empty() {
		return nil, apperr.Validation(map[string]string{"images": "at least one image is required"})
	}
	current, err := s.HeroImages(ctx)
	if err != nil {
		return nil, err
	}
	imgs, err := s.images.Upload(ctx, in, domain.OwnerSettings, nextPosition(current))
	if err != nil {
		return nil, err
	}
	if len(imgs) == 0 {
		return nil, apperr.Validation(map[string]string{"images": "at least one image is required"})
	}
	var out []domain.Image
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		setting := domain.Setting{Key: domain.SettingHeroImages, UpdatedAt: s.Now()}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
		}).Omit("Images").Create(&setting).Error; err != nil {
			return err
		}
		ownImages(imgs, domain.SettingHeroImages)
		if err := tx.Create(&imgs).Error; err != nil {
			return err
		}
		if err := profile.RecordAdminAction(tx, admin.ID, "settings.hero.add", domain.SettingHeroImages, s.Now()); err != nil {
			return err
		}
		var err error
		out, err = s.heroImages(tx)
		return err
	})
	if err != nil {
		s.images.Discard(ctx, imgs)
		return nil, dbErr("save hero images failed", err)
	}
	return out, nil
}

// RemoveHeroImage publicID / imageID 都为空时清空全部
func (s *SettingsService) RemoveHeroImage(ctx context.Context, admin *domain.User, publicID, imageID string) ([]domain.Image, error) {
	current, err := s.HeroImages(ctx)
	if err != nil {
		return nil, err
	}
	var victims []domain.Image
	for _, im := range current {
		switch {
		case publicID == "" && imageID == "":
			victims = append(victims, im)
		case publicID != "" && im.PublicID == publicID, imageID != "" && im.ID == imageID:
			victims = append(victims, im)
		}
	}
	if len(victims) == 0 {
		if publicID == "" && imageID == "" {
			return current, nil
		}
		return nil, apperr.NotFound("hero image not found")
	}

	ids := make([]string, 0, len(victims))
	for _, v := range victims {
		ids = append(ids, v.ID)
	}
	publicIDs := domain.PublicIDs(victims)

	var out []domain.Image
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id IN ?", ids).Delete(&domain.Image{}).Error; err != nil {
			return err
		}
		if err := s.cleaner.Enqueue(tx, publicIDs...); err != nil {
			return err
		}
		if err := profile.RecordAdminAction(tx, admin.ID, "settings.hero.remove", domain.SettingHeroImages, s.Now()); err != nil {
			return err
		}
		var err error
		out, err = s.heroImages(tx)
		return err
	})
	if err != nil {
		return nil, dbErr("remove hero image failed", err)
	}
	s.cleaner.Drain(ctx, publicIDs)
	s.l.Info("hero images removed", zap.Int("count", len(victims)))
	return out, nil
}

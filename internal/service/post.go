package service

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"adaayien/internal/apperr"
	"adaayien/internal/domain"
	"adaayien/internal/feature/profile"
	"adaayien/internal/repo"
)

type PostService struct {
	clock
	db      *gorm.DB
	posts   *repo.PostRepo
	fabrics *repo.FabricRepo
	images  *Images
	cleaner *ImageCleaner
	l       *zap.Logger
}

func NewPostService(db *gorm.DB, images *Images, cleaner *ImageCleaner, l *zap.Logger) *PostService {
	return &PostService{
		db:      db,
		posts:   repo.NewPostRepo(db),
		fabrics: repo.NewFabricRepo(db),
		images:  images,
		cleaner: cleaner,
		l:       l.Named("post"),
	}
}

// CreatePostInput 不含 isFeatured：精选只能走管理端接口
type CreatePostInput struct {
	Title       string
	Description string
	FabricID    string
	Price       float64
	Images      ImageInput
}

type UpdatePostInput struct {
	Title       *string
	Description *string
	FabricID    *string // 空串表示解除关联
	Price       *float64
	Images      ImageInput
}

func (s *PostService) Get(ctx context.Context, id string) (*domain.Post, error) {
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, dbErr("load post failed", err)
	}
	if p == nil {
		return nil, apperr.NotFound("post not found")
	}
	return p, nil
}

func (s *PostService) List(ctx context.Context, f repo.PostFilter, p repo.Page) (repo.Result[domain.Post], error) {
	items, total, err := s.posts.List(ctx, f, p)
	if err != nil {
		return repo.Result[domain.Post]{}, dbErr("list posts failed", err)
	}
	return repo.NewResult(items, total, p), nil
}

func (s *PostService) checkFabric(ctx context.Context, id string) error {
	f, err := s.fabrics.FindByID(ctx, id)
	if err != nil {
		return dbErr("load fabric failed", err)
	}
	if f == nil {
		return apperr.NotFound("fabric not found")
	}
	return nil
}

func (s *PostService) Create(ctx context.Context, actor *domain.User, in CreatePostInput) (*domain.Post, error) {
	p := &domain.Post{
		CreatorID:   actor.ID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
	}
	if id := strings.TrimSpace(in.FabricID); id != "" {
		if err := s.checkFabric(ctx, id); err != nil {
			return nil, err
		}
		p.FabricID = &id
	}
	imgs, err := s.images.Upload(ctx, in.Images, domain.OwnerPosts, 0)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Images", "Fabric", "Creator").Create(p).Error; err != nil {
			return err
		}
		if len(imgs) > 0 {
			ownImages(imgs, p.ID)
			if err := tx.Create(&imgs).Error; err != nil {
				return err
			}
		}
		if actor.Role == domain.RoleCreator {
			return profile.AdjustCreatorPosts(tx, actor.ID, 1)
		}
		return nil
	})
	if err != nil {
		s.images.Discard(ctx, imgs)
		return nil, dbErr("create post failed", err)
	}
	s.l.Info("post created", zap.String("id", p.ID), zap.String("creator", actor.ID))
	return s.Get(ctx, p.ID)
}

// Update 只有作者本人可改内容；管理员走精选 / 删除接口
func (s *PostService) Update(ctx context.Context, actor *domain.User, id string, in UpdatePostInput) (*domain.Post, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.CreatorID != actor.ID {
		return nil, apperr.Forbidden("you can only modify your own posts")
	}

	updates := map[string]any{}
	if in.Title != nil {
		updates["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		updates["price"] = *in.Price
	}
	if in.FabricID != nil {
		if fid := strings.TrimSpace(*in.FabricID); fid == "" {
			updates["fabric_id"] = nil
		} else {
			if err := s.checkFabric(ctx, fid); err != nil {
				return nil, err
			}
			updates["fabric_id"] = fid
		}
	}

	imgs, err := s.images.Upload(ctx, in.Images, domain.OwnerPosts, nextPosition(p.Images))
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&domain.Post{}).Where("id = ?", id).Updates(updates).Error; err != nil {
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
		return nil, dbErr("update post failed", err)
	}
	return s.Get(ctx, id)
}

// Delete 作者或管理员
func (s *PostService) Delete(ctx context.Context, actor *domain.User, id string) error {
	_, err := s.delete(ctx, actor, id, nil)
	return err
}

// delete inTx 在同一事务内执行附加写入（如管理员操作日志）
func (s *PostService) delete(ctx context.Context, actor *domain.User, id string, inTx func(tx *gorm.DB, p *domain.Post) error) (*domain.Post, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.CreatorID != actor.ID && actor.Role != domain.RoleAdmin {
		return nil, apperr.Forbidden("you can only delete your own posts")
	}
	publicIDs := domain.PublicIDs(p.Images)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_type = ? AND owner_id = ?", domain.OwnerPosts, id).Delete(&domain.Image{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.Post{}, "id = ?", id).Error; err != nil {
			return err
		}
		if err := profile.AdjustCreatorPosts(tx, p.CreatorID, -1); err != nil {
			return err
		}
		if err := s.cleaner.Enqueue(tx, publicIDs...); err != nil {
			return err
		}
		if inTx != nil {
			return inTx(tx, p)
		}
		return nil
	})
	if err != nil {
		return nil, dbErr("delete post failed", err)
	}
	s.cleaner.Drain(ctx, publicIDs)
	s.l.Info("post deleted", zap.String("id", id), zap.String("by", actor.ID))
	return p, nil
}

// setFeatured 仅管理端调用
func (s *PostService) setFeatured(ctx context.Context, id string, featured bool, inTx func(tx *gorm.DB) error) (*domain.Post, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Post{}).Where("id = ?", id).Update("is_featured", featured).Error; err != nil {
			return err
		}
		if inTx != nil {
			return inTx(tx)
		}
		return nil
	})
	if err != nil {
		return nil, dbErr("feature post failed", err)
	}
	return s.Get(ctx, id)
}

package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"adaayien/internal/apperr"
	"adaayien/internal/core/storage"
	"adaayien/internal/domain"
)

// ImageInput 上传文件，或兼容旧客户端直接给 URL
type ImageInput struct {
	Files []storage.File
	URLs  []string
}

func (in ImageInput) Empty() bool { return len(in.Files) == 0 && len(in.URLs) == 0 }

// Images 负责上传与失败回收
type Images struct {
	store   storage.Store
	cleaner *ImageCleaner
	l       *zap.Logger
}

func NewImages(store storage.Store, cleaner *ImageCleaner, l *zap.Logger) *Images {
	return &Images{store: store, cleaner: cleaner, l: l.Named("images")}
}

// Upload 返回的图片尚未落库；position 从 start 开始递增
func (m *Images) Upload(ctx context.Context, in ImageInput, ownerType string, start int) ([]domain.Image, error) {
	out := make([]domain.Image, 0, len(in.Files)+len(in.URLs))
	pos := start
	for _, f := range in.Files {
		up, err := m.store.Upload(ctx, f)
		if err != nil {
			m.Discard(ctx, out)
			if errors.Is(err, storage.ErrDisabled) {
				return nil, apperr.BadRequest("image uploads are not configured")
			}
			return nil, apperr.Internal("image upload failed", err)
		}
		out = append(out, domain.Image{OwnerType: ownerType, URL: up.URL, PublicID: up.PublicID, Position: pos})
		pos++
	}
	for _, u := range in.URLs {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		out = append(out, domain.Image{OwnerType: ownerType, URL: u, Position: pos})
		pos++
	}
	return out, nil
}

// Discard 业务写入失败后回收刚上传的图片
func (m *Images) Discard(ctx context.Context, imgs []domain.Image) {
	m.cleaner.Discard(ctx, domain.PublicIDs(imgs))
}

func ownImages(imgs []domain.Image, ownerID string) {
	for i := range imgs {
		imgs[i].OwnerID = ownerID
	}
}

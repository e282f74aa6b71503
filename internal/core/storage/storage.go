// Package storage 图片托管（Cloudinary）。
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"adaayien/internal/core/config"
)

var ErrDisabled = errors.New("storage: image uploads are not configured")

// File 待上传文件；Body 由调用方负责关闭
type File struct {
	Name string
	Body io.Reader
}

type Uploaded struct {
	URL      string
	PublicID string
}

type Store interface {
	Upload(ctx context.Context, f File) (Uploaded, error)
	// Destroy 幂等：远端已不存在视为成功
	Destroy(ctx context.Context, publicID string) error
}

func New(cfg config.Cloudinary) (Store, error) {
	if !cfg.Enabled() {
		return Disabled{}, nil
	}
	return NewCloudinary(cfg)
}

// Disabled 未配置存储时使用：拒绝上传，删除为空操作
type Disabled struct{}

func (Disabled) Upload(context.Context, File) (Uploaded, error) { return Uploaded{}, ErrDisabled }
func (Disabled) Destroy(context.Context, string) error          { return nil }

type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinary(cfg config.Cloudinary) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("storage: cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true
	return &Cloudinary{cld: cld, folder: cfg.Folder}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, f File) (Uploaded, error) {
	res, err := c.cld.Upload.Upload(ctx, f.Body, uploader.UploadParams{
		Folder:         c.folder,
		UniqueFilename: boolPtr(true),
		ResourceType:   "image",
	})
	if err != nil {
		return Uploaded{}, fmt.Errorf("storage: upload %s: %w", f.Name, err)
	}
	if res.Error.Message != "" {
		return Uploaded{}, fmt.Errorf("storage: upload %s: %s", f.Name, res.Error.Message)
	}
	return Uploaded{URL: res.SecureURL, PublicID: res.PublicID}, nil
}

func (c *Cloudinary) Destroy(ctx context.Context, publicID string) error {
	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID, Invalidate: boolPtr(true)})
	if err != nil {
		return fmt.Errorf("storage: destroy %s: %w", publicID, err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("storage: destroy %s: %s", publicID, res.Error.Message)
	}
	switch res.Result {
	case "ok", "not found":
		return nil
	default:
		return fmt.Errorf("storage: destroy %s: result %q", publicID, res.Result)
	}
}

func boolPtr(b bool) *bool { return &b }

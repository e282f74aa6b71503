package domain

import (
	"time"

	"gorm.io/gorm"

	"adaayien/pkg/utils"
)

// 图片属主类型（多态关联）
const (
	OwnerFabrics  = "fabrics"
	OwnerPosts    = "posts"
	OwnerSettings = "settings"
)

// Image 一张已托管图片；PublicID 为存储服务侧 id，旧数据直接存 URL 时为空
type Image struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	OwnerID   string    `gorm:"size:64;index:idx_image_owner;not null" json:"-"`
	OwnerType string    `gorm:"size:16;index:idx_image_owner;not null" json:"-"`
	URL       string    `gorm:"size:1024;not null" json:"url"`
	PublicID  string    `gorm:"size:255" json:"publicId,omitempty"`
	Position  int       `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time `json:"-"`
}

func (i *Image) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = utils.NewID()
	}
	return nil
}

// PublicIDs 收集需要到存储服务删除的 id
func PublicIDs(imgs []Image) []string {
	out := make([]string, 0, len(imgs))
	for _, im := range imgs {
		if im.PublicID != "" {
			out = append(out, im.PublicID)
		}
	}
	return out
}

// ImageCleanupTask 待删除的远端图片；删除成功即移除记录
type ImageCleanupTask struct {
	ID            string    `gorm:"primaryKey;size:36"`
	PublicID      string    `gorm:"uniqueIndex;size:255;not null"`
	Attempts      int       `gorm:"not null;default:0"`
	LastError     string    `gorm:"size:1024"`
	NextAttemptAt time.Time `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (t *ImageCleanupTask) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = utils.NewID()
	}
	return nil
}

package domain

import (
	"time"

	"gorm.io/gorm"

	"adaayien/pkg/utils"
)

// FabricTypes 面料类型枚举
var FabricTypes = []string{"cotton", "silk", "linen", "wool", "polyester", "chiffon", "denim", "velvet", "other"}

func ValidFabricType(s string) bool {
	for _, t := range FabricTypes {
		if t == s {
			return true
		}
	}
	return false
}

type Fabric struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"size:120;not null" json:"name"`
	Description string    `gorm:"size:2000" json:"description"`
	Price       float64   `gorm:"not null" json:"price"` // 每米单价
	Type        string    `gorm:"size:32;not null;index" json:"type"`
	Color       string    `gorm:"size:40;not null" json:"color"`
	Image       string    `gorm:"size:1024" json:"image"` // 主图
	Images      []Image   `gorm:"polymorphic:Owner;polymorphicValue:fabrics" json:"images"`
	InStock     bool      `gorm:"not null;default:true;index" json:"inStock"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (f *Fabric) BeforeCreate(*gorm.DB) error {
	if f.ID == "" {
		f.ID = utils.NewID()
	}
	return nil
}

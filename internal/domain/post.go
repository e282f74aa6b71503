package domain

import (
	"time"

	"gorm.io/gorm"

	"adaayien/pkg/utils"
)

type Post struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	CreatorID   string    `gorm:"size:36;not null;index" json:"creatorId"`
	Creator     *User     `gorm:"foreignKey:CreatorID" json:"-"`
	Title       string    `gorm:"size:160;not null" json:"title"`
	Description string    `gorm:"size:4000" json:"description"`
	FabricID    *string   `gorm:"size:36;index" json:"fabricId"`
	Fabric      *Fabric   `gorm:"foreignKey:FabricID" json:"fabric,omitempty"`
	Price       float64   `gorm:"not null;default:0" json:"price"`
	IsFeatured  bool      `gorm:"not null;default:false;index" json:"isFeatured"`
	Images      []Image   `gorm:"polymorphic:Owner;polymorphicValue:posts" json:"images"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (p *Post) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = utils.NewID()
	}
	return nil
}

package domain

import "time"

const SettingHeroImages = "hero-images"

type Setting struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Images    []Image   `gorm:"polymorphic:Owner;polymorphicValue:settings" json:"images"`
	UpdatedAt time.Time `json:"updatedAt"`
}

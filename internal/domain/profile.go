package domain

import (
	"time"

	"gorm.io/gorm"

	"adaayien/pkg/utils"
)

type CustomerProfile struct {
	ID          string            `gorm:"primaryKey;size:36" json:"id"`
	UserID      string            `gorm:"uniqueIndex;size:36;not null" json:"userId"`
	Preferences map[string]string `gorm:"type:text;serializer:json" json:"preferences"`
	Wishlist    []string          `gorm:"type:text;serializer:json" json:"wishlist"`
	Tier        string            `gorm:"size:16;not null;default:standard" json:"tier"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

const (
	CreatorPending  = "pending"
	CreatorVerified = "verified"
	CreatorRejected = "rejected"
)

type CreatorProfile struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	UserID             string    `gorm:"uniqueIndex;size:36;not null" json:"userId"`
	Bio                string    `gorm:"size:1000" json:"bio"`
	Specialization     string    `gorm:"size:120" json:"specialization"`
	VerificationStatus string    `gorm:"size:16;not null;default:pending" json:"verificationStatus"`
	TotalPosts         int       `gorm:"not null;default:0" json:"totalPosts"`
	TotalViews         int       `gorm:"not null;default:0" json:"totalViews"`
	TotalLikes         int       `gorm:"not null;default:0" json:"totalLikes"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type AdminAction struct {
	Action string    `json:"action"`
	Target string    `json:"target"`
	At     time.Time `json:"at"`
}

type AdminProfile struct {
	ID          string        `gorm:"primaryKey;size:36" json:"id"`
	UserID      string        `gorm:"uniqueIndex;size:36;not null" json:"userId"`
	Permissions []string      `gorm:"type:text;serializer:json" json:"permissions"`
	ActionLog   []AdminAction `gorm:"type:text;serializer:json" json:"actionLog"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func (p *CustomerProfile) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = utils.NewID()
	}
	return nil
}

func (p *CreatorProfile) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = utils.NewID()
	}
	return nil
}

func (p *AdminProfile) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = utils.NewID()
	}
	return nil
}

package domain

import (
	"time"

	"gorm.io/gorm"

	"adaayien/pkg/utils"
)

// MinCartQuantity 最小购买量（米）
const MinCartQuantity = 0.5

type Cart struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	UserID    string     `gorm:"uniqueIndex;size:36;not null" json:"userId"`
	Items     []CartItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	ExpiresAt time.Time  `gorm:"index" json:"expiresAt"` // 闲置过期，由存储层清理
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// CartItem Price 为加入购物车时冻结的单价
type CartItem struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CartID    string    `gorm:"size:36;not null;uniqueIndex:idx_cart_fabric" json:"-"`
	FabricID  string    `gorm:"size:36;not null;uniqueIndex:idx_cart_fabric" json:"fabricId"`
	Fabric    *Fabric   `gorm:"foreignKey:FabricID" json:"fabric"`
	Quantity  float64   `gorm:"not null" json:"quantity"`
	Price     float64   `gorm:"not null" json:"price"`
	CreatedAt time.Time `json:"addedAt"`
	UpdatedAt time.Time `json:"-"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = utils.NewID()
	}
	return nil
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = utils.NewID()
	}
	return nil
}

func (i CartItem) Subtotal() float64 { return i.Quantity * i.Price }

// Total 不落库，每次读取时按冻结单价重算
func (c *Cart) Total() float64 {
	var sum float64
	for _, it := range c.Items {
		sum += it.Subtotal()
	}
	return sum
}

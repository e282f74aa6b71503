package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"adaayien/internal/apperr"
	"adaayien/internal/core/cache"
	"adaayien/internal/domain"
)

// CartService 每个写操作在用户级锁内、单个事务中完成读改写
type CartService struct {
	clock
	db     *gorm.DB
	locker cache.Locker
	ttl    time.Duration
	l      *zap.Logger
}

func NewCartService(db *gorm.DB, locker cache.Locker, ttl time.Duration, l *zap.Logger) *CartService {
	return &CartService{db: db, locker: locker, ttl: ttl, l: l.Named("cart")}
}

type CartLine struct {
	FabricID string         `json:"fabricId"`
	Fabric   *domain.Fabric `json:"fabric"`
	Quantity float64        `json:"quantity"`
	Price    float64        `json:"price"`
	Subtotal float64        `json:"subtotal"`
	AddedAt  time.Time      `json:"addedAt"`
}

type CartView struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Items     []CartLine `json:"items"`
	ItemCount int        `json:"itemCount"`
	Total     float64    `json:"total"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

func viewOf(c *domain.Cart) CartView {
	v := CartView{ID: c.ID, UserID: c.UserID, Items: make([]CartLine, 0, len(c.Items)), Total: c.Total(), ExpiresAt: c.ExpiresAt}
	for _, it := range c.Items {
		v.Items = append(v.Items, CartLine{
			FabricID: it.FabricID,
			Fabric:   it.Fabric,
			Quantity: it.Quantity,
			Price:    it.Price,
			Subtotal: it.Subtotal(),
			AddedAt:  it.CreatedAt,
		})
	}
	v.ItemCount = len(v.Items)
	return v
}

func checkQuantity(q float64) error {
	if q < domain.MinCartQuantity {
		return apperr.New(apperr.KindInsufficientQty, "minimum quantity is 0.5 meters").
			WithData("min", domain.MinCartQuantity)
	}
	return nil
}

// ensure 不存在则创建；并发创建靠 user_id 唯一约束兜底
func (s *CartService) ensure(tx *gorm.DB, userID string) (*domain.Cart, error) {
	c := &domain.Cart{UserID: userID, ExpiresAt: s.Now().Add(s.ttl)}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Omit("Items").Create(c).Error; err != nil {
		return nil, err
	}
	var got domain.Cart
	if err := tx.Where("user_id = ?", userID).First(&got).Error; err != nil {
		return nil, err
	}
	return &got, nil
}

func (s *CartService) load(tx *gorm.DB, cartID string) (*domain.Cart, error) {
	var c domain.Cart
	err := tx.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc, id asc") }).
		Preload("Items.Fabric").
		First(&c, "id = ?", cartID).Error
	return &c, err
}

// Get 没有购物车时懒创建
func (s *CartService) Get(ctx context.Context, userID string) (CartView, error) {
	var view CartView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.ensure(tx, userID)
		if err != nil {
			return err
		}
		full, err := s.load(tx, c.ID)
		if err != nil {
			return err
		}
		view = viewOf(full)
		return nil
	})
	if err != nil {
		return CartView{}, dbErr("load cart failed", err)
	}
	return view, nil
}

// mutate 加锁 → 事务 → 刷新过期时间 → 返回带面料详情的购物车
func (s *CartService) mutate(ctx context.Context, op, userID string, fn func(tx *gorm.DB, c *domain.Cart) error) (CartView, error) {
	unlock, err := s.locker.Lock(ctx, "cart:"+userID)
	if err != nil {
		return CartView{}, apperr.Internal("cart is busy, please retry", err)
	}
	defer unlock()

	var view CartView
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.ensure(tx, userID)
		if err != nil {
			return err
		}
		if err := fn(tx, c); err != nil {
			return err
		}
		if err := tx.Model(&domain.Cart{}).Where("id = ?", c.ID).Update("expires_at", s.Now().Add(s.ttl)).Error; err != nil {
			return err
		}
		full, err := s.load(tx, c.ID)
		if err != nil {
			return err
		}
		view = viewOf(full)
		return nil
	})
	if err != nil {
		return CartView{}, dbErr("update cart failed", err)
	}
	cartMutationTotal.WithLabelValues(op).Inc()
	return view, nil
}

// Add 同一面料合并数量，单价保持首次加入时的价格
func (s *CartService) Add(ctx context.Context, userID, fabricID string, qty float64) (CartView, error) {
	if err := checkQuantity(qty); err != nil {
		return CartView{}, err
	}
	return s.mutate(ctx, "add", userID, func(tx *gorm.DB, c *domain.Cart) error {
		var f domain.Fabric
		err := tx.First(&f, "id = ?", fabricID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("fabric not found")
		}
		if err != nil {
			return err
		}
		if !f.InStock {
			return apperr.New(apperr.KindOutOfStock, "fabric is out of stock").WithData("fabricId", f.ID)
		}

		var item domain.CartItem
		err = tx.Where("cart_id = ? AND fabric_id = ?", c.ID, fabricID).First(&item).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Omit("Fabric").Create(&domain.CartItem{CartID: c.ID, FabricID: fabricID, Quantity: qty, Price: f.Price}).Error
		case err != nil:
			return err
		default:
			return tx.Model(&item).Update("quantity", item.Quantity+qty).Error
		}
	})
}

// Update 覆盖数量；行不存在返回 NotFound
func (s *CartService) Update(ctx context.Context, userID, fabricID string, qty float64) (CartView, error) {
	if err := checkQuantity(qty); err != nil {
		return CartView{}, err
	}
	return s.mutate(ctx, "update", userID, func(tx *gorm.DB, c *domain.Cart) error {
		var item domain.CartItem
		err := tx.Where("cart_id = ? AND fabric_id = ?", c.ID, fabricID).First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("item not found in cart")
		}
		if err != nil {
			return err
		}
		return tx.Model(&item).Update("quantity", qty).Error
	})
}

// Remove 幂等
func (s *CartService) Remove(ctx context.Context, userID, fabricID string) (CartView, error) {
	return s.mutate(ctx, "remove", userID, func(tx *gorm.DB, c *domain.Cart) error {
		return tx.Where("cart_id = ? AND fabric_id = ?", c.ID, fabricID).Delete(&domain.CartItem{}).Error
	})
}

func (s *CartService) Clear(ctx context.Context, userID string) (CartView, error) {
	return s.mutate(ctx, "clear", userID, func(tx *gorm.DB, c *domain.Cart) error {
		return tx.Where("cart_id = ?", c.ID).Delete(&domain.CartItem{}).Error
	})
}

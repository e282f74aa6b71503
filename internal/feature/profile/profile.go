// Package profile 角色附属资料。每个角色一个 Kind 实现，在鉴权边界选定一次。
package profile

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"adaayien/internal/domain"
)

// Attrs 可写入附属资料的字段；nil 表示不修改
type Attrs struct {
	Bio            *string
	Specialization *string
	Preferences    map[string]string
}

type Kind interface {
	Role() domain.Role
	Create(tx *gorm.DB, userID string, a Attrs) error
	// Load 资料缺失时返回 (nil, nil)
	Load(tx *gorm.DB, userID string) (any, error)
	Update(tx *gorm.DB, userID string, a Attrs) (any, error)
}

var kinds = map[domain.Role]Kind{
	domain.RoleCustomer: Customer{},
	domain.RoleCreator:  Creator{},
	domain.RoleAdmin:    Admin{},
}

// For 未知角色按 customer 处理
func For(r domain.Role) Kind {
	if k, ok := kinds[r]; ok {
		return k
	}
	return Customer{}
}

func first[T any](tx *gorm.DB, userID string) (*T, error) {
	var v T
	err := tx.Where("user_id = ?", userID).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

type Customer struct{}

func (Customer) Role() domain.Role { return domain.RoleCustomer }

func (Customer) Create(tx *gorm.DB, userID string, a Attrs) error {
	p := &domain.CustomerProfile{UserID: userID, Preferences: a.Preferences, Wishlist: []string{}, Tier: "standard"}
	if p.Preferences == nil {
		p.Preferences = map[string]string{}
	}
	return tx.Create(p).Error
}

func (Customer) Load(tx *gorm.DB, userID string) (any, error) {
	p, err := first[domain.CustomerProfile](tx, userID)
	if p == nil {
		return nil, err
	}
	return p, nil
}

func (k Customer) Update(tx *gorm.DB, userID string, a Attrs) (any, error) {
	p, err := first[domain.CustomerProfile](tx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		if err := k.Create(tx, userID, a); err != nil {
			return nil, err
		}
		return k.Load(tx, userID)
	}
	if a.Preferences != nil {
		p.Preferences = a.Preferences
	}
	return p, tx.Save(p).Error
}

type Creator struct{}

func (Creator) Role() domain.Role { return domain.RoleCreator }

func (Creator) Create(tx *gorm.DB, userID string, a Attrs) error {
	p := &domain.CreatorProfile{UserID: userID, VerificationStatus: domain.CreatorPending}
	if a.Bio != nil {
		p.Bio = *a.Bio
	}
	if a.Specialization != nil {
		p.Specialization = *a.Specialization
	}
	return tx.Create(p).Error
}

func (Creator) Load(tx *gorm.DB, userID string) (any, error) {
	p, err := first[domain.CreatorProfile](tx, userID)
	if p == nil {
		return nil, err
	}
	return p, nil
}

func (k Creator) Update(tx *gorm.DB, userID string, a Attrs) (any, error) {
	p, err := first[domain.CreatorProfile](tx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		if err := k.Create(tx, userID, a); err != nil {
			return nil, err
		}
		return k.Load(tx, userID)
	}
	if a.Bio != nil {
		p.Bio = *a.Bio
	}
	if a.Specialization != nil {
		p.Specialization = *a.Specialization
	}
	return p, tx.Save(p).Error
}

// AdjustCreatorPosts 发帖 / 删帖时维护作品计数，不会小于 0
func AdjustCreatorPosts(tx *gorm.DB, userID string, delta int) error {
	expr := gorm.Expr("total_posts + ?", delta)
	if delta < 0 {
		expr = gorm.Expr("CASE WHEN total_posts + ? < 0 THEN 0 ELSE total_posts + ? END", delta, delta)
	}
	return tx.Model(&domain.CreatorProfile{}).Where("user_id = ?", userID).Update("total_posts", expr).Error
}

// DefaultAdminPermissions 新建管理员的默认权限
var DefaultAdminPermissions = []string{"fabrics:write", "posts:moderate", "settings:write", "creators:read"}

type Admin struct{}

func (Admin) Role() domain.Role { return domain.RoleAdmin }

func (Admin) Create(tx *gorm.DB, userID string, _ Attrs) error {
	perms := append([]string(nil), DefaultAdminPermissions...)
	return tx.Create(&domain.AdminProfile{UserID: userID, Permissions: perms, ActionLog: []domain.AdminAction{}}).Error
}

func (Admin) Load(tx *gorm.DB, userID string) (any, error) {
	p, err := first[domain.AdminProfile](tx, userID)
	if p == nil {
		return nil, err
	}
	return p, nil
}

// Update 管理员资料没有可自助修改的字段
func (k Admin) Update(tx *gorm.DB, userID string, _ Attrs) (any, error) {
	return k.Load(tx, userID)
}

// MaxActionLog 只保留最近的操作记录
const MaxActionLog = 200

// RecordAdminAction 追加操作日志；管理员没有资料记录时忽略
func RecordAdminAction(tx *gorm.DB, userID, action, target string, at time.Time) error {
	p, err := first[domain.AdminProfile](tx, userID)
	if err != nil || p == nil {
		return err
	}
	p.ActionLog = append(p.ActionLog, domain.AdminAction{Action: action, Target: target, At: at})
	if n := len(p.ActionLog); n > MaxActionLog {
		p.ActionLog = p.ActionLog[n-MaxActionLog:]
	}
	return tx.Save(p).Error
}

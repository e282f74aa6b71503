package domain

import (
	"context"
	"time"

	"gorm.io/gorm"

	"adaayien/pkg/utils"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleCreator  Role = "creator"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleCreator, RoleAdmin:
		return true
	}
	return false
}

// SelfAssignable 公开注册只允许 customer / creator
func (r Role) SelfAssignable() bool { return r == RoleCustomer || r == RoleCreator }

type User struct {
	ID                  string     `gorm:"primaryKey;size:36"`
	Email               string     `gorm:"uniqueIndex;size:191;not null"`
	Name                string     `gorm:"size:64;not null"`
	Phone               string     `gorm:"size:32"`
	ProfilePic          string     `gorm:"size:1024"`
	PasswordHash        string     `gorm:"size:191;not null"`
	Role                Role       `gorm:"size:16;not null;default:customer;index"`
	EmailVerified       bool       `gorm:"not null;default:false"`
	VerificationToken   *string    `gorm:"size:64;uniqueIndex"`
	VerificationExpires *time.Time
	FailedLogins        int `gorm:"not null;default:0"`
	LockedUntil         *time.Time
	LastLogin           *time.Time
	Active              bool `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = utils.NewID()
	}
	return nil
}

// IsLocked 锁定状态由时间戳推导，过期即视为解锁
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// PublicUser 对外可见字段（不含密码与验证 token）
type PublicUser struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Phone         string     `json:"phone,omitempty"`
	ProfilePic    string     `json:"profilePic,omitempty"`
	Role          Role       `json:"role"`
	EmailVerified bool       `json:"emailVerified"`
	Active        bool       `json:"active"`
	LastLogin     *time.Time `json:"lastLogin,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Phone:         u.Phone,
		ProfilePic:    u.ProfilePic,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
		Active:        u.Active,
		LastLogin:     u.LastLogin,
		CreatedAt:     u.CreatedAt,
	}
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByVerificationToken(ctx context.Context, token string, now time.Time) (*User, error)
	Update(ctx context.Context, u *User) error
}

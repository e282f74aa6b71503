// Package service 业务逻辑；只返回 apperr 错误，由 transport 层映射状态码。
package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"adaayien/internal/apperr"
)

// clock 各 service 内嵌，测试里用 SetClock 注入固定时间
type clock struct{ now func() time.Time }

func (c *clock) SetClock(now func() time.Time) { c.now = now }

func (c *clock) Now() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

// dbErr 未识别的存储错误统一包装成 Internal
func dbErr(msg string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae
	}
	return apperr.Internal(msg, err)
}

func isDuplicate(err error) bool { return errors.Is(err, gorm.ErrDuplicatedKey) }

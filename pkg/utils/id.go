package utils

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewID 实体主键（uuid v4 字符串）
func NewID() string { return uuid.NewString() }

// RandomHex 生成 n 字节随机数的十六进制串（长度 2n）
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

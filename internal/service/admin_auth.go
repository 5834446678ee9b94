package service

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AdminAuth 运维接口鉴权，密钥以 bcrypt 哈希保存在配置中
type AdminAuth struct {
	keyHash []byte
}

// NewAdminAuth 创建运维鉴权
func NewAdminAuth(keyHash string) *AdminAuth {
	return &AdminAuth{keyHash: []byte(strings.TrimSpace(keyHash))}
}

// Enabled 未配置哈希时运维接口整体关闭
func (a *AdminAuth) Enabled() bool {
	return a != nil && len(a.keyHash) > 0
}

// Verify 校验运维密钥
func (a *AdminAuth) Verify(key string) error {
	if !a.Enabled() || strings.TrimSpace(key) == "" {
		return ErrAdminKeyInvalid
	}
	if err := bcrypt.CompareHashAndPassword(a.keyHash, []byte(key)); err != nil {
		return ErrAdminKeyInvalid
	}
	return nil
}

// HashAdminKey 生成运维密钥哈希（种子命令输出给配置使用）
func HashAdminKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

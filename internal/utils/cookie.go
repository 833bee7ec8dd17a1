package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// 会话 Cookie 签名：Cookie 值形如 <sid>.<sig>，sig 为以服务端密钥
// 计算的 HMAC-SHA256（base64url 无填充）。密钥来自配置，不落盘不入库。

// SignValue 以 secret 对 value 签名，返回可直接写入 Cookie 的字符串。
func SignValue(secret, value string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(value))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return value + "." + sig
}

// VerifyValue 校验签名并取出原值。签名比较使用常数时间比较。
func VerifyValue(secret, signed string) (string, bool) {
	i := strings.LastIndexByte(signed, '.')
	if i <= 0 || i == len(signed)-1 {
		return "", false
	}
	value, sig := signed[:i], signed[i+1:]
	want, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return "", false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(value))
	if !hmac.Equal(mac.Sum(nil), want) {
		return "", false
	}
	return value, true
}

// RandString 生成长度为 n 字节的随机字节，并以 base64url 编码为 URL 安全的字符串（无填充）。
// 可用于离线生成会话签名密钥。
func RandString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	// 使用不带填充的 Base64 URL 编码
	return base64.RawURLEncoding.EncodeToString(b), nil
}

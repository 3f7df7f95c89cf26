package notify

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// validateToken 校验订阅请求携带的 JWT。
// 令牌可以放在 Authorization 头里，浏览器的 WebSocket API 不支持自定义头，
// 所以也接受 ?token= 查询参数。
func validateToken(r *http.Request, secret string) error {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		auth := r.Header.Get("Authorization")
		tokenStr = strings.TrimPrefix(auth, "Bearer ")
	}
	if tokenStr == "" {
		return fmt.Errorf("missing subscriber token")
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return fmt.Errorf("parse subscriber token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid subscriber token")
	}
	return nil
}

// NewSubscriberToken 为观察者签发订阅令牌，token 命令直接打印它。
func NewSubscriberToken(secret string) (string, error) {
	token := jwt.New(jwt.SigningMethodHS256)
	return token.SignedString([]byte(secret))
}

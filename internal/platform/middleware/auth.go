package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// AuthUserIDKey 認證後的用戶 ID 在 gin.Context 中的鍵
	AuthUserIDKey = "auth_user_id"
)

// JWTMiddleware JWT 驗證中間件
// 身份由平台的用戶服務簽發，這裡只做驗證與解析
type JWTMiddleware struct {
	secretKey []byte
	enabled   bool
}

// NewJWTMiddleware 創建 JWT 中間件
func NewJWTMiddleware(secretKey string, enabled bool) *JWTMiddleware {
	return &JWTMiddleware{
		secretKey: []byte(secretKey),
		enabled:   enabled,
	}
}

// ValidateToken 驗證 token 並返回用戶 ID（subject claim）
func (m *JWTMiddleware) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("token missing subject")
	}

	return subject, nil
}

// ExtractToken 從請求中提取 token
// 優先 Authorization header；WebSocket 升級請求可改用 token 查詢參數
// （瀏覽器的 WebSocket API 無法設置自定義 header）
func ExtractToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", fmt.Errorf("無效的認證格式")
		}
		return parts[1], nil
	}

	if token := c.Query("token"); token != "" {
		return token, nil
	}

	return "", fmt.Errorf("未提供認證 token")
}

// GinMiddleware Gin HTTP 中間件
// 使用方式：router.Use(jwtMiddleware.GinMiddleware())
func (m *JWTMiddleware) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 如果未啟用，直接放行（開發環境，身份從 user_id 參數取得）
		if !m.enabled {
			c.Next()
			return
		}

		token, err := ExtractToken(c)
		if err != nil {
			c.JSON(401, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		userID, err := m.ValidateToken(token)
		if err != nil {
			c.JSON(401, gin.H{"error": "認證失敗"})
			c.Abort()
			return
		}

		// 將用戶 ID 存入 context
		c.Set(AuthUserIDKey, userID)

		c.Next()
	}
}

// Authenticate 驗證請求並返回用戶 ID（供 WebSocket 升級前調用）
func (m *JWTMiddleware) Authenticate(c *gin.Context) (string, error) {
	if !m.enabled {
		// 開發環境：信任 user_id 參數
		userID := c.Query("user_id")
		if userID == "" {
			return "", fmt.Errorf("缺少 user_id 參數")
		}
		return userID, nil
	}

	token, err := ExtractToken(c)
	if err != nil {
		return "", err
	}

	return m.ValidateToken(token)
}

// GetAuthenticatedUserID 從 gin.Context 獲取認證後的用戶 ID
// 未啟用認證時退回 user_id 查詢參數
func GetAuthenticatedUserID(c *gin.Context) string {
	if userID, exists := c.Get(AuthUserIDKey); exists {
		if id, ok := userID.(string); ok {
			return id
		}
	}
	return c.Query("user_id")
}

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/annel0/voxel-engine/internal/auth"
	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/annel0/voxel-engine/internal/middleware"
	"github.com/gin-gonic/gin"
)

const claimsKey = "operator_claims"

// requireRole пропускает запрос только с действующим Bearer-токеном,
// роль которого не ниже role
func (rs *RestServer) requireRole(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Header("WWW-Authenticate", `Bearer realm="voxel-engine"`)
			respondError(c, http.StatusUnauthorized, "Нужен заголовок Authorization: Bearer <токен>")
			c.Abort()
			return
		}

		claims, err := rs.issuer.Validate(token)
		if err != nil {
			msg := "Недействительный токен"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "Срок действия токена истёк"
			}
			c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
			respondError(c, http.StatusUnauthorized, msg)
			c.Abort()
			return
		}

		if !claims.Allows(role) {
			logging.Warn("🔒 Оператору %s (%s) отказано в %s %s (запрос %s)",
				claims.Operator, claims.Role, c.Request.Method, c.FullPath(), middleware.RequestID(c))
			respondError(c, http.StatusForbidden, "Роль "+string(claims.Role)+" не может менять мир")
			c.Abort()
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// bearerToken достаёт токен из "Bearer <token>"; схема без учёта регистра
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// operatorOf имя оператора запроса для логов
func operatorOf(c *gin.Context) string {
	if v, ok := c.Get(claimsKey); ok {
		return v.(*auth.Claims).Operator
	}
	return "anonymous"
}

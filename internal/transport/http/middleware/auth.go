package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"adaayien/internal/apperr"
	"adaayien/internal/core/auth"
	"adaayien/internal/domain"
	"adaayien/internal/feature/profile"
	"adaayien/internal/repo"
	resp "adaayien/internal/transport/http/response"
)

const (
	KeyPrincipal = "principal"
	KeyUserID    = "userId"
	KeyRole      = "role"
)

// Principal 当前请求的登录身份；Kind 按角色在此处选定
type Principal struct {
	User *domain.User
	Kind profile.Kind
}

type Authenticator struct {
	jwt   *auth.JWTer
	users *repo.UserRepo
}

func NewAuthenticator(j *auth.JWTer, users *repo.UserRepo) *Authenticator {
	return &Authenticator{jwt: j, users: users}
}

func bearer(c *gin.Context) string {
	ah := c.GetHeader("Authorization")
	if len(ah) < 7 || !strings.EqualFold(ah[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(ah[7:])
}

// Required token 无效、账号不存在或已停用 → 401
func (a *Authenticator) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearer(c)
		if tok == "" {
			resp.Fail(c, apperr.Unauthenticated("missing bearer token"))
			return
		}
		claims, err := a.jwt.Parse(tok)
		if err != nil {
			resp.Fail(c, apperr.Unauthenticated("invalid or expired token"))
			return
		}
		u, err := a.users.FindByID(c.Request.Context(), claims.UID)
		if err != nil {
			resp.Fail(c, apperr.Internal("load user failed", err))
			return
		}
		if u == nil || !u.Active {
			resp.Fail(c, apperr.Unauthenticated("account not found or deactivated"))
			return
		}
		c.Set(KeyPrincipal, Principal{User: u, Kind: profile.For(u.Role)})
		c.Set(KeyUserID, u.ID)
		c.Set(KeyRole, string(u.Role))
		c.Next()
	}
}

func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(KeyPrincipal)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok && p.User != nil
}

// RequireRoles 必须挂在 Required 之后
func RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	required := make([]string, len(roles))
	for i, r := range roles {
		required[i] = string(r)
	}
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			resp.Fail(c, apperr.Unauthenticated("authentication required"))
			return
		}
		for _, r := range roles {
			if p.User.Role == r {
				c.Next()
				return
			}
		}
		resp.Fail(c, apperr.Forbidden("insufficient role").
			WithData("role", p.User.Role).
			WithData("required", required))
	}
}

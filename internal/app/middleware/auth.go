package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/sirupsen/logrus"

	"portal/internal/app/config"
	"portal/internal/app/ds"
	"portal/internal/app/role"
)

// Blacklist knows which access tokens were revoked by logout.
type Blacklist interface {
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

type AuthMiddleware struct {
	Blacklist Blacklist
	Config    *config.Config
}

func NewAuthMiddleware(blacklist Blacklist, cfg *config.Config) *AuthMiddleware {
	return &AuthMiddleware{
		Blacklist: blacklist,
		Config:    cfg,
	}
}

// WithAuthCheck requires a valid, unrevoked bearer token. When roles are
// given the caller must hold one of them.
func (am *AuthMiddleware) WithAuthCheck(assignedRoles ...role.Role) gin.HandlerFunc {
	return func(gCtx *gin.Context) {
		jwtStr := BearerToken(gCtx.GetHeader("Authorization"))
		if jwtStr == "" {
			gCtx.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		revoked, err := am.Blacklist.IsBlacklisted(gCtx.Request.Context(), jwtStr)
		if err != nil {
			logrus.Error("Error checking token blacklist: ", err)
			gCtx.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		if revoked {
			gCtx.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		claims, err := ParseToken(jwtStr, am.Config.JWT.Token)
		if err != nil {
			gCtx.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		if len(assignedRoles) > 0 && !hasRequiredRole(claims.Role, assignedRoles) {
			gCtx.AbortWithStatus(http.StatusForbidden)
			return
		}

		gCtx.Set(ctxUserID, claims.UserID)
		gCtx.Set(ctxUserLogin, claims.Login)
		gCtx.Set(ctxUserRole, claims.Role)

		gCtx.Next()
	}
}

// BearerToken strips the "Bearer " prefix from an Authorization header.
func BearerToken(header string) string {
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// ParseToken validates an HS256 access token and returns its claims.
func ParseToken(tokenString, secret string) (*ds.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ds.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*ds.JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func hasRequiredRole(userRole role.Role, requiredRoles []role.Role) bool {
	for _, requiredRole := range requiredRoles {
		if userRole == requiredRole {
			return true
		}
	}
	return false
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"portal/internal/app/config"
	"portal/internal/app/ds"
	"portal/internal/app/dto"
	"portal/internal/app/middleware"
	"portal/internal/app/repository"
)

const tokenIssuer = "service-portal"

// TokenRevoker stores logged-out tokens until they would have expired.
type TokenRevoker interface {
	WriteJWTToBlacklist(ctx context.Context, token string, ttl time.Duration) error
}

type AuthHandler struct {
	Repository *repository.Repository
	Revoker    TokenRevoker
	Config     *config.Config
}

func NewAuthHandler(r *repository.Repository, revoker TokenRevoker, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		Repository: r,
		Revoker:    revoker,
		Config:     cfg,
	}
}

// HashPassword hashes a staff password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// LoginUser signs a staff member in.
// @Summary Sign in
// @Description Checks the credentials and returns a JWT for the Authorization header.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.LoginResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/auth/login [post]
func (h *AuthHandler) LoginUser(ctx *gin.Context) {
	var request dto.LoginRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, err)
		return
	}

	user, err := h.Repository.GetUserByLogin(ctx.Request.Context(), request.Login)
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(request.Password)) != nil {
		h.errorHandler(ctx, http.StatusUnauthorized, errors.New("invalid login or password"))
		return
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, ds.JWTClaims{
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(h.Config.JWT.ExpiresIn).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    tokenIssuer,
		},
		UserID: user.ID,
		Login:  user.Login,
		Role:   user.Role,
	})

	accessToken, err := token.SignedString([]byte(h.Config.JWT.Token))
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	logrus.WithField("login", user.Login).Info("user signed in")
	ctx.JSON(http.StatusOK, dto.LoginResponse{
		UserID:    user.ID,
		Login:     user.Login,
		Role:      user.Role.String(),
		Token:     accessToken,
		ExpiresIn: int(h.Config.JWT.ExpiresIn.Seconds()),
		TokenType: "Bearer",
	})
}

// LogoutUser revokes the current token.
// @Summary Sign out
// @Description Blacklists the token until its expiry.
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/auth/logout [post]
func (h *AuthHandler) LogoutUser(ctx *gin.Context) {
	tokenString := middleware.BearerToken(ctx.GetHeader("Authorization"))
	if tokenString == "" {
		h.errorHandler(ctx, http.StatusUnauthorized, errors.New("authorization header missing"))
		return
	}

	claims, err := middleware.ParseToken(tokenString, h.Config.JWT.Token)
	if err != nil {
		h.errorHandler(ctx, http.StatusUnauthorized, err)
		return
	}

	ttl := time.Until(time.Unix(claims.ExpiresAt, 0))
	if ttl > 0 {
		if err := h.Revoker.WriteJWTToBlacklist(ctx.Request.Context(), tokenString, ttl); err != nil {
			h.errorHandler(ctx, http.StatusInternalServerError, err)
			return
		}
	}

	ctx.JSON(http.StatusOK, dto.SuccessResponse{Status: "success", Message: "signed out"})
}

// GetUserProfile returns the signed-in staff member.
// @Summary Current user
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.SuccessResponse{data=dto.UserResponse}
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/auth/profile [get]
func (h *AuthHandler) GetUserProfile(ctx *gin.Context) {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		h.errorHandler(ctx, http.StatusUnauthorized, errors.New("not authenticated"))
		return
	}

	user, err := h.Repository.GetUserByID(ctx.Request.Context(), actor.ID)
	if err != nil {
		h.errorHandler(ctx, http.StatusNotFound, errors.New("user not found"))
		return
	}

	ctx.JSON(http.StatusOK, dto.SuccessResponse{
		Status: "success",
		Data: dto.UserResponse{
			ID:       user.ID,
			Login:    user.Login,
			FullName: user.FullName,
			Email:    user.Email,
			Role:     user.Role.String(),
		},
	})
}

func (h *AuthHandler) errorHandler(ctx *gin.Context, errorStatusCode int, err error) {
	logrus.Error(err.Error())
	ctx.JSON(errorStatusCode, dto.ErrorResponse{
		Status:  "fail",
		Message: err.Error(),
	})
}

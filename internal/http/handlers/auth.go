package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/http/cookies"
	"github.com/geocoder89/userhub/internal/service"
	"github.com/gin-gonic/gin"
)

type Authenticator interface {
	SignUp(ctx context.Context, in service.SignUpInput) (user.User, string, error)
	SignIn(ctx context.Context, email, password string) (user.User, string, error)
}

type AuthHandler struct {
	auth Authenticator
	jar  *cookies.Jar
}

func NewAuthHandler(auth Authenticator, jar *cookies.Jar) *AuthHandler {
	return &AuthHandler{auth: auth, jar: jar}
}

type SignUpRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=255"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req SignUpRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, token, err := h.auth.SignUp(cctx, service.SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "Email is already in use")
			return
		}
		RespondInternal(ctx, err)
		return
	}

	h.jar.Set(ctx, cookies.TokenName, token)
	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User registered",
		"user":    u,
	})
}

func (h *AuthHandler) SignIn(ctx *gin.Context) {
	var req SignInRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, token, err := h.auth.SignIn(cctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			RespondUnauthorized(ctx, "Invalid email or password")
			return
		}
		RespondInternal(ctx, err)
		return
	}

	h.jar.Set(ctx, cookies.TokenName, token)
	ctx.JSON(http.StatusOK, gin.H{
		"message": "User signed in successfully",
		"user":    u,
	})
}

// SignOut only drops the cookie; tokens are stateless and expire on their own.
func (h *AuthHandler) SignOut(ctx *gin.Context) {
	h.jar.Clear(ctx, cookies.TokenName)
	ctx.JSON(http.StatusOK, gin.H{
		"message": "User signed out successfully",
	})
}

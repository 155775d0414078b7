package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

const maxPageLimit = 1000

type UserService interface {
	ListUsers(ctx context.Context, page user.Page) ([]user.User, error)
	GetUser(ctx context.Context, id int64) (*user.User, error)
	UpdateUser(ctx context.Context, id int64, patch user.Patch) (user.User, error)
	DeleteUser(ctx context.Context, id int64) (user.User, error)
}

// UsersHandler leaves logging of unexpected errors to the error middleware.
type UsersHandler struct {
	svc     UserService
	timeout time.Duration
}

func NewUsersHandler(svc UserService) *UsersHandler {
	return &UsersHandler{svc: svc, timeout: 3 * time.Second}
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	page, ok := parsePage(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	users, err := h.svc.ListUsers(cctx, page)
	if err != nil {
		RespondInternal(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"message": "Users retrieved successfully",
		"users":   users,
	})
}

func (h *UsersHandler) GetUser(ctx *gin.Context) {
	id, ok := parseUserID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	u, err := h.svc.GetUser(cctx, id)
	if err != nil {
		RespondInternal(ctx, err)
		return
	}
	if u == nil {
		RespondNotFound(ctx, "User not found")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"message": "User retrieved successfully",
		"user":    u,
	})
}

// UpdateUser serves both PUT and PATCH; absent fields are left unchanged.
func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	id, ok := parseUserID(ctx)
	if !ok {
		return
	}

	var patch user.Patch
	if !BindJSON(ctx, &patch) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	updated, err := h.svc.UpdateUser(cctx, id, patch)
	if err != nil {
		writeStoreError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"user":    updated,
	})
}

func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	id, ok := parseUserID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	deleted, err := h.svc.DeleteUser(cctx, id)
	if err != nil {
		writeStoreError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User deleted successfully",
		"user":    deleted,
	})
}

func writeStoreError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found")
	case errors.Is(err, user.ErrEmailTaken):
		RespondConflict(ctx, "Email is already in use")
	default:
		RespondInternal(ctx, err)
	}
}

func parseUserID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondBadRequest(ctx, "Invalid user id", nil)
		return 0, false
	}
	return id, true
}

// parsePage reads optional limit/offset; both absent means the whole table.
func parsePage(ctx *gin.Context) (user.Page, bool) {
	var page user.Page

	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageLimit {
			RespondBadRequest(ctx, "limit must be between 1 and "+strconv.Itoa(maxPageLimit), nil)
			return page, false
		}
		page.Limit = n
	}

	if raw := ctx.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			RespondBadRequest(ctx, "offset must be a non-negative integer", nil)
			return page, false
		}
		page.Offset = n
	}

	return page, true
}

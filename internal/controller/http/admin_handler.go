package http

import (
	"errors"
	"net/http"

	"memorial-guestbook/internal/usecase"
	"memorial-guestbook/pkg/logger"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	adminUseCase usecase.AdminUseCase
	postUseCase  usecase.PostUseCase
	logger       *logger.Logger
}

func NewAdminHandler(adminUseCase usecase.AdminUseCase, postUseCase usecase.PostUseCase, logger *logger.Logger) *AdminHandler {
	return &AdminHandler{
		adminUseCase: adminUseCase,
		postUseCase:  postUseCase,
		logger:       logger,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SetHiddenRequest struct {
	Hidden *bool `json:"hidden" binding:"required"`
}

type SetPinnedRequest struct {
	Pinned *bool `json:"pinned" binding:"required"`
}

// Login godoc
// @Summary      Admin login
// @Description  Exchange admin credentials for a bearer token.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Credentials"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /admin/login [post]
func (h *AdminHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.adminUseCase.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Admin login failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// ListAllPosts godoc
// @Summary      List every post, hidden included
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Page size" default(12)
// @Param        offset query int false "Offset into the list" default(0)
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /admin/posts [get]
func (h *AdminHandler) ListAllPosts(c *gin.Context) {
	limit, offset := pagination(c)

	posts, total, err := h.postUseCase.ListAllPosts(limit, offset)
	if err != nil {
		h.logger.Error("Failed to list posts for moderation: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list posts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":       posts,
		"total_count": total,
		"limit":       limit,
		"offset":      offset,
	})
}

// SetHidden godoc
// @Summary      Hide or unhide a post
// @Description  Hidden posts disappear from the public feed and the slideshow but are kept in the database.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Post ID"
// @Param        request body SetHiddenRequest true "Desired state"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /admin/posts/{id}/hidden [patch]
func (h *AdminHandler) SetHidden(c *gin.Context) {
	var req SetHiddenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.postUseCase.SetHidden(c.Param("id"), *req.Hidden); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post updated"})
}

// SetPinned godoc
// @Summary      Pin or unpin a post
// @Description  Pinned posts sort ahead of everything else in the feed.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Post ID"
// @Param        request body SetPinnedRequest true "Desired state"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /admin/posts/{id}/pinned [patch]
func (h *AdminHandler) SetPinned(c *gin.Context) {
	var req SetPinnedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.postUseCase.SetPinned(c.Param("id"), *req.Pinned); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post updated"})
}

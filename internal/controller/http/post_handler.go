package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"memorial-guestbook/internal/entity"
	"memorial-guestbook/internal/media"
	"memorial-guestbook/internal/usecase"
	"memorial-guestbook/pkg/logger"

	"github.com/gin-gonic/gin"
)

// GuestTokenHeader carries the anonymous edit credential issued to the
// device that created a post.
const GuestTokenHeader = "X-Guest-Token"

const defaultPageSize = 12

type PostHandler struct {
	postUseCase usecase.PostUseCase
	logger      *logger.Logger
}

func NewPostHandler(postUseCase usecase.PostUseCase, logger *logger.Logger) *PostHandler {
	return &PostHandler{
		postUseCase: postUseCase,
		logger:      logger,
	}
}

type CreatePostRequest struct {
	GuestName  string `form:"guest_name" binding:"required"`
	Message    string `form:"message"`
	GuestToken string `form:"guest_token" binding:"required"`
}

type UpdatePostRequest struct {
	GuestName *string            `json:"guest_name"`
	Message   *string            `json:"message"`
	Media     []MediaItemRequest `json:"media"`
}

// MediaItemRequest references media already stored for this post; a
// PATCH can drop or reorder items but never introduces new uploads.
type MediaItemRequest struct {
	URL  string `json:"url" binding:"required"`
	Type string `json:"type" binding:"required"`
}

// CreatePost godoc
// @Summary      Create a tribute post
// @Description  Create a tribute with an optional message and media files. Up to 10 images and 1 video per post. Images are recompressed server side; videos over 50MB are rejected.
// @Tags         posts
// @Accept       multipart/form-data
// @Produce      json
// @Param        guest_name formData string true "Display name of the guest"
// @Param        message formData string false "Tribute text"
// @Param        guest_token formData string true "Device token authorizing later edits"
// @Param        media formData file false "Media files (images or one video), multiple allowed"
// @Success      201  {object}  entity.Post
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /posts [post]
func (h *PostHandler) CreatePost(c *gin.Context) {
	var req CreatePostRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Message == "" && !hasMediaFiles(c) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A message or at least one media file is required"})
		return
	}

	uploads, err := readUploads(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read media files"})
		return
	}

	post, err := h.postUseCase.CreatePost(req.GuestName, req.Message, req.GuestToken, uploads)
	if err != nil {
		if isMediaPolicyError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to create post: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	c.JSON(http.StatusCreated, post)
}

// GetPost godoc
// @Summary      Get a post by ID
// @Tags         posts
// @Produce      json
// @Param        id path string true "Post ID"
// @Success      200  {object}  entity.Post
// @Failure      404  {object}  map[string]string
// @Router       /posts/{id} [get]
func (h *PostHandler) GetPost(c *gin.Context) {
	post, err := h.postUseCase.GetPost(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	c.JSON(http.StatusOK, post)
}

// ListPosts godoc
// @Summary      List visible posts
// @Description  Pinned posts come first, then newest first. Hidden posts are excluded.
// @Tags         posts
// @Produce      json
// @Param        limit query int false "Page size" default(12)
// @Param        offset query int false "Offset into the list" default(0)
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /posts [get]
func (h *PostHandler) ListPosts(c *gin.Context) {
	limit, offset := pagination(c)

	posts, total, err := h.postUseCase.ListPosts(limit, offset)
	if err != nil {
		h.logger.Error("Failed to list posts: %v", err)
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

// UpdatePost godoc
// @Summary      Edit a post
// @Description  Only the device that created the post may edit it; the guest token must match. Sending a media array replaces the post's media list (drop or reorder existing items); omitting it leaves the media untouched.
// @Tags         posts
// @Accept       json
// @Produce      json
// @Param        id path string true "Post ID"
// @Param        X-Guest-Token header string true "Guest token issued at creation"
// @Param        request body UpdatePostRequest true "Fields to change"
// @Success      200  {object}  entity.Post
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /posts/{id} [patch]
func (h *PostHandler) UpdatePost(c *gin.Context) {
	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// nil means "media untouched"; an explicit empty array clears it.
	var mediaItems []entity.MediaItem
	if req.Media != nil {
		mediaItems = make([]entity.MediaItem, len(req.Media))
		for i, item := range req.Media {
			mediaItems[i] = entity.MediaItem{URL: item.URL, Type: entity.MediaType(item.Type)}
		}
	}

	post, err := h.postUseCase.UpdatePost(c.Param("id"), c.GetHeader(GuestTokenHeader), req.GuestName, req.Message, mediaItems)
	if err != nil {
		if errors.Is(err, usecase.ErrNotAuthorized) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		if isMediaPolicyError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	c.JSON(http.StatusOK, post)
}

// DeletePost godoc
// @Summary      Delete a post
// @Description  Deletes the post and its stored media. Guests must present the matching guest token; admins may delete any post.
// @Tags         posts
// @Produce      json
// @Param        id path string true "Post ID"
// @Param        X-Guest-Token header string false "Guest token issued at creation"
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /posts/{id} [delete]
func (h *PostHandler) DeletePost(c *gin.Context) {
	isAdmin := c.GetString("role") == "admin"

	err := h.postUseCase.DeletePost(c.Param("id"), c.GetHeader(GuestTokenHeader), isAdmin)
	if err != nil {
		if errors.Is(err, usecase.ErrNotAuthorized) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

// SlideshowMedia godoc
// @Summary      List all visible media for the slideshow
// @Description  Flattens every visible post's media into one ordered list with author names.
// @Tags         slideshow
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /slideshow/media [get]
func (h *PostHandler) SlideshowMedia(c *gin.Context) {
	items, err := h.postUseCase.ListSlideshowMedia()
	if err != nil {
		h.logger.Error("Failed to list slideshow media: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list slideshow media"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"media": items})
}

func pagination(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit < 0 {
		limit = defaultPageSize
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func hasMediaFiles(c *gin.Context) bool {
	form, err := c.MultipartForm()
	return err == nil && len(form.File["media"]) > 0
}

func readUploads(c *gin.Context) ([]usecase.MediaUpload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		// No multipart body at all is fine for text-only posts.
		return nil, nil
	}

	var uploads []usecase.MediaUpload
	for _, header := range form.File["media"] {
		src, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, usecase.MediaUpload{FileName: header.Filename, Data: data})
	}
	return uploads, nil
}

func isMediaPolicyError(err error) bool {
	var tooLarge *media.TooLargeError
	var decodeErr *media.DecodeError
	return errors.Is(err, usecase.ErrTooManyImages) ||
		errors.Is(err, usecase.ErrTooManyVideos) ||
		errors.Is(err, media.ErrUnsupportedType) ||
		errors.As(err, &tooLarge) ||
		errors.As(err, &decodeErr)
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type discussionService interface {
	List(ctx context.Context, viewer *models.Session, category string) []models.Post
	Categories(ctx context.Context) []string
	Create(ctx context.Context, actor *models.Session, req models.CreatePostRequest) (*models.Post, error)
	Comment(ctx context.Context, actor *models.Session, id string, req models.CommentRequest) (*models.Post, error)
}

// DiscussionHandler exposes the categorised discussion board.
type DiscussionHandler struct {
	service discussionService
}

// NewDiscussionHandler constructs the handler.
func NewDiscussionHandler(svc discussionService) *DiscussionHandler {
	return &DiscussionHandler{service: svc}
}

// List godoc
// @Summary List discussions
// @Description Without a category every discussion is returned
// @Tags Discussions
// @Produce json
// @Security BearerAuth
// @Param category query string false "Category"
// @Success 200 {object} response.Envelope
// @Router /discussions [get]
func (h *DiscussionHandler) List(c *gin.Context) {
	posts := h.service.List(c.Request.Context(), sessionFromContext(c), c.Query("category"))
	response.List(c, posts, len(posts))
}

// Categories godoc
// @Summary List discussion categories
// @Tags Discussions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /discussions/categories [get]
func (h *DiscussionHandler) Categories(c *gin.Context) {
	categories := h.service.Categories(c.Request.Context())
	response.List(c, categories, len(categories))
}

// Create godoc
// @Summary Start discussion
// @Description Students only. Posts may be anonymous.
// @Tags Discussions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreatePostRequest true "Discussion payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /discussions [post]
func (h *DiscussionHandler) Create(c *gin.Context) {
	var req models.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid discussion payload"))
		return
	}
	post, err := h.service.Create(c.Request.Context(), sessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, post)
}

// Comment godoc
// @Summary Comment on discussion
// @Tags Discussions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Discussion ID"
// @Param payload body models.CommentRequest true "Comment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /discussions/{id}/comments [post]
func (h *DiscussionHandler) Comment(c *gin.Context) {
	var req models.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid comment payload"))
		return
	}
	post, err := h.service.Comment(c.Request.Context(), sessionFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, post)
}

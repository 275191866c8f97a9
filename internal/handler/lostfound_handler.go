package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type lostFoundService interface {
	List(ctx context.Context, viewer *models.Session) []models.Post
	Create(ctx context.Context, actor *models.Session, req models.CreatePostRequest) (*models.Post, error)
	Comment(ctx context.Context, actor *models.Session, id string, req models.CommentRequest) (*models.Post, error)
	ToggleHighAlert(ctx context.Context, actor *models.Session, id string) (*models.Post, error)
	Alerts(ctx context.Context) []models.Alert
	DismissAlerts(ctx context.Context, actor *models.Session) error
}

// LostFoundHandler exposes the lost and found board and the campus alerts it raises.
type LostFoundHandler struct {
	service lostFoundService
}

// NewLostFoundHandler constructs the handler.
func NewLostFoundHandler(svc lostFoundService) *LostFoundHandler {
	return &LostFoundHandler{service: svc}
}

// List godoc
// @Summary List lost and found posts
// @Tags LostFound
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /lostfound [get]
func (h *LostFoundHandler) List(c *gin.Context) {
	posts := h.service.List(c.Request.Context(), sessionFromContext(c))
	response.List(c, posts, len(posts))
}

// Create godoc
// @Summary Report lost or found item
// @Tags LostFound
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreatePostRequest true "Item payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /lostfound [post]
func (h *LostFoundHandler) Create(c *gin.Context) {
	var req models.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lost and found payload"))
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
// @Summary Comment on lost and found post
// @Tags LostFound
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param payload body models.CommentRequest true "Comment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lostfound/{id}/comments [post]
func (h *LostFoundHandler) Comment(c *gin.Context) {
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

// ToggleHighAlert godoc
// @Summary Toggle high alert
// @Description Teachers and presidents only. Raising an alert broadcasts it campus wide.
// @Tags LostFound
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lostfound/{id}/high-alert [post]
func (h *LostFoundHandler) ToggleHighAlert(c *gin.Context) {
	post, err := h.service.ToggleHighAlert(c.Request.Context(), sessionFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, post)
}

// Alerts godoc
// @Summary List campus alerts
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /alerts [get]
func (h *LostFoundHandler) Alerts(c *gin.Context) {
	alerts := h.service.Alerts(c.Request.Context())
	response.List(c, alerts, len(alerts))
}

// DismissAlerts godoc
// @Summary Dismiss all campus alerts
// @Tags Alerts
// @Security BearerAuth
// @Success 204 {object} response.Envelope
// @Router /alerts [delete]
func (h *LostFoundHandler) DismissAlerts(c *gin.Context) {
	if err := h.service.DismissAlerts(c.Request.Context(), sessionFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

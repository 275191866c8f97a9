package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type feedService interface {
	Feed(ctx context.Context, viewer *models.Session, query models.FeedQuery) ([]models.Post, error)
}

// FeedHandler serves the unified feed.
type FeedHandler struct {
	service feedService
}

// NewFeedHandler constructs the handler.
func NewFeedHandler(svc feedService) *FeedHandler {
	return &FeedHandler{service: svc}
}

// Feed godoc
// @Summary Unified feed
// @Description Announcements, discussions and lost and found posts, newest first
// @Tags Feed
// @Produce json
// @Security BearerAuth
// @Param filter query string false "all, announcements, discussion or lostfound"
// @Param q query string false "Case-insensitive search over title, body and author"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /feed [get]
func (h *FeedHandler) Feed(c *gin.Context) {
	var query models.FeedQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid feed query"))
		return
	}
	posts, err := h.service.Feed(c.Request.Context(), sessionFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, posts, len(posts))
}

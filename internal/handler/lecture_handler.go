package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type lectureService interface {
	List(ctx context.Context) []models.Lecture
	Create(ctx context.Context, actor *models.Session, req models.CreateLectureRequest) (*models.Lecture, error)
	Delete(ctx context.Context, actor *models.Session, id string) error
}

// LectureHandler exposes the lecture schedule.
type LectureHandler struct {
	service lectureService
}

// NewLectureHandler constructs the handler.
func NewLectureHandler(svc lectureService) *LectureHandler {
	return &LectureHandler{service: svc}
}

// List godoc
// @Summary List lectures
// @Tags Lectures
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /lectures [get]
func (h *LectureHandler) List(c *gin.Context) {
	lectures := h.service.List(c.Request.Context())
	response.List(c, lectures, len(lectures))
}

// Create godoc
// @Summary Schedule lecture
// @Description Teachers only
// @Tags Lectures
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateLectureRequest true "Lecture payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /lectures [post]
func (h *LectureHandler) Create(c *gin.Context) {
	var req models.CreateLectureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lecture payload"))
		return
	}
	lecture, err := h.service.Create(c.Request.Context(), sessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lecture)
}

// Delete godoc
// @Summary Delete lecture
// @Tags Lectures
// @Security BearerAuth
// @Param id path string true "Lecture ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lectures/{id} [delete]
func (h *LectureHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), sessionFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type tutorService interface {
	Teachers() []string
	List(ctx context.Context, viewer *models.Session, teacher string) ([]models.TutorSession, error)
	Get(ctx context.Context, viewer *models.Session, id string) (*models.TutorSession, error)
	Create(ctx context.Context, actor *models.Session, req models.CreateTutorSessionRequest) (*models.TutorSession, error)
	SendMessage(ctx context.Context, actor *models.Session, id string, req models.SendMessageRequest) (*models.TutorSession, error)
}

// TutorHandler exposes the student to teacher chat.
type TutorHandler struct {
	service tutorService
}

// NewTutorHandler constructs the handler.
func NewTutorHandler(svc tutorService) *TutorHandler {
	return &TutorHandler{service: svc}
}

// Teachers godoc
// @Summary List tutor roster
// @Tags Tutor
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /tutor/teachers [get]
func (h *TutorHandler) Teachers(c *gin.Context) {
	teachers := h.service.Teachers()
	response.List(c, teachers, len(teachers))
}

// List godoc
// @Summary List tutor sessions
// @Description Students see their own sessions. Staff see every session, optionally for one teacher.
// @Tags Tutor
// @Produce json
// @Security BearerAuth
// @Param teacher query string false "Teacher name or All"
// @Success 200 {object} response.Envelope
// @Router /tutor/sessions [get]
func (h *TutorHandler) List(c *gin.Context) {
	sessions, err := h.service.List(c.Request.Context(), sessionFromContext(c), c.Query("teacher"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, sessions, len(sessions))
}

// Get godoc
// @Summary Get tutor session
// @Tags Tutor
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tutor/sessions/{id} [get]
func (h *TutorHandler) Get(c *gin.Context) {
	session, err := h.service.Get(c.Request.Context(), sessionFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

// Create godoc
// @Summary Open tutor session
// @Description Students only, with a rostered teacher
// @Tags Tutor
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateTutorSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /tutor/sessions [post]
func (h *TutorHandler) Create(c *gin.Context) {
	var req models.CreateTutorSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid tutor session payload"))
		return
	}
	session, err := h.service.Create(c.Request.Context(), sessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// SendMessage godoc
// @Summary Send chat message
// @Description Text, inline base64 attachments or both
// @Tags Tutor
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param payload body models.SendMessageRequest true "Message payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /tutor/sessions/{id}/messages [post]
func (h *TutorHandler) SendMessage(c *gin.Context) {
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid message payload"))
		return
	}
	session, err := h.service.SendMessage(c.Request.Context(), sessionFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

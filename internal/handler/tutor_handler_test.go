package handler

import (
	"encoding/base64"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

func TestTutorSessionLifecycle(t *testing.T) {
	stack := newTestStack(t, nil)
	student := stack.signIn(t, "student@college.edu", models.RoleStudent)

	var teachers []string
	decodeData(t, stack.do(t, http.MethodGet, "/tutor/teachers", student, nil), &teachers)
	require.Equal(t, models.TeacherRoster, teachers)

	w := stack.do(t, http.MethodPost, "/tutor/sessions", student, models.CreateTutorSessionRequest{TeacherName: "Mr. Nobody", Subject: "Maths"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = stack.do(t, http.MethodPost, "/tutor/sessions", student, models.CreateTutorSessionRequest{TeacherName: "Mr. Rupesh", Subject: "Maths"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var session models.TutorSession
	decodeData(t, w, &session)
	assert.Equal(t, "student@college.edu", session.StudentEmail)

	w = stack.do(t, http.MethodPost, "/tutor/sessions/"+session.ID+"/messages", student, models.SendMessageRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	image := base64.StdEncoding.EncodeToString([]byte("tiny png"))
	w = stack.do(t, http.MethodPost, "/tutor/sessions/"+session.ID+"/messages", student, models.SendMessageRequest{
		Attachments: []models.AttachmentInput{{Type: models.AttachmentImage, Name: "board.png", Data: image}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decodeData(t, w, &session)
	require.Len(t, session.Messages, 1)
	assert.Len(t, session.Messages[0].Attachments, 1)

	var fetched models.TutorSession
	decodeData(t, stack.do(t, http.MethodGet, "/tutor/sessions/"+session.ID, student, nil), &fetched)
	assert.Equal(t, session.ID, fetched.ID)

	teacher := stack.signIn(t, "teacher@college.edu", models.RoleTeacher)
	w = stack.do(t, http.MethodPost, "/tutor/sessions", teacher, models.CreateTutorSessionRequest{TeacherName: "Mr. Rupesh", Subject: "Maths"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	var sessions []models.TutorSession
	decodeData(t, stack.do(t, http.MethodGet, "/tutor/sessions?teacher=Mr.%20Anuj", teacher, nil), &sessions)
	assert.Empty(t, sessions)
	decodeData(t, stack.do(t, http.MethodGet, "/tutor/sessions?teacher=All", teacher, nil), &sessions)
	assert.Len(t, sessions, 1)

	w = stack.do(t, http.MethodPost, "/tutor/sessions/"+session.ID+"/messages", teacher, models.SendMessageRequest{Text: "Let's start"})
	require.Equal(t, http.StatusCreated, w.Code)
	decodeData(t, w, &session)
	assert.Len(t, session.Messages, 2)
	assert.NotContains(t, w.Body.String(), "student@college.edu")
}

func TestTutorSessionHiddenFromOtherStudents(t *testing.T) {
	stack := newTestStack(t, nil)
	owner := stack.signIn(t, "owner@college.edu", models.RoleStudent)
	w := stack.do(t, http.MethodPost, "/tutor/sessions", owner, models.CreateTutorSessionRequest{TeacherName: "Mr. Anuj", Subject: "Physics"})
	require.Equal(t, http.StatusCreated, w.Code)
	var session models.TutorSession
	decodeData(t, w, &session)

	other := stack.signIn(t, "other@college.edu", models.RoleStudent)
	assert.Equal(t, http.StatusNotFound, stack.do(t, http.MethodGet, "/tutor/sessions/"+session.ID, other, nil).Code)
	w = stack.do(t, http.MethodPost, "/tutor/sessions/"+session.ID+"/messages", other, models.SendMessageRequest{Text: "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	var sessions []models.TutorSession
	decodeData(t, stack.do(t, http.MethodGet, "/tutor/sessions", other, nil), &sessions)
	assert.Empty(t, sessions)
}

func TestTutorAttachmentTooLarge(t *testing.T) {
	stack := newTestStack(t, nil)
	student := stack.signIn(t, "student@college.edu", models.RoleStudent)
	w := stack.do(t, http.MethodPost, "/tutor/sessions", student, models.CreateTutorSessionRequest{TeacherName: "Mr. Pankaj", Subject: "Chemistry"})
	var session models.TutorSession
	decodeData(t, w, &session)

	large := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("x", 256)))
	w = stack.do(t, http.MethodPost, "/tutor/sessions/"+session.ID+"/messages", student, models.SendMessageRequest{
		Attachments: []models.AttachmentInput{{Type: models.AttachmentVideo, Name: "lab.mp4", Data: large}},
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", errorCode(t, w))
}

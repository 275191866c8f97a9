package service

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

func newTestTutorService(t *testing.T, maxBytes int64) *TutorService {
	svc := NewTutorService(newTestRepo(t), nil, nil, maxBytes)
	svc.now = tickingClock(baseTime)
	return svc
}

func TestTutorTeachersIsRosterCopy(t *testing.T) {
	svc := newTestTutorService(t, 0)
	teachers := svc.Teachers()
	assert.Equal(t, models.TeacherRoster, teachers)
	teachers[0] = "changed"
	assert.Equal(t, "Mr. Subhesh kumar", models.TeacherRoster[0])
}

func TestTutorCreateOnlyStudentsAndRoster(t *testing.T) {
	svc := newTestTutorService(t, 0)
	ctx := context.Background()

	_, err := svc.Create(ctx, teacherActor, models.CreateTutorSessionRequest{TeacherName: "Mr. Anuj", Subject: "Physics"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Create(ctx, studentActor, models.CreateTutorSessionRequest{TeacherName: "Dr. Nobody", Subject: "Physics"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(ctx, studentActor, models.CreateTutorSessionRequest{TeacherName: "Mr. Anuj", Subject: "   "})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	sess, err := svc.Create(ctx, studentActor, models.CreateTutorSessionRequest{TeacherName: "Mr. Anuj", Subject: "Physics"})
	require.NoError(t, err)
	assert.Equal(t, studentActor.Email, sess.StudentEmail)
	assert.NotNil(t, sess.Messages)
	assert.True(t, strings.HasPrefix(sess.ID, "sess_"))
}

func TestTutorListVisibility(t *testing.T) {
	svc := newTestTutorService(t, 0)
	ctx := context.Background()
	mine, err := svc.Create(ctx, studentActor, models.CreateTutorSessionRequest{TeacherName: "Mr. Anuj", Subject: "Physics"})
	require.NoError(t, err)
	theirs, err := svc.Create(ctx, otherStudent, models.CreateTutorSessionRequest{TeacherName: "Mr. Rupesh", Subject: "Maths"})
	require.NoError(t, err)

	own, err := svc.List(ctx, studentActor, "Mr. Rupesh")
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, mine.ID, own[0].ID)

	all, err := svc.List(ctx, teacherActor, models.TeacherFilterAll)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	rupesh, err := svc.List(ctx, presidentActor, "Mr. Rupesh")
	require.NoError(t, err)
	require.Len(t, rupesh, 1)
	assert.Equal(t, theirs.ID, rupesh[0].ID)

	_, err = svc.Get(ctx, studentActor, theirs.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	got, err := svc.Get(ctx, teacherActor, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, "Maths", got.Subject)
}

func TestTutorSendMessageBumpsLastUpdated(t *testing.T) {
	svc := newTestTutorService(t, 0)
	ctx := context.Background()
	older, err := svc.Create(ctx, studentActor, models.CreateTutorSessionRequest{TeacherName: "Mr. Anuj", Subject: "Physics"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, studentActor, models.CreateTutorSessionRequest{TeacherName: "Mr. Pankaj", Subject: "Chemistry"})
	require.NoError(t, err)

	list, err := svc.List(ctx, studentActor, "")
	require.NoError(t, err)
	assert.Equal(t, "Chemistry", list[0].Subject)

	updated, err := svc.SendMessage(ctx, teacherActor, older.ID, models.SendMessageRequest{Text: "See you at 4"})
	require.NoError(t, err)
	require.Len(t, updated.Messages, 1)
	assert.Equal(t, teacherActor.Email, updated.Messages[0].SenderEmail)
	assert.True(t, updated.LastUpdated.After(older.LastUpdated))

	list, err = svc.List(ctx, studentActor, "")
	require.NoError(t, err)
	assert.Equal(t, older.ID, list[0].ID)
}

func TestTutorSendMessageRules(t *testing.T) {
	svc := newTestTutorService(t, 8)
	ctx := context.Background()
	sess, err := svc.Create(ctx, studentActor, models.CreateTutorSessionRequest{TeacherName: "Mr. Anuj", Subject: "Physics"})
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, studentActor, sess.ID, models.SendMessageRequest{Text: "   "})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.SendMessage(ctx, otherStudent, sess.ID, models.SendMessageRequest{Text: "hi"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	small := base64.StdEncoding.EncodeToString([]byte("tiny"))
	withImage, err := svc.SendMessage(ctx, studentActor, sess.ID, models.SendMessageRequest{
		Attachments: []models.AttachmentInput{{Type: models.AttachmentImage, Name: "graph.png", Data: small}},
	})
	require.NoError(t, err)
	require.Len(t, withImage.Messages[0].Attachments, 1)
	assert.Equal(t, small, withImage.Messages[0].Attachments[0].Data)

	big := base64.StdEncoding.EncodeToString([]byte("this payload is too large"))
	_, err = svc.SendMessage(ctx, studentActor, sess.ID, models.SendMessageRequest{
		Attachments: []models.AttachmentInput{{Type: models.AttachmentVideo, Name: "clip.mp4", Data: big}},
	})
	assert.ErrorIs(t, err, appErrors.ErrPayloadTooLarge)

	_, err = svc.SendMessage(ctx, studentActor, sess.ID, models.SendMessageRequest{
		Attachments: []models.AttachmentInput{{Type: "audio", Name: "a.mp3", Data: small}},
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestTutorSessionHidesStudentFromStaff(t *testing.T) {
	svc := newTestTutorService(t, 0)
	ctx := context.Background()
	sess, err := svc.Create(ctx, studentActor, models.CreateTutorSessionRequest{TeacherName: "Mr. Anuj", Subject: "Physics"})
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, studentActor, sess.ID, models.SendMessageRequest{Text: "stuck on optics"})
	require.NoError(t, err)

	replied, err := svc.SendMessage(ctx, teacherActor, sess.ID, models.SendMessageRequest{Text: "Let's go through it"})
	require.NoError(t, err)
	got, err := svc.Get(ctx, presidentActor, sess.ID)
	require.NoError(t, err)
	listed, err := svc.List(ctx, teacherActor, models.TeacherFilterAll)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	for _, view := range []models.TutorSession{*replied, *got, listed[0]} {
		assert.Equal(t, AnonymousStudent, view.StudentEmail)
		require.Len(t, view.Messages, 2)
		assert.Equal(t, AnonymousStudent, view.Messages[0].SenderEmail)
		assert.Equal(t, teacherActor.Email, view.Messages[1].SenderEmail)
	}

	own, err := svc.Get(ctx, studentActor, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, studentActor.Email, own.StudentEmail)
	assert.Equal(t, studentActor.Email, own.Messages[0].SenderEmail)
}

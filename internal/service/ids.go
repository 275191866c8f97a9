package service

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

// ID prefixes per entity kind.
const (
	prefixAnnouncement = "ann"
	prefixDiscussion   = "disc"
	prefixLostFound    = "lost"
	prefixComment      = "cmt"
	prefixAlert        = "alert"
	prefixTutorSession = "sess"
	prefixMessage      = "msg"
	prefixAttachment   = "att"
	prefixLecture      = "lec"
	prefixSubject      = "sub"
	prefixEntry        = "att_entry"
)

// newID returns "<prefix>_<uuid v7>". V7 ids sort by creation time.
func newID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return prefix + "_" + id.String()
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// persistError converts a repository failure into an internal error unless it is already typed.
func persistError(logger *zap.Logger, err error, message string) error {
	if err == nil {
		return nil
	}
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return typed
	}
	logger.Error(message, zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}

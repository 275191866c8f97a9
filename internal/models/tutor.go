package models

import "time"

// AttachmentType is the media kind of a chat attachment.
type AttachmentType string

const (
	AttachmentImage AttachmentType = "image"
	AttachmentVideo AttachmentType = "video"
)

// Attachment carries its payload inline as base64.
type Attachment struct {
	ID   string         `json:"id"`
	Type AttachmentType `json:"type"`
	Name string         `json:"name"`
	Data string         `json:"data"`
}

// ChatMessage is appended to a tutor session and never edited.
type ChatMessage struct {
	ID          string       `json:"id"`
	SenderEmail string       `json:"senderEmail"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// TutorSession is a chat thread opened by a student with a rostered teacher.
type TutorSession struct {
	ID           string        `json:"id"`
	StudentEmail string        `json:"studentEmail"`
	TeacherName  string        `json:"teacherName"`
	Subject      string        `json:"subject"`
	Messages     []ChatMessage `json:"messages"`
	LastUpdated  time.Time     `json:"lastUpdated"`
}

// TeacherRoster is the fixed list of teachers students may open sessions with.
var TeacherRoster = []string{
	"Mr. Subhesh kumar",
	"Mr. Rupesh",
	"Mr. Anuj",
	"Mr. Pankaj",
	"Mr. Prassana",
}

// IsRosteredTeacher reports whether name is on the roster.
func IsRosteredTeacher(name string) bool {
	for _, t := range TeacherRoster {
		if t == name {
			return true
		}
	}
	return false
}

// TeacherFilterAll lists sessions for every rostered teacher.
const TeacherFilterAll = "All"

// CreateTutorSessionRequest opens a new session.
type CreateTutorSessionRequest struct {
	TeacherName string `json:"teacherName" validate:"required"`
	Subject     string `json:"subject" validate:"required,max=120"`
}

// AttachmentInput is an attachment as uploaded by the client.
type AttachmentInput struct {
	Type AttachmentType `json:"type" validate:"required,oneof=image video"`
	Name string         `json:"name" validate:"required,max=255"`
	Data string         `json:"data" validate:"required,base64"`
}

// SendMessageRequest appends a message. Text may be empty when an attachment is present.
type SendMessageRequest struct {
	Text        string            `json:"text"`
	Attachments []AttachmentInput `json:"attachments" validate:"omitempty,max=5,dive"`
}

package models

// Lecture is a scheduled class session. Time is a display label such as "09:00 AM".
type Lecture struct {
	ID          string `json:"id"`
	Subject     string `json:"subject"`
	Topic       string `json:"topic"`
	Time        string `json:"time"`
	TeacherName string `json:"teacherName"`
	Room        string `json:"room"`
}

// CreateLectureRequest schedules a lecture.
type CreateLectureRequest struct {
	Subject     string `json:"subject" validate:"required,max=120"`
	Topic       string `json:"topic" validate:"max=200"`
	Time        string `json:"time" validate:"required,max=64"`
	Room        string `json:"room" validate:"max=64"`
	TeacherName string `json:"teacherName" validate:"max=120"`
}

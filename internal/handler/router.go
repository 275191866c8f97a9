package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
)

type sessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Session, error)
}

// Handlers groups the handlers mounted by RegisterRoutes.
type Handlers struct {
	Auth          *AuthHandler
	Announcements *AnnouncementHandler
	Discussions   *DiscussionHandler
	LostFound     *LostFoundHandler
	Feed          *FeedHandler
	Tutor         *TutorHandler
	Lectures      *LectureHandler
	Attendance    *AttendanceHandler
}

// RegisterRoutes mounts the portal API on api. authLimiter guards the
// unauthenticated auth endpoints and may be nil.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, auth sessionAuthenticator, authLimiter gin.HandlerFunc) {
	staff := middleware.RequireRoles(models.RoleTeacher, models.RolePresident)
	teachers := middleware.RequireRoles(models.RoleTeacher)
	students := middleware.RequireRoles(models.RoleStudent)

	public := api.Group("/auth")
	if authLimiter != nil {
		public.Use(authLimiter)
	}
	public.POST("/signup", h.Auth.Signup)
	public.POST("/login", h.Auth.Login)
	public.POST("/change-password", h.Auth.ChangePassword)

	secured := api.Group("")
	secured.Use(middleware.JWT(auth))

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.GET("/auth/me", h.Auth.Me)

	announcements := secured.Group("/announcements")
	announcements.GET("", h.Announcements.List)
	announcements.POST("", staff, h.Announcements.Create)
	announcements.DELETE("/:id", staff, h.Announcements.Delete)
	announcements.POST("/:id/like", students, h.Announcements.Like)
	announcements.POST("/:id/comments", h.Announcements.Comment)

	discussions := secured.Group("/discussions")
	discussions.GET("", h.Discussions.List)
	discussions.GET("/categories", h.Discussions.Categories)
	discussions.POST("", students, h.Discussions.Create)
	discussions.POST("/:id/comments", h.Discussions.Comment)

	lostFound := secured.Group("/lostfound")
	lostFound.GET("", h.LostFound.List)
	lostFound.POST("", h.LostFound.Create)
	lostFound.POST("/:id/comments", h.LostFound.Comment)
	lostFound.POST("/:id/high-alert", staff, h.LostFound.ToggleHighAlert)

	secured.GET("/alerts", h.LostFound.Alerts)
	secured.DELETE("/alerts", h.LostFound.DismissAlerts)

	secured.GET("/feed", h.Feed.Feed)

	tutor := secured.Group("/tutor")
	tutor.GET("/teachers", h.Tutor.Teachers)
	tutor.GET("/sessions", h.Tutor.List)
	tutor.POST("/sessions", students, h.Tutor.Create)
	tutor.GET("/sessions/:id", h.Tutor.Get)
	tutor.POST("/sessions/:id/messages", h.Tutor.SendMessage)

	lectures := secured.Group("/lectures")
	lectures.GET("", h.Lectures.List)
	lectures.POST("", teachers, h.Lectures.Create)
	lectures.DELETE("/:id", teachers, h.Lectures.Delete)

	attendance := secured.Group("/attendance", students)
	attendance.GET("/subjects", h.Attendance.Subjects)
	attendance.POST("/subjects", h.Attendance.AddSubject)
	attendance.DELETE("/subjects/:id", h.Attendance.DeleteSubject)
	attendance.POST("/subjects/:id/entries", h.Attendance.Mark)
	attendance.GET("/stats", h.Attendance.Stats)
	attendance.GET("/export", h.Attendance.Export)
}

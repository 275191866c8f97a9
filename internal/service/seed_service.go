package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/repository"
)

type seedRepository interface {
	UpdateUsers(ctx context.Context, fn func(models.Users) (models.Users, error)) (models.Users, error)
	UpdateAnnouncements(ctx context.Context, fn func([]models.Post) ([]models.Post, error)) ([]models.Post, error)
	UpdateLostFound(ctx context.Context, fn func([]models.Post) ([]models.Post, error)) ([]models.Post, error)
	UpdateLectures(ctx context.Context, fn func([]models.Lecture) ([]models.Lecture, error)) ([]models.Lecture, error)
}

type passwordHasher interface {
	HashPassword(password string) (string, error)
	TemporaryPassword(role models.UserRole) string
}

// demoUsers are created in the must-change state with their role's temporary password.
var demoUsers = []struct {
	Email string
	Role  models.UserRole
}{
	{Email: "rahul.demo1@college.edu", Role: models.RoleStudent},
	{Email: "student.demo2@college.edu", Role: models.RoleStudent},
	{Email: "teacher.demo1@college.edu", Role: models.RoleTeacher},
}

// SeedService populates the demo dataset on first run.
type SeedService struct {
	repo   seedRepository
	hasher passwordHasher
	logger *zap.Logger
	now    func() time.Time
}

// NewSeedService constructs the service.
func NewSeedService(repo seedRepository, hasher passwordHasher, logger *zap.Logger) *SeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{repo: repo, hasher: hasher, logger: logger, now: utcNow}
}

// Seed writes each demo collection only when it is empty, so repeated runs are no-ops.
func (s *SeedService) Seed(ctx context.Context) error {
	at := s.now()
	steps := []struct {
		name string
		run  func(context.Context, time.Time) (bool, error)
	}{
		{"users", s.seedUsers},
		{"announcements", s.seedAnnouncements},
		{"lostfound", s.seedLostFound},
		{"lectures", s.seedLectures},
	}
	for _, step := range steps {
		seeded, err := step.run(ctx, at)
		if err != nil {
			return persistError(s.logger, err, "failed to seed "+step.name)
		}
		if seeded {
			s.logger.Info("seeded demo data", zap.String("collection", step.name))
		}
	}
	return nil
}

func (s *SeedService) seedUsers(ctx context.Context, _ time.Time) (bool, error) {
	seeded := false
	_, err := s.repo.UpdateUsers(ctx, func(users models.Users) (models.Users, error) {
		if len(users) > 0 {
			return users, repository.ErrNoChange
		}
		for _, demo := range demoUsers {
			hash, err := s.hasher.HashPassword(s.hasher.TemporaryPassword(demo.Role))
			if err != nil {
				return users, err
			}
			users[demo.Email] = models.User{Email: demo.Email, Role: demo.Role, PasswordHash: hash, MustChange: true}
		}
		seeded = true
		return users, nil
	})
	return seeded, err
}

func (s *SeedService) seedAnnouncements(ctx context.Context, at time.Time) (bool, error) {
	return seedPosts(ctx, s.repo.UpdateAnnouncements, models.Post{
		ID:       "ann_1",
		Type:     models.PostTypeAnnouncement,
		Title:    "Welcome juniors!",
		Desc:     "Orientation on Monday at 9AM in auditorium.",
		Author:   "admin@college.edu",
		Time:     at,
		Likes:    5,
		Comments: []models.Comment{},
	})
}

func (s *SeedService) seedLostFound(ctx context.Context, at time.Time) (bool, error) {
	return seedPosts(ctx, s.repo.UpdateLostFound, models.Post{
		ID:       "lost_1",
		Type:     models.PostTypeLostFound,
		Title:    "White Type-C charger",
		Desc:     "Left on bench 3 in room 709",
		Author:   "student.demo2@college.edu",
		Time:     at,
		Comments: []models.Comment{},
	})
}

func (s *SeedService) seedLectures(ctx context.Context, _ time.Time) (bool, error) {
	seeded := false
	_, err := s.repo.UpdateLectures(ctx, func(lectures []models.Lecture) ([]models.Lecture, error) {
		if len(lectures) > 0 {
			return lectures, repository.ErrNoChange
		}
		seeded = true
		return []models.Lecture{
			{ID: "lec_1", Subject: "Linear Algebra", Topic: "Eigenvectors", Time: "09:00 AM", TeacherName: "Mr. Rupesh", Room: "Hall A"},
			{ID: "lec_2", Subject: "Data Structures", Topic: "Binary Trees", Time: "11:30 AM", TeacherName: "Mr. Subhesh kumar", Room: "Lab 2"},
		}, nil
	})
	return seeded, err
}

type postsUpdater func(ctx context.Context, fn func([]models.Post) ([]models.Post, error)) ([]models.Post, error)

func seedPosts(ctx context.Context, update postsUpdater, seed ...models.Post) (bool, error) {
	seeded := false
	_, err := update(ctx, func(posts []models.Post) ([]models.Post, error) {
		if len(posts) > 0 {
			return posts, repository.ErrNoChange
		}
		seeded = true
		return seed, nil
	})
	return seeded, err
}

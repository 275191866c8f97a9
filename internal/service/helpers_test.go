package service

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/repository"
)

var (
	studentActor   = &models.Session{Email: "student.one@college.edu", Role: models.RoleStudent}
	otherStudent   = &models.Session{Email: "student.two@college.edu", Role: models.RoleStudent}
	teacherActor   = &models.Session{Email: "teacher@college.edu", Role: models.RoleTeacher}
	presidentActor = &models.Session{Email: "president@college.edu", Role: models.RolePresident}
)

func newTestRepo(t *testing.T) *repository.CollectionRepository {
	t.Helper()
	store := repository.NewStore(repository.NewMemoryBackend(), "test:", zap.NewNop(), nil)
	t.Cleanup(func() { _ = store.Close() })
	return repository.NewCollectionRepository(store)
}

// tickingClock returns a clock that advances one minute per call.
func tickingClock(start time.Time) func() time.Time {
	current := start.Add(-time.Minute)
	return func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
}

var baseTime = time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

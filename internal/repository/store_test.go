package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

type recordingObserver struct {
	mu      sync.Mutex
	results []string
	saves   int
}

func (o *recordingObserver) ObserveStoreLoad(collection, result string, duration time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, result)
}

func (o *recordingObserver) ObserveStoreSave(collection string, err error, duration time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.saves++
}

func newTestRepo(t *testing.T) (*CollectionRepository, *MemoryBackend) {
	t.Helper()
	backend := NewMemoryBackend()
	return NewCollectionRepository(NewStore(backend, "cc:", nil, nil)), backend
}

var fixedTime = time.Date(2024, 5, 6, 9, 30, 0, 0, time.UTC)

func TestLoadReturnsDefaultWhenAbsent(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	assert.Empty(t, repo.Users(ctx))
	assert.NotNil(t, repo.Users(ctx))
	assert.Nil(t, repo.Session(ctx))
	assert.Equal(t, []models.Post{}, repo.Announcements(ctx))
	assert.Equal(t, models.Discussions{}, repo.Discussions(ctx))
	assert.Equal(t, []models.SubjectAttendance{}, repo.StudentAttendance(ctx, "a@college.edu"))
}

func TestLoadCorruptFallsBackToDefault(t *testing.T) {
	backend := NewMemoryBackend()
	observer := &recordingObserver{}
	store := NewStore(backend, "cc:", nil, observer)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "cc:"+KeyLectures, []byte(`[{"id":`)))
	require.NoError(t, backend.Set(ctx, "cc:"+KeyUsers, []byte(`["not","a","map"]`)))

	assert.Equal(t, []models.Lecture{{ID: "fallback"}}, Load(ctx, store, KeyLectures, []models.Lecture{{ID: "fallback"}}))
	assert.Equal(t, models.Users{}, Load(ctx, store, KeyUsers, models.Users{}))
	assert.Contains(t, observer.results, LoadResultCorrupt)
}

func TestLoadTreatsNullAsAbsent(t *testing.T) {
	backend := NewMemoryBackend()
	store := NewStore(backend, "", nil, nil)
	ctx := context.Background()
	require.NoError(t, backend.Set(ctx, KeyAlerts, []byte("null")))

	assert.Equal(t, []models.Alert{}, Load(ctx, store, KeyAlerts, []models.Alert{}))
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	repo, _ := newTestRepo(t)
	store := repo.Store()
	ctx := context.Background()

	users := models.Users{
		"a@college.edu": {Email: "a@college.edu", Role: models.RoleStudent, PasswordHash: "h", MustChange: true},
	}
	session := &models.Session{Email: "a@college.edu", Role: models.RoleStudent, CreatedAt: fixedTime}
	posts := []models.Post{{
		ID: "announcement_1", Type: models.PostTypeAnnouncement, Title: "Hello", Desc: "World",
		Author: "t@college.edu", Time: fixedTime, Likes: 2,
		Comments: []models.Comment{{ID: "c_1", Author: "a@college.edu", Text: "hi", Time: fixedTime}},
		Tags:     []string{"news"},
	}}
	discussions := models.Discussions{"general": {{ID: "discussion_1", Type: models.PostTypeDiscussion, Desc: "q", Comments: []models.Comment{}, Category: "general", Time: fixedTime}}}
	lost := []models.Post{{ID: "lost_1", Type: models.PostTypeLostFound, Title: "Charger", HighAlert: true, Comments: []models.Comment{}, Time: fixedTime}}
	alerts := []models.Alert{{ID: "alert_1", Text: "High Alert: Charger", Time: fixedTime}}
	sessions := []models.TutorSession{{
		ID: "sess_1", StudentEmail: "a@college.edu", TeacherName: "Mr. Anuj", Subject: "Maths", LastUpdated: fixedTime,
		Messages: []models.ChatMessage{{
			ID: "msg_1", SenderEmail: "a@college.edu", Text: "help", Timestamp: fixedTime,
			Attachments: []models.Attachment{{ID: "att_1", Type: models.AttachmentImage, Name: "x.png", Data: "aGVsbG8="}},
		}},
	}}
	lectures := []models.Lecture{{ID: "lec_1", Subject: "LA", Topic: "Eigen", Time: "09:00 AM", TeacherName: "Mr. Rupesh", Room: "Hall A"}}
	attendance := models.SelfAttendance{"a@college.edu": {{ID: "sub_1", Name: "Physics", Entries: []models.AttendanceEntry{{ID: "entry_1", Timestamp: fixedTime, Status: models.AttendanceLate}}}}}

	require.NoError(t, store.Save(ctx, KeyUsers, users))
	require.NoError(t, repo.SaveSession(ctx, session))
	require.NoError(t, store.Save(ctx, KeyAnnouncements, posts))
	require.NoError(t, store.Save(ctx, KeyDiscussions, discussions))
	require.NoError(t, store.Save(ctx, KeyLostFound, lost))
	require.NoError(t, repo.SaveAlerts(ctx, alerts))
	require.NoError(t, store.Save(ctx, KeyTutorSessions, sessions))
	require.NoError(t, store.Save(ctx, KeyLectures, lectures))
	require.NoError(t, store.Save(ctx, KeySelfAttendance, attendance))

	assert.Equal(t, users, repo.Users(ctx))
	assert.Equal(t, session, repo.Session(ctx))
	assert.Equal(t, posts, repo.Announcements(ctx))
	assert.Equal(t, discussions, repo.Discussions(ctx))
	assert.Equal(t, lost, repo.LostFound(ctx))
	assert.Equal(t, alerts, repo.Alerts(ctx))
	assert.Equal(t, sessions, repo.TutorSessions(ctx))
	assert.Equal(t, lectures, repo.Lectures(ctx))
	assert.Equal(t, attendance["a@college.edu"], repo.StudentAttendance(ctx, "a@college.edu"))
}

func TestSaveSessionNilRemoves(t *testing.T) {
	repo, backend := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.SaveSession(ctx, &models.Session{Email: "a@college.edu", Role: models.RoleStudent, CreatedAt: fixedTime}))
	require.NoError(t, repo.SaveSession(ctx, nil))
	require.NoError(t, repo.SaveSession(ctx, nil))

	assert.Nil(t, repo.Session(ctx))
	_, err := backend.Get(ctx, "cc:"+KeySession)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestUpdateNoChangeSkipsWrite(t *testing.T) {
	backend := NewMemoryBackend()
	observer := &recordingObserver{}
	store := NewStore(backend, "", nil, observer)
	ctx := context.Background()

	got, err := Update(ctx, store, KeyLectures, []models.Lecture{}, func(l []models.Lecture) ([]models.Lecture, error) {
		return nil, ErrNoChange
	})
	require.NoError(t, err)
	assert.Equal(t, []models.Lecture{}, got)
	assert.Zero(t, observer.saves)
}

func TestUpdatePropagatesError(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := repo.UpdateLectures(ctx, func(l []models.Lecture) ([]models.Lecture, error) {
		return append(l, models.Lecture{ID: "x"}), boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, repo.Lectures(ctx))
}

func TestUpdateSerializesConcurrentWriters(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.UpdateLectures(ctx, func(l []models.Lecture) ([]models.Lecture, error) {
				return append(l, models.Lecture{ID: "lec"}), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, repo.Lectures(ctx), 50)
}

func TestUpdateStudentAttendanceIsolatesStudents(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.UpdateStudentAttendance(ctx, "a@college.edu", func(s []models.SubjectAttendance) ([]models.SubjectAttendance, error) {
		return append(s, models.SubjectAttendance{ID: "sub_a", Name: "Physics"}), nil
	})
	require.NoError(t, err)
	_, err = repo.UpdateStudentAttendance(ctx, "b@college.edu", func(s []models.SubjectAttendance) ([]models.SubjectAttendance, error) {
		return append(s, models.SubjectAttendance{ID: "sub_b", Name: "Chemistry"}), nil
	})
	require.NoError(t, err)

	a := repo.StudentAttendance(ctx, "a@college.edu")
	require.Len(t, a, 1)
	assert.Equal(t, "sub_a", a[0].ID)
	b := repo.StudentAttendance(ctx, "b@college.edu")
	require.Len(t, b, 1)
	assert.Equal(t, "sub_b", b[0].ID)
}

func TestLockOrdersDuplicateKeys(t *testing.T) {
	repo, _ := newTestRepo(t)
	unlock := repo.Store().Lock(KeyAlerts, KeyLostFound, KeyAlerts)
	unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		u := repo.Store().Lock(KeyLostFound, KeyAlerts)
		u()
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock was not released")
	}
}

func TestPingTreatsMissingProbeAsHealthy(t *testing.T) {
	repo, _ := newTestRepo(t)
	assert.NoError(t, repo.Store().Ping(context.Background()))
}

type flakyBackend struct {
	*MemoryBackend
	mu       sync.Mutex
	failGets int
}

func (b *flakyBackend) failNextGets(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failGets = n
}

func (b *flakyBackend) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	fail := b.failGets > 0
	if fail {
		b.failGets--
	}
	b.mu.Unlock()
	if fail {
		return nil, errors.New("database is locked")
	}
	return b.MemoryBackend.Get(ctx, key)
}

func TestUpdateAbortsWhenBackendReadFails(t *testing.T) {
	backend := &flakyBackend{MemoryBackend: NewMemoryBackend()}
	observer := &recordingObserver{}
	repo := NewCollectionRepository(NewStore(backend, "cc:", nil, observer))
	ctx := context.Background()

	existing := models.Users{
		"a@college.edu": {Email: "a@college.edu", Role: models.RoleStudent},
		"b@college.edu": {Email: "b@college.edu", Role: models.RoleTeacher},
	}
	require.NoError(t, repo.Store().Save(ctx, KeyUsers, existing))

	backend.failNextGets(1)
	called := false
	_, err := repo.UpdateUsers(ctx, func(users models.Users) (models.Users, error) {
		called = true
		users["c@college.edu"] = models.User{Email: "c@college.edu", Role: models.RoleStudent}
		return users, nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.False(t, called)
	assert.Contains(t, observer.results, LoadResultError)
	assert.Equal(t, existing, repo.Users(ctx))

	_, err = repo.UpdateUsers(ctx, func(users models.Users) (models.Users, error) {
		users["c@college.edu"] = models.User{Email: "c@college.edu", Role: models.RoleStudent}
		return users, nil
	})
	require.NoError(t, err)
	assert.Len(t, repo.Users(ctx), 3)
}

func TestUpdateLostFoundAndAlertsAbortsWhenBackendReadFails(t *testing.T) {
	backend := &flakyBackend{MemoryBackend: NewMemoryBackend()}
	repo := NewCollectionRepository(NewStore(backend, "cc:", nil, nil))
	ctx := context.Background()

	lost := []models.Post{{ID: "lost_1", Type: models.PostTypeLostFound, Title: "Charger", Comments: []models.Comment{}, Time: fixedTime}}
	require.NoError(t, repo.Store().Save(ctx, KeyLostFound, lost))

	backend.failNextGets(1)
	err := repo.UpdateLostFoundAndAlerts(ctx, func(p []models.Post, a []models.Alert) ([]models.Post, []models.Alert, error) {
		return []models.Post{}, a, nil
	})
	require.Error(t, err)
	assert.Equal(t, lost, repo.LostFound(ctx))
}

func TestLoadFallsBackWhenBackendReadFails(t *testing.T) {
	backend := &flakyBackend{MemoryBackend: NewMemoryBackend()}
	repo := NewCollectionRepository(NewStore(backend, "cc:", nil, nil))
	ctx := context.Background()
	require.NoError(t, repo.Store().Save(ctx, KeyLectures, []models.Lecture{{ID: "lec_1"}}))

	backend.failNextGets(1)
	assert.Equal(t, []models.Lecture{}, repo.Lectures(ctx))
	assert.Len(t, repo.Lectures(ctx), 1)
}

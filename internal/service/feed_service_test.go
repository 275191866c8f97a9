package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

func TestFeedFiltersAndSearch(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	clock := tickingClock(baseTime)

	announcements := NewAnnouncementService(repo, nil, nil)
	announcements.now = clock
	discussions := NewDiscussionService(repo, nil, nil)
	discussions.now = clock
	lostFound := NewLostFoundService(repo, nil, nil)
	lostFound.now = clock

	_, err := announcements.Create(ctx, teacherActor, models.CreatePostRequest{Title: "Exam papers", Desc: "Collect them"})
	require.NoError(t, err)
	_, err = discussions.Create(ctx, studentActor, models.CreatePostRequest{Title: "Study group", Desc: "Linear algebra"})
	require.NoError(t, err)
	_, err = discussions.Create(ctx, otherStudent, models.CreatePostRequest{Title: "Football", Desc: "Saturday", Category: "sports"})
	require.NoError(t, err)
	_, err = lostFound.Create(ctx, studentActor, models.CreatePostRequest{Title: "Calculator", Desc: "Left after the EXAM"})
	require.NoError(t, err)

	feed := NewFeedService(repo)

	all, err := feed.Feed(ctx, studentActor, models.FeedQuery{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "Calculator", all[0].Title)
	assert.Equal(t, "Exam papers", all[3].Title)

	disc, err := feed.Feed(ctx, studentActor, models.FeedQuery{Filter: "discussion"})
	require.NoError(t, err)
	assert.Len(t, disc, 2)

	lost, err := feed.Feed(ctx, studentActor, models.FeedQuery{Filter: "lostfound"})
	require.NoError(t, err)
	assert.Len(t, lost, 1)

	ann, err := feed.Feed(ctx, studentActor, models.FeedQuery{Filter: "announcements"})
	require.NoError(t, err)
	assert.Len(t, ann, 1)

	exam, err := feed.Feed(ctx, studentActor, models.FeedQuery{Search: "exam"})
	require.NoError(t, err)
	require.Len(t, exam, 2)
	assert.Equal(t, "Calculator", exam[0].Title)

	byAuthor, err := feed.Feed(ctx, studentActor, models.FeedQuery{Search: "STUDENT.TWO"})
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, "Football", byAuthor[0].Title)

	_, err = feed.Feed(ctx, studentActor, models.FeedQuery{Filter: "tutor"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestFeedSearchSkipsAnonymousAuthors(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	discussions := NewDiscussionService(repo, nil, nil)
	_, err := discussions.Create(ctx, studentActor, models.CreatePostRequest{Title: "Confession", Desc: "d", Anon: true})
	require.NoError(t, err)

	out, err := NewFeedService(repo).Feed(ctx, otherStudent, models.FeedQuery{Search: studentActor.Email})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFeedEmptyStore(t *testing.T) {
	out, err := NewFeedService(newTestRepo(t)).Feed(context.Background(), studentActor, models.FeedQuery{Filter: "all"})
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

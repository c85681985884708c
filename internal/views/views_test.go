package views

import (
	"context"
	"errors"
	"testing"

	"github.com/streamspot/backend/internal/models"
	"github.com/streamspot/backend/internal/repositories"
)

type stubUsers struct {
	repositories.UserRepository
	byUsername map[string]models.User
}

func (s stubUsers) FindByUsername(_ context.Context, username string) (models.User, error) {
	user, ok := s.byUsername[username]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

type stubVideos struct {
	repositories.VideoRepository
	stats repositories.VideoStats
}

func (s stubVideos) Stats(_ context.Context, _ string) (repositories.VideoStats, error) {
	return s.stats, nil
}

type stubSubscriptions struct {
	repositories.SubscriptionRepository
	channelCount    int64
	subscriberCount int64
	edges           map[string]bool
	existsErr       error
}

func (s stubSubscriptions) CountForChannel(_ context.Context, _ string) (int64, error) {
	return s.channelCount, nil
}

func (s stubSubscriptions) CountForSubscriber(_ context.Context, _ string) (int64, error) {
	return s.subscriberCount, nil
}

func (s stubSubscriptions) Exists(_ context.Context, subscriberID, channelID string) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	return s.edges[subscriberID+"|"+channelID], nil
}

type stubLikes struct {
	repositories.LikeRepository
	liked []repositories.VideoWithOwner
}

func (s stubLikes) ListLikedVideos(_ context.Context, _ string) ([]repositories.VideoWithOwner, error) {
	return s.liked, nil
}

type stubHistory struct {
	repositories.HistoryRepository
	entries []repositories.WatchEntry
}

func (s stubHistory) List(_ context.Context, _ string, page, limit int) ([]repositories.WatchEntry, repositories.PageInfo, error) {
	return s.entries, repositories.PageInfo{Page: page, Limit: limit}, nil
}

func newTestService(users stubUsers, videos stubVideos, subs stubSubscriptions, likes stubLikes, history stubHistory) *Service {
	return NewService(users, videos, subs, likes, history)
}

func TestChannelProfileAnnotatesCounts(t *testing.T) {
	channel := models.User{ID: "channel-1", Username: "creator", FullName: "The Creator"}
	svc := newTestService(
		stubUsers{byUsername: map[string]models.User{"creator": channel}},
		stubVideos{},
		stubSubscriptions{
			channelCount:    42,
			subscriberCount: 7,
			edges:           map[string]bool{"viewer-1|channel-1": true},
		},
		stubLikes{},
		stubHistory{},
	)

	profile, err := svc.ChannelProfile(context.Background(), "creator", "viewer-1")
	if err != nil {
		t.Fatalf("channel profile: %v", err)
	}
	if profile.Username != "creator" {
		t.Fatalf("unexpected username %q", profile.Username)
	}
	if profile.SubscriberCount != 42 || profile.SubscribedToCount != 7 {
		t.Fatalf("unexpected counts: %+v", profile)
	}
	if !profile.IsSubscribed {
		t.Fatal("expected the viewer to be marked as subscribed")
	}
}

func TestChannelProfileAnonymousViewer(t *testing.T) {
	channel := models.User{ID: "channel-1", Username: "creator"}
	svc := newTestService(
		stubUsers{byUsername: map[string]models.User{"creator": channel}},
		stubVideos{},
		stubSubscriptions{
			// An empty viewer id must short-circuit before the check runs.
			existsErr: errors.New("exists should not be called"),
		},
		stubLikes{},
		stubHistory{},
	)

	profile, err := svc.ChannelProfile(context.Background(), "creator", "")
	if err != nil {
		t.Fatalf("channel profile: %v", err)
	}
	if profile.IsSubscribed {
		t.Fatal("expected IsSubscribed to stay false for anonymous viewers")
	}
}

func TestChannelProfileUnknownChannel(t *testing.T) {
	svc := newTestService(stubUsers{byUsername: map[string]models.User{}}, stubVideos{}, stubSubscriptions{}, stubLikes{}, stubHistory{})

	_, err := svc.ChannelProfile(context.Background(), "ghost", "")
	if !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChannelStatsComposesTotals(t *testing.T) {
	svc := newTestService(
		stubUsers{},
		stubVideos{stats: repositories.VideoStats{TotalViews: 1000, TotalVideos: 12, TotalLikes: 88}},
		stubSubscriptions{channelCount: 42},
		stubLikes{},
		stubHistory{},
	)

	stats, err := svc.ChannelStats(context.Background(), "channel-1")
	if err != nil {
		t.Fatalf("channel stats: %v", err)
	}
	want := ChannelStats{TotalViews: 1000, TotalVideos: 12, TotalLikes: 88, TotalSubscribers: 42}
	if stats != want {
		t.Fatalf("got %+v, want %+v", stats, want)
	}
}

func TestChannelStatsZeroUploads(t *testing.T) {
	svc := newTestService(stubUsers{}, stubVideos{}, stubSubscriptions{}, stubLikes{}, stubHistory{})

	stats, err := svc.ChannelStats(context.Background(), "channel-1")
	if err != nil {
		t.Fatalf("channel stats: %v", err)
	}
	if stats != (ChannelStats{}) {
		t.Fatalf("expected all-zero stats, got %+v", stats)
	}
}

func TestWatchHistoryPassesPaging(t *testing.T) {
	svc := newTestService(stubUsers{}, stubVideos{}, stubSubscriptions{}, stubLikes{}, stubHistory{
		entries: []repositories.WatchEntry{{}, {}},
	})

	entries, page, err := svc.WatchHistory(context.Background(), "viewer-1", 3, 10)
	if err != nil {
		t.Fatalf("watch history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected two entries, got %d", len(entries))
	}
	if page.Page != 3 || page.Limit != 10 {
		t.Fatalf("expected paging to pass through, got %+v", page)
	}
}

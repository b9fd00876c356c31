package follow

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ryotakamura/notefed/internal/db"
	"github.com/ryotakamura/notefed/internal/remote"
)

// fakePeer plays the remote instance's public federation API.
type fakePeer struct {
	mu         sync.Mutex
	followFrom []remote.FollowFromRequest
	unfollowed []remote.UnfollowFromRequest
	failNotify bool
	failInfo   bool
	server     *httptest.Server
}

func newFakePeer(t *testing.T) *fakePeer {
	t.Helper()
	p := &fakePeer{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/public/site-info", func(w http.ResponseWriter, r *http.Request) {
		if p.failInfo {
			http.Error(w, `{"error":"down"}`, http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(remote.SiteInfo{ID: 1, Name: "Peer Site", Image: "/avatar.png"})
	})
	mux.HandleFunc("POST /api/v1/follows/follow-from", func(w http.ResponseWriter, r *http.Request) {
		if p.failNotify {
			http.Error(w, `{"error":"down"}`, http.StatusInternalServerError)
			return
		}
		var req remote.FollowFromRequest
		json.NewDecoder(r.Body).Decode(&req)
		p.mu.Lock()
		p.followFrom = append(p.followFrom, req)
		p.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /api/v1/follows/unfollow-from", func(w http.ResponseWriter, r *http.Request) {
		if p.failNotify {
			http.Error(w, `{"error":"down"}`, http.StatusInternalServerError)
			return
		}
		var req remote.UnfollowFromRequest
		json.NewDecoder(r.Body).Decode(&req)
		p.mu.Lock()
		p.unfollowed = append(p.unfollowed, req)
		p.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func newTestService(t *testing.T) (*Service, *db.DB, int64) {
	t.Helper()

	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	account, err := database.CreateAccount("owner", "password123")
	if err != nil {
		t.Fatalf("failed to create account: %v", err)
	}

	svc := NewService(database, remote.NewClient(), "My Site", "/me.png", zerolog.Nop())
	return svc, database, account.ID
}

func TestNormalizeSiteURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"https://example.com/some/path?x=1#frag", "https://example.com", false},
		{"http://example.com:8080/", "http://example.com:8080", false},
		{"https://example.com", "https://example.com", false},
		{"not a url", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := NormalizeSiteURL(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidSiteURL) {
				t.Errorf("NormalizeSiteURL(%q): expected ErrInvalidSiteURL, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeSiteURL(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeSiteURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFollowCreatesRowAndNotifies(t *testing.T) {
	svc, database, accountID := newTestService(t)
	peer := newFakePeer(t)

	created, err := svc.Follow(accountID, peer.server.URL+"/some/page", "https://my.example.com/home")
	if err != nil {
		t.Fatalf("follow failed: %v", err)
	}

	if created.SiteName != "Peer Site" || created.SiteAvatar != "/avatar.png" {
		t.Errorf("remote metadata not denormalized: %+v", created)
	}
	if created.FollowType != db.FollowTypeFollowing {
		t.Errorf("expected following row, got %s", created.FollowType)
	}

	row, err := database.GetFollow(accountID, peer.server.URL, db.FollowTypeFollowing)
	if err != nil || row == nil {
		t.Fatalf("expected persisted following row, got %v (err %v)", row, err)
	}

	peer.mu.Lock()
	defer peer.mu.Unlock()
	if len(peer.followFrom) != 1 {
		t.Fatalf("expected 1 follow-from notification, got %d", len(peer.followFrom))
	}
	notified := peer.followFrom[0]
	if notified.SiteURL != "https://my.example.com" {
		t.Errorf("expected normalized origin in notification, got %q", notified.SiteURL)
	}
	if notified.SiteName != "My Site" || notified.SiteAvatar != "/me.png" {
		t.Errorf("own identity not announced: %+v", notified)
	}
}

func TestFollowConflictRegardlessOfReachability(t *testing.T) {
	svc, database, accountID := newTestService(t)

	// Pre-existing following row for an unreachable site.
	siteURL := "http://unreachable.example.com"
	if _, err := database.CreateFollow(accountID, siteURL, "", "", db.FollowTypeFollowing); err != nil {
		t.Fatalf("failed to seed follow: %v", err)
	}

	_, err := svc.Follow(accountID, siteURL, "https://my.example.com")
	if !errors.Is(err, ErrAlreadyFollowing) {
		t.Errorf("expected ErrAlreadyFollowing before any remote call, got %v", err)
	}
}

func TestFollowKeepsLocalRowWhenNotifyFails(t *testing.T) {
	svc, database, accountID := newTestService(t)
	peer := newFakePeer(t)
	peer.failNotify = true

	created, err := svc.Follow(accountID, peer.server.URL, "https://my.example.com")
	if err == nil {
		t.Fatal("expected notification failure to propagate")
	}
	if !errors.Is(err, remote.ErrUpstream) {
		t.Errorf("expected upstream error, got %v", err)
	}
	if created == nil {
		t.Fatal("expected the committed local row to be returned despite the failure")
	}

	row, _ := database.GetFollow(accountID, peer.server.URL, db.FollowTypeFollowing)
	if row == nil {
		t.Error("local follow row must survive a failed remote notification")
	}
}

func TestFollowAbortsWhenSiteInfoFails(t *testing.T) {
	svc, database, accountID := newTestService(t)
	peer := newFakePeer(t)
	peer.failInfo = true

	if _, err := svc.Follow(accountID, peer.server.URL, "https://my.example.com"); err == nil {
		t.Fatal("expected site-info failure to abort the follow")
	}

	row, _ := database.GetFollow(accountID, peer.server.URL, db.FollowTypeFollowing)
	if row != nil {
		t.Error("no local row may exist when metadata fetch failed")
	}
}

func TestFollowFromIdempotent(t *testing.T) {
	svc, database, accountID := newTestService(t)

	first, err := svc.FollowFrom(accountID, "https://peer.example.com/x", "Peer", "/p.png")
	if err != nil {
		t.Fatalf("follow-from failed: %v", err)
	}
	second, err := svc.FollowFrom(accountID, "https://peer.example.com", "Peer", "/p.png")
	if err != nil {
		t.Fatalf("repeated follow-from failed: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("expected the first row returned unchanged, got %d and %d", first.ID, second.ID)
	}

	rows, err := database.ListFollows(accountID, db.FollowTypeFollower)
	if err != nil {
		t.Fatalf("failed to list followers: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected exactly one follower row, got %d", len(rows))
	}
}

func TestFollowFromResolvesAdminAccount(t *testing.T) {
	svc, database, accountID := newTestService(t)

	row, err := svc.FollowFrom(0, "https://peer.example.com", "Peer", "")
	if err != nil {
		t.Fatalf("follow-from failed: %v", err)
	}
	if row.AccountID != accountID {
		t.Errorf("expected admin account %d, got %d", accountID, row.AccountID)
	}
	_ = database
}

func TestUnfollow(t *testing.T) {
	svc, database, accountID := newTestService(t)
	peer := newFakePeer(t)

	if _, err := svc.Follow(accountID, peer.server.URL, "https://my.example.com"); err != nil {
		t.Fatalf("follow failed: %v", err)
	}

	if err := svc.Unfollow(accountID, peer.server.URL, "https://my.example.com"); err != nil {
		t.Fatalf("unfollow failed: %v", err)
	}

	row, _ := database.GetFollow(accountID, peer.server.URL, db.FollowTypeFollowing)
	if row != nil {
		t.Error("following row must be gone after unfollow")
	}

	peer.mu.Lock()
	defer peer.mu.Unlock()
	if len(peer.unfollowed) != 1 || peer.unfollowed[0].SiteURL != "https://my.example.com" {
		t.Errorf("expected unfollow-from notification, got %+v", peer.unfollowed)
	}
}

func TestUnfollowNotFollowing(t *testing.T) {
	svc, _, accountID := newTestService(t)

	err := svc.Unfollow(accountID, "https://never.example.com", "https://my.example.com")
	if !errors.Is(err, ErrNotFollowing) {
		t.Errorf("expected ErrNotFollowing, got %v", err)
	}
}

func TestUnfollowFromRemovesFollower(t *testing.T) {
	svc, database, accountID := newTestService(t)

	if _, err := svc.FollowFrom(accountID, "https://peer.example.com", "Peer", ""); err != nil {
		t.Fatalf("follow-from failed: %v", err)
	}
	if err := svc.UnfollowFrom(accountID, "https://peer.example.com"); err != nil {
		t.Fatalf("unfollow-from failed: %v", err)
	}

	rows, err := database.ListFollows(accountID, db.FollowTypeFollower)
	if err != nil {
		t.Fatalf("failed to list followers: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected follower row removed, got %+v", rows)
	}
}

func TestIsFollowingIgnoresRelationType(t *testing.T) {
	svc, database, accountID := newTestService(t)

	if _, err := database.CreateFollow(accountID, "https://peer.example.com", "", "", db.FollowTypeFollower); err != nil {
		t.Fatalf("failed to seed follower: %v", err)
	}

	following, err := svc.IsFollowing(accountID, "https://peer.example.com")
	if err != nil {
		t.Fatalf("is-following failed: %v", err)
	}
	if !following {
		t.Error("a follower row must count for the existence check")
	}

	following, err = svc.IsFollowing(accountID, "https://stranger.example.com")
	if err != nil {
		t.Fatalf("is-following failed: %v", err)
	}
	if following {
		t.Error("no relation exists for this site")
	}
}

func TestFollowListSplitsByType(t *testing.T) {
	svc, database, accountID := newTestService(t)

	database.CreateFollow(accountID, "https://a.example.com", "A", "", db.FollowTypeFollowing)
	database.CreateFollow(accountID, "https://b.example.com", "B", "", db.FollowTypeFollower)

	follows, err := svc.FollowList(accountID)
	if err != nil {
		t.Fatalf("follow list failed: %v", err)
	}
	if len(follows) != 1 || follows[0].SiteURL != "https://a.example.com" {
		t.Errorf("unexpected follow list: %+v", follows)
	}

	followers, err := svc.FollowerList(accountID)
	if err != nil {
		t.Fatalf("follower list failed: %v", err)
	}
	if len(followers) != 1 || followers[0].SiteURL != "https://b.example.com" {
		t.Errorf("unexpected follower list: %+v", followers)
	}
}

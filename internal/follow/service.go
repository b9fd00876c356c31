// Package follow manages federation follow relations between instances.
package follow

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/asaskevich/govalidator"
	"github.com/rs/zerolog"

	"github.com/ryotakamura/notefed/internal/db"
	"github.com/ryotakamura/notefed/internal/remote"
)

var (
	ErrAlreadyFollowing = errors.New("already following this site")
	ErrNotFollowing     = errors.New("not following this site")
	ErrInvalidSiteURL   = errors.New("invalid site url")
)

type Service struct {
	db     *db.DB
	remote *remote.Client

	// Identity announced to peers when this instance follows them.
	siteName   string
	siteAvatar string

	log zerolog.Logger
}

func NewService(database *db.DB, client *remote.Client, siteName, siteAvatar string, log zerolog.Logger) *Service {
	return &Service{
		db:         database,
		remote:     client,
		siteName:   siteName,
		siteAvatar: siteAvatar,
		log:        log,
	}
}

// NormalizeSiteURL reduces a site URL to its origin: scheme://host[:port].
func NormalizeSiteURL(raw string) (string, error) {
	if !govalidator.IsURL(raw) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSiteURL, raw)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidSiteURL, raw)
	}
	return u.Scheme + "://" + u.Host, nil
}

// Follow records that accountID follows siteURL and notifies the remote site.
// The local row commits before the notification; a notification failure is
// returned to the caller but the local follow stays (the instances have
// diverged and there is no compensation).
func (s *Service) Follow(accountID int64, siteURL, mySiteURL string) (*db.Follow, error) {
	origin, err := NormalizeSiteURL(siteURL)
	if err != nil {
		return nil, err
	}
	myOrigin, err := NormalizeSiteURL(mySiteURL)
	if err != nil {
		return nil, err
	}

	existing, err := s.db.GetFollow(accountID, origin, db.FollowTypeFollowing)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyFollowing
	}

	info, err := s.remote.FetchSiteInfo(origin)
	if err != nil {
		return nil, err
	}

	var created *db.Follow
	err = s.db.WithTx(func(tx *db.DB) error {
		created, err = tx.CreateFollow(accountID, origin, info.Name, info.Image, db.FollowTypeFollowing)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.remote.NotifyFollow(origin, remote.FollowFromRequest{
		SiteURL:    myOrigin,
		SiteName:   s.siteName,
		SiteAvatar: s.siteAvatar,
	}); err != nil {
		s.log.Warn().Err(err).Str("site", origin).Msg("follow persisted locally but remote notification failed")
		return created, err
	}
	return created, nil
}

// FollowFrom records an inbound follower. Idempotent: a matching follower row
// is returned unchanged. A zero accountID resolves to the instance admin.
func (s *Service) FollowFrom(accountID int64, siteURL, siteName, siteAvatar string) (*db.Follow, error) {
	origin, err := NormalizeSiteURL(siteURL)
	if err != nil {
		return nil, err
	}

	accountID, err = s.resolveAccount(accountID)
	if err != nil {
		return nil, err
	}

	existing, err := s.db.GetFollow(accountID, origin, db.FollowTypeFollower)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	var created *db.Follow
	err = s.db.WithTx(func(tx *db.DB) error {
		created, err = tx.CreateFollow(accountID, origin, siteName, siteAvatar, db.FollowTypeFollower)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Unfollow removes the local following row, then notifies the remote site.
// Same divergence semantics as Follow on notification failure.
func (s *Service) Unfollow(accountID int64, siteURL, mySiteURL string) error {
	origin, err := NormalizeSiteURL(siteURL)
	if err != nil {
		return err
	}
	myOrigin, err := NormalizeSiteURL(mySiteURL)
	if err != nil {
		return err
	}

	var deleted bool
	err = s.db.WithTx(func(tx *db.DB) error {
		deleted, err = tx.DeleteFollow(accountID, origin, db.FollowTypeFollowing)
		return err
	})
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFollowing
	}

	if err := s.remote.NotifyUnfollow(origin, remote.UnfollowFromRequest{SiteURL: myOrigin}); err != nil {
		s.log.Warn().Err(err).Str("site", origin).Msg("unfollow persisted locally but remote notification failed")
		return err
	}
	return nil
}

func (s *Service) UnfollowFrom(accountID int64, siteURL string) error {
	origin, err := NormalizeSiteURL(siteURL)
	if err != nil {
		return err
	}

	accountID, err = s.resolveAccount(accountID)
	if err != nil {
		return err
	}

	return s.db.WithTx(func(tx *db.DB) error {
		_, err := tx.DeleteFollow(accountID, origin, db.FollowTypeFollower)
		return err
	})
}

func (s *Service) FollowList(accountID int64) ([]db.Follow, error) {
	return s.db.ListFollows(accountID, db.FollowTypeFollowing)
}

func (s *Service) FollowerList(accountID int64) ([]db.Follow, error) {
	return s.db.ListFollows(accountID, db.FollowTypeFollower)
}

// IsFollowing reports whether any relation exists for (accountID, siteURL),
// ignoring the relation type.
func (s *Service) IsFollowing(accountID int64, siteURL string) (bool, error) {
	origin, err := NormalizeSiteURL(siteURL)
	if err != nil {
		return false, err
	}
	return s.db.FollowExists(accountID, origin)
}

func (s *Service) resolveAccount(accountID int64) (int64, error) {
	if accountID != 0 {
		return accountID, nil
	}
	admin, err := s.db.AdminAccount()
	if err != nil {
		return 0, err
	}
	if admin == nil {
		return 0, fmt.Errorf("no active account on this instance")
	}
	return admin.ID, nil
}

package db

import (
	"database/sql"
	"fmt"
	"time"
)

func (db *DB) CreateFollow(accountID int64, siteURL, siteName, siteAvatar string, followType FollowType) (*Follow, error) {
	now := time.Now()
	result, err := db.q.Exec(`
		INSERT INTO follows (account_id, site_url, site_name, site_avatar, follow_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, accountID, siteURL, siteName, siteAvatar, string(followType), now)
	if err != nil {
		return nil, fmt.Errorf("failed to create follow: %w", err)
	}

	id, _ := result.LastInsertId()
	return &Follow{
		ID:         id,
		AccountID:  accountID,
		SiteURL:    siteURL,
		SiteName:   siteName,
		SiteAvatar: siteAvatar,
		FollowType: followType,
		CreatedAt:  now,
	}, nil
}

func (db *DB) GetFollow(accountID int64, siteURL string, followType FollowType) (*Follow, error) {
	return db.scanFollow(db.q.QueryRow(`
		SELECT id, account_id, site_url, COALESCE(site_name, ''), COALESCE(site_avatar, ''),
			follow_type, created_at
		FROM follows
		WHERE account_id = ? AND site_url = ? AND follow_type = ?
	`, accountID, siteURL, string(followType)))
}

// FollowExists ignores the relation type.
func (db *DB) FollowExists(accountID int64, siteURL string) (bool, error) {
	var count int
	err := db.q.QueryRow(`
		SELECT COUNT(*) FROM follows WHERE account_id = ? AND site_url = ?
	`, accountID, siteURL).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return count > 0, nil
}

func (db *DB) DeleteFollow(accountID int64, siteURL string, followType FollowType) (bool, error) {
	result, err := db.q.Exec(`
		DELETE FROM follows WHERE account_id = ? AND site_url = ? AND follow_type = ?
	`, accountID, siteURL, string(followType))
	if err != nil {
		return false, fmt.Errorf("failed to delete follow: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

func (db *DB) ListFollows(accountID int64, followType FollowType) ([]Follow, error) {
	rows, err := db.q.Query(`
		SELECT id, account_id, site_url, COALESCE(site_name, ''), COALESCE(site_avatar, ''),
			follow_type, created_at
		FROM follows
		WHERE account_id = ? AND follow_type = ?
		ORDER BY created_at DESC, id DESC
	`, accountID, string(followType))
	if err != nil {
		return nil, fmt.Errorf("failed to list follows: %w", err)
	}
	defer rows.Close()

	var follows []Follow
	for rows.Next() {
		var f Follow
		var typ string
		if err := rows.Scan(&f.ID, &f.AccountID, &f.SiteURL, &f.SiteName, &f.SiteAvatar,
			&typ, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan follow: %w", err)
		}
		f.FollowType = FollowType(typ)
		follows = append(follows, f)
	}
	return follows, rows.Err()
}

func (db *DB) scanFollow(row *sql.Row) (*Follow, error) {
	var f Follow
	var typ string
	err := row.Scan(&f.ID, &f.AccountID, &f.SiteURL, &f.SiteName, &f.SiteAvatar,
		&typ, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get follow: %w", err)
	}
	f.FollowType = FollowType(typ)
	return &f, nil
}

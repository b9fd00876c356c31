package db

import (
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func (db *DB) CreateAccount(name, password string) (*Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	result, err := db.q.Exec(`
		INSERT INTO accounts (name, password_hash, role, created_at, active)
		VALUES (?, ?, 'superadmin', ?, 1)
	`, name, string(hash), now)

	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	id, _ := result.LastInsertId()
	return &Account{
		ID:        id,
		Name:      name,
		Role:      "superadmin",
		CreatedAt: now,
		Active:    true,
	}, nil
}

func (db *DB) GetAccountByName(name string) (*Account, error) {
	return db.scanAccount(db.q.QueryRow(`
		SELECT id, name, password_hash, role, COALESCE(image, ''), created_at, active
		FROM accounts WHERE name = ?
	`, name))
}

func (db *DB) GetAccountByID(id int64) (*Account, error) {
	return db.scanAccount(db.q.QueryRow(`
		SELECT id, name, password_hash, role, COALESCE(image, ''), created_at, active
		FROM accounts WHERE id = ?
	`, id))
}

// AdminAccount returns the instance owner: the oldest active account.
func (db *DB) AdminAccount() (*Account, error) {
	return db.scanAccount(db.q.QueryRow(`
		SELECT id, name, password_hash, role, COALESCE(image, ''), created_at, active
		FROM accounts WHERE active = 1 ORDER BY id ASC LIMIT 1
	`))
}

func (db *DB) scanAccount(row *sql.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Name, &a.PasswordHash, &a.Role, &a.Image, &a.CreatedAt, &a.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

func (db *DB) ValidatePassword(account *Account, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password))
	return err == nil
}

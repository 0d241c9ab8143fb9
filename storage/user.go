package storage

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ceapp/models"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// ResetKeyTTL is how long a generated password reset key stays valid
const ResetKeyTTL = 24 * time.Hour

// UserStorage manages user data persistence in BoltDB
type UserStorage struct {
	db       *bbolt.DB
	hashCost int
	now      func() time.Time
}

// NewUserStorage creates a new user storage instance
func NewUserStorage(db *bbolt.DB) *UserStorage {
	return &UserStorage{
		db:       db,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
}

func normalizeKey(s string) []byte {
	return []byte(strings.ToLower(strings.TrimSpace(s)))
}

// CreateUser creates a new user. Email and username must both be unused,
// compared case-insensitively.
func (s *UserStorage) CreateUser(user *models.User, password string) error {
	// Generate ID if not set
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	// Hash password outside the write transaction
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %v", err)
	}
	user.PasswordHash = string(hashedPassword)

	now := s.now()
	user.CreatedAt = now
	user.UpdatedAt = now

	return s.db.Update(func(tx *bbolt.Tx) error {
		emails := tx.Bucket([]byte(userEmailsBucket))
		logins := tx.Bucket([]byte(userLoginsBucket))

		if emails.Get(normalizeKey(user.Email)) != nil || logins.Get(normalizeKey(user.Username)) != nil {
			return ErrUserExists
		}
		if err := emails.Put(normalizeKey(user.Email), []byte(user.ID)); err != nil {
			return err
		}
		if err := logins.Put(normalizeKey(user.Username), []byte(user.ID)); err != nil {
			return err
		}
		return putUser(tx, user)
	})
}

// GetUser retrieves a user by ID
func (s *UserStorage) GetUser(userID string) (*models.User, error) {
	var user *models.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		user, err = getUser(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email
func (s *UserStorage) GetUserByEmail(email string) (*models.User, error) {
	var user *models.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket([]byte(userEmailsBucket)).Get(normalizeKey(email))
		if id == nil {
			return ErrUserNotFound
		}
		var err error
		user, err = getUser(tx, string(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// EmailExists reports whether an account uses the email
func (s *UserStorage) EmailExists(email string) (bool, error) {
	return s.indexed(userEmailsBucket, email)
}

// UsernameExists reports whether an account uses the username
func (s *UserStorage) UsernameExists(username string) (bool, error) {
	return s.indexed(userLoginsBucket, username)
}

func (s *UserStorage) indexed(bucket, value string) (bool, error) {
	if strings.TrimSpace(value) == "" {
		return false, nil
	}
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket([]byte(bucket)).Get(normalizeKey(value)) != nil
		return nil
	})
	return found, err
}

// UpdateUser updates the name fields of an existing user. Identity fields
// (username, email) and the password hash are preserved.
func (s *UserStorage) UpdateUser(user *models.User) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		existing, err := getUser(tx, user.ID)
		if err != nil {
			return err
		}

		existing.FirstName = user.FirstName
		existing.DisplayName = user.DisplayName
		existing.UpdatedAt = s.now()

		if err := putUser(tx, existing); err != nil {
			return err
		}
		*user = *existing
		return nil
	})
}

// SetPassword replaces a user's password
func (s *UserStorage) SetPassword(userID, newPassword string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %v", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		user, err := getUser(tx, userID)
		if err != nil {
			return err
		}

		user.PasswordHash = string(hashedPassword)
		user.UpdatedAt = s.now()

		// A stored reset key is spent once the password changes
		if err := tx.Bucket([]byte(resetKeysBucket)).Delete([]byte(userID)); err != nil {
			return err
		}
		return putUser(tx, user)
	})
}

// GenerateResetKey issues a new password reset key for the user, replacing
// any previous one. Only a bcrypt hash of the key is stored.
func (s *UserStorage) GenerateResetKey(userID string) (string, error) {
	key, err := GenerateSecureToken(10)
	if err != nil {
		return "", fmt.Errorf("failed to generate reset key: %v", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(key), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash reset key: %v", err)
	}

	record, err := json.Marshal(models.ResetKey{
		Hash:      string(hashed),
		ExpiresAt: s.now().Add(ResetKeyTTL),
	})
	if err != nil {
		return "", err
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := getUser(tx, userID); err != nil {
			return err
		}
		return tx.Bucket([]byte(resetKeysBucket)).Put([]byte(userID), record)
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// getUser loads a user inside a transaction
func getUser(tx *bbolt.Tx, userID string) (*models.User, error) {
	if userID == "" {
		return nil, ErrUserNotFound
	}
	data := tx.Bucket([]byte(usersBucket)).Get([]byte(userID))
	if data == nil {
		return nil, ErrUserNotFound
	}

	var user models.User
	stored := storedUser{User: &user}
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %v", err)
	}
	user.PasswordHash = stored.PasswordHash
	return &user, nil
}

// storedUser is the on-disk shape of a user
type storedUser struct {
	*models.User
	PasswordHash string `json:"password_hash"`
}

// putUser stores a user inside a write transaction. The password hash is
// kept out of the public JSON shape, so it is stored alongside it.
func putUser(tx *bbolt.Tx, user *models.User) error {
	data, err := json.Marshal(storedUser{User: user, PasswordHash: user.PasswordHash})
	if err != nil {
		return fmt.Errorf("failed to marshal user: %v", err)
	}
	return tx.Bucket([]byte(usersBucket)).Put([]byte(user.ID), data)
}

// GenerateSecureToken generates a cryptographically secure random token
func GenerateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", bytes), nil
}

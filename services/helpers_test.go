package services

import (
	"errors"
	"testing"

	"ceapp/models"
	"ceapp/storage"

	"github.com/stretchr/testify/require"
)

type testEnv struct {
	users     *storage.UserStorage
	meta      *storage.MetaStorage
	images    *storage.ImageStore
	uploadDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := storage.InitDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	uploadDir := t.TempDir()
	images, err := storage.NewImageStore(uploadDir, "https://example.com/uploads", 0)
	require.NoError(t, err)

	return &testEnv{
		users:     storage.NewUserStorage(db),
		meta:      storage.NewMetaStorage(db),
		images:    images,
		uploadDir: uploadDir,
	}
}

func (e *testEnv) createUser(t *testing.T, email string) *models.User {
	t.Helper()
	user := &models.User{Username: email, Email: email, FirstName: "Ana", DisplayName: "Ana"}
	require.NoError(t, e.users.CreateUser(user, "secret"))
	return user
}

// failingImages rejects every image after counting the call
type failingImages struct {
	calls int
	err   error
}

func (f *failingImages) Store(dataURI, ownerID string) (string, error) {
	f.calls++
	return "", f.err
}

// brokenUsers fails every lookup with a storage error
type brokenUsers struct{}

func (brokenUsers) GetUser(userID string) (*models.User, error) {
	return nil, errors.New("disk on fire")
}

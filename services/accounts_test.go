package services

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"ceapp/models"
	"ceapp/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

var passwordLine = regexp.MustCompile(`Tu nueva contraseña es: ([A-Za-z0-9]+)`)

func newTestAccounts(t *testing.T) (*AccountService, *testEnv, *fakeMailer) {
	t.Helper()
	env := newTestEnv(t)
	mailer := &fakeMailer{}
	cache := utils.NewMemoryCache(time.Minute)
	t.Cleanup(cache.Close)
	svc := NewAccountService(env.users, env.meta, env.images, mailer, cache, time.Minute)
	return svc, env, mailer
}

func TestAccountService_Register(t *testing.T) {
	svc, env, _ := newTestAccounts(t)

	user, err := svc.Register(" ana@example.com ", "secret", "<b>Ana</b>")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, "ana@example.com", user.Username)
	assert.Equal(t, "Ana", user.DisplayName)

	stored, err := env.users.GetUser(user.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret")))
}

func TestAccountService_RegisterRejects(t *testing.T) {
	svc, env, _ := newTestAccounts(t)
	env.createUser(t, "ana@example.com")

	_, err := svc.Register("", "secret", "x")
	assert.True(t, errors.Is(err, utils.ErrMissingCredentials))

	_, err = svc.Register("new@example.com", "", "x")
	assert.True(t, errors.Is(err, utils.ErrMissingCredentials))

	_, err = svc.Register("ANA@example.com", "secret", "x")
	assert.True(t, errors.Is(err, utils.ErrUserExists))
}

func TestAccountService_RegisterRejectsEmailUsedAsUsername(t *testing.T) {
	svc, env, _ := newTestAccounts(t)
	user := &models.User{Username: "shared@example.com", Email: "other@example.com"}
	require.NoError(t, env.users.CreateUser(user, "secret"))

	_, err := svc.Register("shared@example.com", "secret", "x")
	assert.True(t, errors.Is(err, utils.ErrUserExists))
}

func TestAccountService_RecoverMailsNewPassword(t *testing.T) {
	svc, env, mailer := newTestAccounts(t)
	user := env.createUser(t, "ana@example.com")

	require.NoError(t, svc.Recover("ana@example.com"))
	require.Len(t, mailer.sent, 1)

	msg := mailer.sent[0]
	assert.Equal(t, "ana@example.com", msg.to)
	assert.Equal(t, "Nueva Contraseña - Color Expression by Lanco", msg.subject)
	assert.True(t, strings.HasPrefix(msg.body, "¡Hola!"))

	match := passwordLine.FindStringSubmatch(msg.body)
	require.NotNil(t, match)
	assert.Len(t, match[1], 8)

	stored, err := env.users.GetUser(user.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(match[1])))
}

func TestAccountService_RecoverThrottlesRepeats(t *testing.T) {
	svc, env, mailer := newTestAccounts(t)
	env.createUser(t, "ana@example.com")

	require.NoError(t, svc.Recover("ana@example.com"))
	err := svc.Recover("ANA@example.com")
	assert.True(t, errors.Is(err, utils.ErrRecoverThrottled))
	assert.Len(t, mailer.sent, 1)
}

func TestAccountService_RecoverUnknownAccount(t *testing.T) {
	svc, _, mailer := newTestAccounts(t)

	err := svc.Recover("nobody@example.com")
	assert.True(t, errors.Is(err, utils.ErrInvalidAccount))

	err = svc.Recover("")
	assert.True(t, errors.Is(err, utils.ErrInvalidAccount))
	assert.Empty(t, mailer.sent)
}

func TestAccountService_RecoverMailFailureKeepsPassword(t *testing.T) {
	svc, env, mailer := newTestAccounts(t)
	user := env.createUser(t, "ana@example.com")
	mailer.err = errors.New("relay down")

	err := svc.Recover("ana@example.com")
	assert.True(t, errors.Is(err, utils.ErrEmailNotSent))

	stored, err := env.users.GetUser(user.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret")))

	// a failed attempt does not start the cooldown
	mailer.err = nil
	assert.NoError(t, svc.Recover("ana@example.com"))
}

func strPtr(s string) *string { return &s }

func TestAccountService_Profile(t *testing.T) {
	svc, env, _ := newTestAccounts(t)
	user := env.createUser(t, "ana@example.com")

	profile, err := svc.Profile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", profile.Email)
	assert.Empty(t, profile.Country)

	profile, err = svc.UpdateProfile(user.ID, models.ProfileUpdate{
		Name:      strPtr("Ana María"),
		Country:   strPtr("Chile"),
		ExtraText: strPtr("<script>x</script>Hola <i>mundo</i>"),
		Image:     strPtr(pngURI("avatar")),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana María", profile.DisplayName)
	assert.Equal(t, "Chile", profile.Country)
	assert.Equal(t, "Hola mundo", profile.ExtraText)
	assert.True(t, strings.HasSuffix(profile.Image, ".png"), profile.Image)

	// nil fields are untouched, empty ones are cleared
	profile, err = svc.UpdateProfile(user.ID, models.ProfileUpdate{Country: strPtr("")})
	require.NoError(t, err)
	assert.Empty(t, profile.Country)
	assert.Equal(t, "Hola mundo", profile.ExtraText)
	assert.Equal(t, "Ana María", profile.FirstName)
}

func TestAccountService_UpdateProfileBadImageWritesNothing(t *testing.T) {
	svc, env, _ := newTestAccounts(t)
	user := env.createUser(t, "ana@example.com")

	_, err := svc.UpdateProfile(user.ID, models.ProfileUpdate{
		Country: strPtr("Chile"),
		Image:   strPtr("data:image/tiff;base64,AAAA"),
	})
	assert.True(t, errors.Is(err, utils.ErrInvalidImageType))

	profile, err := svc.Profile(user.ID)
	require.NoError(t, err)
	assert.Empty(t, profile.Country)
	assert.Empty(t, profile.Image)
}

func TestAccountService_ProfileUnknownUser(t *testing.T) {
	svc, _, _ := newTestAccounts(t)

	_, err := svc.Profile("")
	assert.True(t, errors.Is(err, utils.ErrUserNotFound))

	_, err = svc.UpdateProfile("missing", models.ProfileUpdate{})
	assert.True(t, errors.Is(err, utils.ErrUserNotFound))
}

func TestGeneratePassword(t *testing.T) {
	pw, err := generatePassword(8)
	require.NoError(t, err)
	assert.Regexp(t, `^[A-Za-z0-9]{8}$`, pw)
}

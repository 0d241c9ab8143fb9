package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"ceapp/mail"
	"ceapp/models"
	"ceapp/storage"
	"ceapp/utils"
)

const (
	recoverSubject = "Nueva Contraseña - Color Expression by Lanco"
	recoverBody    = `¡Hola!

Hemos restablecido tu contraseña de acceso al app de Color Expression.

Tu nueva contraseña es: %s

Puedes cambiar tu contraseña ingresando a Mi Perfil > Configuración > Cambiar contraseña.

Atentamente,
El equipo de Color Expression by Lanco.
`

	passwordLength   = 8
	passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// AccountStore is the user persistence used by the account service
type AccountStore interface {
	UserLookup
	CreateUser(user *models.User, password string) error
	GetUserByEmail(email string) (*models.User, error)
	EmailExists(email string) (bool, error)
	UsernameExists(username string) (bool, error)
	UpdateUser(user *models.User) error
	SetPassword(userID, newPassword string) error
	GenerateResetKey(userID string) (string, error)
}

// ProfileStore reads and writes profile attributes
type ProfileStore interface {
	GetMeta(userID, key string) ([]byte, error)
	SetMetas(userID string, values map[string][]byte) error
}

// Cooldown remembers keys for a limited time
type Cooldown interface {
	SetIfAbsent(key string, value interface{}, ttl time.Duration) bool
	Delete(key string)
}

// AccountService handles registration, password recovery and profiles
type AccountService struct {
	users    AccountStore
	meta     ProfileStore
	images   ImageStorer
	mailer   mail.Mailer
	cooldown Cooldown
	window   time.Duration
}

// NewAccountService creates an account service. Recovery requests for the
// same email are refused for window after a successful one.
func NewAccountService(users AccountStore, meta ProfileStore, images ImageStorer, mailer mail.Mailer, cooldown Cooldown, window time.Duration) *AccountService {
	return &AccountService{
		users:    users,
		meta:     meta,
		images:   images,
		mailer:   mailer,
		cooldown: cooldown,
		window:   window,
	}
}

// Register creates an account whose username is its email
func (s *AccountService) Register(email, password, name string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, utils.ErrMissingCredentials
	}

	exists, err := s.users.EmailExists(email)
	if err != nil {
		return nil, utils.InternalServerError("Failed to check email", err)
	}
	if !exists {
		exists, err = s.users.UsernameExists(email)
		if err != nil {
			return nil, utils.InternalServerError("Failed to check username", err)
		}
	}
	if exists {
		return nil, utils.ErrUserExists
	}

	name = utils.SanitizeText(name)
	user := &models.User{
		Username:    email,
		Email:       email,
		FirstName:   name,
		DisplayName: name,
	}
	if err := s.users.CreateUser(user, password); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return nil, utils.ErrUserExists
		}
		return nil, utils.InternalServerError("Failed to create user", err)
	}

	utils.Log.WithField("user_id", user.ID).Info("Registered new user")
	return user, nil
}

// Recover replaces the password of the account registered with email by a
// random one and mails it. The password only changes once the mail is out.
func (s *AccountService) Recover(email string) error {
	email = strings.TrimSpace(email)
	key := strings.ToLower(email)
	if key != "" && s.cooldown != nil && !s.cooldown.SetIfAbsent("recover:"+key, true, s.window) {
		return utils.ErrRecoverThrottled
	}

	err := s.recover(email)
	if err != nil && s.cooldown != nil {
		// only a delivered password starts the cooldown
		s.cooldown.Delete("recover:" + key)
	}
	return err
}

func (s *AccountService) recover(email string) error {
	if email == "" {
		return utils.ErrInvalidAccount
	}

	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return utils.ErrInvalidAccount
		}
		return utils.InternalServerError("Failed to load user", err)
	}

	if _, err := s.users.GenerateResetKey(user.ID); err != nil {
		return utils.ErrResetKey.Wrap(err)
	}

	password, err := generatePassword(passwordLength)
	if err != nil {
		return utils.ErrResetKey.Wrap(err)
	}

	if err := s.mailer.Send(user.Email, recoverSubject, fmt.Sprintf(recoverBody, password)); err != nil {
		utils.Log.WithField("user_id", user.ID).Error("Failed to send recovery email: %v", err)
		return utils.ErrEmailNotSent.Wrap(err)
	}

	if err := s.users.SetPassword(user.ID, password); err != nil {
		return utils.InternalServerError("Failed to set password", err)
	}

	utils.Log.WithField("user_id", user.ID).Info("Password recovered")
	return nil
}

// Profile returns the user together with its extension fields
func (s *AccountService) Profile(userID string) (*models.Profile, error) {
	if userID == "" {
		return nil, utils.ErrUserNotFound
	}
	user, err := s.users.GetUser(userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, utils.ErrUserNotFound
		}
		return nil, utils.InternalServerError("Failed to load user", err)
	}

	profile := &models.Profile{User: user}
	fields := map[string]*string{
		models.MetaCountry:   &profile.Country,
		models.MetaExtraText: &profile.ExtraText,
		models.MetaImage:     &profile.Image,
	}
	for key, dst := range fields {
		value, err := s.meta.GetMeta(userID, key)
		if err != nil {
			return nil, utils.InternalServerError("Failed to read profile", err)
		}
		*dst = string(value)
	}
	return profile, nil
}

// UpdateProfile writes the non-nil fields of update. An empty value removes
// the attribute. A failing image leaves the whole profile untouched.
func (s *AccountService) UpdateProfile(userID string, update models.ProfileUpdate) (*models.Profile, error) {
	if err := requireUser(s.users, userID); err != nil {
		return nil, err
	}

	values := make(map[string][]byte)
	setText := func(key string, value *string) {
		if value == nil {
			return
		}
		if clean := utils.SanitizeText(*value); clean != "" {
			values[key] = []byte(clean)
		} else {
			values[key] = nil
		}
	}
	setText(models.MetaCountry, update.Country)
	setText(models.MetaExtraText, update.ExtraText)

	if update.Image != nil {
		if *update.Image == "" {
			values[models.MetaImage] = nil
		} else {
			url, err := s.images.Store(*update.Image, userID)
			if err != nil {
				return nil, err
			}
			values[models.MetaImage] = []byte(url)
		}
	}

	if update.Name != nil {
		name := utils.SanitizeText(*update.Name)
		user := &models.User{ID: userID, FirstName: name, DisplayName: name}
		if err := s.users.UpdateUser(user); err != nil {
			return nil, utils.InternalServerError("Failed to update user", err)
		}
	}

	if len(values) > 0 {
		if err := s.meta.SetMetas(userID, values); err != nil {
			return nil, utils.InternalServerError("Failed to save profile", err)
		}
	}

	return s.Profile(userID)
}

// generatePassword returns a random alphanumeric password
func generatePassword(length int) (string, error) {
	limit := big.NewInt(int64(len(passwordAlphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = passwordAlphabet[n.Int64()]
	}
	return string(b), nil
}

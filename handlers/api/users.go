package api

import (
	"ceapp/models"
	"ceapp/services"
	"ceapp/utils"

	"github.com/gofiber/fiber/v2"
)

// UsersHandler handles registration, password recovery and the profile of
// the current user
type UsersHandler struct {
	accounts *services.AccountService
}

// NewUsersHandler creates a new users handler
func NewUsersHandler(accounts *services.AccountService) *UsersHandler {
	return &UsersHandler{accounts: accounts}
}

// RegisterRequest is the body of the registration endpoint
type RegisterRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Name     string `json:"name" form:"name"`
}

// RecoverRequest is the body of the password recovery endpoint
type RecoverRequest struct {
	Email string `json:"email" form:"email"`
}

// Register creates an account and returns it
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.accounts.Register(req.Email, req.Password, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// Recover mails a new password to the account owning the email
func (h *UsersHandler) Recover(c *fiber.Ctx) error {
	var req RecoverRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Email == "" {
		req.Email = c.Query("email")
	}

	if err := h.accounts.Recover(req.Email); err != nil {
		return err
	}

	return c.JSON(Envelope{
		Code:    "email_sent",
		Message: utils.TDefault(Localizer(c), "email_sent", "El Email ha sido enviado"),
		Data:    StatusData{Status: fiber.StatusOK},
	})
}

// Me returns the current user with its profile fields
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	profile, err := h.accounts.Profile(CurrentUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(profile)
}

// UpdateMe changes the profile fields present in the body
func (h *UsersHandler) UpdateMe(c *fiber.Ctx) error {
	userID := CurrentUserID(c)
	if userID == "" {
		return utils.ErrUserNotFound
	}

	var update models.ProfileUpdate
	if err := parseBody(c, &update); err != nil {
		return err
	}

	profile, err := h.accounts.UpdateProfile(userID, update)
	if err != nil {
		return err
	}
	return c.JSON(profile)
}

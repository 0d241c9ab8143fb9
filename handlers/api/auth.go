package api

import (
	"strings"

	"ceapp/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
)

const userIDLocal = "userId"

// Claims is the bearer token payload
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// BearerIdentity resolves the current user from an HS256 bearer token. A
// missing or invalid token is not rejected here; the request simply has no
// current user and user-bound handlers answer user_not_found. Browsers cannot
// set headers on WebSocket upgrades, so those may pass access_token instead.
func BearerIdentity(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := ""
		if header := c.Get(fiber.HeaderAuthorization); header != "" {
			var found bool
			tokenString, found = strings.CutPrefix(header, "Bearer ")
			if !found {
				utils.Log.Debug("Ignoring malformed Authorization header on %s", c.Path())
				return c.Next()
			}
		} else if websocket.IsWebSocketUpgrade(c) {
			tokenString = c.Query("access_token")
		}
		if tokenString == "" {
			return c.Next()
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			utils.Log.Debug("Ignoring invalid bearer token on %s: %v", c.Path(), err)
			return c.Next()
		}

		c.Locals(userIDLocal, claims.UserID)
		return c.Next()
	}
}

// CurrentUserID returns the authenticated user ID, or "" when there is none
func CurrentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDLocal).(string)
	return id
}

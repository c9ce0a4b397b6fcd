package auth

import (
	"strings"

	"github.com/booklook/booklook/pkg/errcodes"
	"github.com/labstack/echo/v4"
)

// CookieName is the cookie the web client stores its token in.
const CookieName = "booklook_token"

// Middleware provides authentication middleware.
type Middleware struct {
	authService *Service
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{
		authService: authService,
	}
}

// Authenticate validates the token from the Authorization header or the
// session cookie and stores the user id on the context. Requests without a
// valid token get a 401.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := tokenFromRequest(c)
		if token == "" {
			return errcodes.Unauthorized("Authentication required")
		}

		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			return errcodes.Unauthorized("Invalid or expired token")
		}

		c.Set("user_id", claims.UserID)

		return next(c)
	}
}

// AuthenticateOptional stores the user id when a valid token is present and
// lets anonymous requests through.
func (m *Middleware) AuthenticateOptional(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if token := tokenFromRequest(c); token != "" {
			claims, err := m.authService.ValidateToken(token)
			if err == nil {
				c.Set("user_id", claims.UserID)
			}
		}
		return next(c)
	}
}

func tokenFromRequest(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}

	cookie, err := c.Cookie(CookieName)
	if err == nil {
		return cookie.Value
	}
	return ""
}

// GetUserIDFromContext retrieves the user ID from the Echo context.
func GetUserIDFromContext(c echo.Context) (int, bool) {
	userID, ok := c.Get("user_id").(int)
	return userID, ok
}

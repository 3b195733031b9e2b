package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/xiaot623/trainchat/internal/domain"
	"github.com/xiaot623/trainchat/internal/store"
)

// UserContextKey is the echo context key holding the authenticated user.
const UserContextKey = "user"

// RequireAuth returns middleware that resolves the request's bearer token to
// a verified user. The token must validate and the referenced user must
// still exist; either failure rejects the request with 401 before the
// handler runs. Each authenticated access bumps the user's last-login
// timestamp.
func RequireAuth(tokens *TokenService, st store.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := Authenticate(c, tokens, st)
			if err != nil {
				if errors.Is(err, ErrUnauthenticated) {
					return echo.NewHTTPError(http.StatusUnauthorized, "authorization header required")
				}
				if errors.Is(err, ErrInvalidCredential) {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
				}
				log.Error().Err(err).Msg("authentication failed")
				return echo.NewHTTPError(http.StatusInternalServerError, "authentication failed")
			}

			c.Set(UserContextKey, user)
			return next(c)
		}
	}
}

// Authenticate performs the credential check without writing a response,
// for handlers that manage their own error shape.
func Authenticate(c echo.Context, tokens *TokenService, st store.Store) (*domain.User, error) {
	tokenString, err := ExtractBearer(c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return nil, err
	}

	claims, err := tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	ctx := c.Request().Context()
	user, err := st.GetUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredential
	}

	if err := st.TouchLastLogin(ctx, user.UserID); err != nil {
		log.Warn().Err(err).Str("user_id", user.UserID).Msg("failed to bump last login")
	}

	return user, nil
}

// CurrentUser returns the authenticated user set by RequireAuth.
func CurrentUser(c echo.Context) *domain.User {
	user, _ := c.Get(UserContextKey).(*domain.User)
	return user
}

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avery-hart/librarysysbackend/config"
	"github.com/avery-hart/librarysysbackend/models"
	"github.com/avery-hart/librarysysbackend/permissions"
	"github.com/avery-hart/librarysysbackend/repository"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

// UserContextKey is the key used to store the user object in the request context.
const UserContextKey ContextKey = "user"

// UserFromContext returns the authenticated user placed by AuthMiddleware.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok && user != nil
}

// AuthMiddleware verifies the bearer token, loads the user (overrides
// included), and rejects inactive accounts before any permission logic runs.
func AuthMiddleware(userRepo repository.UserRepository, cfg config.Config) func(http.Handler) http.Handler {
	jwtKey := []byte(cfg.JWTSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				WriteAPIError(w, http.StatusUnauthorized, ErrCodeAuthenticationFailed, "Not authenticated")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				WriteAPIError(w, http.StatusUnauthorized, ErrCodeAuthenticationFailed, "Authorization header format must be Bearer {token}")
				return
			}
			tokenString := strings.TrimSpace(parts[1])
			if tokenString == "" {
				WriteAPIError(w, http.StatusUnauthorized, ErrCodeAuthenticationFailed, "Could not validate credentials")
				return
			}

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return jwtKey, nil
			})
			if err != nil || !token.Valid || claims.Subject == "" {
				WriteAPIError(w, http.StatusUnauthorized, ErrCodeAuthenticationFailed, "Could not validate credentials")
				return
			}

			user, err := userRepo.GetByID(claims.Subject)
			if err != nil {
				// deleted after the token was issued, or a forged subject
				WriteAPIError(w, http.StatusUnauthorized, ErrCodeAuthenticationFailed, "Could not validate credentials")
				return
			}
			if !user.IsActive {
				WriteAPIError(w, http.StatusBadRequest, ErrCodeInactiveUser, "Inactive user")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermissions gates a route on the user holding ALL of the listed
// permissions. The rejection names exactly the ones that are missing.
func RequirePermissions(perms ...permissions.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "User not found in context")
				return
			}

			if missing := user.MissingPermissions(perms...); len(missing) > 0 {
				WriteAPIError(w, http.StatusForbidden, ErrCodeForbidden,
					"Missing required permissions: "+joinPermissions(missing))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyPermission gates a route on the user holding at least one of the
// listed permissions.
func RequireAnyPermission(perms ...permissions.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "User not found in context")
				return
			}

			if !user.HasAnyPermission(perms...) {
				WriteAPIError(w, http.StatusForbidden, ErrCodeForbidden,
					"Requires one of: "+joinPermissions(perms))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSuperuser gates admin-only surfaces. Role and overrides are not
// consulted; only the superuser flag counts.
func RequireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "User not found in context")
			return
		}
		if !user.IsSuperuser {
			WriteAPIError(w, http.StatusForbidden, ErrCodeForbidden, "The user doesn't have enough privileges")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func joinPermissions(perms []permissions.Permission) string {
	strs := make([]string, len(perms))
	for i, p := range perms {
		strs[i] = string(p)
	}
	return strings.Join(strs, ", ")
}

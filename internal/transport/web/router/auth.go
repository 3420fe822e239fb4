package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/jbeshir/problem-rankings/internal/domain"
)

// AuthValidator attempts to authenticate a request.
// Returns "", nil if this validator doesn't apply (wrong auth type).
// Returns the user ID, nil on success.
// Returns "", error if validation was attempted but failed.
type AuthValidator func(r *http.Request) (string, error)

// NewAuthMiddleware attaches the user ID of the first validator that applies. Requests no
// validator applies to pass through anonymously; endpoints needing a user wrap requireAuthMiddleware.
func NewAuthMiddleware(validators []AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, validate := range validators {
				userID, err := validate(r)
				if userID == "" && err == nil {
					continue
				}

				if err != nil {
					logger := domain.LoggerFromContext(r.Context())
					logger.WarnContext(r.Context(), "authentication failed", "error", err)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusUnauthorized)
					_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
					return
				}

				ctx := domain.ContextWithUserID(r.Context(), userID)
				ctx = domain.ContextWithLogger(ctx, domain.LoggerFromContext(ctx).With("user_id", userID))
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NewAuth0Validator validates Auth0-issued RS256 bearer tokens against the tenant's JWKS.
func NewAuth0Validator(auth0Domain, auth0Audience string) (AuthValidator, error) {
	issuerURL, err := url.Parse("https://" + auth0Domain + "/")
	if err != nil {
		return nil, fmt.Errorf("failed to parse the issuer url: %w", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)
	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{auth0Audience},
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT validator: %w", err)
	}

	return func(r *http.Request) (string, error) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return "", nil
		}

		token, err := jwtValidator.ValidateToken(r.Context(), strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			return "", errors.New("invalid JWT token")
		}

		claims, ok := token.(*validator.ValidatedClaims)
		if !ok || claims.RegisteredClaims.Subject == "" {
			return "", errors.New("JWT token has no subject")
		}
		return claims.RegisteredClaims.Subject, nil
	}, nil
}

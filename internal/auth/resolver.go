package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mamadbah2/farmops/internal/domain/models"
	"github.com/mamadbah2/farmops/internal/repository"
	"github.com/mamadbah2/farmops/pkg/clients/platform"
)

var (
	// ErrUnauthenticated means the request carried no usable access token.
	ErrUnauthenticated = errors.New("not signed in")
	// ErrNoProfile means the token is valid but the user has no profile row.
	ErrNoProfile = errors.New("no profile for signed-in user")
	// ErrInactive means the profile has been deactivated.
	ErrInactive = errors.New("account is inactive")
)

// Claims are the access-token claims the backend issues.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Resolver turns an access token into an Identity.
type Resolver struct {
	platform  platform.Client
	jwtSecret []byte
	profiles  repository.Table[models.Profile]
}

// NewResolver builds a resolver. When jwtSecret is non-empty tokens are
// verified locally; otherwise every token is checked with the auth service.
func NewResolver(client platform.Client, jwtSecret string, backend repository.Backend) *Resolver {
	r := &Resolver{
		platform: client,
		profiles: repository.NewTable[models.Profile](backend, models.TableProfiles),
	}
	if jwtSecret != "" {
		r.jwtSecret = []byte(jwtSecret)
	}
	return r
}

// Resolve verifies token and loads the caller's profile.
func (r *Resolver) Resolve(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}

	userID, err := r.userID(ctx, token)
	if err != nil {
		return Identity{}, err
	}

	profile, err := r.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Identity{}, ErrNoProfile
		}
		return Identity{}, fmt.Errorf("load profile: %w", err)
	}
	if profile.Status == models.StatusInactive {
		return Identity{}, ErrInactive
	}

	return IdentityFromProfile(profile), nil
}

func (r *Resolver) userID(ctx context.Context, token string) (string, error) {
	if r.jwtSecret != nil {
		claims := new(Claims)
		_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			return r.jwtSecret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil || claims.Subject == "" {
			return "", ErrUnauthenticated
		}
		return claims.Subject, nil
	}

	if r.platform == nil {
		return "", errors.New("no token verifier configured")
	}
	user, err := r.platform.GetUser(ctx, token)
	if err != nil {
		if errors.Is(err, platform.ErrUnauthorized) {
			return "", ErrUnauthenticated
		}
		return "", fmt.Errorf("resolve user: %w", err)
	}
	return user.ID, nil
}

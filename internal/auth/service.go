package auth

import (
	"context"
	"fmt"
	"strings"

	"clinic-booking/internal/configs"
	"clinic-booking/internal/database"
)

// Authenticator determines the methods available to users get authenticated.
type Authenticator interface {

	// Authenticate checks the credentials of a user and issues a new pair of tokens.
	Authenticate(ctx context.Context, credentials Credentials) (*Tokens, error)
}

// Authorizer determines the methods used to identify the user behind a request.
type Authorizer interface {

	// ValidateToken verifies an access token, with or without the Bearer prefix, and returns the
	// stored user it was issued to.
	ValidateToken(ctx context.Context, token string) (*User, error)

	// RefreshTokens issues a new pair of tokens in exchange for a valid refresh token.
	RefreshTokens(ctx context.Context, tokens Tokens) (*Tokens, error)

	// GetAuthenticatedUser gets the user the request context was authenticated as.
	GetAuthenticatedUser(ctx context.Context) (User, error)
}

type Service interface {
	Authenticator
	Authorizer
}

type defaultService struct {
	repository Repository
	config     configs.Config
}

// NewService creates a new auth service.
func NewService(config configs.Config, dbConn database.Connection) Service {
	return &defaultService{
		config:     config,
		repository: newRepository(dbConn),
	}
}

// dummyHash is compared against when the email is unknown.
const dummyHash = "$2a$10$1Q/8dWTn4AsoKm0SIVl8LeBf8x0jNPf7Wj92Ywmk07XI.9s95b/eK"

func (d defaultService) Authenticate(ctx context.Context, credentials Credentials) (*Tokens, error) {
	if err := credentials.Validate(); err != nil {
		return nil, err
	}
	user, err := d.repository.FindLoginByEmail(ctx, credentials.Email)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if user == nil {
		ComparePasswords(dummyHash, credentials.Password)
		return nil, NewUnauthorizedError()
	}
	if !ComparePasswords(user.Password, credentials.Password) {
		return nil, NewUnauthorizedError()
	}
	user.Password = ""
	return GenerateTokens(ctx, d.config.PrivateKey(), *user)
}

// identify verifies the token and loads its subject from the store, so a removed user or a
// changed role takes effect before the token expires. A nil user means the subject is gone.
func (d defaultService) identify(ctx context.Context, raw string, kind TokenKind) (*User, error) {
	claims, err := verifyToken(raw, d.config.PrivateKey().PublicKey, kind)
	if err != nil {
		return nil, NewUnauthorizedError()
	}
	return d.repository.FindUserByUUID(ctx, claims.Subject)
}

func (d defaultService) ValidateToken(ctx context.Context, token string) (*User, error) {
	user, err := d.identify(ctx, strings.TrimPrefix(token, "Bearer "), AccessToken)
	if err != nil || user == nil {
		return nil, NewUnauthorizedError()
	}
	return user, nil
}

func (d defaultService) RefreshTokens(ctx context.Context, tokens Tokens) (*Tokens, error) {
	if err := tokens.Validate(); err != nil {
		return nil, err
	}
	user, err := d.identify(ctx, tokens.RefreshToken, RefreshToken)
	switch {
	case isUnauthorized(err):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	case user == nil:
		return nil, NewUnauthorizedError()
	}
	return GenerateTokens(ctx, d.config.PrivateKey(), *user)
}

func (d defaultService) GetAuthenticatedUser(ctx context.Context) (User, error) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return User{}, NewUnauthorizedError()
	}
	return user, nil
}

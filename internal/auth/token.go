package auth

import (
	"context"
	"crypto"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/jwa"
	"github.com/lestrrat-go/jwx/jwk"
	"github.com/lestrrat-go/jwx/jws"
	"github.com/lestrrat-go/jwx/jwt"
)

// TokenKind tells an access token from a refresh token.
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

const (
	SigningAlgorithm = jwa.RS512
	TokenIssuer      = "clinic_booking"
	TokenAudience    = "clinic_booking"
	TokenClockSkew   = 30 * time.Second

	kindClaim  = "kind"
	roleClaim  = "role"
	emailClaim = "email"
)

var tokenLifetimes = map[TokenKind]time.Duration{
	AccessToken:  5 * time.Minute,
	RefreshToken: 24 * time.Hour,
}

var errWrongTokenKind = errors.New("token kind does not match")

// TokenOption changes a token after its standard claims are set. Options run last, so they
// override the defaults.
type TokenOption func(token jwt.Token) error

// WithAudience replaces the audience of the token.
func WithAudience(audience []string) TokenOption {
	return func(token jwt.Token) error {
		return token.Set(jwt.AudienceKey, audience)
	}
}

// WithExpiration replaces the expiration of the token, counting from now.
func WithExpiration(lifetime time.Duration) TokenOption {
	return func(token jwt.Token) error {
		return token.Set(jwt.ExpirationKey, time.Now().Add(lifetime))
	}
}

// Claims are the identity carried by a verified token.
type Claims struct {
	Subject uuid.UUID
	Kind    TokenKind
	Role    Role
	Email   string
}

// newToken builds an unsigned token of the given kind for the user.
func newToken(kind TokenKind, user User, opts ...TokenOption) (jwt.Token, error) {
	jti, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	issuedAt := time.Now()
	claims := map[string]interface{}{
		jwt.IssuerKey:     TokenIssuer,
		jwt.AudienceKey:   []string{TokenAudience},
		jwt.SubjectKey:    user.UUID.String(),
		jwt.JwtIDKey:      jti.String(),
		jwt.IssuedAtKey:   issuedAt,
		jwt.ExpirationKey: issuedAt.Add(tokenLifetimes[kind]),
		kindClaim:         string(kind),
		roleClaim:         string(user.Role),
		emailClaim:        user.Email,
	}
	token := jwt.New()
	for name, value := range claims {
		if err = token.Set(name, value); err != nil {
			return nil, err
		}
	}
	for _, opt := range opts {
		if err = opt(token); err != nil {
			return nil, err
		}
	}
	return token, nil
}

// keyID identifies the signing key by its SHA-256 JWK thumbprint.
func keyID(privateKey rsa.PrivateKey) (string, error) {
	key, err := jwk.New(privateKey)
	if err != nil {
		return "", err
	}
	thumbprint, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(thumbprint), nil
}

func signToken(token jwt.Token, privateKey rsa.PrivateKey, kid string) (string, error) {
	headers := jws.NewHeaders()
	if err := headers.Set(jws.KeyIDKey, kid); err != nil {
		return "", err
	}
	signed, err := jwt.Sign(token, SigningAlgorithm, privateKey, jwt.WithHeaders(headers))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

// verifyToken checks the signature, the registered claims and the kind of the given token.
func verifyToken(raw string, publicKey rsa.PublicKey, kind TokenKind) (*Claims, error) {
	token, err := jwt.Parse(
		[]byte(raw),
		jwt.WithVerify(SigningAlgorithm, publicKey),
		jwt.WithValidate(true),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithAcceptableSkew(TokenClockSkew),
	)
	if err != nil {
		return nil, err
	}
	claims := &Claims{}
	if claims.Subject, err = uuid.Parse(token.Subject()); err != nil {
		return nil, err
	}
	if value, ok := token.Get(kindClaim); ok {
		claims.Kind = TokenKind(stringClaim(value))
	}
	if claims.Kind != kind {
		return nil, errWrongTokenKind
	}
	if value, ok := token.Get(roleClaim); ok {
		claims.Role = Role(stringClaim(value))
	}
	if value, ok := token.Get(emailClaim); ok {
		claims.Email = stringClaim(value)
	}
	return claims, nil
}

func stringClaim(value interface{}) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}

// GenerateTokens issues a signed access and refresh token pair for the given user.
func GenerateTokens(ctx context.Context, privateKey rsa.PrivateKey, user User, opts ...TokenOption) (*Tokens, error) {
	kid, err := keyID(privateKey)
	if err != nil {
		return nil, err
	}
	signed := make(map[TokenKind]string, 2)
	for _, kind := range []TokenKind{AccessToken, RefreshToken} {
		token, err := newToken(kind, user, opts...)
		if err != nil {
			return nil, err
		}
		if signed[kind], err = signToken(token, privateKey, kid); err != nil {
			return nil, err
		}
	}
	return &Tokens{
		AccessToken:  signed[AccessToken],
		RefreshToken: signed[RefreshToken],
	}, nil
}

// MustGenerateTokens is like GenerateTokens but panics if the tokens cannot be issued.
func MustGenerateTokens(ctx context.Context, privateKey rsa.PrivateKey, user User, opts ...TokenOption) *Tokens {
	tokens, err := GenerateTokens(ctx, privateKey, user, opts...)
	if err != nil {
		panic(err)
	}
	return tokens
}

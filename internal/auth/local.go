package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultIssuer     = "chcemmat-auth"
	defaultSessionTTL = 7 * 24 * time.Hour
	tokenLeeway       = 30 * time.Second
)

// LocalConfig configures LocalProvider
type LocalConfig struct {
	Secret     string
	SessionTTL time.Duration
	Issuer     string
}

// LocalProvider authenticates users stored in the auth_users table and
// issues HS256 signed session tokens.
type LocalProvider struct {
	db      *sqlx.DB
	secret  []byte
	ttl     time.Duration
	issuer  string
	revoker Revoker
	now     func() time.Time
}

type sessionClaims struct {
	Email         string         `json:"email"`
	UserMetadata  map[string]any `json:"user_metadata,omitempty"`
	UserCreatedAt int64          `json:"user_created_at,omitempty"`
	Role          string         `json:"role"`
	jwt.RegisteredClaims
}

type userRow struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Metadata     []byte    `db:"user_metadata"`
	CreatedAt    time.Time `db:"created_at"`
}

const userColumns = `id, email, password_hash, user_metadata, created_at`

// NewLocalProvider creates a provider backed by db. A nil revoker keeps
// revocations in memory.
func NewLocalProvider(db *sqlx.DB, cfg LocalConfig, revoker Revoker) (*LocalProvider, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("auth secret is required")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaultIssuer
	}
	if revoker == nil {
		revoker = NewMemoryRevoker()
	}
	return &LocalProvider{
		db:      db,
		secret:  []byte(cfg.Secret),
		ttl:     cfg.SessionTTL,
		issuer:  cfg.Issuer,
		revoker: revoker,
		now:     time.Now,
	}, nil
}

// SignUp registers a new user and signs them in. The matching profile is
// created by a database trigger.
func (p *LocalProvider) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*Result, error) {
	email = normalizeEmail(email)
	if !govalidator.IsEmail(email) {
		return nil, &Error{Code: CodeValidationFailed, Message: "Unable to validate email address: invalid format"}
	}
	if err := checkPassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user metadata: %w", err)
	}

	query := `
		INSERT INTO auth_users (email, password_hash, user_metadata)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns

	var row userRow
	if err := p.db.GetContext(ctx, &row, query, email, string(hash), meta); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, &Error{Code: CodeUserAlreadyExists, Message: "User already registered"}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return p.signedIn(row)
}

// SignInWithPassword checks the credentials and issues a session
func (p *LocalProvider) SignInWithPassword(ctx context.Context, email, password string) (*Result, error) {
	query := `SELECT ` + userColumns + ` FROM auth_users WHERE email = $1`

	var row userRow
	if err := p.db.GetContext(ctx, &row, query, normalizeEmail(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invalidCredentials()
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)) != nil {
		return nil, invalidCredentials()
	}

	return p.signedIn(row)
}

// GetSession validates the access token. Malformed, expired and revoked
// tokens yield no session.
func (p *LocalProvider) GetSession(ctx context.Context, accessToken string) (*Session, error) {
	claims, err := p.parse(accessToken)
	if err != nil {
		return nil, nil
	}
	revoked, err := p.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check session revocation: %w", err)
	}
	if revoked {
		return nil, nil
	}

	return &Session{
		AccessToken: strings.TrimSpace(accessToken),
		TokenType:   "bearer",
		ExpiresAt:   claims.ExpiresAt.Time,
		User:        claims.user(),
	}, nil
}

// SignOut revokes the session until its token expires
func (p *LocalProvider) SignOut(ctx context.Context, accessToken string) error {
	claims, err := p.parse(accessToken)
	if err != nil {
		return &Error{Code: CodeSessionNotFound, Message: "Auth session missing!"}
	}
	ttl := claims.ExpiresAt.Time.Sub(p.now())
	if err := p.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// UpdateUser changes the password and/or merges metadata of the session's user
func (p *LocalProvider) UpdateUser(ctx context.Context, accessToken string, attrs UserAttributes) (*User, error) {
	session, err := p.GetSession(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, &Error{Code: CodeSessionNotFound, Message: "Auth session missing!"}
	}

	sets := []string{"updated_at = now()"}
	args := []any{}
	if attrs.Password != nil {
		if err := checkPassword(*attrs.Password); err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*attrs.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		args = append(args, string(hash))
		sets = append(sets, fmt.Sprintf("password_hash = $%d", len(args)))
	}
	if len(attrs.Data) > 0 {
		meta, err := json.Marshal(attrs.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode user metadata: %w", err)
		}
		args = append(args, meta)
		sets = append(sets, fmt.Sprintf("user_metadata = user_metadata || $%d::jsonb", len(args)))
	}
	args = append(args, session.User.ID)

	query := fmt.Sprintf(`UPDATE auth_users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), userColumns)

	var row userRow
	if err := p.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	u, err := row.user()
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (p *LocalProvider) signedIn(row userRow) (*Result, error) {
	u, err := row.user()
	if err != nil {
		return nil, err
	}
	session, err := p.issue(u)
	if err != nil {
		return nil, err
	}
	return &Result{User: u, Session: session}, nil
}

func (p *LocalProvider) issue(u User) (*Session, error) {
	now := p.now().UTC()
	expiresAt := now.Add(p.ttl)
	claims := sessionClaims{
		Email:         u.Email,
		UserMetadata:  u.Metadata,
		UserCreatedAt: u.CreatedAt.Unix(),
		Role:          "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    p.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		User:        u,
	}, nil
}

func (p *LocalProvider) parse(token string) (*sessionClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("empty token")
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(tokenLeeway),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func (c *sessionClaims) user() User {
	u := User{
		ID:       c.Subject,
		Email:    c.Email,
		Metadata: c.UserMetadata,
	}
	if c.UserCreatedAt > 0 {
		u.CreatedAt = time.Unix(c.UserCreatedAt, 0).UTC()
	}
	return u
}

func (r userRow) user() (User, error) {
	u := User{ID: r.ID, Email: r.Email, CreatedAt: r.CreatedAt}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &u.Metadata); err != nil {
			return User{}, fmt.Errorf("failed to decode user metadata: %w", err)
		}
	}
	return u, nil
}

func checkPassword(password string) error {
	if len(password) < MinPasswordLength {
		return &Error{
			Code:    CodeWeakPassword,
			Message: fmt.Sprintf("Password should be at least %d characters.", MinPasswordLength),
		}
	}
	return nil
}

func invalidCredentials() error {
	return &Error{Code: CodeInvalidCredentials, Message: "Invalid login credentials"}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package identity

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/latteboxd/latteboxd/internal/models"
	"github.com/latteboxd/latteboxd/internal/store"
)

var (
	ErrSecretRequired     = errors.New("identity: jwt secret required")
	ErrUsernameRequired   = errors.New("identity: username is required")
	ErrPasswordRequired   = errors.New("identity: password is required")
	ErrDuplicateUsername  = errors.New("identity: username already taken")
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	ErrInvalidToken       = errors.New("identity: invalid token")
)

// avatarPalette is the fixed set of cosmetic colors assigned at signup.
var avatarPalette = []string{
	"bg-red-500", "bg-blue-500", "bg-green-500", "bg-yellow-500",
	"bg-purple-500", "bg-pink-500", "bg-indigo-500", "bg-orange-500",
}

// Store is the persistence the service runs against. Both the user table
// and the session slot live behind it.
type Store interface {
	LoadUserTable() (*store.UserTable, error)
	SaveUserTable(*store.UserTable) error
	LoadSession() (*models.PublicUser, error)
	SaveSession(models.PublicUser) error
	ClearSession() error
}

// Config carries the service knobs. Latency is the fixed suspend applied
// to Signup and Login; zero disables it (tests).
type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
	Latency   time.Duration
}

// Service owns the signup/login/session lifecycle. All access to stored
// secrets happens inside it; callers only ever see PublicUser views.
type Service struct {
	store   Store
	secret  []byte
	ttl     time.Duration
	latency time.Duration
	logger  *zap.SugaredLogger

	now       func() time.Time
	newID     func() string
	pickColor func() string

	// tableMu serializes the signup read-modify-write over the whole
	// table. The HTTP layer serves requests concurrently; without this,
	// two simultaneous signups could both pass the duplicate check and
	// the second save would silently drop the first record.
	tableMu sync.Mutex
}

func NewService(st Store, cfg Config, logger *zap.SugaredLogger) (*Service, error) {
	secret := strings.TrimSpace(cfg.JWTSecret)
	if secret == "" {
		return nil, ErrSecretRequired
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Service{
		store:   st,
		secret:  []byte(secret),
		ttl:     ttl,
		latency: cfg.Latency,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
		pickColor: func() string {
			return avatarPalette[rand.Intn(len(avatarPalette))]
		},
	}, nil
}

// Signup creates a new account and returns its public view. Usernames are
// unique under case-insensitive comparison; a duplicate attempt fails
// without touching the table.
func (s *Service) Signup(ctx context.Context, username, password string) (*models.PublicUser, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if strings.TrimSpace(password) == "" {
		return nil, ErrPasswordRequired
	}

	if err := s.simulateLatency(ctx); err != nil {
		return nil, err
	}

	s.tableMu.Lock()
	defer s.tableMu.Unlock()

	table, err := s.store.LoadUserTable()
	if err != nil {
		return nil, err
	}

	key := strings.ToLower(username)
	for _, u := range table.Users {
		if strings.ToLower(u.Username) == key {
			return nil, ErrDuplicateUsername
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		ID:          s.newID(),
		Username:    username,
		Secret:      string(hash),
		AvatarColor: s.pickColor(),
		DateJoined:  s.now().UTC(),
	}

	table.Users = append(table.Users, user)
	if err := s.store.SaveUserTable(table); err != nil {
		return nil, err
	}

	s.logger.Infow("user signed up", "username", user.Username, "id", user.ID)

	public := user.Sanitize()
	return &public, nil
}

// Login verifies credentials and returns the matching public view. The
// username comparison is case-insensitive, the password exact.
func (s *Service) Login(ctx context.Context, username, password string) (*models.PublicUser, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidCredentials
	}

	if err := s.simulateLatency(ctx); err != nil {
		return nil, err
	}

	table, err := s.store.LoadUserTable()
	if err != nil {
		return nil, err
	}

	key := strings.ToLower(username)
	for _, u := range table.Users {
		if strings.ToLower(u.Username) != key {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.Secret), []byte(password)) != nil {
			return nil, ErrInvalidCredentials
		}
		public := u.Sanitize()
		return &public, nil
	}

	return nil, ErrInvalidCredentials
}

// GetCurrentUser reads the persisted session slot, nil when anonymous.
// No latency applies here; this path runs at startup.
func (s *Service) GetCurrentUser() (*models.PublicUser, error) {
	return s.store.LoadSession()
}

// SetSession marks the given user as the authenticated browser. A later
// call overwrites, never merges.
func (s *Service) SetSession(user models.PublicUser) error {
	return s.store.SaveSession(user)
}

// ClearSession removes the logged-in marker.
func (s *Service) ClearSession() error {
	return s.store.ClearSession()
}

// IssueToken signs a bearer token for the HTTP surface.
func (s *Service) IssueToken(user models.PublicUser) (string, time.Time, error) {
	expiresAt := s.now().UTC().Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(s.now().UTC()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// VerifyToken validates a bearer token and returns its claims.
func (s *Service) VerifyToken(token string) (*jwt.RegisteredClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// simulateLatency suspends for the configured fixed delay, mimicking the
// round trip of a remote auth backend.
func (s *Service) simulateLatency(ctx context.Context) error {
	if s.latency <= 0 {
		return nil
	}

	timer := time.NewTimer(s.latency)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

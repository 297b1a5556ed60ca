package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	jwtExpiry        = 7 * 24 * time.Hour // 7 days
	bcryptCost       = 12
	minPasswordLen   = 4
	minUsernameLen   = 2
	maxUsernameLen   = 16
	loginRateWindow  = 60 * time.Second
	maxLoginAttempts = 10
)

var (
	ErrUsernameLength  = fmt.Errorf("username must be %d-%d characters", minUsernameLen, maxUsernameLen)
	ErrPasswordLength  = fmt.Errorf("password must be at least %d characters", minPasswordLen)
	ErrUsernameTaken   = errors.New("username already taken")
	ErrBadCredentials  = errors.New("invalid username or password")
	ErrTooManyAttempts = errors.New("too many login attempts, try again later")
	ErrInvalidToken    = errors.New("invalid token")
	ErrInternal        = errors.New("internal error")
)

// Auth handles accounts
type Auth struct {
	db        *DB
	jwtSecret []byte
	log       *zap.Logger
	now       func() time.Time

	// login attempts per IP
	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewAuth creates a new Auth handler
func NewAuth(db *DB, log *zap.Logger) *Auth {
	a := &Auth{
		db:      db,
		log:     log,
		now:     time.Now,
		rateMap: make(map[string]*rateEntry),
	}
	a.jwtSecret = a.loadOrCreateSecret()
	return a
}

// loadOrCreateSecret loads the JWT secret from the settings table, or
// generates and persists a new one if none exists.
func (a *Auth) loadOrCreateSecret() []byte {
	if a.db != nil {
		h, err := a.db.GetSetting("jwt_secret")
		if err != nil {
			a.log.Warn("read jwt secret", zap.Error(err))
		}
		if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
			return b
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	if a.db != nil {
		if err := a.db.SetSetting("jwt_secret", hex.EncodeToString(secret)); err != nil {
			a.log.Warn("could not persist JWT secret", zap.Error(err))
		}
	}
	return secret
}

// Register creates a new account
func (a *Auth) Register(username, password string) (int64, string, error) {
	if a.db == nil {
		return 0, "", ErrNoDatabase
	}
	username = strings.TrimSpace(username)
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return 0, "", ErrUsernameLength
	}
	if len(password) < minPasswordLen {
		return 0, "", ErrPasswordLength
	}

	exists, err := a.db.UsernameExists(username)
	if err != nil {
		a.log.Warn("username lookup", zap.Error(err))
		return 0, "", ErrInternal
	}
	if exists {
		return 0, "", ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return 0, "", ErrInternal
	}
	id, err := a.db.CreatePlayer(username, string(hash))
	if err != nil {
		a.log.Warn("create account", zap.String("username", username), zap.Error(err))
		return 0, "", ErrInternal
	}
	token, err := a.generateToken(id, username)
	if err != nil {
		return 0, "", ErrInternal
	}
	return id, token, nil
}

// Login authenticates a user and returns a JWT
func (a *Auth) Login(username, password, ip string) (int64, string, error) {
	if a.db == nil {
		return 0, "", ErrNoDatabase
	}
	if !a.checkRate(ip) {
		return 0, "", ErrTooManyAttempts
	}

	player, err := a.db.GetPlayerByUsername(strings.TrimSpace(username))
	if err != nil {
		a.log.Warn("account lookup", zap.Error(err))
		return 0, "", ErrInternal
	}
	if player == nil || player.PassHash == "" {
		return 0, "", ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(player.PassHash), []byte(password)); err != nil {
		return 0, "", ErrBadCredentials
	}

	token, err := a.generateToken(player.ID, player.Username)
	if err != nil {
		return 0, "", ErrInternal
	}
	return player.ID, token, nil
}

// ValidateToken validates a JWT and returns (playerID, username, error)
func (a *Auth) ValidateToken(tokenStr string) (int64, string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, "", ErrInvalidToken
	}
	pidFloat, ok := claims["pid"].(float64)
	if !ok {
		return 0, "", ErrInvalidToken
	}
	username, ok := claims["usr"].(string)
	if !ok {
		return 0, "", ErrInvalidToken
	}
	return int64(pidFloat), username, nil
}

func (a *Auth) generateToken(playerID int64, username string) (string, error) {
	now := a.now()
	claims := jwt.MapClaims{
		"pid": playerID,
		"usr": username,
		"exp": now.Add(jwtExpiry).Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

func (a *Auth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := a.now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(loginRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxLoginAttempts
}

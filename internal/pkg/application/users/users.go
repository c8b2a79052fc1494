// Package users keeps the account registry and issues the JWT pairs
// the API authenticates with.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/storage"
	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

var ErrNotFound = fmt.Errorf("user not found")
var ErrAlreadyExists = fmt.Errorf("username is taken")
var ErrInvalidCredentials = fmt.Errorf("invalid credentials")
var ErrInvalidToken = fmt.Errorf("invalid token")

//go:generate moq -rm -out users_mock.go . Management

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

type Management interface {
	Register(ctx context.Context, username, password string, role types.Role) (types.User, error)
	Login(ctx context.Context, username, password string) (types.User, TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)

	UpdateUser(ctx context.Context, user types.User) error
	SetPassword(ctx context.Context, userID, password string) error
	DeleteUser(ctx context.Context, userID string) error
	GetUser(ctx context.Context, userID string) (types.User, error)
	GetUserByUsername(ctx context.Context, username string) (types.User, error)
	QueryUsers(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.User], error)

	Auth() *jwtauth.JWTAuth
}

// Store is the persistence slice the service depends on.
type Store interface {
	AddUser(ctx context.Context, user types.User) error
	UpdateUser(ctx context.Context, user types.User) error
	DeleteUser(ctx context.Context, userID string) error
	GetUser(ctx context.Context, conditions ...storage.ConditionFunc) (types.User, error)
	QueryUsers(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.User], error)
}

type service struct {
	storage Store
	auth    *jwtauth.JWTAuth
}

func New(ctx context.Context, s Store) Management {
	secret := env.GetVariableOrDefault(ctx, "USERS_JWT_SECRET", "insecure-dev-secret")
	return &service{
		storage: s,
		auth:    jwtauth.New("HS256", []byte(secret), nil),
	}
}

func (s *service) Auth() *jwtauth.JWTAuth {
	return s.auth
}

func (s *service) Register(ctx context.Context, username, password string, role types.Role) (types.User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return types.User{}, fmt.Errorf("username and password are required")
	}
	if role == "" {
		role = types.RoleViewer
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	user := types.User{
		ID:           uuid.NewString(),
		Username:     strings.ToLower(username),
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}

	err = s.storage.AddUser(ctx, user)
	if errors.Is(err, storage.ErrAlreadyExists) {
		return types.User{}, ErrAlreadyExists
	}
	if err != nil {
		return types.User{}, err
	}

	return user, nil
}

func (s *service) Login(ctx context.Context, username, password string) (types.User, TokenPair, error) {
	user, err := s.storage.GetUser(ctx, storage.WithUsername(strings.ToLower(username)))
	if errors.Is(err, storage.ErrNoRows) {
		// burn a comparison anyway, a missing user should not be
		// distinguishable by timing
		bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000000000000000000000000000000000"), []byte(password))
		return types.User{}, TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return types.User{}, TokenPair{}, err
	}

	if !user.Active {
		return types.User{}, TokenPair{}, ErrInvalidCredentials
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		return types.User{}, TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.issueTokens(user)
	return user, pair, err
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	token, err := s.auth.Decode(refreshToken)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}

	claims, err := token.AsMap(ctx)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}
	if use, _ := claims["token_use"].(string); use != "refresh" {
		return TokenPair{}, ErrInvalidToken
	}

	userID, _ := claims["sub"].(string)
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}
	if !user.Active {
		return TokenPair{}, ErrInvalidToken
	}

	return s.issueTokens(user)
}

func (s *service) issueTokens(user types.User) (TokenPair, error) {
	now := time.Now().UTC()

	_, access, err := s.auth.Encode(map[string]any{
		"sub":      user.ID,
		"username": user.Username,
		"role":     string(user.Role),
		"iat":      now.Unix(),
		"exp":      now.Add(accessTokenTTL).Unix(),
	})
	if err != nil {
		return TokenPair{}, err
	}

	_, refresh, err := s.auth.Encode(map[string]any{
		"sub":       user.ID,
		"token_use": "refresh",
		"iat":       now.Unix(),
		"exp":       now.Add(refreshTokenTTL).Unix(),
	})
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(accessTokenTTL.Seconds()),
	}, nil
}

func (s *service) UpdateUser(ctx context.Context, user types.User) error {
	existing, err := s.GetUser(ctx, user.ID)
	if err != nil {
		return err
	}

	// password changes go through SetPassword
	user.PasswordHash = existing.PasswordHash

	err = s.storage.UpdateUser(ctx, user)
	if errors.Is(err, storage.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *service) SetPassword(ctx context.Context, userID, password string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.PasswordHash = string(hash)

	return s.storage.UpdateUser(ctx, user)
}

func (s *service) DeleteUser(ctx context.Context, userID string) error {
	err := s.storage.DeleteUser(ctx, userID)
	if errors.Is(err, storage.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *service) GetUser(ctx context.Context, userID string) (types.User, error) {
	user, err := s.storage.GetUser(ctx, storage.WithUserID(userID))
	if errors.Is(err, storage.ErrNoRows) {
		return types.User{}, ErrNotFound
	}
	return user, err
}

func (s *service) GetUserByUsername(ctx context.Context, username string) (types.User, error) {
	user, err := s.storage.GetUser(ctx, storage.WithUsername(strings.ToLower(username)))
	if errors.Is(err, storage.ErrNoRows) {
		return types.User{}, ErrNotFound
	}
	return user, err
}

func (s *service) QueryUsers(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.User], error) {
	return s.storage.QueryUsers(ctx, conditions...)
}

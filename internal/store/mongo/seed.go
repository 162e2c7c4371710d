package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/learnhub/chathub/internal/auth"
	"github.com/learnhub/chathub/internal/config"
	"github.com/learnhub/chathub/internal/domain/user"
	"github.com/learnhub/chathub/internal/security"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// EnsureAdminUser creates the configured admin account on startup if it does
// not exist yet. A no-op when the env vars are unset or the account exists.
func EnsureAdminUser(ctx context.Context, users *UsersRepo, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	_, err := users.GetByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	now := time.Now().UTC()

	admin := user.User{
		Name:         cfg.AdminName,
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		ProfileImage: user.DefaultProfileImage,
		Role:         auth.RoleAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = users.coll.InsertOne(ctx, admin)
	if mongo.IsDuplicateKeyError(err) {
		// raced another instance; the admin exists now
		return nil
	}
	return err
}

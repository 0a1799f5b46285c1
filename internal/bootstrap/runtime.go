// Package bootstrap wires the runtime dependencies shared by the server and
// the operator commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aquawaran/Clon-Official/internal/cache"
	"github.com/aquawaran/Clon-Official/internal/config"
	"github.com/aquawaran/Clon-Official/internal/database"
	"github.com/aquawaran/Clon-Official/internal/models"
	"github.com/aquawaran/Clon-Official/internal/repository"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// InitRuntime connects to the database and Redis and makes sure the
// configured creator account carries the creator flag. The Redis client is
// nil when Redis is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	rdb := cache.InitRedis(cfg.RedisURL)

	if err := EnsureCreator(ctx, cfg.CreatorID, repository.NewUserRepository(db)); err != nil {
		return nil, nil, fmt.Errorf("creator bootstrap failed: %w", err)
	}
	return db, rdb, nil
}

// EnsureCreator sets the creator flag on the account whose public id is
// creatorID. An account that does not exist yet is not an error: it gets the
// flag when it registers.
func EnsureCreator(ctx context.Context, creatorID string, users repository.UserRepository) error {
	creatorID = strings.TrimSpace(creatorID)
	if creatorID == "" {
		return nil
	}
	publicID, err := strconv.ParseInt(creatorID, 10, 64)
	if err != nil {
		return fmt.Errorf("CREATOR_ID %q is not a public id: %w", creatorID, err)
	}

	user, err := users.GetByPublicID(ctx, publicID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			slog.InfoContext(ctx, "creator account not registered yet", "public_id", publicID)
			return nil
		}
		return err
	}
	if user.IsCreator {
		return nil
	}
	if err := users.SetCreator(ctx, user.ID, true); err != nil {
		return err
	}
	slog.InfoContext(ctx, "creator role granted", "user_id", user.ID, "public_id", publicID)
	return nil
}

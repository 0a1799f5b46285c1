// Package testutil provides shared fixtures for backend tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/aquawaran/Clon-Official/internal/database"
	"github.com/aquawaran/Clon-Official/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var publicIDs atomic.Int64

// NewTestDB opens a migrated in-memory SQLite database. A single connection
// keeps the schema alive and serializes access.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// NewTestRedis starts a miniredis server and returns a client connected to it.
func NewTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// CreateUser inserts a user with a unique handle and public id.
func CreateUser(t testing.TB, db *gorm.DB, name string) *models.User {
	t.Helper()
	n := publicIDs.Add(1)
	handle := strings.ToLower(strings.ReplaceAll(name, " ", "_"))
	user := &models.User{
		Name:     name,
		Username: fmt.Sprintf("%s_%d", handle, n),
		Email:    fmt.Sprintf("%s_%d@example.com", handle, n),
		Password: "x",
		PublicID: 1_000_000 + n,
		Avatar:   "/avatars/" + handle + ".png",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreatePost inserts a post authored by authorID.
func CreatePost(t testing.TB, db *gorm.DB, authorID, content string) *models.Post {
	t.Helper()
	post := models.NewPost(authorID, content, nil)
	require.NoError(t, db.Omit("Author").Create(post).Error)
	return post
}

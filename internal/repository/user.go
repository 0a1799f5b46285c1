package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aquawaran/Clon-Official/internal/cache"
	"github.com/aquawaran/Clon-Official/internal/models"

	"gorm.io/gorm"
)

// MaxSearchResults caps user search responses.
const MaxSearchResults = 20

// UserFilter narrows the admin user listing.
type UserFilter struct {
	BannedOnly bool
	// Query matches name, username or public id.
	Query  string
	Limit  int
	Offset int
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByPublicID(ctx context.Context, publicID int64) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdateAvatar(ctx context.Context, id, avatar string) error
	SetBanned(ctx context.Context, id string, banned bool) error
	SetCreator(ctx context.Context, id string, creator bool) error
	Search(ctx context.Context, query string) ([]models.User, error)
	List(ctx context.Context, filter UserFilter) ([]models.User, error)
	Delete(ctx context.Context, id string) error

	RequestVerification(ctx context.Context, id, request string, at time.Time) error
	ListVerificationRequests(ctx context.Context) ([]models.User, error)
	ResolveVerification(ctx context.Context, id string, approved bool) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, dbError(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, dbError(err, "User", email)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, dbError(err, "User", username)
	}
	return &user, nil
}

func (r *userRepository) GetByPublicID(ctx context.Context, publicID int64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&user).Error; err != nil {
		return nil, dbError(err, "User", publicID)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return dbError(err, "User", user.Username)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Model(user).Select("name", "username", "bio", "avatar", "updated_at").Updates(user).Error
	if err != nil {
		return dbError(err, "User", user.ID)
	}
	return nil
}

func (r *userRepository) UpdateAvatar(ctx context.Context, id, avatar string) error {
	return r.updateColumn(ctx, id, "avatar", avatar)
}

func (r *userRepository) SetBanned(ctx context.Context, id string, banned bool) error {
	return r.updateColumn(ctx, id, "is_banned", banned)
}

func (r *userRepository) SetCreator(ctx context.Context, id string, creator bool) error {
	return r.updateColumn(ctx, id, "is_creator", creator)
}

func (r *userRepository) updateColumn(ctx context.Context, id, column string, value interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return dbError(res.Error, "User", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func (r *userRepository) Search(ctx context.Context, query string) ([]models.User, error) {
	var users []models.User
	like := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	err := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ? OR LOWER(username) LIKE ?", like, like).
		Order("username ASC").
		Limit(MaxSearchResults).
		Find(&users).Error
	if err != nil {
		return nil, dbError(err, "User", nil)
	}
	return users, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]models.User, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	q := r.db.WithContext(ctx).Model(&models.User{})
	if filter.BannedOnly {
		q = q.Where("is_banned = ?", true)
	}
	if s := strings.TrimSpace(filter.Query); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(username) LIKE ? OR CAST(public_id AS TEXT) = ?", like, like, s)
	}

	var users []models.User
	if err := q.Order("created_at DESC").Limit(limit).Offset(filter.Offset).Find(&users).Error; err != nil {
		return nil, dbError(err, "User", nil)
	}
	return users, nil
}

// Delete removes the user together with their posts, follow edges and notifications.
func (r *userRepository) Delete(ctx context.Context, id string) error {
	var followees []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Follow{}).Where("follower_id = ?", id).Pluck("following_id", &followees).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Where("follower_id = ? OR following_id = ?", id, id).Delete(&models.Follow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", id).Delete(&models.Post{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("User", id)
		}
		return nil
	})
	if err != nil {
		return dbError(err, "User", id)
	}
	cache.InvalidateFollowCounts(ctx, append(followees, id)...)
	return nil
}

func (r *userRepository) RequestVerification(ctx context.Context, id, request string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"verification_request":      request,
		"verification_requested_at": at,
	})
	if res.Error != nil {
		return dbError(res.Error, "User", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func (r *userRepository) ListVerificationRequests(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("verification_request IS NOT NULL").
		Order("verification_requested_at ASC").
		Find(&users).Error
	if err != nil {
		return nil, dbError(err, "User", nil)
	}
	return users, nil
}

// ResolveVerification clears a pending request and sets the badge to approved.
func (r *userRepository) ResolveVerification(ctx context.Context, id string, approved bool) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND verification_request IS NOT NULL", id).
		Updates(map[string]interface{}{
			"is_verified":               approved,
			"verification_request":      nil,
			"verification_requested_at": nil,
		})
	if res.Error != nil {
		return dbError(res.Error, "User", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Verification request", id)
	}
	return nil
}

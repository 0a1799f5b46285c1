package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/aquawaran/Clon-Official/internal/models"
	"github.com/aquawaran/Clon-Official/internal/repository"
	"github.com/aquawaran/Clon-Official/internal/validation"

	"github.com/bwmarrin/snowflake"
	"golang.org/x/crypto/bcrypt"
)

const maxBioLen = 500

// RegisterInput is the data needed to open an account.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,password"`
}

// ProfileInput carries profile edits. Nil fields are left unchanged.
type ProfileInput struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
	Bio      *string `json:"bio"`
}

type UserService struct {
	users     repository.UserRepository
	follows   repository.FollowRepository
	ids       *snowflake.Node
	creatorID string
	cost      int
}

// NewUserService creates a UserService. creatorID is the public id that
// holds the creator role; empty means nobody does.
func NewUserService(users repository.UserRepository, follows repository.FollowRepository, ids *snowflake.Node, creatorID string) *UserService {
	return &UserService{
		users:     users,
		follows:   follows,
		ids:       ids,
		creatorID: strings.TrimSpace(creatorID),
		cost:      bcrypt.DefaultCost,
	}
}

// IsCreatorID reports whether publicID is the configured creator.
func (s *UserService) IsCreatorID(publicID int64) bool {
	return s.creatorID != "" && s.creatorID == strconv.FormatInt(publicID, 10)
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("User with this email already exists")
	}
	existing, err = s.users.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("User with this username already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	publicID := s.ids.Generate().Int64()
	user := &models.User{
		Name:      in.Name,
		Username:  in.Username,
		Email:     in.Email,
		Password:  string(hashed),
		PublicID:  publicID,
		IsCreator: s.IsCreatorID(publicID),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords fail
// the same way.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("invalid email or password")
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Me returns the caller's own profile with follow counts.
func (s *UserService) Me(ctx context.Context, userID string) (*models.UserProfile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	counts, err := s.follows.Counts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.UserProfile{
		User:           user,
		Email:          user.Email,
		FollowersCount: counts.Followers,
		FollowingCount: counts.Following,
	}, nil
}

// UpdateProfile edits name, username and bio. Comments already written keep
// the author attribution they were created with.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" || len([]rune(name)) > 100 {
			return nil, models.NewValidationError("name must be between 1 and 100 characters")
		}
		user.Name = name
	}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		if username != user.Username {
			taken, err := s.users.GetByUsername(ctx, username)
			if err != nil {
				return nil, err
			}
			if taken != nil && taken.ID != user.ID {
				return nil, models.NewConflictError("This username is already taken")
			}
		}
		user.Username = username
	}
	if in.Bio != nil {
		if len([]rune(*in.Bio)) > maxBioLen {
			return nil, models.NewValidationError("bio must not exceed 500 characters")
		}
		user.Bio = *in.Bio
	}

	user.UpdatedAt = time.Now()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateAvatar stores a reference to an already hosted image.
func (s *UserService) UpdateAvatar(ctx context.Context, userID, avatar string) (*models.User, error) {
	avatar = strings.TrimSpace(avatar)
	if avatar == "" {
		return nil, models.NewValidationError("avatar is required")
	}
	if err := s.users.UpdateAvatar(ctx, userID, avatar); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}

func (s *UserService) Search(ctx context.Context, query string) ([]models.User, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.NewValidationError("query is required")
	}
	return s.users.Search(ctx, query)
}

// DeleteAccount removes the user and everything they own.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	return s.users.Delete(ctx, userID)
}

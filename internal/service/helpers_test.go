package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aquawaran/Clon-Official/internal/models"
	"github.com/aquawaran/Clon-Official/internal/notifications"
	"github.com/aquawaran/Clon-Official/internal/repository"
	"github.com/aquawaran/Clon-Official/internal/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn       func(context.Context, *models.Post) error
	getByIDFn      func(context.Context, string) (*models.Post, error)
	replaceFn      func(context.Context, *models.Post) error
	deleteFn       func(context.Context, string) error
	listFn         func(context.Context, int, int) ([]*models.Post, error)
	listByAuthorFn func(context.Context, string, int, int) ([]*models.Post, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id string) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) Replace(ctx context.Context, post *models.Post) error {
	return s.replaceFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *postRepoStub) ListByAuthor(ctx context.Context, authorID string, limit, offset int) ([]*models.Post, error) {
	return s.listByAuthorFn(ctx, authorID, limit, offset)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id string) (*models.Post, error) {
			p := models.NewPost("author", "hello", nil)
			p.ID = id
			return p, nil
		},
		replaceFn: func(_ context.Context, p *models.Post) error {
			p.Version++
			return nil
		},
		deleteFn:       func(_ context.Context, _ string) error { return nil },
		listFn:         func(_ context.Context, _, _ int) ([]*models.Post, error) { return nil, nil },
		listByAuthorFn: func(_ context.Context, _ string, _, _ int) ([]*models.Post, error) { return nil, nil },
	}
}

type recordedEvent struct {
	To      string
	Kind    notifications.EventKind
	Payload interface{}
}

// recordingBroadcaster captures emitted events in call order.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *recordingBroadcaster) EmitAll(kind notifications.EventKind, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{Kind: kind, Payload: payload})
}

func (b *recordingBroadcaster) EmitTo(userID string, kind notifications.EventKind, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{To: userID, Kind: kind, Payload: payload})
}

func (b *recordingBroadcaster) Events() []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recordedEvent(nil), b.events...)
}

func (b *recordingBroadcaster) OfKind(kind notifications.EventKind) []recordedEvent {
	var out []recordedEvent
	for _, e := range b.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// services bundles every service over one SQLite database.
type services struct {
	db            *gorm.DB
	events        *recordingBroadcaster
	posts         *PostService
	users         *UserService
	follows       *FollowService
	notifications *NotificationService
	admin         *AdminService
	coordinator   *MutationCoordinator
}

func newServices(t *testing.T, creatorID string) *services {
	t.Helper()
	db := testutil.NewTestDB(t)
	events := &recordingBroadcaster{}

	postRepo := repository.NewPostRepository(db)
	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	coordinator := NewMutationCoordinator(postRepo, 2*time.Second)
	notes := NewNotificationService(repository.NewNotificationRepository(db), events)
	users := NewUserService(userRepo, followRepo, node, creatorID)
	users.cost = bcrypt.MinCost

	return &services{
		db:            db,
		events:        events,
		posts:         NewPostService(postRepo, userRepo, coordinator, notes, events),
		users:         users,
		follows:       NewFollowService(followRepo, userRepo, notes),
		notifications: notes,
		admin:         NewAdminService(userRepo, notes),
		coordinator:   coordinator,
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

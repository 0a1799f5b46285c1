package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aquawaran/Clon-Official/internal/models"
	"github.com/aquawaran/Clon-Official/internal/observability"
	"github.com/aquawaran/Clon-Official/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	// DefaultMutationTimeout bounds each gateway call made under a post lock.
	DefaultMutationTimeout = 5 * time.Second
	maxMutationAttempts    = 3
)

// Transform edits a freshly loaded post in place. Returning an error aborts
// the mutation without writing anything.
type Transform func(post *models.Post) error

// CommitHook runs after a successful write while the post lock is still
// held. It must not block.
type CommitHook func(post *models.Post)

// MutationCoordinator serializes read-modify-write cycles per post id.
// Mutations on different posts never wait for each other.
type MutationCoordinator struct {
	posts   repository.PostRepository
	locks   *KeyedLocker
	timeout time.Duration
}

// NewMutationCoordinator creates a coordinator over posts.
func NewMutationCoordinator(posts repository.PostRepository, timeout time.Duration) *MutationCoordinator {
	if timeout <= 0 {
		timeout = DefaultMutationTimeout
	}
	return &MutationCoordinator{
		posts:   posts,
		locks:   NewKeyedLocker(),
		timeout: timeout,
	}
}

// Mutate loads postID, applies transform and replaces the whole record.
// op labels metrics and traces.
func (m *MutationCoordinator) Mutate(ctx context.Context, op, postID string, transform Transform, onCommit CommitHook) (post *models.Post, err error) {
	span, ctx := observability.NewSpan(ctx, "posts.mutate",
		attribute.String("post.id", postID),
		attribute.String("mutation.op", op),
	)
	defer func() {
		span.SetError(err)
		span.End()
		observability.PostMutations.WithLabelValues(op, resultLabel(err)).Inc()
	}()

	unlock, err := m.acquire(ctx, postID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Once the lock is held the mutation runs to completion or timeout
	// regardless of the caller going away.
	work := context.WithoutCancel(ctx)

	for attempt := 1; ; attempt++ {
		post, err = m.load(work, postID)
		if err != nil {
			return nil, err
		}
		if err = transform(post); err != nil {
			return nil, err
		}
		err = m.replace(work, post)
		if err == nil {
			break
		}
		if !errors.Is(err, models.ErrConflict) || attempt >= maxMutationAttempts {
			return nil, err
		}
		observability.PostMutationConflicts.Inc()
		slog.WarnContext(ctx, "post version conflict, retrying",
			slog.String("post_id", postID),
			slog.Int("attempt", attempt),
		)
	}

	span.AddAttributes(attribute.Int64("post.version", post.Version))
	runHook(ctx, onCommit, post)
	return post, nil
}

// Delete removes postID under the same lock as Mutate, so a queued mutation
// observes the deletion and fails with NotFound. authorize may reject the
// deletion after the post has been loaded.
func (m *MutationCoordinator) Delete(ctx context.Context, postID string, authorize Transform, onCommit CommitHook) (post *models.Post, err error) {
	span, ctx := observability.NewSpan(ctx, "posts.delete", attribute.String("post.id", postID))
	defer func() {
		span.SetError(err)
		span.End()
		observability.PostMutations.WithLabelValues("delete", resultLabel(err)).Inc()
	}()

	unlock, err := m.acquire(ctx, postID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	work := context.WithoutCancel(ctx)
	post, err = m.load(work, postID)
	if err != nil {
		return nil, err
	}
	if authorize != nil {
		if err = authorize(post); err != nil {
			return nil, err
		}
	}

	callCtx, cancel := context.WithTimeout(work, m.timeout)
	defer cancel()
	if err = m.posts.Delete(callCtx, postID); err != nil {
		return nil, gatewayError(callCtx, err)
	}

	runHook(ctx, onCommit, post)
	return post, nil
}

func (m *MutationCoordinator) acquire(ctx context.Context, postID string) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	unlock, err := m.locks.Lock(waitCtx, postID)
	observability.PostLockWait.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, models.NewUnavailableError(fmt.Errorf("waiting for post %s: %w", postID, err))
	}
	return unlock, nil
}

func (m *MutationCoordinator) load(ctx context.Context, postID string) (*models.Post, error) {
	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	post, err := m.posts.GetByID(callCtx, postID)
	if err != nil {
		return nil, gatewayError(callCtx, err)
	}
	return post, nil
}

func (m *MutationCoordinator) replace(ctx context.Context, post *models.Post) error {
	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.posts.Replace(callCtx, post); err != nil {
		return gatewayError(callCtx, err)
	}
	return nil
}

// gatewayError keeps NotFound and Conflict and reports everything else,
// including timeouts, as Unavailable.
func gatewayError(ctx context.Context, err error) error {
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrConflict) {
		return err
	}
	if errors.Is(err, models.ErrUnavailable) {
		return err
	}
	if ctx.Err() != nil {
		return models.NewUnavailableError(fmt.Errorf("%w: %w", ctx.Err(), err))
	}
	return models.NewUnavailableError(err)
}

func runHook(ctx context.Context, hook CommitHook, post *models.Post) {
	if hook == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "commit hook panicked",
				slog.String("post_id", post.ID),
				slog.Any("panic", r),
			)
		}
	}()
	hook(post)
}

func resultLabel(err error) string {
	var appErr *models.AppError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &appErr):
		switch appErr.Code {
		case models.CodeNotFound:
			return "not_found"
		case models.CodeConflict:
			return "conflict"
		case models.CodeUnavailable:
			return "unavailable"
		case models.CodeInvalidReaction, models.CodeInvalidComment, models.CodeValidation:
			return "invalid"
		case models.CodeForbidden:
			return "forbidden"
		}
	}
	return "error"
}

package server

import (
	"net/http"
	"testing"

	"github.com/aquawaran/Clon-Official/internal/models"
	"github.com/aquawaran/Clon-Official/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostLifecycle(t *testing.T) {
	env := newTestEnv(t)
	author := testutil.CreateUser(t, env.db, "Author")
	reader := testutil.CreateUser(t, env.db, "Reader")
	authorToken := env.tokenFor(t, author)
	readerToken := env.tokenFor(t, reader)

	var post models.Post
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/posts", authorToken,
		map[string]interface{}{"content": "hello world"}, &post))
	require.NotEmpty(t, post.ID)

	var feed []models.Post
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/posts?limit=5", readerToken, nil, &feed))
	require.Len(t, feed, 1)
	assert.Equal(t, post.ID, feed[0].ID)

	var reacted struct {
		Reactions models.ReactionMap `json:"reactions"`
	}
	path := "/api/posts/" + post.ID
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, path+"/reactions", readerToken,
		map[string]string{"reaction": "heart"}, &reacted))
	assert.Equal(t, []string{reader.ID}, reacted.Reactions[models.ReactionHeart])

	var errBody models.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, path+"/reactions", readerToken,
		map[string]string{"reaction": "wow"}, &errBody))
	assert.Equal(t, models.CodeInvalidReaction, errBody.Code)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/posts/nope/reactions", readerToken,
		map[string]string{"reaction": "wow"}, &errBody))
	assert.Equal(t, models.CodeNotFound, errBody.Code)

	var comment models.Comment
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, path+"/comments", readerToken,
		map[string]string{"text": "nice"}, &comment))
	assert.Equal(t, reader.Name, comment.AuthorName)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, path+"/comments", readerToken,
		map[string]string{"text": "  "}, &errBody))
	assert.Equal(t, models.CodeInvalidComment, errBody.Code)

	var stored models.Post
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, path, readerToken, nil, &stored))
	assert.Len(t, stored.CommentLedger(), 1)
	assert.Equal(t, int64(3), stored.Version)

	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodDelete, path, readerToken, nil, nil))
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, path, authorToken, nil, nil))
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, path, readerToken, nil, nil))
}

func TestCreatePost_RejectsEmpty(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(t, testutil.CreateUser(t, env.db, "Author"))

	var errBody models.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/posts", token,
		map[string]interface{}{"content": ""}, &errBody))
	assert.Equal(t, models.CodeValidation, errBody.Code)
}

func TestFollowAndNotifications(t *testing.T) {
	env := newTestEnv(t)
	ann := testutil.CreateUser(t, env.db, "Ann")
	bob := testutil.CreateUser(t, env.db, "Bob")
	annToken := env.tokenFor(t, ann)
	bobToken := env.tokenFor(t, bob)

	var result struct {
		Following bool `json:"following"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/users/"+ann.ID+"/follow", bobToken, nil, &result))
	assert.True(t, result.Following)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/users/"+bob.ID+"/follow", bobToken, nil, nil))

	var followers []models.User
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/users/"+ann.ID+"/followers", annToken, nil, &followers))
	require.Len(t, followers, 1)
	assert.Equal(t, bob.ID, followers[0].ID)

	var list []models.Notification
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/notifications", annToken, nil, &list))
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationFollow, list[0].Type)

	var marked struct {
		Updated int64 `json:"updated"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/notifications/read", annToken, nil, &marked))
	assert.Equal(t, int64(1), marked.Updated)
}

func TestProfileEndpoints(t *testing.T) {
	env := newTestEnv(t)
	ann := testutil.CreateUser(t, env.db, "Ann")
	token := env.tokenFor(t, ann)

	var profile models.UserProfile
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, "/api/profile", token,
		map[string]string{"bio": "hi there"}, &profile))
	assert.Equal(t, "hi there", profile.Bio)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPut, "/api/avatar", token,
		map[string]string{}, nil))
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, "/api/avatar", token,
		map[string]string{"avatar": "/avatars/new.png"}, &profile))
	assert.Equal(t, "/avatars/new.png", profile.Avatar)

	var found []models.User
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/users/search?q=ann", token, nil, &found))
	assert.Len(t, found, 1)

	assert.Equal(t, http.StatusAccepted, env.do(t, http.MethodPost, "/api/verification/request", token,
		map[string]string{"request": "please"}, nil))

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, "/api/account", token, nil, nil))
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/me", token, nil, nil))
}

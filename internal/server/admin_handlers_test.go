package server

import (
	"net/http"
	"testing"

	"github.com/aquawaran/Clon-Official/internal/models"
	"github.com/aquawaran/Clon-Official/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminRoutes(t *testing.T) {
	env := newTestEnv(t)
	creator := testutil.CreateUser(t, env.db, "Creator")
	require.NoError(t, env.db.Model(creator).Update("is_creator", true).Error)
	member := testutil.CreateUser(t, env.db, "Member")
	creatorToken := env.tokenFor(t, creator)
	memberToken := env.tokenFor(t, member)

	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/api/admin/users", memberToken, nil, nil))

	var users []models.User
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/admin/users?filter=all", creatorToken, nil, &users))
	assert.Len(t, users, 2)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/admin/users?filter=odd", creatorToken, nil, nil))

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/admin/users/"+member.ID+"/ban", creatorToken,
		map[string]interface{}{}, nil))

	var banned models.User
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/admin/users/"+member.ID+"/ban", creatorToken,
		map[string]interface{}{"banned": true}, &banned))
	assert.True(t, banned.IsBanned)

	var errBody models.ErrorResponse
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPost, "/api/posts", memberToken,
		map[string]interface{}{"content": "let me in"}, &errBody))
	assert.Equal(t, models.CodeForbidden, errBody.Code)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/admin/users?filter=banned", creatorToken, nil, &users))
	require.Len(t, users, 1)
	assert.Equal(t, member.ID, users[0].ID)
}

func TestAdminVerificationRoutes(t *testing.T) {
	env := newTestEnv(t)
	creator := testutil.CreateUser(t, env.db, "Creator")
	require.NoError(t, env.db.Model(creator).Update("is_creator", true).Error)
	member := testutil.CreateUser(t, env.db, "Member")
	creatorToken := env.tokenFor(t, creator)
	memberToken := env.tokenFor(t, member)

	require.Equal(t, http.StatusAccepted, env.do(t, http.MethodPost, "/api/verification/request", memberToken,
		map[string]string{"request": "official account"}, nil))

	var pending []models.User
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/admin/verification", creatorToken, nil, &pending))
	require.Len(t, pending, 1)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/admin/verification/"+member.ID+"/reject", creatorToken, nil, nil))
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/admin/verification/"+member.ID+"/approve", creatorToken, nil, nil))
}

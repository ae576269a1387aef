package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-test-secret-test-secret"

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(testSecret), func(c *gin.Context) {
		id, ok := util.GetIdentity(c)
		if !ok {
			util.Unauthorized(c)
			return
		}
		util.Success(c, id)
	})
	r.GET("/staff", AuthMiddleware(testSecret), RoleMiddleware(model.Instructor), func(c *gin.Context) {
		util.Success(c, nil)
	})
	return r
}

func token(t *testing.T, role model.UserRole) string {
	t.Helper()
	user := &model.User{UUIDBase: model.UUIDBase{ID: "u1"}, Nome: "Ana", Setor: "TI", Role: role}
	tok, err := util.GenerateJWT(user, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func do(r *gin.Engine, path, tok string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "garbage").Code)

	w := do(r, "/me", token(t, model.Learner))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"setor":"TI"`)

	// 查询参数中的令牌
	w = do(r, "/me?token="+token(t, model.Learner), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoleMiddleware(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusForbidden, do(r, "/staff", token(t, model.Learner)).Code)
	assert.Equal(t, http.StatusOK, do(r, "/staff", token(t, model.Instructor)).Code)
	assert.Equal(t, http.StatusOK, do(r, "/staff", token(t, model.Admin)).Code)
}

package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/songzhibin97/portfolio/internal/auth"
	"github.com/songzhibin97/portfolio/internal/repository"
	"github.com/songzhibin97/portfolio/internal/store/driver/memory"
	"github.com/songzhibin97/portfolio/pkg/log"
	"github.com/songzhibin97/portfolio/pkg/portfolio"
)

type testEnv struct {
	router *gin.Engine
	db     *memory.Database
	tokens *auth.JWTManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := memory.New()
	logger := log.NewNop()

	hasher, err := auth.NewPasswordHasherWithCost(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := auth.NewJWTManager("test-secret", "HS256", time.Hour, "portfolio")
	require.NoError(t, err)

	router := gin.New()
	api := router.Group("/api")

	NewDetailHandler(repository.New[portfolio.Detail](db.Collection(CollectionDetail), repository.WithLogger(logger)), logger).RegisterRoutes(api)
	NewTechStackHandler(repository.New[portfolio.TechStack](db.Collection(CollectionTechStack), repository.WithLogger(logger)), logger).RegisterRoutes(api)
	NewProjectHandler(repository.New[portfolio.Project](db.Collection(CollectionProject), repository.WithLogger(logger)), logger).RegisterRoutes(api)
	NewExperienceHandler(repository.New[portfolio.Experience](db.Collection(CollectionExperience), repository.WithLogger(logger)), logger).RegisterRoutes(api)
	NewUserHandler(repository.New[portfolio.User](db.Collection(CollectionUser), repository.WithLogger(logger)), hasher, tokens, logger).RegisterRoutes(api)

	return &testEnv{router: router, db: db, tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestDetailScenario(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/detail", map[string]string{"name": "A", "description": "d", "image": "i"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode[portfolio.Detail](t, w)
	require.False(t, created.ID.IsZero())
	assert.Equal(t, "A", created.Name)

	w = env.do(t, http.MethodGet, "/api/detail", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []portfolio.Detail{created}, decode[[]portfolio.Detail](t, w))

	w = env.do(t, http.MethodPut, "/api/detail/"+created.ID.Hex(), map[string]string{"name": "B"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, portfolio.Detail{ID: created.ID, Name: "B", Description: "d", Image: "i"}, decode[portfolio.Detail](t, w))

	w = env.do(t, http.MethodGet, "/api/detail/"+created.ID.Hex(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "d", decode[portfolio.Detail](t, w).Description)

	w = env.do(t, http.MethodDelete, "/api/detail/"+created.ID.Hex(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, DeletedMessage, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/detail/"+created.ID.Hex(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Detail repository error: Specified ID not found", decode[string](t, w))

	w = env.do(t, http.MethodDelete, "/api/detail/"+created.ID.Hex(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateIgnoresClientID(t *testing.T) {
	env := newTestEnv(t)
	injected := primitive.NewObjectID()

	w := env.do(t, http.MethodPost, "/api/tech-stack", map[string]string{"id": injected.Hex(), "name": "Go", "category": "language"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	created := decode[portfolio.TechStack](t, w)
	assert.NotEqual(t, injected, created.ID)
	assert.Equal(t, "Go", created.Name)
}

func TestGetAllEmptyIsArray(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/detail", "/api/tech-stack", "/api/projects", "/api/experiences", "/api/users"} {
		w := env.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.JSONEq(t, "[]", w.Body.String(), path)
	}
}

func TestMalformedRequests(t *testing.T) {
	env := newTestEnv(t)
	missing := primitive.NewObjectID().Hex()

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"create malformed json", http.MethodPost, "/api/projects", "{", http.StatusBadRequest},
		{"create empty body", http.MethodPost, "/api/projects", "", http.StatusBadRequest},
		{"create wrong field type", http.MethodPost, "/api/projects", `{"tech_stack":"go"}`, http.StatusBadRequest},
		{"get bad id", http.MethodGet, "/api/projects/not-an-id", nil, http.StatusBadRequest},
		{"get missing id", http.MethodGet, "/api/projects/" + missing, nil, http.StatusNotFound},
		{"update bad id", http.MethodPut, "/api/projects/not-an-id", map[string]string{"name": "x"}, http.StatusBadRequest},
		{"update missing id", http.MethodPut, "/api/projects/" + missing, map[string]string{"name": "x"}, http.StatusNotFound},
		{"update empty fields", http.MethodPut, "/api/projects/" + missing, "{}", http.StatusBadRequest},
		{"update malformed json", http.MethodPut, "/api/projects/" + missing, "{", http.StatusBadRequest},
		{"delete bad id", http.MethodDelete, "/api/projects/123", nil, http.StatusBadRequest},
		{"delete missing id", http.MethodDelete, "/api/projects/" + missing, nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, decode[string](t, w), "Project repository error: ")
		})
	}
}

func TestEmptyPathID(t *testing.T) {
	env := newTestEnv(t)
	h := NewDetailHandler(repository.New[portfolio.Detail](env.db.Collection(CollectionDetail)), log.NewNop())

	for _, fn := range []gin.HandlerFunc{h.GetOne, h.Update, h.Delete} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/api/detail/", nil)

		fn(c)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}

func TestExperiencePartialUpdate(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/experiences", portfolio.Experience{
		Role: "dev", Company: "c", Description: "d", Start: year(2019), End: year(2021), TechStack: []string{"go"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode[portfolio.Experience](t, w)

	w = env.do(t, http.MethodPut, "/api/experiences/"+created.ID.Hex(), `{"end":2024,"tech_stack":["go","mongo"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	updated := decode[portfolio.Experience](t, w)
	require.NotNil(t, updated.End)
	require.NotNil(t, updated.Start)
	assert.Equal(t, uint32(2024), *updated.End)
	assert.Equal(t, uint32(2019), *updated.Start)
	assert.Equal(t, []string{"go", "mongo"}, updated.TechStack)
	assert.Equal(t, "dev", updated.Role)
}

func year(y uint32) *uint32 { return &y }

func TestCreateRequiresFields(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		path   string
		body   string
		prefix string
	}{
		{"detail empty", "/api/detail", `{}`, "Detail"},
		{"detail missing description", "/api/detail", `{"name":"A"}`, "Detail"},
		{"tech stack empty", "/api/tech-stack", `{}`, "TechStack"},
		{"project empty", "/api/projects", `{}`, "Project"},
		{"project null tech stack", "/api/projects", `{"name":"p","tech_stack":null}`, "Project"},
		{"experience empty", "/api/experiences", `{}`, "Experience"},
		{"experience missing end", "/api/experiences", `{"role":"dev","company":"c","start":2019,"tech_stack":[]}`, "Experience"},
		{"user empty", "/api/users", `{}`, "User"},
		{"user without email", "/api/users", `{"password":"pw"}`, "User"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, decode[string](t, w), tt.prefix+" repository error: ")
		})
	}

	for _, path := range []string{"/api/detail", "/api/tech-stack", "/api/projects", "/api/experiences", "/api/users"} {
		w := env.do(t, http.MethodGet, path, nil)
		assert.JSONEq(t, "[]", w.Body.String(), path)
	}
}

func TestCreateAcceptsZeroValues(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/experiences", `{"role":"dev","company":"c","start":0,"end":0,"tech_stack":[]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	experience := decode[portfolio.Experience](t, w)
	require.NotNil(t, experience.End)
	assert.Equal(t, uint32(0), *experience.End)
	assert.Equal(t, []string{}, experience.TechStack)

	w = env.do(t, http.MethodPost, "/api/projects", `{"name":"p","tech_stack":[]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, "[]", mustField(t, w, "tech_stack"))
}

func mustField(t *testing.T, w *httptest.ResponseRecorder, key string) string {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fields))
	raw, ok := fields[key]
	require.True(t, ok, key)
	return string(raw)
}

func TestUserUpdateRejectsEmptyEmail(t *testing.T) {
	env := newTestEnv(t)
	user := createUser(t, env, "a@example.com", "pw")

	w := env.do(t, http.MethodPut, "/api/users/"+user.ID.Hex(), `{"email":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestUserPasswordTooLong(t *testing.T) {
	env := newTestEnv(t)
	long := strings.Repeat("p", 80)

	w := env.do(t, http.MethodPost, "/api/users", map[string]string{"email": "a@example.com", "password": long})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, "User repository error: Password is too long", decode[string](t, w))

	user := createUser(t, env, "a@example.com", "pw")
	w = env.do(t, http.MethodPut, "/api/users/auth/"+user.ID.Hex(), portfolio.PasswordUpdate{OldPassword: "pw", NewPassword: long})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func createUser(t *testing.T, env *testEnv, email, password string) portfolio.User {
	t.Helper()
	w := env.do(t, http.MethodPost, "/api/users", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[portfolio.User](t, w)
}

func TestUserCreateRedactsPassword(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/users", map[string]string{"email": "a@example.com", "password": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User repository error: Invalid empty password", decode[string](t, w))

	w = env.do(t, http.MethodPost, "/api/users", map[string]string{"email": "a@example.com", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	user := decode[portfolio.User](t, w)

	w = env.do(t, http.MethodGet, "/api/users/"+user.ID.Hex(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[portfolio.User](t, w).Password)

	w = env.do(t, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, u := range decode[[]portfolio.User](t, w) {
		assert.Empty(t, u.Password)
	}

	w = env.do(t, http.MethodPut, "/api/users/"+user.ID.Hex(), map[string]string{"email": "b@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[portfolio.User](t, w)
	assert.Equal(t, "b@example.com", updated.Email)
	assert.Empty(t, updated.Password)

	// the stored value is a hash, never the plain password
	stored, err := env.db.Collection(CollectionUser).FindOne(t.Context(), map[string]interface{}{"email": "b@example.com"})
	require.NoError(t, err)
	hash := stored.Lookup("password").StringValue()
	assert.NotEqual(t, "pw", hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")))
}

func TestUserAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	user := createUser(t, env, "a@example.com", "pw")

	w := env.do(t, http.MethodPost, "/api/users/auth", portfolio.Credentials{Email: "a@example.com", Password: "pw"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	claims, err := env.tokens.ValidateToken(decode[string](t, w))
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, user.ID.Hex(), claims.ID)

	w = env.do(t, http.MethodPost, "/api/users/auth", portfolio.Credentials{Email: "a@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "User repository error: Invalid credentials", decode[string](t, w))

	w = env.do(t, http.MethodPost, "/api/users/auth", portfolio.Credentials{Email: "nobody@example.com", Password: "pw"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/users/auth", "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserAuthenticateCorruptHash(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.db.Collection(CollectionUser).InsertOne(t.Context(), portfolio.User{Email: "a@example.com", Password: "not-a-hash"})
	require.NoError(t, err)

	w := env.do(t, http.MethodPost, "/api/users/auth", portfolio.Credentials{Email: "a@example.com", Password: "pw"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "not-a-hash")
}

func TestUserUpdatePassword(t *testing.T) {
	env := newTestEnv(t)
	user := createUser(t, env, "a@example.com", "old")
	path := "/api/users/auth/" + user.ID.Hex()

	w := env.do(t, http.MethodPut, path, portfolio.PasswordUpdate{OldPassword: "old", NewPassword: ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, path, portfolio.PasswordUpdate{OldPassword: "wrong", NewPassword: "new"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPut, "/api/users/auth/"+primitive.NewObjectID().Hex(), portfolio.PasswordUpdate{OldPassword: "old", NewPassword: "new"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPut, "/api/users/auth/bad", portfolio.PasswordUpdate{OldPassword: "old", NewPassword: "new"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, path, portfolio.PasswordUpdate{OldPassword: "old", NewPassword: "new"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[portfolio.User](t, w)
	assert.Equal(t, user.ID, updated.ID)
	assert.Empty(t, updated.Password)

	w = env.do(t, http.MethodPost, "/api/users/auth", portfolio.Credentials{Email: "a@example.com", Password: "old"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = env.do(t, http.MethodPost, "/api/users/auth", portfolio.Credentials{Email: "a@example.com", Password: "new"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStoreFailureIs500(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.db.Close(t.Context()))

	w := env.do(t, http.MethodGet, "/api/detail", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Detail repository error: Failed to list records", decode[string](t, w))
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/songzhibin97/portfolio/internal/auth"
	"github.com/songzhibin97/portfolio/pkg/log"
	"github.com/songzhibin97/portfolio/pkg/portfolio"
)

// UserHandler serves /users. Passwords are hashed before they are stored and
// never returned.
type UserHandler struct {
	*CRUDHandler[portfolio.User, portfolio.UserUpdate]
	hasher *auth.PasswordHasher
	tokens *auth.JWTManager
}

// NewUserHandler creates a new user handler
func NewUserHandler(repo portfolio.Repository[portfolio.User], hasher *auth.PasswordHasher, tokens *auth.JWTManager, logger log.Logger) *UserHandler {
	return &UserHandler{
		CRUDHandler: NewCRUDHandler[portfolio.User, portfolio.UserUpdate]("/users", repo, logger),
		hasher:      hasher,
		tokens:      tokens,
	}
}

// RegisterRoutes registers user routes
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group(h.path)
	{
		users.POST("", h.Create)
		users.GET("", h.GetAll)
		users.GET("/:id", h.GetOne)
		users.PUT("/:id", h.Update)
		users.DELETE("/:id", h.Delete)
		users.POST("/auth", h.Authenticate)
		users.PUT("/auth/:id", h.UpdatePassword)
	}
}

// Create handles POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var user portfolio.User
	if err := c.ShouldBindJSON(&user); err != nil {
		h.fail(c, h.invalidBody(err))
		return
	}

	if user.Password == "" {
		h.fail(c, portfolio.NewValidationError(h.message("Invalid empty password")))
		return
	}

	hash, err := h.hash(user.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	user.Password = hash

	h.create(c, user)
}

// Authenticate handles POST /api/users/auth and responds with a signed token
func (h *UserHandler) Authenticate(c *gin.Context) {
	var credentials portfolio.Credentials
	if err := c.ShouldBindJSON(&credentials); err != nil {
		h.fail(c, h.invalidBody(err))
		return
	}

	ctx := c.Request.Context()

	user, err := h.repo.FindOne(ctx, bson.M{"email": credentials.Email})
	if err != nil {
		if portfolio.IsNotFoundError(err) {
			h.fail(c, h.invalidCredentials())
			return
		}
		h.fail(c, err)
		return
	}

	if !h.verify(c, credentials.Password, user.Password) {
		return
	}

	token, err := h.tokens.GenerateToken(user.ID.Hex(), user.Email)
	if err != nil {
		h.fail(c, portfolio.NewInternalError(h.message("Failed to sign token"), err))
		return
	}

	h.logger.WithContext(ctx).Info("User authenticated", log.String(log.FieldEntityID, user.ID.Hex()))
	c.JSON(http.StatusOK, token)
}

// UpdatePassword handles PUT /api/users/auth/:id
func (h *UserHandler) UpdatePassword(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var update portfolio.PasswordUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		h.fail(c, h.invalidBody(err))
		return
	}
	if update.NewPassword == "" {
		h.fail(c, portfolio.NewValidationError(h.message("Invalid empty password")))
		return
	}

	ctx := c.Request.Context()

	user, err := h.repo.GetOne(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}

	if !h.verify(c, update.OldPassword, user.Password) {
		return
	}

	hash, err := h.hash(update.NewPassword)
	if err != nil {
		h.fail(c, err)
		return
	}

	matched, err := h.repo.Update(ctx, id, bson.M{"password": hash})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondUpdated(c, id, matched)
}

// verify checks password against hash, responding 401 on a mismatch and
// 500 when the hash cannot be checked
func (h *UserHandler) verify(c *gin.Context, password, hash string) bool {
	ok, err := h.hasher.VerifyPassword(password, hash)
	if err != nil {
		h.fail(c, portfolio.NewInternalError(h.message("Failed to verify password"), err))
		return false
	}
	if !ok {
		h.fail(c, h.invalidCredentials())
		return false
	}
	return true
}

// hash hashes password, reporting an over-long password as a client error
func (h *UserHandler) hash(password string) (string, error) {
	hash, err := h.hasher.HashPassword(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", portfolio.NewValidationError(h.message("Password is too long"))
	}
	if err != nil {
		return "", portfolio.NewInternalError(h.message("Failed to hash password"), err)
	}
	return hash, nil
}

func (h *UserHandler) invalidCredentials() error {
	return portfolio.NewUnauthorizedError(h.message("Invalid credentials"))
}

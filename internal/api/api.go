package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/latteboxd/latteboxd/internal/app"
	"github.com/latteboxd/latteboxd/internal/cafe"
	"github.com/latteboxd/latteboxd/internal/identity"
	"github.com/latteboxd/latteboxd/internal/models"
)

type Handler struct {
	identity *identity.Service
	cafes    *cafe.Service
	state    *app.State
	logger   *zap.SugaredLogger
}

func NewHandler(identitySvc *identity.Service, cafes *cafe.Service, state *app.State, logger *zap.SugaredLogger) *Handler {
	return &Handler{identity: identitySvc, cafes: cafes, state: state, logger: logger}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	apiGroup := router.Group("/api")

	authGroup := apiGroup.Group("/auth")
	authGroup.POST("/signup", h.handleSignup)
	authGroup.POST("/login", h.handleLogin)
	authGroup.POST("/logout", h.handleLogout)
	authGroup.GET("/session", h.handleSession)

	cafeGroup := apiGroup.Group("/cafes")
	cafeGroup.POST("/search", h.handleSearch)
	cafeGroup.GET("/current", h.handleCurrent)
	cafeGroup.GET("/popular", h.handlePopular)

	router.GET("/ws/search", h.handleSearchSocket)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type searchRequest struct {
	Query string `json:"query"`
}

func (h *Handler) handleSignup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	user, err := h.identity.Signup(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrUsernameRequired), errors.Is(err, identity.ErrPasswordRequired):
			writeError(c, http.StatusBadRequest, err.Error(), err)
		case errors.Is(err, identity.ErrDuplicateUsername):
			writeError(c, http.StatusConflict, err.Error(), err)
		default:
			h.logger.Errorw("signup failed", "error", err)
			writeError(c, http.StatusInternalServerError, "failed to sign up", err)
		}
		return
	}

	if err := h.adoptSession(user); err != nil {
		h.logger.Errorw("persist session failed", "error", err)
		writeError(c, http.StatusInternalServerError, "failed to establish session", err)
		return
	}

	h.writeAuthResponse(c, http.StatusCreated, user)
}

func (h *Handler) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	user, err := h.identity.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			writeError(c, http.StatusUnauthorized, err.Error(), err)
		default:
			h.logger.Errorw("login failed", "error", err)
			writeError(c, http.StatusInternalServerError, "failed to log in", err)
		}
		return
	}

	if err := h.adoptSession(user); err != nil {
		h.logger.Errorw("persist session failed", "error", err)
		writeError(c, http.StatusInternalServerError, "failed to establish session", err)
		return
	}

	h.writeAuthResponse(c, http.StatusOK, user)
}

func (h *Handler) handleLogout(c *gin.Context) {
	if err := h.identity.ClearSession(); err != nil {
		h.logger.Errorw("clear session failed", "error", err)
		writeError(c, http.StatusInternalServerError, "failed to log out", err)
		return
	}

	h.state.Clear()
	c.Status(http.StatusNoContent)
}

// handleSession is the bootstrap read the UI issues on load; it reflects
// the in-memory state restored from the persisted session.
func (h *Handler) handleSession(c *gin.Context) {
	user := h.state.User()
	if user == nil {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) handleSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(c, http.StatusBadRequest, "query is required", errMissingQuery)
		return
	}

	generation := h.cafes.Search(query)
	c.JSON(http.StatusAccepted, gin.H{"generation": generation})
}

func (h *Handler) handleCurrent(c *gin.Context) {
	c.JSON(http.StatusOK, h.cafes.Current())
}

func (h *Handler) handlePopular(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cafes": cafe.PopularThisWeek()})
}

var errMissingQuery = errors.New("query is required")

func (h *Handler) adoptSession(user *models.PublicUser) error {
	if err := h.identity.SetSession(*user); err != nil {
		return err
	}
	h.state.SetUser(user)
	return nil
}

func (h *Handler) writeAuthResponse(c *gin.Context, status int, user *models.PublicUser) {
	token, expiresAt, err := h.identity.IssueToken(*user)
	if err != nil {
		h.logger.Errorw("issue token failed", "error", err)
		writeError(c, http.StatusInternalServerError, "failed to issue token", err)
		return
	}

	c.JSON(status, gin.H{
		"token":     token,
		"expiresAt": expiresAt.Format(time.RFC3339),
		"user":      user,
	})
}

func writeError(c *gin.Context, status int, message string, err error) {
	c.JSON(status, gin.H{"error": message, "detail": err.Error()})
}

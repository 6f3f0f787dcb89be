package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/sqldirectory/internal/directory"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	hostSubjectContextKey = "sqldirectory_host_subject"
	attributeQueryPrefix  = "attr."
)

var (
	errMissingDirectorySource = errors.New("directory source dependency required")
	errMissingTokenValidator  = errors.New("token validator dependency required")
	errInvalidAuthorization   = errors.New("authorization header missing or invalid")
)

// DirectorySource opens a provider for one request. Binding satisfies it.
type DirectorySource interface {
	Open(ctx context.Context) (directory.Provider, error)
}

// TokenValidator validates host service tokens and returns their subject.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

type Dependencies struct {
	Directory      DirectorySource
	Tokens         TokenValidator
	Logger         *zap.Logger
	MetricsHandler http.Handler
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Directory == nil {
		return nil, errMissingDirectorySource
	}
	if deps.Tokens == nil {
		return nil, errMissingTokenValidator
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(corsMiddleware())

	handler := &httpHandler{
		source: deps.Directory,
		tokens: deps.Tokens,
		logger: logger,
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	realms := router.Group("/realms/:realm")
	realms.Use(handler.authorizeRequest)
	realms.GET("/users", handler.handleListUsers)
	realms.GET("/users/count", handler.handleCountUsers)
	realms.GET("/users/id/:id", handler.handleLookupByID)
	realms.GET("/users/username/:username", handler.handleLookupByUsername)
	realms.GET("/users/email/:email", handler.handleLookupByEmail)
	realms.GET("/groups/:group/members", handler.handleGroupMembers)
	realms.POST("/credentials/validate", handler.handleValidateCredential)

	return router, nil
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc:  func(string) bool { return true },
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

type httpHandler struct {
	source DirectorySource
	tokens TokenValidator
	logger *zap.Logger
}

type identityPayload struct {
	ID         string              `json:"id"`
	Username   string              `json:"username"`
	Email      string              `json:"email,omitempty"`
	FirstName  string              `json:"firstName,omitempty"`
	LastName   string              `json:"lastName,omitempty"`
	BirthDate  string              `json:"birthDate,omitempty"`
	Attributes map[string][]string `json:"attributes"`
}

type countResponsePayload struct {
	Count int64 `json:"count"`
}

type credentialRequestPayload struct {
	UserID string `json:"user_id"`
	Type   string `json:"type"`
	Value  string `json:"value"`
}

type credentialResponsePayload struct {
	Valid bool `json:"valid"`
}

func (h *httpHandler) handleListUsers(c *gin.Context) {
	offset, limit, ok := parseWindow(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	search := c.Query("search")
	filters := attributeFilters(c)

	h.withProvider(c, func(ctx context.Context, realm directory.Realm, provider directory.Provider) {
		var (
			identities []*directory.Identity
			err        error
		)
		switch {
		case search != "":
			identities, err = provider.SearchUsersPage(ctx, realm, search, offset, limit)
		case len(filters) > 0:
			identities, err = provider.SearchUsersByAttributesPage(ctx, realm, filters, offset, limit)
		default:
			identities, err = provider.ListUsersPage(ctx, realm, offset, limit)
		}
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, identitiesPayload(identities))
	})
}

func (h *httpHandler) handleCountUsers(c *gin.Context) {
	h.withProvider(c, func(ctx context.Context, realm directory.Realm, provider directory.Provider) {
		count, err := provider.CountUsers(ctx, realm)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, countResponsePayload{Count: count})
	})
}

func (h *httpHandler) handleLookupByID(c *gin.Context) {
	h.handleLookup(c, func(ctx context.Context, realm directory.Realm, provider directory.Provider) (*directory.Identity, error) {
		return provider.LookupByID(ctx, realm, c.Param("id"))
	})
}

func (h *httpHandler) handleLookupByUsername(c *gin.Context) {
	h.handleLookup(c, func(ctx context.Context, realm directory.Realm, provider directory.Provider) (*directory.Identity, error) {
		return provider.LookupByUsername(ctx, realm, c.Param("username"))
	})
}

func (h *httpHandler) handleLookupByEmail(c *gin.Context) {
	h.handleLookup(c, func(ctx context.Context, realm directory.Realm, provider directory.Provider) (*directory.Identity, error) {
		return provider.LookupByEmail(ctx, realm, c.Param("email"))
	})
}

func (h *httpHandler) handleLookup(c *gin.Context, lookup func(context.Context, directory.Realm, directory.Provider) (*directory.Identity, error)) {
	h.withProvider(c, func(ctx context.Context, realm directory.Realm, provider directory.Provider) {
		identity, err := lookup(ctx, realm, provider)
		if err != nil {
			h.writeError(c, err)
			return
		}
		if identity == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusOK, newIdentityPayload(identity))
	})
}

func (h *httpHandler) handleGroupMembers(c *gin.Context) {
	offset, limit, ok := parseWindow(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	group := directory.Group(c.Param("group"))

	h.withProvider(c, func(ctx context.Context, realm directory.Realm, provider directory.Provider) {
		members, err := provider.GroupMembers(ctx, realm, group, offset, limit)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, identitiesPayload(members))
	})
}

func (h *httpHandler) handleValidateCredential(c *gin.Context) {
	var request credentialRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.UserID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	h.withProvider(c, func(ctx context.Context, realm directory.Realm, provider directory.Provider) {
		kind := directory.CredentialKind(request.Type)
		if !provider.SupportsCredentialKind(kind) {
			c.JSON(http.StatusOK, credentialResponsePayload{Valid: false})
			return
		}
		identity, err := provider.LookupByID(ctx, realm, request.UserID)
		if err != nil {
			h.writeError(c, err)
			return
		}
		if identity == nil {
			c.JSON(http.StatusOK, credentialResponsePayload{Valid: false})
			return
		}
		valid, err := provider.ValidateCredential(ctx, realm, identity, directory.CredentialInput{
			Kind:   kind,
			Secret: request.Value,
		})
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, credentialResponsePayload{Valid: valid})
	})
}

// withProvider opens a provider for the request and closes it once fn returns.
func (h *httpHandler) withProvider(c *gin.Context, fn func(context.Context, directory.Realm, directory.Provider)) {
	ctx := c.Request.Context()
	realm := directory.Realm(c.Param("realm"))

	provider, err := h.source.Open(ctx)
	if err != nil {
		h.logger.Error("failed to open directory provider",
			zap.String("realm", realm.String()),
			zap.String("host_subject", c.GetString(hostSubjectContextKey)),
			zap.String("request_id", c.GetString(requestIDContextKey)),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "store_unavailable"})
		return
	}
	defer func() {
		if closeErr := provider.Close(); closeErr != nil {
			h.logger.Warn("failed to close directory provider", zap.Error(closeErr))
		}
	}()

	fn(ctx, realm, provider)
}

func (h *httpHandler) writeError(c *gin.Context, err error) {
	if errors.Is(err, directory.ErrStoreUnavailable) {
		c.JSON(http.StatusBadGateway, gin.H{"error": "store_unavailable"})
		return
	}
	h.logger.Error("directory request failed",
		zap.String("path", c.FullPath()),
		zap.String("host_subject", c.GetString(hostSubjectContextKey)),
		zap.String("request_id", c.GetString(requestIDContextKey)),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "directory_error"})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(hostSubjectContextKey, subject)
	c.Next()
}

func parseWindow(c *gin.Context) (int, int, bool) {
	offset, ok := parseOptionalInt(c.Query("first"))
	if !ok {
		return 0, 0, false
	}
	limit, ok := parseOptionalInt(c.Query("max"))
	if !ok {
		return 0, 0, false
	}
	return offset, limit, true
}

func parseOptionalInt(value string) (int, bool) {
	if value == "" {
		return 0, true
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func attributeFilters(c *gin.Context) map[string]string {
	filters := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		name, found := strings.CutPrefix(key, attributeQueryPrefix)
		if !found || name == "" || len(values) == 0 {
			continue
		}
		filters[name] = values[0]
	}
	return filters
}

func identitiesPayload(identities []*directory.Identity) []identityPayload {
	payload := make([]identityPayload, 0, len(identities))
	for _, identity := range identities {
		payload = append(payload, newIdentityPayload(identity))
	}
	return payload
}

func newIdentityPayload(identity *directory.Identity) identityPayload {
	payload := identityPayload{
		ID:         identity.ID(),
		Username:   identity.Username(),
		Email:      identity.Email(),
		FirstName:  identity.FirstName(),
		LastName:   identity.LastName(),
		Attributes: identity.Attributes(),
	}
	if birthDate, ok := identity.BirthDate(); ok {
		payload.BirthDate = birthDate.Format(directory.BirthDateLayout)
	}
	return payload
}

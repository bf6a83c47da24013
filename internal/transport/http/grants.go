package httptransport

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"grant-store/internal/domain/grant"
)

// GrantService is the slice of the grant service the HTTP layer needs.
type GrantService interface {
	Store(ctx context.Context, g *grant.PersistedGrant) error
	Get(ctx context.Context, key string) (*grant.PersistedGrant, error)
	GetAll(ctx context.Context, filter grant.Filter) ([]grant.PersistedGrant, error)
	Remove(ctx context.Context, key string) error
	RemoveAll(ctx context.Context, filter grant.Filter) error
	Stats(ctx context.Context) (map[string]any, error)
}

// GrantHandler exposes grant administration under /grants.
type GrantHandler struct {
	service GrantService
}

func NewGrantHandler(service GrantService) *GrantHandler {
	return &GrantHandler{service: service}
}

// Register mounts the grant routes on router.
func (h *GrantHandler) Register(router *gin.RouterGroup) {
	grants := router.Group("/grants")
	grants.POST("", h.handleStore)
	grants.GET("", h.handleList)
	grants.DELETE("", h.handleRemoveAll)
	grants.GET("/:key", h.handleGet)
	grants.DELETE("/:key", h.handleRemove)

	router.GET("/stats", h.handleStats)
}

func (h *GrantHandler) handleStore(c *gin.Context) {
	var g grant.PersistedGrant
	if err := c.ShouldBindJSON(&g); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid grant body: "+err.Error(), nil)
		return
	}
	if err := h.service.Store(c.Request.Context(), &g); err != nil {
		RespondFailure(c, err)
		return
	}
	RespondSuccess(c, http.StatusCreated, g, "stored")
}

func (h *GrantHandler) handleGet(c *gin.Context) {
	g, err := h.service.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		RespondFailure(c, err)
		return
	}
	if g == nil {
		RespondError(c, http.StatusNotFound, "grant not found", nil)
		return
	}
	RespondSuccess(c, http.StatusOK, g, "")
}

func (h *GrantHandler) handleList(c *gin.Context) {
	var filter grant.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid filter: "+err.Error(), nil)
		return
	}
	grants, err := h.service.GetAll(c.Request.Context(), filter)
	if err != nil {
		RespondFailure(c, err)
		return
	}
	if grants == nil {
		grants = []grant.PersistedGrant{}
	}
	RespondSuccess(c, http.StatusOK, grants, "")
}

func (h *GrantHandler) handleRemove(c *gin.Context) {
	if err := h.service.Remove(c.Request.Context(), c.Param("key")); err != nil {
		RespondFailure(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, nil, "removed")
}

func (h *GrantHandler) handleRemoveAll(c *gin.Context) {
	var filter grant.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid filter: "+err.Error(), nil)
		return
	}
	if err := h.service.RemoveAll(c.Request.Context(), filter); err != nil {
		RespondFailure(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, nil, "removed")
}

func (h *GrantHandler) handleStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		RespondFailure(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, stats, "")
}

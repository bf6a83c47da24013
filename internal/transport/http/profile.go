package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"grant-store/internal/domain/profile"
)

// ProfileHandler answers account status lookups.
type ProfileHandler struct {
	service profile.Service
}

func NewProfileHandler(service profile.Service) *ProfileHandler {
	return &ProfileHandler{service: service}
}

func (h *ProfileHandler) Register(router *gin.RouterGroup) {
	router.GET("/subjects/:subject_id/active", h.handleIsActive)
}

func (h *ProfileHandler) handleIsActive(c *gin.Context) {
	req := &profile.IsActiveRequest{
		SubjectID: c.Param("subject_id"),
		ClientID:  c.Query("client_id"),
		Caller:    "admin_api",
	}
	if err := h.service.IsActive(c.Request.Context(), req); err != nil {
		RespondFailure(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, gin.H{
		"subject_id": req.SubjectID,
		"active":     req.IsActive,
	}, "")
}

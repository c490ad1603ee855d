package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dojoflow/dojoflow-api/internal/service"
	"github.com/dojoflow/dojoflow-api/pkg/response"
)

// QRHandler exposes QR check-in link endpoints.
type QRHandler struct {
	links *service.QRLinkService
}

// NewQRHandler constructs QRHandler.
func NewQRHandler(links *service.QRLinkService) *QRHandler {
	return &QRHandler{links: links}
}

// Generate godoc
// @Summary Mint a signed self check-in token for a student
// @Tags Checkins
// @Produce json
// @Param id path string true "Student ID"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/qr-link [post]
func (h *QRHandler) Generate(c *gin.Context) {
	link, err := h.links.Generate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, link, nil)
}

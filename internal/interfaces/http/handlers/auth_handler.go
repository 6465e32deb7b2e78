package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/credence/internal/application/dto"
	"github.com/turtacn/credence/internal/application/service"
	"github.com/turtacn/credence/pkg/utils"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService service.AuthAppService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthAppService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Authenticate handles POST /api/v1/auth/authenticate.
func (h *AuthHandler) Authenticate(c *gin.Context) {
	var req dto.AuthenticateRequest
	if err := utils.DecodeStrict(c.Request.Body, &req); err != nil {
		dto.SendError(c, err)
		return
	}

	result, err := h.authService.Authenticate(c.Request.Context(), req.Username, req.Password, clientInfo(c))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, result)
}

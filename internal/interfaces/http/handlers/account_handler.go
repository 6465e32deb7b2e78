package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/credence/internal/application/dto"
	"github.com/turtacn/credence/internal/application/service"
	"github.com/turtacn/credence/internal/interfaces/http/middleware"
	"github.com/turtacn/credence/pkg/constants"
	"github.com/turtacn/credence/pkg/logger"
	"github.com/turtacn/credence/pkg/utils"
)

// AccountHandler handles account creation and lookup.
type AccountHandler struct {
	accounts service.AccountAppService
	log      logger.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts service.AccountAppService, log logger.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, log: log.WithComponent("AccountHandler")}
}

// Create handles POST /api/v1/accounts. Unknown fields are a 400 and no
// account is created.
func (h *AccountHandler) Create(c *gin.Context) {
	var req dto.CreateAccountRequest
	if err := utils.DecodeStrict(c.Request.Body, &req); err != nil {
		h.log.Info(c.Request.Context(), "Rejected account request", logger.Error(err))
		dto.SendError(c, err)
		return
	}

	account, err := h.accounts.Create(c.Request.Context(), &req, clientInfo(c))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	c.Header("Location", constants.APIRoot+"/accounts/"+url.PathEscape(account.Username))
	dto.SendSuccess(c, http.StatusCreated, account)
}

// Get handles GET /api/v1/accounts/:username.
func (h *AccountHandler) Get(c *gin.Context) {
	account, err := h.accounts.GetByUsername(c.Request.Context(), middleware.CurrentAccount(c), c.Param("username"))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, account)
}

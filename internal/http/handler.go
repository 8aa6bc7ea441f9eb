package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/pharma-contracts/internal/http/middleware"
	"github.com/nurpe/pharma-contracts/internal/ledger"
	"github.com/nurpe/pharma-contracts/internal/model"
	"github.com/nurpe/pharma-contracts/internal/repository"
	"github.com/nurpe/pharma-contracts/internal/service"
)

type Handler struct {
	contracts *service.ContractService
	log       zerolog.Logger
	now       func() time.Time
}

func NewHandler(contracts *service.ContractService, log zerolog.Logger) *Handler {
	return &Handler{
		contracts: contracts,
		log:       log,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.POST("/contracts", h.createContract)
	protected.GET("/contracts", h.listContracts)
	protected.POST("/contracts/expire", h.expireContracts)
	protected.GET("/contracts/:id", h.getContract)
	protected.PUT("/contracts/:id", h.updateContract)
	protected.DELETE("/contracts/:id", h.deleteContract)
	protected.POST("/contracts/:id/decision", h.decideContract)
	protected.GET("/contracts/:id/effective", h.effectiveState)

	protected.POST("/contracts/:id/annexes", h.proposeAnnex)
	protected.PUT("/contracts/:id/annexes/:code", h.reviseAnnex)
	protected.DELETE("/contracts/:id/annexes/:code", h.withdrawAnnex)
	protected.POST("/contracts/:id/annexes/:code/decision", h.decideAnnex)
}

func (h *Handler) createContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req contractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contract, err := h.contracts.CreateContract(c.Request.Context(), principal, req.toInput())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newContractResponse(contract))
}

func (h *Handler) listContracts(c *gin.Context) {
	var query listContractsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	filter := repository.ContractFilter{
		Status: model.ContractStatus(query.Status),
		Kind:   model.ContractKind(query.Kind),
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	if query.CounterpartyID != "" {
		filter.CounterpartyID = uuid.MustParse(query.CounterpartyID)
	}

	contracts, err := h.contracts.ListContracts(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	resp := make([]contractResponse, len(contracts))
	for i := range contracts {
		resp[i] = newContractResponse(&contracts[i])
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (h *Handler) getContract(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	contract, err := h.contracts.GetContract(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newContractResponse(contract))
}

func (h *Handler) updateContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req contractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contract, err := h.contracts.UpdateContract(c.Request.Context(), principal, id, req.toInput())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newContractResponse(contract))
}

func (h *Handler) deleteContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.contracts.DeleteContract(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) decideContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision := model.ContractStatus(strings.ToLower(strings.TrimSpace(req.Decision)))
	contract, err := h.contracts.DecideContract(c.Request.Context(), principal, id, decision)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newContractResponse(contract))
}

func (h *Handler) effectiveState(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var asOf *time.Time
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid as_of"})
			return
		}
		asOf = &parsed
	}

	state, err := h.contracts.GetEffectiveState(c.Request.Context(), id, asOf)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newEffectiveStateResponse(state))
}

func (h *Handler) expireContracts(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req expireRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	asOf := h.now()
	if req.AsOf != "" {
		asOf = mustDate(req.AsOf)
	}

	expired, err := h.contracts.ExpireDue(c.Request.Context(), principal, asOf)
	if err != nil && len(expired) == 0 {
		h.handleError(c, err)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("expiry sweep finished with failures")
	}

	resp := make([]contractResponse, len(expired))
	for i := range expired {
		resp[i] = newContractResponse(&expired[i])
	}
	c.JSON(http.StatusOK, gin.H{"data": resp, "as_of": ledger.DateOnly(asOf).Format(dateLayout)})
}

func (h *Handler) proposeAnnex(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req annexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	annex, err := h.contracts.ProposeAnnex(c.Request.Context(), principal, id, req.toDraft())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newAnnexResponse(annex))
}

func (h *Handler) reviseAnnex(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req annexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	annex, err := h.contracts.ReviseAnnex(c.Request.Context(), principal, id, c.Param("code"), req.toDraft())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAnnexResponse(annex))
}

func (h *Handler) withdrawAnnex(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	if _, err := h.contracts.WithdrawAnnex(c.Request.Context(), principal, id, c.Param("code")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) decideAnnex(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision := model.AnnexStatus(strings.ToLower(strings.TrimSpace(req.Decision)))
	contract, err := h.contracts.DecideAnnex(c.Request.Context(), principal, id, c.Param("code"), decision)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newContractResponse(contract))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "violations": ledger.Violations(err)})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "retryable": true})
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return uuid.Nil, false
	}
	return id, true
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrInvalidInput
	}
	layouts := []string{
		dateLayout,
		time.RFC3339,
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}

package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/contracts-service/internal/http/middleware"
	"github.com/nurpe/contracts-service/internal/model"
	"github.com/nurpe/contracts-service/internal/service"
)

type Handler struct {
	contracts    *service.ContractService
	negotiations *service.NegotiationService
	log          zerolog.Logger
}

func NewHandler(contracts *service.ContractService, negotiations *service.NegotiationService, log zerolog.Logger) *Handler {
	return &Handler{contracts: contracts, negotiations: negotiations, log: log}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.POST("/contracts", h.createContract)
	protected.GET("/contracts", h.listContracts)
	protected.GET("/contracts/:id", h.getContract)
	protected.POST("/contracts/:id/status", h.changeContractStatus)
	protected.GET("/contracts/:id/statement", h.contractStatement)
	protected.POST("/contracts/export", h.exportContracts)

	protected.POST("/contracts/:id/negotiations", h.openNegotiation)
	protected.GET("/contracts/:id/negotiations", h.listNegotiations)
	protected.GET("/negotiations/:id", h.getNegotiation)
	protected.POST("/negotiations/:id/entries", h.respondNegotiation)
	protected.POST("/negotiations/:id/finalize", h.finalizeNegotiation)
	protected.POST("/negotiations/:id/cancel", h.cancelNegotiation)
}

type createContractRequest struct {
	OfferID string `json:"offer_id" binding:"required"`
}

func (h *Handler) createContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req createContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	offerID, err := uuid.Parse(strings.TrimSpace(req.OfferID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offer_id"})
		return
	}

	contract, err := h.contracts.Create(c.Request.Context(), service.CreateContractInput{
		OfferID:   offerID,
		Principal: principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contract)
}

func (h *Handler) listContracts(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var status *model.ContractStatus
	if raw := c.Query("status"); raw != "" {
		parsed, err := parseContractStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
			return
		}
		status = &parsed
	}

	contracts, err := h.contracts.List(c.Request.Context(), principal, status)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contracts": contracts})
}

func (h *Handler) getContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	contract, err := h.contracts.Get(c.Request.Context(), id, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

type changeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) changeContractStatus(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requested, err := parseContractStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	contract, err := h.contracts.ChangeStatus(c.Request.Context(), service.ChangeStatusInput{
		ContractID: id,
		Requested:  requested,
		Principal:  principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (h *Handler) contractStatement(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	result, err := h.contracts.Statement(c.Request.Context(), id, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/pdf", result.Content)
}

type exportContractsRequest struct {
	PeriodStart string `json:"period_start" binding:"required"`
	PeriodEnd   string `json:"period_end" binding:"required"`
}

func (h *Handler) exportContracts(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req exportContractsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, err := parseDate(req.PeriodStart)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_start"})
		return
	}
	end, err := parseDate(req.PeriodEnd)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_end"})
		return
	}

	result, err := h.contracts.Export(c.Request.Context(), service.ExportInput{
		PeriodStart: start,
		PeriodEnd:   end,
		Principal:   principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", result.Content)
}

type proposalRequest struct {
	ProposedPrice    *float64 `json:"proposed_price"`
	ProposedDeadline *string  `json:"proposed_deadline"`
	Notes            string   `json:"notes" binding:"required"`
}

func (p proposalRequest) payload() (service.ProposalPayload, error) {
	payload := service.ProposalPayload{
		ProposedPrice: p.ProposedPrice,
		Notes:         p.Notes,
	}
	if p.ProposedDeadline != nil && strings.TrimSpace(*p.ProposedDeadline) != "" {
		deadline, err := parseDate(*p.ProposedDeadline)
		if err != nil {
			return service.ProposalPayload{}, err
		}
		payload.ProposedDeadline = &deadline
	}
	return payload, nil
}

func (h *Handler) openNegotiation(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	contractID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	var req proposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payload, err := req.payload()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposed_deadline"})
		return
	}

	negotiation, err := h.negotiations.Open(c.Request.Context(), service.OpenNegotiationInput{
		ContractID: contractID,
		Payload:    payload,
		Principal:  principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, negotiation)
}

func (h *Handler) listNegotiations(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	contractID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	negotiations, err := h.negotiations.ListByContract(c.Request.Context(), contractID, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"negotiations": negotiations})
}

func (h *Handler) getNegotiation(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid negotiation id"})
		return
	}

	negotiation, err := h.negotiations.Get(c.Request.Context(), id, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, negotiation)
}

type respondRequest struct {
	EntryType        string   `json:"entry_type" binding:"required"`
	ProposedPrice    *float64 `json:"proposed_price"`
	ProposedDeadline *string  `json:"proposed_deadline"`
	Notes            string   `json:"notes" binding:"required"`
}

func (h *Handler) respondNegotiation(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid negotiation id"})
		return
	}

	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entryType, err := parseEntryType(req.EntryType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry_type"})
		return
	}

	payload, err := proposalRequest{
		ProposedPrice:    req.ProposedPrice,
		ProposedDeadline: req.ProposedDeadline,
		Notes:            req.Notes,
	}.payload()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposed_deadline"})
		return
	}

	negotiation, err := h.negotiations.Respond(c.Request.Context(), service.RespondInput{
		NegotiationID: id,
		EntryType:     entryType,
		Payload:       payload,
		Principal:     principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, negotiation)
}

type finalizeRequest struct {
	Action string `json:"action" binding:"required"`
}

func (h *Handler) finalizeNegotiation(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid negotiation id"})
		return
	}

	var req finalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.negotiations.Finalize(c.Request.Context(), service.FinalizeInput{
		NegotiationID: id,
		Action:        service.FinalizeAction(req.Action),
		Principal:     principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) cancelNegotiation(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid negotiation id"})
		return
	}

	negotiation, err := h.negotiations.Cancel(c.Request.Context(), id, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, negotiation)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPermissionDenied), errors.Is(err, service.ErrActionNotAllowed):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseContractStatus(raw string) (model.ContractStatus, error) {
	status := model.ContractStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case model.ContractStatusPending,
		model.ContractStatusAccepted,
		model.ContractStatusInProgress,
		model.ContractStatusCompleted,
		model.ContractStatusCancelledByBuyer,
		model.ContractStatusCancelledByProvider,
		model.ContractStatusDisputed:
		return status, nil
	}
	return "", service.ErrInvalidInput
}

func parseEntryType(raw string) (model.NegotiationEntryType, error) {
	entryType := model.NegotiationEntryType(strings.ToUpper(strings.TrimSpace(raw)))
	switch entryType {
	case model.EntryTypeBuyerProposal, model.EntryTypeProviderResponse, model.EntryTypePlainMessage:
		return entryType, nil
	}
	return "", service.ErrInvalidInput
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrInvalidInput
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}

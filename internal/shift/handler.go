package shift

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gymdesk/internal/api"
	"gymdesk/internal/apperr"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// CreateShift godoc
// @Summary      Create a recurring shift
// @Description  Rejected with 409 when the window overlaps the trainer's existing shifts.
// @Tags         shifts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        shift  body      CreateShiftRequest  true  "Shift"
// @Success      201    {object}  Shift
// @Failure      400    {object}  api.ErrorResponse
// @Failure      409    {object}  api.ErrorResponse
// @Router       /shifts [post]
func (h *Handler) CreateShift(c *gin.Context) {
	var req CreateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, apperr.Validationf("invalid shift payload: %v", err))
		return
	}

	sh, err := h.svc.CreateShift(c.Request.Context(), req)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, sh)
}

// ListByTrainer godoc
// @Summary      List a trainer's shifts
// @Tags         shifts
// @Security     BearerAuth
// @Produce      json
// @Param        trainerID  path      int  true  "Trainer ID"
// @Success      200        {array}   Shift
// @Router       /trainers/{trainerID}/shifts [get]
func (h *Handler) ListByTrainer(c *gin.Context) {
	trainerID, err := strconv.Atoi(c.Param("trainerID"))
	if err != nil {
		api.Fail(c, apperr.Validationf("invalid trainer ID"))
		return
	}

	ss, err := h.svc.ListByTrainer(c.Request.Context(), trainerID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, ss)
}

// Propose godoc
// @Summary      Propose a shift exchange
// @Description  The requester offers their shift for the recipient's; nothing changes until the recipient responds.
// @Tags         shifts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        exchange  body      ProposeRequest  true  "Exchange proposal"
// @Success      201       {object}  ExchangeRequest
// @Failure      400       {object}  api.ErrorResponse
// @Failure      404       {object}  api.ErrorResponse
// @Router       /exchanges [post]
func (h *Handler) Propose(c *gin.Context) {
	var req ProposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, apperr.Validationf("invalid exchange payload: %v", err))
		return
	}

	r, err := h.svc.Propose(c.Request.Context(), req)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, r)
}

// Respond godoc
// @Summary      Accept or reject a pending exchange
// @Description  Returns 409 with code already_resolved when the request was already decided.
// @Tags         shifts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        requestID  path      int             true  "Exchange request ID"
// @Param        response   body      RespondRequest  true  "Decision"
// @Success      200        {object}  ExchangeRequest
// @Failure      404        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /exchanges/{requestID}/respond [post]
func (h *Handler) Respond(c *gin.Context) {
	requestID, err := strconv.Atoi(c.Param("requestID"))
	if err != nil {
		api.Fail(c, apperr.Validationf("invalid exchange request ID"))
		return
	}

	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, apperr.Validationf("invalid response payload: %v", err))
		return
	}

	r, err := h.svc.Respond(c.Request.Context(), requestID, req.Accept)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, r)
}

// GetRequest godoc
// @Summary      Get an exchange request
// @Tags         shifts
// @Security     BearerAuth
// @Produce      json
// @Param        requestID  path      int  true  "Exchange request ID"
// @Success      200        {object}  ExchangeRequest
// @Failure      404        {object}  api.ErrorResponse
// @Router       /exchanges/{requestID} [get]
func (h *Handler) GetRequest(c *gin.Context) {
	requestID, err := strconv.Atoi(c.Param("requestID"))
	if err != nil {
		api.Fail(c, apperr.Validationf("invalid exchange request ID"))
		return
	}

	r, err := h.svc.GetRequest(c.Request.Context(), requestID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, r)
}

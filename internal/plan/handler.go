package plan

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

// Create godoc
// @Summary      Create plan
// @Tags         plans
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        plan  body      CreatePlanRequest  true  "Plan"
// @Success      201   {object}  Plan
// @Failure      400   {object}  api.ErrorResponse
// @Router       /plans [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, apperr.Validationf("invalid plan payload: %v", err))
		return
	}

	p, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

// Update godoc
// @Summary      Update plan fields
// @Description  Audited; a no-op update writes no audit entry.
// @Tags         plans
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        planID  path      int                true  "Plan ID"
// @Param        plan    body      UpdatePlanRequest  true  "Changes"
// @Success      200     {object}  Plan
// @Failure      400     {object}  api.ErrorResponse
// @Failure      404     {object}  api.ErrorResponse
// @Router       /plans/{planID} [patch]
func (h *Handler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("planID"))
	if err != nil {
		api.Fail(c, apperr.Validationf("invalid plan ID"))
		return
	}

	var req UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, apperr.Validationf("invalid plan payload: %v", err))
		return
	}

	p, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// Activate godoc
// @Summary      Activate plan
// @Tags         plans
// @Security     BearerAuth
// @Produce      json
// @Param        planID  path      int  true  "Plan ID"
// @Success      200     {object}  Plan
// @Failure      404     {object}  api.ErrorResponse
// @Router       /plans/{planID}/activate [post]
func (h *Handler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// Deactivate godoc
// @Summary      Deactivate plan
// @Tags         plans
// @Security     BearerAuth
// @Produce      json
// @Param        planID  path      int  true  "Plan ID"
// @Success      200     {object}  Plan
// @Failure      404     {object}  api.ErrorResponse
// @Router       /plans/{planID}/deactivate [post]
func (h *Handler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *Handler) setActive(c *gin.Context, active bool) {
	id, err := strconv.Atoi(c.Param("planID"))
	if err != nil {
		api.Fail(c, apperr.Validationf("invalid plan ID"))
		return
	}

	p, err := h.svc.SetActive(c.Request.Context(), id, active)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// List godoc
// @Summary      List plans
// @Tags         plans
// @Security     BearerAuth
// @Produce      json
// @Param        active  query     bool  false  "Only active plans"
// @Success      200     {array}   Plan
// @Router       /plans [get]
func (h *Handler) List(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	plans, err := h.svc.List(c.Request.Context(), activeOnly)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, plans)
}

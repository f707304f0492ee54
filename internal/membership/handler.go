package membership

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

func membershipID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("membershipID"))
	if err != nil {
		api.Fail(c, apperr.Validationf("invalid membership ID"))
		return 0, false
	}
	return id, true
}

// Assign godoc
// @Summary      Assign a membership
// @Description  Fails with 409 if the member already has an active membership.
// @Tags         memberships
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        membership  body      AssignRequest  true  "Assignment"
// @Success      201         {object}  Membership
// @Failure      400         {object}  api.ErrorResponse
// @Failure      404         {object}  api.ErrorResponse
// @Failure      409         {object}  api.ErrorResponse
// @Router       /memberships [post]
func (h *Handler) Assign(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, apperr.Validationf("invalid assignment payload: %v", err))
		return
	}

	m, err := h.svc.Assign(c.Request.Context(), req)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, m)
}

// Change godoc
// @Summary      Change membership plan
// @Description  Supersedes the current row and creates a new active one.
// @Tags         memberships
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        membershipID  path      int            true  "Membership ID"
// @Param        change        body      ChangeRequest  true  "Plan change"
// @Success      200           {object}  Membership
// @Failure      400           {object}  api.ErrorResponse
// @Failure      404           {object}  api.ErrorResponse
// @Failure      409           {object}  api.ErrorResponse
// @Router       /memberships/{membershipID}/change [post]
func (h *Handler) Change(c *gin.Context) {
	id, ok := membershipID(c)
	if !ok {
		return
	}

	var req ChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, apperr.Validationf("invalid change payload: %v", err))
		return
	}

	m, err := h.svc.Change(c.Request.Context(), id, req)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

// Pause godoc
// @Summary      Pause an active membership
// @Tags         memberships
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        membershipID  path      int           true  "Membership ID"
// @Param        pause         body      PauseRequest  true  "Pause window"
// @Success      200           {object}  Membership
// @Failure      400           {object}  api.ErrorResponse
// @Failure      409           {object}  api.ErrorResponse
// @Router       /memberships/{membershipID}/pause [post]
func (h *Handler) Pause(c *gin.Context) {
	id, ok := membershipID(c)
	if !ok {
		return
	}

	var req PauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, apperr.Validationf("invalid pause payload: %v", err))
		return
	}

	m, err := h.svc.Pause(c.Request.Context(), id, req)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

// Resume godoc
// @Summary      Resume a suspended membership
// @Tags         memberships
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        membershipID  path      int            true  "Membership ID"
// @Param        resume        body      ResumeRequest  true  "Resume options"
// @Success      200           {object}  Membership
// @Failure      409           {object}  api.ErrorResponse
// @Router       /memberships/{membershipID}/resume [post]
func (h *Handler) Resume(c *gin.Context) {
	id, ok := membershipID(c)
	if !ok {
		return
	}

	var req ResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, apperr.Validationf("invalid resume payload: %v", err))
		return
	}

	m, err := h.svc.Resume(c.Request.Context(), id, req)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

// Cancel godoc
// @Summary      Cancel a membership
// @Tags         memberships
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        membershipID  path      int            true  "Membership ID"
// @Param        cancel        body      CancelRequest  true  "Cancellation"
// @Success      200           {object}  Membership
// @Failure      409           {object}  api.ErrorResponse
// @Router       /memberships/{membershipID}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := membershipID(c)
	if !ok {
		return
	}

	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, apperr.Validationf("invalid cancel payload: %v", err))
		return
	}

	m, err := h.svc.Cancel(c.Request.Context(), id, req)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

// Expire godoc
// @Summary      Expiry check hook
// @Description  Idempotent; called by the external scheduler. Transitions the
// @Description  membership to expired only when it is active and past due.
// @Tags         memberships
// @Security     BearerAuth
// @Produce      json
// @Param        membershipID  path      int  true  "Membership ID"
// @Success      200           {object}  Membership
// @Failure      404           {object}  api.ErrorResponse
// @Router       /memberships/{membershipID}/expire [post]
func (h *Handler) Expire(c *gin.Context) {
	id, ok := membershipID(c)
	if !ok {
		return
	}

	m, err := h.svc.ExpireIfDue(c.Request.Context(), id)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

// ListByMember godoc
// @Summary      Membership history for a member
// @Tags         memberships
// @Security     BearerAuth
// @Produce      json
// @Param        memberID  path      int  true  "Member ID"
// @Success      200       {array}   Membership
// @Router       /members/{memberID}/memberships [get]
func (h *Handler) ListByMember(c *gin.Context) {
	memberID, err := strconv.Atoi(c.Param("memberID"))
	if err != nil {
		api.Fail(c, apperr.Validationf("invalid member ID"))
		return
	}

	ms, err := h.svc.ListByMember(c.Request.Context(), memberID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, ms)
}

package booking

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

func bookingID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		api.Fail(c, apperr.Validationf("invalid booking ID"))
		return 0, false
	}
	return id, true
}

// CreateClass godoc
// @Summary      Create a recurring group class
// @Description  Rejected with 409 when the weekday window overlaps the trainer's calendar.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        class  body      CreateClassRequest  true  "Class"
// @Success      201    {object}  Class
// @Failure      400    {object}  api.ErrorResponse
// @Failure      409    {object}  api.ErrorResponse
// @Router       /classes [post]
func (h *Handler) CreateClass(c *gin.Context) {
	var req CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, apperr.Validationf("invalid class payload: %v", err))
		return
	}

	class, err := h.svc.CreateClass(c.Request.Context(), req)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, class)
}

// CreatePersonal godoc
// @Summary      Book a personal session
// @Description  One-off 1:1 session; rejected with 409 on trainer calendar overlap.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        booking  body      CreatePersonalRequest  true  "Session"
// @Success      201      {object}  Booking
// @Failure      400      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /bookings [post]
func (h *Handler) CreatePersonal(c *gin.Context) {
	var req CreatePersonalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, apperr.Validationf("invalid booking payload: %v", err))
		return
	}

	b, err := h.svc.CreatePersonal(c.Request.Context(), req)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, b)
}

// UpdatePersonal godoc
// @Summary      Move a personal session
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        bookingID  path      int                    true  "Booking ID"
// @Param        booking    body      UpdatePersonalRequest  true  "New window"
// @Success      200        {object}  Booking
// @Failure      400        {object}  api.ErrorResponse
// @Failure      404        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID} [patch]
func (h *Handler) UpdatePersonal(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	var req UpdatePersonalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, apperr.Validationf("invalid booking payload: %v", err))
		return
	}

	b, err := h.svc.UpdatePersonal(c.Request.Context(), id, req)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// Reserve godoc
// @Summary      Reserve a seat in a class
// @Description  Returns 409 with code capacity_exceeded when the class is full.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        classID      path      int             true  "Class ID"
// @Param        reservation  body      ReserveRequest  true  "Reservation"
// @Success      201          {object}  Booking
// @Failure      404          {object}  api.ErrorResponse
// @Failure      409          {object}  api.ErrorResponse
// @Router       /classes/{classID}/reserve [post]
func (h *Handler) Reserve(c *gin.Context) {
	classID, err := strconv.Atoi(c.Param("classID"))
	if err != nil {
		api.Fail(c, apperr.Validationf("invalid class ID"))
		return
	}

	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, apperr.Validationf("invalid reservation payload: %v", err))
		return
	}

	b, err := h.svc.Reserve(c.Request.Context(), classID, req)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, b)
}

// Cancel godoc
// @Summary      Cancel a booking
// @Description  Soft transition; the row is kept for history.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  Booking
// @Failure      404        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	b, err := h.svc.Cancel(c.Request.Context(), id)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// Complete godoc
// @Summary      Mark a booking completed
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  Booking
// @Failure      409        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID}/complete [post]
func (h *Handler) Complete(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	b, err := h.svc.Complete(c.Request.Context(), id)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// NoShow godoc
// @Summary      Mark a booking as a no-show
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  Booking
// @Failure      409        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID}/no-show [post]
func (h *Handler) NoShow(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	b, err := h.svc.MarkNoShow(c.Request.Context(), id)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// Get godoc
// @Summary      Get a booking
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  Booking
// @Failure      404        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	b, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// GetClass godoc
// @Summary      Get a class
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        classID  path      int  true  "Class ID"
// @Success      200      {object}  Class
// @Failure      404      {object}  api.ErrorResponse
// @Router       /classes/{classID} [get]
func (h *Handler) GetClass(c *gin.Context) {
	classID, err := strconv.Atoi(c.Param("classID"))
	if err != nil {
		api.Fail(c, apperr.Validationf("invalid class ID"))
		return
	}

	class, err := h.svc.GetClass(c.Request.Context(), classID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, class)
}

// ListByTrainer godoc
// @Summary      List a trainer's bookings
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        trainerID  path      int  true  "Trainer ID"
// @Success      200        {array}   Booking
// @Router       /trainers/{trainerID}/bookings [get]
func (h *Handler) ListByTrainer(c *gin.Context) {
	trainerID, err := strconv.Atoi(c.Param("trainerID"))
	if err != nil {
		api.Fail(c, apperr.Validationf("invalid trainer ID"))
		return
	}

	bs, err := h.svc.ListByTrainer(c.Request.Context(), trainerID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, bs)
}

// ListClassesByTrainer godoc
// @Summary      List a trainer's classes
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        trainerID  path      int  true  "Trainer ID"
// @Success      200        {array}   Class
// @Router       /trainers/{trainerID}/classes [get]
func (h *Handler) ListClassesByTrainer(c *gin.Context) {
	trainerID, err := strconv.Atoi(c.Param("trainerID"))
	if err != nil {
		api.Fail(c, apperr.Validationf("invalid trainer ID"))
		return
	}

	cs, err := h.svc.ListClassesByTrainer(c.Request.Context(), trainerID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, cs)
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/slms/leave-service/internal/apperr"
	"github.com/slms/leave-service/internal/model"
	"github.com/slms/leave-service/internal/service"
)

// LeaveHandler serves /leaves.
type LeaveHandler struct {
	leaves *service.LeaveService
}

func NewLeaveHandler(leaves *service.LeaveService) *LeaveHandler {
	return &LeaveHandler{leaves: leaves}
}

// leaveReq takes dates as YYYY-MM-DD or RFC 3339.
type leaveReq struct {
	FromDate string `json:"fromDate" validate:"required"`
	ToDate   string `json:"toDate" validate:"required"`
	Reason   string `json:"reason" validate:"required"`
}

func (r leaveReq) input() (service.LeaveInput, error) {
	from, err := model.ParseDate(r.FromDate)
	if err != nil {
		return service.LeaveInput{}, apperr.Validation(apperr.MsgInvalidDate)
	}
	to, err := model.ParseDate(r.ToDate)
	if err != nil {
		return service.LeaveInput{}, apperr.Validation(apperr.MsgInvalidDate)
	}
	return service.LeaveInput{FromDate: from, ToDate: to, Reason: r.Reason}, nil
}

func (h *LeaveHandler) List(c echo.Context) error {
	u, err := actor(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.leaves.List(ctx, u, c.QueryParams())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *LeaveHandler) Get(c echo.Context) error {
	u, err := actor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	l, err := h.leaves.Get(ctx, u, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

func (h *LeaveHandler) Create(c echo.Context) error {
	u, err := actor(c)
	if err != nil {
		return err
	}
	var req leaveReq
	if err := bind(c, &req); err != nil {
		return err
	}
	in, err := req.input()
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	l, err := h.leaves.Create(ctx, u, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *LeaveHandler) Update(c echo.Context) error {
	u, err := actor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req leaveReq
	if err := bind(c, &req); err != nil {
		return err
	}
	in, err := req.input()
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	l, err := h.leaves.Update(ctx, u, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

func (h *LeaveHandler) Approve(c echo.Context) error {
	return h.setStatus(c, model.LeaveApproved)
}

func (h *LeaveHandler) Reject(c echo.Context) error {
	return h.setStatus(c, model.LeaveRejected)
}

func (h *LeaveHandler) setStatus(c echo.Context, st model.LeaveStatus) error {
	u, err := actor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	l, err := h.leaves.UpdateStatus(ctx, u, id, st)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

func (h *LeaveHandler) Delete(c echo.Context) error {
	u, err := actor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.leaves.Delete(ctx, u, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

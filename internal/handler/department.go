package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/slms/leave-service/internal/service"
)

// DepartmentHandler serves /departments.  Reads are public.
type DepartmentHandler struct {
	departments *service.DepartmentService
}

func NewDepartmentHandler(departments *service.DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{departments: departments}
}

type departmentReq struct {
	Name string `json:"name" validate:"required"`
}

func (h *DepartmentHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.departments.List(ctx, c.QueryParams())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *DepartmentHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	d, err := h.departments.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *DepartmentHandler) Create(c echo.Context) error {
	var req departmentReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	d, err := h.departments.Create(ctx, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *DepartmentHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req departmentReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	d, err := h.departments.Rename(ctx, id, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *DepartmentHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.departments.Delete(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

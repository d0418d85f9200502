package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/slms/leave-service/internal/model"
	"github.com/slms/leave-service/internal/service"
)

// UserHandler serves /users.  Every route sits behind the guard.
type UserHandler struct {
	users    *service.UserService
	uploader Uploader
}

func NewUserHandler(users *service.UserService, uploader Uploader) *UserHandler {
	return &UserHandler{users: users, uploader: uploader}
}

func (h *UserHandler) List(c echo.Context) error {
	u, err := actor(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.users.List(ctx, u, c.QueryParams())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *UserHandler) Get(c echo.Context) error {
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

	out, err := h.users.Get(ctx, u, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Create adds an active account; a HOD can only add STAFF to their own
// department.
func (h *UserHandler) Create(c echo.Context) error {
	u, err := actor(c)
	if err != nil {
		return err
	}
	var req newUserReq
	if err := bind(c, &req); err != nil {
		return err
	}
	image, err := profileImage(c, h.uploader)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	out, err := h.users.Create(ctx, u, req.input(image))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *UserHandler) Update(c echo.Context) error {
	u, err := actor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req profileReq
	if err := bind(c, &req); err != nil {
		return err
	}
	image, err := profileImage(c, h.uploader)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	out, err := h.users.Update(ctx, u, id, req.input(image))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UserHandler) Activate(c echo.Context) error {
	return h.setStatus(c, model.UserActive)
}

func (h *UserHandler) Deactivate(c echo.Context) error {
	return h.setStatus(c, model.UserInactive)
}

func (h *UserHandler) setStatus(c echo.Context, st model.UserStatus) error {
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

	out, err := h.users.SetStatus(ctx, u, id, st)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UserHandler) Delete(c echo.Context) error {
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

	out, err := h.users.Delete(ctx, u, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

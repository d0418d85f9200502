package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/slms/leave-service/internal/middleware"
	"github.com/slms/leave-service/internal/model"
	"github.com/slms/leave-service/internal/service"
)

// AuthHandler serves /auth.
type AuthHandler struct {
	auth     *service.AuthService
	users    *service.UserService
	uploader Uploader
}

func NewAuthHandler(auth *service.AuthService, users *service.UserService, uploader Uploader) *AuthHandler {
	return &AuthHandler{auth: auth, users: users, uploader: uploader}
}

// ----- DTOs -----

type newUserReq struct {
	Name          string `json:"name" form:"name" validate:"required"`
	UserName      string `json:"userName" form:"userName" validate:"required"`
	Email         string `json:"email" form:"email" validate:"required,email"`
	ContactNumber string `json:"contactNumber" form:"contactNumber" validate:"required"`
	Department    uint64 `json:"department" form:"department" validate:"required"`
	Password      string `json:"password" form:"password" validate:"required,min=8"`
	Role          string `json:"role" form:"role" validate:"required,oneof=HOD STAFF"`
}

func (r newUserReq) input(image *string) service.NewUserInput {
	return service.NewUserInput{
		Name:          r.Name,
		UserName:      r.UserName,
		Email:         r.Email,
		ContactNumber: r.ContactNumber,
		DepartmentID:  r.Department,
		Password:      r.Password,
		Role:          model.Role(r.Role),
		ProfileImage:  image,
	}
}

type profileReq struct {
	Name          string `json:"name" form:"name" validate:"required"`
	UserName      string `json:"userName" form:"userName" validate:"required"`
	Email         string `json:"email" form:"email" validate:"required,email"`
	ContactNumber string `json:"contactNumber" form:"contactNumber" validate:"required"`
}

func (r profileReq) input(image *string) service.ProfileInput {
	return service.ProfileInput{
		Name:          r.Name,
		UserName:      r.UserName,
		Email:         r.Email,
		ContactNumber: r.ContactNumber,
		ProfileImage:  image,
	}
}

type updateMeReq struct {
	profileReq
	Password string `json:"password" form:"password" validate:"required"`
}

type loginReq struct {
	UserName string `json:"userName" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type verifyEmailReq struct {
	Email string `json:"email" validate:"required,email"`
}

type resetReq struct {
	UserID   uint64 `json:"userId" validate:"required"`
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// Register creates an inactive account from a multipart form.
func (h *AuthHandler) Register(c echo.Context) error {
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

	u, err := h.users.Register(ctx, req.input(image))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.auth.Login(ctx, req.UserName, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	u, err := actor(c)
	if err != nil {
		return err
	}
	if err := h.auth.Logout(c.Request().Context(), u); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, true)
}

// VerifyEmail starts a password reset and answers with the reset link.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyEmailReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	link, err := h.auth.RequestReset(ctx, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, link)
}

func (h *AuthHandler) Reset(c echo.Context) error {
	var req resetReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.auth.ResetPassword(ctx, req.UserID, req.Token, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateMe edits the caller's profile; the current password is required.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	u, err := actor(c)
	if err != nil {
		return err
	}
	var req updateMeReq
	if err := bind(c, &req); err != nil {
		return err
	}
	image, err := profileImage(c, h.uploader)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	out, err := h.auth.UpdateMe(ctx, u, middleware.CurrentToken(c), req.Password, req.profileReq.input(image))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/stash-it/backend/internal/service"
)

type UserHandler struct {
	svc service.UserService
}

func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

type UpdateProfileRequest struct {
	Name    string `json:"name"`
	College string `json:"college"`
}

func (h *UserHandler) Me(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	u, err := h.svc.Get(c.Request().Context(), uid)
	if err != nil {
		if err == service.ErrNotFound {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "user not found"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch user"))
	}
	return c.JSON(http.StatusOK, UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, College: u.College})
}

func (h *UserHandler) UpdateMe(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	u, err := h.svc.UpdateProfile(c.Request().Context(), uid, req.Name, req.College)
	if err != nil {
		if err == service.ErrNotFound {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "user not found"))
		}
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
	return c.JSON(http.StatusOK, UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, College: u.College})
}

// GetPublic exposes the fields safe to show another user.
func (h *UserHandler) GetPublic(c echo.Context) error {
	id := c.Param("id")
	u, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if err == service.ErrNotFound {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "user not found"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch user"))
	}
	return c.JSON(http.StatusOK, UserResponse{ID: u.ID, Name: u.Name, College: u.College})
}

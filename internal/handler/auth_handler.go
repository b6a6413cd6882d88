package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/stash-it/backend/internal/service"
)

type AuthHandler struct {
	svc service.AuthService
}

func NewAuthHandler(svc service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	College  string `json:"college"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string       `json:"token,omitempty"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	College string `json:"college,omitempty"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	u, err := h.svc.Register(c.Request().Context(), req.Name, req.Email, req.Password, req.College)
	if err != nil {
		if err == service.ErrEmailTaken {
			return c.JSON(http.StatusConflict, NewErrorResponse("conflict", "email already registered"))
		}
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
	return c.JSON(http.StatusCreated, AuthResponse{
		User: UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, College: u.College},
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	token, u, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if err == service.ErrInvalidCredentials {
			return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "invalid email or password"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "login failed"))
	}
	return c.JSON(http.StatusOK, AuthResponse{
		Token: token,
		User:  UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, College: u.College},
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	authz := c.Request().Header.Get("Authorization")
	token := strings.TrimPrefix(authz, "Bearer ")
	if err := h.svc.Logout(c.Request().Context(), token); err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "logout failed"))
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

package identity

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
	"github.com/clinicdesk/clinicdesk/pkg/respond"
)

type Handler struct {
	svc *Service
	log zerolog.Logger
}

func NewHandler(svc *Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log.With().Str("component", "identity").Logger()}
}

func (h *Handler) Register(g *echo.Group) {
	g.POST("/users", h.createUser, auth.RequireAdmin())
	g.GET("/users", h.listUsers, auth.RequireAdmin())
	g.GET("/users/:id", h.getUser)
}

type createUserRequest struct {
	FullName             string  `json:"fullName"`
	Email                string  `json:"email"`
	Phone                *string `json:"phone"`
	IdentificationNumber string  `json:"identificationNumber"`
	Role                 string  `json:"role"`
}

func (h *Handler) createUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, http.StatusBadRequest, "INVALID_INPUT", "malformed request body")
	}
	u := &User{
		FullName:             req.FullName,
		Email:                req.Email,
		Phone:                req.Phone,
		IdentificationNumber: req.IdentificationNumber,
		Role:                 auth.Role(req.Role),
	}
	if err := h.svc.CreateUser(c.Request().Context(), u); err != nil {
		switch {
		case errors.Is(err, ErrDuplicateIdentity):
			return respond.Error(c, http.StatusConflict, "CONFLICT", "identification number already registered")
		case errors.Is(err, ErrDuplicateEmail):
			return respond.Error(c, http.StatusConflict, "CONFLICT", "email already registered")
		case errors.Is(err, ErrInvalidUser):
			return respond.Error(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		}
		h.log.Error().Err(err).Msg("create user failed")
		return respond.Error(c, http.StatusInternalServerError, "SERVER_ERROR", "could not create user")
	}
	return respond.Data(c, http.StatusCreated, u)
}

func (h *Handler) getUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, "INVALID_INPUT", "invalid user id")
	}
	caller, ok := auth.CallerFromContext(c.Request().Context())
	if !ok {
		return respond.Error(c, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
	}
	if !caller.IsAdmin() && caller.UserID != id {
		return respond.Error(c, http.StatusForbidden, "FORBIDDEN", "cannot view another user's profile")
	}
	u, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return respond.Error(c, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
		}
		h.log.Error().Err(err).Str("user_id", id.String()).Msg("get user failed")
		return respond.Error(c, http.StatusInternalServerError, "SERVER_ERROR", "could not load user")
	}
	return respond.Data(c, http.StatusOK, u)
}

func (h *Handler) listUsers(c echo.Context) error {
	p := pagination.FromContext(c)
	users, total, err := h.svc.ListUsers(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		h.log.Error().Err(err).Msg("list users failed")
		return respond.Error(c, http.StatusInternalServerError, "SERVER_ERROR", "could not list users")
	}
	return respond.Data(c, http.StatusOK, pagination.NewResponse(users, total, p.Limit, p.Offset))
}

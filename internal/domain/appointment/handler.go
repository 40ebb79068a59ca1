package appointment

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/domain/calendar"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
	"github.com/clinicdesk/clinicdesk/pkg/respond"
)

type Handler struct {
	svc *Service
	log zerolog.Logger
}

func NewHandler(svc *Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log.With().Str("component", "appointment").Logger()}
}

func (h *Handler) Register(g *echo.Group) {
	g.GET("/appointments", h.list)
	g.POST("/appointments", h.create)
	g.GET("/appointments/incoming", h.listIncoming)
	g.GET("/appointments/:id", h.get)
	g.PUT("/appointments/:id", h.update)
	g.DELETE("/appointments/:id", h.delete)
	g.POST("/appointments/:id/book", h.book)
	g.POST("/appointments/:id/cancel", h.cancel)
	g.GET("/users/:id/appointments", h.listForUser)
}

type appointmentRequest struct {
	Start                       time.Time `json:"start"`
	End                         time.Time `json:"end"`
	Status                      string    `json:"status"`
	PatientIdentificationNumber string    `json:"patientIdentificationNumber"`
	Type                        string    `json:"type"`
	Location                    *string   `json:"location"`
	MeetingLink                 *string   `json:"meetingLink"`
}

func (r appointmentRequest) toInput() CreateInput {
	return CreateInput{
		Start:                       r.Start,
		End:                         r.End,
		Status:                      Status(r.Status),
		PatientIdentificationNumber: r.PatientIdentificationNumber,
		Type:                        Type(r.Type),
		Location:                    r.Location,
		MeetingLink:                 r.MeetingLink,
	}
}

type bookRequest struct {
	PatientID   uuid.UUID `json:"patientId"`
	Type        string    `json:"type"`
	Location    *string   `json:"location"`
	MeetingLink *string   `json:"meetingLink"`
}

func (h *Handler) create(c echo.Context) error {
	caller, _ := auth.CallerFromContext(c.Request().Context())
	var req appointmentRequest
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, http.StatusBadRequest, string(CodeInvalidInput), "malformed request body")
	}
	a, err := h.svc.Create(c.Request().Context(), caller, req.toInput())
	if err != nil {
		return h.fail(c, err)
	}
	return respond.Data(c, http.StatusCreated, a)
}

func (h *Handler) get(c echo.Context) error {
	caller, _ := auth.CallerFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, string(CodeInvalidInput), "invalid appointment id")
	}
	d, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return h.fail(c, err)
	}
	return respond.Data(c, http.StatusOK, d)
}

func (h *Handler) update(c echo.Context) error {
	caller, _ := auth.CallerFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, string(CodeInvalidInput), "invalid appointment id")
	}
	var req appointmentRequest
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, http.StatusBadRequest, string(CodeInvalidInput), "malformed request body")
	}
	a, err := h.svc.Update(c.Request().Context(), caller, UpdateInput{ID: id, CreateInput: req.toInput()})
	if err != nil {
		return h.fail(c, err)
	}
	return respond.Data(c, http.StatusOK, a)
}

func (h *Handler) delete(c echo.Context) error {
	caller, _ := auth.CallerFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, string(CodeInvalidInput), "invalid appointment id")
	}
	if err := h.svc.Delete(c.Request().Context(), caller, id); err != nil {
		return h.fail(c, err)
	}
	return respond.Data(c, http.StatusOK, map[string]string{"id": id.String()})
}

func (h *Handler) book(c echo.Context) error {
	caller, _ := auth.CallerFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, string(CodeInvalidInput), "invalid appointment id")
	}
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, http.StatusBadRequest, string(CodeInvalidInput), "malformed request body")
	}
	a, err := h.svc.Book(c.Request().Context(), caller, BookInput{
		AppointmentID: id,
		PatientID:     req.PatientID,
		Type:          Type(req.Type),
		Location:      req.Location,
		MeetingLink:   req.MeetingLink,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return respond.Data(c, http.StatusOK, a)
}

func (h *Handler) cancel(c echo.Context) error {
	caller, _ := auth.CallerFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, string(CodeInvalidInput), "invalid appointment id")
	}
	a, err := h.svc.Cancel(c.Request().Context(), caller, id)
	if err != nil {
		return h.fail(c, err)
	}
	return respond.Data(c, http.StatusOK, a)
}

// list serves the calendar feed as day-bucketable events.
func (h *Handler) list(c echo.Context) error {
	caller, _ := auth.CallerFromContext(c.Request().Context())
	p := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), caller, p.Limit, p.Offset)
	if err != nil {
		return h.fail(c, err)
	}
	events := calendar.FromAppointments(toEvents(items))
	return respond.Data(c, http.StatusOK, pagination.NewResponse(events, total, p.Limit, p.Offset))
}

func (h *Handler) listForUser(c echo.Context) error {
	caller, _ := auth.CallerFromContext(c.Request().Context())
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, http.StatusBadRequest, string(CodeInvalidInput), "invalid user id")
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListForUser(c.Request().Context(), caller, userID, p.Limit, p.Offset)
	if err != nil {
		return h.fail(c, err)
	}
	return respond.Data(c, http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) listIncoming(c echo.Context) error {
	caller, _ := auth.CallerFromContext(c.Request().Context())
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListIncoming(c.Request().Context(), caller, p.Limit, p.Offset)
	if err != nil {
		return h.fail(c, err)
	}
	return respond.Data(c, http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

// fail writes the response envelope for a service error. Typed errors carry
// their own status and code; anything else is a masked 500.
func (h *Handler) fail(c echo.Context, err error) error {
	var cmdErr *Error
	if errors.As(err, &cmdErr) {
		return respond.Error(c, cmdErr.HTTPStatus(), string(cmdErr.Code), cmdErr.Message)
	}
	h.log.Error().Err(err).Str("path", c.Path()).Msg("unhandled service error")
	return respond.Error(c, http.StatusInternalServerError, string(CodeServerError), "internal error")
}

func toEvents(items []*Appointment) []calendar.Source {
	out := make([]calendar.Source, 0, len(items))
	for _, a := range items {
		out = append(out, calendar.Source{
			ID:    a.ID,
			Title: eventTitle(a),
			Start: a.StartTime,
			End:   a.EndTime,
			Free:  !a.IsBooked(),
		})
	}
	return out
}

func eventTitle(a *Appointment) string {
	if a.IsBooked() && a.Type != nil {
		return "Booked (" + string(*a.Type) + ")"
	}
	return "Available"
}

package appointment

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

func newTestHandler(repo *mockRepo, resolver *mockResolver) *Handler {
	return NewHandler(newTestService(repo, resolver), zerolog.Nop())
}

func doRequest(h *Handler, caller auth.Caller, method, path, body string) *httptest.ResponseRecorder {
	e := echo.New()
	g := e.Group("/api/v1")
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !caller.IsZero() {
				ctx := auth.WithCaller(c.Request().Context(), caller)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	})
	h.Register(g)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	return envelope.Error.Code
}

func createBody(start, end time.Time) string {
	return fmt.Sprintf(`{"start":%q,"end":%q,"status":"available"}`,
		start.Format(time.RFC3339), end.Format(time.RFC3339))
}

func TestCreateEndpoint(t *testing.T) {
	h := newTestHandler(newMockRepo(), nil)
	rec := doRequest(h, admin(), http.MethodPost, "/api/v1/appointments",
		createBody(testNow.Add(time.Hour), testNow.Add(2*time.Hour)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data Appointment `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.ID == uuid.Nil || envelope.Data.Status != StatusAvailable {
		t.Fatalf("unexpected created row: %+v", envelope.Data)
	}
}

func TestCreateEndpointForbiddenForPatients(t *testing.T) {
	h := newTestHandler(newMockRepo(), nil)
	rec := doRequest(h, patient(), http.MethodPost, "/api/v1/appointments",
		createBody(testNow.Add(time.Hour), testNow.Add(2*time.Hour)))
	if rec.Code != http.StatusForbidden || errorCode(t, rec) != "FORBIDDEN" {
		t.Fatalf("expected 403 FORBIDDEN, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestCreateEndpointConflict(t *testing.T) {
	repo := newMockRepo()
	h := newTestHandler(repo, nil)
	caller := admin()

	first := doRequest(h, caller, http.MethodPost, "/api/v1/appointments",
		createBody(testNow.Add(time.Hour), testNow.Add(2*time.Hour)))
	if first.Code != http.StatusCreated {
		t.Fatalf("seed create failed: %d", first.Code)
	}
	second := doRequest(h, caller, http.MethodPost, "/api/v1/appointments",
		createBody(testNow.Add(90*time.Minute), testNow.Add(150*time.Minute)))
	if second.Code != http.StatusConflict || errorCode(t, second) != "CONFLICT" {
		t.Fatalf("expected 409 CONFLICT, got %d %s", second.Code, second.Body.String())
	}
}

func TestBookEndpoint(t *testing.T) {
	repo := newMockRepo()
	h := newTestHandler(repo, nil)
	caller := patient()

	created := doRequest(h, admin(), http.MethodPost, "/api/v1/appointments",
		createBody(testNow.Add(time.Hour), testNow.Add(2*time.Hour)))
	var envelope struct {
		Data Appointment `json:"data"`
	}
	if err := json.Unmarshal(created.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal created row: %v", err)
	}

	body := fmt.Sprintf(`{"patientId":%q,"type":"virtual"}`, caller.UserID)
	rec := doRequest(h, caller, http.MethodPost,
		"/api/v1/appointments/"+envelope.Data.ID.String()+"/book", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Booking again must yield 409 ALREADY_BOOKED.
	again := doRequest(h, caller, http.MethodPost,
		"/api/v1/appointments/"+envelope.Data.ID.String()+"/book", body)
	if again.Code != http.StatusConflict || errorCode(t, again) != "ALREADY_BOOKED" {
		t.Fatalf("expected 409 ALREADY_BOOKED, got %d %s", again.Code, again.Body.String())
	}
}

func TestBookEndpointUnauthenticated(t *testing.T) {
	h := newTestHandler(newMockRepo(), nil)
	body := fmt.Sprintf(`{"patientId":%q,"type":"virtual"}`, uuid.New())
	rec := doRequest(h, auth.Caller{}, http.MethodPost,
		"/api/v1/appointments/"+uuid.NewString()+"/book", body)
	if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "UNAUTHENTICATED" {
		t.Fatalf("expected 401 UNAUTHENTICATED, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestCancelEndpointNotFound(t *testing.T) {
	h := newTestHandler(newMockRepo(), nil)
	rec := doRequest(h, patient(), http.MethodPost,
		"/api/v1/appointments/"+uuid.NewString()+"/cancel", "")
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "NOT_FOUND" {
		t.Fatalf("expected 404 NOT_FOUND, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestListEndpointReturnsCalendarEvents(t *testing.T) {
	repo := newMockRepo()
	h := newTestHandler(repo, nil)

	doRequest(h, admin(), http.MethodPost, "/api/v1/appointments",
		createBody(testNow.Add(time.Hour), testNow.Add(2*time.Hour)))

	rec := doRequest(h, patient(), http.MethodGet, "/api/v1/appointments", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data struct {
			Items []struct {
				ID    uuid.UUID `json:"id"`
				Title string    `json:"title"`
				Free  bool      `json:"free"`
			} `json:"items"`
			Total int `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Total != 1 || len(envelope.Data.Items) != 1 {
		t.Fatalf("expected one event, got %s", rec.Body.String())
	}
	if !envelope.Data.Items[0].Free || envelope.Data.Items[0].Title != "Available" {
		t.Fatalf("unexpected event projection: %+v", envelope.Data.Items[0])
	}
}

func TestIncomingEndpointAdminOnly(t *testing.T) {
	h := newTestHandler(newMockRepo(), nil)
	rec := doRequest(h, patient(), http.MethodGet, "/api/v1/appointments/incoming", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	rec = doRequest(h, admin(), http.MethodGet, "/api/v1/appointments/incoming", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestInvalidIDRejected(t *testing.T) {
	h := newTestHandler(newMockRepo(), nil)
	rec := doRequest(h, admin(), http.MethodGet, "/api/v1/appointments/not-a-uuid", "")
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "INVALID_INPUT" {
		t.Fatalf("expected 400 INVALID_INPUT, got %d %s", rec.Code, rec.Body.String())
	}
}

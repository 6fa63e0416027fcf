package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"resv-system/backend/internal/api/middleware"
	"resv-system/backend/internal/dto"
	"resv-system/backend/internal/model"
	"resv-system/backend/internal/service"
	"resv-system/backend/pkg/jwt"
	"resv-system/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	loginResult   *dto.TokenResponse
	loginErr      error
	refreshResult *dto.TokenResponse
	refreshErr    error
	refreshGot    string
	logoutErr     error
	logoutClaims  *jwt.Claims
}

func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) Refresh(_ context.Context, token string) (*dto.TokenResponse, error) {
	m.refreshGot = token
	return m.refreshResult, m.refreshErr
}
func (m *mockAuthService) Logout(_ context.Context, claims *jwt.Claims, _ string) error {
	m.logoutClaims = claims
	return m.logoutErr
}

// ── Mock ReservationService ──

type mockReservationService struct {
	createResult *dto.CreateReservationResponse
	createErr    error
	patchErr     error
	patchGot     *dto.PatchReservationRequest
	deleteErr    error
	deleteCalls  int
	listResult   []dto.ReservationResponse
	listErr      error
	listDate     string
	publicResult []dto.PublicReservationResponse
	setResult    *dto.ReservationResponse
	setErr       error
	caller       service.Caller
}

func (m *mockReservationService) Create(_ context.Context, caller service.Caller, _ *dto.CreateReservationRequest) (*dto.CreateReservationResponse, error) {
	m.caller = caller
	return m.createResult, m.createErr
}
func (m *mockReservationService) Patch(_ context.Context, _ service.Caller, req *dto.PatchReservationRequest) error {
	m.patchGot = req
	return m.patchErr
}
func (m *mockReservationService) DeleteSlot(_ context.Context, _ service.Caller, _ *dto.DeleteSlotRequest) error {
	m.deleteCalls++
	return m.deleteErr
}
func (m *mockReservationService) ListMine(_ context.Context, _ service.Caller, date string) ([]dto.ReservationResponse, error) {
	m.listDate = date
	return m.listResult, m.listErr
}
func (m *mockReservationService) Today(_ context.Context, _ service.Caller) ([]dto.ReservationResponse, error) {
	return m.listResult, m.listErr
}
func (m *mockReservationService) ListPublic(_ context.Context, _ *dto.ReservationListQuery) ([]dto.PublicReservationResponse, error) {
	return m.publicResult, nil
}
func (m *mockReservationService) SetStatus(_ context.Context, _ string, _ model.ResvStatus) (*dto.ReservationResponse, error) {
	return m.setResult, m.setErr
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportReservations(_ context.Context, _, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}
func (m *mockExportService) ExportCalendar(_ context.Context, _ service.Caller) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func setAuth(c *gin.Context, role model.Role) {
	c.Set(middleware.CtxUsername, "alice")
	c.Set(middleware.CtxRole, role)
	c.Set(middleware.CtxClaims, &jwt.Claims{Role: int(role), TokenType: jwt.TokenTypeAccess})
}

// withAuth 注入认证信息后执行 handler
func withAuth(role model.Role, h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		setAuth(c, role)
		h(c)
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func rawBody(s string) io.Reader {
	return strings.NewReader(s)
}

func serve(method, path string, body io.Reader, register func(r *gin.Engine)) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	r := gin.New()
	register(r)
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.TokenResponse{
			AccessToken:  "test-access-token",
			RefreshToken: "test-refresh-token",
			ExpiresIn:    900,
		},
	}
	h := NewAuthHandler(mock, nil)

	w := serve("POST", "/auth/login", jsonBody(dto.LoginRequest{Username: "alice", Password: "password123"}),
		func(r *gin.Engine) { r.POST("/auth/login", h.Login) })

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "test-refresh-token") {
		t.Error("refresh token must only be sent as cookie")
	}
	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" {
			found = true
			if c.Value != "test-refresh-token" || !c.HttpOnly {
				t.Errorf("unexpected refresh cookie: %+v", c)
			}
		}
	}
	if !found {
		t.Error("expected refresh_token cookie to be set")
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, nil)

	w := serve("POST", "/auth/login", rawBody("invalid json"),
		func(r *gin.Engine) { r.POST("/auth/login", h.Login) })

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{loginErr: service.ErrInvalidCredentials}, nil)

	w := serve("POST", "/auth/login", jsonBody(dto.LoginRequest{Username: "alice", Password: "wrong"}),
		func(r *gin.Engine) { r.POST("/auth/login", h.Login) })

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 11001 {
		t.Errorf("expected error code 11001, got %d", resp.Code)
	}
}

func TestAuthHandler_RefreshToken_FromCookie(t *testing.T) {
	mock := &mockAuthService{
		refreshResult: &dto.TokenResponse{AccessToken: "new-access", RefreshToken: "new-refresh", ExpiresIn: 900},
	}
	h := NewAuthHandler(mock, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "cookie-refresh"})
	r := gin.New()
	r.POST("/auth/refresh", h.RefreshToken)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.refreshGot != "cookie-refresh" {
		t.Errorf("expected cookie token to be used, got %q", mock.refreshGot)
	}
}

func TestAuthHandler_RefreshToken_MissingToken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, nil)

	w := serve("POST", "/auth/refresh", jsonBody(map[string]string{}),
		func(r *gin.Engine) { r.POST("/auth/refresh", h.RefreshToken) })

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_RefreshToken_Revoked(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{refreshErr: service.ErrInvalidToken}, nil)

	w := serve("POST", "/auth/refresh", jsonBody(dto.RefreshTokenRequest{RefreshToken: "old"}),
		func(r *gin.Engine) { r.POST("/auth/refresh", h.RefreshToken) })

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuthHandler_Logout_Success(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock, nil)

	w := serve("POST", "/auth/logout", nil,
		func(r *gin.Engine) { r.POST("/auth/logout", withAuth(model.RoleBasic, h.Logout)) })

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.logoutClaims == nil {
		t.Error("expected access token claims to be passed to Logout")
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" && c.MaxAge >= 0 {
			t.Error("expected refresh_token cookie to be cleared")
		}
	}
}

// ═══════════════════════════════════════════════════════════
// ReservationHandler Tests
// ═══════════════════════════════════════════════════════════

const createBody = `{"room_id":"R101","title":"组会","time_slots":[{"start_time":"2026-03-03T09:00:00+08:00","end_time":"2026-03-03T10:00:00+08:00"}]}`

func TestReservationHandler_Create_Success(t *testing.T) {
	mock := &mockReservationService{
		createResult: &dto.CreateReservationResponse{ResvID: "r1", Status: int(model.StatusConfirmed), Message: "预约成功"},
	}
	h := NewReservationHandler(mock)

	w := serve("POST", "/user/reservation", rawBody(createBody),
		func(r *gin.Engine) { r.POST("/user/reservation", withAuth(model.RoleBasic, h.Create)) })

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if mock.caller.Username != "alice" || mock.caller.Role != model.RoleBasic {
		t.Errorf("expected caller from context, got %+v", mock.caller)
	}
}

func TestReservationHandler_Create_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantHTTP int
		wantCode int
	}{
		{"missing fields", service.ErrMissingFields, http.StatusBadRequest, 10001},
		{"blocked", service.ErrRoleBlocked, http.StatusForbidden, 13001},
		{"forbidden", service.ErrAdmissionDenied, http.StatusBadRequest, 13101},
		{"room unavailable", service.ErrRoomUnavailable, http.StatusBadRequest, 13102},
		{"daily limit", service.ErrDailyLimitReached, http.StatusBadRequest, 13103},
		{"conflict", service.ErrReservationConflict, http.StatusConflict, 13201},
		{"storage", io.ErrUnexpectedEOF, http.StatusInternalServerError, 50000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewReservationHandler(&mockReservationService{createErr: tt.err})

			w := serve("POST", "/user/reservation", rawBody(createBody),
				func(r *gin.Engine) { r.POST("/user/reservation", withAuth(model.RoleBasic, h.Create)) })

			if w.Code != tt.wantHTTP {
				t.Errorf("expected %d, got %d", tt.wantHTTP, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected error code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestReservationHandler_Create_AdmissionDeniedMessage(t *testing.T) {
	h := NewReservationHandler(&mockReservationService{createErr: service.ErrAdmissionDenied})

	w := serve("POST", "/user/reservation", rawBody(createBody),
		func(r *gin.Engine) { r.POST("/user/reservation", withAuth(model.RoleRestricted, h.Create)) })

	if resp := parseResponse(w); resp.Message != "Access denied" {
		t.Errorf("expected message 'Access denied', got %q", resp.Message)
	}
}

func TestReservationHandler_Create_TitleTooLong(t *testing.T) {
	mock := &mockReservationService{}
	h := NewReservationHandler(mock)
	body := strings.Replace(createBody, "组会", strings.Repeat("会", 201), 1)

	w := serve("POST", "/user/reservation", rawBody(body),
		func(r *gin.Engine) { r.POST("/user/reservation", withAuth(model.RoleBasic, h.Create)) })

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if mock.caller.Username != "" {
		t.Error("service must not be called for an oversized title")
	}
}

func TestReservationHandler_NotFoundMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"reservation", service.ErrReservationNotFound, 13301},
		{"invalid title", service.ErrInvalidTitle, 10001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewReservationHandler(&mockReservationService{patchErr: tt.err})

			w := serve("PATCH", "/user/reservation", rawBody(`{"resv_id":"abc","data":{"title":"x"}}`),
				func(r *gin.Engine) { r.PATCH("/user/reservation", withAuth(model.RoleBasic, h.Patch)) })

			if w.Code == http.StatusInternalServerError {
				t.Fatalf("expected client error, got 500")
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected error code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestReservationHandler_Create_Unauthenticated(t *testing.T) {
	h := NewReservationHandler(&mockReservationService{})

	w := serve("POST", "/user/reservation", rawBody(createBody),
		func(r *gin.Engine) { r.POST("/user/reservation", h.Create) })

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestReservationHandler_Patch(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantHTTP  int
		wantCalls bool
	}{
		{"cancel", `{"resv_id":"r1","data":{"status":2}}`, http.StatusOK, true},
		{"title", `{"resv_id":"r1","data":{"title":"新标题"}}`, http.StatusOK, true},
		{"unknown data key", `{"resv_id":"r1","data":{"room_id":"R102"}}`, http.StatusBadRequest, false},
		{"extra top-level key", `{"resv_id":"r1","data":{},"x":1}`, http.StatusBadRequest, false},
		{"missing data", `{"resv_id":"r1"}`, http.StatusBadRequest, false},
		{"status not int", `{"resv_id":"r1","data":{"status":"2"}}`, http.StatusBadRequest, false},
		{"null title", `{"resv_id":"r1","data":{"title":null}}`, http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockReservationService{}
			h := NewReservationHandler(mock)

			w := serve("PATCH", "/user/reservation", rawBody(tt.body),
				func(r *gin.Engine) { r.PATCH("/user/reservation", withAuth(model.RoleBasic, h.Patch)) })

			if w.Code != tt.wantHTTP {
				t.Errorf("expected %d, got %d", tt.wantHTTP, w.Code)
			}
			if (mock.patchGot != nil) != tt.wantCalls {
				t.Errorf("service called = %v, want %v", mock.patchGot != nil, tt.wantCalls)
			}
		})
	}
}

func TestReservationHandler_Patch_NotOwner(t *testing.T) {
	h := NewReservationHandler(&mockReservationService{patchErr: service.ErrNotOwner})

	w := serve("PATCH", "/user/reservation", rawBody(`{"resv_id":"r1","data":{"status":2}}`),
		func(r *gin.Engine) { r.PATCH("/user/reservation", withAuth(model.RoleBasic, h.Patch)) })

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestReservationHandler_DeleteSlot(t *testing.T) {
	mock := &mockReservationService{}
	h := NewReservationHandler(mock)
	register := func(r *gin.Engine) { r.DELETE("/user/reservation", withAuth(model.RoleBasic, h.DeleteSlot)) }

	w := serve("DELETE", "/user/reservation", rawBody(`{"resv_id":"r1","slot_id":"s1"}`), register)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}

	w = serve("DELETE", "/user/reservation", rawBody(`{"resv_id":"r1","slot_id":"s1","note":"x"}`), register)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for extra key, got %d", w.Code)
	}
	w = serve("DELETE", "/user/reservation", rawBody(`{"resv_id":"r1"}`), register)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing slot_id, got %d", w.Code)
	}
	if mock.deleteCalls != 1 {
		t.Errorf("expected service to be called once, got %d", mock.deleteCalls)
	}
}

func TestReservationHandler_ListMine_BadDate(t *testing.T) {
	mock := &mockReservationService{}
	h := NewReservationHandler(mock)
	register := func(r *gin.Engine) { r.GET("/user/reservation", withAuth(model.RoleBasic, h.ListMine)) }

	w := serve("GET", "/user/reservation?date=03-01-2026", nil, register)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}

	w = serve("GET", "/user/reservation?date=2026-03-01", nil, register)
	if w.Code != http.StatusOK || mock.listDate != "2026-03-01" {
		t.Errorf("expected 200 with date passed through, got %d %q", w.Code, mock.listDate)
	}
}

// ═══════════════════════════════════════════════════════════
// AdminHandler / ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAdminHandler_SetReservationStatus_Conflict(t *testing.T) {
	h := NewAdminHandler(&service.Service{
		Reservation: &mockReservationService{setErr: service.ErrReservationConflict},
	})

	w := serve("PATCH", "/admin/reservations/r1/status", jsonBody(map[string]int{"status": 1}),
		func(r *gin.Engine) {
			r.PATCH("/admin/reservations/:id/status", withAuth(model.RoleAdmin, h.SetReservationStatus))
		})

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestAdminHandler_SetReservationStatus_MissingStatus(t *testing.T) {
	h := NewAdminHandler(&service.Service{Reservation: &mockReservationService{}})

	w := serve("PATCH", "/admin/reservations/r1/status", jsonBody(map[string]int{}),
		func(r *gin.Engine) {
			r.PATCH("/admin/reservations/:id/status", withAuth(model.RoleAdmin, h.SetReservationStatus))
		})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestExportHandler_ExportCalendar(t *testing.T) {
	h := NewExportHandler(&mockExportService{
		buf:      bytes.NewBufferString("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"),
		filename: "alice.ics",
	})

	w := serve("GET", "/user/reservation/ics", nil,
		func(r *gin.Engine) { r.GET("/user/reservation/ics", withAuth(model.RoleBasic, h.ExportCalendar)) })

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("expected text/calendar, got %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "alice.ics") {
		t.Errorf("expected filename in Content-Disposition, got %s", cd)
	}
}

func TestExportHandler_ExportReservations_Validation(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrExportRange})
	register := func(r *gin.Engine) { r.GET("/admin/export/reservations", h.ExportReservations) }

	w := serve("GET", "/admin/export/reservations", nil, register)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without dates, got %d", w.Code)
	}

	w = serve("GET", "/admin/export/reservations?start_date=2026-03-05&end_date=2026-03-01", nil, register)
	if resp := parseResponse(w); w.Code != http.StatusBadRequest || resp.Code != 16102 {
		t.Errorf("expected 400/16102, got %d/%d", w.Code, resp.Code)
	}
}

func TestPublicHandler_Catalogs(t *testing.T) {
	h := NewPublicHandler(&service.Service{})

	w := serve("GET", "/users/roles", nil, func(r *gin.Engine) { r.GET("/users/roles", h.UserRoles) })
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ADMIN"`) || !strings.Contains(w.Body.String(), `"BLOCKED"`) {
		t.Errorf("expected role catalog to list all roles, got %s", w.Body.String())
	}
}

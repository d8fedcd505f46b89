package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type echoRoutes func(e *echo.Echo)

func (f echoRoutes) RegisterRoutes(e *echo.Echo) { f(e) }

type pctQuery struct {
	PctChg string `query:"pct_chg" validate:"required,numeric"`
}

func newTestServer(opts ...ServerOption) *Server {
	routes := echoRoutes(func(e *echo.Echo) {
		e.GET("/pct", func(c echo.Context) error {
			var req pctQuery
			if details := ReadAndValidateRequest(c, &req); details != nil {
				return BadRequestResponse(c, details)
			}
			return ListResponse(c, "ok", []string{req.PctChg}, 1)
		})
		e.GET("/missing", func(c echo.Context) error {
			return AppErrorResponse(c, NotFoundErrorf("stock %s not found", "000001.SZ"))
		})
		e.GET("/boom", func(c echo.Context) error {
			return AppErrorResponse(c, errors.New("db down"))
		})
	})
	opts = append([]ServerOption{WithRegistry(prometheus.NewRegistry())}, opts...)
	return NewServer([]Handler{routes}, opts...)
}

func serve(s *Server, target string) (*httptest.ResponseRecorder, APIResponse) {
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body APIResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer()
	if rec, _ := serve(s, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
	serve(s, "/pct?pct_chg=1.5")
	rec, _ := serve(s, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Fatalf("metrics missing request counter: %s", rec.Body.String())
	}
}

func TestReadiness(t *testing.T) {
	s := newTestServer(WithReadinessCheck("clickhouse", func(context.Context) error { return errors.New("refused") }))
	rec, _ := serve(s, "/readyz")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "refused") {
		t.Fatalf("readyz: %d %s", rec.Code, rec.Body.String())
	}

	s = newTestServer()
	if rec, _ := serve(s, "/readyz"); rec.Code != http.StatusOK {
		t.Fatalf("readyz without checks: %d", rec.Code)
	}
}

func TestValidationAndEnvelopes(t *testing.T) {
	s := newTestServer()

	rec, body := serve(s, "/pct?pct_chg=abc")
	if rec.Code != http.StatusBadRequest || body.Status != StatusError {
		t.Fatalf("bad pct: %d %+v", rec.Code, body)
	}
	if !strings.Contains(rec.Body.String(), `"field":"pct_chg"`) {
		t.Fatalf("validation should name the query field: %s", rec.Body.String())
	}

	rec, body = serve(s, "/pct?pct_chg=2.5")
	if rec.Code != http.StatusOK || body.Total == nil || *body.Total != 1 {
		t.Fatalf("list: %d %+v", rec.Code, body)
	}

	rec, body = serve(s, "/missing")
	if rec.Code != http.StatusNotFound || body.Message != "stock 000001.SZ not found" {
		t.Fatalf("not found: %d %+v", rec.Code, body)
	}

	rec, body = serve(s, "/boom")
	if rec.Code != http.StatusInternalServerError || body.Status != StatusError {
		t.Fatalf("internal: %d %+v", rec.Code, body)
	}
}

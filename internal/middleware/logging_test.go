package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/personalization/internal/request"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		method        string
		path          string
		handlerStatus int
		writeBody     bool
	}{
		{name: "GET request", method: http.MethodGet, path: "/healthz", handlerStatus: http.StatusOK},
		{name: "POST request", method: http.MethodPost, path: "/feed/rank", handlerStatus: http.StatusCreated},
		{name: "404 request", method: http.MethodGet, path: "/notfound", handlerStatus: http.StatusNotFound},
		{name: "implicit 200 from body write", method: http.MethodGet, path: "/version", writeBody: true, handlerStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.InfoLevel)
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.writeBody {
					_, _ = w.Write([]byte("ok"))
					return
				}
				w.WriteHeader(tt.handlerStatus)
			})

			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			Logging(zap.New(core))(handler).ServeHTTP(w, req)

			if w.Code != tt.handlerStatus {
				t.Errorf("Expected status %d, got %d", tt.handlerStatus, w.Code)
			}
			entries := logs.FilterMessage("http_request").All()
			if len(entries) != 1 {
				t.Fatalf("Expected 1 http_request entry, got %d", len(entries))
			}
			fields := entries[0].ContextMap()
			if fields["path"] != tt.path {
				t.Errorf("Expected path %q, got %v", tt.path, fields["path"])
			}
			if fields["status_code"] != int64(tt.handlerStatus) {
				t.Errorf("Expected status_code %d, got %v", tt.handlerStatus, fields["status_code"])
			}
		})
	}
}

func TestLogging_RouteTemplate(t *testing.T) {
	t.Parallel()

	var got string
	r := mux.NewRouter()
	r.HandleFunc("/profile/{userId}", func(w http.ResponseWriter, req *http.Request) {
		got = routeTemplate(req)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/profile/u-1", nil))
	if got != "/profile/{userId}" {
		t.Errorf("routeTemplate = %q, want /profile/{userId}", got)
	}

	if tmpl := routeTemplate(httptest.NewRequest(http.MethodGet, "/x", nil)); tmpl != "unmatched" {
		t.Errorf("routeTemplate without route = %q, want unmatched", tmpl)
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	existing := uuid.NewString()
	tests := []struct {
		name      string
		header    string
		wantReuse bool
	}{
		{name: "generates when missing"},
		{name: "reuses valid id", header: existing, wantReuse: true},
		{name: "replaces invalid id", header: "not-a-uuid\nforged"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var fromCtx string
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fromCtx = request.RequestIDFromContext(r.Context())
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(request.RequestIDHeader, tt.header)
			}
			w := httptest.NewRecorder()
			RequestID(handler).ServeHTTP(w, req)

			got := w.Header().Get(request.RequestIDHeader)
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("response id %q is not a uuid", got)
			}
			if got != fromCtx {
				t.Errorf("context id %q != header id %q", fromCtx, got)
			}
			if tt.wantReuse && got != existing {
				t.Errorf("expected id %q to be reused, got %q", existing, got)
			}
		})
	}
}

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	apierrors "github.com/westshgit/apidoc/errors"
	"github.com/westshgit/apidoc/logging"
	"github.com/westshgit/apidoc/telemetry"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 128

type ctxKey struct{}

// RequestID returns the ID assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// withRequestID reuses a sane incoming X-Request-ID or assigns a new UUID,
// and echoes it on the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// observe wraps each request in a server span, converts panics into a bare
// 500 and logs the outcome.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := s.tracer.StartRequestSpan(r)
		r = r.WithContext(ctx)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		id := RequestID(ctx)

		var failure error
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				perr := apierrors.RecoverPanic(rec)
				failure = perr
				s.logger.WithRequestID(id).Error("handler panic", logging.Fields{
					"path":  r.URL.Path,
					"panic": perr.Message(),
				})
				if ww.Status() == 0 {
					writeError(ww, r, perr)
				}
			}

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := ""
			if rc := chi.RouteContext(ctx); rc != nil {
				route = rc.RoutePattern()
			}
			s.tracer.EndRequestSpan(span, telemetry.RequestSpanOptions{
				Route:     route,
				Status:    status,
				RequestID: id,
			}, failure)
			s.logger.WithRequestID(id).Request(r.Method, r.URL.Path, status, time.Since(start))
		}()

		next.ServeHTTP(ww, r)
	})
}

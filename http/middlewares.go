package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func ChainMiddlewares(ms ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		for i := len(ms) - 1; i >= 0; i-- {
			h = ms[i](h)
		}

		return h
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

var durationBuckets = []float64{
	0.0005,
	0.001, // 1ms
	0.002,
	0.005,
	0.01, // 10ms
	0.02,
	0.05,
	0.1, // 100 ms
	0.2,
	0.5,
	1.0, // 1s
	2.0,
	5.0,
	10.0, // 10s
}

// PrometheusExporterMiddleware counts and times requests by status, method and
// registered pattern. Requests whose URI matches one of excludePaths are not
// recorded.
func PrometheusExporterMiddleware(reg prometheus.Registerer, namespace string, excludePaths ...string) MiddlewareFunc {
	var pathRegexps []*regexp.Regexp
	for _, path := range excludePaths {
		pathRegexps = append(pathRegexps, regexp.MustCompile(path))
	}
	factory := promauto.With(reg)
	requestsHist := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "httpserver",
		Name:      "requests_duration",
		Buckets:   durationBuckets,
	}, []string{"status", "method", "handler"})

	requestCount := factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "httpserver",
			Name:      "requests_total",
			Help:      "How many HTTP requests processed, partitioned by status code and HTTP method.",
		},
		[]string{"status", "method", "handler"},
	)
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			for _, path := range pathRegexps {
				if path.MatchString(req.RequestURI) {
					h.ServeHTTP(w, req)
					return
				}
			}
			start := time.Now()
			statusRecorder := &statusRecorder{ResponseWriter: w}
			h.ServeHTTP(statusRecorder, req)

			rPath, _ := req.Context().Value(registeredURIKey).(string)
			if rPath == "" {
				rPath = req.URL.Path
			}
			status := fmt.Sprint(statusRecorder.status)
			requestCount.WithLabelValues(status, req.Method, rPath).Inc()
			requestsHist.WithLabelValues(status, req.Method, rPath).Observe(time.Since(start).Seconds())
		})
	}
}

func RecoverMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			stack := make([]byte, 4<<10)
			stack = stack[:runtime.Stack(stack, false)]
			if err, isErr := rec.(error); isErr {
				slog.Error(err.Error(), "panic", true, "stack", string(stack))
			} else {
				slog.Error("unknown recover", "recover()", rec, "stack", string(stack))
			}
			w.WriteHeader(http.StatusInternalServerError)
		}()
		h.ServeHTTP(w, r)
	})
}

func RequestLoggerMiddleware(logWriter io.Writer) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			statusRecorder := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(statusRecorder, r)
			elapsed := time.Since(start)
			fmt.Fprintf(logWriter, "%s %s %s %d %s\n", r.Method, r.URL.Path, r.Proto, statusRecorder.status, elapsed)
		})
	}
}

// SentryMiddleware reports panics to Sentry and re-panics, so it belongs inside
// RecoverMiddleware.
func SentryMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec != nil {
				sentry.CurrentHub().Recover(rec)
				panic(rec)
			}
		}()

		h.ServeHTTP(w, r)
	})
}

const (
	ClaimsKey          contextKey = "claims"
	IsAuthenticatedKey contextKey = "isAuthenticated"
)

func (r *Request) GetClaims() jwt.Claims {
	claims, _ := r.Context().Value(ClaimsKey).(jwt.Claims)
	return claims
}

// JWTBearerAuthenticationMiddleware marks requests carrying a valid HS256
// bearer token as authenticated. Requests without one pass through untouched.
func JWTBearerAuthenticationMiddleware(secret []byte) MiddlewareFunc {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authorization, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				h.ServeHTTP(w, r)
				return
			}
			claims := &jwt.RegisteredClaims{}
			tok, err := jwt.ParseWithClaims(authorization, claims, func(token *jwt.Token) (interface{}, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil {
				slog.Warn("error in parsing jwt with claims", "err", err)
				h.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), ClaimsKey, tok.Claims)
			ctx = context.WithValue(ctx, IsAuthenticatedKey, true)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func AuthenticatedOnlyMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Context().Value(IsAuthenticatedKey) != true {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Unauthorized user"))
			return
		}
		h.ServeHTTP(w, r)
	})
}

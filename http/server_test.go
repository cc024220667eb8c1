package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amirrezaask/randomset/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/matryer/is"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestServerRouteRegisteration(t *testing.T) {
	is := is.New(t)
	type input struct{}
	type output struct {
		Form string `json:"form"`
	}
	tfs := []struct {
		Name string
		f    any
		want string
	}{
		{
			Name: "http_form",
			f: func(r *Request) (Result, error) {
				return Result{Status: 200, Body: map[string]string{"form": "http"}}, nil
			},
			want: `{"form":"http"}`,
		},
		{
			Name: "std_form",
			f: func(rw http.ResponseWriter, r *Request) {
				rw.Write([]byte(`{"form":"std"}`))
			},
			want: `{"form":"std"}`,
		},
		{
			Name: "reflect_form",
			f: func(*Request, *input) (output, error) {
				return output{Form: "reflect"}, nil
			},
			want: `{"form":"reflect"}`,
		},
	}
	mux := NewServeMux()
	for _, tf := range tfs {
		mux.HandleFunc("GET /"+tf.Name, tf.f)
	}

	for _, tf := range tfs {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/"+tf.Name, nil))
		is.Equal(rec.Code, http.StatusOK)
		is.Equal(strings.TrimSpace(rec.Body.String()), tf.want)
	}
}

func TestServerRejectsUnsupportedHandler(t *testing.T) {
	is := is.New(t)
	defer func() {
		is.True(recover() != nil)
	}()
	NewServeMux().HandleFunc("GET /", func(string) {})
}

func TestServerBind(t *testing.T) {
	is := is.New(t)
	type input struct {
		FromPath  int     `path:"from_path"`
		FromQuery float64 `query:"from_query"`
		FromBody  string  `json:"from_body"`
	}
	type output struct {
		FromPath  int     `json:"from_path"`
		FromQuery float64 `json:"from_query"`
		FromBody  string  `json:"from_body"`
	}
	mux := NewServeMux()
	mux.HandleFunc("POST /{from_path}", func(r *Request, i *input) (output, error) {
		return output{
			FromPath:  i.FromPath,
			FromQuery: i.FromQuery,
			FromBody:  i.FromBody,
		}, nil
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	bs, err := json.Marshal(map[string]interface{}{
		"from_body": "hello it's me again",
	})
	is.NoErr(err)

	req, err := http.NewRequest("POST", srv.URL+"/12?from_query=3.14", bytes.NewReader(bs))
	is.NoErr(err)

	resp, err := http.DefaultClient.Do(req)
	is.NoErr(err)
	defer resp.Body.Close()

	var o output
	is.NoErr(json.NewDecoder(resp.Body).Decode(&o))
	is.Equal(o.FromPath, 12)
	is.Equal(o.FromQuery, 3.14)
	is.Equal(o.FromBody, "hello it's me again")
}

func TestServerBindErrors(t *testing.T) {
	type input struct {
		N int `path:"n"`
	}
	mux := NewServeMux()
	mux.HandleFunc("POST /{n}", func(r *Request, i *input) (map[string]int, error) {
		return map[string]int{"n": i.N}, nil
	})

	t.Run("bad path value", func(t *testing.T) {
		is := is.New(t)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/twelve", nil))
		is.Equal(rec.Code, http.StatusBadRequest)
		is.True(strings.Contains(rec.Body.String(), "cannot bind field N"))
	})

	t.Run("unsupported content type", func(t *testing.T) {
		is := is.New(t)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/12", strings.NewReader("n=12"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		mux.ServeHTTP(rec, req)
		is.Equal(rec.Code, http.StatusBadRequest)
	})

	t.Run("empty body", func(t *testing.T) {
		is := is.New(t)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/12", nil))
		is.Equal(rec.Code, http.StatusOK)
		is.Equal(strings.TrimSpace(rec.Body.String()), `{"n":12}`)
	})

	t.Run("path wins over body", func(t *testing.T) {
		is := is.New(t)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/12", strings.NewReader(`{"n":5}`))
		req.Header.Set("Content-Type", "application/json")
		mux.ServeHTTP(rec, req)
		is.Equal(rec.Code, http.StatusOK)
		is.Equal(strings.TrimSpace(rec.Body.String()), `{"n":12}`)
	})

	t.Run("json with charset", func(t *testing.T) {
		is := is.New(t)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/12", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		mux.ServeHTTP(rec, req)
		is.Equal(rec.Code, http.StatusOK)
	})

	t.Run("malformed content type", func(t *testing.T) {
		is := is.New(t)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/12", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json; charset")
		mux.ServeHTTP(rec, req)
		is.Equal(rec.Code, http.StatusBadRequest)
	})
}

func TestServerErrorStatus(t *testing.T) {
	type input struct{}
	notFound := errors.New("element not found")
	mux := NewServeMux()
	mux.HandleFunc("GET /status", func(r *Request, _ *input) (map[string]string, error) {
		return nil, WithStatus(http.StatusNotFound, errors.Wrap(notFound, "cannot remove x"))
	})
	mux.HandleFunc("GET /plain", func(r *Request, _ *input) (map[string]string, error) {
		return nil, errors.New("connection reset")
	})

	t.Run("status error", func(t *testing.T) {
		is := is.New(t)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
		is.Equal(rec.Code, http.StatusNotFound)
		is.Equal(strings.TrimSpace(rec.Body.String()), `{"message":"cannot remove x: element not found"}`)
	})

	t.Run("plain error", func(t *testing.T) {
		is := is.New(t)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plain", nil))
		is.Equal(rec.Code, http.StatusInternalServerError)
		is.Equal(rec.Header().Get("Content-Type"), "application/json")
	})

	t.Run("wrapped status error", func(t *testing.T) {
		is := is.New(t)
		err := errors.Wrap(WithStatus(http.StatusConflict, notFound), "outer")
		is.Equal(resultFromError(err).Status, http.StatusConflict)
		is.True(errors.Is(err, notFound))
		is.Equal(WithStatus(http.StatusConflict, nil), nil)
	})
}

func TestMiddlewareOrder(t *testing.T) {
	is := is.New(t)
	var order []string
	mark := func(name string) MiddlewareFunc {
		return func(h http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				h.ServeHTTP(w, r)
			})
		}
	}
	mux := NewServeMux()
	mux.UseMiddlewares(mark("global"))
	mux.HandleFunc("GET /", func(r *Request) (Result, error) {
		order = append(order, "handler")
		return Result{}, nil
	}, mark("route_1"), mark("route_2"))

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	is.Equal(order, []string{"global", "route_1", "route_2", "handler"})
}

func TestRecoverMiddleware(t *testing.T) {
	is := is.New(t)
	mux := NewServeMux()
	mux.UseMiddlewares(RecoverMiddleware, SentryMiddleware)
	mux.HandleFunc("GET /panic", func(r *Request) (Result, error) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	is.Equal(rec.Code, http.StatusInternalServerError)
}

func TestRequestLoggerMiddleware(t *testing.T) {
	is := is.New(t)
	var buf bytes.Buffer
	mux := NewServeMux()
	mux.UseMiddlewares(RequestLoggerMiddleware(&buf))
	mux.HandleFunc("GET /teapot", func(r *Request) (Result, error) {
		return Result{Status: http.StatusTeapot}, nil
	})

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/teapot", nil))
	is.True(strings.HasPrefix(buf.String(), "GET /teapot HTTP/1.1 418 "))
}

func TestPrometheusExporterMiddleware(t *testing.T) {
	is := is.New(t)
	reg := prometheus.NewRegistry()
	mux := NewServeMux()
	mux.UseMiddlewares(PrometheusExporterMiddleware(reg, "test", "^/metrics"))
	mux.HandleFunc("GET /items/{id}", func(r *Request) (Result, error) {
		return Result{Body: map[string]string{"id": r.PathValue("id")}}, nil
	})
	mux.MapPrometheusEndpoint("/metrics", reg)

	for _, id := range []string{"1", "2", "3"} {
		mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
	}

	expected := `
# HELP test_httpserver_requests_total How many HTTP requests processed, partitioned by status code and HTTP method.
# TYPE test_httpserver_requests_total counter
test_httpserver_requests_total{handler="GET /items/{id}",method="GET",status="200"} 3
`
	is.NoErr(testutil.GatherAndCompare(reg, strings.NewReader(expected), "test_httpserver_requests_total"))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	is.Equal(rec.Code, http.StatusOK)
	is.True(strings.Contains(rec.Body.String(), "test_httpserver_requests_duration_bucket"))
}

func TestJWTBearerAuthentication(t *testing.T) {
	secret := []byte("s3cr3t")
	mux := NewServeMux()
	mux.UseMiddlewares(JWTBearerAuthenticationMiddleware(secret))
	mux.HandleFunc("GET /public", func(r *Request) (Result, error) {
		return Result{Body: map[string]bool{"authenticated": r.GetClaims() != nil}}, nil
	})
	mux.HandleFunc("GET /private", func(r *Request) (Result, error) {
		sub, err := r.GetClaims().GetSubject()
		return Result{Body: map[string]string{"sub": sub}}, err
	}, AuthenticatedOnlyMiddleware)

	sign := func(t *testing.T, key []byte) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "operator",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		s, err := tok.SignedString(key)
		if err != nil {
			t.Fatal(err)
		}
		return s
	}

	tcs := []struct {
		name   string
		path   string
		token  string
		status int
		body   string
	}{
		{name: "public without token", path: "/public", status: http.StatusOK, body: `{"authenticated":false}`},
		{name: "public with token", path: "/public", token: sign(t, secret), status: http.StatusOK, body: `{"authenticated":true}`},
		{name: "private without token", path: "/private", status: http.StatusUnauthorized, body: "Unauthorized user"},
		{name: "private with foreign token", path: "/private", token: sign(t, []byte("other")), status: http.StatusUnauthorized, body: "Unauthorized user"},
		{name: "private with token", path: "/private", token: sign(t, secret), status: http.StatusOK, body: `{"sub":"operator"}`},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			is := is.New(t)
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			is.Equal(rec.Code, tc.status)
			is.Equal(strings.TrimSpace(rec.Body.String()), tc.body)
		})
	}
}

// Package http wraps net/http's pattern mux with handlers that return a Result
// instead of writing to the response, request binding and middleware chains.
package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"reflect"
	"strconv"

	"github.com/amirrezaask/randomset/errors"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Result struct {
	Body   any
	Status int
	Header http.Header
}

type Request struct {
	*http.Request
}

// Bind decodes the JSON body into the struct pointed to by v and then sets its
// `query` and `path` tagged fields. Values from the URL win over the body.
func (r *Request) Bind(v any) error {
	rvPtr := reflect.ValueOf(v)
	if rvPtr.Kind() != reflect.Ptr || rvPtr.Elem().Kind() != reflect.Struct {
		return errors.New("input should be a pointer to a struct for Bind")
	}
	if err := r.BindBody(v); err != nil {
		return err
	}
	rv := rvPtr.Elem()
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		var raw string
		if qp := rt.Field(i).Tag.Get("query"); qp != "" {
			raw = r.URL.Query().Get(qp)
		}
		if pp := rt.Field(i).Tag.Get("path"); pp != "" {
			raw = r.PathValue(pp)
		}
		if raw == "" {
			continue
		}
		if err := setWithProperType(raw, rv.Field(i)); err != nil {
			return errors.Wrap(err, "cannot bind field %s", rt.Field(i).Name)
		}
	}

	return nil
}

// BindBody decodes a JSON body into v. An empty body is not an error.
func (r *Request) BindBody(v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if contentType := r.Header.Get("Content-Type"); contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || mediaType != "application/json" {
			return errors.Newf("Content-Type '%s' is not supported", contentType)
		}
	}

	err := json.NewDecoder(r.Body).Decode(v)
	if err == io.EOF {
		return nil
	}
	return errors.Wrap(err, "cannot decode request body")
}

func setWithProperType(raw string, field reflect.Value) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return errors.Newf("unsupported field kind %s", field.Kind())
	}
	return nil
}

type HandlerFunc func(*Request) (Result, error)

func (h HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res, err := h(&Request{r})

	if res.Status == 0 && err == nil {
		res.Status = http.StatusOK
	} else if res.Status == 0 && err != nil {
		res.Status = http.StatusInternalServerError
	}
	if err != nil {
		if res.Status >= http.StatusInternalServerError {
			slog.Error("error in http handler", "path", r.URL.Path, "err", err.Error())
		} else {
			slog.Debug("client error in http handler", "path", r.URL.Path, "status", res.Status, "err", err.Error())
		}
		if res.Body == nil {
			res.Body = map[string]string{"message": err.Error()}
		}
	}

	for k, vs := range res.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}

	switch body := res.Body.(type) {
	case io.Reader:
		w.WriteHeader(res.Status)
		io.Copy(w, body)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(res.Status)
		json.NewEncoder(w).Encode(res.Body)
	}
}

type contextKey string

const registeredURIKey contextKey = "registered_uri"

type MiddlewareFunc = func(http.Handler) http.Handler

type ServeMux struct {
	*http.ServeMux
	middlewares []MiddlewareFunc
}

func NewServeMux() *ServeMux {
	return &ServeMux{ServeMux: http.NewServeMux()}
}

func (s *ServeMux) UseMiddlewares(middlewares ...MiddlewareFunc) {
	s.middlewares = append(s.middlewares, middlewares...)
}

func (s *ServeMux) MapPrometheusEndpoint(path string, gatherer prometheus.Gatherer) {
	s.ServeMux.Handle("GET "+path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}

// Handle registers handler behind the mux-wide middlewares followed by the
// given ones. The registered pattern is available to middlewares through the
// request context.
func (s *ServeMux) Handle(pattern string, handler http.Handler, middlewares ...MiddlewareFunc) {
	handler = ChainMiddlewares(append(append([]MiddlewareFunc{}, s.middlewares...), middlewares...)...)(handler)
	s.ServeMux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), registeredURIKey, pattern)))
	}))
}

// HandleFunc accepts one of
//
//	func(*Request) (Result, error)
//	func(http.ResponseWriter, *Request)
//	func(*Request, *In) (Out, error)
//
// The last form binds In from the request and encodes Out as JSON.
func (s *ServeMux) HandleFunc(pattern string, handler any, middlewares ...MiddlewareFunc) {
	switch handler := handler.(type) {
	case func(*Request) (Result, error):
		s.Handle(pattern, HandlerFunc(handler), middlewares...)
		return
	case HandlerFunc:
		s.Handle(pattern, handler, middlewares...)
		return
	case func(http.ResponseWriter, *Request):
		s.Handle(pattern, http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			handler(rw, &Request{r})
		}), middlewares...)
		return
	}

	t := reflect.TypeOf(handler)
	v := reflect.ValueOf(handler)
	if t.Kind() != reflect.Func || t.NumIn() != 2 || t.NumOut() != 2 {
		panic(fmt.Sprintf("%T is not supported, input of HandleFunc should be either:\n%s\n%s\n%s\n", handler, "func(*http.Request) (Result, error)", "func(http.ResponseWriter, *http.Request)", "func(*http.Request, *INPUTTYPE) (OUTPUTTYPE, error)"))
	}
	if t.In(0) != reflect.TypeOf(&Request{}) {
		panic("first input of handler should be *http.Request, " + t.In(0).String())
	}
	if t.In(1).Kind() != reflect.Ptr {
		panic("second input of handler should be a pointer, " + t.In(1).String())
	}
	if t.Out(1) != reflect.TypeOf((*error)(nil)).Elem() {
		panic("second output of handler should be error")
	}

	s.Handle(pattern, HandlerFunc(func(r *Request) (Result, error) {
		req := reflect.New(t.In(1).Elem())
		if err := r.Bind(req.Interface()); err != nil {
			return Result{Status: http.StatusBadRequest}, err
		}
		res := v.Call([]reflect.Value{reflect.ValueOf(r), req})
		if errI := res[1].Interface(); errI != nil {
			return resultFromError(errI.(error)), errI.(error)
		}
		return Result{Body: res[0].Interface()}, nil
	}), middlewares...)
}

// StatusError lets reflective handlers choose the response status of an error.
type StatusError struct {
	Status int
	Err    error
}

func (e *StatusError) Error() string { return e.Err.Error() }

func (e *StatusError) Unwrap() error { return e.Err }

func WithStatus(status int, err error) error {
	if err == nil {
		return nil
	}
	return &StatusError{Status: status, Err: err}
}

func resultFromError(err error) Result {
	var se *StatusError
	if errors.As(err, &se) {
		return Result{Status: se.Status}
	}
	return Result{Status: http.StatusInternalServerError}
}

// Package api exposes a string store over HTTP.
package api

import (
	stdhttp "net/http"

	"github.com/amirrezaask/randomset/errors"
	"github.com/amirrezaask/randomset/http"
	"github.com/amirrezaask/randomset/store"
)

type handlers struct {
	store store.Store[string]
}

// Register mounts the element routes on mux. Routes that change the set run
// behind the mutating middlewares.
func Register(mux *http.ServeMux, s store.Store[string], mutating ...http.MiddlewareFunc) {
	h := &handlers{store: s}
	mux.HandleFunc("POST /elements", h.insert, mutating...)
	mux.HandleFunc("DELETE /elements/{element}", h.remove, mutating...)
	mux.HandleFunc("GET /elements", h.items)
	mux.HandleFunc("GET /elements/{element}", h.contains)
	mux.HandleFunc("GET /random", h.random)
	mux.HandleFunc("GET /size", h.size)
}

type InsertRequest struct {
	Element string `json:"element"`
}

type ElementRequest struct {
	Element string `path:"element" json:"-"`
}

type SizeResponse struct {
	Size int `json:"size"`
}

type ItemsResponse struct {
	Elements []string `json:"elements"`
	Size     int      `json:"size"`
}

type MemberResponse struct {
	Member bool `json:"member"`
}

type RandomResponse struct {
	Element string `json:"element"`
}

func (h *handlers) insert(r *http.Request, in *InsertRequest) (SizeResponse, error) {
	if in.Element == "" {
		return SizeResponse{}, http.WithStatus(stdhttp.StatusBadRequest, errors.New("element is required"))
	}
	if err := h.store.Insert(r.Context(), in.Element); err != nil {
		return SizeResponse{}, withStatus(err)
	}
	n, err := h.store.Size(r.Context())
	if err != nil {
		return SizeResponse{}, withStatus(err)
	}

	return SizeResponse{Size: n}, nil
}

func (h *handlers) remove(r *http.Request, in *ElementRequest) (SizeResponse, error) {
	if err := h.store.Remove(r.Context(), in.Element); err != nil {
		return SizeResponse{}, withStatus(err)
	}
	n, err := h.store.Size(r.Context())
	if err != nil {
		return SizeResponse{}, withStatus(err)
	}

	return SizeResponse{Size: n}, nil
}

func (h *handlers) items(r *http.Request, _ *struct{}) (ItemsResponse, error) {
	items, err := h.store.Items(r.Context())
	if err != nil {
		return ItemsResponse{}, withStatus(err)
	}
	if items == nil {
		items = []string{}
	}

	return ItemsResponse{Elements: items, Size: len(items)}, nil
}

func (h *handlers) contains(r *http.Request, in *ElementRequest) (MemberResponse, error) {
	ok, err := h.store.Contains(r.Context(), in.Element)
	if err != nil {
		return MemberResponse{}, withStatus(err)
	}

	return MemberResponse{Member: ok}, nil
}

func (h *handlers) random(r *http.Request, _ *struct{}) (RandomResponse, error) {
	x, err := h.store.Random(r.Context())
	if err != nil {
		return RandomResponse{}, withStatus(err)
	}

	return RandomResponse{Element: x}, nil
}

func (h *handlers) size(r *http.Request, _ *struct{}) (SizeResponse, error) {
	n, err := h.store.Size(r.Context())
	if err != nil {
		return SizeResponse{}, withStatus(err)
	}

	return SizeResponse{Size: n}, nil
}

func withStatus(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.WithStatus(stdhttp.StatusNotFound, err)
	case errors.Is(err, store.ErrEmpty):
		return http.WithStatus(stdhttp.StatusConflict, err)
	}
	return err
}

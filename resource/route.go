package resource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ourstory/ourstory/model"
	"github.com/ourstory/ourstory/remote"
)

const (
	// IdempotencyHeader carries the client's key for one logical mutation.
	IdempotencyHeader = "Idempotency-Key"
	// ReplayedHeader is set on responses served from the replay window.
	ReplayedHeader = "Idempotent-Replayed"
)

// RouteConfig holds the collaborators shared by every route.
type RouteConfig struct {
	Replay  *Replay
	Metrics *Metrics
	Logger  zerolog.Logger
	// OnChange runs after every mutation the store accepted.
	OnChange func(kind string)
}

// Route serves one collection over HTTP.
type Route[T any] struct {
	repo    *Repo[T]
	replay  *Replay
	metrics *Metrics
	log     zerolog.Logger
	flight  singleflight.Group
	change  func(kind string)
}

// NewRoute builds the handlers for repo.
func NewRoute[T any](repo *Repo[T], cfg RouteConfig) *Route[T] {
	return &Route[T]{
		repo:    repo,
		replay:  cfg.Replay,
		metrics: cfg.Metrics,
		log:     cfg.Logger.With().Str("kind", repo.kind.Name).Logger(),
		change:  cfg.OnChange,
	}
}

// Register mounts the handlers on g, which is expected to be the
// collection's /api/<name> group.
func (rt *Route[T]) Register(g *echo.Group) {
	g.GET("", rt.list)
	g.POST("", rt.create)
	g.PUT("", rt.update)
	g.DELETE("", rt.remove)
	g.GET("/:id", rt.get)
}

type errorBody struct {
	Error string `json:"error"`
}

type successBody struct {
	Success bool `json:"success"`
}

func (rt *Route[T]) list(c echo.Context) error {
	items, err := rt.repo.List(c.Request().Context())
	rt.metrics.observe(rt.repo.kind.Name, "list", err)
	if err != nil {
		return rt.write(c, rt.fail("list", err))
	}
	return c.JSON(http.StatusOK, items)
}

func (rt *Route[T]) get(c echo.Context) error {
	item, err := rt.repo.Get(c.Request().Context(), c.Param("id"))
	rt.metrics.observe(rt.repo.kind.Name, "get", err)
	if err != nil {
		return rt.write(c, rt.fail("get", err))
	}
	return c.JSON(http.StatusOK, item)
}

func (rt *Route[T]) create(c echo.Context) error {
	body, rec, err := readRecord[T](c)
	if err != nil {
		return rt.write(c, badRequest("Invalid JSON body"))
	}
	key := ""
	if id := *rt.repo.kind.ID(&rec); id != "" {
		key = "create:" + id + ":" + digest(body)
	}
	return rt.mutate(c, "create", key, digest(body), func(ctx context.Context) Response {
		out, err := rt.repo.Create(ctx, rec)
		rt.metrics.observe(rt.repo.kind.Name, "create", err)
		if err != nil {
			return rt.fail("create", err)
		}
		rt.changed()
		return jsonResponse(http.StatusOK, out)
	})
}

func (rt *Route[T]) update(c echo.Context) error {
	body, rec, err := readRecord[T](c)
	if err != nil {
		return rt.write(c, badRequest("Invalid JSON body"))
	}
	id := *rt.repo.kind.ID(&rec)
	if id == "" {
		return rt.write(c, badRequest("id is required"))
	}
	sum := digest(body)
	return rt.mutate(c, "update", "update:"+id+":"+sum, sum, func(ctx context.Context) Response {
		out, err := rt.repo.Update(ctx, rec)
		rt.metrics.observe(rt.repo.kind.Name, "update", err)
		if err != nil {
			return rt.fail("update", err)
		}
		rt.changed()
		return jsonResponse(http.StatusOK, out)
	})
}

func (rt *Route[T]) remove(c echo.Context) error {
	var req struct {
		ID string `json:"id"`
	}
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return rt.write(c, badRequest("Invalid JSON body"))
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return rt.write(c, badRequest("Invalid JSON body"))
		}
	}
	if req.ID == "" {
		req.ID = c.QueryParam("id")
	}
	if req.ID == "" {
		return rt.write(c, badRequest("id is required"))
	}
	return rt.mutate(c, "delete", "delete:"+req.ID, digest([]byte(req.ID)), func(ctx context.Context) Response {
		err := rt.repo.Delete(ctx, req.ID)
		rt.metrics.observe(rt.repo.kind.Name, "delete", err)
		if err != nil {
			return rt.fail("delete", err)
		}
		rt.changed()
		return jsonResponse(http.StatusOK, successBody{Success: true})
	})
}

// mutate runs fn at most once per idempotency key inside the replay
// window, and collapses concurrent identical requests into one store call.
// sum is the digest of the request payload; a key seen again with another
// payload is refused.
func (rt *Route[T]) mutate(c echo.Context, op, flightKey, sum string, fn func(context.Context) Response) error {
	ctx := context.WithoutCancel(c.Request().Context())
	scoped := ""
	if key := c.Request().Header.Get(IdempotencyHeader); key != "" {
		scoped = rt.repo.kind.Name + ":" + op + ":" + key
		if resp, ok := rt.replay.Get(scoped); ok {
			if resp.Digest != sum {
				return rt.write(c, keyReused())
			}
			rt.metrics.replayed(rt.repo.kind.Name)
			c.Response().Header().Set(ReplayedHeader, "true")
			return rt.write(c, resp)
		}
		flightKey = "key:" + scoped + ":" + sum
	}
	if flightKey == "" {
		return rt.write(c, fn(ctx))
	}

	v, _, _ := rt.flight.Do(flightKey, func() (any, error) {
		if scoped != "" {
			if resp, ok := rt.replay.Get(scoped); ok {
				if resp.Digest != sum {
					return keyReused(), nil
				}
				return resp, nil
			}
		}
		resp := fn(ctx)
		resp.Digest = sum
		if scoped != "" && resp.Status < http.StatusInternalServerError {
			rt.replay.Put(scoped, resp)
		}
		return resp, nil
	})
	return rt.write(c, v.(Response))
}

func keyReused() Response {
	return jsonResponse(http.StatusUnprocessableEntity, errorBody{Error: "idempotency key reused with a different payload"})
}

func (rt *Route[T]) fail(op string, err error) Response {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return jsonResponse(http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, ErrMissingID):
		return badRequest(err.Error())
	}
	rt.log.Error().Err(err).Str("op", op).Msg("store operation failed")
	return jsonResponse(http.StatusInternalServerError, errorBody{Error: remote.Message(err)})
}

func (rt *Route[T]) changed() {
	if rt.change != nil {
		rt.change(rt.repo.kind.Name)
	}
}

func (rt *Route[T]) write(c echo.Context, resp Response) error {
	return c.JSONBlob(resp.Status, resp.Body)
}

func badRequest(msg string) Response {
	return jsonResponse(http.StatusBadRequest, errorBody{Error: msg})
}

func jsonResponse(status int, v any) Response {
	b, err := json.Marshal(v)
	if err != nil {
		return Response{
			Status: http.StatusInternalServerError,
			Body:   []byte(`{"error":"encode response"}`),
		}
	}
	return Response{Status: status, Body: b}
}

func readRecord[T any](c echo.Context) ([]byte, T, error) {
	var rec T
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, rec, err
	}
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, rec, err
	}
	return body, rec, nil
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

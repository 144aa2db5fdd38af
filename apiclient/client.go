// Package apiclient is the HTTP client for the site's /api surface. It is
// what the view state controllers and ourstoryctl talk to.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ourstory/ourstory/model"
	"github.com/ourstory/ourstory/resource"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// Is maps server answers onto the model's sentinel errors.
func (e *APIError) Is(target error) bool {
	switch target {
	case model.ErrStoreUnavailable:
		return e.Status >= http.StatusInternalServerError
	case model.ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// Client wraps a resty client bound to the site's base URL.
type Client struct {
	http *resty.Client
}

// New returns a client for the site at baseURL.
func New(baseURL string) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(30 * time.Second)
	return &Client{http: c}
}

// Timeline returns the milestones resource.
func (c *Client) Timeline() *Resource[model.Milestone] {
	return NewResource(c, resource.Milestones)
}

// Songs returns the playlist resource.
func (c *Client) Songs() *Resource[model.Song] {
	return NewResource(c, resource.Songs)
}

// Letters returns the letters resource.
func (c *Client) Letters() *Resource[model.Letter] {
	return NewResource(c, resource.Letters)
}

// UploadImage sends a picture for milestone id and returns the milestone
// with its new imageSrc.
func (c *Client) UploadImage(ctx context.Context, id, filename string, data []byte) (model.Milestone, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetFileReader("image", filename, bytes.NewReader(data)).
		Post("/api/" + resource.Milestones.Name + "/{id}/image")
	var out model.Milestone
	return out, decode(resp, err, &out)
}

// Resource is one collection under /api.
type Resource[T any] struct {
	c    *Client
	path string
	id   func(*T) *string
}

// NewResource binds kind to c.
func NewResource[T any](c *Client, kind resource.Kind[T]) *Resource[T] {
	return &Resource[T]{c: c, path: "/api/" + kind.Name, id: kind.ID}
}

// List fetches the whole collection.
func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	resp, err := r.c.http.R().SetContext(ctx).Get(r.path)
	var out []T
	return out, decode(resp, err, &out)
}

// Get fetches one record; a missing id matches model.ErrNotFound.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	resp, err := r.c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		Get(r.path + "/{id}")
	var out T
	return out, decode(resp, err, &out)
}

// Create posts rec under idempotency key.
func (r *Resource[T]) Create(ctx context.Context, rec T, key string) (T, error) {
	resp, err := r.mutation(ctx, key).SetBody(rec).Post(r.path)
	var out T
	return out, decode(resp, err, &out)
}

// Update puts rec under idempotency key.
func (r *Resource[T]) Update(ctx context.Context, rec T, key string) (T, error) {
	resp, err := r.mutation(ctx, key).SetBody(rec).Put(r.path)
	var out T
	return out, decode(resp, err, &out)
}

// Delete removes id under idempotency key.
func (r *Resource[T]) Delete(ctx context.Context, id, key string) error {
	resp, err := r.mutation(ctx, key).
		SetQueryParam("id", id).
		SetBody(map[string]string{"id": id}).
		Delete(r.path)
	var out struct {
		Success bool `json:"success"`
	}
	return decode(resp, err, &out)
}

func (r *Resource[T]) mutation(ctx context.Context, key string) *resty.Request {
	req := r.c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json")
	if key != "" {
		req.SetHeader(resource.IdempotencyHeader, key)
	}
	return req
}

func decode(resp *resty.Response, err error, out any) error {
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}
	if resp.IsError() {
		var body struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(resp.String())
		if json.Unmarshal(resp.Body(), &body) == nil && body.Error != "" {
			msg = body.Error
		}
		return &APIError{Status: resp.StatusCode(), Message: msg}
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Package supabase talks to a hosted Supabase project: table CRUD through
// PostgREST and blobs through the Storage API.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ourstory/ourstory/remote"
)

// Config points at a project.
type Config struct {
	URL     string // https://<project>.supabase.co
	Key     string // anon or service key
	Timeout time.Duration
}

// Client implements remote.Client over HTTP.
type Client struct {
	http *resty.Client
	base string
}

// New builds a client. It does not contact the server; use remote.WaitReady.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	base := strings.TrimRight(cfg.URL, "/")
	c := resty.New().
		SetBaseURL(base).
		SetHeader("apikey", cfg.Key).
		SetAuthToken(cfg.Key).
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout)
	return &Client{http: c, base: base}
}

// Close is a no-op; resty keeps no resources that need releasing.
func (c *Client) Close() error { return nil }

// Ping fetches the PostgREST root.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/rest/v1/")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return responseError(resp)
	}
	return nil
}

// From returns the named table.
func (c *Client) From(name string) remote.Table {
	return &table{c: c, name: name}
}

// Bucket returns the named storage bucket.
func (c *Client) Bucket(name string) remote.Bucket {
	return &bucket{c: c, name: name}
}

type table struct {
	c    *Client
	name string
}

func (t *table) path() string {
	return "/rest/v1/" + url.PathEscape(t.name)
}

func (t *table) Select(ctx context.Context, q remote.Query) ([]remote.Row, error) {
	if err := remote.CheckQuery(q); err != nil {
		return nil, remote.Wrap("select", t.name, err)
	}
	params := filterParams(q.Filters)
	params.Set("select", "*")
	if q.Order != nil {
		params.Set("order", orderParam(q.Order))
	}
	resp, err := t.c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get(t.path())
	rows, err := decodeRows(resp, err)
	return rows, remote.Wrap("select", t.name, err)
}

func (t *table) Insert(ctx context.Context, rows ...remote.Row) ([]remote.Row, error) {
	out, err := t.write(ctx, rows, "return=representation")
	return out, remote.Wrap("insert", t.name, err)
}

func (t *table) Upsert(ctx context.Context, rows ...remote.Row) ([]remote.Row, error) {
	out, err := t.write(ctx, rows, "return=representation,resolution=merge-duplicates")
	return out, remote.Wrap("upsert", t.name, err)
}

func (t *table) write(ctx context.Context, rows []remote.Row, prefer string) ([]remote.Row, error) {
	for _, r := range rows {
		if r.ID() == "" {
			return nil, errors.New(`null value in column "id" violates not-null constraint`)
		}
	}
	resp, err := t.c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Prefer", prefer).
		SetBody(rows).
		Post(t.path())
	return decodeRows(resp, err)
}

func (t *table) Update(ctx context.Context, patch remote.Row, filters ...remote.Filter) ([]remote.Row, error) {
	if err := remote.CheckFilters(filters); err != nil {
		return nil, remote.Wrap("update", t.name, err)
	}
	clean := make(remote.Row, len(patch))
	for k, v := range patch {
		if k != remote.IDColumn {
			clean[k] = v
		}
	}
	resp, err := t.c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Prefer", "return=representation").
		SetQueryParamsFromValues(filterParams(filters)).
		SetBody(clean).
		Patch(t.path())
	rows, err := decodeRows(resp, err)
	return rows, remote.Wrap("update", t.name, err)
}

func (t *table) Delete(ctx context.Context, filters ...remote.Filter) error {
	if len(filters) == 0 {
		return remote.Wrap("delete", t.name, errors.New("DELETE requires a WHERE clause"))
	}
	if err := remote.CheckFilters(filters); err != nil {
		return remote.Wrap("delete", t.name, err)
	}
	resp, err := t.c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(filterParams(filters)).
		Delete(t.path())
	if err == nil && resp.IsError() {
		err = responseError(resp)
	}
	return remote.Wrap("delete", t.name, err)
}

type bucket struct {
	c    *Client
	name string
}

// Upload writes the object, replacing any existing object at path.
func (b *bucket) Upload(ctx context.Context, path string, r io.Reader, contentType string) error {
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return remote.Wrap("upload", b.name, errors.New("empty object path"))
	}
	resp, err := b.c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "true").
		SetBody(r).
		Post("/storage/v1/object/" + url.PathEscape(b.name) + "/" + escapePath(path))
	if err == nil && resp.IsError() {
		err = responseError(resp)
	}
	return remote.Wrap("upload", b.name, err)
}

func (b *bucket) PublicURL(path string) string {
	return b.c.base + "/storage/v1/object/public/" + url.PathEscape(b.name) + "/" + escapePath(strings.TrimLeft(path, "/"))
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}

func filterParams(filters []remote.Filter) url.Values {
	v := url.Values{}
	for _, f := range filters {
		v.Add(f.Column, "eq."+f.Value)
	}
	return v
}

func orderParam(o *remote.Order) string {
	if o.Descending {
		return o.Column + ".desc"
	}
	return o.Column + ".asc"
}

func decodeRows(resp *resty.Response, err error) ([]remote.Row, error) {
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, responseError(resp)
	}
	out := []remote.Row{}
	if len(resp.Body()) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// apiError covers both PostgREST and Storage error bodies.
type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func responseError(resp *resty.Response) error {
	var e apiError
	if json.Unmarshal(resp.Body(), &e) == nil {
		if e.Message != "" {
			return errors.New(e.Message)
		}
		if e.Error != "" {
			return errors.New(e.Error)
		}
	}
	if s := strings.TrimSpace(resp.String()); s != "" {
		return fmt.Errorf("status %d: %s", resp.StatusCode(), s)
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode(), http.StatusText(resp.StatusCode()))
}

// Package ourstory serves a couple's timeline, playlist and letters. It
// wires the store, the JSON resource routes, the HTML pages and the image
// upload endpoint onto one Echo instance.
//
// Pages are supplied through ViewFuncs so that a site can swap any of them;
// DefaultViews returns the stock set.
package ourstory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/ourstory/ourstory/model"
	"github.com/ourstory/ourstory/remote"
	"github.com/ourstory/ourstory/resource"
	"github.com/ourstory/ourstory/specialdates"
	"github.com/ourstory/ourstory/views"
)

// ViewFuncs holds the components the handlers render.
type ViewFuncs struct {
	Timeline     func(site views.SiteConfig, groups []model.YearGroup) templ.Component
	Playlist     func(site views.SiteConfig, songs []model.Song) templ.Component
	Letters      func(site views.SiteConfig, letters []model.Letter, active model.Category) templ.Component
	Letter       func(site views.SiteConfig, letter model.Letter) templ.Component
	SpecialDates func(site views.SiteConfig, dates []specialdates.SpecialDate, now time.Time, csrfToken string) templ.Component
	NotFound     func(site views.SiteConfig) templ.Component
	ServerError  func(site views.SiteConfig) templ.Component
}

// DefaultViews returns the stock pages from the views package.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Timeline:     views.Timeline,
		Playlist:     views.Playlist,
		Letters:      views.Letters,
		Letter:       views.Letter,
		SpecialDates: views.SpecialDates,
		NotFound:     views.NotFound,
		ServerError:  views.ServerError,
	}
}

// App is the site. Build it with New, then Open (or Start) it, and Close it
// on the way out.
type App struct {
	Config Config
	Echo   *echo.Echo
	Views  ViewFuncs
	Logger zerolog.Logger

	// Remote is the store. When set through WithRemote the App does not
	// close it.
	Remote remote.Client
	Bucket remote.Bucket

	// Registry holds the HTTP and store metrics served at /metrics.
	Registry *prometheus.Registry

	timeline *resource.Repo[model.Milestone]
	songs    *resource.Repo[model.Song]
	letters  *resource.Repo[model.Letter]

	timelineCache *listCache[model.Milestone]
	songCache     *listCache[model.Song]
	letterCache   *listCache[model.Letter]

	replay       *resource.Replay
	customRoutes []func(*App)
	ownsRemote   bool
	opened       bool
	now          func() time.Time
}

// New creates an App with the given configuration and views.
func New(cfg Config, v ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()
	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Views:  v,
		Logger: zerolog.Nop(),
		now:    time.Now,
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Open connects to the store, waits until it answers and mounts the
// middleware and routes. It does not listen.
func (a *App) Open(ctx context.Context) error {
	if a.opened {
		return nil
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("ourstory: SessionSecret is required")
	}
	if a.Remote == nil {
		c, err := OpenRemote(ctx, a.Config)
		if err != nil {
			return fmt.Errorf("ourstory: %w", err)
		}
		a.Remote = c
		a.ownsRemote = true
	}
	if err := remote.WaitReady(ctx, a.Remote, a.Config.ReadyTimeout, a.Logger); err != nil {
		a.Close()
		return fmt.Errorf("ourstory: %w", err)
	}
	if a.Bucket == nil {
		a.Bucket = a.Remote.Bucket(a.Config.ImageBucket)
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a.timeline = resource.NewRepo(resource.Milestones, a.Remote)
	a.songs = resource.NewRepo(resource.Songs, a.Remote)
	a.letters = resource.NewRepo(resource.Letters, a.Remote)
	a.timelineCache = newListCache(a.Config.PageCacheTTL, a.timeline.List)
	a.songCache = newListCache(a.Config.PageCacheTTL, a.songs.List)
	a.letterCache = newListCache(a.Config.PageCacheTTL, a.letters.List)
	a.replay = resource.NewReplay(a.Config.IdempotencyTTL)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.opened = true
	return nil
}

// Start opens the App if needed and serves until Shutdown.
func (a *App) Start() error {
	if err := a.Open(context.Background()); err != nil {
		return err
	}
	a.Logger.Info().Str("addr", a.Config.Addr).Msg("listening")
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, letting in-flight requests finish.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

// Close releases the replay window and, if the App opened it, the store.
func (a *App) Close() error {
	a.replay.Close()
	if a.ownsRemote && a.Remote != nil {
		err := a.Remote.Close()
		a.Remote = nil
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	assets, _ := fs.Sub(EmbeddedAssets, "embedded")
	e.GET("/assets/*", echo.WrapHandler(http.StripPrefix("/assets/", http.FileServer(http.FS(assets)))))
	e.Static(publicPrefix, a.Config.StaticDir)
	e.GET("/robots.txt", a.handleRobots)

	e.GET("/", a.handleTimeline)
	e.GET("/music", a.handleMusic)
	e.GET("/letters", a.handleLetters)
	e.GET("/letters/feed.xml", a.handleFeed)
	e.GET("/letters/:id", a.handleLetter)
	e.GET("/sitemap.xml", a.handleSitemap)

	e.GET("/special-dates", a.handleSpecialDates)
	e.POST("/special-dates", a.handleSpecialDateAdd)
	e.DELETE("/special-dates", a.handleSpecialDateRemove)

	e.GET("/healthz", a.handleHealth)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: a.Registry}))

	cfg := resource.RouteConfig{
		Replay:   a.replay,
		Metrics:  resource.NewMetrics(a.Registry),
		Logger:   a.Logger,
		OnChange: a.invalidate,
	}
	api := e.Group("/api")
	resource.NewRoute(a.timeline, cfg).Register(api.Group("/timeline"))
	resource.NewRoute(a.songs, cfg).Register(api.Group("/music"))
	resource.NewRoute(a.letters, cfg).Register(api.Group("/letters"))
	api.POST("/timeline/:id/image", a.handleTimelineImage)
}

// invalidate drops the page cache of the collection named kind.
func (a *App) invalidate(kind string) {
	switch kind {
	case resource.Milestones.Name:
		a.timelineCache.Invalidate()
	case resource.Songs.Name:
		a.songCache.Invalidate()
	case resource.Letters.Name:
		a.letterCache.Invalidate()
	}
}

func (a *App) handleRobots(c echo.Context) error {
	path := a.Config.StaticDir + "/robots.txt"
	if _, err := os.Stat(path); err == nil {
		return c.File(path)
	}
	return c.String(http.StatusOK, "User-agent: *\nAllow: /\nSitemap: "+views.BuildURL(a.Config.URL, "sitemap.xml")+"\n")
}

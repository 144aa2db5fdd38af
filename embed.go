package ourstory

import "embed"

// EmbeddedAssets holds the stylesheet served at /assets/site.css.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS

// Package imgconv resizes pictures to fit a box and re-encodes them as
// JPEG, one file at a time.
package imgconv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxWidth  = 1200
	DefaultMaxHeight = 800
	DefaultQuality   = 85
	// DefaultMatch selects files by lower-cased name.
	DefaultMatch = "*.{heic,jpg,jpeg,png,gif,webp,bmp,tif,tiff}"
)

// ErrHEIC is reported for HEIC/HEIF input, which has no decoder here.
var ErrHEIC = errors.New("heic images are not supported; export as jpeg first")

// Job is one batch conversion.
type Job struct {
	Source    string
	Target    string
	Match     string // doublestar pattern matched against the lower-cased file name
	MaxWidth  int
	MaxHeight int
	Quality   int
}

func (j *Job) setDefaults() {
	if j.Match == "" {
		j.Match = DefaultMatch
	}
	if j.MaxWidth == 0 {
		j.MaxWidth = DefaultMaxWidth
	}
	if j.MaxHeight == 0 {
		j.MaxHeight = DefaultMaxHeight
	}
	if j.Quality == 0 {
		j.Quality = DefaultQuality
	}
}

// Failure is a file that could not be converted.
type Failure struct {
	File string
	Err  error
}

// Report summarizes a batch.
type Report struct {
	Converted []string
	Failed    []Failure
	Skipped   []string
}

// Run converts every matching file in job.Source into job.Target. A file
// that fails is logged and recorded; the batch carries on. The returned
// error is only for problems with the directories themselves.
func Run(ctx context.Context, job Job, log zerolog.Logger) (Report, error) {
	job.setDefaults()
	var rep Report
	if !doublestar.ValidatePattern(job.Match) {
		return rep, fmt.Errorf("invalid match pattern %q", job.Match)
	}
	if err := os.MkdirAll(job.Target, 0o755); err != nil {
		return rep, fmt.Errorf("create target dir: %w", err)
	}
	entries, err := os.ReadDir(job.Source)
	if err != nil {
		return rep, fmt.Errorf("read source dir: %w", err)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		name := e.Name()
		if e.IsDir() {
			continue
		}
		if ok, _ := doublestar.Match(job.Match, strings.ToLower(name)); !ok {
			rep.Skipped = append(rep.Skipped, name)
			continue
		}
		out := OutputName(name)
		if err := convertFile(filepath.Join(job.Source, name), filepath.Join(job.Target, out), job); err != nil {
			log.Error().Err(err).Str("file", name).Msg("error processing image")
			rep.Failed = append(rep.Failed, Failure{File: name, Err: err})
			continue
		}
		log.Info().Str("file", name).Str("output", out).Msg("converted")
		rep.Converted = append(rep.Converted, name)
	}
	log.Info().
		Int("converted", len(rep.Converted)).
		Int("failed", len(rep.Failed)).
		Int("skipped", len(rep.Skipped)).
		Msg("all images processed")
	return rep, nil
}

// OutputName swaps the extension of name for .jpg.
func OutputName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
}

func convertFile(src, dst string, job Job) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	data, _, err := Process(f, job.MaxWidth, job.MaxHeight, job.Quality)
	if err != nil {
		if isHEIC(src) {
			return fmt.Errorf("%w: %v", ErrHEIC, err)
		}
		return err
	}
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

func isHEIC(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".heic" || ext == ".heif"
}

// Process decodes r, fits it inside maxW x maxH and encodes it as JPEG.
// It returns the encoded bytes and the final size.
func Process(r io.Reader, maxW, maxH, quality int) ([]byte, image.Point, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, image.Point{}, fmt.Errorf("decode image: %w", err)
	}
	img = Fit(img, maxW, maxH)
	var buf bytes.Buffer
	if err := Encode(&buf, img, quality); err != nil {
		return nil, image.Point{}, err
	}
	return buf.Bytes(), img.Bounds().Size(), nil
}

// Fit scales img down so it fits inside maxW x maxH, keeping its aspect
// ratio. Images that already fit are returned as they are.
func Fit(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return img
	}
	nw, nh := maxW, h*maxW/w
	if nh > maxH {
		nw, nh = w*maxH/h, maxH
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// Encode writes img as JPEG.
func Encode(w io.Writer, img image.Image, quality int) error {
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}
	return nil
}

// Package seed loads the starter milestones and playlist into a store.
package seed

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ourstory/ourstory/model"
	"github.com/ourstory/ourstory/remote"
)

//go:embed data.yaml
var defaultData []byte

// Data is the content of a seed file.
type Data struct {
	Milestones []model.Milestone `yaml:"milestones"`
	Songs      []model.Song      `yaml:"songs"`
}

// Result counts the rows written per table.
type Result struct {
	Milestones int
	Songs      int
}

// Default returns the embedded seed data.
func Default() (Data, error) {
	return Parse(defaultData)
}

// Parse decodes seed YAML. Every record must carry an id so that applying
// the same data twice is harmless.
func Parse(b []byte) (Data, error) {
	var d Data
	if err := yaml.Unmarshal(b, &d); err != nil {
		return d, fmt.Errorf("parse seed: %w", err)
	}
	for i := range d.Milestones {
		m := &d.Milestones[i]
		if m.ID == "" {
			return d, fmt.Errorf("parse seed: milestone %d has no id", i)
		}
		if m.FormattedDate == "" {
			m.FormattedDate = model.FormatDisplayDate(m.Date)
		}
	}
	for i, s := range d.Songs {
		if s.ID == "" {
			return d, fmt.Errorf("parse seed: song %d has no id", i)
		}
	}
	return d, nil
}

// Apply upserts d into c.
func Apply(ctx context.Context, c remote.Client, d Data, log zerolog.Logger) (Result, error) {
	var res Result
	n, err := upsert(ctx, c.From(remote.TableMilestones), d.Milestones)
	if err != nil {
		return res, err
	}
	res.Milestones = n
	n, err = upsert(ctx, c.From(remote.TableSongs), d.Songs)
	if err != nil {
		return res, err
	}
	res.Songs = n
	log.Info().Int("milestones", res.Milestones).Int("songs", res.Songs).Msg("seed applied")
	return res, nil
}

func upsert[T any](ctx context.Context, t remote.Table, recs []T) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	rows := make([]remote.Row, 0, len(recs))
	for _, r := range recs {
		row, err := remote.ToRow(r)
		if err != nil {
			return 0, err
		}
		rows = append(rows, row)
	}
	out, err := t.Upsert(ctx, rows...)
	if err != nil {
		return 0, err
	}
	return len(out), nil
}

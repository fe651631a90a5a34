package feedback

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/medcalc/medcalc/internal/platform/dom"
)

// Loader fetches the data for one field. A nil value with a nil error means
// the EHR has nothing for the field.
type Loader func(ctx context.Context) (interface{}, error)

// TrackedInput is one field of a TrackDataLoading batch.
type TrackedInput struct {
	InputID string
	Label   string
	Load    Loader
	// SetValue writes loaded data into the input. Without it the field
	// counts as missing.
	SetValue func(input *dom.Element, data interface{})
}

type loadResult struct {
	data interface{}
	err  error
}

// TrackDataLoading runs every loader, shows per-field indicators and renders
// the summary. Loaders run concurrently and settle independently; document
// writes happen afterwards on the calling goroutine in field order. Fields
// without an input under container are skipped and not counted.
func (f *Feedback) TrackDataLoading(ctx context.Context, container *dom.Element, fields []TrackedInput) Summary {
	summary := Summary{Loaded: []string{}, Missing: []MissingItem{}, Failed: []string{}}
	if container == nil {
		return summary
	}
	f.CreateLoadingBanner(container, "")
	defer f.RemoveLoadingBanner(container)

	inputs := make([]*dom.Element, len(fields))
	for i, fld := range fields {
		item := Field(fld.InputID, fld.Label)
		if item.ID == "" {
			continue
		}
		inputs[i] = container.QuerySelector("#" + item.ID)
		if inputs[i] != nil {
			f.ShowLoading(inputs[i], fld.Label)
		}
	}

	results := make([]loadResult, len(fields))
	var g errgroup.Group
	for i, fld := range fields {
		if inputs[i] == nil || fld.Load == nil {
			continue
		}
		i, load := i, fld.Load
		g.Go(func() error {
			data, err := load(ctx)
			results[i] = loadResult{data: data, err: err}
			return nil
		})
	}
	_ = g.Wait()

	for i, fld := range fields {
		input := inputs[i]
		if input == nil {
			continue
		}
		res := results[i]
		switch {
		case res.err != nil:
			f.logger.Error().Err(res.err).Str("field", fld.Label).Msg("error loading field")
			f.ShowError(input, fld.Label, res.err)
			summary.Failed = append(summary.Failed, fld.Label)
		case res.data != nil && fld.SetValue != nil:
			fld.SetValue(input, res.data)
			f.ShowSuccess(input, fld.Label, input.Value())
			summary.Loaded = append(summary.Loaded, fld.Label)
		default:
			f.ShowWarning(input, fld.Label, "")
			summary.Missing = append(summary.Missing, Field(fld.InputID, fld.Label))
		}
	}

	f.CreateDataSummary(container, summary)
	return summary
}

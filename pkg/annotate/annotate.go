// Package annotate runs the per-PSM annotation pipeline (enumerate fragments,
// match them against the spectrum, assemble the result) and drives it over a
// batch of PSMs with a bounded worker pool.
package annotate

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ChrisMcGann/fragannot/pkg/core"
	"github.com/ChrisMcGann/fragannot/pkg/fragment"
	"github.com/ChrisMcGann/fragannot/pkg/ions"
	"github.com/ChrisMcGann/fragannot/pkg/match"
)

// Annotator annotates PSMs with a fixed configuration. It holds only
// read-only state and may be shared between goroutines.
type Annotator struct {
	cfg     Config
	enum    *fragment.Enumerator
	matcher *match.Matcher
}

// New validates cfg against the registry and builds an Annotator.
func New(reg *ions.Registry, cfg Config) (*Annotator, error) {
	params, err := cfg.MatchParams()
	if err != nil {
		return nil, err
	}
	matcher, err := match.NewMatcher(params)
	if err != nil {
		return nil, err
	}
	enum, err := fragment.NewEnumerator(reg, cfg.NTermTypes, cfg.CTermTypes, cfg.Internal)
	if err != nil {
		return nil, err
	}
	return &Annotator{cfg: cfg, enum: enum, matcher: matcher}, nil
}

// Config returns the configuration the Annotator was built with.
func (a *Annotator) Config() Config { return a.cfg }

// charges returns the configured charges, or 1..precursor charge.
func (a *Annotator) charges(psm *core.PSM) ([]int, error) {
	if charges := a.matcher.Charges(); len(charges) > 0 {
		return charges, nil
	}
	if psm.Charge <= 0 {
		return nil, &core.ValidationError{
			Field:   "charge",
			Message: fmt.Sprintf("psm %s: precursor charge %d must be positive", psm.ID, psm.Charge),
		}
	}
	out := make([]int, psm.Charge)
	for i := range out {
		out[i] = i + 1
	}
	return out, nil
}

// AnnotatePSM annotates one PSM. It either returns a complete result or an
// error; nothing is shared with other calls.
func (a *Annotator) AnnotatePSM(psm *core.PSM, spectra core.SpectrumSource) (*Result, error) {
	spec, ok := spectra.Spectrum(psm.SpectrumID)
	if !ok {
		return nil, &core.MissingSpectrumError{PSMID: psm.ID, SpectrumID: psm.SpectrumID}
	}
	if psm.Peptide == nil {
		return nil, &core.InvalidPeptideError{Message: fmt.Sprintf("psm %s has no peptide", psm.ID)}
	}
	charges, err := a.charges(psm)
	if err != nil {
		return nil, err
	}

	peaks := a.matcher.Prepare(spec.Peaks, a.cfg.Deisotope)

	var byFragment [][]match.Match
	if peaks.Len() > 0 {
		for f := range a.enum.Enumerate(psm.Peptide) {
			if ms := a.matcher.Match(f, peaks, charges); len(ms) > 0 {
				byFragment = append(byFragment, ms)
			}
		}
	}

	return Assemble(psm, spectra, byFragment)
}

// Batch collects the outcome of AnnotateAll. Every PSM ends up in exactly one
// of the two maps.
type Batch struct {
	Results map[string]*Result
	Errors  map[string]error
}

// AnnotateAll annotates psms in parallel with up to Config.Workers
// goroutines. A failing PSM is recorded in Batch.Errors and does not affect
// the others. Cancelling ctx stops scheduling further PSMs; the returned error
// is then ctx.Err() and unscheduled PSMs are reported with it.
func (a *Annotator) AnnotateAll(ctx context.Context, psms []*core.PSM, spectra core.SpectrumSource) (*Batch, error) {
	b := &Batch{
		Results: make(map[string]*Result, len(psms)),
		Errors:  make(map[string]error),
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(a.cfg.workers())

	scheduled := make(map[string]bool, len(psms))
	for _, psm := range psms {
		if scheduled[psm.ID] {
			mu.Lock()
			b.Errors[psm.ID] = fmt.Errorf("duplicate psm id %q", psm.ID)
			delete(b.Results, psm.ID)
			mu.Unlock()
			continue
		}
		scheduled[psm.ID] = true

		if err := ctx.Err(); err != nil {
			mu.Lock()
			b.Errors[psm.ID] = err
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			res, err := a.AnnotatePSM(psm, spectra)
			mu.Lock()
			defer mu.Unlock()
			if _, dup := b.Errors[psm.ID]; dup {
				return nil
			}
			if err != nil {
				b.Errors[psm.ID] = err
				return nil
			}
			b.Results[psm.ID] = res
			return nil
		})
	}

	_ = g.Wait()
	return b, ctx.Err()
}

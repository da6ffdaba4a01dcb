package aggregate

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Blanqui04/capstat/errors"
	"github.com/Blanqui04/capstat/logger"
	"github.com/Blanqui04/capstat/measure"
)

// Filter selects the measurement rows a study operates on. Client and
// Reference are mandatory; an unfiltered fetch across all clients is
// never meaningful. Reference and Lot match as case-insensitive
// substrings, everything else matches exactly. SourceIDs narrows the
// fetch to specific machines; empty means all configured sources.
type Filter struct {
	Client    string
	Reference string
	Lot       string
	Element   string
	Datum     string
	Property  string
	Cavity    string
	SourceIDs []string
}

func (f Filter) validate() error {
	if strings.TrimSpace(f.Client) == "" {
		return errors.Wrap(errors.ErrInvalidFilter, "client is required")
	}
	if strings.TrimSpace(f.Reference) == "" {
		return errors.Wrap(errors.ErrInvalidFilter, "reference is required")
	}
	return nil
}

// SourceError reports one source's failure inside a partial result.
type SourceError struct {
	SourceID string `json:"source_id"`
	Err      error  `json:"-"`
}

func (se SourceError) Error() string { return se.SourceID + ": " + se.Err.Error() }

// MarshalJSON keeps the failure text when a summary is serialized.
func (se SourceError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		SourceID string `json:"source_id"`
		Message  string `json:"message"`
	}{SourceID: se.SourceID, Message: se.Err.Error()})
}

// ResultSet is the merged outcome of one fetch. Records are time ordered
// with duplicates removed; Tolerances carries the nominal and tolerance
// values the sources reported per element key.
type ResultSet struct {
	Records    []measure.MeasurementRecord
	Tolerances map[measure.ElementKey]measure.ToleranceSpec
	Conflicts  int

	// Partial is set when at least one source failed while others
	// answered. SourceErrors lists the failures.
	Partial      bool
	SourceErrors []SourceError
}

// ToleranceFor returns the tolerance the sources reported for key, if
// any source carried one.
func (rs *ResultSet) ToleranceFor(key measure.ElementKey) (measure.ToleranceSpec, bool) {
	tol, ok := rs.Tolerances[key.Normalized()]
	return tol, ok
}

// PartialErr summarizes the failed sources of a partial result, or nil
// for a complete one.
func (rs *ResultSet) PartialErr() error {
	if !rs.Partial {
		return nil
	}
	ids := make([]string, len(rs.SourceErrors))
	for i, se := range rs.SourceErrors {
		ids[i] = se.SourceID
	}
	return errors.Wrapf(errors.ErrPartialSourceFailure, "sources failed: %s", strings.Join(ids, ", "))
}

// RecordsFor returns the merged records belonging to one element key.
func (rs *ResultSet) RecordsFor(key measure.ElementKey) []measure.MeasurementRecord {
	nk := key.Normalized()
	var out []measure.MeasurementRecord
	for _, rec := range rs.Records {
		if rec.Key.Normalized() == nk {
			out = append(out, rec)
		}
	}
	return out
}

// Keys returns the distinct element keys present in the merged records,
// in first-seen order.
func (rs *ResultSet) Keys() []measure.ElementKey {
	seen := make(map[measure.ElementKey]struct{})
	var keys []measure.ElementKey
	for _, rec := range rs.Records {
		nk := rec.Key.Normalized()
		if _, ok := seen[nk]; ok {
			continue
		}
		seen[nk] = struct{}{}
		keys = append(keys, rec.Key)
	}
	return keys
}

// Aggregator queries all configured sources in parallel and merges their
// answers.
type Aggregator struct {
	sources []*Source
	log     *zap.SugaredLogger
}

// NewAggregator builds an aggregator over the given sources.
func NewAggregator(sources []*Source, log *zap.SugaredLogger) *Aggregator {
	if log == nil {
		log = logger.Logger
	}
	return &Aggregator{sources: sources, log: log}
}

// Sources returns the number of configured sources.
func (a *Aggregator) Sources() int { return len(a.sources) }

func (a *Aggregator) selectSources(ids []string) ([]*Source, error) {
	if len(ids) == 0 {
		return a.sources, nil
	}
	byID := make(map[string]*Source, len(a.sources))
	for _, src := range a.sources {
		byID[src.ID()] = src
	}
	selected := make([]*Source, 0, len(ids))
	for _, id := range ids {
		src, ok := byID[id]
		if !ok {
			return nil, errors.Wrapf(errors.ErrInvalidFilter, "unknown source %q", id)
		}
		selected = append(selected, src)
	}
	return selected, nil
}

type fetchResult struct {
	sourceID string
	records  []measure.MeasurementRecord
	tols     map[measure.ElementKey]measure.ToleranceSpec
	err      error
}

// Fetch queries the selected sources in parallel, one goroutine per
// source, and merges the answers. A subset of failing sources yields a
// partial result; only when every source fails does Fetch return
// ErrSourceUnavailable.
func (a *Aggregator) Fetch(ctx context.Context, f Filter) (*ResultSet, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	selected, err := a.selectSources(f.SourceIDs)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, errors.Wrap(errors.ErrSourceUnavailable, "no sources configured")
	}

	results := make(chan fetchResult, len(selected))
	var wg sync.WaitGroup
	for _, src := range selected {
		wg.Add(1)
		go func(src *Source) {
			defer wg.Done()
			records, tols, err := src.fetchWithRetry(ctx, f)
			results <- fetchResult{sourceID: src.ID(), records: records, tols: tols, err: err}
		}(src)
	}
	wg.Wait()
	close(results)

	rs := &ResultSet{Tolerances: make(map[measure.ElementKey]measure.ToleranceSpec)}
	var all []measure.MeasurementRecord
	failed := 0
	var failMsgs []string
	for res := range results {
		if res.err != nil {
			failed++
			failMsgs = append(failMsgs, res.sourceID+": "+res.err.Error())
			rs.SourceErrors = append(rs.SourceErrors, SourceError{SourceID: res.sourceID, Err: res.err})
			continue
		}
		all = append(all, res.records...)
		for key, tol := range res.tols {
			if _, seen := rs.Tolerances[key]; !seen {
				rs.Tolerances[key] = tol
			}
		}
	}

	if failed == len(selected) {
		// A canceled call fails every source with the context error;
		// that is a cancellation, not an availability problem.
		if cerr := ctx.Err(); cerr != nil {
			return nil, errors.Wrap(cerr, "aggregation canceled")
		}
		return nil, errors.Wrapf(errors.ErrSourceUnavailable,
			"all %d sources failed: %s", failed, strings.Join(failMsgs, "; "))
	}
	if failed > 0 {
		rs.Partial = true
		sort.Slice(rs.SourceErrors, func(i, j int) bool {
			return rs.SourceErrors[i].SourceID < rs.SourceErrors[j].SourceID
		})
		a.log.Warnw("partial aggregation, some sources failed",
			logger.FieldCount, failed,
			logger.FieldError, strings.Join(failMsgs, "; "),
		)
	}

	rs.Records, rs.Conflicts = mergeRecords(all)
	return rs, nil
}

// ElementInfo describes one element the sources hold, with its total
// measurement count across the selected sources.
type ElementInfo struct {
	Element  string `json:"element"`
	Datum    string `json:"datum,omitempty"`
	Property string `json:"property,omitempty"`
	Count    int    `json:"count"`
}

// LotInfo describes one lot the sources hold, with its measurement count
// and first/last measurement timestamps across the selected sources.
type LotInfo struct {
	Lot   string    `json:"lot"`
	Count int       `json:"count"`
	First time.Time `json:"first"`
	Last  time.Time `json:"last"`
}

// ListElements returns the distinct elements the selected sources hold
// for a client and reference, counts summed across sources.
func (a *Aggregator) ListElements(ctx context.Context, client, reference string, sourceIDs []string) ([]ElementInfo, error) {
	selected, err := a.listSelect(client, reference, sourceIDs)
	if err != nil {
		return nil, err
	}

	type elemKey struct{ element, datum, property string }
	byKey := make(map[elemKey]*ElementInfo)
	failed := 0
	var failMsgs []string
	for _, src := range selected {
		infos, err := src.listElements(ctx, client, reference)
		if err != nil {
			failed++
			failMsgs = append(failMsgs, src.ID()+": "+err.Error())
			continue
		}
		for _, info := range infos {
			k := elemKey{strings.ToLower(info.Element), strings.ToLower(info.Datum), strings.ToLower(info.Property)}
			if existing, ok := byKey[k]; ok {
				existing.Count += info.Count
			} else {
				cp := info
				byKey[k] = &cp
			}
		}
	}
	if failed == len(selected) {
		// A canceled call fails every source with the context error;
		// that is a cancellation, not an availability problem.
		if cerr := ctx.Err(); cerr != nil {
			return nil, errors.Wrap(cerr, "aggregation canceled")
		}
		return nil, errors.Wrapf(errors.ErrSourceUnavailable,
			"all %d sources failed: %s", failed, strings.Join(failMsgs, "; "))
	}

	out := make([]ElementInfo, 0, len(byKey))
	for _, info := range byKey {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Element != out[j].Element {
			return out[i].Element < out[j].Element
		}
		if out[i].Datum != out[j].Datum {
			return out[i].Datum < out[j].Datum
		}
		return out[i].Property < out[j].Property
	})
	return out, nil
}

// ListLots returns the distinct lots the selected sources hold for a
// client and reference, counts and time bounds merged across sources.
func (a *Aggregator) ListLots(ctx context.Context, client, reference string, sourceIDs []string) ([]LotInfo, error) {
	selected, err := a.listSelect(client, reference, sourceIDs)
	if err != nil {
		return nil, err
	}

	byLot := make(map[string]*LotInfo)
	failed := 0
	var failMsgs []string
	for _, src := range selected {
		infos, err := src.listLots(ctx, client, reference)
		if err != nil {
			failed++
			failMsgs = append(failMsgs, src.ID()+": "+err.Error())
			continue
		}
		for _, info := range infos {
			k := strings.ToLower(info.Lot)
			existing, ok := byLot[k]
			if !ok {
				cp := info
				byLot[k] = &cp
				continue
			}
			existing.Count += info.Count
			if info.First.Before(existing.First) {
				existing.First = info.First
			}
			if info.Last.After(existing.Last) {
				existing.Last = info.Last
			}
		}
	}
	if failed == len(selected) {
		// A canceled call fails every source with the context error;
		// that is a cancellation, not an availability problem.
		if cerr := ctx.Err(); cerr != nil {
			return nil, errors.Wrap(cerr, "aggregation canceled")
		}
		return nil, errors.Wrapf(errors.ErrSourceUnavailable,
			"all %d sources failed: %s", failed, strings.Join(failMsgs, "; "))
	}

	out := make([]LotInfo, 0, len(byLot))
	for _, info := range byLot {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Lot < out[j].Lot })
	return out, nil
}

func (a *Aggregator) listSelect(client, reference string, sourceIDs []string) ([]*Source, error) {
	f := Filter{Client: client, Reference: reference}
	if err := f.validate(); err != nil {
		return nil, err
	}
	selected, err := a.selectSources(sourceIDs)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, errors.Wrap(errors.ErrSourceUnavailable, "no sources configured")
	}
	return selected, nil
}

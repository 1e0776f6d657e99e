// Package retriever answers index requests: it normalizes the requested times,
// plans the monthly units, reuses or refreshes each unit's cached artifact, and
// selects the observations nearest to each requested time.
package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"didbase/internal/artifact"
	"didbase/internal/cache"
	"didbase/internal/series"
	"didbase/internal/timenorm"
	"didbase/internal/types"
)

// Source downloads a unit's raw text to dest and returns the URL it used.
// *upstream.Fetcher implements it.
type Source interface {
	Fetch(ctx context.Context, unit types.FetchUnit, dest string, overwrite bool) (string, error)
}

// Config holds the retriever's explicit settings.
type Config struct {
	CacheDir string
	DMUF     int
}

// Retriever serves GetIndices requests against one cache directory.
type Retriever struct {
	layout    cache.Layout
	dmuf      int
	source    Source
	oracle    *cache.Oracle
	converter *artifact.Converter
	clock     types.Clock
	logger    *slog.Logger
}

// New creates a Retriever. A nil clock selects types.RealClock and a nil
// logger selects slog.Default().
func New(cfg Config, source Source, clock types.Clock, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	dmuf := cfg.DMUF
	if dmuf <= 0 {
		dmuf = types.DefaultDMUF
	}
	return &Retriever{
		layout:    cache.NewLayout(cfg.CacheDir),
		dmuf:      dmuf,
		source:    source,
		oracle:    cache.NewOracle(),
		converter: artifact.NewConverter(logger),
		clock:     clock,
		logger:    logger,
	}
}

// Options control a single request.
type Options struct {
	Force   bool
	DMUF    int
	TZAware bool
}

// Option configures a single request.
type Option func(*Options)

// WithForce ignores cached artifacts and raw text and downloads every unit.
func WithForce(force bool) Option {
	return func(o *Options) { o.Force = force }
}

// WithDMUF sets the ground distance in km for MUF(D).
func WithDMUF(dmuf int) Option {
	return func(o *Options) { o.DMUF = dmuf }
}

// WithTZAware converts zoned inputs to UTC instead of dropping the zone.
func WithTZAware(tzaware bool) Option {
	return func(o *Options) { o.TZAware = tzaware }
}

func (r *Retriever) options(opts []Option) (Options, error) {
	o := Options{DMUF: r.dmuf}
	for _, opt := range opts {
		opt(&o)
	}
	if o.DMUF <= 0 {
		return o, types.NewAppErrorWithDetails(types.ErrCodeInvalidParam,
			fmt.Sprintf("dmuf must be positive, got %d", o.DMUF), nil,
			map[string]any{"dmuf": o.DMUF})
	}
	return o, nil
}

// request is the normalized form of a GetIndices or PlanUnits call.
type request struct {
	opts      Options
	requested []time.Time
	units     []types.FetchUnit
	tMax      time.Time
}

func (r *Retriever) plan(when any, station string, opts []Option) (*request, error) {
	o, err := r.options(opts)
	if err != nil {
		return nil, err
	}
	if err := cache.ValidateStation(station); err != nil {
		return nil, err
	}
	times, err := timenorm.Normalize(when, o.TZAware)
	if err != nil {
		return nil, err
	}
	units, tMax, err := cache.Plan(times, station, o.DMUF, r.clock.Now())
	if err != nil {
		return nil, err
	}
	return &request{opts: o, requested: times, units: units, tMax: tMax}, nil
}

// GetIndices returns, for every requested time, the station's observation
// nearest to it. when may be a time.Time, types.Date, string, or a slice of
// those. Units are processed in order and the first failure aborts the call.
//
// The result is empty, not an error, when the station reported nothing in the
// covered months.
func (r *Retriever) GetIndices(ctx context.Context, when any, station string, opts ...Option) (*series.Series, error) {
	ctx, reqID := types.EnsureRequestID(ctx)
	logger := types.LoggerFromContext(ctx, r.logger).With("request_id", reqID, "station", station)
	ctx = types.WithLogger(ctx, logger)

	req, err := r.plan(when, station, opts)
	if err != nil {
		logger.Warn("request rejected", "error", err)
		return nil, err
	}
	if err := r.layout.Ensure(); err != nil {
		return nil, err
	}

	logger.Info("retrieving indices",
		"requested", len(req.requested),
		"units", len(req.units),
		"dmuf", req.opts.DMUF,
		"force", req.opts.Force,
	)

	parts := make([]*series.Series, 0, len(req.units))
	stems := make([]string, 0, len(req.units))
	for _, unit := range req.units {
		a, err := r.loadUnit(ctx, logger, unit, cache.FreshnessBound(unit, req.tMax), req.opts.Force)
		if err != nil {
			if appErr, ok := types.AsAppError(err); ok {
				return nil, appErr.WithDetails(map[string]any{"unit": unit.Stem()})
			}
			return nil, err
		}
		parts = append(parts, a.Series())
		stems = append(stems, unit.Stem())
	}

	out, err := series.Assemble(parts, req.requested)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUnexpected, "assembling series", err)
	}
	out.Attrs["units"] = strings.Join(stems, ",")

	logger.Info("indices retrieved", "rows", out.Len())
	return out, nil
}

// loadUnit returns the unit's artifact, refreshing it from the source when
// the cached copy cannot be reused.
func (r *Retriever) loadUnit(ctx context.Context, logger *slog.Logger, unit types.FetchUnit, bound time.Time, force bool) (*artifact.Artifact, error) {
	artifactPath := r.layout.ArtifactPath(unit)
	rawPath := r.layout.RawPath(unit)
	logger = logger.With("unit", unit.Stem())

	verdict := r.oracle.Judge(artifactPath, bound, force)
	logger.Debug("artifact freshness", "path", artifactPath, "verdict", string(verdict), "bound", bound)
	if verdict.Fresh() {
		return artifact.Load(artifactPath)
	}

	// Convert skips existing artifacts, so a stale one must go first.
	if err := cache.Remove(artifactPath); err != nil {
		return nil, err
	}

	var sourceURL string
	rawVerdict := r.oracle.Judge(rawPath, bound, force)
	if rawVerdict.Fresh() {
		logger.Info("reusing raw text from an earlier attempt", "path", rawPath)
	} else {
		u, err := r.source.Fetch(ctx, unit, rawPath, true)
		if err != nil {
			return nil, err
		}
		sourceURL = u
	}

	if _, err := r.converter.Convert(rawPath, artifactPath, unit, sourceURL); err != nil {
		return nil, err
	}
	return artifact.Load(artifactPath)
}

// UnitStatus describes one planned unit and the state of its cache entry.
type UnitStatus struct {
	Unit         types.FetchUnit `json:"-"`
	Stem         string          `json:"unit"`
	ArtifactPath string          `json:"artifact_path"`
	Bound        time.Time       `json:"bound"`
	Verdict      cache.Verdict   `json:"verdict"`
}

// PlanUnits reports the units a GetIndices call with the same arguments
// would touch, and whether each cached artifact would be reused. It performs
// no network or filesystem writes.
func (r *Retriever) PlanUnits(ctx context.Context, when any, station string, opts ...Option) ([]UnitStatus, error) {
	req, err := r.plan(when, station, opts)
	if err != nil {
		return nil, err
	}
	out := make([]UnitStatus, len(req.units))
	for i, unit := range req.units {
		bound := cache.FreshnessBound(unit, req.tMax)
		path := r.layout.ArtifactPath(unit)
		out[i] = UnitStatus{
			Unit:         unit,
			Stem:         unit.Stem(),
			ArtifactPath: path,
			Bound:        bound,
			Verdict:      r.oracle.Judge(path, bound, req.opts.Force),
		}
	}
	return out, nil
}

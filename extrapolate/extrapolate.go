// Package extrapolate extends small samples with synthetic draws so that
// capability analysis has enough material to work with. Draws come from a
// normal model fitted to the observed values; each candidate extension is
// accepted only if the combined sample still passes the Anderson-Darling
// normality test at the configured p-value. Synthetic values are always
// flagged as such and never overwrite observed data.
package extrapolate

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/Blanqui04/capstat/capability"
	"github.com/Blanqui04/capstat/errors"
	"github.com/Blanqui04/capstat/logger"
	"github.com/Blanqui04/capstat/sample"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// Config bounds one extension run.
type Config struct {
	// TargetPValue is the normality threshold a candidate extension must
	// reach to be accepted.
	TargetPValue float64
	// MaxAttempts bounds the redraw loop.
	MaxAttempts int
	// TargetSampleSize is the combined observed plus synthetic size to
	// reach. Samples already at or above it are returned untouched.
	TargetSampleSize int
}

// Result reports one extension run. Converged false means no attempt
// reached the target p-value and Synthetic holds the best-scoring
// candidate instead.
type Result struct {
	Synthetic   []float64 `json:"synthetic"`
	ADStatistic float64   `json:"ad_statistic"`
	PValue      float64   `json:"p_value"`
	Attempts    int       `json:"attempts"`
	Converged   bool      `json:"converged"`
}

// Err returns ErrExtrapolationNotConverged for a non-converged result,
// nil otherwise.
func (r *Result) Err() error {
	if r.Converged {
		return nil
	}
	return errors.Wrapf(errors.ErrExtrapolationNotConverged,
		"best p-value %.4f after %d attempts", r.PValue, r.Attempts)
}

// Manager draws synthetic values and validates candidate extensions.
type Manager struct {
	cfg Config
	rng *rand.Rand
	log *zap.SugaredLogger
}

// Option configures a Manager.
type Option func(*Manager)

// WithRand injects the random source. Tests use a seeded source for
// reproducible draws.
func WithRand(rng *rand.Rand) Option {
	return func(m *Manager) { m.rng = rng }
}

// WithLogger overrides the package-global logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(m *Manager) { m.log = log }
}

// NewManager builds a Manager. Zero config fields fall back to the same
// defaults the configuration layer applies.
func NewManager(cfg Config, opts ...Option) *Manager {
	if cfg.TargetPValue == 0 {
		cfg.TargetPValue = 0.05
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 100
	}
	if cfg.TargetSampleSize <= 0 {
		cfg.TargetSampleSize = 50
	}
	m := &Manager{cfg: cfg, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.Logger
	}
	return m
}

// WithConfig returns a Manager sharing this one's random source and
// logger but bounded by cfg. Studies use it for per-run overrides.
func (m *Manager) WithConfig(cfg Config) *Manager {
	return NewManager(cfg, WithRand(m.rng), WithLogger(m.log))
}

// Extend draws synthetic values until the combined sample passes the
// normality target or the attempt budget runs out. The sample itself is
// not modified; the caller decides whether to append the returned draws.
// The observed values must show spread, a degenerate sample cannot seed
// a normal model.
func (m *Manager) Extend(ctx context.Context, s *sample.Sample) (*Result, error) {
	observed := s.Observed()
	n := len(observed)
	if n < 2 {
		return nil, errors.Newf("element %s: need at least 2 observed values to extrapolate, got %d", s.Key().ID(), n)
	}

	missing := m.cfg.TargetSampleSize - n
	if missing <= 0 {
		return &Result{Converged: true, PValue: math.NaN(), ADStatistic: math.NaN()}, nil
	}

	mu := stat.Mean(observed, nil)
	sigma := stat.StdDev(observed, nil)
	if sigma == 0 {
		return nil, errors.Wrapf(errors.ErrZeroVariance, "element %s: cannot extrapolate without spread", s.Key().ID())
	}

	tol := s.Tolerance()
	avoidNegatives := tol.Nominal == 0 && tol.TolNegative == 0

	best := &Result{PValue: math.Inf(-1)}
	combined := make([]float64, n, m.cfg.TargetSampleSize)

	for attempt := 1; attempt <= m.cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "extrapolation canceled")
		default:
		}

		synthetic := m.draw(missing, mu, sigma, avoidNegatives)
		copy(combined, observed)
		combined = append(combined[:n], synthetic...)

		// The hypothesized model keeps the observed sample's parameters
		// across attempts; it is never re-fitted to the combined sample.
		a2, p, err := capability.NormalityTest(combined, mu, sigma)
		if err != nil {
			return nil, errors.Wrapf(err, "element %s", s.Key().ID())
		}

		if p > best.PValue {
			best = &Result{
				Synthetic:   synthetic,
				ADStatistic: a2,
				PValue:      p,
				Attempts:    attempt,
			}
		}

		if p >= m.cfg.TargetPValue {
			best.Attempts = attempt
			best.Converged = true
			m.log.Debugw("extrapolation converged",
				logger.FieldElement, s.Key().ID(),
				logger.FieldAttempt, attempt,
				logger.FieldPValue, p,
				logger.FieldSynthetic, len(synthetic),
			)
			return best, nil
		}
	}

	best.Attempts = m.cfg.MaxAttempts
	m.log.Warnw("extrapolation did not converge, keeping best attempt",
		logger.FieldElement, s.Key().ID(),
		logger.FieldAttempt, best.Attempts,
		logger.FieldPValue, best.PValue,
	)
	return best, nil
}

// draw samples count values from N(mu, sigma). When avoidNegatives is
// set, negative draws are reflected to zero-bounded magnitudes, matching
// characteristics that cannot physically go below zero.
func (m *Manager) draw(count int, mu, sigma float64, avoidNegatives bool) []float64 {
	values := make([]float64, count)
	for i := range values {
		v := mu + sigma*m.rng.NormFloat64()
		if avoidNegatives && v < 0 {
			v = math.Abs(v)
		}
		values[i] = v
	}
	return values
}

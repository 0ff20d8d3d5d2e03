// Package bench times small in-memory operations and reports their
// per-iteration latency as mean and variance over several samples.
package bench

import (
	"context"
	"errors"
	"math"
	"time"
)

// ErrInvalidOptions indicates options that cannot produce a measurement.
var ErrInvalidOptions = errors.New("invalid benchmark options")

// Scenario is a named operation to time.
// Run performs one iteration and must publish its result (for example to a
// package-level sink) so the work cannot be optimized away.
type Scenario struct {
	Name string
	Run  func()
}

// Options configures a benchmark run.
type Options struct {
	// Samples is the number of timed samples per scenario.
	// Default: 10
	Samples int

	// Iterations fixes the iterations per sample. When zero the count is
	// calibrated so that one sample lasts at least SampleTime.
	Iterations int

	// SampleTime is the calibration target for one sample.
	// Default: 100ms
	SampleTime time.Duration

	// MaxIterations caps calibration.
	// Default: 1e9
	MaxIterations int

	// OnResult is called when each scenario completes.
	OnResult func(result Result)
}

// Validate checks the options.
func (o *Options) Validate() error {
	if o.Samples < 0 || o.Iterations < 0 || o.SampleTime < 0 || o.MaxIterations < 0 {
		return ErrInvalidOptions
	}
	return nil
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Samples:       10,
		SampleTime:    100 * time.Millisecond,
		MaxIterations: 1e9,
	}
}

// Result is the measurement of one scenario.
type Result struct {
	Name       string  `json:"name"`
	Iterations int     `json:"iterations"`
	Samples    int     `json:"samples"`
	MeanNs     float64 `json:"mean_ns"`
	VarianceNs float64 `json:"variance_ns2"`
	StdDevNs   float64 `json:"stddev_ns"`
	MinNs      float64 `json:"min_ns"`
	MaxNs      float64 `json:"max_ns"`
}

// Run measures each scenario in order. It stops early and returns the
// results gathered so far if ctx is cancelled between scenarios.
func Run(ctx context.Context, scenarios []Scenario, opts Options) ([]Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = withDefaults(opts)

	results := make([]Result, 0, len(scenarios))
	for _, s := range scenarios {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r := measure(s, opts)
		results = append(results, r)
		if opts.OnResult != nil {
			opts.OnResult(r)
		}
	}
	return results, nil
}

// Measure times a single scenario.
func Measure(s Scenario, opts Options) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	return measure(s, withDefaults(opts)), nil
}

func withDefaults(opts Options) Options {
	def := DefaultOptions()
	if opts.Samples == 0 {
		opts.Samples = def.Samples
	}
	if opts.SampleTime == 0 {
		opts.SampleTime = def.SampleTime
	}
	if opts.MaxIterations == 0 {
		opts.MaxIterations = def.MaxIterations
	}
	return opts
}

func measure(s Scenario, opts Options) Result {
	n := opts.Iterations
	if n == 0 {
		n = calibrate(s.Run, opts.SampleTime, opts.MaxIterations)
	}

	perIter := make([]float64, opts.Samples)
	for i := range perIter {
		d := timeN(s.Run, n)
		perIter[i] = float64(d.Nanoseconds()) / float64(n)
	}

	mean, variance := meanVariance(perIter)
	lo, hi := minMax(perIter)
	return Result{
		Name:       s.Name,
		Iterations: n,
		Samples:    opts.Samples,
		MeanNs:     mean,
		VarianceNs: variance,
		StdDevNs:   math.Sqrt(variance),
		MinNs:      lo,
		MaxNs:      hi,
	}
}

// calibrate grows the iteration count until n iterations take at least
// target, predicting the next count from the last run like testing.B does.
func calibrate(fn func(), target time.Duration, limit int) int {
	n := 1
	for {
		d := timeN(fn, n)
		if d >= target || n >= limit {
			return n
		}

		next := n * 100
		if d > 0 {
			predicted := int64(float64(n) * 1.2 * float64(target) / float64(d))
			if predicted < int64(next) {
				next = int(predicted)
			}
		}
		if next <= n {
			next = n + 1
		}
		if next > limit {
			next = limit
		}
		n = next
	}
}

func timeN(fn func(), n int) time.Duration {
	start := time.Now()
	for i := 0; i < n; i++ {
		fn()
	}
	return time.Since(start)
}

// meanVariance returns the mean and the unbiased sample variance.
func meanVariance(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	if len(xs) == 1 {
		return mean, 0
	}

	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return mean, sq / float64(len(xs)-1)
}

func minMax(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

package suite

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"linecheck/internal/diag"
	"linecheck/internal/source"
	"linecheck/internal/trace"
	"linecheck/internal/verify"
)

// RunnerConfig configures suite execution.
type RunnerConfig struct {
	// Jobs bounds the number of concurrent runs; 0 means GOMAXPROCS.
	Jobs int
	// Filter limits execution to matching fixture names (empty = all).
	Filter []string
	// Cache, when set, is consulted before and updated after each run.
	Cache *Cache
	// Sink receives progress events; nil discards them.
	Sink ProgressSink
}

// FixtureResult is the outcome of one fixture. Err is set when the fixture
// could not be run (unreadable file, cache failure); Result is meaningful
// only when Err is nil.
type FixtureResult struct {
	Entry   Entry
	Result  verify.Result
	Cached  bool
	Err     error
	Elapsed time.Duration

	FileSet *source.FileSet
	AnnID   source.FileID
	OutID   source.FileID
}

// Passed reports whether the fixture ran and its checks held.
func (r FixtureResult) Passed() bool { return r.Err == nil && r.Result.OK() }

// Diagnostic renders the failure of r, or nil when it passed.
func (r FixtureResult) Diagnostic() *diag.Diagnostic {
	if r.Err != nil {
		return &diag.Diagnostic{
			Severity: diag.SevError,
			Code:     diag.IOLoadFileError,
			Message:  r.Entry.Fixture.Name + ": " + r.Err.Error(),
		}
	}
	if r.FileSet == nil {
		return nil
	}
	return r.Result.Diagnostic(r.FileSet, r.AnnID, r.OutID)
}

// Summary aggregates a suite run. Results are in registration order.
type Summary struct {
	Total   int
	Passed  int
	Failed  int
	Cached  int
	Elapsed time.Duration
	Results []FixtureResult
}

// OK reports whether every fixture passed.
func (s Summary) OK() bool { return s.Failed == 0 }

func (s Summary) String() string {
	return fmt.Sprintf("%d total, %d passed, %d failed, %d cached", s.Total, s.Passed, s.Failed, s.Cached)
}

// Runner executes the fixtures of a registry.
type Runner struct {
	config   RunnerConfig
	registry *Registry
}

// NewRunner creates a suite runner.
func NewRunner(registry *Registry, config RunnerConfig) *Runner {
	return &Runner{
		config:   config,
		registry: registry,
	}
}

// Run verifies every selected fixture. Fixture failures are reported in the
// summary; the error is non-nil only for a bad filter or a cancelled ctx.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	entries, err := r.registry.Filter(r.config.Filter)
	if err != nil {
		return Summary{}, err
	}

	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopeDriver, "suite", trace.CurrentSpan(ctx)).
		WithExtra("fixtures", strconv.Itoa(len(entries)))
	ctx = trace.WithSpan(ctx, span)
	start := time.Now()

	for i, e := range entries {
		r.emit(Event{Fixture: e.Fixture.Name, Index: i, Status: StatusQueued})
	}

	jobs := r.config.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// индексы уникальны для каждой горутины, мьютекс не нужен
	results := make([]FixtureResult, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(entries))))
	for i, e := range entries {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				results[i] = FixtureResult{Entry: e, Err: gctx.Err()}
				return gctx.Err()
			default:
			}
			r.emit(Event{Fixture: e.Fixture.Name, Index: i, Status: StatusWorking})
			res := r.runOne(gctx, e)
			results[i] = res
			r.emit(resultEvent(i, res))
			return nil
		})
	}
	waitErr := g.Wait()
	if waitErr == nil {
		waitErr = ctx.Err()
	}

	sum := Summary{Total: len(entries), Results: results, Elapsed: time.Since(start)}
	for _, res := range results {
		if res.Passed() {
			sum.Passed++
		} else {
			sum.Failed++
		}
		if res.Cached {
			sum.Cached++
		}
	}
	span.End(sum.String())
	return sum, waitErr
}

func (r *Runner) emit(evt Event) {
	if r.config.Sink != nil {
		r.config.Sink.OnEvent(evt)
	}
}

func resultEvent(i int, res FixtureResult) Event {
	evt := Event{
		Fixture: res.Entry.Fixture.Name,
		Index:   i,
		Kind:    res.Result.Kind,
		Cached:  res.Cached,
		Err:     res.Err,
		Elapsed: res.Elapsed,
	}
	switch {
	case res.Err != nil:
		evt.Status = StatusError
	case res.Result.OK():
		evt.Status = StatusPassed
	default:
		evt.Status = StatusFailed
	}
	return evt
}

func (r *Runner) runOne(ctx context.Context, e Entry) (res FixtureResult) {
	started := time.Now()
	res.Entry = e
	defer func() { res.Elapsed = time.Since(started) }()

	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopeRun, "fixture", trace.CurrentSpan(ctx)).
		WithExtra("name", e.Fixture.Name)
	defer func() { span.End(resultDetail(res)) }()

	fs := source.NewFileSet()
	annID, err := fs.Load(e.Fixture.Annotation, 0)
	if err != nil {
		res.Err = fmt.Errorf("load annotation: %w", err)
		return res
	}
	outID, err := fs.Load(e.Fixture.Output, source.FileOutput)
	if err != nil {
		res.Err = fmt.Errorf("load output: %w", err)
		return res
	}
	res.FileSet, res.AnnID, res.OutID = fs, annID, outID

	var key Key
	if r.config.Cache != nil {
		key, err = KeyFor(fs.Get(annID).Content, fs.Get(outID).Content, e.Options)
		if err != nil {
			res.Err = err
			return res
		}
		cached, ok, err := r.config.Cache.Get(key)
		if err != nil {
			// битый файл кэша: считаем промахом и перезапишем
			trace.Point(tr, trace.ScopeRun, "cache-corrupt", err.Error(), span.ID(), nil)
		} else if ok {
			res.Result, res.Cached = cached, true
			return res
		}
	}

	res.Result = verify.VerifyFiles(trace.WithSpan(ctx, span), fs, annID, outID, e.Options)
	if res.Result.Kind == verify.Interrupted {
		return res
	}
	if r.config.Cache != nil {
		if err := r.config.Cache.Put(key, res.Result); err != nil {
			trace.Point(tr, trace.ScopeRun, "cache-write-failed", err.Error(), span.ID(), nil)
		}
	}
	return res
}

func resultDetail(res FixtureResult) string {
	switch {
	case res.Err != nil:
		return "error"
	case res.Cached:
		return res.Result.Kind.String() + " (cached)"
	default:
		return res.Result.Kind.String()
	}
}

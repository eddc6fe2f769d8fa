package suite

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linecheck/internal/config"
	"linecheck/internal/verify"
)

type fixtureFiles struct {
	name, annotation, output string
}

func buildRegistry(t *testing.T, fixtures []fixtureFiles) *Registry {
	t.Helper()
	dir := t.TempDir()
	r := NewRegistry()
	for _, f := range fixtures {
		ann := filepath.Join(dir, f.name+".chk")
		out := filepath.Join(dir, f.name+".out")
		require.NoError(t, os.WriteFile(ann, []byte(f.annotation), 0o600))
		if f.output != "\x00missing" {
			require.NoError(t, os.WriteFile(out, []byte(f.output), 0o600))
		}
		require.NoError(t, r.Add(Entry{
			Fixture: config.Fixture{Name: f.name, Annotation: ann, Output: out},
			Options: verify.DefaultOptions(),
		}))
	}
	return r
}

var mixedFixtures = []fixtureFiles{
	{"pass", "CHECK: hello\n", "hello world\n"},
	{"fail", "CHECK: missing\n", "hello\n"},
	{"none", "no directives\n", "x\n"},
	{"io", "CHECK: x\n", "\x00missing"},
	{"vars", "CHECK: [[VAL:[0-9]+]]\nCHECK: got {{VAL}}\n", "42\ngot 42\n"},
}

func TestRunnerEmpty(t *testing.T) {
	sum, err := NewRunner(NewRegistry(), RunnerConfig{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Total)
	assert.True(t, sum.OK())
	assert.Equal(t, "0 total, 0 passed, 0 failed, 0 cached", sum.String())
}

func TestRunnerMixed(t *testing.T) {
	r := buildRegistry(t, mixedFixtures)

	sum, err := NewRunner(r, RunnerConfig{Jobs: 3}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Total)
	assert.Equal(t, 2, sum.Passed)
	assert.Equal(t, 3, sum.Failed)
	assert.False(t, sum.OK())
	assert.Equal(t, "5 total, 2 passed, 3 failed, 0 cached", sum.String())

	require.Len(t, sum.Results, 5)
	assert.Equal(t, "pass", sum.Results[0].Entry.Fixture.Name)
	assert.True(t, sum.Results[0].Passed())
	assert.Equal(t, verify.PatternNotFound, sum.Results[1].Result.Kind)
	assert.Equal(t, verify.NoDirectivesFound, sum.Results[2].Result.Kind)
	assert.Error(t, sum.Results[3].Err)
	assert.Equal(t, map[string]string{"VAL": "42"}, sum.Results[4].Result.Bindings)

	assert.Nil(t, sum.Results[0].Diagnostic())
	require.NotNil(t, sum.Results[1].Diagnostic())
	require.NotNil(t, sum.Results[3].Diagnostic())
	assert.Contains(t, sum.Results[3].Diagnostic().Message, "io: load output")
}

func TestRunnerDeterministicAcrossJobs(t *testing.T) {
	r := buildRegistry(t, mixedFixtures)

	base, err := NewRunner(r, RunnerConfig{Jobs: 1}).Run(context.Background())
	require.NoError(t, err)
	for _, jobs := range []int{2, 4, 16} {
		sum, err := NewRunner(r, RunnerConfig{Jobs: jobs}).Run(context.Background())
		require.NoError(t, err)
		require.Len(t, sum.Results, len(base.Results))
		for i := range base.Results {
			assert.Equal(t, base.Results[i].Entry.Fixture.Name, sum.Results[i].Entry.Fixture.Name)
			assert.True(t, base.Results[i].Result.Equal(sum.Results[i].Result), "fixture %d differs with %d jobs", i, jobs)
		}
	}
}

func TestRunnerFilter(t *testing.T) {
	r := buildRegistry(t, mixedFixtures)

	sum, err := NewRunner(r, RunnerConfig{Filter: []string{"pass", "v*"}}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Total)
	assert.Equal(t, 2, sum.Passed)

	_, err = NewRunner(r, RunnerConfig{Filter: []string{"["}}).Run(context.Background())
	assert.Error(t, err)
}

func TestRunnerCacheHit(t *testing.T) {
	r := buildRegistry(t, mixedFixtures)
	cache, err := OpenCache(t.TempDir())
	require.NoError(t, err)

	first, err := NewRunner(r, RunnerConfig{Cache: cache}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, first.Cached)

	second, err := NewRunner(r, RunnerConfig{Cache: cache}).Run(context.Background())
	require.NoError(t, err)
	// всё, что удалось прочитать, берётся из кэша
	assert.Equal(t, 4, second.Cached)
	assert.Equal(t, first.Passed, second.Passed)
	assert.Equal(t, first.Failed, second.Failed)
	for i := range first.Results {
		assert.True(t, first.Results[i].Result.Equal(second.Results[i].Result))
	}
	require.NotNil(t, second.Results[1].Diagnostic())
}

func TestRunnerCacheMissAfterEdit(t *testing.T) {
	r := buildRegistry(t, mixedFixtures[:1])
	cache, err := OpenCache(t.TempDir())
	require.NoError(t, err)

	_, err = NewRunner(r, RunnerConfig{Cache: cache}).Run(context.Background())
	require.NoError(t, err)

	e, _ := r.Lookup("pass")
	require.NoError(t, os.WriteFile(e.Fixture.Output, []byte("goodbye\n"), 0o600))

	sum, err := NewRunner(r, RunnerConfig{Cache: cache}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Cached)
	assert.Equal(t, 1, sum.Failed)
}

func TestRunnerEvents(t *testing.T) {
	r := buildRegistry(t, mixedFixtures)

	var (
		mu     sync.Mutex
		events []Event
	)
	sink := SinkFunc(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	})
	_, err := NewRunner(r, RunnerConfig{Jobs: 2, Sink: sink}).Run(context.Background())
	require.NoError(t, err)

	final := map[string]Status{}
	counts := map[Status]int{}
	for _, e := range events {
		counts[e.Status]++
		if e.Status.Done() {
			final[e.Fixture] = e.Status
		}
	}
	assert.Equal(t, 5, counts[StatusQueued])
	assert.Equal(t, 5, counts[StatusWorking])
	assert.Equal(t, StatusPassed, final["pass"])
	assert.Equal(t, StatusFailed, final["fail"])
	assert.Equal(t, StatusError, final["io"])
}

func TestRunnerChannelSink(t *testing.T) {
	r := buildRegistry(t, mixedFixtures[:1])
	ch := make(chan Event, 8)

	_, err := NewRunner(r, RunnerConfig{Sink: ChannelSink{Ch: ch}}).Run(context.Background())
	require.NoError(t, err)
	close(ch)

	var statuses []Status
	for e := range ch {
		statuses = append(statuses, e.Status)
	}
	assert.Equal(t, []Status{StatusQueued, StatusWorking, StatusPassed}, statuses)
}

func TestRunnerCancelled(t *testing.T) {
	r := buildRegistry(t, mixedFixtures)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := NewRunner(r, RunnerConfig{Jobs: 1}).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 5, sum.Total)
	assert.Equal(t, 0, sum.Passed)
}

package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestLevelShouldEmit(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelError, ScopeRun, true},
		{LevelError, ScopePhase, false},
		{LevelPhase, ScopePhase, true},
		{LevelPhase, ScopeDirective, false},
		{LevelDetail, ScopeDirective, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"off", "error", "phase", "detail", "debug"} {
		lvl, err := ParseLevel(s)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", s, err)
		}
		if lvl.String() != s {
			t.Errorf("round trip %q -> %q", s, lvl.String())
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestStreamTracerText(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)

	root := Begin(tr, ScopeRun, "verify", 0)
	child := Begin(tr, ScopePhase, "parse", root.ID())
	child.WithExtra("directives", "3").End("")
	Begin(tr, ScopeDirective, "CHECK", child.ID()).End("")
	root.End("ok")

	out := buf.String()
	if !strings.Contains(out, "run:verify (ok)") {
		t.Errorf("missing run end event:\n%s", out)
	}
	if !strings.Contains(out, "phase:parse {directives=3}") {
		t.Errorf("missing phase end extra:\n%s", out)
	}
	if strings.Contains(out, "directive:") {
		t.Errorf("directive scope must be filtered at phase level:\n%s", out)
	}
}

func TestRingTracerWraps(t *testing.T) {
	r := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(r, ScopeRun, name, "", 0, nil)
	}
	snap := r.Snapshot()
	if len(snap) != 2 || snap[0].Name != "b" || snap[1].Name != "c" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatNDJSON); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 2 {
		t.Errorf("expected 2 ndjson lines, got %d", n)
	}
}

func TestContextPropagation(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatal("expected Nop for empty context")
	}
	r := NewRingTracer(4, LevelDebug)
	ctx := WithTracer(context.Background(), r)
	span := Begin(FromContext(ctx), ScopeDriver, "suite", 0)
	ctx = WithSpan(ctx, span)
	if CurrentSpan(ctx) != span.ID() {
		t.Errorf("CurrentSpan = %d, want %d", CurrentSpan(ctx), span.ID())
	}
}

func TestNewAutoFormat(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr.Enabled() {
		t.Fatalf("off level must give disabled tracer, err=%v", err)
	}
	var buf bytes.Buffer
	tr, err = New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	mt, ok := tr.(*MultiTracer)
	if !ok || mt.Ring() == nil {
		t.Fatalf("expected multi tracer with ring, got %T", tr)
	}
}

func TestRingTracerReportsDropped(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for i := 0; i < 5; i++ {
		Point(r, ScopeRun, "p", "", 0, nil)
	}
	if r.Len() != 3 || r.Dropped() != 2 {
		t.Fatalf("len=%d dropped=%d, want 3 and 2", r.Len(), r.Dropped())
	}
	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatText); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "# 2 earlier events dropped") {
		t.Errorf("missing dropped header:\n%s", buf.String())
	}
}

func TestSpanEndOnce(t *testing.T) {
	r := NewRingTracer(16, LevelDebug)
	before := OpenSpans()
	s := Begin(r, ScopeRun, "fixture-a", 0)
	if OpenSpans() != before+1 {
		t.Fatalf("open spans = %d, want %d", OpenSpans(), before+1)
	}
	if LastRun() != "fixture-a" {
		t.Errorf("LastRun = %q", LastRun())
	}
	s.End("ok")
	s.End("again")
	if OpenSpans() != before {
		t.Errorf("open spans = %d after end, want %d", OpenSpans(), before)
	}
	if n := r.Len(); n != 2 {
		t.Errorf("expected begin and one end event, got %d", n)
	}
}

func TestFilteredSpanIsInert(t *testing.T) {
	r := NewRingTracer(16, LevelError)
	s := Begin(r, ScopePhase, "parse", 0)
	s.WithExtra("k", "v").End("")
	if s.ID() != 0 || r.Len() != 0 {
		t.Fatalf("phase span must be filtered at error level: id=%d len=%d", s.ID(), r.Len())
	}
}

func TestHeartbeatEmits(t *testing.T) {
	r := NewRingTracer(64, LevelPhase)
	h := StartHeartbeat(r, time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for r.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	h.Stop()
	h.Stop()
	snap := r.Snapshot()
	if len(snap) == 0 || snap[0].Kind != KindHeartbeat {
		t.Fatalf("expected heartbeat events, got %+v", snap)
	}
	if _, ok := snap[0].Extra["open"]; !ok {
		t.Errorf("heartbeat without open count: %+v", snap[0].Extra)
	}
	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Error("heartbeat on disabled tracer must be nil")
	}
}

func TestRingOfAndFormatFor(t *testing.T) {
	r := NewRingTracer(4, LevelPhase)
	if RingOf(r) != r || RingOf(NewMultiTracer(LevelPhase, Nop, r)) != r || RingOf(Nop) != nil {
		t.Fatal("RingOf did not find the ring")
	}
	if FormatFor("trace.ndjson") != FormatNDJSON || FormatFor("trace.txt") != FormatText {
		t.Error("FormatFor picked the wrong format")
	}
}

package source

import (
	"strings"
	"testing"
)

func TestFileSetVersioning(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.Add("out.txt", []byte("first run"), 0)
	id2 := fs.Add("out.txt", []byte("second run"), 0)
	if id1 != 0 || id2 != 1 {
		t.Fatalf("unexpected ids: %d %d", id1, id2)
	}

	latest, ok := fs.GetLatest("out.txt")
	if !ok || latest != id2 {
		t.Fatalf("GetLatest = %d, %v; want %d, true", latest, ok, id2)
	}
	if got := string(fs.Get(id1).Content); got != "first run" {
		t.Errorf("old version lost: %q", got)
	}
	if fs.Get(FileID(42)) != nil {
		t.Error("Get must return nil for unknown ids")
	}
}

func TestLoadReaderNormalizes(t *testing.T) {
	fs := NewFileSet()
	in := "\xEF\xBB\xBFline one\r\nline two\r\n"
	id, err := fs.LoadReader("<stdin>", strings.NewReader(in), FileOutput)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	f := fs.Get(id)
	if string(f.Content) != "line one\nline two\n" {
		t.Fatalf("content not normalized: %q", f.Content)
	}
	want := FileVirtual | FileHadBOM | FileNormalizedCRLF | FileOutput
	if f.Flags != want {
		t.Errorf("flags = %b, want %b", f.Flags, want)
	}
}

func TestLinesAndLineCount(t *testing.T) {
	tests := []struct {
		content string
		want    []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a\n", []string{"a"}},
		{"a\nb", []string{"a", "b"}},
		{"a\n\nb\n", []string{"a", "", "b"}},
		{"\n", []string{""}},
	}
	for _, tt := range tests {
		fs := NewFileSet()
		f := fs.Get(fs.AddVirtual("x", []byte(tt.content)))
		got := f.Lines()
		if f.LineCount() != len(tt.want) {
			t.Errorf("%q: LineCount = %d, want %d", tt.content, f.LineCount(), len(tt.want))
		}
		if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
			t.Errorf("%q: Lines = %q, want %q", tt.content, got, tt.want)
		}
	}
}

func TestLineSpanAndResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.chk", []byte("CHECK: foo\nCHECK-NEXT: bar\n"))
	f := fs.Get(id)

	sp := f.LineSpan(2)
	if got := string(f.Content[sp.Start:sp.End]); got != "CHECK-NEXT: bar" {
		t.Fatalf("line 2 span text = %q", got)
	}
	start, end := fs.Resolve(sp)
	if start != (LineCol{Line: 2, Col: 1}) {
		t.Errorf("start = %+v", start)
	}
	if end != (LineCol{Line: 2, Col: 16}) {
		t.Errorf("end = %+v", end)
	}
	if f.GetLine(3) != "" || f.GetLine(0) != "" {
		t.Error("out-of-range lines must be empty")
	}
	if f.GetLine(1) != "CHECK: foo" {
		t.Errorf("GetLine(1) = %q", f.GetLine(1))
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 4, End: 8}
	b := Span{File: 1, Start: 2, End: 6}
	if got := a.Cover(b); got != (Span{File: 1, Start: 2, End: 8}) {
		t.Errorf("Cover = %v", got)
	}
	if got := a.Cover(Span{File: 2, Start: 0, End: 100}); got != a {
		t.Errorf("cross-file Cover must keep the receiver, got %v", got)
	}
	if !a.Cover(b).Contains(a) {
		t.Error("cover must contain its parts")
	}
}

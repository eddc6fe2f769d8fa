package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	maxSeedBytes = 64 << 10 // 64 KiB, ограничение для тестового корпуса
	maxFuzzInput = 16 << 10
)

// pairSeed is an annotation with the output it is checked against.
type pairSeed struct {
	annotation string
	output     string
}

var builtinSeeds = []pairSeed{
	{"CHECK: hello\n", "hello\n"},
	{"CHECK: a\nCHECK-NEXT: b\nCHECK-SAME: c\n", "a\nb c\n"},
	{"CHECK: [[X:[0-9]+]]\nCHECK: [[X]]\n", "12\n12\n"},
	{"CHECK-DAG: x\nCHECK-DAG: y\nCHECK-LABEL: z\n", "y\nx\nz\n"},
	{"CHECK: a\nCHECK-NOT: b\nCHECK: c\n", "a\nb\nc\n"},
	{"CHECK: {{[a-z]+}} [[@LINE+1]]\n", "abc 2\n"},
	{"CHECK-EMPTY:\n", "\n"},
	{"CHECK: [[\n", ""},
	{"CHECK: {{(}}\n", "("},
}

// addPairSeeds adds the builtin pairs and every testdata fixture that has a
// captured output next to it.
func addPairSeeds(f *testing.F) {
	for _, s := range builtinSeeds {
		f.Add([]byte(s.annotation), []byte(s.output))
	}
	walkFixtures(func(annotation, output []byte) {
		f.Add(clampSeed(annotation), clampSeed(output))
	})
}

// addAnnotationSeeds adds annotations only.
func addAnnotationSeeds(f *testing.F) {
	for _, s := range builtinSeeds {
		f.Add([]byte(s.annotation))
	}
	walkFixtures(func(annotation, _ []byte) {
		f.Add(clampSeed(annotation))
	})
}

func walkFixtures(add func(annotation, output []byte)) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	// проходим по дереву testdata, берём *.chk вместе с *.chk.out
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || !strings.HasSuffix(path, ".chk") {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		ann, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		// #nosec G304 -- sibling of a testdata file
		out, err := os.ReadFile(path + ".out")
		if err != nil {
			out = nil
		}
		add(ann, out)
		return nil
	})
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}

func clampInput(src []byte) []byte {
	if len(src) > maxFuzzInput {
		src = src[:maxFuzzInput]
	}
	return append([]byte(nil), src...)
}

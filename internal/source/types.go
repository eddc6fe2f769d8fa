package source

type (
	// FileID uniquely identifies a text within a FileSet.
	FileID uint32
	// FileFlags encodes metadata about a text.
	FileFlags uint8
)

const (
	// FileVirtual indicates the text was added from memory (test, stdin, pipe).
	FileVirtual FileFlags = 1 << iota
	FileHadBOM
	FileNormalizedCRLF
	// FileOutput marks the text produced by the tool under test, as opposed to
	// the annotation source that carries the directives.
	FileOutput
)

// File captures metadata and content for a single text.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32 // offsets of every '\n'
	Hash    [32]byte
	Flags   FileFlags
}

// LineCol represents a human-readable position in a text.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based
}

package chunk

// DefaultMaxSize is the default chunk bound in characters.
const DefaultMaxSize = 1000

// Separators used by the packing passes.
const (
	ParagraphSeparator = "\n\n"
	SentenceSeparator  = ". "
)

// Chunk is a retrievable unit of text cut from one source.
type Chunk struct {
	Text        string // Trimmed chunk content
	SourceID    string // Relative path or other source key
	Index       int    // 0-indexed position within the source
	TotalChunks int    // Number of chunks the source produced
}

// Chunker splits text with a fixed size bound.
type Chunker struct {
	MaxSize int
}

// New returns a Chunker bounded at maxSize characters.
// A non-positive maxSize selects DefaultMaxSize.
func New(maxSize int) *Chunker {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Chunker{MaxSize: maxSize}
}

// Split applies Split with the chunker's bound.
func (c *Chunker) Split(text string) []string {
	return Split(text, c.MaxSize)
}

// Document applies Document with the chunker's bound.
func (c *Chunker) Document(sourceID, text string) []Chunk {
	return Document(sourceID, text, c.MaxSize)
}

// Package chunker splits document text into segments for embedding.
//
// Two strategies are supported. The fixed-window strategy slides a window of
// Size characters forward by Size-Overlap, so consecutive chunks share exactly
// Overlap characters; whitespace runs of Size or more collapse to one rune
// first. The sentence strategy accumulates whole sentences until
// the next one would overflow Size. Lengths are counted in runes.
package chunker

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// ErrInvalidConfig is returned by New for unusable size/overlap settings
var ErrInvalidConfig = errors.New("invalid chunker config")

// Strategy selects how text is split
type Strategy string

const (
	StrategyFixed    Strategy = "fixed"
	StrategySentence Strategy = "sentence"
)

// Defaults used when configuration leaves values unset
const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// ParseStrategy maps a configuration string to a Strategy
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyFixed:
		return StrategyFixed, nil
	case StrategySentence, "":
		return StrategySentence, nil
	}
	return "", fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, s)
}

// Config holds chunker settings
type Config struct {
	Strategy Strategy
	Size     int
	Overlap  int // fixed-window only
}

// Chunker splits text according to its Config
type Chunker struct {
	cfg Config
}

// sentenceEnd matches terminal punctuation followed by whitespace
var sentenceEnd = regexp.MustCompile(`[.!?]+\s+`)

// New validates cfg and returns a Chunker
func New(cfg Config) (*Chunker, error) {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategySentence
	}
	if cfg.Strategy != StrategyFixed && cfg.Strategy != StrategySentence {
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, cfg.Strategy)
	}
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidConfig, cfg.Size)
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.Size {
		return nil, fmt.Errorf("%w: overlap must be in [0, size), got %d", ErrInvalidConfig, cfg.Overlap)
	}
	return &Chunker{cfg: cfg}, nil
}

// Config returns the chunker's settings
func (c *Chunker) Config() Config {
	return c.cfg
}

// Split returns the ordered chunks of text. Empty or whitespace-only input
// yields no chunks; input that fits in one chunk yields it trimmed.
func (c *Chunker) Split(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if len([]rune(trimmed)) <= c.cfg.Size {
		return []string{trimmed}
	}

	if c.cfg.Strategy == StrategyFixed {
		return FixedWindow(trimmed, c.cfg.Size, c.cfg.Overlap)
	}
	return Sentences(trimmed, c.cfg.Size)
}

// FixedWindow splits text into windows of size runes whose starts advance by
// size-overlap. Whitespace runs of size runes or more are first collapsed by
// CollapseWhitespace, so no full window is whitespace only and dropping
// chunks never breaks the overlap between neighbours. For trimmed input,
// c0 + c1[overlap:] + ... equals CollapseWhitespace(text, size).
// Windows that are still whitespace only (untrimmed edges, size 1) are
// dropped.
func FixedWindow(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	runes := []rune(CollapseWhitespace(text, size))
	if len(runes) == 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	step := size - overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		window := string(runes[start:end])
		if strings.TrimSpace(window) != "" {
			chunks = append(chunks, window)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// CollapseWhitespace replaces every whitespace run of limit runes or more with
// a single newline when the run contains one, otherwise a single space.
// Shorter runs are kept as is.
func CollapseWhitespace(text string, limit int) string {
	if limit <= 0 {
		return text
	}

	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(runes); {
		if !unicode.IsSpace(runes[i]) {
			b.WriteRune(runes[i])
			i++
			continue
		}

		j, newline := i, false
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			if runes[j] == '\n' {
				newline = true
			}
			j++
		}

		switch {
		case j-i < limit:
			b.WriteString(string(runes[i:j]))
		case newline:
			b.WriteByte('\n')
		default:
			b.WriteByte(' ')
		}
		i = j
	}
	return b.String()
}

// Sentences accumulates whole sentences into chunks of at most size runes.
// A sentence longer than size becomes its own chunk.
func Sentences(text string, size int) []string {
	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
		currentLen = 0
	}

	for _, sentence := range SplitSentences(text) {
		n := len([]rune(sentence))
		sep := 0
		if currentLen > 0 {
			sep = 1
		}
		if currentLen > 0 && currentLen+sep+n > size {
			flush()
			sep = 0
		}
		if sep == 1 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
		currentLen += sep + n
	}
	flush()

	return chunks
}

// SplitSentences breaks text on '.', '!' or '?' followed by whitespace,
// keeping the punctuation with its sentence.
func SplitSentences(text string) []string {
	var sentences []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		// keep punctuation, drop the trailing whitespace
		end := loc[1]
		for end > loc[0] && unicode.IsSpace(rune(text[end-1])) {
			end--
		}
		if s := strings.TrimSpace(text[last:end]); s != "" {
			sentences = append(sentences, s)
		}
		last = loc[1]
	}
	if s := strings.TrimSpace(text[last:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

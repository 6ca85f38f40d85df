package data

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strings"

	internal "tinynmt/internal"
	"tinynmt/internal/vocab"
)

// Pair is a tokenized but not yet numericalized sentence pair.
type Pair struct {
	Source []string
	Target []string
}

// CorpusOptions controls how a parallel corpus is read.
type CorpusOptions struct {
	Lowercase bool
	// MaxLength drops pairs where either side has more tokens (0 disables).
	MaxLength int
}

// ReadPairs reads a tab separated parallel corpus, one "source<TAB>target"
// pair per line. Blank lines are skipped; a non-blank line without a tab or
// with an empty side is an error naming the line.
func ReadPairs(path string, opts CorpusOptions) ([]Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pairs []Pair
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		src, trg, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("%s:%d: missing tab separator", path, lineNo)
		}
		p := Pair{Source: tokenize(src, opts.Lowercase), Target: tokenize(trg, opts.Lowercase)}
		if len(p.Source) == 0 || len(p.Target) == 0 {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, ErrInvalidSequence)
		}
		if opts.MaxLength > 0 && (len(p.Source) > opts.MaxLength || len(p.Target) > opts.MaxLength) {
			continue
		}
		pairs = append(pairs, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return pairs, nil
}

func tokenize(s string, lower bool) []string {
	if lower {
		s = strings.ToLower(s)
	}
	return strings.Fields(s)
}

// SplitPairs moves a fraction of pairs into a validation set. The split is
// drawn from seed so it is stable across runs.
func SplitPairs(pairs []Pair, valFraction float64, seed int64) (train, val []Pair) {
	shuffled := make([]Pair, len(pairs))
	copy(shuffled, pairs)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	n := int(float64(len(shuffled)) * valFraction)
	if valFraction > 0 && n == 0 && len(shuffled) > 1 {
		n = 1
	}
	return shuffled[n:], shuffled[:n]
}

// BuildVocabularies builds source and target vocabularies from pairs.
func BuildVocabularies(pairs []Pair, minFreq int) (src, trg *vocab.Vocabulary) {
	srcSents := make([][]string, len(pairs))
	trgSents := make([][]string, len(pairs))
	for i, p := range pairs {
		srcSents[i] = p.Source
		trgSents[i] = p.Target
	}
	return vocab.Build(srcSents, minFreq), vocab.Build(trgSents, minFreq)
}

// Numericalize converts pairs into examples wrapped in <sos> ... <eos>.
func Numericalize(pairs []Pair, src, trg *vocab.Vocabulary) []Example {
	out := make([]Example, len(pairs))
	for i, p := range pairs {
		out[i] = Example{Source: src.Encode(p.Source), Target: trg.Encode(p.Target)}
	}
	return out
}

// Toy ids used by ToyExamples.
const (
	ToySOS = 1
	ToyEOS = 2
)

// ToyVocabulary is a twelve token vocabulary matching ToyExamples. Every id
// the toy pairs use is a real word; <pad> comes last.
func ToyVocabulary() *vocab.Vocabulary {
	v, err := vocab.FromList([]string{
		internal.UnkToken, internal.SOSToken, internal.EOSToken,
		"le", "chat", "noir", "dort", "sur", "un", "tapis", "rouge", internal.PadToken,
	})
	if err != nil {
		panic(err)
	}
	return v
}

// ToyExamples returns two fixed pairs used to smoke-test training.
func ToyExamples() []Example {
	return []Example{
		{
			Source: []int{ToySOS, 3, 9, 4, 5, 10, ToyEOS},
			Target: []int{ToySOS, 9, 8, 6, 3, ToyEOS},
		},
		{
			Source: []int{ToySOS, 4, 7, 7, 3, 8, 6, 9, 5, ToyEOS},
			Target: []int{ToySOS, 5, 10, 4, 4, 7, 3, 8, ToyEOS},
		},
	}
}

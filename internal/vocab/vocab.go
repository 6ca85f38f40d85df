package vocab

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	internal "tinynmt/internal"
)

var (
	ErrLookup = errors.New("vocabulary lookup failed")
)

// Vocabulary is a bidirectional token <-> id mapping. New and Build put the
// special tokens first in the order <unk>, <pad>, <sos>, <eos>.
type Vocabulary struct {
	toID   map[string]int
	toWord []string
}

func specials() []string {
	return []string{internal.UnkToken, internal.PadToken, internal.SOSToken, internal.EOSToken}
}

// New creates a vocabulary holding only the special tokens.
func New() *Vocabulary {
	v := &Vocabulary{toID: make(map[string]int)}
	for _, s := range specials() {
		v.add(s)
	}
	return v
}

func (v *Vocabulary) add(tok string) int {
	if id, ok := v.toID[tok]; ok {
		return id
	}
	id := len(v.toWord)
	v.toID[tok] = id
	v.toWord = append(v.toWord, tok)
	return id
}

// Build creates a vocabulary from tokenized sentences. Tokens seen fewer than
// minFreq times are left out; the rest are ordered by descending frequency,
// ties broken alphabetically so the ids are reproducible.
func Build(sentences [][]string, minFreq int) *Vocabulary {
	counts := make(map[string]int)
	for _, s := range sentences {
		for _, tok := range s {
			counts[tok]++
		}
	}

	type tokFreq struct {
		tok  string
		freq int
	}
	var toks []tokFreq
	for tok, freq := range counts {
		if freq >= minFreq {
			toks = append(toks, tokFreq{tok, freq})
		}
	}
	sort.Slice(toks, func(i, j int) bool {
		if toks[i].freq != toks[j].freq {
			return toks[i].freq > toks[j].freq
		}
		return toks[i].tok < toks[j].tok
	})

	v := New()
	for _, tf := range toks {
		v.add(tf.tok)
	}
	return v
}

// FromTokens builds a vocabulary with the given tokens appended after the
// specials, in order.
func FromTokens(tokens ...string) *Vocabulary {
	v := New()
	for _, t := range tokens {
		v.add(t)
	}
	return v
}

func (v *Vocabulary) Size() int { return len(v.toWord) }

func (v *Vocabulary) UnkID() int { return v.toID[internal.UnkToken] }
func (v *Vocabulary) PadID() int { return v.toID[internal.PadToken] }
func (v *Vocabulary) SOSID() int { return v.toID[internal.SOSToken] }
func (v *Vocabulary) EOSID() int { return v.toID[internal.EOSToken] }

// ID returns the id of tok.
func (v *Vocabulary) ID(tok string) (int, error) {
	id, ok := v.toID[tok]
	if !ok {
		return 0, fmt.Errorf("%w: unknown token %q", ErrLookup, tok)
	}
	return id, nil
}

// Token returns the token for id.
func (v *Vocabulary) Token(id int) (string, error) {
	if id < 0 || id >= len(v.toWord) {
		return "", fmt.Errorf("%w: id %d outside [0, %d)", ErrLookup, id, len(v.toWord))
	}
	return v.toWord[id], nil
}

// Encode maps tokens to ids, unknown tokens become <unk>. The result is
// wrapped in <sos> ... <eos>.
func (v *Vocabulary) Encode(tokens []string) []int {
	ids := make([]int, 0, len(tokens)+2)
	ids = append(ids, v.SOSID())
	for _, tok := range tokens {
		if id, ok := v.toID[tok]; ok {
			ids = append(ids, id)
		} else {
			ids = append(ids, v.UnkID())
		}
	}
	return append(ids, v.EOSID())
}

// Decode joins the tokens for ids with single spaces. Every id is rendered,
// specials included.
func (v *Vocabulary) Decode(ids []int) (string, error) {
	words := make([]string, len(ids))
	for i, id := range ids {
		w, err := v.Token(id)
		if err != nil {
			return "", err
		}
		words[i] = w
	}
	return strings.Join(words, " "), nil
}

type vocabData struct {
	ToWord []string `json:"to_word"`
	Size   int      `json:"size"`
}

// Save writes the vocabulary as JSON.
func (v *Vocabulary) Save(path string) error {
	return internal.WriteFile(path, func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(vocabData{ToWord: v.toWord, Size: len(v.toWord)})
	})
}

// Load reads a vocabulary written by Save.
func Load(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var vd vocabData
	if err := json.NewDecoder(f).Decode(&vd); err != nil {
		return nil, fmt.Errorf("decode vocabulary %s: %w", path, err)
	}
	if vd.Size != len(vd.ToWord) {
		return nil, fmt.Errorf("vocabulary %s: size %d does not match %d tokens", path, vd.Size, len(vd.ToWord))
	}
	v, err := FromList(vd.ToWord)
	if err != nil {
		return nil, fmt.Errorf("vocabulary %s: %w", path, err)
	}
	return v, nil
}

// FromList builds a vocabulary where tokens[i] gets id i. Every special
// token must appear exactly once.
func FromList(tokens []string) (*Vocabulary, error) {
	v := &Vocabulary{toID: make(map[string]int, len(tokens))}
	for _, tok := range tokens {
		if _, dup := v.toID[tok]; dup {
			return nil, fmt.Errorf("duplicate token %q", tok)
		}
		v.add(tok)
	}
	for _, s := range specials() {
		if _, ok := v.toID[s]; !ok {
			return nil, fmt.Errorf("missing special token %s", s)
		}
	}
	return v, nil
}

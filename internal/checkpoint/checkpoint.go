package checkpoint

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	internal "tinynmt/internal"
	"tinynmt/internal/model"
	"tinynmt/internal/vocab"
)

const (
	paramsFile      = "model.gob"
	manifestFile    = "manifest.json"
	sourceVocabFile = "source_vocab.json"
	targetVocabFile = "target_vocab.json"
)

// Manifest records how a saved model was built.
type Manifest struct {
	Run       string       `json:"run"`
	Name      string       `json:"name"`
	Model     model.Config `json:"model"`
	Steps     int          `json:"steps"`
	Lowercase bool         `json:"lowercase"`
	NumParams int          `json:"num_params"`
	TrainedAt time.Time    `json:"trained_at"`
}

type tensorData struct {
	Shape  []int
	Values []float64
}

// SaveParams writes every parameter, keyed by name, with gob.
func SaveParams(path string, params []*model.Param) error {
	out := make(map[string]tensorData, len(params))
	for _, p := range params {
		out[p.Name()] = tensorData{Shape: []int(p.Shape()), Values: p.Data()}
	}
	return internal.WriteFile(path, func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(out)
	})
}

// LoadParams reads values written by SaveParams into params. Every
// parameter must be present with the same shape.
func LoadParams(path string, params []*model.Param) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var in map[string]tensorData
	if err := gob.NewDecoder(f).Decode(&in); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	for _, p := range params {
		td, ok := in[p.Name()]
		if !ok {
			return fmt.Errorf("%s: missing parameter %s", path, p.Name())
		}
		if !p.Shape().Eq(td.Shape) {
			return fmt.Errorf("%s: parameter %s has shape %v, want %v", path, p.Name(), td.Shape, p.Shape())
		}
		if err := p.Set(td.Values); err != nil {
			return err
		}
	}
	return nil
}

// Save writes a model directory: parameters, vocabularies and manifest.
func Save(dir string, m *model.Seq2Seq, src, trg *vocab.Vocabulary, manifest Manifest) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir %s: %w", dir, err)
	}
	if err := SaveParams(filepath.Join(dir, paramsFile), m.Params()); err != nil {
		return fmt.Errorf("save parameters: %w", err)
	}
	if err := src.Save(filepath.Join(dir, sourceVocabFile)); err != nil {
		return fmt.Errorf("save source vocabulary: %w", err)
	}
	if err := trg.Save(filepath.Join(dir, targetVocabFile)); err != nil {
		return fmt.Errorf("save target vocabulary: %w", err)
	}
	manifest.Model = m.Config()
	manifest.NumParams = m.NumParams()
	return saveJSON(filepath.Join(dir, manifestFile), manifest)
}

// Load rebuilds a model saved with Save.
func Load(dir string) (*model.Seq2Seq, *vocab.Vocabulary, *vocab.Vocabulary, *Manifest, error) {
	var manifest Manifest
	if err := loadJSON(filepath.Join(dir, manifestFile), &manifest); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load manifest: %w", err)
	}
	src, err := vocab.Load(filepath.Join(dir, sourceVocabFile))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	trg, err := vocab.Load(filepath.Join(dir, targetVocabFile))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	m, err := model.New(manifest.Model)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if err := LoadParams(filepath.Join(dir, paramsFile), m.Params()); err != nil {
		return nil, nil, nil, nil, err
	}
	return m, src, trg, &manifest, nil
}

func saveJSON(path string, data interface{}) error {
	return internal.WriteFile(path, func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	})
}

func loadJSON(path string, data interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewDecoder(f).Decode(data)
}

package engine

import (
	"fmt"

	"tinynmt/internal/vocab"
)

// RenderTranslation formats a source, reference and predicted sentence for a
// qualitative sample record.
func RenderTranslation(src, trg *vocab.Vocabulary, source, target, translation []int) (string, error) {
	s, err := src.Decode(source)
	if err != nil {
		return "", fmt.Errorf("render source: %w", err)
	}
	t, err := trg.Decode(target)
	if err != nil {
		return "", fmt.Errorf("render target: %w", err)
	}
	tr, err := trg.Decode(translation)
	if err != nil {
		return "", fmt.Errorf("render translation: %w", err)
	}
	return fmt.Sprintf("Source: \"%s\"\nTarget: \"%s\"\nTranslation: \"%s\"", s, t, tr), nil
}

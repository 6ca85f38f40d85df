package internal

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errClose = errors.New("close failed")

type closeFailer struct {
	bytes.Buffer
	closed bool
}

func (c *closeFailer) Close() error {
	c.closed = true
	return errClose
}

func TestEncodeAndCloseReportsCloseError(t *testing.T) {
	w := &closeFailer{}
	err := encodeAndClose(w, func(out io.Writer) error {
		_, err := out.Write([]byte("data"))
		return err
	})
	assert.ErrorIs(t, err, errClose)
	assert.True(t, w.closed)
	assert.Equal(t, "data", w.String())
}

func TestEncodeAndClosePrefersEncodeError(t *testing.T) {
	errEncode := errors.New("encode failed")
	w := &closeFailer{}
	err := encodeAndClose(w, func(io.Writer) error { return errEncode })
	assert.ErrorIs(t, err, errEncode)
	assert.True(t, w.closed)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, WriteFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "hello")
		return err
	}))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	assert.Error(t, WriteFile(filepath.Join(t.TempDir(), "missing", "out.txt"), func(io.Writer) error { return nil }))
}

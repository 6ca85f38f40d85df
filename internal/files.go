package internal

import (
	"io"
	"os"
)

// WriteFile creates path and hands it to encode. A failure to close the file
// is reported, so a flush that never reached disk is not taken for success.
func WriteFile(path string, encode func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	return encodeAndClose(f, encode)
}

func encodeAndClose(wc io.WriteCloser, encode func(io.Writer) error) error {
	if err := encode(wc); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}

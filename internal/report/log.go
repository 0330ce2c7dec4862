package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/robert-at-pretension-io/svpar/internal/extractor"
)

// Encoder resolves an encoding name ("utf-8" or "utf-16") to an encoder.
// UTF-16 is little endian with a byte order mark.
func Encoder(name string) (*encoding.Encoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8.NewEncoder(), nil
	case "utf-16", "utf16":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder(), nil
	}
	return nil, fmt.Errorf("unknown log encoding %q", name)
}

// WriteLog writes the Render report, without color, to path in the named encoding.
func WriteLog(path, enc string, files []extractor.FileFacts) error {
	encoder, err := Encoder(enc)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Render(&buf, files, Options{}); err != nil {
		return fmt.Errorf("rendering log: %w", err)
	}
	data, err := encoder.Bytes(buf.Bytes())
	if err != nil {
		return fmt.Errorf("encoding log: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing log file: %w", err)
	}
	return nil
}

// ReadLog reads a log file written by WriteLog in either encoding. A BOM
// selects UTF-16; otherwise the content is taken as UTF-8.
func ReadLog(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("reading log file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(transform.NewReader(f, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	if err != nil {
		return "", fmt.Errorf("decoding log file: %w", err)
	}
	return string(data), nil
}

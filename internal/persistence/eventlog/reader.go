package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
)

const maxLine = 4 << 20

// Read decodes every record in path in order and passes it to fn. A non-nil
// error from fn stops the scan and is returned.
func Read(path string, fn func(Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 256*1024), maxLine)
	line := 0
	for sc.Scan() {
		line++
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			return fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return sc.Err()
}

// ReadAll returns every record in path.
func ReadAll(path string) ([]Record, error) {
	var out []Record
	err := Read(path, func(r Record) error {
		out = append(out, r)
		return nil
	})
	return out, err
}

package crawl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// maxRecordSize bounds a single JSONL line. A megabyte comfortably fits
// any real page line record.
const maxRecordSize = 1 << 20

// JSONLWriter appends records to a newline-delimited JSON stream, one
// object per line. It is the persisted record format shared between the
// crawl and index stages.
type JSONLWriter struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSONLWriter wraps w for record writing.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	buffered := bufio.NewWriter(w)
	return &JSONLWriter{
		w:   buffered,
		enc: json.NewEncoder(buffered),
	}
}

// Write appends one record. json.Encoder terminates each object with a
// newline, which is exactly the JSONL framing.
func (jw *JSONLWriter) Write(record any) error {
	if err := jw.enc.Encode(record); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return nil
}

// Flush flushes buffered output to the underlying writer.
func (jw *JSONLWriter) Flush() error {
	return jw.w.Flush()
}

// ReadJSONL decodes every line of a newline-delimited JSON stream into
// records of type T. Blank lines are skipped.
func ReadJSONL[T any](r io.Reader) ([]T, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)

	var records []T
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var record T
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("decode record on line %d: %w", line, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return records, nil
}

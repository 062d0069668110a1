package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"liquidityEngine/internal/model"
)

const maxLineSize = 10 * 1024 * 1024

// JSONLFile appends JSON documents to a file, one per line.
type JSONLFile struct {
	path string
	mu   sync.Mutex
}

func NewJSONLFile(path string) *JSONLFile {
	return &JSONLFile{path: path}
}

// Truncate empties the file, creating it and its directory when missing.
func (f *JSONLFile) Truncate() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := f.open(os.O_TRUNC)
	if err != nil {
		return err
	}
	return file.Close()
}

// Append writes values as JSON lines in one flush.
func (f *JSONLFile) Append(values ...interface{}) error {
	if len(values) == 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := f.open(os.O_APPEND)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, value := range values {
		line, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal line: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write line: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

func (f *JSONLFile) open(mode int) (*os.File, error) {
	dir := filepath.Dir(f.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|mode, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	return file, nil
}

// JsonlStorage writes log records to a JSONL file.
type JsonlStorage struct {
	file *JSONLFile
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{file: NewJSONLFile(path)}
}

// PutLogBatch appends a batch of log records as JSON lines.
func (s *JsonlStorage) PutLogBatch(logs []model.LogRecord) error {
	values := make([]interface{}, len(logs))
	for i := range logs {
		values[i] = logs[i]
	}
	return s.file.Append(values...)
}

// LineReader yields the non-blank lines of a JSONL file.
type LineReader struct {
	file    *os.File
	scanner *bufio.Scanner
	line    int
}

func OpenLines(path string) (*LineReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &LineReader{file: file, scanner: scanner}, nil
}

// Next returns the next trimmed non-blank line. The slice is only valid until
// the following call.
func (r *LineReader) Next() ([]byte, bool) {
	for r.scanner.Scan() {
		r.line++
		if line := bytes.TrimSpace(r.scanner.Bytes()); len(line) > 0 {
			return line, true
		}
	}
	return nil, false
}

// Line is the 1-based number of the line last returned by Next.
func (r *LineReader) Line() int { return r.line }

func (r *LineReader) Err() error {
	if err := r.scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}
	return nil
}

func (r *LineReader) Close() error { return r.file.Close() }

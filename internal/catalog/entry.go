package catalog

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	ErrMalformedRow = errors.New("malformed catalog row")
)

// An Entry is one video in a channel catalog.
type Entry struct {
	Title string
	URL   string
}

// NewEntry strips characters from the title that would break the one-record-per-line, two-column format.
func NewEntry(title string, url string) Entry {
	title = strings.NewReplacer(",", "", "\r", " ", "\n", " ").Replace(title)
	return Entry{Title: strings.TrimSpace(title), URL: url}
}

// Appender appends entries to a catalog file. Every Append is flushed to the file before it returns, so a crash
// leaves a valid prefix of the catalog behind.
type Appender struct {
	f      *os.File
	w      *csv.Writer
	closed bool
}

// OpenAppender opens (creating if needed) the catalog at path for appending.
func OpenAppender(path string) (*Appender, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return &Appender{f: f, w: csv.NewWriter(f)}, nil
}

func (a *Appender) Append(e Entry) error {
	if err := a.w.Write([]string{e.Title, e.URL}); err != nil {
		return err
	}
	a.w.Flush()
	return a.w.Error()
}

// Close is safe to call more than once.
func (a *Appender) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	a.w.Flush()
	if err := a.w.Error(); err != nil {
		_ = a.f.Close()
		return err
	}
	return a.f.Close()
}

// Read parses every entry of a catalog, one per line. Lines written by Appender are CSV records; plain
// "title,url" lines are also accepted, split at the last comma since URLs never contain one. Blank lines are skipped
// and a line without a URL is an error.
func Read(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	var entries []Entry
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		entry, ok := parseLine(text)
		if !ok {
			return nil, fmt.Errorf("%w: line %d", ErrMalformedRow, line)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

const maxLineLength = 1024 * 1024

func parseLine(text string) (Entry, bool) {
	if strings.HasPrefix(text, `"`) {
		if row, err := csv.NewReader(strings.NewReader(text)).Read(); err == nil && len(row) >= 2 {
			return makeEntry(row[0], row[1])
		}
	}
	i := strings.LastIndex(text, ",")
	if i < 0 {
		return Entry{}, false
	}
	return makeEntry(text[:i], text[i+1:])
}

func makeEntry(title string, url string) (Entry, bool) {
	url = strings.TrimSpace(url)
	if url == "" {
		return Entry{}, false
	}
	return Entry{Title: title, URL: url}, true
}

// ReadFile is Read for a catalog on disk.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	entries, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

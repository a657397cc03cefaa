package sessionlog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"os"

	"github.com/grovetools/claude-sessions/pkg/models"
	"github.com/hpcloud/tail"
)

// maxLineSize bounds a single entry when reading back. Base64 grows data by a
// third, so this comfortably fits the largest capture chunk.
const maxLineSize = 4 * 1024 * 1024

// ReadEntries parses the entries of the log file at path, skipping the first
// offset entries. Pollers pass the count they have already seen.
func ReadEntries(path string, offset int) ([]models.LogEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	entries, err := Decode(file)
	if err != nil {
		return nil, err
	}
	if offset <= 0 {
		return entries, nil
	}
	if offset >= len(entries) {
		return nil, nil
	}
	return entries[offset:], nil
}

// Decode parses JSON Lines log entries from r. Blank lines are skipped.
func Decode(r io.Reader) ([]models.LogEntry, error) {
	var entries []models.LogEntry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var entry models.LogEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return entries, fmt.Errorf("line %d: %w", lineNo, err)
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}

// Follow streams entries appended to the log file at path, starting from the
// beginning, until ctx is cancelled or fn returns an error. Lines that do not
// parse are skipped.
func Follow(ctx context.Context, path string, fn func(models.LogEntry) error) error {
	t, err := tail.TailFile(path, tail.Config{
		Follow:   true,
		ReOpen:   true,
		Location: &tail.SeekInfo{Offset: 0, Whence: io.SeekStart},
		Logger:   stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		return err
	}
	defer t.Cleanup()
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				return line.Err
			}
			if line.Text == "" {
				continue
			}
			var entry models.LogEntry
			if err := json.Unmarshal([]byte(line.Text), &entry); err != nil {
				continue
			}
			if err := fn(entry); err != nil {
				return err
			}
		}
	}
}

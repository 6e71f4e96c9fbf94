package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

const pollInterval = 250 * time.Millisecond

// Filter reports whether a log line should be emitted.
type Filter func(line string) bool

// JobFilter keeps lines tagged with the given job id in console
// (job_id=7) or JSON ("job_id":7) form.
func JobFilter(jobID int64) Filter {
	id := strconv.FormatInt(jobID, 10)
	console := "job_id=" + id
	jsonKey := `"job_id":` + id
	return func(line string) bool {
		return hasField(line, console) || hasField(line, jsonKey)
	}
}

// hasField matches needle only when it is not a prefix of a longer number.
func hasField(line, needle string) bool {
	for rest := line; ; {
		idx := strings.Index(rest, needle)
		if idx < 0 {
			return false
		}
		end := idx + len(needle)
		if end == len(rest) || rest[end] < '0' || rest[end] > '9' {
			return true
		}
		rest = rest[end:]
	}
}

type TailOptions struct {
	// Offset is the byte position to resume from; negative reads the last
	// Limit lines.
	Offset int64
	Limit  int
	Follow bool
	// Wait bounds how long a follow read polls for new lines.
	Wait   time.Duration
	Filter Filter
}

type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads lines from path according to opts. A missing file yields an
// empty result so callers can start before the daemon has logged anything.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return TailResult{}, nil
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}
	if opts.Wait < 0 {
		opts.Wait = 0
	}

	var result TailResult
	if opts.Offset < 0 {
		result.Lines, result.Offset, err = readLast(path, opts.Limit, opts.Filter)
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			// truncated or rotated
			offset = 0
		}
		result.Lines, result.Offset, err = readFrom(path, offset, opts.Filter)
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, err
	}
	if opts.Follow && opts.Wait > 0 && len(result.Lines) == 0 {
		return waitForLines(ctx, path, result.Offset, opts.Wait, opts.Filter)
	}
	return result, nil
}

func openAt(path string, offset int64) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek log file: %w", err)
	}
	return file, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}

// readLast keeps a ring of the last limit matching lines.
func readLast(path string, limit int, filter Filter) ([]string, int64, error) {
	file, err := openAt(path, 0)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	ring := make([]string, limit)
	count, next := 0, 0
	var consumed int64
	scanner := newScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		consumed += int64(len(scanner.Bytes())) + 1
		if filter != nil && !filter(line) {
			continue
		}
		ring[next] = line
		next = (next + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	lines := make([]string, count)
	start := 0
	if count == limit {
		start = next
	}
	for i := range lines {
		lines[i] = ring[(start+i)%limit]
	}
	return lines, endOffset(file, consumed), nil
}

func readFrom(path string, offset int64, filter Filter) ([]string, int64, error) {
	file, err := openAt(path, offset)
	if err != nil {
		return nil, offset, err
	}
	defer file.Close()

	var lines []string
	consumed := offset
	scanner := newScanner(file)
	for scanner.Scan() {
		consumed += int64(len(scanner.Bytes())) + 1
		if filter != nil && !filter(scanner.Text()) {
			continue
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, offset, fmt.Errorf("read log file: %w", err)
	}
	return lines, endOffset(file, consumed), nil
}

// endOffset clamps the scanned byte count to the file size; the last line
// may lack a trailing newline.
func endOffset(file *os.File, consumed int64) int64 {
	info, err := file.Stat()
	if err != nil || consumed < info.Size() {
		return consumed
	}
	return info.Size()
}

func waitForLines(ctx context.Context, path string, offset int64, wait time.Duration, filter Filter) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	result := TailResult{Offset: offset}
	for {
		lines, next, err := readFrom(path, result.Offset, filter)
		if err != nil {
			return result, err
		}
		result.Offset = next
		if len(lines) > 0 {
			result.Lines = lines
			return result, nil
		}
		if time.Now().After(deadline) {
			return result, nil
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}

package store

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Store is the append-only CSV history file.
type Store struct {
	path string
	loc  *time.Location
}

func New(path string, loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{path: path, loc: loc}
}

func (s *Store) Path() string {
	return s.path
}

// Append writes obs as one row, prefixed by the header when the file is new.
// The whole payload goes out in a single write so readers never see a
// partially interleaved record. A torn trailing line left by an interrupted
// append is cut off first, matching what Load skips.
func (s *Store) Append(obs Observation) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat store: %w", err)
	}

	size, err := dropTornTail(f, info.Size())
	if err != nil {
		return fmt.Errorf("failed to repair store: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if size == 0 {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("failed to encode header: %w", err)
		}
	}
	row := []string{
		obs.Timestamp.In(s.loc).Format(TimeLayout),
		strconv.Itoa(obs.Players),
		strconv.Itoa(obs.Servers),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to encode observation: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to encode observation: %w", err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to append observation: %w", err)
	}
	return f.Close()
}

// Load reads every observation in file order. A missing file yields an
// empty slice and no error.
func (s *Store) Load() ([]Observation, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Observation{}, nil
		}
		return nil, fmt.Errorf("failed to read store: %w", err)
	}

	// A collector may be mid-append; ignore a trailing line without its newline.
	if i := bytes.LastIndexByte(data, '\n'); i != len(data)-1 {
		data = data[:i+1]
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	obs := make([]Observation, 0, bytes.Count(data, []byte{'\n'}))
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse store: %w", err)
		}
		if first {
			first = false
			if isHeader(rec) {
				continue
			}
		}

		line, _ := r.FieldPos(0)
		o, err := s.parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("failed to parse line %d: %w", line, err)
		}
		obs = append(obs, o)
	}

	return obs, nil
}

func (s *Store) parseRecord(rec []string) (Observation, error) {
	if len(rec) < 3 {
		return Observation{}, fmt.Errorf("expected 3 fields, got %d", len(rec))
	}
	ts, err := time.ParseInLocation(TimeLayout, rec[0], s.loc)
	if err != nil {
		return Observation{}, err
	}
	players, err := strconv.Atoi(rec[1])
	if err != nil {
		return Observation{}, err
	}
	servers, err := strconv.Atoi(rec[2])
	if err != nil {
		return Observation{}, err
	}
	return Observation{Timestamp: ts, Players: players, Servers: servers}, nil
}

func (s *Store) stat() (size int64, modTime time.Time, err error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return -1, time.Time{}, nil
		}
		return 0, time.Time{}, err
	}
	return info.Size(), info.ModTime(), nil
}

// dropTornTail truncates f back to just after its last newline and returns
// the resulting size.
func dropTornTail(f *os.File, size int64) (int64, error) {
	if size == 0 {
		return 0, nil
	}

	var last [1]byte
	if _, err := f.ReadAt(last[:], size-1); err != nil {
		return 0, err
	}
	if last[0] == '\n' {
		return size, nil
	}

	buf := make([]byte, 4<<10)
	end := size
	keep := int64(0)
	for end > 0 {
		start := max(end-int64(len(buf)), 0)
		chunk := buf[:end-start]
		if _, err := f.ReadAt(chunk, start); err != nil {
			return 0, err
		}
		if i := bytes.LastIndexByte(chunk, '\n'); i >= 0 {
			keep = start + int64(i) + 1
			break
		}
		end = start
	}

	slog.Warn("Dropping incomplete trailing line from store", "path", f.Name(), "bytes", size-keep)
	if err := f.Truncate(keep); err != nil {
		return 0, err
	}
	return keep, nil
}

func isHeader(rec []string) bool {
	if len(rec) != len(header) {
		return false
	}
	for i := range header {
		if rec[i] != header[i] {
			return false
		}
	}
	return true
}

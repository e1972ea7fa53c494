// Package file stores the booking snapshot and journal on the local filesystem.
package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/example/reservation-engine/internal/persistence"
)

// maxJournalLine bounds a single journal line.
const maxJournalLine = 4 << 20

// Options configures a Storage.
type Options struct {
	SnapshotPath string
	JournalPath  string
	Codec        Codec
	Logger       *slog.Logger
}

// Storage implements persistence.Storage with a snapshot file and an
// append-only JSON-lines journal.
type Storage struct {
	mu           sync.Mutex
	snapshotPath string
	journalPath  string
	codec        Codec
	logger       *slog.Logger
}

var _ persistence.Storage = (*Storage)(nil)

// New validates opts and creates parent directories for both paths.
func New(opts Options) (*Storage, error) {
	if opts.SnapshotPath == "" {
		return nil, errors.New("file: snapshot path is required")
	}
	if opts.JournalPath == "" {
		opts.JournalPath = opts.SnapshotPath + ".journal"
	}
	if opts.Codec == nil {
		opts.Codec = JSONCodec{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	for _, p := range []string{opts.SnapshotPath, opts.JournalPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("file: create directory for %s: %w", p, err)
		}
	}
	return &Storage{
		snapshotPath: opts.SnapshotPath,
		journalPath:  opts.JournalPath,
		codec:        opts.Codec,
		logger:       opts.Logger.With("component", "file_storage"),
	}, nil
}

// SaveSnapshot writes the snapshot to "<path>.tmp" and renames it over the
// previous snapshot, so readers see either the old or the new file.
func (s *Storage) SaveSnapshot(_ context.Context, snapshot persistence.Snapshot) error {
	data, err := s.codec.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("file: encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.snapshotPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("file: open %s: %w", tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("file: write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("file: sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("file: close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return fmt.Errorf("file: rename snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads the snapshot. A file that is missing or cannot be decoded
// loads as empty and the full journal replays over it.
func (s *Storage) LoadSnapshot(ctx context.Context) (persistence.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	empty := persistence.Snapshot{Version: persistence.SnapshotVersion}
	data, err := os.ReadFile(s.snapshotPath)
	if errors.Is(err, fs.ErrNotExist) {
		return empty, nil
	}
	if err != nil {
		s.logger.WarnContext(ctx, "snapshot unreadable, loading empty", "path", s.snapshotPath, "error", err)
		return empty, nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return empty, nil
	}

	var snap persistence.Snapshot
	if err := s.codec.Unmarshal(data, &snap); err != nil {
		s.logger.WarnContext(ctx, "snapshot undecodable, loading empty",
			"path", s.snapshotPath, "codec", s.codec.Name(), "error", err)
		return empty, nil
	}
	return snap, nil
}

// AppendJournal writes entry as one JSON line and syncs the file.
func (s *Storage) AppendJournal(_ context.Context, entry persistence.JournalEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("file: encode journal entry: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.journalPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("file: open journal: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("file: append journal: %w", err)
	}
	return f.Sync()
}

// LoadJournal returns every decodable journal entry. Lines that do not parse
// are logged and skipped.
func (s *Storage) LoadJournal(ctx context.Context) ([]persistence.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.journalPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file: open journal: %w", err)
	}
	defer f.Close()

	var entries []persistence.JournalEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJournalLine)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var entry persistence.JournalEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			s.logger.WarnContext(ctx, "skipping malformed journal line", "line", lineNo, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("file: scan journal: %w", err)
	}
	return entries, nil
}

// Close is a no-op; files are opened per operation.
func (s *Storage) Close() error {
	return nil
}

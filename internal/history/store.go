package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mouthwrite/internal/domain"
)

const (
	// MaxRecords caps the persisted history.
	MaxRecords = 500
	TimeLayout = "2006-01-02 15:04:05"
)

var ErrEmpty = errors.New("history is empty")

// Store keeps dictation records newest first in a JSON file.
type Store struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	records []domain.HistoryRecord
}

func Open(path string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		path:   path,
		logger: logger.With("component", "history"),
		now:    time.Now,
	}
	s.Reload()
	return s, nil
}

// Reload replaces the in-memory records with the file contents. Unreadable
// files leave the store empty.
func (s *Store) Reload() {
	records := s.load()
	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
}

func (s *Store) load() []domain.HistoryRecord {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to read history", "path", s.path, "err", err)
		}
		return nil
	}
	var records []domain.HistoryRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		s.logger.Warn("failed to parse history", "path", s.path, "err", err)
		return nil
	}
	if len(records) > MaxRecords {
		records = records[:MaxRecords]
	}
	return records
}

// Add prepends a record and persists the list.
func (s *Store) Add(raw, optimized, translated string) error {
	record := domain.HistoryRecord{
		ID:             uuid.NewString(),
		Time:           s.now().Format(TimeLayout),
		ASRText:        raw,
		OptimizedText:  optimized,
		TranslatedText: translated,
	}

	s.mu.Lock()
	s.records = append([]domain.HistoryRecord{record}, s.records...)
	if len(s.records) > MaxRecords {
		s.records = s.records[:MaxRecords]
	}
	snapshot := append([]domain.HistoryRecord(nil), s.records...)
	s.mu.Unlock()

	return s.save(snapshot)
}

// UpdateLastTranslation sets the translation on the newest record.
func (s *Store) UpdateLastTranslation(text string) error {
	s.mu.Lock()
	if len(s.records) == 0 {
		s.mu.Unlock()
		return ErrEmpty
	}
	s.records[0].TranslatedText = text
	snapshot := append([]domain.HistoryRecord(nil), s.records...)
	s.mu.Unlock()

	return s.save(snapshot)
}

// Recent returns up to n records, newest first.
func (s *Store) Recent(n int) []domain.HistoryRecord {
	if n <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.records) {
		n = len(s.records)
	}
	return append([]domain.HistoryRecord(nil), s.records[:n]...)
}

func (s *Store) All() []domain.HistoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.HistoryRecord(nil), s.records...)
}

func (s *Store) Clear() error {
	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()
	return s.save([]domain.HistoryRecord{})
}

func (s *Store) save(records []domain.HistoryRecord) error {
	if records == nil {
		records = []domain.HistoryRecord{}
	}
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}

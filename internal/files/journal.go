// Package files keeps the local scan journal of the desk machine.
package files

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"asistenciaqr/internal/utils"
)

const (
	journalFileName = "scan_journal.json"
	// MaxJournalEntries bounds the journal; the oldest entries go first.
	MaxJournalEntries = 5000
)

// JournalEntry is one reported scan as seen by this desk.
type JournalEntry struct {
	ID          string    `json:"id"`
	Code        string    `json:"codigo_id"`
	Status      string    `json:"status"`
	StudentName string    `json:"student_name,omitempty"`
	Fecha       string    `json:"fecha"`
	Turno       string    `json:"turno"`
	Station     string    `json:"station"`
	Error       string    `json:"error,omitempty"`
	At          time.Time `json:"at"`
}

// ScanJournal is an append-only JSON file of the scans reported from this
// machine, kept so staff can see what the desk sent even when the backend
// was unreachable.
type ScanJournal struct {
	filePath string
	mu       sync.RWMutex
	entries  []JournalEntry
}

// OpenJournal loads the journal at path, or at the data directory when
// path is empty. A missing file is an empty journal.
func OpenJournal(path string) (*ScanJournal, error) {
	if path == "" {
		path = filepath.Join(utils.GetDataDir(), journalFileName)
	}
	j := &ScanJournal{filePath: path}
	if err := j.load(); err != nil {
		return nil, err
	}
	return j, nil
}

// Path returns the journal file location.
func (j *ScanJournal) Path() string { return j.filePath }

// Append stores e, assigning its id and, when unset, its time.
func (j *ScanJournal) Append(e JournalEntry) (JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	e.ID = uuid.NewString()
	if e.At.IsZero() {
		e.At = time.Now()
	}
	j.entries = append(j.entries, e)
	if over := len(j.entries) - MaxJournalEntries; over > 0 {
		j.entries = append([]JournalEntry(nil), j.entries[over:]...)
	}
	return e, j.save()
}

// Recent returns up to n entries, newest first. n <= 0 returns all.
func (j *ScanJournal) Recent(n int) []JournalEntry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if n <= 0 || n > len(j.entries) {
		n = len(j.entries)
	}
	out := make([]JournalEntry, 0, n)
	for i := len(j.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, j.entries[i])
	}
	return out
}

// ByFilter returns the entries of one date and shift in scan order.
func (j *ScanJournal) ByFilter(fecha, turno string) []JournalEntry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var out []JournalEntry
	for _, e := range j.entries {
		if e.Fecha == fecha && (turno == "" || e.Turno == turno) {
			out = append(out, e)
		}
	}
	return out
}

// Clear removes every entry and the file.
func (j *ScanJournal) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = nil
	if err := os.Remove(j.filePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// save writes the journal through a temp file so a crash never leaves a
// truncated file behind.
func (j *ScanJournal) save() error {
	data, err := json.MarshalIndent(j.entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(j.filePath), 0o755); err != nil {
		return errors.Wrap(err, "create journal dir")
	}
	tmp := j.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "write journal")
	}
	return os.Rename(tmp, j.filePath)
}

// load loads the entries from the file
func (j *ScanJournal) load() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	file, err := os.Open(j.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, that's fine
		}
		return err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&j.entries); err != nil {
		return errors.Wrapf(err, "decode journal %s", j.filePath)
	}
	return nil
}

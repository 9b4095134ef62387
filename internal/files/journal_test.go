package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestJournalAppendAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.json")
	j, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("OpenJournal() failed: %v", err)
	}
	at := time.Date(2024, 3, 11, 7, 42, 5, 0, time.UTC)
	first, err := j.Append(JournalEntry{Code: "EST-001", Status: "success", Fecha: "2024-03-11", Turno: "manana", At: at})
	if err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	if first.ID == "" || !first.At.Equal(at) {
		t.Fatalf("unexpected entry %+v", first)
	}
	if _, err := j.Append(JournalEntry{Code: "XYZ", Status: "not_found", Fecha: "2024-03-11", Turno: "tarde"}); err != nil {
		t.Fatal(err)
	}

	again, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	recent := again.Recent(0)
	if len(recent) != 2 || recent[0].Code != "XYZ" || recent[1].ID != first.ID {
		t.Fatalf("expected newest first after reload, got %+v", recent)
	}
	if got := again.Recent(1); len(got) != 1 || got[0].Code != "XYZ" {
		t.Fatalf("Recent(1) = %+v", got)
	}
	if got := again.ByFilter("2024-03-11", "manana"); len(got) != 1 || got[0].Code != "EST-001" {
		t.Fatalf("ByFilter() = %+v", got)
	}
	if got := again.ByFilter("2024-03-11", ""); len(got) != 2 {
		t.Fatalf("empty turno matches both shifts, got %+v", got)
	}
}

func TestJournalIsBounded(t *testing.T) {
	j, err := OpenJournal(filepath.Join(t.TempDir(), "journal.json"))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < MaxJournalEntries+3; i++ {
		j.entries = append(j.entries, JournalEntry{Code: "old"})
	}
	if _, err := j.Append(JournalEntry{Code: "new"}); err != nil {
		t.Fatal(err)
	}
	all := j.Recent(0)
	if len(all) != MaxJournalEntries || all[0].Code != "new" {
		t.Fatalf("expected %d entries ending in new, got %d", MaxJournalEntries, len(all))
	}
}

func TestJournalClear(t *testing.T) {
	j, err := OpenJournal(filepath.Join(t.TempDir(), "journal.json"))
	if err != nil {
		t.Fatal(err)
	}
	j.Append(JournalEntry{Code: "EST-001"})
	if err := j.Clear(); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	if len(j.Recent(0)) != 0 {
		t.Fatal("journal not empty")
	}
	if _, err := os.Stat(j.Path()); !os.IsNotExist(err) {
		t.Fatalf("journal file still there: %v", err)
	}
	if err := j.Clear(); err != nil {
		t.Fatalf("clearing twice must succeed: %v", err)
	}
}

func TestOpenJournalRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenJournal(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestOpenJournalDefaultsToDataDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	j, err := OpenJournal("")
	if err != nil {
		t.Fatalf("OpenJournal() failed: %v", err)
	}
	want := filepath.Join(home, ".asistenciaqr", journalFileName)
	if j.Path() != want {
		t.Fatalf("expected journal at %s, got %s", want, j.Path())
	}
	if _, err := j.Append(JournalEntry{Code: "EST-001", Status: "success", Fecha: "2024-03-11", Turno: "manana"}); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("journal file not written: %v", err)
	}
}

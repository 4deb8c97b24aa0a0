package index

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	ix := NewInverted()
	ix.Insert("1", vec("pony", "rid"))
	ix.Insert("2", vec("pony"))
	ix.Insert("3", vec("fast", "hors"))

	path := filepath.Join(t.TempDir(), "index.qsv")
	if err := Save(ix, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !reflect.DeepEqual(loaded.Entries(), ix.Entries()) {
		t.Errorf("loaded index differs from saved index")
	}
	if loaded.DocCount() != ix.DocCount() {
		t.Errorf("DocCount after load = %d, want %d", loaded.DocCount(), ix.DocCount())
	}

	// The loaded index must support removal, which requires the
	// per-document vectors to have been reconstructed.
	if err := loaded.Remove("1"); err != nil {
		t.Fatalf("Remove on loaded index: %v", err)
	}
	if containsDoc(loaded.Lookup("rid"), "1") {
		t.Error("removed document still referenced after load")
	}
}

func TestLoadRejectsCorruptSnapshot(t *testing.T) {
	ix := NewInverted()
	ix.Insert("1", vec("pony"))
	path := filepath.Join(t.TempDir(), "index.qsv")
	if err := Save(ix, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Flip a byte inside the dictionary region.
	data[len(data)-12] ^= 0xff
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load accepted a corrupt snapshot")
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.qsv")
	if err := os.WriteFile(path, make([]byte, 128), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load accepted a file with zero magic")
	}
}

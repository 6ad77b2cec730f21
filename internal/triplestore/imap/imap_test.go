package imap_test

import (
	"errors"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/FAU-CDI/skosd/internal/triplestore/imap"
)

func TestMemory(t *testing.T) {
	t.Parallel()

	mp := imap.MakeMemory[string, int](0)
	mapTest(t, &mp, 1000)
}

func TestDiskStorage(t *testing.T) {
	t.Parallel()

	ds, err := imap.OpenDiskStorage[string, int](filepath.Join(t.TempDir(), "test.leveldb"), true)
	if err != nil {
		t.Fatal(err)
	}
	mapTest(t, ds, 100)
}

func TestDiskStorage_Reopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reopen.leveldb")

	ds, err := imap.OpenDiskStorage[string, int](path, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := ds.Set("answer", 42); err != nil {
		t.Fatal(err)
	}
	if err := ds.Close(); err != nil {
		t.Fatal(err)
	}

	ds, err = imap.OpenDiskStorage[string, int](path, false)
	if err != nil {
		t.Fatal(err)
	}
	if got, ok, err := ds.Get("answer"); err != nil || !ok || got != 42 {
		t.Errorf("Get() after reopen = %d, %v, %v", got, ok, err)
	}
	if err := ds.Close(); err != nil {
		t.Fatal(err)
	}

	ds, err = imap.OpenDiskStorage[string, int](path, true)
	if err != nil {
		t.Fatal(err)
	}
	defer ds.Close()
	if ok, err := ds.Has("answer"); err != nil || ok {
		t.Errorf("Has() after wipe = %v, %v", ok, err)
	}
}

var errStop = errors.New("stop")

// mapTest performs a test for a given HashMap.
func mapTest(t *testing.T, mp imap.HashMap[string, int], n int) {
	t.Helper()

	defer func() {
		if err := mp.Close(); err != nil {
			t.Fatal(err)
		}
	}()

	for i := 0; i < n; i++ {
		if err := mp.Set(strconv.Itoa(i), i); err != nil {
			t.Fatalf("Set() returned error %s", err)
		}
	}

	for i := 0; i < n; i++ {
		got, ok, err := mp.Get(strconv.Itoa(i))
		if err != nil || !ok || got != i {
			t.Errorf("Get(%d) = %d, %v, %v", i, got, ok, err)
		}
	}

	// delete all the odd keys
	for i := 1; i < n; i += 2 {
		if err := mp.Delete(strconv.Itoa(i)); err != nil {
			t.Fatalf("Delete() returned error %s", err)
		}
	}

	count, err := mp.Count()
	if err != nil {
		t.Fatal(err)
	}
	if want := uint64((n + 1) / 2); count != want {
		t.Errorf("Count() = %d, want %d", count, want)
	}

	sum := 0
	if err := mp.Iterate(func(key string, value int) error {
		if key != strconv.Itoa(value) {
			t.Errorf("Iterate() got key %q for value %d", key, value)
		}
		sum += value
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	want := 0
	for i := 0; i < n; i += 2 {
		want += i
	}
	if sum != want {
		t.Errorf("Iterate() visited sum %d, want %d", sum, want)
	}

	if err := mp.Iterate(func(string, int) error { return errStop }); !errors.Is(err, errStop) {
		t.Errorf("Iterate() did not return callback error, got %v", err)
	}

	if err := mp.Compact(); err != nil {
		t.Errorf("Compact() returned error %s", err)
	}
}

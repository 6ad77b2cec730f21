package imap

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

//spellchecker:words goleveldb leveldb

// OpenDiskStorage opens a leveldb database at path, creating it if it does not exist.
// When wipe is set, any existing database at path is removed first.
//
// Keys and values are marshaled as json, unless the caller replaces the Marshal and Unmarshal functions.
func OpenDiskStorage[Key comparable, Value any](path string, wipe bool) (*DiskStorage[Key, Value], error) {
	if wipe {
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("failed to cleanup path: %w", err)
		}
	}

	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database file: %w", err)
	}

	storage := &DiskStorage[Key, Value]{
		DB: db,

		MarshalKey: func(key Key) ([]byte, error) {
			return json.Marshal(key)
		},
		UnmarshalKey: func(dest *Key, src []byte) error {
			return json.Unmarshal(src, dest)
		},
		MarshalValue: func(value Value) ([]byte, error) {
			return json.Marshal(value)
		},
		UnmarshalValue: func(dest *Value, src []byte) error {
			return json.Unmarshal(src, dest)
		},
	}
	return storage, nil
}

// DiskStorage implements HashMap on top of a leveldb database.
type DiskStorage[Key comparable, Value any] struct {
	DB *leveldb.DB

	MarshalKey     func(key Key) ([]byte, error)
	UnmarshalKey   func(dest *Key, src []byte) error
	MarshalValue   func(value Value) ([]byte, error)
	UnmarshalValue func(dest *Value, src []byte) error
}

var _ HashMap[string, int] = (*DiskStorage[string, int])(nil)

var errDiskClosed = errors.New("disk storage is closed")

func (ds *DiskStorage[Key, Value]) Set(key Key, value Value) error {
	if ds.DB == nil {
		return errDiskClosed
	}

	keyB, err := ds.MarshalKey(key)
	if err != nil {
		return fmt.Errorf("failed to marshal key: %w", err)
	}
	valueB, err := ds.MarshalValue(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	if err := ds.DB.Put(keyB, valueB, nil); err != nil {
		return fmt.Errorf("failed to set value for key: %w", err)
	}
	return nil
}

// Get returns the given value if it exists.
func (ds *DiskStorage[Key, Value]) Get(key Key) (v Value, ok bool, err error) {
	if ds.DB == nil {
		return v, false, errDiskClosed
	}

	keyB, err := ds.MarshalKey(key)
	if err != nil {
		return v, false, fmt.Errorf("failed to marshal key: %w", err)
	}

	valueB, err := ds.DB.Get(keyB, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return v, false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("failed to get key from database: %w", err)
	}

	if err := ds.UnmarshalValue(&v, valueB); err != nil {
		return v, false, fmt.Errorf("failed to unmarshal value: %w", err)
	}

	return v, true, nil
}

func (ds *DiskStorage[Key, Value]) Has(key Key) (bool, error) {
	if ds.DB == nil {
		return false, errDiskClosed
	}

	keyB, err := ds.MarshalKey(key)
	if err != nil {
		return false, fmt.Errorf("failed to marshal key: %w", err)
	}

	ok, err := ds.DB.Has(keyB, nil)
	if err != nil {
		return false, fmt.Errorf("failed to check database for key: %w", err)
	}
	return ok, nil
}

// Delete deletes the given key from this storage.
func (ds *DiskStorage[Key, Value]) Delete(key Key) error {
	if ds.DB == nil {
		return errDiskClosed
	}

	keyB, err := ds.MarshalKey(key)
	if err != nil {
		return fmt.Errorf("failed to marshal key: %w", err)
	}

	if err := ds.DB.Delete(keyB, nil); err != nil {
		return fmt.Errorf("failed to delete key from disk: %w", err)
	}

	return nil
}

// Iterate calls f for all entries in Storage.
// Entries are visited in the order of their marshaled keys.
func (ds *DiskStorage[Key, Value]) Iterate(f func(Key, Value) error) error {
	if ds.DB == nil {
		return errDiskClosed
	}

	it := ds.DB.NewIterator(nil, nil)
	defer it.Release()

	for it.Next() {
		var key Key
		if err := ds.UnmarshalKey(&key, it.Key()); err != nil {
			return fmt.Errorf("failed to unmarshal key: %w", err)
		}
		var value Value
		if err := ds.UnmarshalValue(&value, it.Value()); err != nil {
			return fmt.Errorf("failed to unmarshal value: %w", err)
		}
		if err := f(key, value); err != nil {
			return err
		}
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("failed to iterate database: %w", err)
	}
	return nil
}

func (ds *DiskStorage[Key, Value]) Compact() error {
	if ds.DB == nil {
		return errDiskClosed
	}
	if err := ds.DB.CompactRange(util.Range{}); err != nil {
		return fmt.Errorf("failed to compact database: %w", err)
	}
	return nil
}

func (ds *DiskStorage[Key, Value]) Close() error {
	var err error

	if ds.DB != nil {
		err = ds.DB.Close()
	}
	ds.DB = nil
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// Count returns the number of objects in this DiskStorage.
func (ds *DiskStorage[Key, Value]) Count() (count uint64, err error) {
	if ds.DB == nil {
		return 0, errDiskClosed
	}

	it := ds.DB.NewIterator(nil, nil)
	defer it.Release()

	for it.Next() {
		count++
	}
	if err := it.Error(); err != nil {
		return 0, fmt.Errorf("failed to iterate database: %w", err)
	}
	return count, nil
}

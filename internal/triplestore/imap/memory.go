package imap

import (
	"errors"
	"runtime"
)

// Memory is a HashMap held in main memory.
// The zero value is not ready for use, create one using MakeMemory.
type Memory[Key comparable, Value any] struct {
	mp map[Key]Value
}

var _ HashMap[string, int] = (*Memory[string, int])(nil)

// MakeMemory makes a new memory instance.
func MakeMemory[Key comparable, Value any](size int) Memory[Key, Value] {
	return Memory[Key, Value]{
		mp: make(map[Key]Value, size),
	}
}

var errMemoryClosed = errors.New("memory store is closed")

// Compact is a no-op.
func (*Memory[Key, Value]) Compact() error {
	return nil
}

func (ims *Memory[Key, Value]) Set(key Key, value Value) error {
	if ims.mp == nil {
		return errMemoryClosed
	}

	ims.mp[key] = value
	return nil
}

// Get returns the given value if it exists.
func (ims *Memory[Key, Value]) Get(key Key) (Value, bool, error) {
	value, ok := ims.mp[key]
	return value, ok, nil
}

func (ims *Memory[Key, Value]) Has(key Key) (bool, error) {
	_, ok := ims.mp[key]
	return ok, nil
}

// Delete deletes the given key from this storage.
func (ims *Memory[Key, Value]) Delete(key Key) error {
	delete(ims.mp, key)
	return nil
}

// Iterate calls f for all entries in Storage.
// there is no guarantee on order.
func (ims *Memory[Key, Value]) Iterate(f func(Key, Value) error) error {
	for key, value := range ims.mp {
		if err := f(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Close closes this store, deleting all values.
func (ims *Memory[Key, Value]) Close() error {
	ims.mp = nil
	runtime.GC() // re-claim all the memory if needed
	return nil
}

func (ims *Memory[Key, Value]) Count() (uint64, error) {
	return uint64(len(ims.mp)), nil
}

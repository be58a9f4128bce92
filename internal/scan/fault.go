package scan

import "fmt"

// StorageFault reports a per-index state check that failed because the
// underlying index storage is unreadable or corrupted. It is recovered
// locally: the engine logs it, requests a rebuild of the faulting index,
// and continues evaluating the file's remaining indexes.
type StorageFault struct {
	Index IndexID
	Err   error
}

// NewStorageFault wraps err as a storage fault attributed to index id.
func NewStorageFault(id IndexID, err error) *StorageFault {
	return &StorageFault{Index: id, Err: err}
}

func (e *StorageFault) Error() string {
	return fmt.Sprintf("index %s: storage fault: %v", e.Index, e.Err)
}

// Unwrap returns the underlying storage error.
func (e *StorageFault) Unwrap() error {
	return e.Err
}

package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveBatch(t *testing.T, d *Debouncer) []FileEvent {
	t.Helper()
	select {
	case batch := <-d.Output():
		return batch
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounced batch")
		return nil
	}
}

func TestDebouncer_EmitsAfterWindow(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "a.go", Operation: OpModify})

	batch := receiveBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, "a.go", batch[0].Path)
	assert.Equal(t, OpModify, batch[0].Operation)
}

func TestDebouncer_CreateThenModifyStaysCreate(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "a.go", Operation: OpCreate})
	d.Add(FileEvent{Path: "a.go", Operation: OpModify})

	batch := receiveBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpCreate, batch[0].Operation)
}

func TestDebouncer_CreateThenDeleteCancels(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "ghost.go", Operation: OpCreate})
	d.Add(FileEvent{Path: "ghost.go", Operation: OpDelete})
	d.Add(FileEvent{Path: "real.go", Operation: OpModify})

	batch := receiveBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, "real.go", batch[0].Path)
}

func TestDebouncer_ModifyThenDeleteKeepsDelete(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "a.go", Operation: OpModify})
	d.Add(FileEvent{Path: "a.go", Operation: OpDelete})

	batch := receiveBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpDelete, batch[0].Operation)
}

func TestDebouncer_DeleteThenCreateBecomesModify(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "a.go", Operation: OpDelete})
	d.Add(FileEvent{Path: "a.go", Operation: OpCreate})

	batch := receiveBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpModify, batch[0].Operation)
}

func TestDebouncer_SeparatePathsStaySeparate(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "a.go", Operation: OpModify})
	d.Add(FileEvent{Path: "b.go", Operation: OpCreate})

	batch := receiveBatch(t, d)
	assert.Len(t, batch, 2)
}

func TestDebouncer_AddAfterStopIsNoop(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	d.Stop()
	d.Add(FileEvent{Path: "a.go", Operation: OpModify})

	_, open := <-d.Output()
	assert.False(t, open, "output must be closed after Stop")
}

func TestOperation_String(t *testing.T) {
	assert.Equal(t, "CREATE", OpCreate.String())
	assert.Equal(t, "GITIGNORE_CHANGE", OpGitignoreChange.String())
	assert.Equal(t, "UNKNOWN", Operation(99).String())
}

//go:build !windows

package publication

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestCreate_MakesFileOfExpectedSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publication.dat")

	r, err := Create(path, 8)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer func() { _ = r.Close() }()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat publication file: %v", err)
	}

	wantSize := int64(headerSize + 8*8)
	if info.Size() != wantSize {
		t.Errorf("file size = %d, want %d", info.Size(), wantSize)
	}

	if r.NumParams() != 8 {
		t.Errorf("NumParams() = %d, want 8", r.NumParams())
	}
}

func TestCreate_RecreatedRegionStartsZeroed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publication.dat")

	r1, err := Create(path, 4)
	if err != nil {
		t.Fatalf("first Create() error = %v", err)
	}
	if err := r1.SetState(5, 1, 2); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	if err := r1.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Recreate the region; since the file was unlinked on Close, this
	// exercises the fresh-create path rather than truncate-in-place, but
	// both must leave state zeroed.
	r2, err := Create(path, 4)
	if err != nil {
		t.Fatalf("second Create() error = %v", err)
	}
	defer func() { _ = r2.Close() }()

	state, mode, leg, err := r2.GetState()
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state != 0 || mode != 0 || leg != 0 {
		t.Errorf("GetState() = (%d,%d,%d), want zeroed state after recreate", state, mode, leg)
	}
}

func TestRegion_SetAndGetState(t *testing.T) {
	dir := t.TempDir()
	r, err := Create(filepath.Join(dir, "publication.dat"), 2)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer func() { _ = r.Close() }()

	if err := r.SetState(3, 1, 2); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}

	state, mode, leg, err := r.GetState()
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state != 3 || mode != 1 || leg != 2 {
		t.Errorf("GetState() = (%d,%d,%d), want (3,1,2)", state, mode, leg)
	}
}

func TestRegion_SetAndGetParam(t *testing.T) {
	dir := t.TempDir()
	r, err := Create(filepath.Join(dir, "publication.dat"), 4)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer func() { _ = r.Close() }()

	if err := r.SetParam(2, 98.6); err != nil {
		t.Fatalf("SetParam() error = %v", err)
	}

	v, err := r.GetParam(2)
	if err != nil {
		t.Fatalf("GetParam() error = %v", err)
	}
	if v != 98.6 {
		t.Errorf("GetParam(2) = %v, want 98.6", v)
	}
}

func TestRegion_ParamOutOfRange(t *testing.T) {
	dir := t.TempDir()
	r, err := Create(filepath.Join(dir, "publication.dat"), 2)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer func() { _ = r.Close() }()

	if _, err := r.GetParam(2); err != ErrParamOutOfRange {
		t.Errorf("GetParam(2) error = %v, want ErrParamOutOfRange", err)
	}
	if err := r.SetParam(-1, 1.0); err != ErrParamOutOfRange {
		t.Errorf("SetParam(-1) error = %v, want ErrParamOutOfRange", err)
	}
}

func TestCreate_RejectsNonPositiveMaxParams(t *testing.T) {
	dir := t.TempDir()

	if _, err := Create(filepath.Join(dir, "publication.dat"), 0); err != ErrInvalidMaxParams {
		t.Errorf("Create(0) error = %v, want ErrInvalidMaxParams", err)
	}
}

func TestOpen_AttachesToExistingRegion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publication.dat")

	owner, err := Create(path, 3)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := owner.SetState(7, 0, 1); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	if err := owner.SetParam(1, 42.0); err != nil {
		t.Fatalf("SetParam() error = %v", err)
	}

	reader, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = reader.Close() }()

	if reader.NumParams() != 3 {
		t.Errorf("NumParams() = %d, want 3", reader.NumParams())
	}

	state, _, _, err := reader.GetState()
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state != 7 {
		t.Errorf("GetState() mcp_state = %d, want 7", state)
	}

	v, err := reader.GetParam(1)
	if err != nil {
		t.Fatalf("GetParam() error = %v", err)
	}
	if v != 42.0 {
		t.Errorf("GetParam(1) = %v, want 42.0", v)
	}

	_ = owner.Close()
}

func TestOpen_RejectsTooSmallFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "truncated.dat")

	if err := os.WriteFile(path, []byte("short"), 0644); err != nil {
		t.Fatalf("write test file: %v", err)
	}

	if _, err := Open(path); err != ErrCorrupted {
		t.Errorf("Open() error = %v, want ErrCorrupted", err)
	}
}

func TestRegion_OperationsFailAfterClose(t *testing.T) {
	dir := t.TempDir()
	r, err := Create(filepath.Join(dir, "publication.dat"), 2)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := r.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
	if _, _, _, err := r.GetState(); err != ErrRegionClosed {
		t.Errorf("GetState() after close error = %v, want ErrRegionClosed", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "publication.dat")); !os.IsNotExist(err) {
		t.Error("publication file should be unlinked after Close()")
	}
}

func TestRegion_WithLockAllowsAtomicMultiFieldUpdate(t *testing.T) {
	dir := t.TempDir()
	r, err := Create(filepath.Join(dir, "publication.dat"), 2)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer func() { _ = r.Close() }()

	err = r.WithLock(func(region *Region) error {
		binary.LittleEndian.PutUint32(region.data[offsetMCPState:], 9)
		binary.LittleEndian.PutUint64(region.data[offsetParamArray:], math.Float64bits(1.5))
		return nil
	})
	if err != nil {
		t.Fatalf("WithLock() error = %v", err)
	}

	state, _, _, err := r.GetState()
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state != 9 {
		t.Errorf("GetState() mcp_state = %d, want 9", state)
	}

	v, err := r.GetParam(0)
	if err != nil {
		t.Fatalf("GetParam() error = %v", err)
	}
	if v != 1.5 {
		t.Errorf("GetParam(0) = %v, want 1.5", v)
	}
}

// Package publication implements the shared publication region (C8): a
// mmap-backed window exposing the supervisor's state triple and parameter
// array to co-located readers.
//
// File format:
// The region mirrors the wire layout in SPEC_FULL.md §6's SharedHeader,
// so an external C reader mapping the same file can parse it without
// going through this package:
//
//	Header:
//	  - Semaphore placeholder: 32 bytes, reserved (sizeof(sem_t) on
//	    linux/amd64 glibc). This package does not implement a real
//	    process-shared POSIX semaphore; cross-process mutual exclusion is
//	    out of scope for a pure Go mmap (see DESIGN.md). The bytes are
//	    zeroed and otherwise unused so the remaining field offsets match
//	    the C struct exactly.
//	  - mcp_state:   u32
//	  - op_mode:     u32
//	  - flight_leg:  u32
//	  - num_params:  u32
//	Params (variable):
//	  - params[num_params]: f64, little-endian
//
// In-process callers serialize access with a sync.Mutex standing in for the
// semaphore described in the header comment above. The region is created
// exclusively at startup; if the backing file pre-exists, it is truncated
// and reinitialized, matching the process-lifetime-fixed-size semantics of
// SPEC_FULL.md §4.8.
package publication

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

const (
	semPlaceholderSize = 32
	headerSize         = semPlaceholderSize + 4*4 // sem + mcp_state + op_mode + flight_leg + num_params

	offsetMCPState   = semPlaceholderSize
	offsetOpMode     = offsetMCPState + 4
	offsetFlightLeg  = offsetOpMode + 4
	offsetNumParams  = offsetFlightLeg + 4
	offsetParamArray = headerSize
)

// Region is a mmap-backed publication region. All methods are safe for
// concurrent use; access is serialized with an internal mutex that stands
// in for the POSIX process-shared semaphore described in SPEC_FULL.md §4.8.
type Region struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	data   []byte
	size   uintptr
	params int
	closed bool
}

// Create creates the publication region at path with room for maxParams
// parameter slots. If a file already exists at path, it is truncated and
// reinitialized: the spec requires the region be fixed-size for the life
// of the process, but make no promise across process restarts.
func Create(path string, maxParams int) (*Region, error) {
	if maxParams <= 0 {
		return nil, ErrInvalidMaxParams
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create publication directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("create publication file: %w", err)
	}

	size := int64(headerSize + maxParams*8)
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("truncate publication file: %w", err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap publication region: %w", err)
	}

	r := &Region{
		path:   path,
		file:   f,
		data:   data,
		size:   uintptr(size),
		params: maxParams,
	}

	binary.LittleEndian.PutUint32(data[offsetNumParams:], uint32(maxParams))

	return r, nil
}

// Open maps an existing publication region for reading and writing,
// without truncating it. Used by tools that attach to a running
// supervisor's region (e.g. cmd/mcpctl) rather than owning its lifecycle.
func Open(path string) (*Region, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open publication file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat publication file: %w", err)
	}

	size := info.Size()
	if size < int64(headerSize) {
		f.Close()
		return nil, ErrCorrupted
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap publication region: %w", err)
	}

	numParams := binary.LittleEndian.Uint32(data[offsetNumParams:])

	return &Region{
		path:   path,
		file:   f,
		data:   data,
		size:   uintptr(size),
		params: int(numParams),
	}, nil
}

// NumParams returns the fixed parameter capacity of the region.
func (r *Region) NumParams() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params
}

// GetState returns the published (mcp_state, op_mode, flight_leg) triple.
func (r *Region) GetState() (mcpState, opMode, flightLeg uint32, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, 0, 0, ErrRegionClosed
	}

	mcpState = binary.LittleEndian.Uint32(r.data[offsetMCPState:])
	opMode = binary.LittleEndian.Uint32(r.data[offsetOpMode:])
	flightLeg = binary.LittleEndian.Uint32(r.data[offsetFlightLeg:])
	return mcpState, opMode, flightLeg, nil
}

// SetState publishes a new (mcp_state, op_mode, flight_leg) triple
// atomically with respect to other region accessors. Callers that need the
// triple and the parameter array to be mutually consistent (C6 step 4) must
// hold the region across the whole sequence via WithLock.
func (r *Region) SetState(mcpState, opMode, flightLeg uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegionClosed
	}

	binary.LittleEndian.PutUint32(r.data[offsetMCPState:], mcpState)
	binary.LittleEndian.PutUint32(r.data[offsetOpMode:], opMode)
	binary.LittleEndian.PutUint32(r.data[offsetFlightLeg:], flightLeg)
	return nil
}

// GetParam reads the parameter at idx.
func (r *Region) GetParam(idx int) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, ErrRegionClosed
	}
	if idx < 0 || idx >= r.params {
		return 0, ErrParamOutOfRange
	}

	bits := binary.LittleEndian.Uint64(r.data[offsetParamArray+idx*8:])
	return math.Float64frombits(bits), nil
}

// SetParam writes the parameter at idx.
func (r *Region) SetParam(idx int, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegionClosed
	}
	if idx < 0 || idx >= r.params {
		return ErrParamOutOfRange
	}

	binary.LittleEndian.PutUint64(r.data[offsetParamArray+idx*8:], math.Float64bits(value))
	return nil
}

// WithLock runs fn while holding the region's lock, for callers that must
// observe or mutate the state triple and the parameter array as a single
// atomic unit (SPEC_FULL.md §5's linearizability requirement).
func (r *Region) WithLock(fn func(r *Region) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegionClosed
	}
	return fn(r)
}

// Close unmaps the region and, since the region was created exclusively for
// this process's lifetime, removes the backing file.
func (r *Region) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if err := unix.Munmap(r.data); err != nil {
		return fmt.Errorf("munmap publication region: %w", err)
	}
	r.data = nil

	if err := r.file.Close(); err != nil {
		return fmt.Errorf("close publication file: %w", err)
	}

	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("unlink publication file: %w", err)
	}

	return nil
}

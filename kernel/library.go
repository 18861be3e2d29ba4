package kernel

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/gogpu/naga"

	"github.com/gogpu/fx/gpucore"
	"github.com/gogpu/fx/internal/cache"
)

// WorkgroupPlaceholder is substituted with the workgroup side in WGSL
// sources, e.g. "@workgroup_size(WORKGROUP_SIZE, WORKGROUP_SIZE, 1)".
const WorkgroupPlaceholder = "WORKGROUP_SIZE"

// DefaultEntryPoint is the WGSL entry point used when none is given.
const DefaultEntryPoint = "main"

// Errors returned by the library.
var (
	// ErrKernelNotFound is returned by Resolve for an unknown name.
	ErrKernelNotFound = errors.New("kernel: not found")

	// ErrDuplicateKernel is returned when a name is registered twice.
	ErrDuplicateKernel = errors.New("kernel: duplicate name")

	// ErrNoWorkgroupPlaceholder is returned for WGSL without the size placeholder.
	ErrNoWorkgroupPlaceholder = errors.New("kernel: WGSL source has no " + WorkgroupPlaceholder + " placeholder")

	// ErrInvalidSide is returned for a non-positive workgroup side.
	ErrInvalidSide = errors.New("kernel: workgroup side must be positive")
)

// Compiler turns WGSL source into SPIR-V bytes.
type Compiler func(wgsl string) ([]byte, error)

// Source describes one kernel to add to a library.
type Source struct {
	// Name is the lookup key.
	Name string

	// WGSL is the GPU source. It must contain WorkgroupPlaceholder.
	// May be empty for CPU-only kernels.
	WGSL string

	// EntryPoint defaults to DefaultEntryPoint.
	EntryPoint string

	// CPU is the Go implementation used by CPU devices.
	CPU gpucore.KernelFunc
}

// compileWGSL is the default Compiler.
func compileWGSL(src string) ([]byte, error) {
	return naga.Compile(src)
}

// Library stores kernels by name. It is safe for concurrent use and is
// meant to be shared by every effect in a process.
type Library struct {
	mu       sync.RWMutex
	funcs    map[string]*Function
	compile  Compiler
	cacheCap int
}

// Option configures a Library.
type Option func(*Library)

// WithCompiler replaces the naga WGSL compiler.
func WithCompiler(c Compiler) Option {
	return func(l *Library) {
		if c != nil {
			l.compile = c
		}
	}
}

// WithCacheSize bounds how many workgroup variants are kept per kernel.
func WithCacheSize(n int) Option {
	return func(l *Library) {
		l.cacheCap = n
	}
}

// NewLibrary creates an empty library.
func NewLibrary(opts ...Option) *Library {
	l := &Library{
		funcs:    make(map[string]*Function),
		compile:  compileWGSL,
		cacheCap: 8,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Add registers a kernel.
func (l *Library) Add(src Source) error {
	if src.Name == "" {
		return fmt.Errorf("kernel: empty name")
	}
	if src.WGSL != "" && !strings.Contains(src.WGSL, WorkgroupPlaceholder) {
		return fmt.Errorf("%w: %s", ErrNoWorkgroupPlaceholder, src.Name)
	}
	entry := src.EntryPoint
	if entry == "" {
		entry = DefaultEntryPoint
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.funcs[src.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKernel, src.Name)
	}
	l.funcs[src.Name] = &Function{
		name:     src.Name,
		entry:    entry,
		wgsl:     src.WGSL,
		cpu:      src.CPU,
		compile:  l.compile,
		variants: cache.New[int, []uint32](l.cacheCap),
	}
	return nil
}

// MustAdd is like Add but panics on error.
func (l *Library) MustAdd(src Source) {
	if err := l.Add(src); err != nil {
		panic(err)
	}
}

// Resolve looks up a kernel by name.
func (l *Library) Resolve(name string) (gpucore.ShaderFunction, error) {
	f, err := l.Function(name)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Function looks up a kernel by name and returns the concrete type.
func (l *Library) Function(name string) (*Function, error) {
	l.mu.RLock()
	f, ok := l.funcs[name]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKernelNotFound, name)
	}
	return f, nil
}

// Names returns the sorted kernel names.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.funcs))
	for name := range l.funcs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

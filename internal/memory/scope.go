// Package memory provides call-scoped lifetime management for temporary
// columns: cast results held by an instruction list, scratch batches and
// other Arrow-backed values that must outlive a row loop but not the call.
package memory

import (
	"sync"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Releasable is anything holding reference-counted Arrow memory
type Releasable interface {
	Release()
}

// Scope collects temporaries created during one call and releases them
// together when the call returns.
//
// Example usage:
//
//	scope := memory.NewScope(mem)
//	defer scope.ReleaseAll()
//	casted, err := cast.Column(ctx, col, from, to)
//	if err != nil {
//		return err
//	}
//	scope.Track(casted)
type Scope struct {
	allocator memory.Allocator
	resources []Releasable
	mu        sync.Mutex
}

// NewScope creates a scope allocating from allocator. A nil allocator
// defaults to the Go allocator.
func NewScope(allocator memory.Allocator) *Scope {
	if allocator == nil {
		allocator = memory.NewGoAllocator()
	}
	return &Scope{allocator: allocator}
}

// Allocator returns the allocator temporaries should be created with
func (s *Scope) Allocator() memory.Allocator {
	return s.allocator
}

// Track registers r for release and returns it
func (s *Scope) Track(r Releasable) Releasable {
	if r == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources = append(s.resources, r)
	return r
}

// TrackedCount returns the number of tracked resources
func (s *Scope) TrackedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resources)
}

// ReleaseAll releases tracked resources in reverse order of tracking
func (s *Scope) ReleaseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.resources) - 1; i >= 0; i-- {
		s.resources[i].Release()
	}
	s.resources = nil
}

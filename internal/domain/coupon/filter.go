package coupon

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

const (
	minFilterCapacity = 1024
	filterFPR         = 0.001
)

// CodeFilter is a probabilistic set of known coupon codes. A negative answer
// is definite, so lookups of made-up codes never reach the database.
type CodeFilter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewCodeFilter builds a filter holding codes.
func NewCodeFilter(codes []string) *CodeFilter {
	f := &CodeFilter{}
	f.reset(codes)
	return f
}

// LoadCodeFilter builds a filter from every code in the repository.
func LoadCodeFilter(ctx context.Context, repo Repository) (*CodeFilter, error) {
	codes, err := repo.ListCodes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list coupon codes")
	}
	return NewCodeFilter(codes), nil
}

// Refresh replaces the filter contents with the repository's current codes.
func (f *CodeFilter) Refresh(ctx context.Context, repo Repository) error {
	codes, err := repo.ListCodes(ctx)
	if err != nil {
		return errors.Wrap(err, "list coupon codes")
	}
	f.reset(codes)
	return nil
}

// Add inserts a code, e.g. one created after the filter was loaded.
func (f *CodeFilter) Add(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter.AddString(NormalizeCode(code))
}

// MayContain reports whether code might be a known coupon.
func (f *CodeFilter) MayContain(code string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.TestString(NormalizeCode(code))
}

func (f *CodeFilter) reset(codes []string) {
	filter := bloom.NewWithEstimates(uint(max(len(codes)*2, minFilterCapacity)), filterFPR)
	for _, code := range codes {
		filter.AddString(NormalizeCode(code))
	}

	f.mu.Lock()
	f.filter = filter
	f.mu.Unlock()
}

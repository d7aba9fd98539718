package alloc

import (
	"github.com/go-playground/validator/v10"

	"github.com/wippyai/scopeheap/errors"
)

// validate is shared; building a validator caches struct metadata.
var validate = validator.New()

// PageSize is the size of one linear memory page.
const PageSize = 65536

// LinearConfig sizes the linear memory behind a Linear allocator.
// MaxPages stays below 65536 so the byte size fits in a uint32.
type LinearConfig struct {
	InitialPages uint32 `validate:"min=1,max=65535"`
	MaxPages     uint32 `validate:"min=1,max=65535,gtefield=InitialPages"`
}

// DefaultLinearConfig returns a 64 KiB memory that may grow to 16 MiB.
func DefaultLinearConfig() LinearConfig {
	return LinearConfig{InitialPages: 1, MaxPages: 256}
}

// Validate checks the page bounds.
func (c LinearConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "linear allocator config")
	}
	return nil
}

func checkAlign(align uint32) (uint32, error) {
	if align == 0 {
		return 1, nil
	}
	if align&(align-1) != 0 {
		return 0, errors.New(errors.PhaseAlloc, errors.KindInvalidInput).
			Value(align).
			Detail("alignment %d is not a power of two", align).
			Build()
	}
	return align, nil
}

package validators

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once sync.Once
	v    *validator.Validate
)

// New returns the shared validator instance.
func New() *validator.Validate {
	once.Do(func() {
		v = validator.New()
	})
	return v
}

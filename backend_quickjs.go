//go:build !v8

package typedarray

import (
	"github.com/cryguy/typedarray/internal/core"
	"github.com/cryguy/typedarray/internal/quickjs"
)

func newBackend(cfg core.Config) (core.Backend, error) {
	return quickjs.New(cfg)
}

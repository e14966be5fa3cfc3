//go:build v8

package typedarray

import (
	"github.com/cryguy/typedarray/internal/core"
	"github.com/cryguy/typedarray/internal/v8engine"
)

func newBackend(cfg core.Config) (core.Backend, error) {
	return v8engine.New(cfg)
}

package typedarray

import (
	"github.com/cryguy/typedarray/internal/buffer"
	"github.com/cryguy/typedarray/internal/core"
	"github.com/cryguy/typedarray/internal/snapshot"
)

// Type aliases re-exporting internal types so downstream code can use
// typedarray.TypedArray, typedarray.Config, etc. without importing the
// internal packages directly.

type ElementKind = core.ElementKind
type Family = core.Family
type Handle = core.Handle
type Engine = core.Engine
type Config = core.Config
type EngineConfig = core.EngineConfig
type LogConfig = core.LogConfig
type SnapshotConfig = core.SnapshotConfig
type Error = core.Error
type ExecutionDiagnostic = core.ExecutionDiagnostic
type ExecutionError = core.ExecutionError
type TypedArray = buffer.TypedArray
type ArrayBuffer = buffer.ArrayBuffer
type SnapshotStore = snapshot.Store
type SnapshotRecord = snapshot.Record

// Element kinds re-exported from core.
const (
	Invalid      = core.Invalid
	Int8         = core.Int8
	Uint8        = core.Uint8
	Uint8Clamped = core.Uint8Clamped
	Int16        = core.Int16
	Uint16       = core.Uint16
	Int32        = core.Int32
	Uint32       = core.Uint32
	Float32      = core.Float32
	Float64      = core.Float64
	BigInt64     = core.BigInt64
	BigUint64    = core.BigUint64
)

// Conversion families re-exported from core.
const (
	FamilyBytes    = core.FamilyBytes
	FamilyShorts   = core.FamilyShorts
	FamilyIntegers = core.FamilyIntegers
	FamilyLongs    = core.FamilyLongs
	FamilyFloats   = core.FamilyFloats
	FamilyDoubles  = core.FamilyDoubles
)

// Errors re-exported from core and snapshot.
var (
	ErrLengthMismatch      = core.ErrLengthMismatch
	ErrBufferUnavailable   = core.ErrBufferUnavailable
	ErrEngineCommunication = core.ErrEngineCommunication
	ErrMalformedView       = core.ErrMalformedView
	ErrKindMismatch        = core.ErrKindMismatch
	ErrExecution           = core.ErrExecution
	ErrSnapshotNotFound    = snapshot.ErrNotFound
)

// Functions re-exported from core and buffer.
var (
	DefaultConfig          = core.DefaultConfig
	KindOf                 = core.KindOf
	WidthOf                = core.WidthOf
	NewExecutionDiagnostic = core.NewExecutionDiagnostic
	NewTypedArrayView      = buffer.New
	SetLogger              = core.SetLogger
)

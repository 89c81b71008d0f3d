package gltfconv

import "github.com/pkg/errors"

// Error kinds surfaced by the translator. Per-entity failures are
// logged and skipped; only container-level failures abort a session.
var (
	ErrInvalidAsset          = errors.New("invalid asset")
	ErrUnsupportedFeature    = errors.New("unsupported feature")
	ErrInvalidSize           = errors.New("invalid accessor size")
	ErrIndexOutOfRange       = errors.New("index out of range")
	ErrNonFiniteFloatData    = errors.New("non-finite float data")
	ErrMismatchedInfluences  = errors.New("mismatched joint influences")
	ErrUnsupportedConversion = errors.New("unsupported component conversion")
	ErrUnknownImageFormat    = errors.New("unknown image format")
)

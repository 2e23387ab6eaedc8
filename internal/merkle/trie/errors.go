package trie

import "errors"

var (
	ErrUnexpectedEOF         = errors.New("unexpected end of encoded node")
	ErrInvalidHeader         = errors.New("invalid node header")
	ErrBadPartialPadding     = errors.New("partial key has non zero padding")
	ErrInvalidChildBitmap    = errors.New("branch node has an empty children bitmap")
	ErrInvalidCompact        = errors.New("invalid compact length")
	ErrInvalidChildReference = errors.New("invalid child reference")
	ErrTrailingData          = errors.New("trailing data after encoded node")
)

package wall

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per Kind. Match recorded errors with errors.Is.
var (
	ErrGeometryUnavailable    = errors.New("geometry unavailable")
	ErrNotComposite           = errors.New("wall is not composite")
	ErrTypeCreationFailed     = errors.New("type creation failed")
	ErrSegmentCreationFailed  = errors.New("segment creation failed")
	ErrCorrespondenceNotFound = errors.New("junction correspondence not found")
	ErrTrimDegenerate         = errors.New("trim would produce degenerate segment")
	ErrTransactionFatal       = errors.New("transaction failed")
)

// ErrSingleLayer marks a basic wall with exactly one layer. It is not
// decomposed but still has a layer its neighbours can align with.
var ErrSingleLayer = fmt.Errorf("%w: single layer", ErrNotComposite)

// Kind classifies a decomposition failure.
type Kind int

const (
	GeometryUnavailable Kind = iota + 1
	NotComposite
	TypeCreationFailed
	SegmentCreationFailed
	JunctionCorrespondenceNotFound
	TrimDegenerate
	TransactionFatal
)

var kindSentinels = map[Kind]error{
	GeometryUnavailable:            ErrGeometryUnavailable,
	NotComposite:                   ErrNotComposite,
	TypeCreationFailed:             ErrTypeCreationFailed,
	SegmentCreationFailed:          ErrSegmentCreationFailed,
	JunctionCorrespondenceNotFound: ErrCorrespondenceNotFound,
	TrimDegenerate:                 ErrTrimDegenerate,
	TransactionFatal:               ErrTransactionFatal,
}

// Sentinel returns the sentinel error for the kind.
func (k Kind) Sentinel() error {
	if err, ok := kindSentinels[k]; ok {
		return err
	}
	return fmt.Errorf("unknown error kind %d", int(k))
}

func (k Kind) String() string {
	return k.Sentinel().Error()
}

// Fatal reports whether the kind aborts a batch.
func (k Kind) Fatal() bool {
	return k == TransactionFatal
}

// NoLayer marks an Error that is not tied to one layer.
const NoLayer = -1

// Error is a failure recorded against a wall, optionally a single layer.
type Error struct {
	Kind   Kind
	WallID ID
	Layer  int
	Err    error
}

// NewError records a wall-level failure.
func NewError(kind Kind, wallID ID, err error) *Error {
	return &Error{Kind: kind, WallID: wallID, Layer: NoLayer, Err: err}
}

// LayerError records a failure on one layer of a wall.
func LayerError(kind Kind, wallID ID, layer int, err error) *Error {
	return &Error{Kind: kind, WallID: wallID, Layer: layer, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.WallID != "" {
		msg = fmt.Sprintf("wall %s: %s", e.WallID, msg)
	}
	if e.Layer != NoLayer {
		msg = fmt.Sprintf("%s (layer %d)", msg, e.Layer)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind's sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := []error{e.Kind.Sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

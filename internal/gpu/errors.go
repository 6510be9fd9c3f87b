package gpu

import (
	"errors"
	"fmt"
)

// ErrNoBackend is returned when no device backend could be initialized.
var ErrNoBackend = errors.New("gpu: no backend available")

// ErrorKind categorizes failures of the binding layer and the engines on top of it.
type ErrorKind int

const (
	// KindConfig is an invalid argument or configuration, reported before any dispatch.
	KindConfig ErrorKind = iota + 1
	// KindCompile is a kernel compilation failure.
	KindCompile
	// KindLaunch is a kernel launch or execution failure.
	KindLaunch
	// KindAlloc is a device allocation failure.
	KindAlloc
	// KindTransfer is a host/device copy failure.
	KindTransfer
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindCompile:
		return "compile"
	case KindLaunch:
		return "launch"
	case KindAlloc:
		return "alloc"
	case KindTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// Error is a structured failure with the operation it happened in.
type Error struct {
	Kind    ErrorKind
	Op      string // operation that failed, e.g. "scan.inclusive"
	Message string
	Log     string // compiler build log, if any
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("gpu %s error in %s: %s", e.Kind, e.Op, e.Message)
	if e.Err != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Err)
	}
	if e.Log != "" {
		msg += "\n" + e.Log
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewConfigError reports an invalid argument or configuration.
func NewConfigError(op, message string, err error) error {
	return &Error{Kind: KindConfig, Op: op, Message: message, Err: err}
}

// NewCompileError reports a kernel build failure together with the build log.
func NewCompileError(op, message, log string, err error) error {
	return &Error{Kind: KindCompile, Op: op, Message: message, Log: log, Err: err}
}

// NewLaunchError reports a failed kernel launch.
func NewLaunchError(op, message string, err error) error {
	return &Error{Kind: KindLaunch, Op: op, Message: message, Err: err}
}

// NewAllocError reports a failed allocation.
func NewAllocError(op, message string, err error) error {
	return &Error{Kind: KindAlloc, Op: op, Message: message, Err: err}
}

// NewTransferError reports a failed host/device copy.
func NewTransferError(op, message string, err error) error {
	return &Error{Kind: KindTransfer, Op: op, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return 0
}

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool {
	return KindOf(err) == KindConfig
}

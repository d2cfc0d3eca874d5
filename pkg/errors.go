package halyard

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindIO is any disk or stream read, write or copy failure.
	KindIO
	// KindArchiveFormat means the archive could not be recognised as a tar stream.
	KindArchiveFormat
	// KindRotation means the backup rotation holds nothing to roll back to.
	KindRotation
	// KindCleanup is a failure while finalizing or closing resources.
	KindCleanup
)

func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindArchiveFormat:
		return "archive format"
	case KindRotation:
		return "rotation"
	case KindCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrIO            = &Error{Kind: KindIO}
	ErrArchiveFormat = &Error{Kind: KindArchiveFormat}
	ErrRotation      = &Error{Kind: KindRotation}
	ErrCleanup       = &Error{Kind: KindCleanup}
)

var ErrNoRollbackTarget = errors.New("no backups found to roll back to")

type Error struct {
	Kind ErrorKind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + " failure"
	if e.Op != "" {
		msg = e.Op
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Path == "" && t.Err == nil && t.Kind == e.Kind
}

func IOError(op, path string, err error) error {
	return &Error{Kind: KindIO, Op: op, Path: path, Err: err}
}

func FormatError(op, path string, err error) error {
	return &Error{Kind: KindArchiveFormat, Op: op, Path: path, Err: err}
}

func RotationError(path string, err error) error {
	return &Error{Kind: KindRotation, Op: "select rollback target", Path: path, Err: err}
}

// KindOf returns the kind of the first *Error found in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// WithCleanup folds a failure from a deferred close into the error being
// returned. A cleanup failure on its own becomes the error; next to a primary
// error it is logged and joined behind it.
func WithCleanup(err error, op, path string, cerr error) error {
	if cerr == nil {
		return err
	}
	cleanup := &Error{Kind: KindCleanup, Op: op, Path: path, Err: cerr}
	if err == nil {
		return cleanup
	}
	logrus.WithFields(logrus.Fields{
		"op":   op,
		"path": path,
	}).WithError(cerr).Error("cleanup failed while handling an earlier error")
	return errors.Join(err, cleanup)
}

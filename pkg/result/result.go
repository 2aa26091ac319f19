// Package result carries the outcome of a call to an external dependency
// (embedding API, web search, LLM, storage) together with a coarse error kind,
// so callers decide between aborting and degrading in one place.
package result

import (
	"context"
	"errors"
	"fmt"
)

type Kind string

const (
	KindNone         Kind = ""
	KindEmbedding    Kind = "embedding"
	KindSearch       Kind = "search"
	KindLLM          Kind = "llm"
	KindParse        Kind = "parse"
	KindStorage      Kind = "storage"
	KindInvalidInput Kind = "invalid_input"
	KindCanceled     Kind = "canceled"
)

// Sentinels usable with errors.Is against any *Error of the same kind.
var (
	ErrEmbedding    = &Error{Kind: KindEmbedding}
	ErrSearch       = &Error{Kind: KindSearch}
	ErrLLM          = &Error{Kind: KindLLM}
	ErrParse        = &Error{Kind: KindParse}
	ErrStorage      = &Error{Kind: KindStorage}
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
	ErrCanceled     = &Error{Kind: KindCanceled}
)

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind) + " error"
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind only, so errors.Is(err, result.ErrLLM) works for any LLM failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// NewError builds a kinded error. Context cancellation always wins over the given kind.
func NewError(kind Kind, err error) *Error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = KindCanceled
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, KindNone otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNone
}

type Result[T any] struct {
	value T
	err   *Error
}

func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

func Err[T any](kind Kind, err error) Result[T] {
	return Result[T]{err: NewError(kind, err)}
}

// Partial keeps a value produced before the failure, e.g. rows already persisted.
func Partial[T any](v T, kind Kind, err error) Result[T] {
	return Result[T]{value: v, err: NewError(kind, err)}
}

// Fail carries r's error over to a result of another type. r must not be ok.
func Fail[U any, T any](r Result[T]) Result[U] {
	return Result[U]{err: r.err}
}

// From wraps a conventional (value, error) pair, tagging a non-nil error with kind.
func From[T any](v T, err error, kind Kind) Result[T] {
	if err != nil {
		return Err[T](kind, err)
	}
	return Ok(v)
}

func (r Result[T]) IsOk() bool { return r.err == nil }

func (r Result[T]) Kind() Kind {
	if r.err == nil {
		return KindNone
	}
	return r.err.Kind
}

func (r Result[T]) Value() T { return r.value }

// Error returns the failure as an error, or nil. It never returns a typed nil.
func (r Result[T]) Error() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

func (r Result[T]) Unwrap() (T, error) {
	return r.value, r.Error()
}

package script

import "errors"

// Runtime errors raised by the virtual machine. They abort the current
// handler; the event dispatcher logs them and treats the handler as if it
// had returned nil.
var (
	ErrTypeMismatch       = errors.New("typeMismatch")
	ErrUndefinedSymbol    = errors.New("undefinedSymbol")
	ErrUndefinedReference = errors.New("undefinedReference")
	ErrIndexOutOfBounds   = errors.New("indexOutOfBounds")
	ErrReferenceRequired  = errors.New("referenceRequired")
	ErrExpectedCallable   = errors.New("expectedCallable")
	ErrExpectedFuture     = errors.New("expectedFuture")
	ErrInvalidResult      = errors.New("invalidResult")
	ErrNestedIteration    = errors.New("nestedIterationNotSupported")
)

// Member access errors raised by object accessors.
var (
	ErrReadOnlyMember = errors.New("readOnly")
	ErrUnknownMember  = errors.New("unknownMember")
)

package session

import (
	"bytes"
	"context"
	"runtime"
	"strconv"

	"github.com/google/uuid"
)

// Owner identifies the caller a session is bound to.
type Owner string

type ownerKey struct{}

// NewOwner mints a fresh owner identity.
func NewOwner() Owner {
	return Owner("owner-" + uuid.NewString())
}

// WithOwner attaches an owner identity to ctx.  Every Start made with
// the returned context (or one derived from it) acts as that owner,
// whichever goroutine makes the call.
func WithOwner(ctx context.Context, o Owner) context.Context {
	return context.WithValue(ctx, ownerKey{}, o)
}

// OwnerFrom returns the owner attached to ctx, if any.
func OwnerFrom(ctx context.Context) (Owner, bool) {
	o, ok := ctx.Value(ownerKey{}).(Owner)
	return o, ok && o != ""
}

// callerIdentity is the owner attached to ctx or, failing that, the
// calling goroutine.
func callerIdentity(ctx context.Context) Owner {
	if o, ok := OwnerFrom(ctx); ok {
		return o
	}
	return goroutineOwner(stackHeader())
}

// goroutineOwner names the goroutine whose stack header is given.  An
// unrecognised header yields a fresh identity that no other call will
// ever match.
func goroutineOwner(header []byte) Owner {
	if id, ok := parseGoroutineID(header); ok {
		return Owner("goroutine-" + strconv.FormatUint(id, 10))
	}
	return NewOwner()
}

var goroutinePrefix = []byte("goroutine ")

// stackHeader returns the start of the calling goroutine's stack trace.
func stackHeader() []byte {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return buf[:n]
}

// parseGoroutineID reads the id from a stack header such as
// "goroutine 42 [running]:".
func parseGoroutineID(header []byte) (uint64, bool) {
	if !bytes.HasPrefix(header, goroutinePrefix) {
		return 0, false
	}
	b := header[len(goroutinePrefix):]
	i := bytes.IndexByte(b, ' ')
	if i <= 0 {
		return 0, false
	}
	id, err := strconv.ParseUint(string(b[:i]), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

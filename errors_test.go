package urbis

import (
	"errors"
	"testing"
)

func TestCodeOfUnwrapsWrappedError(t *testing.T) {
	cause := errors.New("disk exploded")
	err := WrapError(IO, "syncing data file", cause)
	if CodeOf(err) != IO {
		t.Fatalf("CodeOf: got %v, want IO", CodeOf(err))
	}
	if !errors.Is(err, err) {
		t.Fatalf("errors.Is: self-comparison failed")
	}
	if !errors.As(err, new(*Error)) {
		t.Fatalf("errors.As: expected *Error target to match")
	}
}

func TestCodeOfNilIsOK(t *testing.T) {
	if CodeOf(nil) != OK {
		t.Fatalf("CodeOf(nil): got %v, want OK", CodeOf(nil))
	}
}

func TestCodeOfForeignErrorIsAlloc(t *testing.T) {
	if CodeOf(errors.New("not ours")) != Alloc {
		t.Fatalf("CodeOf(foreign): got %v, want Alloc", CodeOf(errors.New("not ours")))
	}
}

func TestIsMatchesSentinelCode(t *testing.T) {
	if !Is(ErrNotFound, NotFound) {
		t.Fatalf("Is(ErrNotFound, NotFound): got false")
	}
	if Is(ErrFull, NotFound) {
		t.Fatalf("Is(ErrFull, NotFound): got true")
	}
}

package feed

import (
	"errors"
	"io"
	"testing"
)

func TestLostErrMatchesSentinel(t *testing.T) {
	err := lostErr(io.ErrUnexpectedEOF)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("errors.Is(%v, ErrNotConnected) = false, want true", err)
	}
}

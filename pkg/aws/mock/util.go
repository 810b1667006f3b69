package mock

import (
	"fmt"
	"sync/atomic"
)

var idCounter atomic.Uint64

func strPtr(s string) *string {
	return &s
}

// randomID returns a unique hex identifier. Sequential, so tests stay deterministic.
func randomID() string {
	return fmt.Sprintf("%016x", 0x123456789abcdef0+idCounter.Add(1))
}

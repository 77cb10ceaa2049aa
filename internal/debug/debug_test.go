package debug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssertPassesSilently(t *testing.T) {
	assert.NotPanics(t, func() {
		Assert(true, "should not panic")
	})
}

func TestAssertPanicsWithMessage(t *testing.T) {
	assert.PanicsWithValue(t, "assertion failed: invariant violated: 7", func() {
		Assert(1 == 2, "invariant violated: %d", 7)
	})
}

package util

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestNewResource(t *testing.T) {
	res, err := newResource("v0.0.0", Module)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, res, qt.IsNotNil)
}

package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitRegistry_EnablesMetrics(t *testing.T) {
	Reset()
	defer Reset()

	assert.False(t, IsEnabled())

	reg := InitRegistry()
	assert.NotNil(t, reg)
	assert.True(t, IsEnabled())
}

func TestGetRegistry_WithoutInit(t *testing.T) {
	Reset()
	defer Reset()

	reg := GetRegistry()
	assert.NotNil(t, reg)
	assert.False(t, IsEnabled())
}

func TestHandler_ServesWithoutPanic(t *testing.T) {
	Reset()
	defer Reset()

	InitRegistry()
	assert.NotPanics(t, func() {
		_ = Handler()
	})
}

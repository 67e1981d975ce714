package sensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	// 6000/10 - 396 = 204 -> "20.4"
	assert.Equal(t, "20.4", Format(6000))
	assert.Equal(t, "0.0", Format(3960))
	assert.Equal(t, "21.5", Format(Raw(215)))
}

func TestWanderStaysNearBase(t *testing.T) {
	w := &Wander{Base: Raw(215), Amplitude: 3}
	w.Activate()
	for range 100 {
		r := w.Read()
		assert.InDelta(t, float64(Raw(215)), float64(r), 30)
	}
}

package state

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/encodeous/canopy/radio"
	"github.com/encodeous/canopy/sensor"
)

// NodeId is the short node identifier. Link addresses carry it in their
// first two bytes, so the link address and the id are interchangeable.
type NodeId uint16

func (n NodeId) String() string {
	return strconv.Itoa(int(n))
}

// Module is a unit of protocol behaviour with a lifecycle bound to the node.
type Module interface {
	Init(s *State) error
	Cleanup(s *State) error
}

// State access must be done only on the executor goroutine.
type State struct {
	*Env
	Modules map[string]Module
	Collect *CollectState
	Started atomic.Bool
}

// Env can be read from any goroutine.
type Env struct {
	DispatchChannel chan func(s *State) error
	CentralCfg
	LocalCfg
	Context context.Context
	Cancel  context.CancelCauseFunc
	Log     *slog.Logger

	// Console carries the grep-stable diagnostic lines, the serial
	// console of the node. Distinct from Log so ambient logging does
	// not disturb the line formats.
	Console io.Writer

	Radio     radio.Radio
	Sensor    sensor.Sensor
	Indicator func()
}

// Indicate pulses the activity indicator, if one is attached.
func (e *Env) Indicate() {
	if e.Indicator != nil {
		e.Indicator()
	}
}

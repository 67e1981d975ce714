package state

import "time"

const (
	// SinkId is the designated collection node.
	SinkId NodeId = 1

	// NbrCap is the neighbor arena capacity.
	NbrCap = 10

	// HopsMax bounds the sink's delivery histogram.
	HopsMax = 20

	// HopsUnknown marks a neighbor that has not yet advertised a hop
	// distance to the sink.
	HopsUnknown uint16 = 0xffff
)

var (
	// StartupWait is the sink's quiescence before the first beacon.
	StartupWait = 5 * time.Second
	// BeaconInterval is the sink's beacon period.
	BeaconInterval = 45 * time.Second
	// DataInterval is the sampling period. The first transmission of a
	// node is additionally offset by (id mod DataInterval) seconds.
	DataInterval = 60 * time.Second
	// ReselectInterval is the aging + parent reselection period.
	ReselectInterval = 9 * time.Second
	// PrintInterval is the diagnostics period.
	PrintInterval = 28 * time.Second
	// NbrTTL ages a neighbor out after this much silence.
	NbrTTL = 180 * time.Second

	// PrrMinSamples is the minimum tx count before the PRR policy
	// trusts a neighbor's ratio.
	PrrMinSamples uint16 = 3

	// ActiveSourceTTL bounds the sink's active-source tracking window.
	ActiveSourceTTL = 2 * DataInterval

	// DefaultPortBase maps radio channels to UDP ports (port = base + channel).
	DefaultPortBase uint16 = 57400

	// DefaultRssi is reported by radio drivers that cannot measure
	// signal strength.
	DefaultRssi int8 = -60
)

var (
	NodeConfigPath    = "node.yaml"
	CentralConfigPath = "central.yaml"
)

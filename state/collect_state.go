package state

// CollectState is the convergecast state shared by the node's tasks and
// receive paths. Mutated only on the executor goroutine.
type CollectState struct {
	Id     NodeId
	Policy Policy

	// NextHop is the current parent; 0 means none. Mutated only by
	// parent selection and by aging of the current parent.
	NextHop NodeId

	// DataSeq numbers locally sourced data frames.
	DataSeq uint16
	// BeaconSeqTx is the sink's beacon sequence.
	BeaconSeqTx uint16
	// LastBeaconSeq is the flood filter: the last accepted adv_seq.
	// Zero means no beacon has ever been accepted; the first one also
	// bootstraps the parent pointer.
	LastBeaconSeq uint16

	Nbrs NeighborTable

	// HopHist buckets delivered data frames by their final hop count.
	// Updated only on the sink.
	HopHist [HopsMax]uint32
}

func (cs *CollectState) IsSink() bool {
	return cs.Id == SinkId
}

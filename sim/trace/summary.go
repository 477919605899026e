package trace

// NodeSummary counts the PHY events of one node.
type NodeSummary struct {
	Tx    int
	Rx    int
	Drops int
}

// Summary aggregates the frame records of a run.
type Summary struct {
	TotalEvents   int
	TxFrames      int
	RxFrames      int
	Drops         int
	TxBytes       int
	DropsByReason map[string]int
	Nodes         map[int]NodeSummary
}

// Summarize computes aggregate counts from records. Safe for nil input.
func Summarize(records []FrameRecord) Summary {
	s := Summary{
		DropsByReason: make(map[string]int),
		Nodes:         make(map[int]NodeSummary),
	}
	s.TotalEvents = len(records)
	for _, r := range records {
		n := s.Nodes[r.NodeID]
		switch r.Kind {
		case KindTx:
			s.TxFrames++
			s.TxBytes += r.Size
			n.Tx++
		case KindRx:
			s.RxFrames++
			n.Rx++
		case KindDrop:
			s.Drops++
			s.DropsByReason[r.Reason]++
			n.Drops++
		}
		s.Nodes[r.NodeID] = n
	}
	return s
}

// Package trace writes per-device packet captures and a plain-text event
// trace of the wifi PHYs, and keeps a compact record of every PHY event for
// the run summary.
package trace

import (
	"fmt"
	"strconv"

	"github.com/vanet-sim/dsrc-sim/sim"
)

// Kind is the ascii trace event letter.
type Kind byte

const (
	KindTx   Kind = 't'
	KindRx   Kind = 'r'
	KindDrop Kind = 'd'
)

func (k Kind) String() string { return string(k) }

// FrameRecord captures one PHY event.
type FrameRecord struct {
	Kind     Kind
	Time     int64
	NodeID   int
	DeviceID int
	Size     int
	Summary  string
	Reason   string // drops only
}

// Path is the trace source the event came from.
func (r FrameRecord) Path() string {
	event := "State/Tx"
	switch r.Kind {
	case KindRx:
		event = "State/RxOk"
	case KindDrop:
		event = "PhyRxDrop"
	}
	return fmt.Sprintf("/NodeList/%d/DeviceList/%d/Phy/%s", r.NodeID, r.DeviceID, event)
}

// Line renders the record as one ascii trace line.
func (r FrameRecord) Line() string {
	line := r.Kind.String() + " " + strconv.FormatFloat(sim.ToSeconds(r.Time), 'f', -1, 64) + " " + r.Path() + " " + r.Summary
	if r.Reason != "" {
		line += " reason=" + r.Reason
	}
	return line
}

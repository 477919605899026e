// Package metrics holds the Prometheus counters a simulation run updates.
// Each run owns its own registry so runs never share state.
package metrics

import (
	"fmt"
	"io"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

const (
	promNamespace = "dsrc"

	labelNode   = "node"
	labelReason = "reason"
	labelApp    = "app"
)

// Drop reasons shared by the PHY and MAC.
const (
	ReasonBelowSensitivity = "below_sensitivity"
	ReasonTransmitting     = "transmitting"
	ReasonCollision        = "collision"
	ReasonPayloadError     = "payload_error"
	ReasonRetryLimit       = "retry_limit"
	ReasonQueueFull        = "queue_full"
	ReasonNoRoute          = "no_route"
	ReasonNoSocket         = "no_socket"
)

// Registry is the set of counters of one simulation run.
type Registry struct {
	reg *prometheus.Registry

	phyTxFrames *prometheus.CounterVec
	phyRxFrames *prometheus.CounterVec
	phyDrops    *prometheus.CounterVec
	macRetries  *prometheus.CounterVec
	macDrops    *prometheus.CounterVec
	ipDrops     *prometheus.CounterVec
	arpRequests *prometheus.CounterVec
	appSent     *prometheus.CounterVec
	appReceived *prometheus.CounterVec
}

// New creates a registry with every counter registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	counter := func(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: promNamespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	}
	return &Registry{
		reg:         reg,
		phyTxFrames: counter("phy", "tx_frames_total", "Frames put on the air.", labelNode),
		phyRxFrames: counter("phy", "rx_frames_total", "Frames received without error.", labelNode),
		phyDrops:    counter("phy", "rx_drops_total", "Frames lost at the receiver, by reason.", labelNode, labelReason),
		macRetries:  counter("mac", "retries_total", "Unicast retransmissions after an ACK timeout.", labelNode),
		macDrops:    counter("mac", "drops_total", "Packets abandoned by the MAC, by reason.", labelNode, labelReason),
		ipDrops:     counter("ipv4", "drops_total", "Datagrams dropped by the IPv4 layer, by reason.", labelNode, labelReason),
		arpRequests: counter("arp", "requests_total", "ARP requests broadcast.", labelNode),
		appSent:     counter("app", "packets_sent_total", "Packets sent by applications.", labelNode, labelApp),
		appReceived: counter("app", "packets_received_total", "Packets received by applications.", labelNode, labelApp),
	}
}

func node(id int) string {
	return strconv.Itoa(id)
}

func (r *Registry) PhyTx(nodeID int) { r.phyTxFrames.WithLabelValues(node(nodeID)).Inc() }
func (r *Registry) PhyRx(nodeID int) { r.phyRxFrames.WithLabelValues(node(nodeID)).Inc() }
func (r *Registry) PhyDrop(nodeID int, reason string) {
	r.phyDrops.WithLabelValues(node(nodeID), reason).Inc()
}
func (r *Registry) MacRetry(nodeID int) { r.macRetries.WithLabelValues(node(nodeID)).Inc() }
func (r *Registry) MacDrop(nodeID int, reason string) {
	r.macDrops.WithLabelValues(node(nodeID), reason).Inc()
}
func (r *Registry) IPDrop(nodeID int, reason string) {
	r.ipDrops.WithLabelValues(node(nodeID), reason).Inc()
}
func (r *Registry) ArpRequest(nodeID int) { r.arpRequests.WithLabelValues(node(nodeID)).Inc() }
func (r *Registry) AppSent(nodeID int, app string) {
	r.appSent.WithLabelValues(node(nodeID), app).Inc()
}
func (r *Registry) AppReceived(nodeID int, app string) {
	r.appReceived.WithLabelValues(node(nodeID), app).Inc()
}

// PhyTxCounter exposes the per-node tx counter, mostly for tests.
func (r *Registry) PhyTxCounter(nodeID int) prometheus.Counter {
	return r.phyTxFrames.WithLabelValues(node(nodeID))
}

// PhyDropCounter exposes one drop counter.
func (r *Registry) PhyDropCounter(nodeID int, reason string) prometheus.Counter {
	return r.phyDrops.WithLabelValues(node(nodeID), reason)
}

// MacDropCounter exposes one MAC drop counter.
func (r *Registry) MacDropCounter(nodeID int, reason string) prometheus.Counter {
	return r.macDrops.WithLabelValues(node(nodeID), reason)
}

// AppSentCounter exposes one application counter.
func (r *Registry) AppSentCounter(nodeID int, app string) prometheus.Counter {
	return r.appSent.WithLabelValues(node(nodeID), app)
}

// AppReceivedCounter exposes one application receive counter.
func (r *Registry) AppReceivedCounter(nodeID int, app string) prometheus.Counter {
	return r.appReceived.WithLabelValues(node(nodeID), app)
}

// ArpRequestCounter exposes the per-node ARP request counter.
func (r *Registry) ArpRequestCounter(nodeID int) prometheus.Counter {
	return r.arpRequests.WithLabelValues(node(nodeID))
}

// IPDropCounter exposes one network-layer drop counter.
func (r *Registry) IPDropCounter(nodeID int, reason string) prometheus.Counter {
	return r.ipDrops.WithLabelValues(node(nodeID), reason)
}

// Gatherer gives access to the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// WriteText dumps every metric family in the Prometheus text format.
func (r *Registry) WriteText(w io.Writer) error {
	families, err := r.reg.Gather()
	if err != nil {
		return fmt.Errorf("error gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("error writing metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

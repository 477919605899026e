// Package sim provides the discrete-event kernel the DSRC scenario runs on.
//
// # Reading Guide
//
// Start with these files to understand the kernel:
//   - time.go: tick units (nanoseconds) and conversions
//   - event.go: the Event interface and the cancellable ScheduledEvent
//   - event_heap.go: deterministic ordering of pending events
//   - simulator.go: the event loop, Schedule/ScheduleAt and Stop
//
// # Architecture
//
// The kernel knows nothing about radios or packets. Sub-packages build the
// scenario on top of it:
//   - sim/mobility/: positions and constant-velocity movement
//   - sim/propagation/: path loss and propagation delay
//   - sim/packet/: packets and their wire encoding
//   - sim/wifi/: channel, PHY, ad hoc MAC and net devices (802.11p)
//   - sim/inet/: IPv4 addressing, ARP and UDP sockets
//   - sim/apps/: UDP echo client and server
//   - sim/flowmon/: per-flow statistics
//   - sim/trace/: pcap and ascii traces
//   - sim/report/: the per-flow summary
//   - sim/scenario/: wiring everything together from a Config
//
// All randomness comes from per-node Streams so two runs with the same seed
// and configuration produce identical results.
package sim

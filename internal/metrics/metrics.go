// Package metrics defines the per-LP metrics structs collected during
// forward processing and reversed on rollback, plus the per-node/global
// collector types consumed by internal/report.
package metrics

// MasterMetrics tracks task submission outcomes for a single master LP.
type MasterMetrics struct {
	CompletedTasks uint64
	TurnaroundTime float64 // sum of (end_time - submit_time) over completed tasks
}

// Complete records a task completion in forward processing.
func (m *MasterMetrics) Complete(turnaround float64) {
	m.CompletedTasks++
	m.TurnaroundTime += turnaround
}

// ReverseComplete undoes Complete.
func (m *MasterMetrics) ReverseComplete(turnaround float64) {
	m.CompletedTasks--
	m.TurnaroundTime -= turnaround
}

// LinkMetrics tracks bandwidth usage for a single link LP.
type LinkMetrics struct {
	Mbits   float64
	Packets uint64
}

func (m *LinkMetrics) Record(size float64) {
	m.Mbits += size
	m.Packets++
}

func (m *LinkMetrics) Reverse(size float64) {
	m.Mbits -= size
	m.Packets--
}

// SwitchMetrics tracks forwarding volume for a stateless switch LP.
type SwitchMetrics struct {
	Mbits   float64
	Packets uint64
}

func (m *SwitchMetrics) Record(size float64) {
	m.Mbits += size
	m.Packets++
}

func (m *SwitchMetrics) Reverse(size float64) {
	m.Mbits -= size
	m.Packets--
}

// MachineMetrics tracks both pass-through forwarding and local processing
// at a machine LP.
type MachineMetrics struct {
	ForwardedPackets uint64

	ProcTasks uint64
	Mflops    float64
	ProcTime  float64
}

func (m *MachineMetrics) RecordForward() { m.ForwardedPackets++ }

func (m *MachineMetrics) ReverseForward() { m.ForwardedPackets-- }

func (m *MachineMetrics) RecordProc(procSize, procTime float64) {
	m.ProcTasks++
	m.Mflops += procSize
	m.ProcTime += procTime
}

func (m *MachineMetrics) ReverseProc(procSize, procTime float64) {
	m.ProcTasks--
	m.Mflops -= procSize
	m.ProcTime -= procTime
}

// VMMetrics has the identical shape to the processing half of
// MachineMetrics; a VM never forwards.
type VMMetrics struct {
	ProcTasks uint64
	Mflops    float64
	ProcTime  float64
}

func (m *VMMetrics) RecordProc(procSize, procTime float64) {
	m.ProcTasks++
	m.Mflops += procSize
	m.ProcTime += procTime
}

func (m *VMMetrics) ReverseProc(procSize, procTime float64) {
	m.ProcTasks--
	m.Mflops -= procSize
	m.ProcTime -= procTime
}

// VMMMetrics tracks the VMM's two-phase lifecycle outcomes: allocation and
// task scheduling.
type VMMMetrics struct {
	VmsAlloc    uint64
	VmsRejected uint64

	TasksProc       uint64
	TotalTurnaround float64
}

func (m *VMMMetrics) RecordAlloc()   { m.VmsAlloc++ }
func (m *VMMMetrics) ReverseAlloc()  { m.VmsAlloc-- }
func (m *VMMMetrics) RecordReject()  { m.VmsRejected++ }
func (m *VMMMetrics) ReverseReject() { m.VmsRejected-- }

func (m *VMMMetrics) RecordTask(turnaround float64) {
	m.TasksProc++
	m.TotalTurnaround += turnaround
}

func (m *VMMMetrics) ReverseTask(turnaround float64) {
	m.TasksProc--
	m.TotalTurnaround -= turnaround
}

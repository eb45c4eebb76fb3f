// Package report renders the per-node and global JSON reports: a per-LP
// report with a type discriminator, and a global summary keyed by
// total/average/system.processing/system.energy/users.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/ispd-go/ispd-go/internal/kernel"
	"github.com/ispd-go/ispd-go/internal/loader"
	"github.com/ispd-go/ispd-go/internal/metricsreduce"
)

// NodeEntries is a per-LP-id report, each entry carrying a "type"
// discriminator plus that LP kind's own metrics.
type NodeEntries map[kernel.Lpid]map[string]any

// BuildNodeEntries walks every LP registered in sim and renders its
// forward-accumulated metrics, keyed by Lpid.
func BuildNodeEntries(sim *loader.Simulation) NodeEntries {
	nodes := make(NodeEntries)

	for id, m := range sim.Masters {
		nodes[id] = map[string]any{
			"type":            "master",
			"completed_tasks": m.Metrics.CompletedTasks,
			"turnaround_time": m.Metrics.TurnaroundTime,
		}
	}
	for id, l := range sim.Links {
		nodes[id] = map[string]any{
			"type":    "link",
			"mbits":   l.Metrics.Mbits,
			"packets": l.Metrics.Packets,
		}
	}
	for id, s := range sim.Switches {
		nodes[id] = map[string]any{
			"type":    "switch",
			"mbits":   s.Metrics.Mbits,
			"packets": s.Metrics.Packets,
		}
	}
	for id, mc := range sim.Machines {
		nodes[id] = map[string]any{
			"type":              "machine",
			"forwarded_packets": mc.Metrics.ForwardedPackets,
			"proc_tasks":        mc.Metrics.ProcTasks,
			"mflops":            mc.Metrics.Mflops,
			"proc_time":         mc.Metrics.ProcTime,
			"gpu_power":         mc.Conf.GPUPower,
			"gpu_core_count":    mc.Conf.GPUCoreCount,
		}
	}
	for id, v := range sim.Vms {
		nodes[id] = map[string]any{
			"type":       "vm",
			"proc_tasks": v.Metrics.ProcTasks,
			"mflops":     v.Metrics.Mflops,
			"proc_time":  v.Metrics.ProcTime,
		}
	}
	for id, vm := range sim.Vmms {
		nodes[id] = map[string]any{
			"type":             "vmm",
			"vms_allocated":    vm.Metrics.VmsAlloc,
			"vms_rejected":     vm.Metrics.VmsRejected,
			"tasks_processed":  vm.Metrics.TasksProc,
			"total_turnaround": vm.Metrics.TotalTurnaround,
		}
	}
	return nodes
}

// WriteNodeReport writes nodes to "node_<rank>.json" inside dir, compact
// (not pretty-printed), matching the original's per-rank dump.
func WriteNodeReport(dir string, rank int, nodes NodeEntries) error {
	data, err := json.Marshal(nodes)
	if err != nil {
		return fmt.Errorf("marshaling node report: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("node_%d.json", rank))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing node report %s: %w", path, err)
	}
	return nil
}

// TotalSection aggregates counters that sum cleanly across every node.
type TotalSection struct {
	CompletedTasks uint64  `json:"completed_tasks"`
	TurnaroundTime float64 `json:"turnaround_time"`
	VmsAllocated   uint64  `json:"vms_allocated"`
	VmsRejected    uint64  `json:"vms_rejected"`
}

// AverageSection holds mean/stddev summaries computed via
// internal/metricsreduce.
type AverageSection struct {
	MasterTurnaroundTime metricsreduce.Summary `json:"master_turnaround_time"`
	ProcTime             metricsreduce.Summary `json:"proc_time"`
	CommMbits            metricsreduce.Summary `json:"comm_mbits"`
}

// ProcessingSection sums raw processing volume across machines and VMs.
type ProcessingSection struct {
	TotalMflops  float64 `json:"total_mflops"`
	TotalProcSec float64 `json:"total_proc_time"`
}

// EnergySection estimates energy consumption from each machine's
// wattage_idle/wattage_max bounds and its busy/idle share of horizon.
type EnergySection struct {
	EstimatedJoules float64 `json:"estimated_joules"`
}

type SystemSection struct {
	Processing ProcessingSection `json:"processing"`
	Energy     EnergySection     `json:"energy"`
}

type UserSection struct {
	Name            string  `json:"name"`
	IssuedTasks     uint64  `json:"issued_tasks"`
	CompletedTasks  uint64  `json:"completed_tasks"`
	ProcTime        float64 `json:"proc_time"`
	ProcWaitingTime float64 `json:"proc_waiting_time"`
}

// GlobalReport is the prettified, whole-run summary.
type GlobalReport struct {
	Total   TotalSection   `json:"total"`
	Average AverageSection `json:"average"`
	System  SystemSection  `json:"system"`
	Users   []UserSection  `json:"users"`
}

// BuildGlobalReport reduces every node's metrics into the global sections.
// horizon is the simulation's configured end time, used to estimate each
// machine's idle share for the energy section.
func BuildGlobalReport(sim *loader.Simulation, horizon float64) GlobalReport {
	var total TotalSection
	var turnarounds, procTimes, commMbits []float64
	var totalMflops, totalProcSec, joules float64

	for _, m := range sim.Masters {
		total.CompletedTasks += m.Metrics.CompletedTasks
		total.TurnaroundTime += m.Metrics.TurnaroundTime
		if m.Metrics.CompletedTasks > 0 {
			turnarounds = append(turnarounds, m.Metrics.TurnaroundTime/float64(m.Metrics.CompletedTasks))
		}
	}
	for _, l := range sim.Links {
		commMbits = append(commMbits, l.Metrics.Mbits)
	}
	for _, s := range sim.Switches {
		commMbits = append(commMbits, s.Metrics.Mbits)
	}
	for _, mc := range sim.Machines {
		totalMflops += mc.Metrics.Mflops
		totalProcSec += mc.Metrics.ProcTime
		if mc.Metrics.ProcTasks > 0 {
			procTimes = append(procTimes, mc.Metrics.ProcTime/float64(mc.Metrics.ProcTasks))
		}

		capacitySeconds := horizon * float64(mc.Conf.CoreCount)
		busy := math.Min(mc.Metrics.ProcTime, capacitySeconds)
		idle := math.Max(0, capacitySeconds-busy)
		joules += mc.Conf.WattageMax*busy + mc.Conf.WattageIdle*idle
	}
	for _, v := range sim.Vms {
		totalMflops += v.Metrics.Mflops
		totalProcSec += v.Metrics.ProcTime
		if v.Metrics.ProcTasks > 0 {
			procTimes = append(procTimes, v.Metrics.ProcTime/float64(v.Metrics.ProcTasks))
		}
	}
	for _, vm := range sim.Vmms {
		total.VmsAllocated += vm.Metrics.VmsAlloc
		total.VmsRejected += vm.Metrics.VmsRejected
	}

	users := make([]UserSection, 0, len(sim.Users.All()))
	for _, u := range sim.Users.All() {
		users = append(users, UserSection{
			Name:            u.Name,
			IssuedTasks:     u.Metrics.IssuedTasks,
			CompletedTasks:  u.Metrics.CompletedTasks,
			ProcTime:        u.Metrics.ProcTime,
			ProcWaitingTime: u.Metrics.ProcWaitingTime,
		})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })

	return GlobalReport{
		Total: total,
		Average: AverageSection{
			MasterTurnaroundTime: metricsreduce.Reduce(turnarounds),
			ProcTime:             metricsreduce.Reduce(procTimes),
			CommMbits:            metricsreduce.Reduce(commMbits),
		},
		System: SystemSection{
			Processing: ProcessingSection{TotalMflops: totalMflops, TotalProcSec: totalProcSec},
			Energy:     EnergySection{EstimatedJoules: joules},
		},
		Users: users,
	}
}

// WriteGlobalReport writes report as prettified JSON to "<dir>/report.json".
func WriteGlobalReport(dir string, report GlobalReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling global report: %w", err)
	}
	path := filepath.Join(dir, "report.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing global report %s: %w", path, err)
	}
	return nil
}

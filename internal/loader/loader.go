// Package loader parses the JSON model file and routing file into a fully
// wired kernel.Kernel, grounded on the original model's model_loader.cpp
// key-constant pattern (translated here into Go struct
// tags rather than C preprocessor macros) and its strict "unknown keys are
// errors" discipline.
package loader

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ispd-go/ispd-go/internal/errs"
	"github.com/ispd-go/ispd-go/internal/kernel"
	"github.com/ispd-go/ispd-go/internal/lp"
	"github.com/ispd-go/ispd-go/internal/model"
	"github.com/ispd-go/ispd-go/internal/policy"
	"github.com/ispd-go/ispd-go/internal/routing"
	"github.com/ispd-go/ispd-go/internal/workload"
)

type userDoc struct {
	Name        string  `json:"name"`
	EnergyLimit float64 `json:"energy_consumption_limit"`
}

type twoStageDoc struct {
	Min       float64 `json:"min"`
	Med       float64 `json:"med"`
	Max       float64 `json:"max"`
	StageProb float64 `json:"stage_prob"`
}

type interarrivalDoc struct {
	Type     string   `json:"type"`
	Lambda   *float64 `json:"lambda,omitempty"`
	Interval *float64 `json:"interval,omitempty"`
}

type workloadDoc struct {
	Type             string          `json:"type"`
	Owner            string          `json:"owner"`
	RemainingTasks   uint64          `json:"remaining_tasks"`
	MasterID         *kernel.Lpid    `json:"master_id,omitempty"`
	VmmID            *kernel.Lpid    `json:"vmm_id,omitempty"`
	ComputingOffload float64         `json:"computing_offload"`
	InterarrivalType interarrivalDoc `json:"interarrival_type"`

	ProcSize *float64 `json:"proc_size,omitempty"`
	CommSize *float64 `json:"comm_size,omitempty"`

	MinProcSize *float64 `json:"min_proc_size,omitempty"`
	MaxProcSize *float64 `json:"max_proc_size,omitempty"`
	MinCommSize *float64 `json:"min_comm_size,omitempty"`
	MaxCommSize *float64 `json:"max_comm_size,omitempty"`

	ProcDist *twoStageDoc `json:"proc_dist,omitempty"`
	CommDist *twoStageDoc `json:"comm_dist,omitempty"`
}

type masterDoc struct {
	ID        kernel.Lpid   `json:"id"`
	Scheduler string        `json:"scheduler"`
	Slaves    []kernel.Lpid `json:"slaves"`
}

type machineDoc struct {
	ID        kernel.Lpid `json:"id"`
	Power     float64     `json:"power"`
	Load      float64     `json:"load"`
	CoreCount int         `json:"core_count"`

	GPUPower                    *float64 `json:"gpu_power,omitempty"`
	GPUCoreCount                *int     `json:"gpu_core_count,omitempty"`
	GPUInterconnectionBandwidth *float64 `json:"gpu_interconnection_bandwidth,omitempty"`

	WattageIdle float64 `json:"wattage_idle"`
	WattageMax  float64 `json:"wattage_max"`

	AvailableMem   float64 `json:"available_mem"`
	AvailableDisk  float64 `json:"available_disk"`
	AvailableCores int     `json:"available_cores"`
}

type linkDoc struct {
	ID        kernel.Lpid `json:"id"`
	From      kernel.Lpid `json:"from"`
	To        kernel.Lpid `json:"to"`
	Bandwidth float64     `json:"bandwidth"`
	Load      float64     `json:"load"`
	Latency   float64     `json:"latency"`
}

type switchDoc struct {
	ID        kernel.Lpid `json:"id"`
	Bandwidth float64     `json:"bandwidth"`
	Load      float64     `json:"load"`
	Latency   float64     `json:"latency"`
}

type vmDescDoc struct {
	ID    kernel.Lpid `json:"id"`
	Mem   float64     `json:"mem"`
	Disk  float64     `json:"disk"`
	Cores int         `json:"cores"`
}

type vmmDoc struct {
	ID        kernel.Lpid   `json:"id"`
	Allocator string        `json:"allocator"`
	Scheduler string        `json:"scheduler"`
	Machines  []kernel.Lpid `json:"machines"`
	Vms       []vmDescDoc   `json:"vms"`
}

type vmDoc struct {
	ID        kernel.Lpid `json:"id"`
	Power     float64     `json:"power"`
	Load      float64     `json:"load"`
	CoreCount int         `json:"core_count"`
}

type servicesDoc struct {
	Masters  []masterDoc  `json:"masters"`
	Machines []machineDoc `json:"machines"`
	Links    []linkDoc    `json:"links,omitempty"`
	Switches []switchDoc  `json:"switches,omitempty"`
	Vmms     []vmmDoc     `json:"vmms,omitempty"`
	Vms      []vmDoc      `json:"vms,omitempty"`
}

type modelDoc struct {
	Users     []userDoc     `json:"users"`
	Workloads []workloadDoc `json:"workloads"`
	Services  servicesDoc   `json:"services"`
}

// Simulation is a fully wired kernel plus typed handles onto every LP, so a
// CLI driver and internal/report can read final metrics after kernel.Run
// without reaching into the kernel's private handler map.
type Simulation struct {
	Kernel    *kernel.Kernel
	Users     *model.UserRegistry
	Routes    *routing.Table
	NodeTypes map[kernel.Lpid]string

	Masters  map[kernel.Lpid]*lp.Master
	Links    map[kernel.Lpid]*lp.Link
	Switches map[kernel.Lpid]*lp.Switch
	Machines map[kernel.Lpid]*lp.Machine
	Vms      map[kernel.Lpid]*lp.VirtualMachine
	Vmms     map[kernel.Lpid]*lp.VMM
}

// Load parses a model-file JSON document and a routing file, wiring every
// LP into a fresh Kernel. Unknown JSON keys are errors.
func Load(modelR, routesR io.Reader, lookahead float64, seed int64) (*Simulation, error) {
	var doc modelDoc
	dec := json.NewDecoder(modelR)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding model file: %w", err)
	}

	routes, err := routing.Load(routesR)
	if err != nil {
		return nil, err
	}

	users := model.NewUserRegistry()
	for i, u := range doc.Users {
		if _, err := users.Register(u.Name, u.EnergyLimit); err != nil {
			return nil, fmt.Errorf("users[%d]: %w", i, err)
		}
	}

	masterWorkloads := make(map[kernel.Lpid]workloadDoc)
	vmmWorkloads := make(map[kernel.Lpid]workloadDoc)
	for i, w := range doc.Workloads {
		switch {
		case w.MasterID != nil && w.VmmID != nil:
			return nil, fmt.Errorf("workloads[%d]: cannot set both master_id and vmm_id", i)
		case w.MasterID != nil:
			masterWorkloads[*w.MasterID] = w
		case w.VmmID != nil:
			vmmWorkloads[*w.VmmID] = w
		default:
			return nil, fmt.Errorf("workloads[%d]: must set master_id or vmm_id", i)
		}
	}

	k := kernel.NewKernel(lookahead, seed)
	sim := &Simulation{
		Kernel:    k,
		Users:     users,
		Routes:    routes,
		NodeTypes: make(map[kernel.Lpid]string),
		Masters:   make(map[kernel.Lpid]*lp.Master),
		Links:     make(map[kernel.Lpid]*lp.Link),
		Switches:  make(map[kernel.Lpid]*lp.Switch),
		Machines:  make(map[kernel.Lpid]*lp.Machine),
		Vms:       make(map[kernel.Lpid]*lp.VirtualMachine),
		Vmms:      make(map[kernel.Lpid]*lp.VMM),
	}

	for i, md := range doc.Services.Machines {
		conf := model.MachineConfig{
			Power:     md.Power,
			Load:      md.Load,
			CoreCount: md.CoreCount,

			WattageIdle: md.WattageIdle,
			WattageMax:  md.WattageMax,

			AvailableMem:   md.AvailableMem,
			AvailableDisk:  md.AvailableDisk,
			AvailableCores: md.AvailableCores,
		}
		if md.GPUPower != nil {
			conf.GPUPower = *md.GPUPower
		}
		if md.GPUCoreCount != nil {
			conf.GPUCoreCount = *md.GPUCoreCount
		}
		if md.GPUInterconnectionBandwidth != nil {
			conf.GPUInterconnectionBandwidth = *md.GPUInterconnectionBandwidth
		}
		if err := conf.Validate(); err != nil {
			return nil, fmt.Errorf("services.machines[%d]: %w", i, err)
		}

		machine := lp.NewMachine(conf, routes)
		if err := k.Register(md.ID, machine); err != nil {
			return nil, fmt.Errorf("services.machines[%d]: %w", i, err)
		}
		sim.Machines[md.ID] = machine
		sim.NodeTypes[md.ID] = "machine"
	}

	for i, ld := range doc.Services.Links {
		conf := model.LinkConfig{Bandwidth: ld.Bandwidth, Load: ld.Load, Latency: ld.Latency}
		if err := conf.Validate(); err != nil {
			return nil, fmt.Errorf("services.links[%d]: %w", i, err)
		}
		link := &lp.Link{From: ld.From, To: ld.To, Conf: conf}
		if err := k.Register(ld.ID, link); err != nil {
			return nil, fmt.Errorf("services.links[%d]: %w", i, err)
		}
		sim.Links[ld.ID] = link
		sim.NodeTypes[ld.ID] = "link"
	}

	for i, sd := range doc.Services.Switches {
		conf := model.SwitchConfig{Bandwidth: sd.Bandwidth, Load: sd.Load, Latency: sd.Latency}
		if err := conf.Validate(); err != nil {
			return nil, fmt.Errorf("services.switches[%d]: %w", i, err)
		}
		sw := &lp.Switch{Conf: conf, Routes: routes}
		if err := k.Register(sd.ID, sw); err != nil {
			return nil, fmt.Errorf("services.switches[%d]: %w", i, err)
		}
		sim.Switches[sd.ID] = sw
		sim.NodeTypes[sd.ID] = "switch"
	}

	for i, vd := range doc.Services.Vms {
		conf := model.VmConfig{Power: vd.Power, Load: vd.Load, CoreCount: vd.CoreCount}
		if err := conf.Validate(); err != nil {
			return nil, fmt.Errorf("services.vms[%d]: %w", i, err)
		}
		vm := lp.NewVirtualMachine(conf, users)
		if err := k.Register(vd.ID, vm); err != nil {
			return nil, fmt.Errorf("services.vms[%d]: %w", i, err)
		}
		sim.Vms[vd.ID] = vm
		sim.NodeTypes[vd.ID] = "vm"
	}

	for i, md := range doc.Services.Masters {
		wd, ok := masterWorkloads[md.ID]
		if !ok {
			return nil, fmt.Errorf("services.masters[%d]: no workload references master_id %d", i, md.ID)
		}
		wl, err := buildWorkload(wd, users)
		if err != nil {
			return nil, fmt.Errorf("workload for master %d: %w", md.ID, err)
		}
		ia, err := buildInterarrival(wd.InterarrivalType)
		if err != nil {
			return nil, fmt.Errorf("interarrival for master %d: %w", md.ID, err)
		}
		sched, err := buildScheduler(md.Scheduler)
		if err != nil {
			return nil, fmt.Errorf("services.masters[%d]: %w", i, err)
		}

		master := &lp.Master{
			Slaves:       md.Slaves,
			Scheduler:    sched,
			Workload:     wl,
			Interarrival: ia,
			Routes:       routes,
			Users:        users,
		}
		if err := k.Register(md.ID, master); err != nil {
			return nil, fmt.Errorf("services.masters[%d]: %w", i, err)
		}
		sim.Masters[md.ID] = master
		sim.NodeTypes[md.ID] = "master"
	}

	for i, vd := range doc.Services.Vmms {
		wd, ok := vmmWorkloads[vd.ID]
		if !ok {
			return nil, fmt.Errorf("services.vmms[%d]: no workload references vmm_id %d", i, vd.ID)
		}
		wl, err := buildWorkload(wd, users)
		if err != nil {
			return nil, fmt.Errorf("workload for vmm %d: %w", vd.ID, err)
		}
		ia, err := buildInterarrival(wd.InterarrivalType)
		if err != nil {
			return nil, fmt.Errorf("interarrival for vmm %d: %w", vd.ID, err)
		}
		sched, err := buildScheduler(vd.Scheduler)
		if err != nil {
			return nil, fmt.Errorf("services.vmms[%d]: %w", i, err)
		}
		alloc, err := buildAllocator(vd.Allocator)
		if err != nil {
			return nil, fmt.Errorf("services.vmms[%d]: %w", i, err)
		}

		vms := make([]lp.SlaveVM, 0, len(vd.Vms))
		for _, sv := range vd.Vms {
			vms = append(vms, lp.SlaveVM{ID: sv.ID, Mem: sv.Mem, Disk: sv.Disk, Cores: sv.Cores})
		}
		if _, ok := alloc.(*policy.FirstFitDecreasing); ok {
			sortVMsDescending(vms)
		}

		vmm := &lp.VMM{
			VMs:          vms,
			Machines:     vd.Machines,
			Scheduler:    sched,
			Allocator:    alloc,
			Workload:     wl,
			Interarrival: ia,
			Routes:       routes,
		}
		if err := k.Register(vd.ID, vmm); err != nil {
			return nil, fmt.Errorf("services.vmms[%d]: %w", i, err)
		}
		sim.Vmms[vd.ID] = vmm
		sim.NodeTypes[vd.ID] = "vmm"
	}

	return sim, nil
}

// sortVMsDescending orders vms by policy.VMSortKey, descending, as
// FirstFitDecreasing requires.
func sortVMsDescending(vms []lp.SlaveVM) {
	for i := 1; i < len(vms); i++ {
		v := vms[i]
		key := policy.VMSortKey(v.Cores, v.Mem, v.Disk)
		j := i - 1
		for j >= 0 && policy.VMSortKey(vms[j].Cores, vms[j].Mem, vms[j].Disk) < key {
			vms[j+1] = vms[j]
			j--
		}
		vms[j+1] = v
	}
}

func buildWorkload(w workloadDoc, users *model.UserRegistry) (workload.Workload, error) {
	owner, err := users.ByName(w.Owner)
	if err != nil {
		return nil, err
	}

	switch w.Type {
	case "constant":
		if w.ProcSize == nil || w.CommSize == nil {
			return nil, fmt.Errorf("%w: constant workload requires proc_size and comm_size", errs.ErrInvalidConfig)
		}
		return workload.NewConstantWorkload(owner.ID, w.RemainingTasks, *w.ProcSize, *w.CommSize, w.ComputingOffload)
	case "uniform":
		if w.MinProcSize == nil || w.MaxProcSize == nil || w.MinCommSize == nil || w.MaxCommSize == nil {
			return nil, fmt.Errorf("%w: uniform workload requires min/max proc_size and comm_size", errs.ErrInvalidConfig)
		}
		return workload.NewUniformWorkload(owner.ID, w.RemainingTasks,
			*w.MinProcSize, *w.MaxProcSize, *w.MinCommSize, *w.MaxCommSize, w.ComputingOffload)
	case "two_stage":
		if w.ProcDist == nil || w.CommDist == nil {
			return nil, fmt.Errorf("%w: two_stage workload requires proc_dist and comm_dist", errs.ErrInvalidConfig)
		}
		return workload.NewTwoStageWorkload(owner.ID, w.RemainingTasks,
			workload.TwoStageDistribution{Min: w.ProcDist.Min, Med: w.ProcDist.Med, Max: w.ProcDist.Max, StageProb: w.ProcDist.StageProb},
			workload.TwoStageDistribution{Min: w.CommDist.Min, Med: w.CommDist.Med, Max: w.CommDist.Max, StageProb: w.CommDist.StageProb},
			w.ComputingOffload)
	case "null":
		return workload.NewNullWorkload(owner.ID), nil
	default:
		return nil, fmt.Errorf("%w: unknown workload type %q", errs.ErrInvalidConfig, w.Type)
	}
}

func buildInterarrival(d interarrivalDoc) (workload.InterarrivalDistribution, error) {
	switch d.Type {
	case "fixed":
		if d.Interval == nil {
			return nil, fmt.Errorf("%w: fixed interarrival requires interval", errs.ErrInvalidConfig)
		}
		return workload.NewFixed(*d.Interval)
	case "poisson":
		if d.Lambda == nil {
			return nil, fmt.Errorf("%w: poisson interarrival requires lambda", errs.ErrInvalidConfig)
		}
		return workload.NewPoisson(*d.Lambda)
	default:
		return nil, fmt.Errorf("%w: unknown interarrival type %q", errs.ErrInvalidConfig, d.Type)
	}
}

func buildScheduler(name string) (policy.Scheduler, error) {
	switch name {
	case "RoundRobin":
		return policy.NewRoundRobin(), nil
	case "Workqueue":
		return policy.NewWorkqueue(), nil
	default:
		return nil, fmt.Errorf("%w: unknown scheduler %q", errs.ErrInvalidConfig, name)
	}
}

func buildAllocator(name string) (policy.Allocator, error) {
	switch name {
	case "FirstFit":
		return policy.NewFirstFit(), nil
	case "FirstFitDecreasing":
		return policy.NewFirstFitDecreasing(), nil
	default:
		return nil, fmt.Errorf("%w: unknown allocator %q", errs.ErrInvalidConfig, name)
	}
}

package lp

import (
	"testing"

	"github.com/ispd-go/ispd-go/internal/kernel"
	"github.com/ispd-go/ispd-go/internal/model"
)

func TestLink_ForwardSchedulesDownwardArrivalAndRecordsMetrics(t *testing.T) {
	k := kernel.NewKernel(0, 1)
	link := &Link{
		From: 1, To: 2,
		Conf: model.LinkConfig{Bandwidth: 100, Load: 0, Latency: 1},
	}
	_ = k.Register(10, link)

	ev := &kernel.Event{
		Kind:     kernel.Arrival,
		Task:     kernel.Task{CommSize: 100},
		Downward: true,
	}
	link.Forward(k, 10, ev)

	if link.Metrics.Packets != 1 || link.Metrics.Mbits != 100 {
		t.Fatalf("expected metrics updated, got %+v", link.Metrics)
	}
	// 100 Mbits at full 100 Mbit/s bandwidth plus 1s latency = 2s.
	if link.DownwardNextFree != 2 {
		t.Fatalf("expected downward next-free at 2, got %v", link.DownwardNextFree)
	}
	if link.UpwardNextFree != 0 {
		t.Fatalf("expected upward next-free untouched, got %v", link.UpwardNextFree)
	}
}

func TestLink_ForwardQueuesWhenBusy(t *testing.T) {
	k := kernel.NewKernel(0, 1)
	link := &Link{
		From: 1, To: 2,
		Conf:           model.LinkConfig{Bandwidth: 100, Load: 0, Latency: 0},
		UpwardNextFree: 5,
	}
	_ = k.Register(10, link)

	ev := &kernel.Event{Kind: kernel.Arrival, Task: kernel.Task{CommSize: 100}, Downward: false}
	link.Forward(k, 10, ev)

	// Queued behind the existing 5s reservation, then 1s of transmission.
	if link.UpwardNextFree != 6 {
		t.Fatalf("expected upward next-free at 6, got %v", link.UpwardNextFree)
	}
}

func TestLink_ForwardRejectsGenerateEvent(t *testing.T) {
	k := kernel.NewKernel(0, 1)
	link := &Link{Conf: model.LinkConfig{Bandwidth: 100, Load: 0, Latency: 0}}
	_ = k.Register(10, link)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected a panic on a non-arrival event")
		}
	}()
	link.Forward(k, 10, &kernel.Event{Kind: kernel.Generate})
}

func TestLink_ReverseRestoresNextFreeAndMetrics(t *testing.T) {
	k := kernel.NewKernel(0, 1)
	link := &Link{Conf: model.LinkConfig{Bandwidth: 100, Load: 0, Latency: 1}}
	_ = k.Register(10, link)

	ev := &kernel.Event{Kind: kernel.Arrival, Task: kernel.Task{CommSize: 100}, Downward: true}
	link.Forward(k, 10, ev)
	link.Reverse(k, 10, ev)

	if link.DownwardNextFree != 0 {
		t.Fatalf("expected downward next-free restored to 0, got %v", link.DownwardNextFree)
	}
	if link.Metrics.Packets != 0 || link.Metrics.Mbits != 0 {
		t.Fatalf("expected metrics restored to zero, got %+v", link.Metrics)
	}
}

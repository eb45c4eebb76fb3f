package policy

import (
	"testing"

	"github.com/ispd-go/ispd-go/internal/kernel"
)

func TestFirstFit_CyclesAndWraps(t *testing.T) {
	machines := []kernel.Lpid{1, 2}
	f := NewFirstFit()
	f.Init(machines)

	ev1 := &kernel.Event{}
	got, err := f.ForwardAllocate(machines, ev1)
	if err != nil || got != 1 {
		t.Fatalf("expected machine 1, got %v err %v", got, err)
	}
	ev2 := &kernel.Event{}
	got, err = f.ForwardAllocate(machines, ev2)
	if err != nil || got != 2 {
		t.Fatalf("expected machine 2, got %v err %v", got, err)
	}
	if !ev2.Bitfield().C0() {
		t.Error("expected wrap-around allocation to set c0")
	}

	f.ReverseAllocate(machines, ev2)
	f.ReverseAllocate(machines, ev1)
	if f.nextIndex != 0 {
		t.Fatalf("expected index restored to 0, got %d", f.nextIndex)
	}
}

func TestFirstFit_EmptyMachinesFails(t *testing.T) {
	f := NewFirstFit()
	f.Init(nil)
	if _, err := f.ForwardAllocate(nil, &kernel.Event{}); err == nil {
		t.Fatal("expected an error allocating with no machines")
	}
}

func TestFirstFitDecreasing_SharesFirstFitMechanics(t *testing.T) {
	machines := []kernel.Lpid{5, 6, 7}
	fd := NewFirstFitDecreasing()
	fd.Init(machines)

	ev := &kernel.Event{}
	got, err := fd.ForwardAllocate(machines, ev)
	if err != nil || got != 5 {
		t.Fatalf("expected machine 5, got %v err %v", got, err)
	}
	fd.ReverseAllocate(machines, ev)
	if fd.nextIndex != 0 {
		t.Fatalf("expected index restored to 0, got %d", fd.nextIndex)
	}
}

func TestVMSortKey_GrowsWithCoresAndMem(t *testing.T) {
	small := VMSortKey(1, 1, 1)
	large := VMSortKey(2, 1, 1)
	if !(large > small) {
		t.Fatalf("expected more cores to produce a larger sort key: small=%v large=%v", small, large)
	}

	sameCores1 := VMSortKey(2, 1, 1)
	sameCores2 := VMSortKey(2, 4, 1)
	if !(sameCores2 > sameCores1) {
		t.Fatalf("expected more memory to produce a larger sort key at equal cores")
	}
}

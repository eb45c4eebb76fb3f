package lp

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ispd-go/ispd-go/internal/errs"
	"github.com/ispd-go/ispd-go/internal/kernel"
	"github.com/ispd-go/ispd-go/internal/metrics"
	"github.com/ispd-go/ispd-go/internal/model"
	"github.com/ispd-go/ispd-go/internal/routing"
)

// Switch is a stateless forwarder: a G/G/∞ abstraction with metrics but
// no queueing.
type Switch struct {
	Conf    model.SwitchConfig
	Routes  *routing.Table
	Metrics metrics.SwitchMetrics
}

func (s *Switch) Init(k *kernel.Kernel, self kernel.Lpid) {}

func (s *Switch) Forward(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	if ev.Kind != kernel.Arrival {
		panic(fmt.Errorf("%w: switch %d received non-arrival event kind %s", errs.ErrPolicyViolation, self, ev.Kind))
	}

	commTime := s.Conf.TimeToComm(ev.Task.CommSize)
	s.Metrics.Record(ev.Task.CommSize)

	route, err := s.Routes.GetRoute(ev.Task.Origin, ev.Task.Dest)
	if err != nil {
		panic(err)
	}

	sendTo := route.At(ev.RouteOffset)

	next := *ev
	next.Saved = kernel.ReverseScratch{}
	next.SetBitfield(0)
	next.PreviousService = self
	if ev.Downward {
		next.RouteOffset = ev.RouteOffset + 1
	} else {
		next.RouteOffset = ev.RouteOffset - 1
	}
	logrus.Debugf("switch %d: forwarding offset %d to %d, commTime=%.4f", self, ev.RouteOffset, sendTo, commTime)
	k.Schedule(self, sendTo, commTime, &next)
}

func (s *Switch) Reverse(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	s.Metrics.Reverse(ev.Task.CommSize)
}

func (s *Switch) Commit(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {}

func (s *Switch) Finish(k *kernel.Kernel, self kernel.Lpid) {}

package lp

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/ispd-go/ispd-go/internal/errs"
	"github.com/ispd-go/ispd-go/internal/kernel"
	"github.com/ispd-go/ispd-go/internal/metrics"
	"github.com/ispd-go/ispd-go/internal/model"
)

// Link is the bidirectional queueing channel: two independent
// next-free-time scalars, one per direction, each behaving as a G/G/1
// queue.
type Link struct {
	From, To kernel.Lpid
	Conf     model.LinkConfig
	Metrics  metrics.LinkMetrics

	UpwardNextFree   float64
	DownwardNextFree float64
}

func (l *Link) Init(k *kernel.Kernel, self kernel.Lpid) {}

func (l *Link) Forward(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	if ev.Kind != kernel.Arrival {
		panic(fmt.Errorf("%w: link %d received non-arrival event kind %s", errs.ErrPolicyViolation, self, ev.Kind))
	}

	nextFree := &l.UpwardNextFree
	sendTo := l.From
	if ev.Downward {
		nextFree = &l.DownwardNextFree
		sendTo = l.To
	}

	waiting := math.Max(0, *nextFree-k.Now())
	departure := waiting + l.Conf.TimeToComm(ev.Task.CommSize)

	ev.Saved.LinkNextFree = *nextFree
	l.Metrics.Record(ev.Task.CommSize)
	*nextFree = k.Now() + departure

	next := *ev
	next.Saved = kernel.ReverseScratch{}
	next.SetBitfield(0)
	next.PreviousService = self
	logrus.Debugf("link %d: forwarding comm=%.2f to %d, departure=%.4f", self, ev.Task.CommSize, sendTo, departure)
	k.Schedule(self, sendTo, departure, &next)
}

func (l *Link) Reverse(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	if ev.Downward {
		l.DownwardNextFree = ev.Saved.LinkNextFree
	} else {
		l.UpwardNextFree = ev.Saved.LinkNextFree
	}
	l.Metrics.Reverse(ev.Task.CommSize)
}

func (l *Link) Commit(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {}

func (l *Link) Finish(k *kernel.Kernel, self kernel.Lpid) {}

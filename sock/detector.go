package sock

import (
	"time"

	"github.com/678uhb/this-space/poller"
	"go.uber.org/zap"
)

// Interest is the set of directions a handle is watched for.
type Interest uint8

const (
	Read Interest = 1 << iota
	Write

	ReadWrite = Read | Write
)

func (in Interest) String() string {
	switch in {
	case Read:
		return "READ"
	case Write:
		return "WRITE"
	case ReadWrite:
		return "READ_WRITE"
	default:
		return "NONE"
	}
}

type registration struct {
	r        Registrant
	fd       int
	interest Interest
}

// Detector waits for readiness on a registry of handles. The registry is
// consumed by every Wait: callers re-add what they want watched before each
// call. A Detector is meant to be owned by a single goroutine.
type Detector struct {
	regs  []registration
	index map[int]int // fd -> position in regs
}

func NewDetector() *Detector {
	return &Detector{index: make(map[int]int)}
}

// Add registers h for interest, Read when none is given. Adding a handle
// that is already registered widens its interest. Closed handles are
// ignored.
func (d *Detector) Add(h Registrant, interest ...Interest) {
	in := Read
	if len(interest) > 0 {
		in = 0
		for _, i := range interest {
			in |= i
		}
	}
	in &= ReadWrite
	if in == 0 {
		return
	}
	fd := h.handle().Fd()
	if fd == closedFD {
		log().Debug("skip closed handle", zap.Stringer("kind", h.kind()))
		return
	}
	if idx, ok := d.index[fd]; ok {
		d.regs[idx].interest |= in
		d.regs[idx].r = h
		return
	}
	d.index[fd] = len(d.regs)
	d.regs = append(d.regs, registration{r: h, fd: fd, interest: in})
}

// Len is the number of registered handles.
func (d *Detector) Len() int { return len(d.regs) }

// Reset drops every registration.
func (d *Detector) Reset() {
	d.regs = d.regs[:0]
	clear(d.index)
}

// Wait performs one readiness poll bounded by deadline and returns the ready
// handles split by interest. A handle shows up at most once per bucket and
// only in buckets it was registered for. A zero deadline polls once without
// blocking. The registry is cleared before Wait returns.
func (d *Detector) Wait(deadline time.Duration) (ReadySet, error) {
	defer d.Reset()

	p, err := poller.New()
	if err != nil {
		return ReadySet{}, err
	}
	defer p.Close()

	for _, reg := range d.regs {
		if err := p.Register(reg.fd, reg.interest&Read != 0, reg.interest&Write != 0); err != nil {
			return ReadySet{}, err
		}
	}
	evs, err := p.Wait(deadline)
	if err != nil {
		return ReadySet{}, err
	}

	var ready ReadySet
	var seen map[int]Interest
	if len(evs) > 0 {
		seen = make(map[int]Interest, len(evs))
	}
	for _, ev := range evs {
		idx, ok := d.index[ev.FD]
		if !ok {
			continue
		}
		reg := d.regs[idx]
		if ev.Readable && reg.interest&Read != 0 && seen[idx]&Read == 0 {
			seen[idx] |= Read
			ready.Read = append(ready.Read, newEvent(reg.r))
		}
		if ev.Writable && reg.interest&Write != 0 && seen[idx]&Write == 0 {
			seen[idx] |= Write
			ready.Write = append(ready.Write, newEvent(reg.r))
		}
	}
	return ready, nil
}

package sock

import "fmt"

// Kind tags the concrete handle carried by an Event.
type Kind uint8

const (
	KindSocket Kind = iota + 1
	KindListener
)

func (k Kind) String() string {
	switch k {
	case KindSocket:
		return "Socket"
	case KindListener:
		return "Listener"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Registrant is implemented by *Socket and *Listener only; the unexported
// methods keep the set closed.
type Registrant interface {
	kind() Kind
	handle() *Handle
}

// Event reports one ready handle together with its kind. Extracting it as
// the wrong kind is a programming error and panics.
type Event struct {
	kind Kind
	h    Registrant
}

func newEvent(r Registrant) Event { return Event{kind: r.kind(), h: r} }

func (e Event) Kind() Kind { return e.kind }

func (e Event) Is(k Kind) bool { return e.kind == k }

func (e Event) IsSocket() bool { return e.kind == KindSocket }

func (e Event) IsListener() bool { return e.kind == KindListener }

func (e Event) Socket() *Socket {
	e.must(KindSocket)
	return e.h.(*Socket)
}

func (e Event) Listener() *Listener {
	e.must(KindListener)
	return e.h.(*Listener)
}

func (e Event) must(k Kind) {
	if e.kind != k {
		panic(fmt.Sprintf("sock: event holds %v, not %v", e.kind, k))
	}
}

// ReadySet partitions the handles reported by one Detector.Wait call. Order
// within a bucket follows the order the OS reported them in.
type ReadySet struct {
	Read  []Event
	Write []Event
}

// Bucket returns the events for a single interest; ReadWrite is not a bucket.
func (r ReadySet) Bucket(in Interest) []Event {
	switch in {
	case Read:
		return r.Read
	case Write:
		return r.Write
	default:
		return nil
	}
}

func (r ReadySet) Len() int { return len(r.Read) + len(r.Write) }

func (r ReadySet) Empty() bool { return r.Len() == 0 }

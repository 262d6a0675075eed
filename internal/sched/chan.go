package sched

import "kestrel/internal/cpu"

// ChanCapacity is every channel's fixed ring-buffer capacity.
const ChanCapacity = 8

// LocatorKind tags what a Locator names.
type LocatorKind int

const (
	LocatorUnknown LocatorKind = iota
	LocatorProcess
	LocatorDevice
)

// Locator is the tagged source/destination word carried by Send/Recv: a
// process pid, a device tag, or unknown (the zero value).
type Locator struct {
	Kind  LocatorKind
	Value uint64
}

// Message is one channel entry: a value plus where it came from.
type Message struct {
	Value uint64
	From  Locator
}

// Chan is a bounded per-process message ring. head/last are monotonic
// read/write cursors (mod 256, comfortably larger than ChanCapacity) so
// full/empty reduce to simple subtraction rather than needing a separate
// count field.
type Chan struct {
	lock  cpu.MCSLock
	buf   [ChanCapacity]Message
	head  uint8
	last  uint8
	owner uint8
}

func newChan(owner uint8) *Chan {
	return &Chan{owner: owner}
}

func (c *Chan) full() bool {
	return c.last-c.head == ChanCapacity
}

func (c *Chan) empty() bool {
	return c.head == c.last
}

func (c *Chan) push(m Message) {
	c.buf[c.last%ChanCapacity] = m
	c.last++
}

func (c *Chan) pop() Message {
	m := c.buf[c.head%ChanCapacity]
	c.head++
	return m
}

// Sender is a channel's send endpoint.
type Sender struct{ ch *Chan }

// Receiver is a channel's receive endpoint.
type Receiver struct{ ch *Chan }

// Send enqueues val (tagged with its sender's Locator) into the channel.
// Non-blocking by design: a full channel is the sender's problem to
// retry or drop, never the kernel's to block on. On success, if the
// owning process was blocked in Recv, it's woken and made Ready, and the
// sender yields.
func (s *Sender) Send(val uint64, from Locator) bool {
	var cnode cpu.MCSNode
	s.ch.lock.Lock(&cnode)

	if s.ch.full() {
		s.ch.lock.Unlock(&cnode)
		return false
	}
	s.ch.push(Message{Value: val, From: from})
	owner := s.ch.owner

	// Fixed cross-lock order: this channel's lock, then procInfo.
	var pnode cpu.MCSNode
	procInfo.Lock(&pnode)
	if table[owner].state == stateRecv {
		table[owner].state = stateReady
		enqueueReady(int(owner))
	}
	procInfo.Unlock(&pnode)

	s.ch.lock.Unlock(&cnode)

	Schedule()
	return true
}

// Recv dequeues the next message, blocking (by yielding to the
// scheduler and retrying on wake) while the channel is empty.
func (r *Receiver) Recv() (uint64, Locator) {
	for {
		var cnode cpu.MCSNode
		r.ch.lock.Lock(&cnode)

		if !r.ch.empty() {
			m := r.ch.pop()
			r.ch.lock.Unlock(&cnode)
			return m.Value, m.From
		}

		var pnode cpu.MCSNode
		procInfo.Lock(&pnode)
		owner := r.ch.owner
		table[owner].state = stateRecv
		actives[cpu.CoreID()] = -1
		procInfo.Unlock(&pnode)

		r.ch.lock.Unlock(&cnode)

		Schedule()
	}
}

// Send delivers val to the process loc names, tagging it with from. It
// fails if loc isn't a process locator, names a stale generation, or the
// target's channel is gone (exited).
func Send(loc Locator, val uint64, from Locator) bool {
	if loc.Kind != LocatorProcess {
		return false
	}
	id := uint8(loc.Value)
	gen := uint16(loc.Value >> 8)

	var node cpu.MCSNode
	procInfo.Lock(&node)
	if generation[id] != gen || table[id].channel == nil {
		procInfo.Unlock(&node)
		return false
	}
	ch := table[id].channel
	procInfo.Unlock(&node)

	s := Sender{ch: ch}
	return s.Send(val, from)
}

// Recv blocks until a message arrives on process id's own channel.
func Recv(id uint8) (uint64, Locator) {
	var node cpu.MCSNode
	procInfo.Lock(&node)
	ch := table[id].channel
	procInfo.Unlock(&node)

	r := Receiver{ch: ch}
	return r.Recv()
}

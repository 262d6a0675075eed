package sched

import "testing"

func TestChanPushPopPreservesFIFOOrder(t *testing.T) {
	c := newChan(0)
	c.push(Message{Value: 1})
	c.push(Message{Value: 2})
	c.push(Message{Value: 3})

	for _, want := range []uint64{1, 2, 3} {
		if got := c.pop().Value; got != want {
			t.Fatalf("pop = %d, want %d", got, want)
		}
	}
}

func TestChanFullAfterCapacityPushes(t *testing.T) {
	c := newChan(0)
	for i := 0; i < ChanCapacity; i++ {
		if c.full() {
			t.Fatalf("channel reported full after only %d pushes", i)
		}
		c.push(Message{Value: uint64(i)})
	}
	if !c.full() {
		t.Fatal("expected channel to report full after ChanCapacity pushes")
	}
}

func TestChanEmptyAfterDrain(t *testing.T) {
	c := newChan(0)
	c.push(Message{Value: 42})
	c.pop()
	if !c.empty() {
		t.Fatal("expected channel to report empty after draining its only message")
	}
}

func TestSenderSendRejectsWhenChannelFull(t *testing.T) {
	resetProcInfo(t)
	stubHooks(t)

	pid, _ := Spawn(1)
	id := RawID(uint64(pid))
	ch := table[id].channel
	s := Sender{ch: ch}

	for i := 0; i < ChanCapacity; i++ {
		if !s.Send(uint64(i), Locator{}) {
			t.Fatalf("send %d unexpectedly rejected before the channel was full", i)
		}
	}
	if s.Send(99, Locator{}) {
		t.Fatal("expected Send to reject once the channel is at capacity")
	}
}

func TestSenderSendWakesRecvBlockedOwner(t *testing.T) {
	resetProcInfo(t)
	stubHooks(t)

	pid, _ := Spawn(1)
	id := RawID(uint64(pid))
	table[id].state = stateRecv

	s := Sender{ch: table[id].channel}
	if !s.Send(7, Locator{Kind: LocatorProcess, Value: uint64(pid)}) {
		t.Fatal("expected Send to succeed with room in the channel")
	}
	if table[id].state != stateReady {
		t.Fatalf("owner state after a wake-on-send = %v, want stateReady", table[id].state)
	}
}

func TestReceiverRecvReturnsQueuedMessageWithoutBlocking(t *testing.T) {
	resetProcInfo(t)
	stubHooks(t)

	pid, _ := Spawn(1)
	id := RawID(uint64(pid))
	ch := table[id].channel
	ch.push(Message{Value: 55, From: Locator{Kind: LocatorDevice, Value: 3}})

	r := Receiver{ch: ch}
	val, from := r.Recv()
	if val != 55 {
		t.Fatalf("Recv value = %d, want 55", val)
	}
	if from.Kind != LocatorDevice || from.Value != 3 {
		t.Fatalf("Recv from = %+v, want {LocatorDevice 3}", from)
	}
}

func TestTopLevelSendRejectsStaleGenerationTarget(t *testing.T) {
	resetProcInfo(t)
	initTestPager(t)
	stubHooks(t)

	pid, _ := Spawn(1)
	Kill(pid) // bumps the slot's generation, frees it and its channel

	if Send(Locator{Kind: LocatorProcess, Value: uint64(pid)}, 1, Locator{}) {
		t.Fatal("expected Send to a stale pid to fail")
	}
}

func TestTopLevelSendRejectsNonProcessLocator(t *testing.T) {
	resetProcInfo(t)

	if Send(Locator{Kind: LocatorDevice, Value: 0}, 1, Locator{}) {
		t.Fatal("expected Send to a non-process locator to fail")
	}
}

func TestTopLevelSendDeliversToTargetsOwnChannel(t *testing.T) {
	resetProcInfo(t)
	stubHooks(t)

	pid, _ := Spawn(1)
	id := RawID(uint64(pid))

	if !Send(Locator{Kind: LocatorProcess, Value: uint64(pid)}, 123, Locator{}) {
		t.Fatal("expected Send to a valid process locator to succeed")
	}
	if table[id].channel.empty() {
		t.Fatal("expected the message to land in the target's own channel")
	}
}


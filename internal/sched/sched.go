// Package sched is the cooperative scheduler, process table, and (see
// chan.go) inter-process channels — one package because Channels' wake
// path needs to enqueue into the ready queue and the scheduler needs to
// free a dead process's channel, and splitting them would create an
// import cycle with no third package to break it. Everything here runs
// under one global MCS lock (procInfo) with IRQs masked for the duration
// of every public entry point; the lock order when a channel wakeup must
// also touch the scheduler is fixed: the channel's lock first, procInfo
// second (see chan.go's Sender.Send).
package sched

import (
	"kestrel/internal/context"
	"kestrel/internal/cpu"
	"kestrel/internal/memalloc"
	"kestrel/internal/pager"
	"kestrel/internal/psci"
)

// ProcessMax is the size of the fixed process table.
const ProcessMax = 256

type procState int

const (
	stateFree procState = iota
	stateReady
	stateActive
	stateRecv
	stateKilled
	stateZombie
)

// processEntry is one process table slot. next links the slot into the
// ready-queue FIFO when state == stateReady; it is otherwise unused.
type processEntry struct {
	ctx       context.CPUContext
	state     procState
	next      int
	stackBase uintptr
	channel   *Chan
	alloc     *memalloc.Allocator
}

var (
	procInfo cpu.MCSLock
	table    [ProcessMax]processEntry
	// generation is a parallel array: generation[i] is incremented every
	// time slot i is recycled, so a stale pid naming an old occupant of a
	// reused slot never matches.
	generation [ProcessMax]uint16

	readyHead = -1
	readyTail = -1

	// actives[core] is the table index Active on that core, or -1.
	actives [cpu.CoreCount]int
	// freed[core] is a slot this core's last Exit marked Zombie and has
	// not yet torn down; Schedule tears it down the next time it runs on
	// that core, per the base spec's "next run of the schedule loop on
	// this core observes the freed slot" handoff.
	freed [cpu.CoreCount]int

	// EntryPoint is the userland program every spawned process starts
	// at — this kernel runs a single opaque Lisp-interpreter binary, so
	// there is one entry address shared across every process, with X0
	// (the application id) distinguishing behavior.
	EntryPoint uintptr

	// contextSwitchHook and psciDoneHook are Schedule's two irreversible
	// exits — one resumes a process via ERET, the other hands the core
	// back to firmware via SMC. Neither makes sense to execute off real
	// hardware, so they're indirected through variables the test file
	// overrides; production code never touches them.
	contextSwitchHook = context.ContextSwitch
	psciDoneHook      = psci.Done
)

func init() {
	for i := range table {
		table[i].next = -1
	}
	for i := range actives {
		actives[i] = -1
		freed[i] = -1
	}
}

func enqueueReady(id int) {
	table[id].next = -1
	if readyTail == -1 {
		readyHead = id
	} else {
		table[readyTail].next = id
	}
	readyTail = id
}

func dequeueReady() (int, bool) {
	if readyHead == -1 {
		return -1, false
	}
	id := readyHead
	readyHead = table[id].next
	if readyHead == -1 {
		readyTail = -1
	}
	table[id].next = -1
	return id, true
}

func removeReady(id int) bool {
	prev := -1
	cur := readyHead
	for cur != -1 {
		if cur == id {
			if prev == -1 {
				readyHead = table[cur].next
			} else {
				table[prev].next = table[cur].next
			}
			if readyTail == cur {
				readyTail = prev
			}
			table[cur].next = -1
			return true
		}
		prev = cur
		cur = table[cur].next
	}
	return false
}

func pidFor(id int, gen uint16) uint32 {
	return uint32(gen)<<8 | uint32(uint8(id))
}

// Init creates the init process in slot 0, enqueues it, and performs the
// first schedule on the calling core — the first scheduling decision on
// every core begins running a process.
func Init() {
	guard := cpu.EnterCritical()
	var node cpu.MCSNode
	procInfo.Lock(&node)

	const id = 0
	table[id] = processEntry{
		state:     stateReady,
		next:      -1,
		stackBase: memalloc.UserStack(id),
		channel:   newChan(id),
		alloc:     memalloc.NewUserAllocator(id),
	}
	table[id].ctx.Gp = context.NewEntryContext(EntryPoint, table[id].stackBase, 0, id, uint64(generation[id]))
	enqueueReady(id)

	procInfo.Unlock(&node)
	guard.Release()

	Schedule()
}

// Spawn creates a new process running EntryPoint with app as its X0
// argument, returning its pid on success.
func Spawn(app uint32) (pid uint32, ok bool) {
	guard := cpu.EnterCritical()
	defer guard.Release()
	var node cpu.MCSNode
	procInfo.Lock(&node)
	defer procInfo.Unlock(&node)

	id := -1
	for i := range table {
		if table[i].state == stateFree {
			id = i
			break
		}
	}
	if id == -1 {
		return 0, false
	}

	uid := uint8(id)
	sp := memalloc.UserStack(uid)
	gen := generation[id]

	table[id] = processEntry{
		state:     stateReady,
		next:      -1,
		stackBase: sp,
		channel:   newChan(uid),
		alloc:     memalloc.NewUserAllocator(uid),
	}
	table[id].ctx.Gp = context.NewEntryContext(EntryPoint, sp, uint64(app), uint64(uid), uint64(gen))
	enqueueReady(id)

	return pidFor(id, gen), true
}

// Exit marks the calling core's active process Zombie, frees its channel,
// and schedules away from it. Never returns.
func Exit() {
	core := cpu.CoreID()

	guard := cpu.EnterCritical()
	var node cpu.MCSNode
	procInfo.Lock(&node)
	id := actives[core]
	if id < 0 {
		panic("sched: exit with no active process on this core")
	}
	procInfo.Unlock(&node)
	guard.Release()

	exitActive(core, id)
}

// exitActive marks id Zombie and hands it to this core's teardown slot,
// then schedules. Used both by Exit (self-exit) and by Schedule when it
// discovers the outgoing active process was Killed.
func exitActive(core, id int) {
	guard := cpu.EnterCritical()
	var node cpu.MCSNode
	procInfo.Lock(&node)
	table[id].state = stateZombie
	table[id].channel = nil
	actives[core] = -1
	freed[core] = id
	procInfo.Unlock(&node)
	guard.Release()

	Schedule()
}

// killSlot tears down a non-Active process immediately: there is no
// "current core" to defer the teardown to the way Active/self-exit does,
// since a Ready or Recv process isn't resident on any core right now.
// Caller must hold procInfo.
func killSlot(id int) {
	table[id].channel = nil
	pager.Default().UnmapUserAll(uint8(id))
	generation[id]++
	table[id] = processEntry{state: stateFree, next: -1}
}

// Kill terminates the process named by pid. Self-targeting is equivalent
// to Exit; an Active target is marked Killed and torn down at its next
// yield; a Ready or Recv target is torn down immediately. A stale pid
// (wrong generation, or an id that was never valid) is silently ignored.
func Kill(pid uint32) {
	id := uint8(pid)
	gen := uint16(pid >> 8)
	core := cpu.CoreID()

	guard := cpu.EnterCritical()
	var node cpu.MCSNode
	procInfo.Lock(&node)

	if generation[id] != gen || table[id].state == stateFree {
		procInfo.Unlock(&node)
		guard.Release()
		return
	}
	if actives[core] == int(id) {
		procInfo.Unlock(&node)
		guard.Release()
		Exit()
		return
	}

	switch table[id].state {
	case stateReady:
		removeReady(int(id))
		killSlot(int(id))
	case stateRecv:
		killSlot(int(id))
	case stateActive:
		table[id].state = stateKilled
	}

	procInfo.Unlock(&node)
	guard.Release()
}

// GetPid returns the calling core's active process's pid.
func GetPid() (pid uint32, ok bool) {
	guard := cpu.EnterCritical()
	defer guard.Release()
	var node cpu.MCSNode
	procInfo.Lock(&node)
	defer procInfo.Unlock(&node)

	id := actives[cpu.CoreID()]
	if id < 0 {
		return 0, false
	}
	return pidFor(id, generation[id]), true
}

// GetRawID returns the calling core's active process's raw slot id —
// what pager.Fault and DetectStackOverflow key their classification on.
func GetRawID() (id uint8, ok bool) {
	guard := cpu.EnterCritical()
	defer guard.Release()
	var node cpu.MCSNode
	procInfo.Lock(&node)
	defer procInfo.Unlock(&node)

	active := actives[cpu.CoreID()]
	if active < 0 {
		return 0, false
	}
	return uint8(active), true
}

// ActivePid reports the pid running on core, or ok == false if that
// core is idle. Read-only: internal/splash's status banner is the only
// caller, polling once a second from the core-0 idle path, so this
// takes procInfo rather than risk a stale read racing a context switch.
func ActivePid(core int) (pid uint32, ok bool) {
	guard := cpu.EnterCritical()
	defer guard.Release()
	var node cpu.MCSNode
	procInfo.Lock(&node)
	defer procInfo.Unlock(&node)

	id := actives[core]
	if id < 0 {
		return 0, false
	}
	return pidFor(id, generation[id]), true
}

// ReadyDepth reports how many processes are currently waiting in the
// shared ready queue, for the same status banner ActivePid serves.
func ReadyDepth() int {
	guard := cpu.EnterCritical()
	defer guard.Release()
	var node cpu.MCSNode
	procInfo.Lock(&node)
	defer procInfo.Unlock(&node)

	n := 0
	for id := readyHead; id != -1; id = table[id].next {
		n++
	}
	return n
}

// Schedule dequeues one Ready process, demotes the outgoing Active
// process to Ready (or tears it down if it was Killed), and switches
// context. If there is neither an outgoing Active process nor any Ready
// work, it calls psci.Done to hand the core back to normal-world
// firmware. Never returns through the normal call stack once it reaches
// ContextSwitch or psci.Done.
func Schedule() {
	core := cpu.CoreID()

	guard := cpu.EnterCritical()
	var node cpu.MCSNode
	procInfo.Lock(&node)

	if freedID := freed[core]; freedID != -1 {
		freed[core] = -1
		pager.Default().UnmapUserAll(uint8(freedID))
		generation[freedID]++
		table[freedID] = processEntry{state: stateFree, next: -1}
	}

	current := actives[core]
	if current != -1 && table[current].state == stateKilled {
		procInfo.Unlock(&node)
		guard.Release()
		exitActive(core, current)
		return
	}

	if current != -1 && table[current].state == stateActive {
		table[current].state = stateReady
		enqueueReady(current)
	}

	nextID, haveNext := dequeueReady()

	if !haveNext {
		actives[core] = -1
		procInfo.Unlock(&node)
		guard.Release()
		psciDoneHook()
		return
	}

	actives[core] = nextID
	table[nextID].state = stateActive
	nextGen := generation[nextID]

	if current != -1 {
		context.SaveContext(&table[current].ctx)
	}
	next := &table[nextID].ctx

	procInfo.Unlock(&node)
	guard.Release()

	cpu.SetTpidrEL0(packTPIDR(uint8(nextID), nextGen, uint8(core)))
	contextSwitchHook(next)
}

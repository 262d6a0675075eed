package sched

import (
	"testing"

	"kestrel/internal/context"
	"kestrel/internal/cpu"
	"kestrel/internal/mmu"
	"kestrel/internal/pager"
	"kestrel/internal/pagemgr"
)

// resetProcInfo clears global scheduler state between tests — production
// code never does this (the table lives for the kernel's whole lifetime),
// but each test wants a fresh slot 0..N to reason about independent of
// execution order.
func resetProcInfo(t *testing.T) {
	t.Helper()
	for i := range table {
		table[i] = processEntry{next: -1}
		generation[i] = 0
	}
	readyHead, readyTail = -1, -1
	for i := range actives {
		actives[i] = -1
		freed[i] = -1
	}
}

// stubHooks overrides Schedule's two hardware-touching exits for the
// duration of a test, returning counters for how many times each fired.
func stubHooks(t *testing.T) (contextSwitches *int, psciCalls *int) {
	t.Helper()
	origCtx := contextSwitchHook
	origPsci := psciDoneHook
	cs, pc := 0, 0
	contextSwitchHook = func(*context.CPUContext) { cs++ }
	psciDoneHook = func() { pc++ }
	t.Cleanup(func() {
		contextSwitchHook = origCtx
		psciDoneHook = origPsci
	})
	return &cs, &pc
}

// testPagerInstalled records that initTestPager already ran: InitDefault
// panics on a second call, so the singleton is installed once per test
// binary.
var testPagerInstalled bool

// initTestPager installs a pager singleton sized generously enough for
// the handful of teardown frees these tests trigger, since killSlot and
// Schedule's freed-slot path both call pager.Default().
func initTestPager(t *testing.T) {
	t.Helper()
	if testPagerInstalled {
		return
	}
	testPagerInstalled = true
	kernel := mmu.New(4, 4*8192, 0)
	user := mmu.New(32, 0, 16*8192)
	mgr := pagemgr.New(0x9000_0000, 0x9000_0000+64*mmu.Granule)
	pager.InitDefault(pager.New(mgr, user, kernel))
}

func TestInitCreatesSlotZeroAndSchedulesIt(t *testing.T) {
	resetProcInfo(t)
	cs, pc := stubHooks(t)

	Init()

	if table[0].state != stateActive {
		t.Fatalf("slot 0 state = %v, want stateActive", table[0].state)
	}
	if actives[cpu.CoreID()] != 0 {
		t.Fatalf("actives[this core] = %d, want 0", actives[cpu.CoreID()])
	}
	if *cs != 1 {
		t.Fatalf("contextSwitchHook fired %d times, want 1", *cs)
	}
	if *pc != 0 {
		t.Fatalf("psciDoneHook fired %d times, want 0", *pc)
	}
}

func TestSpawnAssignsDistinctPidsAcrossFreeSlots(t *testing.T) {
	resetProcInfo(t)

	pid1, ok1 := Spawn(10)
	pid2, ok2 := Spawn(20)
	if !ok1 || !ok2 {
		t.Fatal("expected both spawns to succeed with free slots available")
	}
	if pid1 == pid2 {
		t.Fatalf("expected distinct pids, got %#x twice", pid1)
	}
	if table[RawID(uint64(pid1))].state != stateReady {
		t.Fatalf("spawned process state = %v, want stateReady", table[RawID(uint64(pid1))].state)
	}
}

func TestSpawnFailsWhenTableIsFull(t *testing.T) {
	resetProcInfo(t)

	for i := 0; i < ProcessMax; i++ {
		if _, ok := Spawn(uint32(i)); !ok {
			t.Fatalf("spawn %d unexpectedly failed before the table was full", i)
		}
	}
	if _, ok := Spawn(999); ok {
		t.Fatal("expected Spawn to fail once every slot is occupied")
	}
}

func TestKillOnReadyProcessFreesItsSlotImmediately(t *testing.T) {
	resetProcInfo(t)
	initTestPager(t)

	pid, ok := Spawn(1)
	if !ok {
		t.Fatal("spawn failed")
	}
	id := RawID(uint64(pid))
	gen := generation[id]

	Kill(pid)

	if table[id].state != stateFree {
		t.Fatalf("killed ready process state = %v, want stateFree", table[id].state)
	}
	if generation[id] == gen {
		t.Fatal("expected generation to be bumped on kill so the old pid goes stale")
	}
	if readyHead != -1 {
		t.Fatal("killed process must not still be in the ready queue")
	}
}

func TestKillOnActiveProcessDefersToNextYield(t *testing.T) {
	resetProcInfo(t)
	stubHooks(t)

	// Make a spawned process Active on another core: Kill from this core
	// marks it rather than exiting it (a self-kill is Exit).
	pid, _ := Spawn(1)
	id := RawID(uint64(pid))
	removeReady(int(id))
	table[id].state = stateActive
	actives[(cpu.CoreID()+1)%cpu.CoreCount] = int(id)

	Kill(pid)

	if table[id].state != stateKilled {
		t.Fatalf("active process state after Kill = %v, want stateKilled", table[id].state)
	}
}

func TestScheduleTearsDownKilledActiveProcessOnNextRun(t *testing.T) {
	resetProcInfo(t)
	initTestPager(t)
	cs, pc := stubHooks(t)

	Init()
	pid, _ := GetPid()
	id := RawID(uint64(pid))
	// The state a Kill issued from another core leaves behind (a Kill
	// from this core would Exit at once).
	table[id].state = stateKilled

	// A second process is Ready, so Schedule has somewhere to switch to
	// once it tears the killed one down.
	Spawn(2)

	Schedule()

	if table[id].state != stateFree {
		t.Fatalf("killed process state after Schedule = %v, want stateFree", table[id].state)
	}
	if *cs != 2 {
		t.Fatalf("contextSwitchHook fired %d times across Init+Schedule, want 2", *cs)
	}
	if *pc != 0 {
		t.Fatalf("psciDoneHook fired %d times, want 0 (ready work existed)", *pc)
	}
}

func TestScheduleWithNoReadyWorkCallsPsciDone(t *testing.T) {
	resetProcInfo(t)
	initTestPager(t)
	_, pc := stubHooks(t)

	Init()
	pid, _ := GetPid()
	// The state a Kill issued from another core leaves behind.
	table[RawID(uint64(pid))].state = stateKilled

	// No other process is Ready: tearing down the lone active process
	// leaves nothing to switch to.
	Schedule()

	if *pc != 1 {
		t.Fatalf("psciDoneHook fired %d times, want 1", *pc)
	}
	if actives[cpu.CoreID()] != -1 {
		t.Fatal("expected no active process on this core after psci.Done")
	}
}

func TestGetPidReflectsActiveProcessOnCallingCore(t *testing.T) {
	resetProcInfo(t)
	stubHooks(t)

	if _, ok := GetPid(); ok {
		t.Fatal("expected GetPid to report no active process before Init")
	}
	Init()
	pid, ok := GetPid()
	if !ok {
		t.Fatal("expected GetPid to report the init process as active")
	}
	if RawID(uint64(pid)) != 0 {
		t.Fatalf("active raw id = %d, want 0", RawID(uint64(pid)))
	}
}

func TestStaleGenerationKillIsIgnored(t *testing.T) {
	resetProcInfo(t)
	initTestPager(t)

	pid, _ := Spawn(1)
	id := RawID(uint64(pid))
	Kill(pid) // bumps generation[id], frees the slot

	Spawn(2) // reoccupies slot id under a fresh generation

	staleState := table[id].state
	Kill(pid) // the original, now-stale pid
	if table[id].state != staleState {
		t.Fatal("a stale-generation Kill must not affect the slot's new occupant")
	}
}

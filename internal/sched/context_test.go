package sched

import "testing"

func TestSimEngineSaveRestoreRoundTrip(t *testing.T) {
	e := NewSimEngine()
	e.cpu = Context{PC: 0x1000, SP: 0x2000}
	e.cpu.GPR[3] = 99

	var saved Context
	e.SaveContext(&saved)
	if saved.PC != 0x1000 || saved.GPR[3] != 99 {
		t.Errorf("save did not capture the register file: %+v", saved)
	}

	other := Context{PC: 0xBEEF, SP: 0x4000}
	e.RestoreContext(&other)
	if e.cpu.PC != 0xBEEF {
		t.Errorf("restore did not install the register file: pc=%#x", e.cpu.PC)
	}

	e.RestoreContext(&saved)
	if e.cpu.PC != 0x1000 || e.cpu.GPR[3] != 99 {
		t.Errorf("round trip lost state: %+v", e.cpu)
	}
	if e.Saves() != 1 || e.Switches() != 3 {
		t.Errorf("saves=%d restores=%d, want 1 and 3", e.Saves(), e.Switches())
	}
}

func TestSimEngineAddressSpace(t *testing.T) {
	e := NewSimEngine()
	e.SwitchAddressSpace(0xC0DE)
	if e.PageRoot() != 0xC0DE {
		t.Errorf("page root = %#x, want 0xc0de", e.PageRoot())
	}
	if e.SpaceSwitches() != 1 {
		t.Errorf("space switches = %d, want 1", e.SpaceSwitches())
	}
}

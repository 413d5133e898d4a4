package vm

import "icint/mem"

// changeCo performs the K90 coroutine switch. The argument vector holds the
// value to hand over, the control block to resume and the address of the
// current-coroutine global. The caller's sp and pc are saved into the
// outgoing control block (when one is current), the global is repointed,
// and execution resumes from the incoming block with the argument in the
// accumulator.
//
// A control block is an ordinary heap block; freeing the current block or
// reusing its slot corrupts the next switch, and nothing here can detect
// that. The only defense is the range check on the restored context.
func (m *VM) changeCo(v uint16) error {
	arg, err := m.word(v)
	if err != nil {
		return err
	}
	cw, err := m.word(v + 1)
	if err != nil {
		return err
	}
	cptr := uint16(cw)
	gw, err := m.word(v + 2)
	if err != nil {
		return err
	}
	gAddr := uint16(gw)

	curw, err := m.word(gAddr)
	if err != nil {
		return err
	}
	cur := uint16(curw)
	if cur != 0 {
		if err := m.store(cur, int16(m.sp)); err != nil {
			return err
		}
		if err := m.store(cur+1, int16(m.pc)); err != nil {
			return err
		}
	}

	if err := m.store(gAddr, int16(cptr)); err != nil {
		return err
	}

	nspw, err := m.word(cptr)
	if err != nil {
		return err
	}
	npcw, err := m.word(cptr + 1)
	if err != nil {
		return err
	}
	nsp := uint16(nspw)
	npc := uint16(npcw)
	if nsp < mem.ProgStart || int(nsp) >= mem.WordCount {
		return fault(MsgBadChangeCoSP, int(nsp))
	}
	if npc < mem.ProgStart || int(npc) >= mem.WordCount {
		return fault(MsgBadChangeCoPC, int(npc))
	}

	m.sp = nsp
	m.pc = npc
	m.a = arg
	return nil
}

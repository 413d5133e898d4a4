package vm

import (
	"icint/code"
	"icint/mem"
)

// kcall handles F6K. With the accumulator at or above the program start the
// call is an ordinary frame call; below it the accumulator is a K-code and
// the argument vector sits two words into the would-be frame.
func (m *VM) kcall(d uint16) error {
	dAddr := d + m.sp

	if m.a >= mem.ProgStart {
		if int(dAddr)+1 >= mem.WordCount {
			return fault(MsgBadFrame, int(dAddr))
		}
		_ = m.store(dAddr, int16(m.sp))
		_ = m.store(dAddr+1, int16(m.pc))
		m.sp = dAddr
		m.pc = uint16(m.a)
		return nil
	}

	v := dAddr + 2
	switch m.a {
	case code.K01Start:
		// Marker emitted by the bootstrap; nothing to do.

	case code.K11SelectInput:
		h, err := m.word(v)
		if err != nil {
			return err
		}
		m.streams.CIS = int(h)
	case code.K12SelectOutput:
		h, err := m.word(v)
		if err != nil {
			return err
		}
		m.streams.COS = int(h)
	case code.K13RdCh:
		m.a = m.streams.RdCh()
	case code.K14WrCh:
		c, err := m.word(v)
		if err != nil {
			return err
		}
		m.streams.WrCh(c)
	case code.K16Input:
		m.a = int16(m.streams.CIS)
	case code.K17Output:
		m.a = int16(m.streams.COS)

	case code.K30Stop:
		n, err := m.word(v)
		if err != nil {
			return err
		}
		m.result = n
		m.halted = true
	case code.K31Level:
		m.a = int16(m.sp)
	case code.K32LongJump:
		sp, err := m.word(v)
		if err != nil {
			return err
		}
		pc, err := m.word(v + 1)
		if err != nil {
			return err
		}
		m.sp = uint16(sp)
		m.pc = uint16(pc)

	case code.K40AptoVec:
		return m.aptovec(dAddr, v)

	case code.K41FindOutput:
		p, err := m.word(v)
		if err != nil {
			return err
		}
		name, err := m.img.String(int(uint16(p)))
		if err != nil {
			return fault(MsgBadPC, int(uint16(p)))
		}
		m.a = int16(m.streams.OpenOutput(name))
	case code.K42FindInput:
		p, err := m.word(v)
		if err != nil {
			return err
		}
		name, err := m.img.String(int(uint16(p)))
		if err != nil {
			return fault(MsgBadPC, int(uint16(p)))
		}
		m.a = int16(m.streams.OpenInput(name))
	case code.K46EndRead:
		m.streams.EndRead()
	case code.K47EndWrite:
		m.streams.EndWrite()

	case code.K60Writes:
		p, err := m.word(v)
		if err != nil {
			return err
		}
		return m.writes(uint16(p))
	case code.K62WriteN:
		n, err := m.word(v)
		if err != nil {
			return err
		}
		m.writed(n, 0)
	case code.K63Newline:
		m.streams.WrCh('\n')
	case code.K64NewPage:
		m.streams.WrCh('\f')
	case code.K66PackString:
		vp, err := m.word(v)
		if err != nil {
			return err
		}
		sp, err := m.word(v + 1)
		if err != nil {
			return err
		}
		n, err := m.packString(uint16(vp), uint16(sp))
		if err != nil {
			return err
		}
		m.a = n
	case code.K67UnpackString:
		sp, err := m.word(v)
		if err != nil {
			return err
		}
		vp, err := m.word(v + 1)
		if err != nil {
			return err
		}
		return m.unpackString(uint16(sp), uint16(vp))
	case code.K68WriteD:
		n, err := m.word(v)
		if err != nil {
			return err
		}
		d, err := m.word(v + 1)
		if err != nil {
			return err
		}
		m.writed(n, d)
	case code.K70ReadN:
		m.a = m.readn()
	case code.K75WriteHex:
		n, err := m.word(v)
		if err != nil {
			return err
		}
		d, err := m.word(v + 1)
		if err != nil {
			return err
		}
		m.writeHex(uint16(n), d)
	case code.K76WriteF:
		return m.writef(v)
	case code.K77WriteOct:
		n, err := m.word(v)
		if err != nil {
			return err
		}
		d, err := m.word(v + 1)
		if err != nil {
			return err
		}
		m.writeOct(uint16(n), d)

	case code.K85GetByte:
		p, err := m.word(v)
		if err != nil {
			return err
		}
		off, err := m.word(v + 1)
		if err != nil {
			return err
		}
		idx := int(uint16(p))*mem.BytesPerWord + int(off)
		b, err := m.img.Byte(idx)
		if err != nil {
			return fault(MsgBadPC, idx)
		}
		m.a = int16(b)
	case code.K86PutByte:
		p, err := m.word(v)
		if err != nil {
			return err
		}
		off, err := m.word(v + 1)
		if err != nil {
			return err
		}
		c, err := m.word(v + 2)
		if err != nil {
			return err
		}
		idx := int(uint16(p))*mem.BytesPerWord + int(off)
		if err := m.img.SetByte(idx, byte(c)); err != nil {
			return fault(MsgBadStore, idx)
		}

	case code.K87GetVec:
		n, err := m.word(v)
		if err != nil {
			return err
		}
		m.a = int16(m.heap.GetVec(int(uint16(n)), m.sp))
	case code.K88FreeVec:
		p, err := m.word(v)
		if err != nil {
			return err
		}
		m.a = int16(m.heap.FreeVec(int(uint16(p))))

	case code.K90ChangeCo:
		return m.changeCo(v)

	default:
		return fault(MsgUnknownCall, int(m.a))
	}
	return nil
}

// aptovec allocates a fresh frame past an argc-word vector on the stack,
// records the caller context and the computed frame base, and enters the
// target routine.
func (m *VM) aptovec(dAddr, v uint16) error {
	entry, err := m.word(v)
	if err != nil {
		return err
	}
	argc, err := m.word(v + 1)
	if err != nil {
		return err
	}
	b := dAddr + uint16(argc) + 1
	if int(b)+3 >= mem.WordCount {
		return fault(MsgBadFrame, int(b))
	}
	_ = m.store(b, int16(m.sp))
	_ = m.store(b+1, int16(m.pc))
	_ = m.store(b+2, int16(dAddr))
	_ = m.store(b+3, argc)
	m.sp = b
	m.pc = uint16(entry)
	return nil
}

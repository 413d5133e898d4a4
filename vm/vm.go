// Package vm implements the execution core of the 16-bit machine: the
// fetch/decode/execute loop over the packed word image, the K-code runtime
// (stream I/O, formatted printing, heap allocation) and the coroutine
// switch. Execution is single-threaded and cooperative; every effect on the
// image and the stream table is ordered by the instruction stream.
package vm

import (
	"icint/code"
	"icint/heap"
	"icint/mem"
	"icint/stream"
)

// VM is the register machine. pc and sp are unsigned word indices; a and b
// are the signed operand registers, b holding the previous accumulator value
// whenever a load executes.
type VM struct {
	img     *mem.Image
	streams *stream.Table
	heap    *heap.Allocator

	pc, sp uint16
	a, b   int16

	startSP uint16
	halted  bool
	result  int16

	// StepLimit optionally bounds execution; 0 means unlimited.
	StepLimit uint64
	steps     uint64
}

// New creates a VM over an assembled image. lomem is the first word past the
// emitted code; the runtime stacks grow upward from there and the heap grows
// downward from the top of the image.
func New(img *mem.Image, streams *stream.Table, lomem int) *VM {
	return &VM{
		img:     img,
		streams: streams,
		heap:    heap.New(mem.WordCount),
		startSP: uint16(lomem),
	}
}

// Heap exposes the allocator, mainly for inspection in tests.
func (m *VM) Heap() *heap.Allocator {
	return m.heap
}

// Run executes from the program start address until a normal halt (K30 or
// X22) or a fatal fault. It returns the halt operand; the process exit code
// is decided by the caller.
func (m *VM) Run() (int16, error) {
	m.pc = mem.ProgStart
	m.sp = m.startSP
	m.a, m.b = 0, 0
	m.halted = false
	m.result = 0
	m.steps = 0

	for !m.halted {
		if err := m.step(); err != nil {
			return 0, err
		}
	}
	return m.result, nil
}

// step fetches, decodes and executes one instruction.
func (m *VM) step() error {
	if m.StepLimit > 0 {
		m.steps++
		if m.steps > m.StepLimit {
			return fault(MsgStepLimit, 0)
		}
	}

	wv, err := m.word(m.pc)
	if err != nil {
		return err
	}
	w := uint16(wv)
	m.pc++

	// Operand: inline short (zero-extended) or extended long.
	var d uint16
	if w&code.FDBit != 0 {
		dv, err := m.word(m.pc)
		if err != nil {
			return err
		}
		m.pc++
		d = uint16(dv)
	} else {
		d = w >> code.FnBits
	}
	if w&code.FPBit != 0 {
		d += m.sp
	}
	if w&code.FIBit != 0 {
		dv, err := m.word(d)
		if err != nil {
			return err
		}
		d = uint16(dv)
	}

	switch w & code.F7X {
	case code.F0L:
		m.b = m.a
		m.a = int16(d)
	case code.F1S:
		return m.store(d, m.a)
	case code.F2A:
		m.a += int16(d)
	case code.F3J:
		m.pc = d
	case code.F4T:
		if m.a != 0 {
			m.pc = d
		}
	case code.F5F:
		if m.a == 0 {
			m.pc = d
		}
	case code.F6K:
		return m.kcall(d)
	case code.F7X:
		return m.exec(d)
	}
	return nil
}

// exec handles the F7X extended operations, dispatching on the operand.
func (m *VM) exec(d uint16) error {
	switch d {
	case code.XInd:
		v, err := m.word(uint16(m.a))
		if err != nil {
			return err
		}
		m.a = v
	case code.XNeg:
		m.a = -m.a
	case code.XNot:
		m.a = ^m.a
	case code.XReturn:
		pc, err := m.word(m.sp + 1)
		if err != nil {
			return err
		}
		sp, err := m.word(m.sp)
		if err != nil {
			return err
		}
		m.pc = uint16(pc)
		m.sp = uint16(sp)
	case code.XMul:
		m.a = m.a * m.b
	case code.XDiv:
		if m.a != 0 {
			m.a = m.b / m.a
		}
	case code.XRem:
		if m.a != 0 {
			m.a = m.b % m.a
		}
	case code.XAdd:
		m.a = m.b + m.a
	case code.XSub:
		m.a = m.b - m.a
	case code.XEq:
		m.a = truth(m.b == m.a)
	case code.XNe:
		m.a = truth(m.b != m.a)
	case code.XLt:
		m.a = truth(m.b < m.a)
	case code.XGe:
		m.a = truth(m.b >= m.a)
	case code.XGt:
		m.a = truth(m.b > m.a)
	case code.XLe:
		m.a = truth(m.b <= m.a)
	case code.XLsh:
		m.a = m.b << (uint16(m.a) & 15)
	case code.XRsh:
		m.a = int16(uint16(m.b) >> (uint16(m.a) & 15))
	case code.XAnd:
		m.a = m.b & m.a
	case code.XOr:
		m.a = m.b | m.a
	case code.XXor:
		m.a = m.b ^ m.a
	case code.XEqv:
		m.a = m.b ^ ^m.a
	case code.XHalt:
		m.halted = true
		m.result = 0
	case code.XSwitch:
		return m.switchOn()
	default:
		return fault(MsgUnknownExec, int(d))
	}
	return nil
}

// switchOn dispatches on the inline table following the instruction:
// count, default target, then count (key, target) pairs.
func (m *VM) switchOn() error {
	idx := m.pc
	count, err := m.word(idx)
	if err != nil {
		return err
	}
	idx++
	def, err := m.word(idx)
	if err != nil {
		return err
	}
	idx++
	m.pc = uint16(def)

	for ; count > 0; count-- {
		key, err := m.word(idx)
		if err != nil {
			return err
		}
		if m.a == key {
			target, err := m.word(idx + 1)
			if err != nil {
				return err
			}
			m.pc = uint16(target)
			break
		}
		idx += 2
	}
	return nil
}

func truth(b bool) int16 {
	if b {
		return -1
	}
	return 0
}

// word reads the image at a; an out-of-range read during execution is the
// BAD PC fault.
func (m *VM) word(a uint16) (int16, error) {
	if int(a) >= mem.WordCount {
		return 0, fault(MsgBadPC, int(a))
	}
	v, _ := m.img.Word(int(a))
	return v, nil
}

// store writes the image at a; an out-of-range store is the BAD STORE fault.
func (m *VM) store(a uint16, v int16) error {
	if int(a) >= mem.WordCount {
		return fault(MsgBadStore, int(a))
	}
	_ = m.img.SetWord(int(a), v)
	return nil
}

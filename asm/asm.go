// Package asm implements the single-pass loader-assembler for the textual
// intermediate-code format. Directives are read character by character from
// the currently selected input stream and emitted as packed words into the
// memory image; forward branch references are linked through a placeholder
// chain threaded through the image itself and back-patched when the label is
// defined.
package asm

import (
	"icint/code"
	"icint/mem"
	"icint/stream"
)

// labv is the word index of the label table at the top of the image.
const labv = mem.WordCount - mem.LabvCount

// Assembler translates IC text into the memory image. Lomem is the next
// word to emit and survives across input files, so several compilation
// units assemble into one contiguous image.
type Assembler struct {
	img *mem.Image
	in  *stream.Table

	Lomem int
	cp    int   // byte position within the current word for C directives
	ch    int16 // current input character
}

// New creates an assembler emitting at the program start address.
func New(img *mem.Image, in *stream.Table) *Assembler {
	return &Assembler{img: img, in: in, Lomem: mem.ProgStart}
}

// Bootstrap emits the three-word startup stub ahead of any assembled code:
// an indirect load of global slot K01Start, a call with frame offset 2, and
// a normal halt. A hosted program that wires its entry into slot 1 via a G
// directive is frame-called; otherwise slot 1 still holds its pool value and
// the call is the START no-op.
func (as *Assembler) Bootstrap() {
	as.stw(int16(code.F0L | code.FIBit | code.K01Start<<code.FnBits))
	as.stw(int16(code.F6K | 2<<code.FnBits))
	as.stw(int16(code.F7X | code.XHalt<<code.FnBits))
}

// Assemble consumes directives from the current input stream until end of
// stream, emitting words from Lomem upward. The label table is cleared on
// entry, so labels never span input files.
func (as *Assembler) Assemble() error {
	for i := 0; i < mem.LabvCount; i++ {
		as.setWord(labv+i, 0)
	}
	as.cp = 0
	as.rch()

	for {
		// A leading digit defines a label at the current emit address.
		if as.ch >= '0' && as.ch <= '9' {
			n := as.rdn()
			if n < 0 || int(n) >= mem.LabvCount {
				return codeErr(MsgBadCode, as.Lomem)
			}
			k := as.word(labv + int(n))
			if k < 0 {
				return codeErr(MsgDuplicateLabel, int(n))
			}
			for k > 0 {
				next := as.word(int(k))
				as.setWord(int(k), int16(as.Lomem))
				k = next
			}
			as.setWord(labv+int(n), int16(-as.Lomem))
			as.cp = 0
			continue
		}

		switch as.ch {
		case '$', ' ', '\n':
			as.rch()
		case 'L':
			if err := as.instruction(code.F0L); err != nil {
				return err
			}
		case 'S':
			if err := as.instruction(code.F1S); err != nil {
				return err
			}
		case 'A':
			if err := as.instruction(code.F2A); err != nil {
				return err
			}
		case 'J':
			if err := as.instruction(code.F3J); err != nil {
				return err
			}
		case 'T':
			if err := as.instruction(code.F4T); err != nil {
				return err
			}
		case 'F':
			if err := as.instruction(code.F5F); err != nil {
				return err
			}
		case 'K':
			if err := as.instruction(code.F6K); err != nil {
				return err
			}
		case 'X':
			if err := as.instruction(code.F7X); err != nil {
				return err
			}
		case 'C':
			as.rch()
			if err := as.stc(as.rdn()); err != nil {
				return err
			}
		case 'D':
			as.rch()
			if as.ch == 'L' {
				as.rch()
				if err := as.stwErr(0); err != nil {
					return err
				}
				lab := as.rdn()
				if err := as.labref(lab, as.Lomem-1); err != nil {
					return err
				}
			} else {
				if err := as.stwErr(as.rdn()); err != nil {
					return err
				}
			}
		case 'G':
			as.rch()
			n := as.rdn()
			if as.ch != 'L' {
				return codeErr(MsgBadCode, as.Lomem)
			}
			as.rch()
			if n < 0 || int(n) >= mem.WordCount {
				return codeErr(MsgBadCode, as.Lomem)
			}
			as.setWord(int(n), 0)
			lab := as.rdn()
			if err := as.labref(lab, int(n)); err != nil {
				return err
			}
		case 'Z':
			for n := 0; n < mem.LabvCount; n++ {
				if as.word(labv+n) > 0 {
					return codeErr(MsgUnsetLabel, n)
				}
			}
			for i := 0; i < mem.LabvCount; i++ {
				as.setWord(labv+i, 0)
			}
			as.cp = 0
			as.rch()
		default:
			if as.ch == stream.EndStreamCh {
				return nil
			}
			return codeErr(MsgBadCh, int(as.ch))
		}
	}
}

// instruction assembles one L/S/A/J/T/F/K/X directive: optional I, P and G
// modifier letters, then either a label reference (long form with a
// back-patched placeholder) or a signed operand emitted short when it fits
// in eight bits.
func (as *Assembler) instruction(n int16) error {
	as.rch()
	if as.ch == 'I' {
		n |= code.FIBit
		as.rch()
	}
	if as.ch == 'P' {
		n |= code.FPBit
		as.rch()
	}
	if as.ch == 'G' {
		as.rch()
	}

	if as.ch == 'L' {
		as.rch()
		if err := as.stwErr(n | code.FDBit); err != nil {
			return err
		}
		if err := as.stwErr(0); err != nil {
			return err
		}
		lab := as.rdn()
		return as.labref(lab, as.Lomem-1)
	}

	d := as.rdn()
	if d&code.FnMask == d {
		return as.stwErr(n | d<<code.FnBits)
	}
	if err := as.stwErr(n | code.FDBit); err != nil {
		return err
	}
	return as.stwErr(d)
}

// labref patches the word at address a referencing label n. A resolved
// label adds its definition address into the word; an unresolved one pushes
// a onto the placeholder chain headed in the label table.
func (as *Assembler) labref(n int16, a int) error {
	if n < 0 || int(n) >= mem.LabvCount {
		return codeErr(MsgBadCode, as.Lomem)
	}
	k := as.word(labv + int(n))
	if k < 0 {
		k = -k
	} else {
		as.setWord(labv+int(n), int16(a))
	}
	as.setWord(a, as.word(a)+k)
	return nil
}

// stw emits one word and resets the byte-packing cursor.
func (as *Assembler) stw(w int16) {
	as.setWord(as.Lomem, w)
	as.Lomem++
	as.cp = 0
}

// stwErr is stw with the emit-overflow check applied.
func (as *Assembler) stwErr(w int16) error {
	if as.Lomem >= mem.WordCount {
		return codeErr(MsgBadCode, as.Lomem)
	}
	as.stw(w)
	return nil
}

// stc packs one byte into the current word pair, emitting a fresh zero word
// when starting a new pair.
func (as *Assembler) stc(c int16) error {
	if as.cp == 0 {
		if err := as.stwErr(0); err != nil {
			return err
		}
	}
	_ = as.img.SetByte((as.Lomem-1)*mem.BytesPerWord+as.cp, byte(c))
	as.cp++
	if as.cp == mem.BytesPerWord {
		as.cp = 0
	}
	return nil
}

// rch advances to the next significant character, consuming / comments
// through end of line.
func (as *Assembler) rch() {
	as.ch = as.in.RdCh()
	for as.ch == '/' {
		for {
			as.ch = as.in.RdCh()
			if as.ch == '\n' || as.ch == stream.EndStreamCh {
				break
			}
		}
		for as.ch == '\n' {
			as.ch = as.in.RdCh()
		}
	}
}

// rdn reads a signed decimal number starting at the current character, with
// 16-bit wrapping accumulation.
func (as *Assembler) rdn() int16 {
	var sum int16
	neg := as.ch == '-'
	if neg {
		as.rch()
	}
	for as.ch >= '0' && as.ch <= '9' {
		sum = sum*10 + (as.ch - '0')
		as.rch()
	}
	if neg {
		return -sum
	}
	return sum
}

// word and setWord access the image at indices the assembler has already
// validated; range errors cannot occur.
func (as *Assembler) word(a int) int16 {
	v, _ := as.img.Word(a)
	return v
}

func (as *Assembler) setWord(a int, v int16) {
	_ = as.img.SetWord(a, v)
}

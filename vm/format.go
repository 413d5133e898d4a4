package vm

import (
	"strconv"

	"icint/code"
	"icint/mem"
)

// Formatted I/O: the WRITE family emits through the current output stream
// one byte at a time, so redirection and newline handling stay in the
// stream layer.

// writes emits the packed string at word address p.
func (m *VM) writes(p uint16) error {
	base := int(p) * mem.BytesPerWord
	n, err := m.img.Byte(base)
	if err != nil {
		return fault(MsgBadPC, base)
	}
	for i := 0; i < int(n); i++ {
		b, err := m.img.Byte(base + 1 + i)
		if err != nil {
			return fault(MsgBadPC, base+1+i)
		}
		m.streams.WrCh(int16(b))
	}
	return nil
}

// writed prints n in signed decimal, right-aligned in a field of d spaces.
// Zero or negative widths emit no padding.
func (m *VM) writed(n, d int16) {
	s := strconv.Itoa(int(n))
	for i := len(s); i < int(d); i++ {
		m.streams.WrCh(' ')
	}
	for i := 0; i < len(s); i++ {
		m.streams.WrCh(int16(s[i]))
	}
}

// writeHex emits exactly max(1, d) uppercase hex digits of n.
func (m *VM) writeHex(n uint16, d int16) {
	if d > 1 {
		m.writeHex(n>>4, d-1)
	}
	digit := byte(n & 15)
	if digit < 10 {
		m.streams.WrCh(int16('0' + digit))
	} else {
		m.streams.WrCh(int16('A' + digit - 10))
	}
}

// writeOct emits exactly max(1, d) octal digits of n.
func (m *VM) writeOct(n uint16, d int16) {
	if d > 1 {
		m.writeOct(n>>3, d-1)
	}
	m.streams.WrCh(int16('0' + byte(n&7)))
}

// decval decodes a width digit in base 36: 0..9 then A..Z for 10..35.
func decval(c byte) int16 {
	switch {
	case c >= '0' && c <= '9':
		return int16(c - '0')
	case c >= 'A' && c <= 'Z':
		return int16(c-'A') + 10
	default:
		return 0
	}
}

// writef formats the vector at v: v[0] is the format string address and
// v[1..] the arguments. Directives are %S %C %N and %I %O %X with a base-36
// width digit; an unknown directive letter is emitted literally.
func (m *VM) writef(v uint16) error {
	p, err := m.word(v)
	if err != nil {
		return err
	}
	base := int(uint16(p)) * mem.BytesPerWord
	n, err := m.img.Byte(base)
	if err != nil {
		return fault(MsgBadPC, base)
	}

	arg := v + 1
	next := func() (int16, error) {
		w, err := m.word(arg)
		arg++
		return w, err
	}

	ss := 1
	for ss <= int(n) {
		c, err := m.img.Byte(base + ss)
		if err != nil {
			return fault(MsgBadPC, base+ss)
		}
		ss++
		if c != '%' {
			m.streams.WrCh(int16(c))
			continue
		}
		c, err = m.img.Byte(base + ss)
		if err != nil {
			return fault(MsgBadPC, base+ss)
		}
		ss++
		switch c {
		case 'S':
			w, err := next()
			if err != nil {
				return err
			}
			if err := m.writes(uint16(w)); err != nil {
				return err
			}
		case 'C':
			w, err := next()
			if err != nil {
				return err
			}
			m.streams.WrCh(w)
		case 'N':
			w, err := next()
			if err != nil {
				return err
			}
			m.writed(w, 0)
		case 'I', 'O', 'X':
			wc, err := m.img.Byte(base + ss)
			if err != nil {
				return fault(MsgBadPC, base+ss)
			}
			ss++
			width := decval(wc)
			w, err := next()
			if err != nil {
				return err
			}
			switch c {
			case 'I':
				m.writed(w, width)
			case 'O':
				m.writeOct(uint16(w), width)
			case 'X':
				m.writeHex(uint16(w), width)
			}
		default:
			m.streams.WrCh(int16(c))
		}
	}
	return nil
}

// readn skips space, tab and newline, accepts an optional sign and reads
// decimal digits with 16-bit wrapping accumulation. The first non-digit
// character is stored in the terminator global slot.
func (m *VM) readn() int16 {
	var sum int16
	neg := false

	ch := m.streams.RdCh()
	for ch == ' ' || ch == '\t' || ch == '\n' {
		ch = m.streams.RdCh()
	}

	if ch == '-' {
		neg = true
		ch = m.streams.RdCh()
	} else if ch == '+' {
		ch = m.streams.RdCh()
	}

	for ch >= '0' && ch <= '9' {
		sum = sum*10 + (ch - '0')
		ch = m.streams.RdCh()
	}

	_ = m.img.SetWord(code.K71Terminator, ch)
	if neg {
		return -sum
	}
	return sum
}

// packString packs the character vector at v (v[0] is the length L, v[1..L]
// the characters) into the string buffer at word s and returns L / 2. The
// final word is zeroed first so a trailing half-word comes out clean.
func (m *VM) packString(v, s uint16) (int16, error) {
	lw, err := m.word(v)
	if err != nil {
		return 0, err
	}
	length := int(lw)
	n := length / mem.BytesPerWord

	if err := m.img.SetWord(int(s)+n, 0); err != nil {
		return 0, fault(MsgBadStore, int(s)+n)
	}
	for i := 0; i <= length; i++ {
		w, err := m.word(v + uint16(i))
		if err != nil {
			return 0, err
		}
		idx := int(s)*mem.BytesPerWord + i
		if err := m.img.SetByte(idx, byte(w)); err != nil {
			return 0, fault(MsgBadStore, idx)
		}
	}
	return int16(n), nil
}

// unpackString spreads the packed string at word s into L+1 words at v,
// length byte first.
func (m *VM) unpackString(s, v uint16) error {
	base := int(s) * mem.BytesPerWord
	n, err := m.img.Byte(base)
	if err != nil {
		return fault(MsgBadPC, base)
	}
	for i := 0; i <= int(n); i++ {
		b, err := m.img.Byte(base + i)
		if err != nil {
			return fault(MsgBadPC, base+i)
		}
		if err := m.store(v+uint16(i), int16(b)); err != nil {
			return err
		}
	}
	return nil
}

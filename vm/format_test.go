package vm

import (
	"strconv"
	"testing"

	"icint/code"
	"icint/mem"
	"icint/stream"
)

// pokeString writes a packed string at word address p.
func pokeString(t *testing.T, m *VM, p int, s string) {
	t.Helper()
	if err := m.img.SetByte(p*mem.BytesPerWord, byte(len(s))); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(s); i++ {
		if err := m.img.SetByte(p*mem.BytesPerWord+1+i, s[i]); err != nil {
			t.Fatal(err)
		}
	}
}

func TestWrites(t *testing.T) {
	m, out := newTestVM("")
	pokeString(t, m, 600, "HELLO")
	if err := m.writes(600); err != nil {
		t.Fatalf("writes failed: %v", err)
	}
	m.streams.Flush()
	if out.String() != "HELLO" {
		t.Errorf("output = %q, want HELLO", out.String())
	}
}

func TestWriteD(t *testing.T) {
	cases := []struct {
		n, d int16
		want string
	}{
		{5, 3, "  5"},
		{-5, 4, "  -5"},
		{12345, 3, "12345"},
		{0, 0, "0"},
		{0, 1, "0"},
		{7, -2, "7"},
		{-32768, 0, "-32768"},
		{-32768, 8, "  -32768"},
	}
	for _, c := range cases {
		m, out := newTestVM("")
		m.writed(c.n, c.d)
		m.streams.Flush()
		if out.String() != c.want {
			t.Errorf("writed(%d, %d) = %q, want %q", c.n, c.d, out.String(), c.want)
		}
	}
}

func TestWriteHex(t *testing.T) {
	cases := []struct {
		n    uint16
		d    int16
		want string
	}{
		{0xABCD, 4, "ABCD"},
		{0, 1, "0"},
		{0, 0, "0"},
		{15, 4, "000F"},
		{0x1F, 1, "F"}, // width 1 keeps only the low digit
		{0xFFFF, 6, "00FFFF"},
	}
	for _, c := range cases {
		m, out := newTestVM("")
		m.writeHex(c.n, c.d)
		m.streams.Flush()
		if out.String() != c.want {
			t.Errorf("writeHex(%#x, %d) = %q, want %q", c.n, c.d, out.String(), c.want)
		}
	}
}

// Every width from 1 to 16 emits exactly that many digits, and at widths of
// four or more, where every 16-bit value fits, the value reads back unchanged.
func TestWriteHexWidthProperty(t *testing.T) {
	values := []uint16{0, 1, 9, 0x10, 0xFF, 0x1234, 0xFFFF}
	for d := int16(1); d <= 16; d++ {
		for _, u := range values {
			m, out := newTestVM("")
			m.writeHex(u, d)
			m.streams.Flush()
			s := out.String()
			if len(s) != int(d) {
				t.Fatalf("writeHex(%#x, %d) emitted %d digits: %q", u, d, len(s), s)
			}
			if d >= 4 { // every 16-bit value fits in four digits
				back, err := strconv.ParseUint(s, 16, 32)
				if err != nil {
					t.Fatalf("reparse of %q failed: %v", s, err)
				}
				if uint16(back) != u {
					t.Errorf("writeHex(%#x, %d) read back as %#x", u, d, back)
				}
			}
		}
	}
}

func TestWriteOct(t *testing.T) {
	cases := []struct {
		n    uint16
		d    int16
		want string
	}{
		{8, 2, "10"},
		{511, 3, "777"},
		{0, 1, "0"},
		{0xFFFF, 6, "177777"},
	}
	for _, c := range cases {
		m, out := newTestVM("")
		m.writeOct(c.n, c.d)
		m.streams.Flush()
		if out.String() != c.want {
			t.Errorf("writeOct(%d, %d) = %q, want %q", c.n, c.d, out.String(), c.want)
		}
	}
}

func TestReadN(t *testing.T) {
	cases := []struct {
		input string
		want  int16
		term  int16
	}{
		{"42x", 42, 'x'},
		{"  42x", 42, 'x'},
		{"\t\n 7 ", 7, ' '},
		{"-17\n", -17, '\n'},
		{"+9z", 9, 'z'},
		{"abc", 0, 'a'},
		{"5", 5, stream.EndStreamCh},
	}
	for _, c := range cases {
		m, _ := newTestVM(c.input)
		got := m.readn()
		if got != c.want {
			t.Errorf("readn(%q) = %d, want %d", c.input, got, c.want)
		}
		term, err := m.img.Word(code.K71Terminator)
		if err != nil {
			t.Fatal(err)
		}
		if term != c.term {
			t.Errorf("readn(%q) terminator = %d, want %d", c.input, term, c.term)
		}
	}
}

// WRITEN followed by READN recovers the original value across the whole
// signed 16-bit range, including the wrapping edge case at the minimum.
func TestWriteNReadNRoundTrip(t *testing.T) {
	values := []int16{-32768, -12345, -1, 0, 1, 7, 255, 12345, 32767}
	for _, v := range values {
		m, out := newTestVM("")
		m.writed(v, 0)
		m.streams.Flush()

		m2, _ := newTestVM(out.String() + "\n")
		if got := m2.readn(); got != v {
			t.Errorf("round trip of %d came back as %d", v, got)
		}
	}
}

func TestPackStringRoundTrip(t *testing.T) {
	texts := []string{"", "A", "AB", "HELLO", "ODD LENGTH!"}
	for _, text := range texts {
		m, _ := newTestVM("")

		// Source vector at 600: length word then one word per character.
		if err := m.img.SetWord(600, int16(len(text))); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < len(text); i++ {
			if err := m.img.SetWord(601+i, int16(text[i])); err != nil {
				t.Fatal(err)
			}
		}

		n, err := m.packString(600, 900)
		if err != nil {
			t.Fatalf("packString(%q) failed: %v", text, err)
		}
		if int(n) != len(text)/2 {
			t.Errorf("packString(%q) = %d, want %d", text, n, len(text)/2)
		}

		got, err := m.img.String(900)
		if err != nil {
			t.Fatal(err)
		}
		if got != text {
			t.Errorf("packed string = %q, want %q", got, text)
		}

		if err := m.unpackString(900, 1200); err != nil {
			t.Fatalf("unpackString(%q) failed: %v", text, err)
		}
		length, err := m.img.Word(1200)
		if err != nil {
			t.Fatal(err)
		}
		if int(length) != len(text) {
			t.Errorf("unpacked length = %d, want %d", length, len(text))
		}
		for i := 0; i < len(text); i++ {
			w, err := m.img.Word(1201 + i)
			if err != nil {
				t.Fatal(err)
			}
			if w != int16(text[i]) {
				t.Errorf("unpacked word %d = %d, want %d", i, w, text[i])
			}
		}
	}
}

func TestPackStringZeroesTrailingByte(t *testing.T) {
	m, _ := newTestVM("")

	// Even length: the final word's high byte must come out zero even when
	// the buffer held junk.
	if err := m.img.SetWord(901, 0x7777); err != nil {
		t.Fatal(err)
	}
	if err := m.img.SetWord(600, 2); err != nil {
		t.Fatal(err)
	}
	_ = m.img.SetWord(601, 'A')
	_ = m.img.SetWord(602, 'B')

	if _, err := m.packString(600, 900); err != nil {
		t.Fatal(err)
	}
	hi, err := m.img.Byte(901*mem.BytesPerWord + 1)
	if err != nil {
		t.Fatal(err)
	}
	if hi != 0 {
		t.Errorf("trailing byte = %#x, want 0", hi)
	}
}

func TestWriteFDirectives(t *testing.T) {
	m, out := newTestVM("")
	pokeString(t, m, 600, "n=%N h=%X4 o=%O3 c=%C s=%S!")
	pokeString(t, m, 620, "OK")

	// Vector at 700: format, then one argument per directive.
	for i, w := range []int16{600, -1, 0x0ABC, 63, 'Z', 620} {
		if err := m.img.SetWord(700+i, w); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.writef(700); err != nil {
		t.Fatalf("writef failed: %v", err)
	}
	m.streams.Flush()

	want := "n=-1 h=0ABC o=077 c=Z s=OK!"
	if out.String() != want {
		t.Errorf("writef output = %q, want %q", out.String(), want)
	}
}

func TestWriteFUnknownDirective(t *testing.T) {
	m, out := newTestVM("")
	pokeString(t, m, 600, "a%Qb%%c")
	if err := m.img.SetWord(700, 600); err != nil {
		t.Fatal(err)
	}
	if err := m.writef(700); err != nil {
		t.Fatalf("writef failed: %v", err)
	}
	m.streams.Flush()

	// Unknown letters print literally; %% prints a single percent.
	if out.String() != "aQb%c" {
		t.Errorf("writef output = %q, want %q", out.String(), "aQb%c")
	}
}

func TestWriteFWidthIsBase36(t *testing.T) {
	m, out := newTestVM("")
	pokeString(t, m, 600, "%IB.") // width letter B = 11
	_ = m.img.SetWord(700, 600)
	_ = m.img.SetWord(701, 42)
	if err := m.writef(700); err != nil {
		t.Fatal(err)
	}
	m.streams.Flush()

	if out.String() != "         42." {
		t.Errorf("writef output = %q, want %q", out.String(), "         42.")
	}
}

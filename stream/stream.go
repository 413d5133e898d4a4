// Package stream manages the interpreter's stream handle table: an indexed
// set of opaque input/output handles with a current-input and current-output
// selection. Handles 1 and 2 are the system input and system output; the
// hosted program sees only small integer handle ids.
package stream

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// EndStreamCh is returned by RdCh at end of stream.
const EndStreamCh = -1

// Reserved stream names, matched case-insensitively.
const (
	NameSysIn    = "SYSIN"
	NameSysPrint = "SYSPRINT"
)

// file is one handle table entry. A reader entry has r set, a writer entry
// has w set. interactive writers flush after every newline.
type file struct {
	r           *bufio.Reader
	w           *bufio.Writer
	closer      io.Closer
	interactive bool
}

// Table is the stream handle table. CIS and COS select the current input and
// output; SysIn and SysPrint hold the defaults reverted to by EndRead and
// EndWrite.
type Table struct {
	files    []*file
	CIS      int
	COS      int
	SysIn    int
	SysPrint int
}

// NewTable creates a table with handle 1 reading from in and handle 2
// writing to out. The output handle is interactive: it flushes on newline.
func NewTable(in io.Reader, out io.Writer) *Table {
	return &Table{
		files: []*file{
			nil,
			{r: bufio.NewReader(in)},
			{w: bufio.NewWriter(out), interactive: true},
		},
		CIS:      1,
		COS:      2,
		SysIn:    1,
		SysPrint: 2,
	}
}

// OpenReader installs r as a new input handle and returns its id.
func (t *Table) OpenReader(r io.Reader) int {
	t.files = append(t.files, &file{r: bufio.NewReader(r)})
	return len(t.files) - 1
}

// OpenWriter installs w as a new output handle and returns its id.
func (t *Table) OpenWriter(w io.Writer) int {
	t.files = append(t.files, &file{w: bufio.NewWriter(w)})
	return len(t.files) - 1
}

// OpenInput opens the named file for reading and returns its handle id, or 0
// on failure. The reserved names resolve to the defaults. A failed open is
// retried with the lower-cased name before giving up.
func (t *Table) OpenInput(name string) int {
	if id, ok := t.reserved(name); ok {
		return id
	}
	f, err := os.Open(name)
	if err != nil {
		f, err = os.Open(strings.ToLower(name))
		if err != nil {
			return 0
		}
	}
	id := t.OpenReader(f)
	t.files[id].closer = f
	return id
}

// OpenOutput opens (creating or truncating) the named file for writing and
// returns its handle id, or 0 on failure.
func (t *Table) OpenOutput(name string) int {
	if id, ok := t.reserved(name); ok {
		return id
	}
	f, err := os.Create(name)
	if err != nil {
		return 0
	}
	id := t.OpenWriter(f)
	t.files[id].closer = f
	return id
}

func (t *Table) reserved(name string) (int, bool) {
	if strings.EqualFold(name, NameSysIn) {
		return t.SysIn, true
	}
	if strings.EqualFold(name, NameSysPrint) {
		return t.SysPrint, true
	}
	return 0, false
}

// EndRead closes the current input stream, unless it is the default, and
// reverts the current input to the default.
func (t *Table) EndRead() {
	if t.CIS == t.SysIn || t.CIS <= 0 || t.CIS >= len(t.files) {
		return
	}
	if f := t.files[t.CIS]; f != nil && f.closer != nil {
		_ = f.closer.Close()
	}
	t.files[t.CIS] = nil
	t.CIS = t.SysIn
}

// EndWrite flushes and closes the current output stream, unless it is the
// default, and reverts the current output to the default.
func (t *Table) EndWrite() {
	if t.COS == t.SysPrint || t.COS <= 0 || t.COS >= len(t.files) {
		return
	}
	if f := t.files[t.COS]; f != nil {
		if f.w != nil {
			_ = f.w.Flush()
		}
		if f.closer != nil {
			_ = f.closer.Close()
		}
	}
	t.files[t.COS] = nil
	t.COS = t.SysPrint
}

// RdCh returns the next byte of the current input as 0..255, mapping
// carriage return to line feed, or EndStreamCh when the stream is exhausted
// or unreadable.
func (t *Table) RdCh() int16 {
	if t.CIS <= 0 || t.CIS >= len(t.files) {
		return EndStreamCh
	}
	f := t.files[t.CIS]
	if f == nil || f.r == nil {
		return EndStreamCh
	}
	b, err := f.r.ReadByte()
	if err != nil {
		return EndStreamCh
	}
	if b == '\r' {
		return '\n'
	}
	return int16(b)
}

// WrCh writes the low byte of c to the current output. Line feeds flush
// interactive outputs. Writes to an invalid or read-only handle are ignored,
// as are host write errors; the hosted program has no way to observe them.
func (t *Table) WrCh(c int16) {
	if t.COS <= 0 || t.COS >= len(t.files) {
		return
	}
	f := t.files[t.COS]
	if f == nil || f.w == nil {
		return
	}
	if c == '\n' {
		_ = f.w.WriteByte('\n')
		if f.interactive {
			_ = f.w.Flush()
		}
		return
	}
	_ = f.w.WriteByte(byte(c))
}

// Flush flushes the current output and the default output.
func (t *Table) Flush() {
	for _, id := range []int{t.COS, t.SysPrint} {
		if id > 0 && id < len(t.files) {
			if f := t.files[id]; f != nil && f.w != nil {
				_ = f.w.Flush()
			}
		}
	}
}

// PipeInput opens the named file and installs it as both the current and the
// default input. It reports whether the open succeeded.
func (t *Table) PipeInput(name string) bool {
	id := t.OpenInput(name)
	if id == 0 {
		return false
	}
	t.CIS = id
	t.SysIn = id
	return true
}

// PipeOutput opens the named file and installs it as both the current and
// the default output.
func (t *Table) PipeOutput(name string) bool {
	id := t.OpenOutput(name)
	if id == 0 {
		return false
	}
	t.COS = id
	t.SysPrint = id
	return true
}

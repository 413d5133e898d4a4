// Package code defines the instruction-word encoding shared by the
// assembler and the execution core, and the K-code numbers of the runtime
// system calls.
package code

// A code word packs a function code in bits 2..0, modifier bits 5..3 and a
// short operand in bits 15..8. When FDBit is set the operand is the next
// word instead.
const (
	FnBits = 8
	FnMask = 255

	F0L = 0 // load literal
	F1S = 1 // store
	F2A = 2 // add to accumulator
	F3J = 3 // jump
	F4T = 4 // branch if true
	F5F = 5 // branch if false
	F6K = 6 // call / system call
	F7X = 7 // extended

	FIBit = 1 << 3 // indirect: d = M[d]
	FPBit = 1 << 4 // base-plus: d = d + sp
	FDBit = 1 << 5 // long form: operand is the next word
)

// Extended operation codes dispatched by F7X on the operand.
const (
	XInd    = 1  // a = M[a]
	XNeg    = 2  // a = -a
	XNot    = 3  // a = ^a
	XReturn = 4  // restore pc and sp from the frame
	XMul    = 5  // a = a * b
	XDiv    = 6  // a = b / a
	XRem    = 7  // a = b mod a
	XAdd    = 8  // a = b + a
	XSub    = 9  // a = b - a
	XEq     = 10 // comparisons yield -1 / 0
	XNe     = 11
	XLt     = 12
	XGe     = 13
	XGt     = 14
	XLe     = 15
	XLsh    = 16 // a = b << a
	XRsh    = 17 // a = b >> a, logical
	XAnd    = 18
	XOr     = 19
	XXor    = 20
	XEqv    = 21 // a = b XOR NOT a
	XHalt   = 22 // normal halt, result 0
	XSwitch = 23 // inline (count, default, key/target...) dispatch table
)

// K-codes: system call numbers invoked by an F6K instruction whose
// accumulator is below the program start address.
const (
	K01Start        = 1
	K11SelectInput  = 11
	K12SelectOutput = 12
	K13RdCh         = 13
	K14WrCh         = 14
	K16Input        = 16
	K17Output       = 17
	K30Stop         = 30
	K31Level        = 31
	K32LongJump     = 32
	K40AptoVec      = 40
	K41FindOutput   = 41
	K42FindInput    = 42
	K46EndRead      = 46
	K47EndWrite     = 47
	K60Writes       = 60
	K62WriteN       = 62
	K63Newline      = 63
	K64NewPage      = 64
	K66PackString   = 66
	K67UnpackString = 67
	K68WriteD       = 68
	K70ReadN        = 70
	K71Terminator   = 71 // global slot receiving READN's terminating character
	K75WriteHex     = 75
	K76WriteF       = 76
	K77WriteOct     = 77
	K85GetByte      = 85
	K86PutByte      = 86
	K87GetVec       = 87
	K88FreeVec      = 88
	K90ChangeCo     = 90
)

// Package keyboard decodes PS/2 scan codes into ASCII and feeds them
// into a circbuf-backed input queue that the console file description
// reads from, satisfying poll's pollin check for fd 0 (spec section
// 9's design note on "keyboard scan-code tables", and section 4.4's
// keyboard IRQ vector). biscuit's own keyboard driver shipped with no
// retrieved source, so the scan-code table is new, ported as a plain
// constant array exactly as that design note prescribes, and the
// queue is this tree's circbuf.Circbuf_t -- the same component the
// teacher already uses for single-daemon byte staging.
package keyboard

import (
	"sync"

	"circbuf"
	"defs"
	"fdops"
	"pci"
	"vm"
)

// dataPort is the PS/2 controller's data port, the original kernel's
// Ps2Controller read scan codes off before handing them to the
// decoder (kernel/cpp/Ps2Controller.cpp in the retrieved original
// source); this tree has no separate controller package, so the read
// lives here, over the same pci.Ports primitive pic/pit already use.
const dataPort uint16 = 0x60

// ReadPort reads one pending scan code byte off the controller's data
// port, for the keyboard IRQ vector to pass to Feed.
func ReadPort() uint8 {
	return pci.Ports.Inb(dataPort)
}

// scancode is the US QWERTY set-1 make-code table, index by scan code,
// unshifted. 0 means "no ASCII mapping" (modifier keys, function keys,
// breaks).
var scancode = [128]byte{
	0x00: 0, 0x01: 0x1b, // Esc
	0x02: '1', 0x03: '2', 0x04: '3', 0x05: '4', 0x06: '5',
	0x07: '6', 0x08: '7', 0x09: '8', 0x0a: '9', 0x0b: '0',
	0x0c: '-', 0x0d: '=', 0x0e: '\b',
	0x0f: '\t',
	0x10: 'q', 0x11: 'w', 0x12: 'e', 0x13: 'r', 0x14: 't',
	0x15: 'y', 0x16: 'u', 0x17: 'i', 0x18: 'o', 0x19: 'p',
	0x1a: '[', 0x1b: ']', 0x1c: '\n',
	0x1e: 'a', 0x1f: 's', 0x20: 'd', 0x21: 'f', 0x22: 'g',
	0x23: 'h', 0x24: 'j', 0x25: 'k', 0x26: 'l', 0x27: ';',
	0x28: '\'', 0x29: '`',
	0x2b: '\\',
	0x2c: 'z', 0x2d: 'x', 0x2e: 'c', 0x2f: 'v', 0x30: 'b',
	0x31: 'n', 0x32: 'm', 0x33: ',', 0x34: '.', 0x35: '/',
	0x39: ' ',
}

// scancodeShift is the same table with the shift modifier applied.
var scancodeShift = [128]byte{
	0x02: '!', 0x03: '@', 0x04: '#', 0x05: '$', 0x06: '%',
	0x07: '^', 0x08: '&', 0x09: '*', 0x0a: '(', 0x0b: ')',
	0x0c: '_', 0x0d: '+',
	0x10: 'Q', 0x11: 'W', 0x12: 'E', 0x13: 'R', 0x14: 'T',
	0x15: 'Y', 0x16: 'U', 0x17: 'I', 0x18: 'O', 0x19: 'P',
	0x1a: '{', 0x1b: '}',
	0x1e: 'A', 0x1f: 'S', 0x20: 'D', 0x21: 'F', 0x22: 'G',
	0x23: 'H', 0x24: 'J', 0x25: 'K', 0x26: 'L', 0x27: ':',
	0x28: '"', 0x29: '~',
	0x2b: '|',
	0x2c: 'Z', 0x2d: 'X', 0x2e: 'C', 0x2f: 'V', 0x30: 'B',
	0x31: 'N', 0x32: 'M', 0x33: '<', 0x34: '>', 0x35: '?',
	0x39: ' ',
}

const (
	leftShiftMake  = 0x2a
	rightShiftMake = 0x36
	leftShiftBreak = leftShiftMake | 0x80
	rightShiftBreak = rightShiftMake | 0x80
	breakBit       = 0x80

	queueSize = 256
)

// Keyboard_t owns the shift-key latch and the pending-input queue.
type Keyboard_t struct {
	sync.Mutex
	shift bool
	q     circbuf.Circbuf_t
}

// New returns a keyboard driver with an empty input queue.
func New() *Keyboard_t {
	kb := &Keyboard_t{}
	kb.q.Cb_init(queueSize)
	return kb
}

// Feed decodes one scan code byte, delivered by the keyboard IRQ
// vector, updates shift state, and on a make code with an ASCII
// mapping pushes the decoded byte into the input queue. It reports
// whether a byte was queued, which the caller uses to wake console
// readers via the signal manager's NotifyFile.
func (kb *Keyboard_t) Feed(code uint8) bool {
	kb.Lock()
	defer kb.Unlock()

	switch code {
	case leftShiftMake, rightShiftMake:
		kb.shift = true
		return false
	case leftShiftBreak, rightShiftBreak:
		kb.shift = false
		return false
	}

	if code&breakBit != 0 {
		return false
	}

	var ch byte
	if kb.shift {
		ch = scancodeShift[code&0x7f]
	} else {
		ch = scancode[code&0x7f]
	}
	if ch == 0 {
		return false
	}

	var fb vm.Fakeubuf_t
	fb.Fake_init([]byte{ch})
	n, err := kb.q.Copyin(&fb)
	return err == 0 && n == 1
}

// Read drains up to len(dst)'s worth of queued input into dst,
// satisfying the console file description's Fdops_i.Read.
func (kb *Keyboard_t) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	kb.Lock()
	defer kb.Unlock()
	return kb.q.Copyout(dst)
}

// Ready reports whether the input queue holds at least one byte,
// backing the console description's Pollcheck.
func (kb *Keyboard_t) Ready() bool {
	kb.Lock()
	defer kb.Unlock()
	return !kb.q.Empty()
}

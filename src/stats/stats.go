package stats

import "reflect"
import "sync/atomic"
import "strconv"
import "strings"
import "time"
import "unsafe"

const Stats = true
const Timing = true

var Nirqs [100]int
var Irqs int

// Rdtsc returns a monotonic nanosecond counter. The teacher's kernel
// reads the real RDTSC cycle counter via a custom-patched runtime
// (runtime.Rdtsc) that has no equivalent in a stock Go toolchain;
// this simulated kernel substitutes time.Now().UnixNano(), which is
// monotonic and strictly increasing on every supported platform and
// serves identically as an elapsed-time source for the Cycles_t
// counters below (they only ever compute differences of two reads).
func Rdtsc() uint64 {
	if Stats {
		return uint64(time.Now().UnixNano())
	} else {
		return 0
	}
}

/// Counter_t is a statistical counter.
type Counter_t int64

// Stats_t is the kernel-wide counter set the D_STAT device (spec
// section 6's device list) formats with Stats2String. intr and scall
// increment these as interrupts and syscalls are dispatched; ata
// increments AtaCmds as PIO commands are issued (spec section 4.10).
type Stats_t struct {
	Syscalls   Counter_t
	PageFaults Counter_t
	AtaCmds    Counter_t
}

// Kernel is the single kernel-wide Stats_t instance; there is exactly
// one kernel, so a package-level var matches Nirqs/Irqs below rather
// than threading a pointer through every dispatch call.
var Kernel Stats_t

/// Cycles_t holds a cycle count.
type Cycles_t int64

/// Inc increments the counter.
func (c *Counter_t) Inc() {
	if Stats {
		n := (*int64)(unsafe.Pointer(c))
		atomic.AddInt64(n, 1)
	}
}

/// Add adds elapsed cycles to the counter.
func (c *Cycles_t) Add(m uint64) {
	if Timing {
		n := (*int64)(unsafe.Pointer(c))
		atomic.AddInt64(n, int64(Rdtsc()-m))
	}
}

/// Stats2String converts a struct of counters to a printable string.
func Stats2String(st interface{}) string {
	if !Stats {
		return ""
	}
	v := reflect.ValueOf(st)
	s := ""
	for i := 0; i < v.NumField(); i++ {
		t := v.Field(i).Type().String()
		if strings.HasSuffix(t, "Counter_t") {
			n := v.Field(i).Interface().(Counter_t)
			s += "\n\t#" + v.Type().Field(i).Name + ": " + strconv.FormatInt(int64(n), 10)
		}
		if strings.HasSuffix(t, "Cycles_t") {
			n := v.Field(i).Interface().(Cycles_t)
			s += "\n\t#" + v.Type().Field(i).Name + ": " + strconv.FormatInt(int64(n), 10)
		}

	}
	return s + "\n"
}

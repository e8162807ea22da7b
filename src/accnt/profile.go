package accnt

import (
	"fmt"

	"github.com/google/pprof/profile"
)

// Profile serializes a set of per-process accounting records into a
// pprof-format profile.Profile: one sample per (pid, syscall number)
// pair seen since boot, with the syscall's invocation count as the
// sample value. This is what the D_PROF device (see SPEC_FULL.md
// section 10) returns on read, letting a host tool run
// "go tool pprof" against a live kernel's syscall mix.
func Profile(byPid map[int]*Accnt_t) *profile.Profile {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "syscalls", Unit: "count"},
		},
		PeriodType: &profile.ValueType{Type: "syscalls", Unit: "count"},
		Period:     1,
	}

	funcs := make(map[string]*profile.Function)
	locs := make(map[string]*profile.Location)
	var nextID uint64 = 1

	locFor := func(name string) *profile.Location {
		if l, ok := locs[name]; ok {
			return l
		}
		fn, ok := funcs[name]
		if !ok {
			fn = &profile.Function{ID: nextID, Name: name, SystemName: name}
			nextID++
			funcs[name] = fn
			p.Function = append(p.Function, fn)
		}
		loc := &profile.Location{
			ID:   nextID,
			Line: []profile.Line{{Function: fn}},
		}
		nextID++
		locs[name] = loc
		p.Location = append(p.Location, loc)
		return loc
	}

	for pid, a := range byPid {
		a.Lock()
		for idx, n := range a.Syscalls {
			name := fmt.Sprintf("pid%d:sys%d", pid, idx)
			loc := locFor(name)
			p.Sample = append(p.Sample, &profile.Sample{
				Location: []*profile.Location{loc},
				Value:    []int64{n},
			})
		}
		a.Unlock()
	}
	return p
}

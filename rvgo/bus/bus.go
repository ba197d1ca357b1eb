package bus

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum-optimism/rvhart/rvgo/riscv"
)

// Region binds the half-open address range [Start, End) to a device.
type Region struct {
	Name   string
	Start  uint64
	End    uint64
	Device Device
}

func (r Region) Contains(addr uint64) bool {
	return addr >= r.Start && addr < r.End
}

func (r Region) String() string {
	return fmt.Sprintf("%s [0x%x, 0x%x)", r.Name, r.Start, r.End)
}

// Bus routes physical accesses to the device owning the address.
// The region table is fixed at construction.
type Bus struct {
	regions []Region
}

// New builds a bus from the given regions. Regions must be non-empty,
// have a device and must not overlap.
func New(regions ...Region) (*Bus, error) {
	sorted := append([]Region(nil), regions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for i, r := range sorted {
		if r.Device == nil {
			return nil, fmt.Errorf("region %s has no device", r)
		}
		if r.End <= r.Start {
			return nil, fmt.Errorf("region %s is empty", r)
		}
		if i > 0 && sorted[i-1].End > r.Start {
			return nil, fmt.Errorf("region %s overlaps %s", r, sorted[i-1])
		}
	}
	return &Bus{regions: sorted}, nil
}

// Regions returns a copy of the region table, ordered by start address.
func (b *Bus) Regions() []Region {
	return append([]Region(nil), b.regions...)
}

func (b *Bus) lookup(addr uint64, w Width) (Region, bool) {
	for _, r := range b.regions {
		if r.Contains(addr) {
			// the whole access must stay within the region
			if r.End-addr < w.Bytes() {
				return Region{}, false
			}
			return r, true
		}
	}
	return Region{}, false
}

func (b *Bus) Read(addr uint64, w Width) (uint64, error) {
	if !w.Valid() {
		return 0, riscv.HardwareError("unsupported read width %d", uint8(w))
	}
	r, ok := b.lookup(addr, w)
	if !ok {
		return 0, riscv.LoadAccessFault(addr)
	}
	v, err := r.Device.Read(addr-r.Start, w)
	if err != nil {
		return 0, deviceFault(err, riscv.LoadAccessFault(addr), r)
	}
	return v, nil
}

func (b *Bus) Write(addr uint64, value uint64, w Width) error {
	if !w.Valid() {
		return riscv.HardwareError("unsupported write width %d", uint8(w))
	}
	r, ok := b.lookup(addr, w)
	if !ok {
		return riscv.StoreAccessFault(addr)
	}
	if err := r.Device.Write(addr-r.Start, value, w); err != nil {
		return deviceFault(err, riscv.StoreAccessFault(addr), r)
	}
	return nil
}

func deviceFault(err error, fault *riscv.Exception, r Region) error {
	var exc *riscv.Exception
	if errors.As(err, &exc) {
		return exc
	}
	fault.Reason = fmt.Sprintf("%s: %v", r.Name, err)
	return fault
}

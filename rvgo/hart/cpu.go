package hart

import (
	"github.com/ethereum-optimism/rvhart/rvgo/bus"
	"github.com/ethereum-optimism/rvhart/rvgo/riscv"
)

// Observer is notified of every decoded instruction and every delivered trap.
// Observers must not mutate the hart.
type Observer interface {
	OnInstruction(pc uint64, in Instruction)
	OnTrap(pc uint64, exc *riscv.Exception)
}

type Config struct {
	// StackTop is loaded into sp at reset, conventionally the end of main memory.
	StackTop uint64
	// DTBBase is loaded into a1 at reset, the address of the device-tree blob.
	DTBBase uint64
	// StrictAlignment makes misaligned loads and stores trap instead of
	// being performed byte-wise.
	StrictAlignment bool
	Observer        Observer
}

// ConfigFor returns the reset configuration for a board with the given layout.
func ConfigFor(l bus.Layout) Config {
	return Config{StackTop: l.DRAMEnd(), DTBBase: l.DTBBase}
}

// Cpu is a single RV64IM hart with atomic memory operations. All architectural
// state is owned by the Cpu; it is not safe for concurrent use.
type Cpu struct {
	bus  *bus.Bus
	regs RegisterFile
	csrs CSRFile
	pc   uint64
	mode riscv.Mode

	strictAlign bool
	observer    Observer
}

func New(b *bus.Bus, cfg Config) *Cpu {
	c := &Cpu{
		bus:         b,
		mode:        riscv.ModeMachine,
		strictAlign: cfg.StrictAlignment,
		observer:    cfg.Observer,
	}
	c.regs.Write(riscv.RegSP, cfg.StackTop)
	c.regs.Write(riscv.RegA1, cfg.DTBBase)
	c.csrs.Write(riscv.CSRMisa, riscv.MisaMXL64|riscv.MisaI|riscv.MisaM)
	c.csrs.Write(riscv.CSRMhartid, 0)
	return c
}

func (c *Cpu) Bus() *bus.Bus {
	return c.bus
}

func (c *Cpu) PC() uint64 {
	return c.pc
}

func (c *Cpu) SetPC(pc uint64) {
	c.pc = pc
}

func (c *Cpu) Mode() riscv.Mode {
	return c.mode
}

func (c *Cpu) SetMode(m riscv.Mode) {
	c.mode = m
}

func (c *Cpu) Register(i uint8) uint64 {
	return c.regs.Read(i)
}

func (c *Cpu) SetRegister(i uint8, v uint64) {
	c.regs.Write(i, v)
}

// Registers returns a copy of the integer register file.
func (c *Cpu) Registers() RegisterFile {
	return c.regs
}

func (c *Cpu) CSR(i uint16) uint64 {
	return c.csrs.Read(i)
}

func (c *Cpu) SetCSR(i uint16, v uint64) {
	c.csrs.Write(i, v)
}

func (c *Cpu) SetObserver(o Observer) {
	c.observer = o
}

// Step executes one instruction. If it faults, the trap is delivered before
// Step returns the exception; nil means the instruction retired.
func (c *Cpu) Step() *riscv.Exception {
	pc := c.pc
	if err := c.Execute(); err != nil {
		exc := riscv.AsException(err)
		c.HandleTrap(pc, exc)
		c.tick()
		return exc
	}
	return nil
}

// Execute fetches, decodes and executes the instruction at the program counter.
// On failure no architectural state has changed and the returned error is a
// *riscv.Exception that has not been delivered yet.
func (c *Cpu) Execute() error {
	pc := c.pc
	instr, err := c.fetch(pc)
	if err != nil {
		return err
	}
	in, err := Decode(instr)
	if err != nil {
		return err
	}
	if c.observer != nil {
		c.observer.OnInstruction(pc, in)
	}
	next, err := c.exec(pc, in)
	if err != nil {
		return err
	}
	c.pc = next
	c.retire()
	return nil
}

func (c *Cpu) fetch(pc uint64) (uint32, error) {
	half, err := c.bus.Read(pc, bus.Half)
	if err != nil {
		return 0, err
	}
	if half&3 != 3 {
		if half == 0 {
			return 0, riscv.IllegalInstruction("zero instruction at %016x", pc)
		}
		return 0, riscv.Unsupported("compressed instruction %04x", half)
	}
	word, err := c.bus.Read(pc, bus.Word)
	if err != nil {
		return 0, err
	}
	return uint32(word), nil
}

// tick advances the cycle counter; every step takes one cycle.
func (c *Cpu) tick() {
	cycle := c.csrs.Read(riscv.CSRMcycle) + 1
	c.csrs.Write(riscv.CSRMcycle, cycle)
	c.csrs.Write(riscv.CSRCycle, cycle)
}

func (c *Cpu) retire() {
	c.tick()
	instret := c.csrs.Read(riscv.CSRMinstret) + 1
	c.csrs.Write(riscv.CSRMinstret, instret)
	c.csrs.Write(riscv.CSRInstret, instret)
}

func (c *Cpu) load(addr uint64, w bus.Width) (uint64, error) {
	if c.strictAlign && addr%w.Bytes() != 0 {
		return 0, riscv.LoadAddressMisaligned(addr)
	}
	return c.bus.Read(addr, w)
}

func (c *Cpu) store(addr uint64, v uint64, w bus.Width) error {
	if c.strictAlign && addr%w.Bytes() != 0 {
		return riscv.StoreAddressMisaligned(addr)
	}
	return c.bus.Write(addr, v, w)
}

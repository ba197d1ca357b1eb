package cmd

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ethereum-optimism/rvhart/rvgo/hart"
	"github.com/ethereum-optimism/rvhart/rvgo/riscv"
)

var csrNames = map[string]uint16{
	"mstatus":  riscv.CSRMstatus,
	"misa":     riscv.CSRMisa,
	"mtvec":    riscv.CSRMtvec,
	"mscratch": riscv.CSRMscratch,
	"mepc":     riscv.CSRMepc,
	"mcause":   riscv.CSRMcause,
	"mtval":    riscv.CSRMtval,
	"mcycle":   riscv.CSRMcycle,
	"minstret": riscv.CSRMinstret,
	"mhartid":  riscv.CSRMhartid,
}

// StopCondition is a compiled starlark predicate over the hart state.
type StopCondition struct {
	expr   string
	thread starlark.Thread
	fn     starlark.Value

	cpu *hart.Cpu
}

// NewStopCondition compiles expr, which must evaluate to a truth value.
func NewStopCondition(expr string) (*StopCondition, error) {
	sc := &StopCondition{expr: expr}
	sc.thread.Name = "stop-when"

	pred := starlark.StringDict{
		"pc":   starlark.NewBuiltin("pc", sc.pc),
		"x":    starlark.NewBuiltin("x", sc.reg),
		"csr":  starlark.NewBuiltin("csr", sc.csr),
		"mode": starlark.NewBuiltin("mode", sc.mode),
	}
	for i, name := range riscv.RegisterNames() {
		pred[name] = starlark.MakeInt(i)
	}
	for name, n := range csrNames {
		pred[name] = starlark.MakeInt(int(n))
	}

	prog := "def cond():\n    return (" + expr + ")\n"
	opts := syntax.FileOptions{}
	dict, err := starlark.ExecFileOptions(&opts, &sc.thread, "stop-when", prog, pred)
	if err != nil {
		return nil, fmt.Errorf("invalid stop condition %q: %w", expr, err)
	}
	sc.fn = dict["cond"]
	return sc, nil
}

func (sc *StopCondition) String() string {
	return sc.expr
}

// Eval evaluates the condition against the current state of c.
func (sc *StopCondition) Eval(c *hart.Cpu) (bool, error) {
	sc.cpu = c
	defer func() { sc.cpu = nil }()
	v, err := starlark.Call(&sc.thread, sc.fn, nil, nil)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate stop condition %q: %w", sc.expr, err)
	}
	return bool(v.Truth()), nil
}

func (sc *StopCondition) pc(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	return starlark.MakeUint64(sc.cpu.PC()), nil
}

func (sc *StopCondition) reg(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var i int
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &i); err != nil {
		return nil, err
	}
	if i < 0 || i > 31 {
		return nil, fmt.Errorf("%s: register %d out of range", b.Name(), i)
	}
	return starlark.MakeUint64(sc.cpu.Register(uint8(i))), nil
}

func (sc *StopCondition) csr(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var n int
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &n); err != nil {
		return nil, err
	}
	if n < 0 || n >= riscv.CSRCount {
		return nil, fmt.Errorf("%s: csr 0x%x out of range", b.Name(), n)
	}
	return starlark.MakeUint64(sc.cpu.CSR(uint16(n))), nil
}

func (sc *StopCondition) mode(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	return starlark.String(sc.cpu.Mode().String()), nil
}

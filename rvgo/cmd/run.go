package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/pkg/profile"

	"github.com/ethereum-optimism/optimism/op-service/jsonutil"

	"github.com/ethereum-optimism/rvhart/rvgo/hart"
	"github.com/ethereum-optimism/rvhart/rvgo/riscv"
)

// ErrTrapLoop is returned when the trap vector itself keeps faulting.
var ErrTrapLoop = errors.New("trap loop")

// RunConfig controls how the driver reacts to the hart.
type RunConfig struct {
	StopAt     StepMatcher
	InfoAt     StepMatcher
	SnapshotAt StepMatcher
	StopWhen   *StopCondition

	SnapshotFmt string

	HaltOnUnsupported bool
	// TrapLoopLimit is the number of consecutive traps at the trap vector
	// that is tolerated; 0 disables the check.
	TrapLoopLimit uint64
}

func never(step uint64) bool { return false }

func (cfg *RunConfig) defaults() {
	if cfg.StopAt == nil {
		cfg.StopAt = never
	}
	if cfg.InfoAt == nil {
		cfg.InfoAt = never
	}
	if cfg.SnapshotAt == nil {
		cfg.SnapshotAt = never
	}
}

// RunResult summarizes a run.
type RunResult struct {
	Steps   uint64
	Retired uint64
	Traps   uint64
	Elapsed time.Duration
}

// Steps are counted by mcycle, so the numbering continues across snapshots.
func stepOf(m *hart.Machine) uint64 {
	return m.CSR(riscv.CSRMcycle)
}

// RunMachine steps m until a stop condition matches, the context is done, or
// the hart hits a condition the driver cannot continue from.
func RunMachine(ctx context.Context, l log.Logger, m *hart.Machine, cfg RunConfig) (res RunResult, err error) {
	cfg.defaults()
	start := time.Now()
	startStep := stepOf(m)
	startRetired := m.CSR(riscv.CSRMinstret)
	defer func() {
		res.Elapsed = time.Since(start)
		res.Steps = stepOf(m) - startStep
		res.Retired = m.CSR(riscv.CSRMinstret) - startRetired
	}()

	var trapLoop uint64
	for {
		step := stepOf(m)
		if (step-startStep)%100 == 0 { // don't do the ctx err check (includes lock) too often
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}

		if cfg.InfoAt(step) {
			delta := time.Since(start)
			l.Info("processing",
				"step", step,
				"pc", HexU64(m.PC()),
				"mode", m.Mode(),
				"ips", float64(step-startStep)/(float64(delta)/float64(time.Second)),
				"pages", m.Board.DRAM.PageCount(),
				"mem", m.Board.DRAM.Usage(),
			)
		}

		if cfg.StopAt(step) {
			l.Info("stopping at step", "step", step)
			return res, nil
		}
		if cfg.StopWhen != nil {
			stop, evalErr := cfg.StopWhen.Eval(m.Cpu)
			if evalErr != nil {
				return res, evalErr
			}
			if stop {
				l.Info("stop condition matched", "step", step, "cond", cfg.StopWhen, "pc", HexU64(m.PC()))
				return res, nil
			}
		}

		if cfg.SnapshotAt(step) {
			if err := jsonutil.WriteJSON(fmt.Sprintf(cfg.SnapshotFmt, step), m.Snapshot(), OutFilePerm); err != nil {
				return res, fmt.Errorf("failed to write state snapshot: %w", err)
			}
		}

		pc := m.PC()
		exc := m.Step()
		if exc == nil {
			trapLoop = 0
			continue
		}
		res.Traps++

		switch {
		case exc.Cause == riscv.CauseHardwareError:
			return res, fmt.Errorf("failed at step %d (PC: %016x): %w", step, pc, exc)
		case exc.Unsupported && cfg.HaltOnUnsupported:
			return res, fmt.Errorf("halted at step %d (PC: %016x): %w", step, pc, exc)
		}

		// the handler at the trap vector faulted itself, so it will fault again
		if pc == m.PC() {
			trapLoop++
			if cfg.TrapLoopLimit != 0 && trapLoop > cfg.TrapLoopLimit {
				return res, fmt.Errorf("%w: %d consecutive traps at %016x, last: %w", ErrTrapLoop, trapLoop, pc, exc)
			}
		} else {
			trapLoop = 0
		}
	}
}

func Run(ctx *cli.Context) error {
	if ctx.Bool(RunPProfCPUFlag.Name) {
		defer profile.Start(profile.NoShutdownHook, profile.ProfilePath("."), profile.CPUProfile).Stop()
	}

	lvl, err := parseLevel(ctx.String(LogLevelFlag.Name))
	if err != nil {
		return err
	}
	l := Logger(os.Stderr, lvl)

	var console io.Writer
	switch c := ctx.String(RunConsoleFlag.Name); c {
	case "log":
		lw := &LoggingWriter{Name: "console", Log: l}
		defer lw.Flush()
		console = lw
	case "stdout":
		console = os.Stdout
	default:
		return fmt.Errorf("invalid console %q, expected 'log' or 'stdout'", c)
	}

	var obs observers
	if ctx.Bool(RunTraceFlag.Name) {
		obs = append(obs, &traceObserver{log: l})
	}
	var counter *OpCounter
	if ctx.Path(RunOpChartFlag.Name) != "" {
		counter = NewOpCounter()
		obs = append(obs, counter)
	}
	var observer hart.Observer
	switch len(obs) {
	case 0:
	case 1:
		observer = obs[0]
	default:
		observer = obs
	}

	var m *hart.Machine
	if input := ctx.Path(RunInputFlag.Name); input != "" {
		state, err := jsonutil.LoadJSON[hart.State](input)
		if err != nil {
			return fmt.Errorf("failed to load state: %w", err)
		}
		if m, err = hart.Restore(state, console, observer); err != nil {
			return fmt.Errorf("failed to restore state: %w", err)
		}
	} else {
		cfg := hart.Config{StrictAlignment: ctx.Bool(StrictAlignFlag.Name), Observer: observer}
		if m, err = machineFromImageFlags(ctx, console, cfg); err != nil {
			return err
		}
	}
	l.Info("loaded machine", "pc", HexU64(m.PC()), "mode", m.Mode(), "dram", HexU64(m.Board.Layout.DRAMSize))

	cfg := RunConfig{
		StopAt:            ctx.Generic(RunStopAtFlag.Name).(*StepMatcherFlag).Matcher(),
		InfoAt:            ctx.Generic(RunInfoAtFlag.Name).(*StepMatcherFlag).Matcher(),
		SnapshotAt:        ctx.Generic(RunSnapshotAtFlag.Name).(*StepMatcherFlag).Matcher(),
		SnapshotFmt:       ctx.String(RunSnapshotFmtFlag.Name),
		HaltOnUnsupported: ctx.Bool(RunHaltOnUnsupportedFlag.Name),
		TrapLoopLimit:     ctx.Uint64(RunTrapLoopLimitFlag.Name),
	}
	if expr := ctx.String(RunStopWhenFlag.Name); expr != "" {
		if cfg.StopWhen, err = NewStopCondition(expr); err != nil {
			return err
		}
	}

	res, runErr := RunMachine(ctx.Context, l, m, cfg)

	p := newPrinter(l)
	l.Info("finished",
		"summary", p.Sprintf("%d steps, %d retired, %d traps in %v", res.Steps, res.Retired, res.Traps, res.Elapsed.Round(time.Millisecond)),
		"rate", p.Sprintf("%.0f steps/s", float64(res.Steps)/res.Elapsed.Seconds()),
		"pc", HexU64(m.PC()),
		"mode", m.Mode(),
	)

	if counter != nil {
		for i, oc := range counter.Ops() {
			if i == 5 {
				break
			}
			l.Info("instruction mix", "op", oc.Op, "count", p.Sprintf("%d", oc.Count))
		}
		if err := counter.WriteChart(ctx.Path(RunOpChartFlag.Name), ctx.Int(RunOpChartTopFlag.Name)); err != nil {
			l.Error("failed to write instruction mix chart", "err", err)
		}
	}

	if out := ctx.Path(RunOutputFlag.Name); out != "" {
		if err := jsonutil.WriteJSON(out, m.Snapshot(), OutFilePerm); err != nil {
			return errors.Join(runErr, fmt.Errorf("failed to write state output: %w", err))
		}
	}
	return runErr
}

var RunCommand = &cli.Command{
	Name:        "run",
	Usage:       "Run the hart from a kernel image or a JSON state",
	Description: "Run the hart until a stop condition matches. See flags to match when to output a snapshot, print progress, or stop early.",
	Action:      Run,
	Flags: []cli.Flag{
		RunInputFlag,
		ImageFlag,
		DTBFlag,
		DRAMSizeFlag,
		StrictAlignFlag,
		RunOutputFlag,
		RunSnapshotAtFlag,
		RunSnapshotFmtFlag,
		RunStopAtFlag,
		RunStopWhenFlag,
		RunInfoAtFlag,
		RunTraceFlag,
		RunOpChartFlag,
		RunOpChartTopFlag,
		RunConsoleFlag,
		RunHaltOnUnsupportedFlag,
		RunTrapLoopLimitFlag,
		RunPProfCPUFlag,
	},
}

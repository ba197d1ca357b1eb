package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"log/slog"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

const envVarPrefix = "RVHART"

const stopWhenHelp = "builtins pc(), x(i), csr(n) and mode() read the hart, register and CSR names are predeclared, e.g. 'x(a0) == 0 and pc() == 0x80000000'"

func prefixEnvVars(name string) []string {
	return []string{envVarPrefix + "_" + strings.ToUpper(strings.ReplaceAll(name, ".", "_"))}
}

var (
	ImageFlag = &cli.PathFlag{
		Name:      "image",
		Usage:     "Path to a raw kernel image or a RISC-V ELF file",
		TakesFile: true,
		EnvVars:   prefixEnvVars("image"),
	}
	DTBFlag = &cli.PathFlag{
		Name:      "dtb",
		Usage:     "Path to the device-tree blob placed in the boot ROM",
		TakesFile: true,
		EnvVars:   prefixEnvVars("dtb"),
	}
	DRAMSizeFlag = &cli.StringFlag{
		Name:    "dram-size",
		Usage:   "Size of main memory in bytes (decimal or 0x-prefixed hex)",
		Value:   "0x40000000",
		EnvVars: prefixEnvVars("dram-size"),
	}
	StrictAlignFlag = &cli.BoolFlag{
		Name:    "strict-align",
		Usage:   "Raise address-misaligned exceptions instead of performing misaligned accesses",
		EnvVars: prefixEnvVars("strict-align"),
	}
	LoadOutputFlag = &cli.PathFlag{
		Name:      "output",
		Usage:     "Output path of the JSON state",
		TakesFile: true,
		Value:     "state.json",
		EnvVars:   prefixEnvVars("output"),
	}
	RunInputFlag = &cli.PathFlag{
		Name:      "input",
		Usage:     "Path of the input JSON state. Takes precedence over --image and --dtb.",
		TakesFile: true,
		EnvVars:   prefixEnvVars("input"),
	}
	RunOutputFlag = &cli.PathFlag{
		Name:      "output",
		Usage:     "Output path of the final JSON state. Empty to skip.",
		TakesFile: true,
		Value:     "out.json",
		EnvVars:   prefixEnvVars("output"),
	}
	RunSnapshotAtFlag = &cli.GenericFlag{
		Name:    "snapshot-at",
		Usage:   "step pattern to output a state snapshot at: " + patternHelp,
		Value:   MustStepMatcherFlag("never"),
		EnvVars: prefixEnvVars("snapshot-at"),
	}
	RunSnapshotFmtFlag = &cli.StringFlag{
		Name:    "snapshot-fmt",
		Usage:   "format for snapshot output file names",
		Value:   "state-%d.json",
		EnvVars: prefixEnvVars("snapshot-fmt"),
	}
	RunStopAtFlag = &cli.GenericFlag{
		Name:    "stop-at",
		Usage:   "step pattern to stop at: " + patternHelp,
		Value:   MustStepMatcherFlag("never"),
		EnvVars: prefixEnvVars("stop-at"),
	}
	RunInfoAtFlag = &cli.GenericFlag{
		Name:    "info-at",
		Usage:   "step pattern to print progress info at: " + patternHelp,
		Value:   MustStepMatcherFlag("%100000"),
		EnvVars: prefixEnvVars("info-at"),
	}
	RunStopWhenFlag = &cli.StringFlag{
		Name:    "stop-when",
		Usage:   "starlark expression checked before every step, stops when true: " + stopWhenHelp,
		EnvVars: prefixEnvVars("stop-when"),
	}
	RunTraceFlag = &cli.BoolFlag{
		Name:    "trace",
		Usage:   "Log every instruction (at trace level) and trap (at debug level)",
		EnvVars: prefixEnvVars("trace"),
	}
	RunConsoleFlag = &cli.StringFlag{
		Name:    "console",
		Usage:   "Where console output goes: 'log' (line-buffered log records) or 'stdout'",
		Value:   "log",
		EnvVars: prefixEnvVars("console"),
	}
	RunHaltOnUnsupportedFlag = &cli.BoolFlag{
		Name:    "halt-on-unsupported",
		Usage:   "Halt when the guest executes a recognised but unimplemented instruction",
		Value:   true,
		EnvVars: prefixEnvVars("halt-on-unsupported"),
	}
	RunTrapLoopLimitFlag = &cli.Uint64Flag{
		Name:    "trap-loop-limit",
		Usage:   "Halt after this many consecutive traps raised at the trap vector itself. 0 disables the check.",
		Value:   16,
		EnvVars: prefixEnvVars("trap-loop-limit"),
	}
	RunOpChartFlag = &cli.PathFlag{
		Name:      "op-chart",
		Usage:     "Write a bar chart of the executed instruction mix to this path (.png, .svg or .pdf)",
		TakesFile: true,
		EnvVars:   prefixEnvVars("op-chart"),
	}
	RunOpChartTopFlag = &cli.IntFlag{
		Name:    "op-chart.top",
		Usage:   "Number of most frequent operations shown in the instruction mix chart, 0 for all",
		Value:   24,
		EnvVars: prefixEnvVars("op-chart.top"),
	}
	RunPProfCPUFlag = &cli.BoolFlag{
		Name:    "pprof.cpu",
		Usage:   "enable pprof cpu profiling",
		EnvVars: prefixEnvVars("pprof.cpu"),
	}
	HashInputFlag = &cli.PathFlag{
		Name:      "input",
		Usage:     "Path of the input JSON state",
		TakesFile: true,
		Required:  true,
		EnvVars:   prefixEnvVars("input"),
	}
	LogLevelFlag = &cli.StringFlag{
		Name:    "log.level",
		Usage:   "The lowest log level that will be output: trace, debug, info, warn, error, crit",
		Value:   "info",
		EnvVars: prefixEnvVars("log.level"),
	}
)

var GlobalFlags = []cli.Flag{LogLevelFlag}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "trace", "trce":
		return log.LevelTrace, nil
	case "debug", "dbug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn":
		return log.LevelWarn, nil
	case "error", "eror":
		return log.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// parseNumber accepts 0x-prefixed hex or decimal.
func parseNumber(s string) (uint64, error) {
	v, err := strconv.ParseUint(strings.ReplaceAll(s, "_", ""), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return v, nil
}

package cmd

import (
	"bytes"
	"fmt"
	"io"

	"log/slog"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/rvhart/rvgo/hart"
	"github.com/ethereum-optimism/rvhart/rvgo/riscv"
)

func Logger(w io.Writer, lvl slog.Level) log.Logger {
	return log.NewLogger(log.LogfmtHandlerWithLevel(w, lvl))
}

// LoggingWriter is a simple util to wrap a logger,
// and expose an io Writer interface,
// for the program running within the VM to write to.
// Output is buffered until a newline, since the console emits one byte at a time.
type LoggingWriter struct {
	Name string
	Log  log.Logger

	buf bytes.Buffer
}

func logAsText(b string) bool {
	for _, c := range b {
		if (c < 0x20 || c >= 0x7F) && (c != '\n' && c != '\t') {
			return false
		}
	}
	return true
}

func (lw *LoggingWriter) Write(b []byte) (int, error) {
	lw.buf.Write(b)
	for {
		i := bytes.IndexByte(lw.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		lw.emit(lw.buf.Next(i + 1)[:i])
	}
	return len(b), nil
}

// Flush logs any partial line that is still buffered.
func (lw *LoggingWriter) Flush() {
	if lw.buf.Len() > 0 {
		lw.emit(lw.buf.Bytes())
		lw.buf.Reset()
	}
}

func (lw *LoggingWriter) emit(line []byte) {
	t := string(line)
	if logAsText(t) {
		lw.Log.Info(lw.Name, "text", t)
	} else {
		lw.Log.Info(lw.Name, "data", hexutil.Bytes(line))
	}
}

// HexU32 to lazy-format integer attributes for logging
type HexU32 uint32

func (v HexU32) String() string {
	return fmt.Sprintf("%08x", uint32(v))
}

func (v HexU32) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

type HexU64 uint64

func (v HexU64) String() string {
	return fmt.Sprintf("%016x", uint64(v))
}

func (v HexU64) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// traceObserver logs every instruction at trace level and every trap at debug level.
type traceObserver struct {
	log log.Logger
}

var _ hart.Observer = (*traceObserver)(nil)

func (o *traceObserver) OnInstruction(pc uint64, in hart.Instruction) {
	o.log.Trace("instruction", "pc", HexU64(pc), "insn", HexU32(in.Raw), "op", in.Op)
}

func (o *traceObserver) OnTrap(pc uint64, exc *riscv.Exception) {
	o.log.Debug("trap", "pc", HexU64(pc), "cause", exc.Cause, "tval", HexU64(exc.Value), "reason", exc.Reason)
}

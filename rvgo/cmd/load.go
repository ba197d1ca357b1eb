package cmd

import (
	"bytes"
	"debug/elf"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/optimism/op-service/jsonutil"

	"github.com/ethereum-optimism/rvhart/rvgo/bus"
	"github.com/ethereum-optimism/rvhart/rvgo/hart"
)

var OutFilePerm = os.FileMode(0o755)

// layoutFromFlags returns the default board layout with the requested main memory size.
func layoutFromFlags(ctx *cli.Context) (bus.Layout, error) {
	l := bus.DefaultLayout()
	size, err := parseNumber(ctx.String(DRAMSizeFlag.Name))
	if err != nil {
		return bus.Layout{}, fmt.Errorf("invalid --%s: %w", DRAMSizeFlag.Name, err)
	}
	l.DRAMSize = size
	return l, nil
}

// LoadMachine builds a machine with the kernel image and device tree loaded.
// ELF images are placed by their program headers and start at their entry point;
// anything else is copied raw to the start of main memory.
func LoadMachine(l bus.Layout, image []byte, dtb []byte, console io.Writer, cfg hart.Config) (*hart.Machine, error) {
	m, err := hart.NewMachine(l, console, cfg)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(image, []byte(elf.ELFMAG)) {
		if err := loadELF(m, image); err != nil {
			return nil, err
		}
	} else if err := m.LoadImage(image); err != nil {
		return nil, err
	}
	if err := m.LoadDTB(dtb); err != nil {
		return nil, err
	}
	return m, nil
}

func loadELF(m *hart.Machine, image []byte) error {
	f, err := elf.NewFile(bytes.NewReader(image))
	if err != nil {
		return fmt.Errorf("failed to parse ELF: %w", err)
	}
	defer f.Close()
	if f.Machine != elf.EM_RISCV {
		return fmt.Errorf("ELF is not RISC-V, but got %q", f.Machine.String())
	}
	if f.Class != elf.ELFCLASS64 {
		return fmt.Errorf("ELF is not 64-bit, but got %q", f.Class.String())
	}
	l := m.Board.Layout
	for i, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Memsz == 0 {
			continue
		}
		if prog.Filesz > prog.Memsz {
			return fmt.Errorf("program segment %d has file size %d larger than memory size %d", i, prog.Filesz, prog.Memsz)
		}
		if prog.Paddr < l.DRAMBase || prog.Paddr+prog.Memsz > l.DRAMEnd() || prog.Paddr+prog.Memsz < prog.Paddr {
			return fmt.Errorf("program segment %d [0x%x, 0x%x) does not fit in main memory [0x%x, 0x%x)",
				i, prog.Paddr, prog.Paddr+prog.Memsz, l.DRAMBase, l.DRAMEnd())
		}
		// main memory starts zeroed, so only the file-backed part needs copying
		if err := m.LoadSegment(prog.Paddr, io.LimitReader(prog.Open(), int64(prog.Filesz))); err != nil {
			return fmt.Errorf("failed to load program segment %d: %w", i, err)
		}
	}
	m.SetPC(f.Entry)
	return nil
}

func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	return data, nil
}

// machineFromImageFlags loads the machine described by --image, --dtb and --dram-size.
func machineFromImageFlags(ctx *cli.Context, console io.Writer, cfg hart.Config) (*hart.Machine, error) {
	imagePath := ctx.Path(ImageFlag.Name)
	if imagePath == "" {
		return nil, fmt.Errorf("either --%s or --%s is required", ImageFlag.Name, RunInputFlag.Name)
	}
	image, err := readOptional(imagePath)
	if err != nil {
		return nil, err
	}
	dtb, err := readOptional(ctx.Path(DTBFlag.Name))
	if err != nil {
		return nil, err
	}
	l, err := layoutFromFlags(ctx)
	if err != nil {
		return nil, err
	}
	return LoadMachine(l, image, dtb, console, cfg)
}

func Load(ctx *cli.Context) error {
	m, err := machineFromImageFlags(ctx, nil, hart.Config{StrictAlignment: ctx.Bool(StrictAlignFlag.Name)})
	if err != nil {
		return err
	}
	return jsonutil.WriteJSON(ctx.Path(LoadOutputFlag.Name), m.Snapshot(), OutFilePerm)
}

var LoadCommand = &cli.Command{
	Name:        "load",
	Usage:       "Load a kernel image and device tree into a JSON state",
	Description: "Load a raw kernel image or RISC-V ELF, and an optional device-tree blob, into a JSON machine state",
	Action:      Load,
	Flags: []cli.Flag{
		ImageFlag,
		DTBFlag,
		DRAMSizeFlag,
		StrictAlignFlag,
		LoadOutputFlag,
	},
}

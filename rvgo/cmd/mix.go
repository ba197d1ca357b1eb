package cmd

import (
	"fmt"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ethereum-optimism/rvhart/rvgo/hart"
	"github.com/ethereum-optimism/rvhart/rvgo/riscv"
)

// OpCounter is an observer that tallies executed operations and traps.
type OpCounter struct {
	ops   [256]uint64
	traps map[riscv.Cause]uint64
}

var _ hart.Observer = (*OpCounter)(nil)

func NewOpCounter() *OpCounter {
	return &OpCounter{traps: make(map[riscv.Cause]uint64)}
}

func (c *OpCounter) OnInstruction(pc uint64, in hart.Instruction) {
	c.ops[in.Op]++
}

func (c *OpCounter) OnTrap(pc uint64, exc *riscv.Exception) {
	c.traps[exc.Cause]++
}

type OpCount struct {
	Op    hart.Op
	Count uint64
}

// Ops returns the non-zero counts, most frequent first.
func (c *OpCounter) Ops() []OpCount {
	var out []OpCount
	for op, n := range c.ops {
		if n != 0 {
			out = append(out, OpCount{Op: hart.Op(op), Count: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func (c *OpCounter) Traps(cause riscv.Cause) uint64 {
	return c.traps[cause]
}

// WriteChart renders the most frequent operations as a bar chart. The image
// format follows the file extension (png, svg, pdf, ...).
func (c *OpCounter) WriteChart(path string, top int) error {
	ops := c.Ops()
	if len(ops) == 0 {
		return fmt.Errorf("no instructions executed")
	}
	if top > 0 && len(ops) > top {
		ops = ops[:top]
	}
	values := make(plotter.Values, len(ops))
	names := make([]string, len(ops))
	for i, oc := range ops {
		values[i] = float64(oc.Count)
		names[i] = oc.Op.String()
	}

	p := plot.New()
	p.Title.Text = "Instruction mix"
	p.Y.Label.Text = "Executed"
	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return fmt.Errorf("failed to build chart: %w", err)
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)

	width := vg.Length(len(ops))*vg.Points(18) + 2*vg.Inch
	if err := p.Save(width, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to write chart %q: %w", path, err)
	}
	return nil
}

// observers fans out notifications to every observer in order.
type observers []hart.Observer

func (obs observers) OnInstruction(pc uint64, in hart.Instruction) {
	for _, o := range obs {
		o.OnInstruction(pc, in)
	}
}

func (obs observers) OnTrap(pc uint64, exc *riscv.Exception) {
	for _, o := range obs {
		o.OnTrap(pc, exc)
	}
}

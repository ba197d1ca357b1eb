package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/optimism/op-service/jsonutil"

	"github.com/ethereum-optimism/rvhart/rvgo/hart"
)

// StateHash loads a JSON state and returns its commitment.
func StateHash(path string) (common.Hash, error) {
	state, err := jsonutil.LoadJSON[hart.State](path)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid input state (%v): %w", path, err)
	}
	if state.Memory == nil {
		return common.Hash{}, fmt.Errorf("invalid input state (%v): missing memory", path)
	}
	return state.Hash(), nil
}

func Hash(ctx *cli.Context) error {
	h, err := StateHash(ctx.Path(HashInputFlag.Name))
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, h.Hex())
	return nil
}

var HashCommand = &cli.Command{
	Name:        "hash",
	Usage:       "Compute the state hash of a JSON state",
	Description: "Compute the keccak256 commitment to the complete machine state. The hash is written to stdout",
	Action:      Hash,
	Flags: []cli.Flag{
		HashInputFlag,
	},
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum-optimism/rvhart/rvgo/cmd"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()
	app.Name = "rvhart"
	app.Usage = "RV64 single-hart emulator"
	app.Description = "Boots a RISC-V kernel image on a single RV64IM hart with a minimal platform: main memory, a device-tree ROM, a console and a timer stub."
	app.Flags = cmd.GlobalFlags
	app.Commands = []*cli.Command{
		cmd.LoadCommand,
		cmd.RunCommand,
		cmd.HashCommand,
	}
	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for {
			<-c
			cancel()
			fmt.Println("\r\nExiting...")
		}
	}()

	err := app.RunContext(ctx, os.Args)
	if err != nil {
		if errors.Is(err, ctx.Err()) {
			_, _ = fmt.Fprintf(os.Stderr, "command interrupted")
			os.Exit(130)
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "error: %v", err)
			os.Exit(1)
		}
	}
}

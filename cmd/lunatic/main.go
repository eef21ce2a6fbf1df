package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/lunatic/jit"
	"github.com/lunatic/jit/arch"
	"github.com/lunatic/jit/block"
	"github.com/lunatic/jit/memory"
	"github.com/lunatic/jit/optimize"
	"github.com/lunatic/jit/translate"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

func main() {
	disasmCmd := &cli.Command{
		Name:   "disasm",
		Action: disasmAct,
		Args:   cli.Args{},
	}

	runCmd := &cli.Command{
		Name:   "run",
		Action: runAct,
		Args:   cli.Args{},
	}

	app := &cli.Command{
		Name:        "lunatic",
		Description: "lunatic is a tool for inspecting and running lunatic JIT guest images",
		Commands: []*cli.Command{
			disasmCmd,
			runCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

// imageSpec is "path:entry_hex[:cycles]", the same positional-string
// convention the teacher's parse/compile subcommands use for file
// paths, extended with a colon-separated entry address and optional
// cycle count since a guest image needs both to run.
type imageSpec struct {
	path   string
	entry  uint32
	cycles int
}

func parseImageSpec(a string, defaultCycles int) (imageSpec, error) {
	parts := strings.Split(a, ":")
	if len(parts) < 2 {
		return imageSpec{}, errors.New("expected path:entry_hex[:cycles], got %q", a)
	}

	entry, err := strconv.ParseUint(strings.TrimPrefix(parts[1], "0x"), 16, 32)
	if err != nil {
		return imageSpec{}, errors.Wrap(err, "parse entry address %q", parts[1])
	}

	cycles := defaultCycles
	if len(parts) > 2 {
		n, err := strconv.Atoi(parts[2])
		if err != nil {
			return imageSpec{}, errors.Wrap(err, "parse cycle count %q", parts[2])
		}
		cycles = n
	}

	return imageSpec{path: parts[0], entry: uint32(entry), cycles: cycles}, nil
}

func loadFlat(path string) (*memory.Flat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read %v", path)
	}

	mem := memory.NewFlat(0, len(data), nil)
	mem.Load(0, data)

	return mem, nil
}

func disasmAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		spec, err := parseImageSpec(a, 0)
		if err != nil {
			return errors.Wrap(err, "disasm %v", a)
		}

		mem, err := loadFlat(spec.path)
		if err != nil {
			return err
		}

		key := block.NewKey(spec.entry, arch.USR, uint32(arch.USR))
		bb := block.NewBasicBlock(key)

		var t translate.Translator
		if err := t.Translate(bb, mem); err != nil {
			return errors.Wrap(err, "translate %v", spec.path)
		}

		for _, mb := range bb.MicroBlocks {
			optimize.Optimize(mb)
			for i, op := range mb.Code() {
				fmt.Printf("%04d: %+v\n", i, op)
			}
		}

		fmt.Printf("; length=%d cycles fast_dispatch=%v\n", bb.Length, bb.EnableFastDispatch)

		tlog.SpanFromContext(ctx).Printw("disassembled", "path", spec.path, "entry", spec.entry)
	}

	return nil
}

func runAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		spec, err := parseImageSpec(a, 1000)
		if err != nil {
			return errors.Wrap(err, "run %v", a)
		}

		mem, err := loadFlat(spec.path)
		if err != nil {
			return err
		}

		cpu := jit.New(jit.Descriptor{Memory: mem, ARMv5TE: true})
		*cpu.GPR(arch.PC) = spec.entry

		if err := cpu.Run(spec.cycles); err != nil {
			return errors.Wrap(err, "run %v", spec.path)
		}

		for r := 0; r < arch.NumGPR; r++ {
			fmt.Printf("r%-2d = %#010x\n", r, *cpu.GPR(r))
		}
		fmt.Printf("cpsr = %#010x\n", *cpu.CPSR())

		tlog.SpanFromContext(ctx).Printw("ran", "path", spec.path, "cycles", spec.cycles)
	}

	return nil
}

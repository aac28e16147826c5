// Package main steps a physics sample without a window and prints the
// body poses.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/Faultbox/physics-samples/internal/config"
	"github.com/Faultbox/physics-samples/internal/logger"
	"github.com/Faultbox/physics-samples/internal/sample"
)

var (
	flagList  = flag.Bool("list", false, "List the samples and exit")
	flagEvery = flag.Int("every", 0, "Print poses every N frames as well as at the end")
)

func main() {
	config.ParseFlags()

	if *flagList {
		for _, n := range sample.Names() {
			fmt.Println(n)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.SetSample(cfg.Sample.Name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout); err != nil {
		logger.Fatal("simulation failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	sim, err := sample.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer sim.Close()

	dt := cfg.Physics.FixedStep
	if dt <= 0 {
		dt = 1.0 / 60
	}
	for i := 1; i <= cfg.Sample.Frames && ctx.Err() == nil; i++ {
		if err := sim.Step(dt); err != nil {
			return err
		}
		if *flagEvery > 0 && i%*flagEvery == 0 && i != cfg.Sample.Frames {
			printPoses(out, sim)
		}
	}
	printPoses(out, sim)
	return nil
}

func printPoses(out io.Writer, sim *sample.Simulation) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "frame %d\tt=%.3fs\tlines=%d\n", sim.Frames(), sim.Time(), len(sim.Stepper().DebugRenderBuffer()))
	fmt.Fprintln(w, "NAME\tKIND\tX\tY\tZ")
	for _, b := range sim.Registry().Bodies() {
		p := b.Position()
		fmt.Fprintf(w, "%s\t%s\t%.3f\t%.3f\t%.3f\n", b.Name(), b.Kind(), p.X, p.Y, p.Z)
	}
	w.Flush()
}

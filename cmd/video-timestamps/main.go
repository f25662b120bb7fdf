package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Eyevinn/video-timestamps/internal"
	"github.com/Eyevinn/video-timestamps/internal/app"
	"github.com/urfave/cli/v2"
)

var usg = `video-timestamps prints the presentation timestamps of a video stream, sorted
ascending, together with its time base and frame rate. One record is printed
per file. MP4 and transport stream files are read natively, other containers
go through ffprobe.`

func newApp(stdout, stderr io.Writer) *cli.App {
	flags := append([]cli.Flag{
		&cli.IntFlag{Name: "index", Aliases: []string{"i"}, Value: 0, Usage: "index of the video stream"},
	}, app.CommonFlags()...)
	return &cli.App{
		Name:        "video-timestamps",
		Usage:       "list video frame timestamps",
		UsageText:   "video-timestamps [options] file...",
		Description: usg,
		Version:     internal.GetVersion(),
		Writer:      stdout,
		ErrWriter:   stderr,
		Flags:       flags,
		Action:      run,
	}
}

func run(c *cli.Context) error {
	files := c.Args().Slice()
	if len(files) == 0 {
		return cli.ShowAppHelp(c)
	}
	env, err := app.Setup(c)
	if err != nil {
		return err
	}

	records := env.Runner.Timestamps(c.Context, files, c.Int("index"))
	for _, rec := range records {
		env.Printer.Print(rec, true)
	}
	if err := env.Printer.Error(); err != nil {
		return err
	}
	if n := app.Failed(records); n > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d files failed", n, len(records)), 1)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

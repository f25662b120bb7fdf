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

var usg = `stream-lister prints the kind of every stream of each file: video, audio,
data, subtitle, attachment or unknown. Use it to find the index to pass to
video-timestamps.`

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:        "stream-lister",
		Usage:       "list the streams of media files",
		UsageText:   "stream-lister [options] file...",
		Description: usg,
		Version:     internal.GetVersion(),
		Writer:      stdout,
		ErrWriter:   stderr,
		Flags:       app.CommonFlags(),
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

	records := env.Runner.ListStreams(files)
	failed := 0
	for _, rec := range records {
		env.Printer.Print(rec, true)
		if rec.Error != "" {
			failed++
		}
	}
	if err := env.Printer.Error(); err != nil {
		return err
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d files failed", failed, len(records)), 1)
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

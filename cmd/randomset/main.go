// Command randomset demonstrates the random set and serves it over HTTP.
//
//	randomset [demo]   insert 1,3,6,8, remove 6, print the set and ten random picks
//	randomset serve    serve the configured store over HTTP
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/amirrezaask/randomset/errors"
	"github.com/amirrezaask/randomset/randomset"
)

func main() {
	if err := run(os.Args, os.Stdout); err != nil {
		slog.Error("randomset failed", "err", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	cmd := "demo"
	if len(args) > 1 {
		cmd = args[1]
	}

	switch cmd {
	case "demo":
		var opts []randomset.Option
		if c := loadConfig(); c.Seed != 0 {
			opts = append(opts, randomset.WithSeed(c.Seed))
		}
		return demo(stdout, opts...)
	case "serve":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, loadConfig())
	}

	return errors.Newf("unknown command %q, expected demo or serve", cmd)
}

const demoPicks = 10

func demo(w io.Writer, opts ...randomset.Option) error {
	s := randomset.New[int](opts...)
	for _, x := range []int{1, 3, 6, 8} {
		s.Insert(x)
	}
	if err := s.Remove(6); err != nil {
		return err
	}
	if err := s.Fprint(w); err != nil {
		return err
	}

	for i := 0; i < demoPicks; i++ {
		x, err := s.Random()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "random x = %d\n", x); err != nil {
			return errors.Wrap(err, "cannot print random pick")
		}
	}

	return nil
}

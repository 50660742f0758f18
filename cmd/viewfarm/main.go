// Command viewfarm runs one selection from the command line: it draws the
// given rectangle, submits its centroid and prints the results handoff.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mohammed-shakir/farm-selector/internal/core/config"
	"github.com/mohammed-shakir/farm-selector/internal/core/httpclient"
	"github.com/mohammed-shakir/farm-selector/internal/core/model"
	"github.com/mohammed-shakir/farm-selector/internal/logger"
	"github.com/mohammed-shakir/farm-selector/internal/mapview"
	"github.com/mohammed-shakir/farm-selector/internal/navigation"
	"github.com/mohammed-shakir/farm-selector/internal/selection"
	"github.com/mohammed-shakir/farm-selector/internal/submitter"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

type options struct {
	state   string
	sw, ne  model.LatLng
	backend string
	area    float64
	timeout time.Duration
	h3Res   int
	logLvl  string
}

func parseFlags(args []string, cfg config.Config) (options, error) {
	fs := flag.NewFlagSet("viewfarm", flag.ContinueOnError)
	opts := options{}
	var sw, ne string
	fs.StringVar(&opts.state, "state", "", "region name for the results route (required)")
	fs.StringVar(&sw, "sw", "", "south-west corner as lat,lng (required)")
	fs.StringVar(&ne, "ne", "", "north-east corner as lat,lng (required)")
	fs.StringVar(&opts.backend, "backend", cfg.BackendURL, "backend base URL")
	fs.Float64Var(&opts.area, "area", cfg.SubmitArea, "area sent with the submission")
	fs.DurationVar(&opts.timeout, "timeout", cfg.SubmitTimeout, "submission timeout")
	fs.IntVar(&opts.h3Res, "h3-res", cfg.H3Res, "H3 resolution used to label the centroid")
	fs.StringVar(&opts.logLvl, "log-level", cfg.LogLevel, "log level: debug|info|warn|error")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts.state = strings.TrimSpace(opts.state)
	if opts.state == "" {
		return options{}, errors.New("missing required flag: -state")
	}
	var err error
	if opts.sw, err = parsePoint("sw", sw); err != nil {
		return options{}, err
	}
	if opts.ne, err = parsePoint("ne", ne); err != nil {
		return options{}, err
	}
	return opts, nil
}

func parsePoint(name, v string) (model.LatLng, error) {
	lat, lng, ok := strings.Cut(v, ",")
	if !ok {
		return model.LatLng{}, fmt.Errorf("-%s: expected lat,lng (got %q)", name, v)
	}
	p, ok := mapview.ParseCoordinates(lat, lng)
	if !ok {
		return model.LatLng{}, fmt.Errorf("-%s: %w: %q", name, model.ErrBadCoordinate, v)
	}
	return p, nil
}

func run(args []string) int {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	opts, err := parseFlags(args, cfg)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, "viewfarm:", err)
		return 2
	}

	// logs go to stderr so stdout carries only the handoff line
	zl := logger.Build(logger.Config{
		Level:     opts.logLvl,
		Console:   true,
		Component: "viewfarm",
	}, os.Stderr)
	appLog := logger.NewSlog(&zl)

	sub, err := submitter.New(appLog, httpclient.NewOutbound(opts.timeout), opts.backend, opts.timeout)
	if err != nil {
		appLog.Error("failed to initialize submitter", "err", err)
		return 1
	}

	s, err := selection.New(selection.Options{
		StateName: opts.state,
		Area:      opts.area,
		Submitter: sub,
		Navigator: navigation.NewWriterNavigator(os.Stdout),
		Logger:    appLog,
		CellRes:   opts.h3Res,
	})
	if err != nil {
		appLog.Error("failed to create session", "err", err)
		return 1
	}
	defer s.Unmount()

	if err := s.OnRegionDrawn(model.Shape{
		Type:   model.ShapeRectangle,
		Bounds: model.Region{SouthWest: opts.sw, NorthEast: opts.ne},
	}); err != nil {
		appLog.Error("region rejected", "err", err)
		return 1
	}
	snap := s.Snapshot()
	appLog.Info("region selected", "centroid", snap.Centroid.String(), "cell", snap.Cell)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := s.Submit(ctx); err != nil {
		appLog.Error("submission failed", "err", err)
		return 1
	}
	return 0
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vancomm/minesweeper-cli/internal/api"
	"github.com/vancomm/minesweeper-cli/internal/game"
	"github.com/vancomm/minesweeper-cli/internal/stream"
	"github.com/vancomm/minesweeper-cli/pkg/types"
)

const defaultURL = "http://localhost:8000/v1"

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	var (
		sessionID string
		baseURL   string
		poll      bool
	)
	flag.StringVar(&sessionID, "s", "", "resume a game by session id")
	flag.StringVar(&sessionID, "session-id", "", "resume a game by session id")
	flag.StringVar(&baseURL, "u", envOr("MINESWEEP_URL", defaultURL), "server base URL")
	flag.StringVar(&baseURL, "url", envOr("MINESWEEP_URL", defaultURL), "server base URL")
	flag.BoolVar(&poll, "poll", false, "use request/response HTTP for moves instead of the stream")
	flag.Usage = usage
	flag.Parse()

	log, err := newLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	seed := flag.Arg(0)
	if (seed == "") == (sessionID == "") {
		fmt.Fprintln(os.Stderr, "you must supply exactly one of game params or session id")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	baseURL = normalizeURL(baseURL)
	client := api.NewClient(baseURL, log)
	if err := client.Ping(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	cfg := game.Config{
		Out:   os.Stdout,
		Color: isatty.IsTerminal(os.Stdout.Fd()) && os.Getenv("NO_COLOR") == "",
		Log:   log,
	}

	// cleanup releases the stream once one exists; for a fresh game the
	// stream is only dialed after the first open creates the session.
	cleanup := func() {}
	defer func() { cleanup() }()

	if sessionID != "" {
		s, err := client.Fetch(ctx, sessionID)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		tr, cl, err := transportFor(ctx, client, baseURL, s.ID, poll, log)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		cleanup = cl
		cfg.Session = s
		cfg.Transport = tr
		cfg.Params = types.GameParams{
			Width: s.Width, Height: s.Height, MineCount: s.MineCount, Unique: s.Unique,
		}
	} else {
		params, err := types.ParseSeed(seed)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		cfg.Params = params
		cfg.Start = func(ctx context.Context, x, y int) (*types.Session, game.Transport, error) {
			s, err := client.NewGame(ctx, params, x, y)
			if err != nil {
				return nil, nil, err
			}
			tr, cl, err := transportFor(ctx, client, baseURL, s.ID, poll, log)
			if err != nil {
				return nil, nil, err
			}
			cleanup = cl
			return s, tr, nil
		}
	}

	if err := game.New(cfg).Loop(ctx, os.Stdin); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func transportFor(ctx context.Context, client *api.Client, base, id string, poll bool, log *zap.Logger) (game.Transport, func(), error) {
	if poll {
		return client.Game(id), func() {}, nil
	}
	conn, err := stream.Dial(ctx, base, id, log)
	if err != nil {
		return nil, nil, err
	}
	return conn, func() { _ = conn.Close() }, nil
}

func normalizeURL(u string) string {
	if !strings.HasPrefix(u, "http") {
		u = "http://" + u
	}
	return strings.TrimRight(u, "/")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newLogger() (*zap.Logger, error) {
	level := zapcore.WarnLevel
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if err := level.Set(v); err != nil {
			return nil, fmt.Errorf("bad LOG_LEVEL: %w", err)
		}
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `usage: %s [flags] [width:height:mine_count[:unique]]

Play minesweeper against a remote server. Supply a seed to start a new game
or -s to resume one.

flags:
`, os.Args[0])
	flag.PrintDefaults()
}

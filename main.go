package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/akulinich/overdraft/configstore"
	"github.com/akulinich/overdraft/layout"
	"github.com/akulinich/overdraft/parsers"
	"github.com/akulinich/overdraft/prompts"
	"github.com/akulinich/overdraft/roster"
	"github.com/akulinich/overdraft/server"
	"github.com/akulinich/overdraft/settings"
	"github.com/akulinich/overdraft/sheets"
	"github.com/akulinich/overdraft/writers"
)

const (
	inputFlag       = "input"
	outputFlag      = "output"
	htmlFlag        = "html"
	configFlag      = "config"
	rosterFlag      = "roster"
	autoFlag        = "auto"
	interactiveFlag = "interactive"
	stdoutCLIName   = "-"
)

var build string
var semanticVersion = "v0.1.0-dev" + build

// openInput accepts either a URL to a published sheet export or a path
// to a local file.
func openInput(location string) (io.ReadCloser, error) {
	if u, err := url.ParseRequestURI(location); err == nil && u.Scheme != "" {
		fmt.Fprintln(os.Stderr, "URL detected")
		resp, err := http.Get(u.String())
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", location, err)
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("invalid HTTP status code received: %v", resp.Status)
		}
		return resp.Body, nil
	}
	if f, err := os.Open(location); err == nil {
		fmt.Fprintln(os.Stderr, "File detected")
		return f, nil
	}
	return nil, fmt.Errorf("provided input was neither a valid URL or a path to existing file: %v", location)
}

func readGrid(location string, isHTML bool) (layout.Grid, error) {
	r, err := openInput(location)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if isHTML {
		return parsers.ParseHTML(r)
	}
	return parsers.ParseCSV(r)
}

func loadLayout(cCtx *cli.Context, grid layout.Grid) (layout.Config, error) {
	if path := cCtx.String(configFlag); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return layout.Config{}, fmt.Errorf("read layout config: %w", err)
		}
		var cfg layout.Config
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return layout.Config{}, fmt.Errorf("parse layout config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return layout.Config{}, err
		}
		return cfg, nil
	}

	if cCtx.Bool(autoFlag) {
		cfg, confidence := layout.AutoDetect(grid)
		fmt.Fprintf(os.Stderr, "Auto-detected layout with confidence %.2f\n", confidence)
		if cCtx.Bool(interactiveFlag) {
			cfg = prompts.ConfirmLayout(cfg, confidence)
		}
		return cfg, nil
	}

	return layout.DefaultConfig(), nil
}

func outputWriter(location string) io.WriteCloser {
	if location == stdoutCLIName {
		return os.Stdout
	}
	return writers.NewLazyWriteCloser(func() (io.WriteCloser, error) {
		return os.OpenFile(location, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	})
}

func writeYAML(w io.WriteCloser, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding to YAML failed: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding to YAML failed on close: %w", err)
	}
	return w.Close()
}

func decodeAction(cCtx *cli.Context) error {
	grid, err := readGrid(cCtx.String(inputFlag), cCtx.Bool(htmlFlag))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	cfg, err := loadLayout(cCtx, grid)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	teams, perr := layout.Decode(grid, cfg)
	if perr != nil {
		return cli.Exit(fmt.Sprintf("decode failed: %v", perr), 4)
	}

	if loc := cCtx.String(rosterFlag); loc != "" {
		rosterGrid, err := readGrid(loc, false)
		if err != nil {
			return cli.Exit(err.Error(), 2)
		}
		idx := roster.NewIndex(roster.Parse(rosterGrid, roster.DetectColumns(rosterGrid)))

		resolved := make([]map[string]any, 0, len(teams))
		for _, team := range teams {
			resolved = append(resolved, map[string]any{
				"name":    team.Name,
				"number":  team.Number,
				"players": idx.Resolve(team),
			})
		}
		return writeYAML(outputWriter(cCtx.String(outputFlag)), map[string]any{"teams": resolved})
	}

	return writeYAML(outputWriter(cCtx.String(outputFlag)), map[string]any{"teams": teams})
}

func detectAction(cCtx *cli.Context) error {
	grid, err := readGrid(cCtx.String(inputFlag), cCtx.Bool(htmlFlag))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	cfg, confidence := layout.AutoDetect(grid)
	if cCtx.Bool(interactiveFlag) {
		cfg = prompts.ConfirmLayout(cfg, confidence)
	}

	return writeYAML(outputWriter(cCtx.String(outputFlag)), map[string]any{
		"config":     cfg,
		"confidence": confidence,
	})
}

func serveAction(*cli.Context) error {
	s := settings.Load()

	zapCfg := zap.NewProductionConfig()
	if s.Debug {
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zapCfg.Build()
	if err != nil {
		return err
	}
	defer logger.Sync()

	layouts, err := configstore.Open(s.LayoutsPath)
	if err != nil {
		return err
	}

	client := sheets.NewClient(s.GoogleAPIKey)
	cache := sheets.NewCache(s.CacheTTL)
	metrics := sheets.NewMetrics()
	poller := sheets.NewPoller(client, cache, metrics, logger)
	poller.Start()
	defer poller.Stop()

	srv := server.New(client, cache, poller, metrics, layouts,
		configstore.NewShareStore(s.ConfigDir), s.CORSOrigins, logger)

	if s.CORSAllowAll() {
		logger.Info("cors: allowing all origins")
	} else {
		logger.Info("cors: origin allowlist", zap.Strings("origins", s.CORSOrigins))
	}
	logger.Info("listening", zap.String("addr", s.Addr))
	return http.ListenAndServe(s.Addr, srv.Handler())
}

func main() {
	inputCLIFlag := &cli.StringFlag{
		Name:     inputFlag,
		Aliases:  []string{"i"},
		Usage:    "The URL or path of the exported sheet (CSV, or pubhtml with --html)",
		Required: true,
	}
	outputCLIFlag := &cli.StringFlag{
		Name:    outputFlag,
		Aliases: []string{"o"},
		Usage:   "The location to write the YAML result. Can be a file path or \"-\" (for stdout).",
		Value:   stdoutCLIName,
	}
	htmlCLIFlag := &cli.BoolFlag{
		Name:  htmlFlag,
		Usage: "Input is a published-sheet HTML page rather than a CSV export",
	}
	interactiveCLIFlag := &cli.BoolFlag{
		Name:  interactiveFlag,
		Usage: "Confirm the detected layout parameters interactively",
	}

	app := &cli.App{
		Name:    "overdraft",
		Usage:   "Decode team rosters out of published spreadsheets",
		Version: semanticVersion,
		Commands: []*cli.Command{
			{
				Name:  "decode",
				Usage: "Decode a sheet into teams using a layout config",
				Flags: []cli.Flag{
					inputCLIFlag,
					outputCLIFlag,
					htmlCLIFlag,
					interactiveCLIFlag,
					&cli.StringFlag{
						Name:  configFlag,
						Usage: "Path to a YAML layout config",
					},
					&cli.StringFlag{
						Name:  rosterFlag,
						Usage: "URL or path of the player roster sheet (CSV); resolves nicknames to player data",
					},
					&cli.BoolFlag{
						Name:  autoFlag,
						Usage: "Auto-detect the layout instead of using the default",
					},
				},
				Action: decodeAction,
			},
			{
				Name:   "detect",
				Usage:  "Auto-detect the team layout of a sheet",
				Flags:  []cli.Flag{inputCLIFlag, outputCLIFlag, htmlCLIFlag, interactiveCLIFlag},
				Action: detectAction,
			},
			{
				Name:   "serve",
				Usage:  "Run the caching sheet proxy and roster API",
				Action: serveAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gadgetkb/gadgetkb/internal/config"
	"github.com/gadgetkb/gadgetkb/internal/configpaths"
	"github.com/gadgetkb/gadgetkb/internal/log"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the command selected by args and returns the exit status.
// Log files are closed before it returns.
func run(args []string, options ...kong.Option) int {
	var cli config.CLI
	parser, err := newParser(&cli, findUserConfig(args), options...)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return 2
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		parser.FatalIfErrorf(err)
		return 1
	}

	logger, rawLogger, closers, err := setupLogging(cli.Log)
	if err != nil {
		parser.Errorf("failed to setup logger: %s", err)
		return 2
	}
	defer closeAll(closers)

	ctx.Bind(logger)
	ctx.BindTo(rawLogger, (*log.RawLogger)(nil))
	if err := ctx.Run(); err != nil {
		logger.Error("gadgetkb failed", "command", ctx.Command(), "error", err)
		ctx.Errorf("%s", err)
		var coder kong.ExitCoder
		if errors.As(err, &coder) {
			return coder.ExitCode()
		}
		return 1
	}
	return 0
}

func newParser(cli *config.CLI, userCfg string, options ...kong.Option) (*kong.Kong, error) {
	jsonPaths, yamlPaths, tomlPaths := configpaths.ConfigCandidatePaths(userCfg)
	return kong.New(cli, append([]kong.Option{
		kong.Name("gadgetkb"),
		kong.Description("Type keystroke scripts on a USB HID keyboard gadget"),
		kong.UsageOnError(),
		// flags and env override config file values
		kong.Configuration(kong.JSON, jsonPaths...),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	}, options...)...)
}

// setupLogging builds the structured and the raw report logger. The raw
// log goes to its own file when set, else to stderr at trace level.
func setupLogging(cfg config.Log) (*slog.Logger, log.RawLogger, []io.Closer, error) {
	logger, closers, err := log.SetupLogger(cfg.Level, cfg.File)
	if err != nil {
		return nil, nil, nil, err
	}
	switch {
	case cfg.RawFile != "":
		f, err := os.OpenFile(cfg.RawFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Error("failed to open raw log file", "file", cfg.RawFile, "error", err)
			return logger, log.NewRaw(nil), closers, nil
		}
		return logger, log.NewRaw(f), append(closers, f), nil
	case cfg.Level == "trace":
		return logger, log.NewRaw(os.Stderr), closers, nil
	default:
		return logger, log.NewRaw(nil), closers, nil
	}
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}

func findUserConfig(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv("GADGETKB_CONFIG")
}

// Command wordpop classifies and translates selections, and serves the
// message bridge to a browser extension.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ZaguanLabs/wordpop"
	"github.com/ZaguanLabs/wordpop/bridge"
	"github.com/ZaguanLabs/wordpop/internal/config"
	"github.com/ZaguanLabs/wordpop/internal/httpapi"
	"github.com/ZaguanLabs/wordpop/internal/logging"
)

// Build-time variables (can be overridden with ldflags)
var (
	version   = wordpop.Version
	commit    = wordpop.GitCommit
	buildDate = wordpop.BuildDate
)

const usageText = `Usage: wordpop <command> [flags] [args]

Commands:
  classify   Report whether each argument is a word or a passage
  translate  Translate text through the enabled sources
  lookup     Query individual sources for one or more words
  serve      Run the HTTP daemon for the browser extension
  version    Show version
`

var errUsage = errors.New("a command is required")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usageText)
		return errUsage
	}

	switch args[0] {
	case "version", "--version", "-version":
		return runVersion(stdout)
	case "help", "--help", "-h":
		fmt.Fprint(stdout, usageText)
		return nil
	case "classify":
		return runClassify(args[1:], stdout, stderr)
	case "translate":
		return runTranslate(args[1:], stdout, stderr)
	case "lookup":
		return runLookup(args[1:], stdout, stderr)
	case "serve":
		return runServe(args[1:], stderr)
	default:
		fmt.Fprint(stderr, usageText)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runVersion(stdout io.Writer) error {
	fmt.Fprintf(stdout, "%s %s\n", wordpop.Name, version)
	if commit != "unknown" && commit != "" {
		fmt.Fprintf(stdout, "  commit:  %s\n", commit)
	}
	if buildDate != "unknown" && buildDate != "" {
		fmt.Fprintf(stdout, "  built:   %s\n", buildDate)
	}
	return nil
}

// common holds the flags shared by commands that need configuration.
type common struct {
	configPath *string
	envPath    *string
	logLevel   *string
	mock       *bool
}

func addCommon(fs *flag.FlagSet) *common {
	return &common{
		configPath: fs.String("config", "", "Path to the YAML config (default: WORDPOP_CONFIG or ./wordpop.yaml)"),
		envPath:    fs.String("env", "", "Path to a .env file to load first"),
		logLevel:   fs.String("log-level", "", "Log level (default: log.level from config)"),
		mock:       fs.Bool("mock", false, "Use built-in mock sources instead of the network"),
	}
}

// load reads .env, the config file and builds the logger.
func (c *common) load(stderr io.Writer) (*config.Config, zerolog.Logger, error) {
	if path := strings.TrimSpace(*c.envPath); path != "" {
		if err := godotenv.Overload(path); err != nil {
			return nil, zerolog.Logger{}, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	cfg, err := config.Load(*c.configPath)
	if err != nil {
		return nil, zerolog.Logger{}, err
	}

	level := cfg.Log.Level
	if *c.logLevel != "" {
		level = *c.logLevel
	}
	logger, err := logging.New(stderr, cfg.Log.Environment, level)
	if err != nil {
		return nil, zerolog.Logger{}, err
	}

	return cfg, logger, nil
}

func runClassify(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	fs.SetOutput(stderr)

	tokens := fs.Int("tokens", wordpop.MaxWordTokens, "Maximum tokens for a word-like selection")
	jsonOutput := fs.Bool("json", false, "Output result as JSON")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("classify needs at least one text argument")
	}

	classifier := wordpop.NewClassifier(*tokens)

	type classified struct {
		Text       string `json:"text"`
		Normalized string `json:"normalized"`
		Kind       string `json:"kind"`
	}

	results := make([]classified, 0, fs.NArg())
	for _, text := range fs.Args() {
		results = append(results, classified{
			Text:       text,
			Normalized: wordpop.NormalizeSelection(text),
			Kind:       classifier.Classify(text).String(),
		})
	}

	if *jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	for _, r := range results {
		fmt.Fprintf(stdout, "%s\t%s\n", r.Kind, r.Text)
	}
	return nil
}

func runTranslate(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	c := addCommon(fs)
	sources := fs.String("sources", "", "Comma-separated source names to try in order (default: stored settings)")
	timeout := fs.Duration("timeout", 0, "Display timeout to attach to the result")
	jsonOutput := fs.Bool("json", false, "Output result as JSON")

	if err := fs.Parse(args); err != nil {
		return err
	}

	enabled, err := parseSources(*sources)
	if err != nil {
		return err
	}

	var text string
	if fs.NArg() == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		text = string(data)
	} else {
		text = strings.Join(fs.Args(), " ")
	}

	cfg, logger, err := c.load(stderr)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger, *c.mock)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	res := a.translator.Translate(ctx, wordpop.Request{
		Text:           text,
		IsWordHint:     wordpop.IsWord(text),
		EnabledSources: enabled,
		Timeout:        *timeout,
	})
	logger.Debug().Dur("elapsed", time.Since(start)).Str("status", string(res.Status)).Msg("translate finished")

	if *jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else if res.OK() {
		printResult(stdout, res)
	}

	if !res.OK() {
		return fmt.Errorf("translation failed: %s", res.Translation)
	}
	return nil
}

func printResult(w io.Writer, res wordpop.Result) {
	header := res.Text
	if res.Phonetic != "" {
		header += " " + res.Phonetic
	}
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, res.Translation)
	if res.Source != nil {
		fmt.Fprintf(w, "(%s)\n", res.Source)
	}
}

type lookupRow struct {
	Text     string           `json:"text"`
	Source   wordpop.SourceID `json:"source"`
	OK       bool             `json:"ok"`
	Body     string           `json:"body,omitempty"`
	Phonetic string           `json:"phonetic,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func runLookup(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)
	fs.SetOutput(stderr)

	c := addCommon(fs)
	sourceList := fs.String("source", "", "Comma-separated sources to query (default: all)")
	concurrency := fs.Int("concurrency", 4, "Maximum concurrent fetches")
	jsonOutput := fs.Bool("json", false, "Output result as JSON")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("lookup needs at least one word")
	}

	ids, err := parseSources(*sourceList)
	if err != nil {
		return err
	}

	cfg, logger, err := c.load(stderr)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger, *c.mock)
	if err != nil {
		return err
	}
	defer a.Close()

	if ids == nil {
		ids = a.translator.Sources()
	}

	words := fs.Args()
	rows := make([]lookupRow, len(words)*len(ids))

	g, gctx := errgroup.WithContext(ctx)
	if *concurrency > 0 {
		g.SetLimit(*concurrency)
	}
	for i, word := range words {
		for j, id := range ids {
			word, id := word, id
			idx := i*len(ids) + j
			g.Go(func() error {
				row := lookupRow{Text: word, Source: id}
				out, err := a.translator.Lookup(gctx, id, word)
				if err != nil {
					row.Error = err.Error()
				} else {
					row.OK = true
					row.Body = out.Body
					row.Phonetic = out.Phonetic
				}
				rows[idx] = row
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if *jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	for _, r := range rows {
		if !r.OK {
			fmt.Fprintf(stdout, "%s\t%s\tfailed\t%s\n", r.Text, r.Source, r.Error)
			continue
		}
		first, _, _ := strings.Cut(r.Body, "\n")
		fmt.Fprintf(stdout, "%s\t%s\tok\t%s\n", r.Text, r.Source, first)
	}
	return nil
}

func runServe(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)

	c := addCommon(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := c.load(stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, *c.mock)
	if err != nil {
		return err
	}
	defer a.Close()

	outbox := bridge.NewOutbox(cfg.Bridge.OutboxDepth)
	classifier := wordpop.NewClassifier(cfg.Sources.MaxWordTokens)

	var worker *bridge.Worker
	host := bridge.NewLocalHost(func(ctx context.Context) (bridge.Handler, error) {
		worker = bridge.NewWorker(a.translator, a.settings, outbox,
			bridge.WithWorkerLogger(logger.With().Str("context", "worker").Logger()),
			bridge.WithWorkerClassifier(classifier))
		return worker, nil
	}, wordpop.DefaultRetryConfig())

	coordinator := bridge.NewCoordinator(host, a.settings, outbox,
		bridge.WithLogger(logger.With().Str("context", "coordinator").Logger()),
		bridge.WithClassifier(classifier),
		bridge.WithWatchdogs(cfg.Bridge.TranslateWatchdog, cfg.Bridge.CurrentWatchdog),
		bridge.WithDebounce(cfg.Bridge.Debounce),
	)

	server := httpapi.NewServer(coordinator, outbox, logger, httpapi.Options{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		AllowedOrigins:    splitList(cfg.Server.AllowedOrigins),
		TranslateWatchdog: cfg.Bridge.TranslateWatchdog,
	})

	err = server.Start(ctx)

	coordinator.Wait()
	if host.Running() && worker != nil {
		worker.Close()
	}
	return err
}

// parseSources converts a comma-separated list of source names. An empty
// list returns nil.
func parseSources(list string) ([]wordpop.SourceID, error) {
	names := splitList(list)
	if len(names) == 0 {
		return nil, nil
	}

	ids := make([]wordpop.SourceID, 0, len(names))
	for _, name := range names {
		id, err := wordpop.ParseSourceID(name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

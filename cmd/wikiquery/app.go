package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"wikiquery/pkg/config"
	"wikiquery/pkg/logging"
	"wikiquery/pkg/request"
	"wikiquery/pkg/tracker"
	"wikiquery/pkg/version"
	"wikiquery/pkg/wiki"
)

const defaultConfigPath = "configs/wikiquery.yaml"

// app carries the state shared by all subcommands.
type app struct {
	out    io.Writer
	errOut io.Writer

	configPath string
	jqExpr     string
	rawOutput  bool
	showStats  bool

	cfg     *config.Config
	tracker *tracker.Tracker
	wiki    *wiki.Client
	filter  *jqFilter
	cleanup func()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:               "wikiquery",
		Short:             "wikiquery runs batched, continuation-aware queries against a MediaWiki API.",
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if a.showStats {
			return a.printStats()
		}
		return nil
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", defaultConfigPath, "Path to the YAML config file")
	pf.StringVar(&a.jqExpr, "jq", "", "jq expression applied to every JSON document printed")
	pf.BoolVarP(&a.rawOutput, "raw-output", "r", false, "Print string results without JSON quoting")
	pf.BoolVar(&a.showStats, "stats", false, "Print request statistics to stderr when done")

	root.AddCommand(
		newInitConfigCmd(a),
		newTemplatesCmd(a),
		newRawCmd(a),
		newCategoriesCmd(a),
		newMembersCmd(a),
		newExistsCmd(a),
		newTextCmd(a),
		newExtractCmd(a),
		newLinksCmd(a),
		newRedirectsCmd(a),
		newSearchCmd(a),
		newContribsCmd(a),
		newWhoAmICmd(a),
	)
	return root
}

// setup loads the config and builds the client stack.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg

	cleanup, err := logging.Init(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	a.cleanup = cleanup

	if a.jqExpr != "" {
		if a.filter, err = compileJQ(a.jqExpr); err != nil {
			return err
		}
	}

	a.tracker = tracker.New()
	rc := request.New(a.tracker, request.ClientConfig{
		Retries:   cfg.Request.Retries,
		Timeout:   time.Duration(cfg.Request.Timeout),
		BaseDelay: time.Duration(cfg.Request.Backoff.BaseDelay),
		MaxDelay:  time.Duration(cfg.Request.Backoff.MaxDelay),
		Gap:       time.Duration(cfg.Request.Gap),
		UserAgent: cfg.Wiki.UserAgent,
		Logger:    logging.RequestLogger,
	})
	a.wiki = wiki.NewClient(rc, cfg.Wiki.Endpoint(), wiki.Options{
		MaxResultLimit: cfg.Wiki.MaxResultLimit,
		GroupSize:      cfg.Wiki.GroupQueryMax,
		Logger:         slog.Default(),
	})

	slog.Debug("wikiquery ready", "version", version.Version, "endpoint", cfg.Wiki.Endpoint(), "command", cmd.Name())
	return nil
}

func (a *app) close() {
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
}

// emit prints v as indented JSON, or the results of the jq filter over it.
func (a *app) emit(v any) error {
	if a.filter == nil {
		return a.write(v)
	}
	results, err := a.filter.apply(v)
	for _, r := range results {
		if werr := a.write(r); werr != nil {
			return werr
		}
	}
	return err
}

func (a *app) write(v any) error {
	if s, ok := v.(string); ok && a.rawOutput {
		_, err := fmt.Fprintln(a.out, s)
		return err
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func (a *app) printStats() error {
	if a.tracker == nil {
		return nil
	}
	enc := json.NewEncoder(a.errOut)
	enc.SetIndent("", "  ")
	return enc.Encode(a.tracker.Snapshot())
}

// parseSet turns key=value pairs into a parameter map. An empty value is
// kept; MediaWiki treats a present-but-empty parameter as a set flag.
func parseSet(pairs []string) (map[string]string, error) {
	params := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", p)
		}
		params[k] = v
	}
	return params, nil
}

func toNS(ids []int) []wiki.NS {
	ns := make([]wiki.NS, len(ids))
	for i, id := range ids {
		ns[i] = wiki.NS(id)
	}
	return ns
}

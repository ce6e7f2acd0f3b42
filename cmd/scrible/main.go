// Package main is the Scrible CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/BadakalaYashwanth/Scrible/internal/cli"
	"github.com/BadakalaYashwanth/Scrible/internal/config"
	"github.com/BadakalaYashwanth/Scrible/internal/extract"
	"github.com/BadakalaYashwanth/Scrible/internal/models"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/scrible/config.yaml"

// Environment variables read by the client commands.
const (
	envServer = "SCRIBLE_SERVER"
	envUser   = "SCRIBLE_USER"
)

// errUsage is returned after usage has been printed.
var errUsage = errors.New("usage")

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory wins if it exists, and a missing default file yields
// the built-in defaults. Returns the config and the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				cfg, err := config.Load(fallback)
				if err != nil {
					return nil, "", err
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			config.ApplyEnv(cfg)
			if err := cfg.Validate(); err != nil {
				return nil, "", err
			}
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// A missing .env file is normal outside development.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}
	if err := run(os.Args[1], os.Args[2:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(command string, args []string, out io.Writer) error {
	switch command {
	case "server":
		return runServer(args)
	case "search":
		return runSearch(args, out)
	case "ask", "chat":
		return runAsk(args, out)
	case "add":
		return runAdd(args, out)
	case "notebooks":
		return runNotebooks(args, out)
	case "create":
		return runCreate(args, out)
	case "status":
		return runStatus(args, out)
	case "version", "--version", "-v":
		fmt.Fprintf(out, "scrible version %s\n", version)
		return nil
	case "help", "--help", "-h":
		printUsage(out)
		return nil
	default:
		fmt.Fprintf(out, "Unknown command: %s\n", command)
		printUsage(out)
		return errUsage
	}
}

// argsReorder moves flags that follow the positional arguments to the front,
// since flag parsing stops at the first positional argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// joinArgs joins positional args so multi-word text works with or without quotes.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// clientFlags are shared by the commands that talk to a running server.
type clientFlags struct {
	server   *string
	user     *string
	notebook *string
	output   *string
}

func newClientFlagSet(name string, needNotebook bool) (*flag.FlagSet, *clientFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cf := &clientFlags{
		server: fs.String("server", envOr(envServer, cli.DefaultServerURL), "server URL"),
		user:   fs.String("user", envOr(envUser, os.Getenv("USER")), "user id sent as X-User-ID"),
		output: fs.String("output", "text", "output format: text or json"),
	}
	if needNotebook {
		cf.notebook = fs.String("notebook", "", "notebook id (required)")
	}
	return fs, cf
}

func (cf *clientFlags) client() (*cli.Client, cli.OutputFormat, error) {
	format, err := cli.ParseOutputFormat(*cf.output)
	if err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(*cf.user) == "" {
		return nil, "", fmt.Errorf("a user id is required (--user or %s)", envUser)
	}
	if cf.notebook != nil && strings.TrimSpace(*cf.notebook) == "" {
		return nil, "", fmt.Errorf("--notebook is required")
	}
	return cli.NewClient(*cf.server, *cf.user), format, nil
}

func runSearch(args []string, out io.Writer) error {
	fs, cf := newClientFlagSet("search", true)
	limit := fs.Int("limit", 10, "maximum number of results")
	if err := fs.Parse(argsReorder(args)); err != nil {
		return errUsage
	}
	query := joinArgs(fs.Args())
	if query == "" {
		fmt.Fprintln(out, "Usage: scrible search --notebook <id> [flags] <query>")
		return errUsage
	}
	c, format, err := cf.client()
	if err != nil {
		return err
	}
	resp, err := c.Search(context.Background(), *cf.notebook, query, *limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return cli.WriteSearchResults(out, resp, format)
}

func runAsk(args []string, out io.Writer) error {
	fs, cf := newClientFlagSet("ask", true)
	if err := fs.Parse(argsReorder(args)); err != nil {
		return errUsage
	}
	question := joinArgs(fs.Args())
	if question == "" {
		fmt.Fprintln(out, "Usage: scrible ask --notebook <id> [flags] <question>")
		return errUsage
	}
	c, format, err := cf.client()
	if err != nil {
		return err
	}
	resp, err := c.Chat(context.Background(), *cf.notebook, question)
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}
	return cli.WriteChatResponse(out, resp, format)
}

// sourceInputFor builds the input for a non-file target of `scrible add`.
func sourceInputFor(target, kind string) (models.SourceInput, bool) {
	lower := strings.ToLower(target)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return models.SourceInput{}, false
	}
	in := models.SourceInput{Kind: models.KindURL, URL: target}
	if k, ok := models.ParseSourceKind(kind); ok {
		in.Kind = k
	} else if _, err := extract.YouTubeVideoID(target); err == nil {
		in.Kind = models.KindYouTube
	}
	return in, true
}

func runAdd(args []string, out io.Writer) error {
	fs, cf := newClientFlagSet("add", true)
	kind := fs.String("kind", "", "source kind (pdf, url, youtube, docx, txt); inferred when empty")
	wait := fs.Bool("wait", false, "wait until processing completes or fails")
	if err := fs.Parse(argsReorder(args)); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(out, "Usage: scrible add --notebook <id> [flags] <file-or-url>")
		return errUsage
	}
	c, format, err := cf.client()
	if err != nil {
		return err
	}
	ctx := context.Background()
	target := fs.Arg(0)

	var src *models.Source
	if in, ok := sourceInputFor(target, *kind); ok {
		src, err = c.AddSource(ctx, *cf.notebook, in)
	} else {
		src, err = c.UploadFile(ctx, *cf.notebook, target, models.SourceKind(*kind))
	}
	if err != nil {
		return fmt.Errorf("add failed: %w", err)
	}
	if *wait {
		waitCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		st, err := c.WaitForSource(waitCtx, *cf.notebook, src.ID, 500*time.Millisecond)
		if err != nil {
			return fmt.Errorf("wait failed: %w", err)
		}
		src.Status = *st
	}
	return cli.WriteSource(out, src, format)
}

func runNotebooks(args []string, out io.Writer) error {
	fs, cf := newClientFlagSet("notebooks", false)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	c, format, err := cf.client()
	if err != nil {
		return err
	}
	nbs, err := c.ListNotebooks(context.Background())
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}
	return cli.WriteNotebooks(out, nbs, format)
}

func runCreate(args []string, out io.Writer) error {
	fs, cf := newClientFlagSet("create", false)
	description := fs.String("description", "", "notebook description")
	if err := fs.Parse(argsReorder(args)); err != nil {
		return errUsage
	}
	name := joinArgs(fs.Args())
	if name == "" {
		fmt.Fprintln(out, "Usage: scrible create [flags] <name>")
		return errUsage
	}
	c, format, err := cf.client()
	if err != nil {
		return err
	}
	nb, err := c.CreateNotebook(context.Background(), name, *description)
	if err != nil {
		return fmt.Errorf("create failed: %w", err)
	}
	return cli.WriteNotebooks(out, []*cli.Notebook{nb}, format)
}

func runStatus(args []string, out io.Writer) error {
	fs, cf := newClientFlagSet("status", false)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	c, format, err := cf.client()
	if err != nil {
		return err
	}
	st, err := c.Status(context.Background())
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}
	return cli.WriteStatus(out, st, format)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `scrible - research notebooks with source-grounded answers

Usage:
  scrible server [flags]                        Start the HTTP server
  scrible notebooks [flags]                     List notebooks
  scrible create [flags] <name>                 Create a notebook
  scrible add --notebook <id> <file-or-url>     Add a source
  scrible search --notebook <id> <query>        Rank a notebook's sources
  scrible ask --notebook <id> <question>        Ask a question of a notebook
  scrible status [flags]                        Show store counts and configuration
  scrible version                               Show version
  scrible help                                  Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/scrible/config.yaml)
  --debug            Enable debug logging

Client Flags:
  --server string    Server URL (default: $SCRIBLE_SERVER or http://localhost:8080)
  --user string      User id (default: $SCRIBLE_USER or $USER)
  --notebook string  Notebook id
  --output string    Output format: text or json (default: text)
  --limit int        search: maximum number of results (default: 10)
  --kind string      add: source kind, inferred from the file extension or URL when empty
  --wait             add: wait until processing completes

Examples:
  scrible server --debug
  scrible create "Thesis research"
  scrible add --notebook 3f2a... paper.pdf --wait
  scrible add --notebook 3f2a... https://www.youtube.com/watch?v=dQw4w9WgXcQ
  scrible search --notebook 3f2a... machine learning
  scrible ask --notebook 3f2a... --output json "What are the main findings?"`)
}

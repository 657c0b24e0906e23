// Command repomap is a thin CLI wrapper around the facade. It exists to
// make the core runnable from a shell; the real consumer contract is
// internal/facade and internal/tools.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/reposcope/repomap/internal/config"
	"github.com/reposcope/repomap/internal/facade"
	"github.com/reposcope/repomap/internal/mcpserver"
)

const version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "repomap",
		Usage:   "Index a repository's source structure and query it with six fixed tools",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "lang", Usage: "Languages to enable: rust, python, typescript, javascript, go"},
			&cli.IntFlag{Name: "max-files", Usage: "Maximum files to index", Value: 10_000},
			&cli.Int64Flag{Name: "max-file-size", Usage: "Skip files larger than this many bytes", Value: 1 << 20},
			&cli.IntFlag{Name: "max-depth", Usage: "Directory walk depth limit (0 = unlimited)"},
			&cli.BoolFlag{Name: "follow-symlinks", Usage: "Follow symlinks during the walk"},
			&cli.StringSliceFlag{Name: "include", Usage: "Include glob patterns"},
			&cli.StringSliceFlag{Name: "exclude", Usage: "Exclude glob patterns"},
			&cli.IntFlag{Name: "cache-ttl", Usage: "Query cache TTL in seconds", Value: 300},
			&cli.StringFlag{Name: "config", Usage: "Path to an optional .repomap.toml overriding the flags above"},
		},
		Commands: []*cli.Command{
			scanCommand(),
			toolsCommand(),
			mcpCommand(),
			watchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func buildConfig(c *cli.Context) (config.Config, error) {
	b := config.NewBuilder().
		MaxFiles(c.Int("max-files")).
		MaxFileSize(c.Int64("max-file-size")).
		MaxDepth(c.Int("max-depth")).
		FollowSymlinks(c.Bool("follow-symlinks")).
		CacheTTL(c.Int("cache-ttl"))

	if patterns := c.StringSlice("include"); len(patterns) > 0 {
		b = b.IncludePatterns(patterns)
	}
	if patterns := c.StringSlice("exclude"); len(patterns) > 0 {
		b = b.ExcludePatterns(patterns)
	}

	langs := c.StringSlice("lang")
	if len(langs) == 0 {
		langs = []string{"rust", "python", "typescript", "javascript", "go"}
	}
	for _, lang := range langs {
		switch lang {
		case "rust":
			b = b.WithRustAnalyzer()
		case "python":
			b = b.WithPythonAnalyzer()
		case "typescript":
			b = b.WithTypeScriptAnalyzer()
		case "javascript":
			b = b.WithJavaScriptAnalyzer()
		case "go":
			b = b.WithGoAnalyzer()
		default:
			return config.Config{}, fmt.Errorf("unknown --lang %q", lang)
		}
	}

	if path := c.String("config"); path != "" {
		var err error
		b, err = b.LoadFile(path)
		if err != nil {
			return config.Config{}, err
		}
	}

	return b.Build()
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Scan a directory and print the resulting ScanResult as JSON",
		ArgsUsage: "<root>",
		Action: func(c *cli.Context) error {
			root := c.Args().Get(0)
			if root == "" {
				root = "."
			}

			cfg, err := buildConfig(c)
			if err != nil {
				return err
			}
			h, err := facade.New(cfg)
			if err != nil {
				return err
			}

			result, err := h.Scan(context.Background(), root)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Scan a directory, then re-scan on every debounced filesystem change until interrupted",
		ArgsUsage: "<root>",
		Action: func(c *cli.Context) error {
			root := c.Args().Get(0)
			if root == "" {
				root = "."
			}

			cfg, err := buildConfig(c)
			if err != nil {
				return err
			}
			h, err := facade.New(cfg)
			if err != nil {
				return err
			}
			if _, err := h.Scan(context.Background(), root); err != nil {
				return err
			}

			return h.Watch(context.Background(), root)
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:      "mcp",
		Usage:     "Scan a directory, then serve the six tools over MCP stdio",
		ArgsUsage: "<root>",
		Action: func(c *cli.Context) error {
			root := c.Args().Get(0)
			if root == "" {
				root = "."
			}

			cfg, err := buildConfig(c)
			if err != nil {
				return err
			}
			h, err := facade.New(cfg)
			if err != nil {
				return err
			}
			if _, err := h.Scan(context.Background(), root); err != nil {
				return err
			}

			return mcpserver.Serve(context.Background(), h)
		},
	}
}

func toolsCommand() *cli.Command {
	return &cli.Command{
		Name:  "tools",
		Usage: "Print the six tool definitions as JSON",
		Action: func(c *cli.Context) error {
			cfg, err := buildConfig(c)
			if err != nil {
				return err
			}
			h, err := facade.New(cfg)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(h.GetToolDefinitions())
		},
	}
}

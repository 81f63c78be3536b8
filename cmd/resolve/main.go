package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v2"

	goresolve "github.com/standardbeagle/goresolve"
	"github.com/standardbeagle/goresolve/internal/options"
	"github.com/standardbeagle/goresolve/internal/resolverconfig"
	"github.com/standardbeagle/goresolve/internal/version"
)

func loadOptionsWithOverrides(c *cli.Context) (options.ResolveOptions, error) {
	opts, err := loadConfigFile(c.String("config"))
	if err != nil {
		return options.ResolveOptions{}, err
	}

	if exts := c.StringSlice("extension"); len(exts) > 0 {
		opts.Extensions = exts
	}
	if conditions := c.StringSlice("condition"); len(conditions) > 0 {
		opts.ConditionNames = conditions
	}
	if modules := c.StringSlice("modules"); len(modules) > 0 {
		opts.Modules = modules
	}
	if c.Bool("builtin-modules") {
		opts.BuiltinModules = true
	}
	if c.Bool("pnp") {
		opts.EnablePnp = true
	}
	if tsconfigPath := c.String("tsconfig"); tsconfigPath != "" {
		opts.Tsconfig = &options.TsconfigOptions{ConfigFile: tsconfigPath}
	}
	for _, raw := range c.StringSlice("alias") {
		entry, err := parseAliasFlag(raw)
		if err != nil {
			return options.ResolveOptions{}, err
		}
		opts.Alias = append(opts.Alias, entry)
	}

	return opts.Sanitize(), nil
}

// loadConfigFile reads resolver.toml/resolver.kdl at path, falling back to
// the built-in defaults when no config file is configured or present.
func loadConfigFile(path string) (options.ResolveOptions, error) {
	if path == "" {
		return resolverconfig.DefaultResolveOptions(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return resolverconfig.DefaultResolveOptions(), nil
		}
		return options.ResolveOptions{}, fmt.Errorf("failed to read config from %s: %w", path, err)
	}
	if strings.HasSuffix(path, ".kdl") {
		return resolverconfig.LoadKDL(data)
	}
	return resolverconfig.LoadTOML(data)
}

// parseAliasFlag parses a "key=value" or "key=false" (ignore) --alias flag.
func parseAliasFlag(raw string) (options.AliasEntry, error) {
	parts := strings.SplitN(raw, "=", 2)
	if len(parts) != 2 {
		return options.AliasEntry{}, fmt.Errorf("invalid --alias %q, expected key=value", raw)
	}
	if parts[1] == "false" {
		return options.AliasEntry{Key: parts[0], Values: []options.AliasValue{{Ignore: true}}}, nil
	}
	return options.AliasEntry{Key: parts[0], Values: []options.AliasValue{{Path: parts[1]}}}, nil
}

func resolveCommand(c *cli.Context) error {
	if c.NArg() < 2 {
		return cli.Exit("usage: resolve [flags] <directory> <specifier>", 1)
	}
	directory, err := filepath.Abs(c.Args().Get(0))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to resolve directory: %v", err), 1)
	}
	specifier := c.Args().Get(1)

	opts, err := loadOptionsWithOverrides(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	engine := goresolve.New(opts)

	res, err := engine.Resolve(directory, specifier)
	if err != nil {
		return printResult(c, nil, err)
	}
	return printResult(c, res, nil)
}

func printResult(c *cli.Context, res *goresolve.Resolution, resolveErr error) error {
	if c.Bool("json") {
		payload := map[string]interface{}{"success": resolveErr == nil}
		if resolveErr != nil {
			payload["error"] = resolveErr.Error()
		} else {
			payload["path"] = res.Path
			payload["query"] = res.Query
			payload["fragment"] = res.Fragment
		}
		enc, err := json.Marshal(payload)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		fmt.Println(string(enc))
		if resolveErr != nil {
			return cli.Exit("", 1)
		}
		return nil
	}

	if resolveErr != nil {
		return cli.Exit(resolveErr.Error(), 1)
	}
	fmt.Println(res.Path)
	return nil
}

func watchCommand(c *cli.Context) error {
	if c.NArg() < 2 {
		return cli.Exit("usage: resolve watch [flags] <directory> <specifier>", 1)
	}
	directory, err := filepath.Abs(c.Args().Get(0))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to resolve directory: %v", err), 1)
	}
	specifier := c.Args().Get(1)

	opts, err := loadOptionsWithOverrides(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	engine := goresolve.New(opts)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to start file watcher: %v", err), 1)
	}
	defer watcher.Close()

	report := func() []string {
		res, ctxResult, err := engine.ResolveWithContext(directory, specifier)
		if err != nil {
			log.Printf("resolve error: %v", err)
			return nil
		}
		log.Printf("resolved %s -> %s", specifier, res.Path)
		return append(ctxResult.FileDependencies, ctxResult.MissingDependencies...)
	}

	watchedDirs := make(map[string]bool)
	addWatches := func(paths []string) {
		for _, p := range paths {
			dir := filepath.Dir(p)
			if watchedDirs[dir] {
				continue
			}
			if err := watcher.Add(dir); err == nil {
				watchedDirs[dir] = true
			}
		}
	}
	addWatches(report())

	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(100 * time.Millisecond)
		case <-debounce.C:
			engine.ClearCache()
			addWatches(report())
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("watcher error: %v", err)
		}
	}
}

func main() {
	app := &cli.App{
		Name:    "resolve",
		Usage:   "Node.js/bundler-compatible module specifier resolution",
		Version: version.FullInfo(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "resolver.toml or resolver.kdl config file path",
			},
			&cli.StringSliceFlag{
				Name:  "extension",
				Usage: "File extension to try, in order (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "condition",
				Usage: "Package exports condition name, in priority order (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "modules",
				Usage: "Module directory name to search, e.g. node_modules (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "alias",
				Usage: "key=value alias, or key=false to ignore a specifier (repeatable)",
			},
			&cli.StringFlag{
				Name:  "tsconfig",
				Usage: "tsconfig.json path to resolve compilerOptions.paths against",
			},
			&cli.BoolFlag{
				Name:  "builtin-modules",
				Usage: "Reject Node.js core module specifiers (fs, path, ...)",
			},
			&cli.BoolFlag{
				Name:  "pnp",
				Usage: "Resolve through a Yarn Plug'n'Play manifest if one is found",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the result as JSON",
			},
		},
		Action: resolveCommand,
		Commands: []*cli.Command{
			{
				Name:   "watch",
				Usage:  "Re-resolve a specifier whenever its file dependencies change",
				Action: watchCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

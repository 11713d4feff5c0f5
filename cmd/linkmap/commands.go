package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HendryAvila/linkmap/internal/address"
	lmserver "github.com/HendryAvila/linkmap/internal/server"
)

// errUnresolved makes resolve exit non-zero after printing every line.
var errUnresolved = errors.New("some arguments could not be resolved")

// flagSet is a subcommand flag set carrying the shared -config flag.
type flagSet struct {
	*flag.FlagSet
	configPath string
}

func newFlagSet(name string) *flagSet {
	fs := &flagSet{FlagSet: flag.NewFlagSet(name, flag.ContinueOnError)}
	fs.StringVar(&fs.configPath, "config", "", "path to linkmap.yaml (default: nearest one above the working directory)")
	return fs
}

func runScan(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("scan")
	fs.SetOutput(stderr)
	force := fs.Bool("force", false, "rescan even when the cache is up to date")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, logger, err := setup(fs.configPath, stderr)
	if err != nil {
		return err
	}

	deps, cleanup, err := lmserver.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := deps.Resolver.Refresh(ctx, *force)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func runResolve(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("resolve")
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("resolve needs at least one address or path")
	}
	cfg, logger, err := setup(fs.configPath, stderr)
	if err != nil {
		return err
	}

	deps, cleanup, err := lmserver.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	failed := false
	for _, arg := range fs.Args() {
		var out string
		if address.LooksLikeAddress(arg) {
			out, err = deps.Resolver.Resolve(ctx, arg)
		} else {
			out, err = deps.Resolver.ResolvePhysical(ctx, arg)
		}
		if err != nil {
			failed = true
			fmt.Fprintf(stderr, "%s: %v\n", arg, err)
			continue
		}
		fmt.Fprintf(stdout, "%s\t%s\n", arg, out)
	}
	if failed {
		return errUnresolved
	}
	return nil
}

func runConvert(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := newFlagSet("convert")
	fs.SetOutput(stderr)
	toPhysical := fs.Bool("to-physical", false, "rewrite abstract addresses as relative paths instead")
	base := fs.String("base", "", "repository-relative directory of the document (default: the file's directory)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, logger, err := setup(fs.configPath, stderr)
	if err != nil {
		return err
	}

	var text []byte
	baseDir := *base
	if file := fs.Arg(0); file != "" {
		text, err = os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}
		if baseDir == "" {
			baseDir = documentDir(cfg.RepoRoot, file)
		}
	} else {
		text, err = io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
	}

	deps, cleanup, err := lmserver.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := deps.Resolver.ConvertLinks(ctx, string(text), !*toPhysical, baseDir)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(stdout, res.Text); err != nil {
		return err
	}
	logger.Info("links converted", "converted", res.Converted, "unresolved", res.Unresolved)
	return nil
}

// documentDir returns the repository-relative directory of file, or ""
// when file lies outside the repository.
func documentDir(repoRoot, file string) string {
	abs, err := filepath.Abs(file)
	if err != nil {
		return ""
	}
	rel, err := filepath.Rel(repoRoot, filepath.Dir(abs))
	if err != nil {
		return ""
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return ""
	}
	return rel
}

// Command annotate inspects and converts annotated image directories.
//
// Usage:
//
//	annotate detect  [-all] DIR
//	annotate stats   [-format NAME] DIR
//	annotate convert -to NAME [-from NAME] [-out DIR] DIR
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/nvr-ai/annotator/annotation"
	"github.com/nvr-ai/annotator/config"
	"github.com/nvr-ai/annotator/formats"
	"github.com/nvr-ai/annotator/formats/format"
	"github.com/nvr-ai/annotator/images"
	"github.com/nvr-ai/annotator/logging"
)

const usage = `usage: annotate <command> [flags] DIR

commands:
  detect   print the annotation format of DIR
  stats    print shape and class counts of DIR
  convert  convert the annotations of DIR to another format
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// globals are the flags shared by every command.
type globals struct {
	configPath string
	verbose    bool
}

func (g *globals) register(fs *flag.FlagSet) {
	fs.StringVar(&g.configPath, "config", config.DefaultPath, "Path to the settings file")
	fs.BoolVar(&g.verbose, "v", false, "Log debug records to stderr")
}

func (g *globals) logger(stderr io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	return logging.New(stderr, level)
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "detect":
		err = runDetect(args[1:], stdout, stderr)
	case "stats":
		err = runStats(args[1:], stdout, stderr)
	case "convert":
		err = runConvert(args[1:], stdout, stderr)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s", args[0], usage)
		return 2
	}

	if err != nil {
		fmt.Fprintf(stderr, "annotate %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

// parse parses args into fs and returns the single directory argument.
func parse(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", errors.Errorf("expected one directory, got %d arguments", fs.NArg())
	}
	return fs.Arg(0), nil
}

func loadConfig(g globals, logger *slog.Logger) config.AppConfig {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		logger.Warn("using default settings", "error", err)
	}
	return cfg
}

// resolveFormat returns name when set, otherwise the detected or configured
// default format of dir.
func resolveFormat(name, dir string, cfg config.AppConfig, logger *slog.Logger) (format.Name, error) {
	if name != "" {
		n := format.Name(name)
		if !formats.Valid(n) {
			return "", errors.Errorf("unknown format %q, expected one of %s", name, joinNames())
		}
		return n, nil
	}
	if cfg.AutoDetectFormat {
		return formats.Detect(dir, logger), nil
	}
	return cfg.DefaultAnnotationFormat, nil
}

func joinNames() string {
	names := formats.Names()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return strings.Join(out, ", ")
}

func runDetect(args []string, stdout, stderr io.Writer) error {
	var g globals
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	g.register(fs)
	all := fs.Bool("all", false, "Print every matching format in precedence order")
	dir, err := parse(fs, args)
	if err != nil {
		return err
	}
	logger := g.logger(stderr)

	if *all {
		for _, name := range formats.DetectAll(dir) {
			fmt.Fprintf(stdout, "%s\t%s\n", name, formats.DisplayName(name))
		}
		return nil
	}
	name := formats.Detect(dir, logger)
	fmt.Fprintf(stdout, "%s\t%s\n", name, formats.DisplayName(name))
	return nil
}

func runStats(args []string, stdout, stderr io.Writer) error {
	var g globals
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(stderr)
	g.register(fs)
	name := fs.String("format", "", "Annotation format, detected when empty")
	dir, err := parse(fs, args)
	if err != nil {
		return err
	}
	logger := g.logger(stderr)
	cfg := loadConfig(g, logger)

	n, err := resolveFormat(*name, dir, cfg, logger)
	if err != nil {
		return err
	}
	h, err := formats.NewFormat(n, format.Options{Logger: logger})
	if err != nil {
		return err
	}
	h.SetClasses(h.ClassesFromDirectory(dir))
	anns, err := h.LoadDirectory(dir)
	if err != nil {
		return err
	}

	st := collect(anns)
	fmt.Fprintf(stdout, "format:   %s\n", formats.DisplayName(n))
	fmt.Fprintf(stdout, "images:   %d annotated\n", st.images)
	fmt.Fprintf(stdout, "shapes:   %d (%d boxes, %d polygons)\n", st.boxes+st.polygons, st.boxes, st.polygons)
	fmt.Fprintf(stdout, "classes:  %d declared\n", h.Classes().Len())

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tSHAPES")
	for _, label := range st.sortedLabels() {
		id := "-"
		if v, ok := h.Classes().ID(label); ok {
			id = fmt.Sprint(v)
		}
		shown := label
		if shown == "" {
			shown = "(unlabeled)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\n", id, shown, st.labels[label])
	}
	return tw.Flush()
}

type stats struct {
	images, boxes, polygons int
	labels                  map[string]int
}

func collect(anns format.Annotations) stats {
	st := stats{labels: make(map[string]int)}
	for _, shapes := range anns {
		if len(shapes) == 0 {
			continue
		}
		st.images++
		for _, s := range shapes {
			if s.Kind == annotation.KindPolygon {
				st.polygons++
			} else {
				st.boxes++
			}
			st.labels[s.Label]++
		}
	}
	return st
}

func (st stats) sortedLabels() []string {
	out := make([]string, 0, len(st.labels))
	for l := range st.labels {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if st.labels[out[i]] != st.labels[out[j]] {
			return st.labels[out[i]] > st.labels[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

func runConvert(args []string, stdout, stderr io.Writer) error {
	var g globals
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(stderr)
	g.register(fs)
	from := fs.String("from", "", "Source format, detected when empty")
	to := fs.String("to", "", "Target format (required)")
	out := fs.String("out", "", "Output directory, the source directory when empty")
	dir, err := parse(fs, args)
	if err != nil {
		return err
	}
	if *to == "" {
		return errors.Errorf("-to is required, expected one of %s", joinNames())
	}
	logger := g.logger(stderr)
	cfg := loadConfig(g, logger)

	src, err := resolveFormat(*from, dir, cfg, logger)
	if err != nil {
		return err
	}
	dst, err := resolveFormat(*to, dir, cfg, logger)
	if err != nil {
		return err
	}
	outDir := *out
	if outDir == "" {
		outDir = dir
	}

	sizes, err := images.NewSizeCache(0, nil)
	if err != nil {
		return err
	}
	report, err := formats.Convert(dir, outDir, src, dst, format.Options{Logger: logger, Sizes: sizes})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "converted %d images, %d shapes from %s to %s\n",
		report.Images, report.Shapes, formats.DisplayName(src), formats.DisplayName(dst))
	if report.Polygons > 0 {
		fmt.Fprintf(stdout, "%d polygons stored as bounding boxes\n", report.Polygons)
	}
	for _, name := range report.Skipped {
		fmt.Fprintf(stdout, "skipped %s: size unknown\n", name)
	}
	return nil
}

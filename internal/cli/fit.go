package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/matzehuels/spreadline/pkg/contextual"
	"github.com/matzehuels/spreadline/pkg/pipeline"
	"github.com/matzehuels/spreadline/pkg/source"
)

// defaultConfigFile is picked up from the working directory when present.
const defaultConfigFile = "spreadline.toml"

// fitOpts holds the command-line flags for the fit command.
type fitOpts struct {
	ego        string // ego entity the network is centered on
	layout     string // time bucket layout (Go reference layout, e.g. "2006")
	rawLayout  string // layout of the raw timestamps when it differs
	from, to   string // inclusive time range filter
	maxHops    int    // BFS hop limit

	categories string // entity category CSV
	contexts   string // contextual intensity CSV
	profiles   string // 2D profile CSV (static or dynamic)
	groups     string // per-label tier assignment YAML
	sqliteDB   string // read topology from a SQLite database instead of CSV
	table      string // categories table name inside the SQLite database

	configFile string   // TOML config file path
	sets       []string // key=value layout overrides

	output     string  // output file (single format) or base path
	formats    []string
	width      float64
	height     float64
	blockWidth float64

	profileMatch     string // exact or closest
	normalizeProfile bool
	centerProfile    bool

	noCache bool
}

// fileConfig is the TOML config file shape. Every section is optional; flags
// override file values.
type fileConfig struct {
	Ego     string           `toml:"ego"`
	Layout  string           `toml:"layout"`
	Mapping pipeline.Mapping `toml:"mapping"`
	Config  pipeline.Config  `toml:"config"`
}

// loadFileConfig reads the TOML config file. A missing explicit path is an
// error; a missing default path just yields the zero config.
func loadFileConfig(path string, explicit bool) (fileConfig, error) {
	var fc fileConfig
	if _, err := os.Stat(path); err != nil {
		if explicit {
			return fc, fmt.Errorf("config file %s: %w", path, err)
		}
		return fc, nil
	}
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fc, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc, nil
}

// fitCommand creates the fit command that computes a storyline layout from
// topology data and writes the requested artifacts.
func (c *CLI) fitCommand() *cobra.Command {
	var formatsStr string
	opts := fitOpts{}

	cmd := &cobra.Command{
		Use:   "fit [file]",
		Short: "Fit a storyline layout from interaction data",
		Long: `Fit loads directed interaction events from a CSV file (or SQLite database),
builds the egocentric network around --ego, computes the storyline layout and
writes the requested artifacts (json, svg, dot).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			explicit := cmd.Flags().Changed("config")
			fc, err := loadFileConfig(opts.configFile, explicit)
			if err != nil {
				return err
			}
			if opts.ego == "" {
				opts.ego = fc.Ego
			}
			if opts.layout == "" {
				opts.layout = fc.Layout
			}
			return c.runFit(cmd.Context(), args[0], &opts, fc)
		},
	}

	cmd.Flags().StringVarP(&opts.ego, "ego", "e", "", "ego entity to center the network on")
	cmd.Flags().StringVar(&opts.layout, "layout", "", "time bucket layout, Go reference time (default \"2006\")")
	cmd.Flags().StringVar(&opts.rawLayout, "raw-layout", "", "layout of the raw timestamps when it differs from --layout")
	cmd.Flags().StringVar(&opts.from, "from", "", "inclusive lower time bound")
	cmd.Flags().StringVar(&opts.to, "to", "", "inclusive upper time bound")
	cmd.Flags().IntVar(&opts.maxHops, "max-hops", 0, "BFS hop limit around the ego (default 2)")
	cmd.Flags().StringVar(&opts.categories, "categories", "", "entity category CSV file")
	cmd.Flags().StringVar(&opts.contexts, "contexts", "", "contextual intensity CSV file")
	cmd.Flags().StringVar(&opts.profiles, "profiles", "", "2D profile CSV file")
	cmd.Flags().StringVar(&opts.groups, "groups", "", "tier assignment YAML file")
	cmd.Flags().StringVar(&opts.sqliteDB, "sqlite", "", "treat [file] as a table in this SQLite database")
	cmd.Flags().StringVar(&opts.table, "categories-table", "", "categories table in the SQLite database")
	cmd.Flags().StringVar(&opts.configFile, "config", defaultConfigFile, "TOML config file")
	cmd.Flags().StringArrayVar(&opts.sets, "set", nil, "layout override key=value (minimize, squeezeSameCategory, bandStretch)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): json (default), svg, dot (comma-separated)")
	cmd.Flags().Float64Var(&opts.width, "width", 0, "frame width in pixels")
	cmd.Flags().Float64Var(&opts.height, "height", 0, "frame height in pixels")
	cmd.Flags().Float64Var(&opts.blockWidth, "block-width", 0, "session block width in pixels")
	cmd.Flags().StringVar(&opts.profileMatch, "profile-match", "", "dynamic profile match policy: exact, closest")
	cmd.Flags().BoolVar(&opts.normalizeProfile, "normalize-profile", false, "min-max normalize profile positions")
	cmd.Flags().BoolVar(&opts.centerProfile, "center-profile", false, "shift profile positions so the ego sits at the frame center")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable result caching")

	return cmd
}

// runFit loads sources, executes the pipeline and writes artifacts.
func (c *CLI) runFit(ctx context.Context, input string, opts *fitOpts, fc fileConfig) error {
	mapping := fc.Mapping
	if mapping == (pipeline.Mapping{}) {
		mapping = pipeline.DefaultMapping()
	}

	prog := newProgress(c.Logger)
	data, err := loadData(ctx, input, opts, mapping)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Loaded %d interactions", len(data.Topology)))

	cfg := fc.Config
	for _, kv := range opts.sets {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid --set %q (expected key=value)", kv)
		}
		if err := cfg.Set(key, value); err != nil {
			return err
		}
	}

	popts := pipeline.Options{
		Ego:              opts.ego,
		Layout:           opts.layout,
		RawLayout:        opts.rawLayout,
		TimeRange:        [2]string{opts.from, opts.to},
		MaxHops:          opts.maxHops,
		ProfileMatch:     contextual.MatchPolicy(opts.profileMatch),
		NormalizeProfile: opts.normalizeProfile,
		CenterProfile:    opts.centerProfile,
		Width:            opts.width,
		Height:           opts.height,
		BlockWidth:       opts.blockWidth,
		Formats:          opts.formats,
	}

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Fitting storyline layout")
	spinner.Start()
	res, err := runner.Execute(withLogger(ctx, c.Logger), data, popts, cfg)
	spinner.Stop()
	if err != nil {
		if spinner.Cancelled() {
			printWarning("Cancelled")
		}
		return err
	}

	base := basePath(opts.output, input)
	for _, format := range opts.formats {
		path := base + "." + format
		if opts.output != "" && len(opts.formats) == 1 {
			path = opts.output
		}
		if err := os.WriteFile(path, res.Artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}

	printSuccess("Fitted storyline for %s", StyleHighlight.Render(opts.ego))
	printStats(res.Stats.EntityCount, res.Stats.SessionCount, res.CacheInfo.FitHit)
	printDetail("%s", res.Stats)
	printNextStep("Serve it over HTTP", fmt.Sprintf("%s serve %s", appName, input))
	return nil
}

// loadData assembles the pipeline input from the configured sources.
func loadData(ctx context.Context, input string, opts *fitOpts, m pipeline.Mapping) (pipeline.Data, error) {
	var data pipeline.Data
	var err error

	if opts.sqliteDB != "" {
		db, oerr := source.OpenSQLite(opts.sqliteDB)
		if oerr != nil {
			return data, oerr
		}
		defer db.Close()
		if data.Topology, err = db.Topology(ctx, input, m); err != nil {
			return data, err
		}
		if opts.table != "" {
			if data.Categories, err = db.Categories(ctx, opts.table, m); err != nil {
				return data, err
			}
		}
	} else {
		if data.Topology, err = source.OpenTopologyCSV(input, m); err != nil {
			return data, err
		}
	}

	if opts.categories != "" {
		f, oerr := os.Open(opts.categories)
		if oerr != nil {
			return data, oerr
		}
		defer f.Close()
		if data.Categories, err = source.ReadCategoriesCSV(f, m); err != nil {
			return data, err
		}
	}
	if opts.contexts != "" {
		f, oerr := os.Open(opts.contexts)
		if oerr != nil {
			return data, oerr
		}
		defer f.Close()
		if data.Contexts, err = source.ReadContextsCSV(f, m); err != nil {
			return data, err
		}
	}
	if opts.profiles != "" {
		f, oerr := os.Open(opts.profiles)
		if oerr != nil {
			return data, oerr
		}
		defer f.Close()
		if data.Profiles, err = source.ReadProfilesCSV(f, m); err != nil {
			return data, err
		}
	}
	if opts.groups != "" {
		if data.Groups, err = source.OpenGroupsYAML(opts.groups); err != nil {
			return data, err
		}
	}
	return data, nil
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input. If output carries a
// known format extension, that extension is stripped.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"didbase/internal/config"
	"didbase/internal/retriever"
	"didbase/internal/series"
)

// cliFlags are shared by the root and units commands.
type cliFlags struct {
	station  string
	force    bool
	dmuf     int
	tzaware  bool
	cacheDir string
	json     bool
}

func (f *cliFlags) options() []retriever.Option {
	opts := []retriever.Option{
		retriever.WithForce(f.force),
		retriever.WithTZAware(f.tzaware),
	}
	if f.dmuf != 0 {
		opts = append(opts, retriever.WithDMUF(f.dmuf))
	}
	return opts
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	flags := &cliFlags{}

	root := &cobra.Command{
		Use:   "didbase <time>...",
		Short: "Ionospheric characteristics from the Lowell DIDBase",
		Long: "didbase retrieves foF2, MUF(D), hmF2, TEC and B0 for a digisonde station,\n" +
			"caches one verified artifact per station month, and prints the observation\n" +
			"nearest to each requested time.",
		Args:          cobra.MinimumNArgs(1),
		Version:       config.NewBuildInfo().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndices(cmd, args, flags, logOut)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.station, "station", "s", "", "URSI station code, e.g. AH223 (required)")
	pf.BoolVar(&flags.force, "force", false, "Ignore cached data and download every month again")
	pf.IntVar(&flags.dmuf, "dmuf", 0, "Ground distance in km for MUF(D) (default from DIDBASE_DMUF)")
	pf.BoolVar(&flags.tzaware, "tzaware", false, "Convert zoned times to UTC instead of dropping the zone")
	pf.StringVar(&flags.cacheDir, "cache-dir", "", "Cache directory (default from DIDBASE_CACHE_DIR)")
	pf.BoolVar(&flags.json, "json", false, "Print JSON instead of a table")

	root.AddCommand(newUnitsCmd(flags, logOut))
	root.AddCommand(newVersionCmd(flags))
	return root
}

// setup loads configuration, applies flag overrides and wires a Retriever.
func setup(cmd *cobra.Command, flags *cliFlags, logOut io.Writer) (*retriever.Retriever, *slog.Logger, error) {
	if flags.station == "" {
		return nil, nil, fmt.Errorf("--station is required")
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	if flags.cacheDir != "" {
		cfg.Cache.Dir = flags.cacheDir
	}

	logger := newLogger(logOut, cfg.SlogLevel())
	logger.Debug("didbase starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"cache_dir", cfg.Cache.Dir,
		"base_url", cfg.Upstream.BaseURL,
	)

	r, err := newRetriever(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return r, logger, nil
}

func runIndices(cmd *cobra.Command, args []string, flags *cliFlags, logOut io.Writer) error {
	r, _, err := setup(cmd, flags, logOut)
	if err != nil {
		return err
	}

	s, err := r.GetIndices(cmd.Context(), args, flags.station, flags.options()...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flags.json {
		return writeJSON(out, newSeriesView(s))
	}
	if s.Len() == 0 {
		fmt.Fprintf(out, "No observations for station %s in the requested months.\n", flags.station)
		return nil
	}
	_, err = io.WriteString(out, s.String())
	return err
}

type columnView struct {
	Name        string `json:"name"`
	Units       string `json:"units"`
	Description string `json:"description"`
}

type rowView struct {
	Requested time.Time          `json:"requested"`
	Time      time.Time          `json:"time"`
	Values    map[string]float64 `json:"values"`
}

type seriesView struct {
	Attrs   map[string]string `json:"attrs"`
	Columns []columnView      `json:"columns"`
	Rows    []rowView         `json:"rows"`
}

func newSeriesView(s *series.Series) seriesView {
	v := seriesView{
		Attrs:   s.Attrs,
		Columns: make([]columnView, len(s.Fields)),
		Rows:    make([]rowView, s.Len()),
	}
	for i, f := range s.Fields {
		v.Columns[i] = columnView{Name: f.Name, Units: f.Units, Description: f.Description}
	}
	for i := range v.Rows {
		row := rowView{Time: s.Times[i], Values: make(map[string]float64, len(s.Fields))}
		if i < len(s.Requested) {
			row.Requested = s.Requested[i]
		}
		for _, f := range s.Fields {
			row.Values[f.Name] = f.Values[i]
		}
		v.Rows[i] = row
	}
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

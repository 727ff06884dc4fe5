package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/user"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-mapcraft/internal/composer"
	"github.com/joeblew999/plat-mapcraft/internal/config"
	"github.com/joeblew999/plat-mapcraft/internal/layout"
	"github.com/joeblew999/plat-mapcraft/internal/logging"
	"github.com/joeblew999/plat-mapcraft/internal/scalebar"
	"github.com/joeblew999/plat-mapcraft/internal/server"
	"github.com/joeblew999/plat-mapcraft/internal/service"
)

// Options defines the CLI flags and env vars shared by all commands.
// Flags: --host, --port, --config, --data-dir, --log-format
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_CONFIG, SERVICE_DATA_DIR, SERVICE_LOG_FORMAT
type Options struct {
	Host      string `doc:"Host to bind to" default:"0.0.0.0"`
	Port      int    `doc:"Port to listen on" short:"p" default:"8086"`
	Config    string `doc:"Path to mapcraft.yaml" short:"c"`
	DataDir   string `doc:"Directory with sources/ and the run history, overrides the config file"`
	LogFormat string `doc:"Log format for the server: json or console" default:"json"`
}

func loadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if cfg.Creator == "" {
		if u, err := user.Current(); err == nil {
			cfg.Creator = u.Username
		}
	}
	return cfg, nil
}

// newServer builds the server. local lets compose requests read and write
// anywhere on the machine, for the CLI only.
func newServer(opts *Options, cfg *config.Config, log *logging.Logger, n composer.Notifier, local bool) (*server.Server, error) {
	return server.New(server.Config{
		Host:       opts.Host,
		Port:       fmt.Sprintf("%d", opts.Port),
		App:        *cfg,
		Notifier:   n,
		LocalPaths: local,
	}, log)
}

// fatal prints err and exits, for subcommands.
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// printNotifier writes run outcomes to stdout.
type printNotifier struct{}

func (printNotifier) Notify(o composer.Outcome) {
	fmt.Printf("[%s] %s\n", o.Status, o.Reason)
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Runs for every subcommand; the server is only built when serving.
		var httpServer *http.Server
		var srv *server.Server

		hooks.OnStart(func() {
			cfg, err := loadConfig(opts)
			if err != nil {
				fatal(err)
			}
			log := logging.New(logging.Config{Level: cfg.Log.Level, Format: opts.LogFormat})
			srv, err = newServer(opts, cfg, log, nil, false)
			if err != nil {
				fatal(err)
			}
			httpServer = &http.Server{
				Addr:              fmt.Sprintf("%s:%d", opts.Host, opts.Port),
				Handler:           srv,
				ReadHeaderTimeout: 10 * time.Second,
			}

			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)
			log.Info("plat-mapcraft API server starting",
				"url", baseURL,
				"data_dir", cfg.DataDir,
				"output_dir", cfg.OutputDir,
				"docs", baseURL+"/docs",
				"metrics", baseURL+"/metrics")

			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(err, "server error")
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			if httpServer == nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			httpServer.Shutdown(ctx)
			srv.Close()
		})
	})

	cli.Root().Use = "mapcraft"
	cli.Root().Short = "Composes wind-park overview maps for print"
	cli.Root().Version = "0.1.0"

	cli.Root().AddCommand(composeCmd(), regionsCmd(), scalebarCmd(), specCmd())
	cli.Run()
}

func composeCmd() *cobra.Command {
	var req service.ComposeRequest
	var layers []string

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Compose one overview map and export it",
		Example: `  mapcraft compose --project Nordheide --region Niedersachsen --scale 25000 \
    --layer turbines=wea.shp --layer site_boundary=gebiet.geojson`,
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			cfg, err := loadConfig(opts)
			if err != nil {
				fatal(err)
			}
			log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
			for _, l := range layers {
				lr, err := parseLayer(l)
				if err != nil {
					fatal(err)
				}
				req.Layers = append(req.Layers, lr)
			}

			srv, err := newServer(opts, cfg, log, printNotifier{}, true)
			if err != nil {
				fatal(err)
			}
			defer srv.Close()

			res, err := srv.Services().Compose.Compose(cmd.Context(), req)
			if res != nil && res.OutputPath != "" && err == nil {
				fmt.Println(res.OutputPath)
				for _, w := range res.Warnings {
					fmt.Fprintln(os.Stderr, "warning:", w)
				}
			}
			if err != nil {
				if res == nil {
					fatal(err)
				}
				os.Exit(1)
			}
		}),
	}

	f := cmd.Flags()
	f.StringVar(&req.ProjectName, "project", "", "Wind park project name")
	f.StringVar(&req.Region, "region", "", "Federal state, required for the topographic basemap")
	f.IntVar(&req.Scale, "scale", 25000, "Print scale denominator")
	f.StringVar(&req.Paper, "paper", "A4", "Paper size: A4 or A3")
	f.StringVar(&req.Basemap, "basemap", "topographic", "Basemap: topographic, satellite or osm")
	f.StringVar(&req.Format, "format", "pdf", "Export format: pdf or png")
	f.StringArrayVar(&layers, "layer", nil, "Content layer as role=file[,name], repeatable")
	f.StringVar(&req.LegendMode, "legend-mode", "fixed", "Legend: fixed or manual")
	f.IntVar(&req.LegendMaxChars, "legend-max-chars", 0, "Manual legend name limit")
	f.BoolVar(&req.KeepLayers, "keep-layers", false, "Keep content layers after a successful run")
	f.StringVar(&req.Creator, "creator", "", "Creator shown on the map")
	f.StringVarP(&req.OutputDir, "output", "o", "", "Output folder")
	f.Float64Var(&req.DPI, "dpi", 0, "Raster resolution for png")
	return cmd
}

// parseLayer reads role=file[,name].
func parseLayer(s string) (service.LayerRequest, error) {
	role, rest, ok := strings.Cut(s, "=")
	if !ok || role == "" || rest == "" {
		return service.LayerRequest{}, fmt.Errorf("invalid layer %q, want role=file[,name]", s)
	}
	file, name, _ := strings.Cut(rest, ",")
	return service.LayerRequest{Role: role, File: file, Name: name}, nil
}

func regionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List the regions and scales of the basemap catalog",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			cfg, err := loadConfig(opts)
			if err != nil {
				fatal(err)
			}
			srv, err := newServer(opts, cfg, logging.Nop(), nil, false)
			if err != nil {
				fatal(err)
			}
			defer srv.Close()

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "REGION\tSCALES\tCOPYRIGHT")
			for _, r := range srv.Services().Compose.Composer().Resolver().Catalog().Regions() {
				scales := make([]string, 0, len(r.Sources))
				for _, s := range r.Scales() {
					scales = append(scales, fmt.Sprintf("1:%d", s))
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, strings.Join(scales, " "), r.Copyright)
			}
			tw.Flush()
		}),
	}
}

func scalebarCmd() *cobra.Command {
	var scale int
	var paper string
	cmd := &cobra.Command{
		Use:   "scalebar",
		Short: "Show the scale bar planned for a scale and paper size",
		Run: func(cmd *cobra.Command, args []string) {
			p, err := layout.ParsePaper(paper)
			if err != nil {
				fatal(err)
			}
			spec, err := scalebar.Plan(scale, p)
			if err != nil {
				fatal(err)
			}
			out, _ := json.MarshalIndent(spec, "", "  ")
			fmt.Println(string(out))
		},
	}
	cmd.Flags().IntVar(&scale, "scale", 25000, "Print scale denominator")
	cmd.Flags().StringVar(&paper, "paper", "A4", "Paper size: A4 or A3")
	return cmd
}

func specCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			cfg, err := loadConfig(opts)
			if err != nil {
				fatal(err)
			}
			srv, err := newServer(opts, cfg, logging.Nop(), nil, false)
			if err != nil {
				fatal(err)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fatal(fmt.Errorf("marshaling spec: %w", err))
			}
			fmt.Println(string(output))
		}),
	}
	cmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	return cmd
}

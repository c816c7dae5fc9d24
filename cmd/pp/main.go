package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"plantpulse/internal/app"
	"plantpulse/internal/domain"
	"plantpulse/internal/engine"
	"plantpulse/internal/export"
	"plantpulse/internal/importer"
	"plantpulse/internal/layout"
	"plantpulse/internal/render"
	"plantpulse/internal/server"
	"plantpulse/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "pp",
	Short: "PlantPulse wallboard",
	Long: `PlantPulse paints the production schedule of a fermentation plant as a
timeline wallboard.
- Workspace: a directory holding plantpulse.yml and the .plantpulse database.
- Snapshot: equipment, display groups, batch chains and stages the board is drawn from.
- Display groups: which vessels appear, in which order; a separator row sits between groups.
- Shifts: four teams rotate through 12 hour blocks; the band under the days shows who is on duty.
- Night mode: a dark theme, switched by hand or by the clock.
- Event log: every change to the snapshot and preferences, view with 'pp log tail'.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("PLANTPULSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().Bool("force", false, "force operation")
	rootCmd.PersistentFlags().String("facility", "", "facility id (overrides config)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("force", rootCmd.PersistentFlags().Lookup("force"))
	_ = viper.BindPFlag("facility", rootCmd.PersistentFlags().Lookup("facility"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(demoCmd())
	rootCmd.AddCommand(snapshotCmd())
	rootCmd.AddCommand(equipmentCmd())
	rootCmd.AddCommand(rowsCmd())
	rootCmd.AddCommand(teamCmd())
	rootCmd.AddCommand(bandsCmd())
	rootCmd.AddCommand(holidaysCmd())
	rootCmd.AddCommand(renderCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(nightCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(rendersCmd())
}

func initCmd() *cobra.Command {
	var demo bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a workspace",
		Long:  "Writes plantpulse.yml with the reference plant defaults and creates the database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.Init(cmd.Context(), viper.GetString("workspace"), viper.GetString("facility"), viper.GetBool("force"))
			if err != nil {
				return err
			}
			defer ws.Close()
			if demo {
				if _, _, err := ws.Engine.SeedDemo(cmd.Context(), false); err != nil && !errors.Is(err, engine.ErrSnapshotExists) {
					return err
				}
			}
			out := map[string]any{
				"workspace": ws.Dir,
				"config":    filepath.Join(ws.Dir, "plantpulse.yml"),
				"facility":  ws.Config.Facility.ID,
				"demo":      demo,
			}
			if viper.GetBool("json") {
				return printJSON(out)
			}
			fmt.Printf("Initialized %s for facility %s\n", ws.Dir, ws.Config.Facility.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "store the demo plant")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect facility config",
		Long:  "plantpulse.yml holds the facility timezone, holiday table, shift rotation, layout metrics, render defaults and theme overrides.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				if viper.GetBool("json") {
					return printJSON(ws.Config)
				}
				b, err := ws.Config.YAML()
				if err != nil {
					return err
				}
				fmt.Print(string(b))
				return nil
			})
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate config",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				return ws.Config.Validate()
			})
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func demoCmd() *cobra.Command {
	demo := &cobra.Command{Use: "demo", Short: "Demo plant"}
	demo.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Store the demo plant as the snapshot",
		Long:  "Generates 27 vessels, the GNT and KK lines and 20 batch chains around today. Refuses to replace an existing snapshot without --force.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				snap, rev, err := ws.Engine.SeedDemo(ctx, viper.GetBool("force"))
				if err != nil {
					return err
				}
				return printSummary(snap, rev)
			})
		},
	})
	return demo
}

func snapshotCmd() *cobra.Command {
	snap := &cobra.Command{
		Use:   "snapshot",
		Short: "Stored snapshot",
		Long:  "The snapshot is the whole board state. Writes are checked against the stored revision so concurrent editors do not overwrite each other.",
	}
	snap.AddCommand(snapshotShowCmd())
	snap.AddCommand(snapshotExportCmd())
	snap.AddCommand(snapshotImportCmd())
	snap.AddCommand(snapshotImportStagesCmd())
	snap.AddCommand(snapshotChainCmd())
	snap.AddCommand(snapshotRemoveChainCmd())
	return snap
}

func snapshotShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Summarize the snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				snap, rev, err := ws.Engine.Snapshot(ctx)
				if err != nil {
					return err
				}
				return printSummary(snap, rev)
			})
		},
	}
}

func snapshotExportCmd() *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the snapshot as yaml, json or csv (stages only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				snap, _, err := ws.Engine.Snapshot(ctx)
				if err != nil {
					return err
				}
				w, closeFn, err := openOutput(out)
				if err != nil {
					return err
				}
				defer closeFn()
				switch format {
				case "yaml", "yml":
					enc := yaml.NewEncoder(w)
					enc.SetIndent(2)
					if err := enc.Encode(snap); err != nil {
						return err
					}
					return enc.Close()
				case "json":
					enc := json.NewEncoder(w)
					enc.SetIndent("", "  ")
					return enc.Encode(snap)
				case "csv":
					return importer.WriteStages(w, snap.Stages)
				default:
					return fmt.Errorf("unknown format %q (want yaml, json or csv)", format)
				}
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "yaml, json or csv")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	return cmd
}

func snapshotImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the snapshot from a yaml or json file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var snap domain.Snapshot
			switch strings.ToLower(filepath.Ext(args[0])) {
			case ".json":
				err = json.Unmarshal(data, &snap)
			default:
				err = yaml.Unmarshal(data, &snap)
			}
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				current, err := ws.Engine.Store.Revision(ctx, store.KeySnapshot)
				if err != nil {
					return err
				}
				if current > 0 && !viper.GetBool("force") {
					return fmt.Errorf("snapshot exists at revision %d; use --force to replace it", current)
				}
				rev, err := ws.Engine.SaveSnapshot(ctx, snap, current)
				if err != nil {
					return err
				}
				return printSummary(snap, rev)
			})
		},
	}
	return cmd
}

func snapshotImportStagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-stages <file.csv>",
		Short: "Upsert stages from a CSV file",
		Long:  "Columns: " + strings.Join(importer.Header, ",") + ". Times are RFC 3339 or 'YYYY-MM-DD HH:MM' in facility time. Unknown batch chains are created as drafts.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				stages, err := importer.LoadFile(args[0], ws.Engine.Location())
				if err != nil {
					return err
				}
				res, rev, err := ws.Engine.ImportStages(ctx, stages)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"revision": rev, "result": res})
				}
				fmt.Printf("revision %d: %d added, %d updated", rev, res.Added, res.Updated)
				if len(res.Chains) > 0 {
					fmt.Printf(", new chains %s", strings.Join(res.Chains, " "))
				}
				fmt.Println()
				return nil
			})
		},
	}
}

func snapshotChainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chain <id>",
		Short: "List the stages of a batch chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				snap, _, err := ws.Engine.Snapshot(ctx)
				if err != nil {
					return err
				}
				stages := snap.StagesOf(args[0])
				if viper.GetBool("json") {
					return printJSON(stages)
				}
				if len(stages) == 0 {
					return fmt.Errorf("batch chain %s has no stages", args[0])
				}
				now := ws.Engine.Now()
				loc := ws.Engine.Location()
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Type", "Equipment", "Start", "End", "State"})
				for _, st := range stages {
					tw.AppendRow(table.Row{
						st.ID, st.StageType, st.EquipmentID,
						st.Start.In(loc).Format(importer.LocalLayout),
						st.End.In(loc).Format(importer.LocalLayout),
						st.StateAt(now),
					})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func snapshotRemoveChainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-chain <id>",
		Short: "Delete a batch chain and its stages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				rev, err := ws.Engine.RemoveChain(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"revision": rev, "removed": args[0]})
				}
				fmt.Printf("revision %d: removed %s\n", rev, args[0])
				return nil
			})
		},
	}
}

func equipmentCmd() *cobra.Command {
	eq := &cobra.Command{Use: "equipment", Short: "Vessel roster"}
	eq.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List vessels and their availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				snap, _, err := ws.Engine.Snapshot(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(snap.Equipment)
				}
				now := ws.Engine.Now()
				loc := ws.Engine.Location()
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Name", "Group", "Line", "Available", "Downtime"})
				for _, e := range snap.Equipment {
					down := ""
					if e.Downtime != nil {
						end := "open"
						if e.Downtime.End != nil {
							end = e.Downtime.End.In(loc).Format("2006-01-02 15:04")
						}
						down = e.Downtime.Start.In(loc).Format("2006-01-02 15:04") + " .. " + end
						if e.Downtime.Reason != "" {
							down += " (" + e.Downtime.Reason + ")"
						}
						if !e.HasDowntime(now) {
							down = "ended " + down
						}
					}
					tw.AppendRow(table.Row{e.ID, e.Name, e.Group, e.ProductLine, yesNo(!e.UnavailableAt(now)), down})
				}
				tw.Render()
				return nil
			})
		},
	})
	return eq
}

func rowsCmd() *cobra.Command {
	var groups []string
	cmd := &cobra.Command{
		Use:   "rows",
		Short: "Show the timeline rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				snap, _, err := ws.Engine.Snapshot(ctx)
				if err != nil {
					return err
				}
				m := ws.Engine.Painter.Metrics
				res := layout.Build(snap.Equipment, layout.FilterGroups(snap.DisplayGroups, groups), m)
				if viper.GetBool("json") {
					return printJSON(res)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"#", "Group", "Equipment", "Name", "Y"})
				for _, r := range res.Rows {
					if r.Kind == layout.KindSeparator {
						tw.AppendSeparator()
						continue
					}
					tw.AppendRow(table.Row{r.Index, r.GroupID, r.EquipmentID, r.EquipmentName, fmt.Sprintf("%.0f", r.Y)})
				}
				tw.AppendFooter(table.Row{"", "", "", "height", fmt.Sprintf("%.0f", layout.ContentHeight(res.Rows, m))})
				tw.Render()
				for _, d := range res.Diagnostics {
					fmt.Fprintf(os.Stderr, "warning: %s: %s\n", d.Code, d.Message)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&groups, "groups", nil, "display groups to include")
	return cmd
}

func teamCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Show the team on duty",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				t := ws.Engine.Now()
				if at != "" {
					parsed, err := parseWhen(at, ws.Engine.Location())
					if err != nil {
						return err
					}
					t = parsed
				}
				idx, name := ws.Engine.Team(t)
				if viper.GetBool("json") {
					return printJSON(map[string]any{"at": t, "team": idx, "name": name})
				}
				fmt.Printf("%s: team %s\n", t.In(ws.Engine.Location()).Format("2006-01-02 15:04"), name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "instant, RFC 3339 or 'YYYY-MM-DD HH:MM' in facility time")
	return cmd
}

func bandsCmd() *cobra.Command {
	var start string
	var days int
	cmd := &cobra.Command{
		Use:   "bands",
		Short: "List the shift blocks of a view",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				e := ws.Engine
				view := e.DefaultView()
				if start != "" {
					t, err := parseWhen(start, e.Location())
					if err != nil {
						return err
					}
					view.Start = t
				}
				if days > 0 {
					view.Days = days
				}
				bands := e.Painter.Rotation.Bands(view.Start, view.Days)
				if viper.GetBool("json") {
					return printJSON(bands)
				}
				loc := e.Location()
				tw := newTable()
				tw.AppendHeader(table.Row{"Start", "End", "Team"})
				for _, b := range bands {
					tw.AppendRow(table.Row{b.Start.In(loc).Format("Mon 01-02 15:04"), b.End.In(loc).Format("Mon 01-02 15:04"), e.Config.TeamName(b.Team)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "view start (default: today minus render.days_before)")
	cmd.Flags().IntVar(&days, "days", 0, "number of days (default: render.days)")
	return cmd
}

func holidaysCmd() *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "List the public holidays of a year",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				e := ws.Engine
				if year == 0 {
					year = e.Today().Year()
				}
				list := e.Painter.Calendar.Holidays(year, e.Location())
				if viper.GetBool("json") {
					return printJSON(list)
				}
				tw := newTable()
				tw.SetTitle(fmt.Sprintf("%s %d", e.Painter.Calendar.Jurisdiction().Name, year))
				tw.AppendHeader(table.Row{"Date", "Day", "Name"})
				for _, h := range list {
					tw.AppendRow(table.Row{h.Date.Format("2006-01-02"), h.Date.Weekday().String()[:3], h.Name})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year (default: current)")
	return cmd
}

type renderFlags struct {
	surface string
	width   int
	height  int
	scale   float64
	groups  []string
	theme   string
	start   string
	days    int
}

func (f *renderFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.surface, "surface", "wallboard", "surface id")
	cmd.Flags().IntVar(&f.width, "width", 0, "width in pixels (default: render.width)")
	cmd.Flags().IntVar(&f.height, "height", 0, "height in pixels (default: render.height)")
	cmd.Flags().Float64Var(&f.scale, "scale", 0, "device pixel ratio (default: render.scale)")
	cmd.Flags().StringSliceVar(&f.groups, "groups", nil, "display groups to include")
	cmd.Flags().StringVar(&f.theme, "theme", "auto", "day, night or auto")
	cmd.Flags().StringVar(&f.start, "start", "", "view start")
	cmd.Flags().IntVar(&f.days, "days", 0, "number of days")
}

func (f renderFlags) request(e engine.Engine) (engine.RenderRequest, error) {
	req := engine.RenderRequest{
		SurfaceID: f.surface,
		Width:     f.width,
		Height:    f.height,
		Scale:     f.scale,
		Groups:    f.groups,
		Days:      f.days,
	}
	switch f.theme {
	case "", "auto":
	case "day", "night":
		night := f.theme == "night"
		req.Night = &night
	default:
		return req, fmt.Errorf("invalid theme %q (want day, night or auto)", f.theme)
	}
	if f.start != "" {
		t, err := parseWhen(f.start, e.Location())
		if err != nil {
			return req, err
		}
		req.Start = t
	}
	return req, nil
}

func renderCmd() *cobra.Command {
	var flags renderFlags
	var out string
	var page bool
	var dpi float64
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Paint the wallboard into a PNG file",
		Long:  "Paints once. With --page the image is placed on an A4 landscape sheet with a print footer.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				e := ws.Engine
				req, err := flags.request(e)
				if err != nil {
					return err
				}
				_, res, err := e.Render(ctx, req)
				if err != nil {
					return err
				}
				now := e.Now()
				if out == "" {
					out = req.SurfaceID + ".png"
					if page {
						out = export.FileName(now.In(e.Location()))
					}
				}
				w, closeFn, err := openOutput(out)
				if err != nil {
					return err
				}
				defer closeFn()
				if page {
					err = export.WritePage(w, e.Registry, req.SurfaceID, export.PageOptions{DPI: dpi, PrintedAt: now, Location: e.Location()})
				} else {
					err = export.PNG(w, e.Registry, req.SurfaceID)
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"out": out, "theme": res.Theme, "rows": res.Rows, "bars": res.Bars, "diagnostics": res.Diagnostics})
				}
				fmt.Fprintf(os.Stderr, "painted %s (%s, %d rows, %d bars) -> %s\n", req.SurfaceID, res.Theme, res.Rows, res.Bars, out)
				return nil
			})
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout")
	cmd.Flags().BoolVar(&page, "page", false, "lay out on a printable A4 page")
	cmd.Flags().Float64Var(&dpi, "dpi", export.DefaultDPI, "page resolution")
	return cmd
}

func watchCmd() *cobra.Command {
	var flags renderFlags
	var out string
	var verbose bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep a PNG file in sync with the snapshot",
		Long:  "Repaints on every refresh tick, when the snapshot revision moves and when night mode flips, until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				e := ws.Engine
				e.Logger = log.New(os.Stderr, "pp: ", log.LstdFlags)
				req, err := flags.request(e)
				if err != nil {
					return err
				}
				if out == "" {
					out = req.SurfaceID + ".png"
				}
				s, err := e.NewSession(ctx, req)
				if err != nil {
					return err
				}
				s.Orchestrator.Verbose = verbose
				record := s.Orchestrator.OnPaint
				s.Orchestrator.OnPaint = func(res render.PaintResult, img image.Image) {
					if record != nil {
						record(res, img)
					}
					if err := writeFileAtomic(out, func(w io.Writer) error {
						return export.PNG(w, e.Registry, req.SurfaceID)
					}); err != nil {
						e.Logger.Printf("watch: write %s: %v", out, err)
						return
					}
					e.Logger.Printf("watch: %s painted (%s, %s, rev %d)", out, res.Trigger, res.Theme, s.Revision())
				}
				err = s.Run(ctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every paint and skip")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var live bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New(os.Stderr, "pp: ", log.LstdFlags)
			ws, err := app.Open(cmd.Context(), viper.GetString("workspace"), app.Options{
				FacilityOverride: viper.GetString("facility"),
				SeedDemo:         viper.GetBool("demo"),
				Logger:           logger,
			})
			if err != nil {
				return err
			}
			defer ws.Close()
			e := ws.Engine
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if live {
				s, err := e.NewSession(ctx, engine.RenderRequest{SurfaceID: "wallboard"})
				if err != nil {
					return fmt.Errorf("live wallboard: %w", err)
				}
				go func() {
					if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						logger.Printf("live wallboard: %v", err)
					}
				}()
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Logger: logger})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-ctx.Done()
				sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer scancel()
				srv.Shutdown(sctx)
			}()
			fmt.Printf("Serving PlantPulse API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&live, "live", true, "keep the wallboard surface painted in the background")
	cmd.Flags().Bool("demo", false, "store the demo plant when the workspace has no snapshot")
	_ = viper.BindPFlag("demo", cmd.Flags().Lookup("demo"))
	return cmd
}

func nightCmd() *cobra.Command {
	night := &cobra.Command{
		Use:   "night",
		Short: "Night mode",
		Long:  "A stored preference wins; without one and with night.auto on, the clock decides.",
	}
	night.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the current mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				on, err := ws.Engine.Night(ctx)
				if err != nil {
					return err
				}
				return printMode(on)
			})
		},
	})
	night.AddCommand(&cobra.Command{
		Use:       "set <day|night>",
		Short:     "Store the mode",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"day", "night"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var on bool
			switch args[0] {
			case "day":
			case "night":
				on = true
			default:
				return fmt.Errorf("invalid mode %q (want day or night)", args[0])
			}
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				if err := ws.Engine.SetNight(ctx, on); err != nil {
					return err
				}
				return printMode(on)
			})
		},
	})
	night.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Flip the mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				on, err := ws.Engine.Night(ctx)
				if err != nil {
					return err
				}
				if err := ws.Engine.SetNight(ctx, !on); err != nil {
					return err
				}
				return printMode(!on)
			})
		},
	})
	return night
}

func logCmd() *cobra.Command {
	lg := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "Every snapshot write, demo seed, stage import and night toggle.",
	}
	lg.AddCommand(logTailCmd())
	return lg
}

func logTailCmd() *cobra.Command {
	var n int
	var follow bool
	var f store.EventFilter
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				items, err := ws.Engine.Store.LatestEvents(ctx, n, f)
				if err != nil {
					return err
				}
				var cursor int64
				for i := len(items) - 1; i >= 0; i-- {
					printEvent(items[i])
					cursor = items[i].ID
				}
				if !follow {
					return nil
				}
				ticker := time.NewTicker(time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return nil
					case <-ticker.C:
					}
					next, err := ws.Engine.Store.EventsAfter(ctx, 100, cursor)
					if err != nil {
						return err
					}
					for _, evt := range next {
						printEvent(evt)
						cursor = evt.ID
					}
				}
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing new events")
	cmd.Flags().StringVar(&f.Type, "type", "", "event type filter")
	cmd.Flags().StringVar(&f.EntityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&f.EntityID, "entity-id", "", "entity id")
	return cmd
}

func rendersCmd() *cobra.Command {
	var n int
	var surface string
	cmd := &cobra.Command{
		Use:   "renders",
		Short: "List recent paints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				items, err := ws.Engine.Store.LatestRenders(ctx, surface, n)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Surface", "At", "Trigger", "Theme", "Size", "Rows", "Bars", "Rev"})
				for _, r := range items {
					tw.AppendRow(table.Row{r.ID, r.SurfaceID, r.TS, r.Trigger, r.Theme, fmt.Sprintf("%dx%d", r.Width, r.Height), r.Rows, r.Bars, r.SnapshotRevision})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of paints")
	cmd.Flags().StringVar(&surface, "surface", "", "surface id filter")
	return cmd
}

func withWorkspace(ctx context.Context, fn func(context.Context, *app.Workspace) error) error {
	ws, err := app.Open(ctx, viper.GetString("workspace"), app.Options{FacilityOverride: viper.GetString("facility")})
	if err != nil {
		return err
	}
	defer ws.Close()
	return fn(ctx, ws)
}

func printSummary(snap domain.Snapshot, rev int64) error {
	if viper.GetBool("json") {
		return printJSON(map[string]any{
			"revision":       rev,
			"equipment":      len(snap.Equipment),
			"display_groups": len(snap.DisplayGroups),
			"batch_chains":   len(snap.BatchChains),
			"stages":         len(snap.Stages),
			"view":           snap.View,
		})
	}
	tw := newTable()
	tw.SetTitle(fmt.Sprintf("snapshot revision %d", rev))
	tw.AppendRow(table.Row{"equipment", len(snap.Equipment)})
	tw.AppendRow(table.Row{"display groups", len(snap.DisplayGroups)})
	tw.AppendRow(table.Row{"batch chains", len(snap.BatchChains)})
	tw.AppendRow(table.Row{"stages", len(snap.Stages)})
	tw.AppendRow(table.Row{"view", fmt.Sprintf("%s +%dd", snap.View.Start.Format("2006-01-02"), snap.View.Days)})
	tw.Render()
	return nil
}

func printMode(night bool) error {
	mode := "day"
	if night {
		mode = "night"
	}
	if viper.GetBool("json") {
		return printJSON(map[string]any{"night": night, "mode": mode})
	}
	fmt.Println(mode)
	return nil
}

func printEvent(evt domain.Event) {
	if viper.GetBool("json") {
		_ = printJSON(evt)
		return
	}
	fmt.Printf("%d %s %-16s %s/%s %s\n", evt.ID, evt.TS, evt.Type, evt.EntityKind, evt.EntityID, evt.Payload)
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	return tw
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func writeFileAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pp-*.png")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func parseWhen(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, lay := range []string{importer.LocalLayout, "2006-01-02"} {
		if t, err := time.ParseInLocation(lay, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

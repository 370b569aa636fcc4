package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/patchy/pkg/observability"
	"github.com/matzehuels/patchy/pkg/pipeline"
)

// newWriteCmd creates the write command: sweep labeled graph datasets and
// persist the transformed records.
func newWriteCmd() *cobra.Command {
	var (
		configPath string
		trainPath  string
		evalPath   string
		plain      bool
		flagOpts   pipeline.Options
		flagStore  storeConfig
	)

	cmd := &cobra.Command{
		Use:   "write",
		Short: "Materialize graph datasets into grid-shaped records",
		Long: `Write sweeps labeled graph datasets (JSON files of {graph, label}
objects), transforms every graph into a fixed-shape neighborhood table,
and appends the records to the configured store.

Splits already present in the store are reused unless --force is given.
With --distort, the train split is written --epochs times with fresh
feature noise per pass, and an undistorted train_eval copy is added.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			mergeOptionFlags(cmd, &cfg.Pipeline, flagOpts)
			cfg.Store.merge(flagStore)
			cfg.Pipeline.Logger = logger

			train, err := pipeline.ReadDatasetFile(trainPath)
			if err != nil {
				return err
			}
			var eval pipeline.Dataset
			if evalPath != "" {
				evalSet, err := pipeline.ReadDatasetFile(evalPath)
				if err != nil {
					return err
				}
				eval = evalSet
			}

			st, err := openStore(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			runner := pipeline.NewRunner(st, logger)
			track := newProgress(logger)

			var results []pipeline.SplitResult
			if plain || !isTTY() {
				results, err = runner.MaterializeAll(ctx, cfg.Pipeline, train, eval)
			} else {
				results, err = materializeWithTUI(ctx, runner, cfg.Pipeline, train, eval)
			}
			if err != nil {
				printError("%s", err)
				return err
			}

			written, skipped := 0, 0
			for _, res := range results {
				if res.Reused {
					printDetail("%s: reused existing records", res.Split)
					continue
				}
				written += res.Written
				skipped += res.Skipped
				printSuccess("%s: %d records (%d skipped)", res.Split, res.Written, res.Skipped)
			}
			if skipped > 0 {
				printWarning("%d graphs skipped for shape violations", skipped)
			}
			track.done(fmt.Sprintf("Wrote %d records", written))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "TOML config file (default patchy.toml if present)")
	flags.StringVar(&trainPath, "train", "", "train dataset file (JSON)")
	flags.StringVar(&evalPath, "eval", "", "eval dataset file (JSON)")
	flags.IntVar(&flagOpts.NumNodes, "num-nodes", 0, "selected roots per graph")
	flags.IntVar(&flagOpts.NodeStride, "stride", 0, "step between selected roots")
	flags.IntVar(&flagOpts.NeighborhoodSize, "size", 0, "receptive field size per root")
	flags.StringVar(&flagOpts.Labeling, "labeling", "", "node labeling strategy: scanline or degree")
	flags.StringVar(&flagOpts.Assembly, "assembly", "", "assembly variant: weights_to_root or distance")
	flags.IntVar(&flagOpts.Workers, "workers", 0, "parallel root assemblies per graph")
	flags.IntVar(&flagOpts.MaxNumEpochs, "epochs", 0, "train sweeps to write")
	flags.BoolVar(&flagOpts.DistortInputs, "distort", false, "perturb train features per epoch")
	flags.Int64Var(&flagOpts.Seed, "seed", 0, "distortion random seed")
	flags.BoolVar(&flagOpts.Force, "force", false, "rewrite splits that already exist")
	flags.BoolVar(&plain, "plain", false, "disable the interactive progress display")
	storeFlags(cmd, &flagStore)
	_ = cmd.MarkFlagRequired("train")

	return cmd
}

// mergeOptionFlags overlays flag-provided pipeline options onto the
// config file values, only for flags the user actually set.
func mergeOptionFlags(cmd *cobra.Command, cfg *pipeline.Options, flags pipeline.Options) {
	set := cmd.Flags().Changed
	if set("num-nodes") {
		cfg.NumNodes = flags.NumNodes
	}
	if set("stride") {
		cfg.NodeStride = flags.NodeStride
	}
	if set("size") {
		cfg.NeighborhoodSize = flags.NeighborhoodSize
	}
	if set("labeling") {
		cfg.Labeling = flags.Labeling
	}
	if set("assembly") {
		cfg.Assembly = flags.Assembly
	}
	if set("workers") {
		cfg.Workers = flags.Workers
	}
	if set("epochs") {
		cfg.MaxNumEpochs = flags.MaxNumEpochs
	}
	if set("distort") {
		cfg.DistortInputs = flags.DistortInputs
	}
	if set("seed") {
		cfg.Seed = flags.Seed
	}
	if set("force") {
		cfg.Force = flags.Force
	}
}

// isTTY reports whether stdout is a terminal.
func isTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// =============================================================================
// Interactive progress display
// =============================================================================

type splitStartMsg struct {
	split string
	total int
}

type progressMsg struct {
	split     string
	processed int
	total     int
}

type splitDoneMsg struct {
	split   string
	written int
	skipped int
}

type sweepDoneMsg struct {
	results []pipeline.SplitResult
	err     error
}

// teaHooks forwards pipeline events into the bubbletea program.
type teaHooks struct {
	observability.NoopPipelineHooks
	program *tea.Program
}

func (h *teaHooks) OnSplitStart(_ context.Context, split string, total int) {
	h.program.Send(splitStartMsg{split: split, total: total})
}

func (h *teaHooks) OnProgress(_ context.Context, split string, processed, total int) {
	h.program.Send(progressMsg{split: split, processed: processed, total: total})
}

func (h *teaHooks) OnSplitComplete(_ context.Context, split string, written, skipped int, _ time.Duration, _ error) {
	h.program.Send(splitDoneMsg{split: split, written: written, skipped: skipped})
}

// writeModel renders one progress bar per split as the sweep advances.
type writeModel struct {
	order     []string
	bars      map[string]progressMsg
	completed map[string]splitDoneMsg
	results   []pipeline.SplitResult
	err       error
}

func newWriteModel() writeModel {
	return writeModel{
		bars:      make(map[string]progressMsg),
		completed: make(map[string]splitDoneMsg),
	}
}

func (m writeModel) Init() tea.Cmd {
	return nil
}

func (m writeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case splitStartMsg:
		m.order = append(m.order, msg.split)
		m.bars[msg.split] = progressMsg{split: msg.split, total: msg.total}
	case progressMsg:
		m.bars[msg.split] = msg
	case splitDoneMsg:
		m.completed[msg.split] = msg
	case sweepDoneMsg:
		m.results = msg.results
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

const barWidth = 30

func (m writeModel) View() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Materializing dataset"))
	b.WriteString("\n\n")

	for _, split := range m.order {
		bar := m.bars[split]
		if done, ok := m.completed[split]; ok {
			b.WriteString(fmt.Sprintf("  %s %-10s %d records",
				styleIconSuccess.Render(iconSuccess), split, done.written))
			if done.skipped > 0 {
				b.WriteString(StyleWarning.Render(fmt.Sprintf("  %d skipped", done.skipped)))
			}
			b.WriteString("\n")
			continue
		}

		filled := 0
		if bar.total > 0 {
			filled = bar.processed * barWidth / bar.total
		}
		b.WriteString(fmt.Sprintf("  %s %-10s [%s%s] %d/%d\n",
			styleIconInfo.Render(iconInfo), split,
			styleProgressBar.Render(strings.Repeat("█", filled)),
			StyleDim.Render(strings.Repeat("░", barWidth-filled)),
			bar.processed, bar.total))
	}
	return b.String()
}

// materializeWithTUI runs the sweep behind a live progress display.
// Log output is silenced so it cannot tear the rendered bars.
func materializeWithTUI(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options, train, eval pipeline.Dataset) ([]pipeline.SplitResult, error) {
	opts.Logger = newLogger(io.Discard, log.ErrorLevel)
	program := tea.NewProgram(newWriteModel(), tea.WithContext(ctx))

	observability.SetPipelineHooks(&teaHooks{program: program})
	defer observability.Reset()

	go func() {
		results, err := runner.MaterializeAll(ctx, opts, train, eval)
		program.Send(sweepDoneMsg{results: results, err: err})
	}()

	final, err := program.Run()
	if err != nil {
		return nil, err
	}
	m := final.(writeModel)
	return m.results, m.err
}

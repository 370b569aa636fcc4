package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/patchy/pkg/errors"
	"github.com/matzehuels/patchy/pkg/pipeline"
	"github.com/matzehuels/patchy/pkg/store"
)

// newInspectCmd creates the inspect command: show what a store holds.
func newInspectCmd() *cobra.Command {
	var (
		configPath string
		flagStore  storeConfig
		split      string
		record     int
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the descriptor and split counts of a store",
		Long: `Inspect prints the parameters a store was materialized with and the
record count of every split. With --record, one record of --split is
read back and summarized, including its gathered tensor shape.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			cfg.Store.merge(flagStore)

			st, err := openStore(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			desc, err := st.LoadDescriptor(ctx)
			if err != nil {
				if errors.Is(err, errors.ErrCodeNotFound) {
					printWarning("store has no descriptor; nothing has been written yet")
					return nil
				}
				return err
			}

			fmt.Println(StyleTitle.Render("Dataset"))
			printKeyValue("run id", desc.RunID)
			printKeyValue("created", desc.CreatedAt.Format("2006-01-02 15:04:05 MST"))
			printKeyValue("labeling", desc.NodeLabeling)
			printKeyValue("assembly", desc.NeighborhoodAssembly)
			printKeyValue("num nodes", strconv.Itoa(desc.NumNodes))
			printKeyValue("node stride", strconv.Itoa(desc.NodeStride))
			printKeyValue("neighborhood size", strconv.Itoa(desc.NeighborhoodSize))
			printKeyValue("channels", strconv.Itoa(desc.NumChannels))
			printKeyValue("epochs", strconv.Itoa(desc.MaxNumEpochs))
			printKeyValue("distorted", strconv.FormatBool(desc.DistortInputs))
			fmt.Println()

			fmt.Println(StyleTitle.Render("Splits"))
			for _, name := range []string{store.SplitTrain, store.SplitEval, store.SplitTrainEval} {
				info, err := st.LoadInfo(ctx, name)
				switch {
				case err == nil:
					printKeyValue(name, fmt.Sprintf("%d records", info.Count))
				case errors.Is(err, errors.ErrCodeNotFound):
					printKeyValue(name, StyleDim.Render("not written"))
				default:
					return err
				}
			}

			if !cmd.Flags().Changed("record") {
				return nil
			}

			loader, err := pipeline.NewLoader(ctx, st)
			if err != nil {
				return err
			}
			rec, err := loader.Record(ctx, split, record)
			if err != nil {
				return err
			}
			tensor, label, err := loader.Tensor(ctx, split, record)
			if err != nil {
				return err
			}

			fmt.Println()
			fmt.Println(StyleTitle.Render(fmt.Sprintf("Record %s/%d", split, record)))
			printKeyValue("label", strconv.Itoa(label))
			printKeyValue("graph nodes", strconv.Itoa(len(rec.Features)))
			printKeyValue("tensor shape", tensorShape(tensor))
			printKeyValue("table row 0", fmt.Sprint(rec.Table[0]))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "TOML config file (default patchy.toml if present)")
	flags.StringVar(&split, "split", store.SplitTrain, "split to read a record from")
	flags.IntVar(&record, "record", 0, "record index to summarize")
	storeFlags(cmd, &flagStore)

	return cmd
}

func tensorShape(t [][][]float64) string {
	dims := []int{len(t), 0, 0}
	if len(t) > 0 {
		dims[1] = len(t[0])
		if len(t[0]) > 0 {
			dims[2] = len(t[0][0])
		}
	}
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = strconv.Itoa(d)
	}
	return "[" + strings.Join(parts, "][") + "]"
}

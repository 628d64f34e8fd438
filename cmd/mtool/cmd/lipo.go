package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/machlab/go-macho"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(lipoCmd)

	lipoCmd.Flags().BoolP("details", "d", false, "Parse each slice's Mach-O header as well")
	viper.BindPFlag("lipo.details", lipoCmd.Flags().Lookup("details"))

	lipoCmd.MarkZshCompPositionalArgumentFile(1)
}

// lipoCmd represents the lipo command
var lipoCmd = &cobra.Command{
	Use:           "lipo <fat>",
	Short:         "List the slices of a universal binary",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		color.NoColor = !viper.GetBool("color")
		details := viper.GetBool("lipo.details")

		fatPath := filepath.Clean(args[0])
		ff, err := macho.OpenFat(fatPath)
		if err != nil {
			return errors.Wrap(err, "failed to open universal binary")
		}
		defer ff.Close()

		fmt.Println(color.New(color.Bold).Sprintf("%s: %d architecture(s)", filepath.Base(fatPath), ff.NFatArch))
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "IDX\tCPU\tSUBTYPE\tOFFSET\tSIZE\tALIGN")
		for i, a := range ff.Arches {
			fmt.Fprintf(w, "%d\t%s\t%s\t%#x\t%s\t2^%d\n",
				i, a.CPU, a.SubCPU.String(a.CPU), a.Offset, humanize.Bytes(uint64(a.Size)), a.Align)
		}
		w.Flush()

		if details {
			for i := range ff.Arches {
				m, err := ff.Slice(i)
				if err != nil {
					return errors.Wrapf(err, "failed to parse slice %d", i)
				}
				fmt.Println()
				fmt.Println(color.New(color.Bold).Sprintf("SLICE %d", i))
				fmt.Println(m.FileHeader)
			}
		}

		return nil
	},
}

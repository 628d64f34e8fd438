package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/fatih/color"
	"github.com/machlab/go-macho"
	"github.com/machlab/go-macho/types"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().StringP("arch", "a", "", "Which architecture to use for fat/universal MachO")
	infoCmd.Flags().BoolP("loads", "l", false, "Print the load commands")
	infoCmd.Flags().BoolP("json", "j", false, "Print the header and load commands as JSON")
	viper.BindPFlag("info.arch", infoCmd.Flags().Lookup("arch"))
	viper.BindPFlag("info.loads", infoCmd.Flags().Lookup("loads"))
	viper.BindPFlag("info.json", infoCmd.Flags().Lookup("json"))

	infoCmd.MarkZshCompPositionalArgumentFile(1)
}

type loadJSON struct {
	Index   int    `json:"index"`
	Command string `json:"command"`
	Offset  int64  `json:"offset"`
	Detail  string `json:"detail"`
}

type infoJSON struct {
	Header    types.FileHeader `json:"header"`
	Loads     []loadJSON       `json:"loads"`
	Anomalies []string         `json:"anomalies,omitempty"`
}

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:           "info <macho>",
	Aliases:       []string{"i"},
	Short:         "Explore a MachO file",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		color.NoColor = !viper.GetBool("color")

		selectedArch := viper.GetString("info.arch")
		showLoads := viper.GetBool("info.loads")
		asJSON := viper.GetBool("info.json")

		machoPath := filepath.Clean(args[0])
		if _, err := os.Stat(machoPath); os.IsNotExist(err) {
			return fmt.Errorf("file %s does not exist", machoPath)
		}

		m, closer, err := openMachO(machoPath, selectedArch)
		if err != nil {
			return err
		}
		defer closer()

		for _, a := range m.Anomalies {
			log.Warn(a.Error())
		}

		if asJSON {
			out := infoJSON{Header: m.FileHeader}
			for i, l := range m.Loads {
				out.Loads = append(out.Loads, loadJSON{
					Index:   i,
					Command: l.Command().String(),
					Offset:  l.Offset(),
					Detail:  l.String(),
				})
			}
			for _, a := range m.Anomalies {
				out.Anomalies = append(out.Anomalies, a.Error())
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		title := color.New(color.Bold).SprintFunc()
		fmt.Println(title("HEADER"))
		fmt.Println(m.FileHeader)
		if showLoads {
			fmt.Println(title("LOAD COMMANDS"))
			fmt.Print(m.LoadsString())
		}

		return nil
	},
}

// openMachO opens path as a thin Mach-O, or as the chosen slice of a
// universal binary. The returned closer owns the underlying file.
func openMachO(path, arch string) (*macho.File, func() error, error) {
	ff, err := macho.OpenFat(path)
	if err == nil {
		idx := -1
		for i, a := range ff.Arches {
			if arch == "" || strings.EqualFold(a.CPU.String(), arch) {
				idx = i
				break
			}
		}
		if idx < 0 {
			ff.Close()
			return nil, nil, fmt.Errorf("universal binary does not contain arch %q; has %s", arch, ff)
		}
		log.Debugf("using slice %d: %s", idx, ff.Arches[idx])
		m, err := ff.Slice(idx)
		if err != nil {
			ff.Close()
			return nil, nil, errors.Wrapf(err, "failed to parse slice %d", idx)
		}
		return m, ff.Close, nil
	}
	if !errors.Is(err, macho.ErrInvalidMagic) {
		return nil, nil, errors.Wrap(err, "failed to open universal binary")
	}

	m, err := macho.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to parse MachO")
	}
	return m, m.Close, nil
}

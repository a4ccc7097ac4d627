package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric"
	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/pinout"
	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/report"
)

var (
	pinsFile string
	outFile  string
	workers  int
)

var generateCmd = &cobra.Command{
	Use:   "generate <report.frpt>",
	Short: "Build a binary device from a fabric report",
	Long: `Run the device generator over a fabric report and write the compact
binary device form.

The generator streams the report twice (template discovery, then adjacency
capture), applies the connectivity correction, and finalizes node tables.
An optional pinout document maps package pins to sites and BELs.

Examples:
  otf generate part.frpt
  otf generate part.frpt -o build/part.otfd
  otf generate -v part.frpt -p part.pins`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&pinsFile, "pins", "p", "",
		"pinout document mapping package pins to sites and BELs")
	generateCmd.Flags().StringVarP(&outFile, "output", "o", "",
		"output device file (default: report name with .otfd extension)")
	generateCmd.Flags().IntVar(&workers, "workers", 0,
		"worker pool size for per-tile phases (default 8)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	reportPath := args[0]

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	opts := []fabric.Option{fabric.WithLogger(log), fabric.WithWorkers(workers)}
	if pinsFile != "" {
		parser, err := pinout.NewParser()
		if err != nil {
			return err
		}
		doc, err := parser.ParseFile(pinsFile)
		if err != nil {
			return fmt.Errorf("failed to parse pinout %s: %w", pinsFile, err)
		}
		opts = append(opts, fabric.WithDeviceInfo(doc))
	}

	dev, err := fabric.NewGenerator(opts...).Generate(report.File{Path: reportPath})
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	out := outFile
	if out == "" {
		out = strings.TrimSuffix(reportPath, ".frpt") + ".otfd"
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := fabric.WriteDevice(f, dev); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Printf("Generated %s: part %s, %dx%d tiles, %d wire types\n",
		out, dev.Part(), dev.Rows(), dev.Cols(), dev.WireCount())
	return nil
}

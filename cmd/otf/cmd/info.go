package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric"
)

var tileCoord string

var infoCmd = &cobra.Command{
	Use:   "info <device.otfd>",
	Short: "Show information about a generated device file",
	Long: `Load a binary device file and print its summary: part name, grid
dimensions, wire template count and package pins.

Examples:
  otf info part.otfd
  otf info part.otfd --tile 0,1      # Drill into one tile`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().StringVar(&tileCoord, "tile", "",
		"tile to drill into, as row,col")
}

func runInfo(cmd *cobra.Command, args []string) error {
	dev, err := loadDevice(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Part:           %s\n", dev.Part())
	fmt.Printf("Grid:           %d rows x %d cols\n", dev.Rows(), dev.Cols())
	fmt.Printf("Wire templates: %d\n", dev.Templates().Len())
	fmt.Printf("Wire count:     %d\n", dev.WireCount())
	fmt.Printf("Package pins:   %d\n", len(dev.PackagePins()))

	if tileCoord == "" {
		return nil
	}
	row, col, err := parseTileCoord(tileCoord)
	if err != nil {
		return err
	}
	t := dev.Tile(row, col)
	if t == nil {
		return fmt.Errorf("tile %d,%d is outside the %dx%d grid",
			row, col, dev.Rows(), dev.Cols())
	}

	fmt.Printf("\nTile %s (%s) at %d,%d\n", t.Name(), t.TypeName(), t.Row(), t.Col())
	fmt.Printf("  Wires:       %d\n", len(t.Wires()))
	fmt.Printf("  Connections: %d forward, %d reverse\n",
		countEdges(t, false), countEdges(t, true))
	for _, s := range t.Sites() {
		fmt.Printf("  Site %s (%s): %d pins, %d BELs\n",
			s.Name(), s.TypeName(), len(s.Pins()), len(s.Bels()))
	}
	return nil
}

func loadDevice(path string) (*fabric.Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dev, err := fabric.ReadDevice(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load device %s: %w", path, err)
	}
	return dev, nil
}

func parseTileCoord(s string) (row, col int, err error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid --tile %q: want row,col", s)
	}
	row, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --tile row %q", parts[0])
	}
	col, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --tile col %q", parts[1])
	}
	return row, col, nil
}

func countEdges(t *fabric.Tile, reverse bool) int {
	m := t.ForwardMap()
	if reverse {
		m = t.ReverseMap()
	}
	if m == nil {
		return 0
	}
	total := 0
	for _, s := range m.Values() {
		total += s.Len()
	}
	return total
}

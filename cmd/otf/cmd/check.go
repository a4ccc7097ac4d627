package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric"
	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/wire"
)

var checkCmd = &cobra.Command{
	Use:   "check <device.otfd>",
	Short: "Verify the structural invariants of a device file",
	Long: `Load a binary device file and re-verify its structural invariants:
every forward connection must be mirrored in the sink tile's reverse map
and every reverse connection in the source tile's forward map, with
negated offsets and matching configurability.

Examples:
  otf check part.otfd`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	dev, err := loadDevice(args[0])
	if err != nil {
		return err
	}

	var edges, violations int
	dev.Tiles(func(t *fabric.Tile) bool {
		edges += checkMirror(dev, t, t.ForwardMap(), false, &violations)
		edges += checkMirror(dev, t, t.ReverseMap(), true, &violations)
		return true
	})

	fmt.Printf("Checked %d directed edges across %d tiles\n",
		edges, dev.Rows()*dev.Cols())
	if violations > 0 {
		return fmt.Errorf("%d mirror violations found", violations)
	}
	fmt.Println("All connections mirrored")
	return nil
}

// checkMirror walks one adjacency map of t and confirms each edge has its
// mirror in the far tile's opposite map. Edges whose far tile falls outside
// the grid count as violations too: capture never records such edges.
func checkMirror(dev *fabric.Device, t *fabric.Tile, m *wire.Map, reverse bool, violations *int) int {
	if m == nil {
		return 0
	}
	edges := 0
	m.Range(func(anchor *wire.Template, s *wire.Set) bool {
		for i := 0; i < s.Len(); i++ {
			c := s.At(i)
			edges++
			far := dev.Tile(t.Row()+c.RowOffset(), t.Col()+c.ColOffset())
			if far == nil {
				*violations++
				reportViolation(t, anchor, c, reverse, "far tile outside grid")
				continue
			}
			fm := far.ReverseMap()
			if reverse {
				fm = far.ForwardMap()
			}
			mirror := wire.NewConnection(anchor, -c.RowOffset(), -c.ColOffset(), c.IsConfigurable())
			var ok bool
			if fm != nil {
				if fs := fm.Get(c.Sink()); fs != nil {
					if got, found := fs.Get(mirror); found {
						ok = got.IsConfigurable() == c.IsConfigurable()
					}
				}
			}
			if !ok {
				*violations++
				reportViolation(t, anchor, c, reverse, "no mirror in far tile")
			}
		}
		return true
	})
	return edges
}

func reportViolation(t *fabric.Tile, anchor *wire.Template, c wire.Connection, reverse bool, why string) {
	dir := "forward"
	if reverse {
		dir = "reverse"
	}
	fmt.Printf("  %s %s/%s %v: %s\n", dir, t.Name(), anchor.Name(), c, why)
}

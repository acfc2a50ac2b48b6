package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bridgeopt/bridgeopt/internal/bridge"
	"github.com/bridgeopt/bridgeopt/internal/expr"
	"github.com/bridgeopt/bridgeopt/internal/model"
)

var supportCmd = &cobra.Command{
	Use:   "support [function set]",
	Short: "Show which constraint types the backend accepts, directly or via bridges",
	Long: `Without arguments, list every reachable constraint, variable, and objective
type with its rewrite cost and chain. With a function and a set type (e.g.
"support Affine Interval"), report on that pair alone.`,
	Args: cobra.RangeArgs(0, 2),
	RunE: runSupport,
}

func init() {
	rootCmd.AddCommand(supportCmd)
}

func runSupport(cmd *cobra.Command, args []string) error {
	opt, err := bridge.NewDefault(model.New())
	if err != nil {
		return fmt.Errorf("failed to set up bridging layer: %w", err)
	}
	g := opt.Graph()

	if len(args) == 2 {
		ft, err := expr.ParseFunctionType(args[0])
		if err != nil {
			return err
		}
		st, err := expr.ParseSetType(args[1])
		if err != nil {
			return err
		}
		return reportNode(g, expr.ConstraintNode(ft, st))
	}
	if len(args) == 1 {
		return fmt.Errorf("expected a function type and a set type, got only %q", args[0])
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tCOST\tVIA")
	fmt.Fprintln(w, "----\t----\t---")
	supported := 0
	for _, n := range expr.AllNodes() {
		cost, ok := g.Cost(n)
		if !ok {
			continue
		}
		supported++
		via := "native"
		if !g.IsNative(n) {
			chain, err := g.Chain(n)
			if err != nil {
				return err
			}
			via = strings.Join(chain, " -> ")
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", n, cost, via)
	}
	w.Flush()
	fmt.Printf("\nSupported types: %d\n", supported)
	return nil
}

func reportNode(g *bridge.Graph, n expr.Node) error {
	cost, ok := g.Cost(n)
	if !ok {
		fmt.Printf("%s: unsupported (no bridge chain reaches the backend)\n", n)
		return nil
	}
	if g.IsNative(n) {
		fmt.Printf("%s: native\n", n)
		return nil
	}
	chain, err := g.Chain(n)
	if err != nil {
		return err
	}
	fmt.Printf("%s: bridged, cost %d via %s\n", n, cost, strings.Join(chain, " -> "))
	return nil
}

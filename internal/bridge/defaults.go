package bridge

// Defaults registers the full bridge catalog in a fixed order, so selection
// tie-breaks are the same in every session.
func Defaults(g *Graph) error {
	if err := g.AddConstraintBridge(SplitInterval{}); err != nil {
		return err
	}
	if err := g.AddVariableBridge(FlipSign{}); err != nil {
		return err
	}
	if err := g.AddVariableBridge(FixToZero{}); err != nil {
		return err
	}
	return g.AddObjectiveBridge(Functionize{})
}

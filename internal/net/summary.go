package net

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// Summary writes one row per layer with its output shape and parameter count.
func (n *Network) Summary(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Layer\tOutput Shape\tParam #")

	total := 0
	for i, l := range n.layers {
		count := 0
		for _, p := range l.Params() {
			count += p.Tensor.Len()
		}
		total += count
		fmt.Fprintf(tw, "%s_%d\t%s\t%d\n", l.Kind(), i, l.OutShape(), count)
	}
	fmt.Fprintf(tw, "Total params: %d\t\t\n", total)
	return tw.Flush()
}

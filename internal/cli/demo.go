package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/spectate"
	"github.com/aretw0/spectate/internal/presentation/graph"
	"github.com/aretw0/spectate/internal/presentation/tui"
	"github.com/aretw0/spectate/pkg/adapters/memory"
	"github.com/aretw0/spectate/pkg/domain"
	"github.com/aretw0/spectate/pkg/observability"
	"github.com/muesli/termenv"
)

// DemoOptions configures RunDemo.
type DemoOptions struct {
	// Markdown renders a report of every delivered batch after the run.
	Markdown bool
	// Plain disables colours.
	Plain bool
	// Only runs the named scenarios. Empty runs all of them.
	Only []string
}

// Scenario is one scripted demonstration. Its inventory is linked under the
// warehouse, so the warehouse views see what it emits.
type Scenario struct {
	Name        string
	Description string
	Run         func(inv *Inventory) error
}

// Scenarios returns the scripted demonstrations, in run order.
func Scenarios() []Scenario {
	return []Scenario{
		{
			Name:        "immediate",
			Description: "Outside any transaction each change is delivered on its own.",
			Run: func(inv *Inventory) error {
				if err := inv.Set("apple", 5); err != nil {
					return err
				}
				return inv.Set("pear", 2)
			},
		},
		{
			Name:        "nested",
			Description: "Restock calls Set per SKU; the outermost call delivers one batch.",
			Run: func(inv *Inventory) error {
				return inv.Restock(map[string]int{"apple": 1, "fig": 4, "kiwi": 7})
			},
		},
		{
			Name:        "hold",
			Description: "Hold with a diff reducer collapses repeated changes of one SKU.",
			Run: func(inv *Inventory) error {
				return spectate.Hold(inv, func() error {
					for qty := 1; qty <= 4; qty++ {
						if err := inv.Set("apple", qty); err != nil {
							return err
						}
					}
					return inv.Set("plum", 9)
				}, spectate.WithReducer(StockDiff))
			},
		},
		{
			Name:        "rollback",
			Description: "A failing rollback undoes its changes and delivers nothing.",
			Run: func(inv *Inventory) error {
				err := spectate.Rollback(inv, func() error {
					if err := inv.Set("apple", 100); err != nil {
						return err
					}
					if err := inv.Set("grape", 3); err != nil {
						return err
					}
					return inv.Remove("durian")
				}, spectate.WithUndo(RestoreStock))
				if errors.Is(err, ErrUnknownSKU) {
					return nil
				}
				if err == nil {
					return errors.New("rollback body unexpectedly succeeded")
				}
				return err
			},
		},
		{
			Name:        "mute",
			Description: "Changes made under Mute take effect silently.",
			Run: func(inv *Inventory) error {
				return spectate.Mute(inv, func() error { return inv.Set("kiwi", 0) })
			},
		},
	}
}

// RunDemo runs the scenarios, printing every batch the warehouse sees.
func RunDemo(ctx context.Context, w io.Writer, opts DemoOptions) error {
	var printerOpts []tui.PrinterOption
	if opts.Plain {
		printerOpts = append(printerOpts, tui.WithProfile(termenv.Ascii))
	}
	printer := tui.NewPrinter(w, append(printerOpts, tui.WithLabel(Label))...)
	recorder := memory.NewRecorder(0, memory.WithModelLabel(Label))

	warehouse := NewInventory("warehouse")
	spectate.View(warehouse, observability.Fanout(printer.View, recorder.View), spectate.ViewName("demo"))

	linked := []spectate.Observable{warehouse}
	selected := make(map[string]bool)
	for _, name := range opts.Only {
		selected[name] = true
	}

	for _, sc := range Scenarios() {
		if len(selected) > 0 && !selected[sc.Name] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprintf(w, "\n== %s: %s\n", sc.Name, sc.Description)
		inv := NewInventory(sc.Name)
		spectate.Link(warehouse, inv)
		linked = append(linked, inv)
		if err := sc.Run(inv); err != nil {
			return fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		fmt.Fprintf(w, "   stock: %s\n", stockLine(inv))
	}

	if !opts.Markdown {
		return nil
	}
	records, err := recorder.Recent(ctx, 0)
	if err != nil {
		return err
	}
	render, err := tui.NewRenderer(tui.Width(w, 80))
	if err != nil {
		return err
	}
	md := tui.Report("Delivered batches", records) + LinkGraph(linked, records, Label(warehouse))
	out, err := render(md)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	_, err = fmt.Fprint(w, out)
	return err
}

// LinkGraph renders the link graph of objs as a markdown section holding a
// Mermaid flowchart, with each node annotated by the events it emitted.
func LinkGraph(objs []spectate.Observable, records []domain.Record, root string) string {
	counts := make(map[string]int)
	var emitted []string
	for _, rec := range records {
		if counts[rec.Model] == 0 {
			emitted = append(emitted, rec.Model)
		}
		counts[rec.Model] += rec.Batch.Len()
	}

	nodes := make([]graph.Node, 0, len(objs))
	for _, o := range objs {
		id := Label(o)
		node := graph.Node{ID: id, Events: counts[id]}
		for _, p := range spectate.Attach(o).Parents() {
			node.Parents = append(node.Parents, Label(p))
		}
		nodes = append(nodes, node)
	}

	chart := graph.GenerateMermaid(nodes, &graph.Overlay{Emitted: emitted, Root: root})
	return "\n## Link graph\n\n```mermaid\n" + chart + "```\n"
}

func stockLine(inv *Inventory) string {
	skus := inv.SKUs()
	if len(skus) == 0 {
		return "(empty)"
	}
	line := ""
	for i, sku := range skus {
		if i > 0 {
			line += " "
		}
		qty, _ := inv.Qty(sku)
		line += fmt.Sprintf("%s=%d", sku, qty)
	}
	return line
}

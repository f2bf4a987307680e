package cli

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/aretw0/spectate"
	"github.com/aretw0/spectate/pkg/domain"
	"github.com/aretw0/spectate/pkg/observability"
)

// ErrUnknownSKU is returned when removing a SKU the inventory does not hold.
var ErrUnknownSKU = errors.New("unknown sku")

// Inventory is the observable model driven by the demo and serve commands.
// Every stock change emits {sku, old, new}; old or new is nil when the SKU
// was absent or removed.
type Inventory struct {
	spectate.Model
	Name  string
	stock map[string]int
}

// NewInventory creates an empty inventory.
func NewInventory(name string) *Inventory {
	return &Inventory{Name: name, stock: make(map[string]int)}
}

type change struct {
	sku string
	old any
}

var inventoryType = spectate.MustType("Inventory",
	spectate.NewControl[*Inventory]("Set, Remove").
		Named("stock").
		Before(func(inv *Inventory, call domain.Call, _ spectate.NotifyFunc) (any, error) {
			params, err := call.Parameters()
			if err != nil {
				return nil, err
			}
			sku, _ := params["sku"].(string)
			if old, ok := inv.stock[sku]; ok {
				return change{sku: sku, old: old}, nil
			}
			return change{sku: sku}, nil
		}).
		After(func(inv *Inventory, a domain.Answer, notify spectate.NotifyFunc) error {
			c, ok := a.Before.(change)
			if !ok {
				return a.Err
			}
			var current any
			if qty, ok := inv.stock[c.sku]; ok {
				current = qty
			}
			notify("sku", c.sku, "old", c.old, "new", current)
			return nil
		}),
	spectate.NewControl[*Inventory]("Restock").
		Before(func(*Inventory, domain.Call, spectate.NotifyFunc) (any, error) {
			return nil, nil
		}),
)

var (
	inventorySet     = inventoryType.MustMethod("Set", "sku", "qty")
	inventoryRemove  = inventoryType.MustMethod("Remove", "sku")
	inventoryRestock = inventoryType.MustMethod("Restock", "items")
)

// Set stores qty for sku.
func (inv *Inventory) Set(sku string, qty int) error {
	_, err := inventorySet.Call(inv, func() (any, error) {
		if qty < 0 {
			return nil, fmt.Errorf("%s: negative quantity %d", sku, qty)
		}
		inv.stock[sku] = qty
		return nil, nil
	}, sku, qty)
	return err
}

// Remove deletes sku.
func (inv *Inventory) Remove(sku string) error {
	_, err := inventoryRemove.Call(inv, func() (any, error) {
		if _, ok := inv.stock[sku]; !ok {
			return nil, fmt.Errorf("%s: %w", sku, ErrUnknownSKU)
		}
		delete(inv.stock, sku)
		return nil, nil
	}, sku)
	return err
}

// Restock sets every SKU of items, in SKU order, delivering one batch.
func (inv *Inventory) Restock(items map[string]int) error {
	_, err := inventoryRestock.Call(inv, func() (any, error) {
		for _, sku := range slices.Sorted(maps.Keys(items)) {
			if err := inv.Set(sku, items[sku]); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}, items)
	return err
}

// Qty returns the stock of sku.
func (inv *Inventory) Qty(sku string) (int, bool) {
	qty, ok := inv.stock[sku]
	return qty, ok
}

// SKUs returns the SKUs held, sorted.
func (inv *Inventory) SKUs() []string {
	return slices.Sorted(maps.Keys(inv.stock))
}

// RestoreStock is an undo function reverting the changes described by
// events, newest first.
func RestoreStock(origin spectate.Observable, events []domain.Event, _ error) error {
	inv := origin.(*Inventory)
	for i := len(events) - 1; i >= 0; i-- {
		sku, _ := events[i].Value("sku").(string)
		old, had := events[i].Value("old").(int)
		var err error
		if had {
			err = inv.Set(sku, old)
		} else if _, ok := inv.stock[sku]; ok {
			err = inv.Remove(sku)
		}
		if err != nil {
			return fmt.Errorf("restore %s: %w", sku, err)
		}
	}
	return nil
}

// StockDiff merges repeated changes of one SKU.
var StockDiff = spectate.DiffReducer(domain.DiffKeys{Identity: []string{"sku"}})

// Label names inventories by their Name in views and metrics.
func Label(o spectate.Observable) string {
	if inv, ok := o.(*Inventory); ok {
		return "inventory/" + inv.Name
	}
	return observability.TypeLabel(o)
}

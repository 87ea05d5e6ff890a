// Package schema validates table contents against CUE record definitions.
//
// Validation is opt-in (strict mode). Records may carry fields the definitions do
// not mention; only the listed fields are checked.
package schema

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/vaniya/internal/models"
)

//go:embed records.cue
var recordsCUE string

// definitions maps table names to the CUE definition of one record.
var definitions = map[string]string{
	models.TableProducts:  "#Product",
	models.TableOrders:    "#Order",
	models.TableCustomers: "#Customer",
	models.TableMerchants: "#Merchant",
	models.TableCoupons:   "#Coupon",
	models.TablePayouts:   "#Payout",
}

// Validator checks serialized tables. Safe for concurrent use.
type Validator struct {
	mu   sync.Mutex
	ctx  *cue.Context
	defs map[string]cue.Value
}

// New compiles the embedded definitions.
func New() (*Validator, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(recordsCUE, cue.Filename("records.cue"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compile record schema: %w", err)
	}

	defs := make(map[string]cue.Value, len(definitions))
	for table, name := range definitions {
		def := root.LookupPath(cue.ParsePath(name))
		if err := def.Err(); err != nil {
			return nil, fmt.Errorf("lookup %s: %w", name, err)
		}
		defs[table] = def
	}
	return &Validator{ctx: ctx, defs: defs}, nil
}

// Tables returns the tables with a definition.
func (v *Validator) Tables() []string {
	out := make([]string, 0, len(v.defs))
	for _, t := range models.AllTables {
		if _, ok := v.defs[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Validate checks every record of a serialized table.
// Tables without a definition pass.
func (v *Validator) Validate(table string, data []byte) error {
	def, ok := v.defs[table]
	if !ok {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	list := v.ctx.CompileBytes(data, cue.Filename(table+".json"))
	if err := list.Err(); err != nil {
		return fmt.Errorf("%s: parse: %w", table, err)
	}

	iter, err := list.List()
	if err != nil {
		return fmt.Errorf("%s: expected a list: %w", table, err)
	}
	for i := 0; iter.Next(); i++ {
		rec := def.Unify(iter.Value())
		if err := rec.Validate(cue.Concrete(true)); err != nil {
			return fmt.Errorf("%s[%d]: %s", table, i, cueerrors.Details(err, nil))
		}
	}
	return nil
}

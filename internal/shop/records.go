package shop

import (
	"context"

	"github.com/roach88/vaniya/internal/tables"
)

// recordOps reaches records of any typed table by table name.
type recordOps struct {
	get    func(ctx context.Context, id string) (any, error)
	delete func(ctx context.Context, id string) error
}

func opsFor[T any, P interface {
	*T
	tables.Identified
}](t *tables.Table[T, P]) recordOps {
	return recordOps{
		get: func(ctx context.Context, id string) (any, error) {
			rec, err := t.Get(ctx, id)
			if err != nil || rec == nil {
				return nil, err
			}
			return rec, nil
		},
		delete: t.Delete,
	}
}

// save replaces the record with rec's id, or inserts rec when no record has it.
func save[T any, P interface {
	*T
	tables.Identified
}](ctx context.Context, t *tables.Table[T, P], rec T) (T, error) {
	if id := P(&rec).GetID(); id != "" {
		updated, err := t.Update(ctx, id, tables.PatchFunc[T](func(cur *T) { *cur = rec }))
		if err != nil {
			var zero T
			return zero, err
		}
		if updated != nil {
			return *updated, nil
		}
	}
	return t.Insert(ctx, rec)
}

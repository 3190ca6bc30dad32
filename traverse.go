package holdings

import (
	"context"
	"fmt"
	"iter"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// MaxPages bounds every traversal, whatever the site continuation signal says.
const MaxPages = 1000

// PageFunc reads the rows of a listing page, starting at 1.
type PageFunc func(ctx context.Context, page int) (Batch, error)

// NextFunc reports whether the page just read has a successor.
type NextFunc func(ctx context.Context) (bool, error)

// Traversal walks a paginated listing.
type Traversal struct {
	MaxPages int           // defaults to MaxPages
	Limiter  *rate.Limiter // paces page fetches, nil means unlimited
	Log      zerolog.Logger

	// Skip is called for each row that could not be read.
	Skip func(Row, error)
}

// Traverse is a Traversal with default settings.
func Traverse(ctx context.Context, fetch PageFunc, next NextFunc) iter.Seq2[Row, error] {
	return Traversal{Log: zerolog.Nop()}.Rows(ctx, fetch, next)
}

// Rows returns the rows of every page in page order. The sequence can be
// ranged over only once; later attempts yield ErrTraversalConsumed.
//
// A failed row is skipped. A failed fetch, a failed continuation check, or
// more than MaxPages pages yield a final error and end the sequence.
func (t Traversal) Rows(ctx context.Context, fetch PageFunc, next NextFunc) iter.Seq2[Row, error] {
	limit := t.MaxPages
	if limit <= 0 {
		limit = MaxPages
	}
	consumed := false
	return func(yield func(Row, error) bool) {
		if consumed {
			yield(Row{}, ErrTraversalConsumed)
			return
		}
		consumed = true

		for page := 1; ; page++ {
			if page > limit {
				yield(Row{}, fmt.Errorf("%w: more than %d pages", ErrPaginationOverrun, limit))
				return
			}
			if t.Limiter != nil {
				if err := t.Limiter.Wait(ctx); err != nil {
					yield(Row{}, fmt.Errorf("waiting for page %d: %w", page, err))
					return
				}
			}
			batch, err := fetch(ctx, page)
			if err != nil {
				yield(Row{}, fmt.Errorf("fetching page %d: %w", page, err))
				return
			}
			t.Log.Debug().Int("page", page).Int("rows", len(batch)).Msg("page fetched")
			for _, row := range batch {
				row.Page = page
				if row.Err != nil {
					t.skip(row, row.Err)
					continue
				}
				if !yield(row, nil) {
					return
				}
			}
			more, err := next(ctx)
			if err != nil {
				yield(Row{}, fmt.Errorf("checking next page after %d: %w", page, err))
				return
			}
			if !more {
				return
			}
		}
	}
}

func (t Traversal) skip(row Row, err error) {
	t.Log.Warn().Int("page", row.Page).Str("label", row.Label).Err(err).Msg("row skipped")
	if t.Skip != nil {
		t.Skip(row, err)
	}
}

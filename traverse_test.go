package holdings

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// listing is a fake paginated listing.
type listing struct {
	pages   []Batch
	next    []bool // continuation signal after each page
	fetched []int
}

func (l *listing) fetch(_ context.Context, page int) (Batch, error) {
	l.fetched = append(l.fetched, page)
	if page > len(l.pages) {
		return nil, nil
	}
	return l.pages[page-1], nil
}

func (l *listing) hasNext(_ context.Context) (bool, error) {
	i := len(l.fetched) - 1
	if i >= len(l.next) {
		return true, nil // flaky site: always claims more
	}
	return l.next[i], nil
}

func labels(t *testing.T, seq func(func(Row, error) bool)) ([]string, error) {
	t.Helper()
	var got []string
	for row, err := range seq {
		if err != nil {
			return got, err
		}
		got = append(got, fmt.Sprintf("%d:%s", row.Page, row.Label))
	}
	return got, nil
}

func TestTraverse_PageOrder(t *testing.T) {
	l := &listing{
		pages: []Batch{
			{{Label: "a"}, {Label: "b"}},
			{{Label: "c"}},
			{{Label: "d"}, {Label: "e"}},
		},
		next: []bool{true, true, false},
	}
	got, err := labels(t, Traverse(context.Background(), l.fetch, l.hasNext))
	if err != nil {
		t.Fatalf("Traverse() error = %v", err)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, l.fetched); diff != "" {
		t.Errorf("fetched pages mismatch (-want +got):\n%s", diff)
	}
	want := []string{"1:a", "1:b", "2:c", "3:d", "3:e"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestTraverse_Overrun(t *testing.T) {
	l := &listing{}
	tr := Traversal{MaxPages: 5}
	_, err := labels(t, tr.Rows(context.Background(), l.fetch, l.hasNext))
	if !errors.Is(err, ErrPaginationOverrun) {
		t.Fatalf("Rows() error = %v, want ErrPaginationOverrun", err)
	}
	if len(l.fetched) != 5 {
		t.Errorf("fetched %d pages, want 5", len(l.fetched))
	}
}

func TestTraverse_DefaultBound(t *testing.T) {
	l := &listing{}
	_, err := labels(t, Traverse(context.Background(), l.fetch, l.hasNext))
	if !errors.Is(err, ErrPaginationOverrun) {
		t.Fatalf("Traverse() error = %v, want ErrPaginationOverrun", err)
	}
	if len(l.fetched) != MaxPages {
		t.Errorf("fetched %d pages, want %d", len(l.fetched), MaxPages)
	}
}

func TestTraverse_SkipsFailedRows(t *testing.T) {
	bad := errors.New("missing column")
	l := &listing{
		pages: []Batch{{{Label: "a"}, {Label: "broken", Err: bad}, {Label: "b"}}},
		next:  []bool{false},
	}
	var skipped []Row
	tr := Traversal{Skip: func(r Row, _ error) { skipped = append(skipped, r) }}
	got, err := labels(t, tr.Rows(context.Background(), l.fetch, l.hasNext))
	if err != nil {
		t.Fatalf("Rows() error = %v", err)
	}
	if diff := cmp.Diff([]string{"1:a", "1:b"}, got); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if len(skipped) != 1 || skipped[0].Label != "broken" || skipped[0].Page != 1 {
		t.Errorf("skipped = %v, want the broken row of page 1", skipped)
	}
}

func TestTraverse_FatalErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("fetch", func(t *testing.T) {
		fetch := func(context.Context, int) (Batch, error) { return nil, boom }
		_, err := labels(t, Traverse(context.Background(), fetch, SinglePageNext))
		if !errors.Is(err, boom) {
			t.Errorf("error = %v, want %v", err, boom)
		}
	})

	t.Run("has next", func(t *testing.T) {
		fetch := func(context.Context, int) (Batch, error) { return Batch{{Label: "a"}}, nil }
		next := func(context.Context) (bool, error) { return false, fmt.Errorf("%w: next link", ErrElementNotFound) }
		got, err := labels(t, Traverse(context.Background(), fetch, next))
		if !errors.Is(err, ErrElementNotFound) {
			t.Errorf("error = %v, want ErrElementNotFound", err)
		}
		if len(got) != 1 {
			t.Errorf("rows = %v, want the rows of page 1", got)
		}
	})
}

func TestTraverse_NotRestartable(t *testing.T) {
	l := &listing{pages: []Batch{{{Label: "a"}}}, next: []bool{false}}
	seq := Traverse(context.Background(), l.fetch, l.hasNext)
	if _, err := labels(t, seq); err != nil {
		t.Fatal(err)
	}
	if _, err := labels(t, seq); !errors.Is(err, ErrTraversalConsumed) {
		t.Errorf("second range error = %v, want ErrTraversalConsumed", err)
	}
	if len(l.fetched) != 1 {
		t.Errorf("fetched %d pages, want 1", len(l.fetched))
	}
}

func TestTraverse_EarlyStop(t *testing.T) {
	l := &listing{pages: []Batch{{{Label: "a"}, {Label: "b"}}}, next: []bool{true}}
	for range Traverse(context.Background(), l.fetch, l.hasNext) {
		break
	}
	if len(l.fetched) != 1 {
		t.Errorf("fetched %d pages, want 1", len(l.fetched))
	}
}

// SinglePageNext adapts SinglePage to a NextFunc.
func SinglePageNext(ctx context.Context) (bool, error) { return SinglePage(ctx, nil) }

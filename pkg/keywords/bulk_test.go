package keywords

import (
	"reflect"
	"testing"
)

func TestSplitInput_RepeatsWithinBatch(t *testing.T) {
	got := SplitInput("a, a,  A\nb", nil)
	if want := []string{"a", "b"}; !reflect.DeepEqual(got.ToSubmit, want) {
		t.Fatalf("unexpected toSubmit.\nwant: %#v\ngot:  %#v", want, got.ToSubmit)
	}
	// four raw tokens, two retained
	if got.DuplicateCount != 2 || got.Repeated != 2 || got.AlreadyTracked != 0 {
		t.Fatalf("unexpected counts: %+v", got)
	}
}

func TestSplitInput_AlreadyTracked(t *testing.T) {
	got := SplitInput("foo", []Row{{ID: "k", Keyword: "Foo"}})
	if len(got.ToSubmit) != 0 || got.DuplicateCount != 1 || got.AlreadyTracked != 1 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestSplitInput_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\n,\t\r\n, ,"} {
		got := SplitInput(in, nil)
		if len(got.ToSubmit) != 0 || got.DuplicateCount != 0 {
			t.Fatalf("%q: expected nothing, got %+v", in, got)
		}
		if got.ToSubmit == nil {
			t.Fatalf("%q: expected empty, non-nil slice", in)
		}
	}
}

func TestSplitInput_AllDuplicates(t *testing.T) {
	existing := []Row{{ID: "1", Keyword: "x"}, {ID: "2", Keyword: "y"}}
	got := SplitInput("x\ny\nX", existing)
	if len(got.ToSubmit) != 0 || got.DuplicateCount != 3 {
		t.Fatalf("unexpected result: %+v", got)
	}
	if got.Repeated+got.AlreadyTracked != got.DuplicateCount {
		t.Fatalf("breakdown does not add up: %+v", got)
	}
}

func TestSplitInput_PastedList(t *testing.T) {
	got := SplitInput("chicago lawyer\nchicago lawyer\nairport injury", nil)
	if want := []string{"chicago lawyer", "airport injury"}; !reflect.DeepEqual(got.ToSubmit, want) {
		t.Fatalf("unexpected toSubmit: %#v", got.ToSubmit)
	}
	if got.DuplicateCount != 1 {
		t.Fatalf("expected 1 duplicate, got %d", got.DuplicateCount)
	}
}

func TestSplitInput_KeepsFirstSpellingAndCollapsesSpaces(t *testing.T) {
	got := SplitInput("Bed  Bug Attorney\tbed bug attorney,\r\nWorkers Comp", nil)
	if want := []string{"Bed Bug Attorney", "Workers Comp"}; !reflect.DeepEqual(got.ToSubmit, want) {
		t.Fatalf("unexpected toSubmit: %#v", got.ToSubmit)
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize(" one ,two\r\n\r\nthree\t\tfour ,")
	if want := []string{"one", "two", "three", "four"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected tokens: %#v", got)
	}
}

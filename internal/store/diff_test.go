package store

import (
	"reflect"
	"testing"
)

func TestDiffSubtractsInstalled(t *testing.T) {
	got := Diff(
		[]string{"aaa-foo", "bbb-bar", "ccc-baz"},
		[]string{"bbb-bar"},
	)
	want := []string{"aaa-foo", "ccc-baz"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected diff: %+v", got)
	}
}

func TestDiffOrderIndependentOfInput(t *testing.T) {
	got := Diff(
		[]string{"ccc-baz", "aaa-foo", "bbb-bar"},
		nil,
	)
	want := []string{"aaa-foo", "bbb-bar", "ccc-baz"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected ascending order, got %+v", got)
	}
}

func TestDiffAgainstUnionIsEmpty(t *testing.T) {
	required := []string{"aaa-foo", "bbb-bar", "ccc-baz"}
	installed := []string{"bbb-bar"}

	missing := Diff(required, installed)
	union := append(append([]string{}, installed...), missing...)
	if rest := Diff(required, union); len(rest) != 0 {
		t.Fatalf("expected empty re-diff, got %+v", rest)
	}
}

func TestDiffEmptySets(t *testing.T) {
	if got := Diff(nil, []string{"aaa-foo"}); len(got) != 0 {
		t.Fatalf("expected empty diff, got %+v", got)
	}
	if got := Diff([]string{"aaa-foo"}, []string{"aaa-foo"}); len(got) != 0 {
		t.Fatalf("expected empty diff, got %+v", got)
	}
}

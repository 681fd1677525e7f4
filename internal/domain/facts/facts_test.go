package facts

import (
	"reflect"
	"testing"
)

func num(v int) Span { return Span{Start: v, End: v + 1} }

func TestMergeMaps_Intersection(t *testing.T) {
	in := []DocMap{
		{"a": {"x": {num(1)}}},
		{"a": {"x": {num(2)}}, "b": {"y": {num(3)}}},
	}
	got := MergeMaps(in, false)
	want := DocMap{"a": {"x": {num(1), num(2)}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMergeMaps_Union(t *testing.T) {
	in := []DocMap{
		{"a": {"x": {num(1)}}},
		{"a": {"x": {num(2)}}, "b": {"y": {num(3)}}},
	}
	got := MergeMaps(in, true)
	want := DocMap{"a": {"x": {num(1), num(2)}}, "b": {"y": {num(3)}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMergeMaps_NoDeduplication(t *testing.T) {
	in := []DocMap{
		{"a": {"x": {num(1)}}},
		{"a": {"x": {num(1)}}},
	}
	got := MergeMaps(in, false)
	if len(got["a"]["x"]) != 2 {
		t.Errorf("expected duplicated spans to be kept, got %v", got["a"]["x"])
	}
}

func TestMergeMaps_DisjointIntersectionIsEmpty(t *testing.T) {
	got := MergeMaps([]DocMap{{"a": {}}, {"b": {}}}, false)
	if len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
	if got := MergeMaps(nil, true); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil map for no input, got %v", got)
	}
}

func TestMergeMaps_DoesNotAliasInputs(t *testing.T) {
	first := DocMap{"a": {"x": {num(1)}}}
	got := MergeMaps([]DocMap{first}, false)
	got["a"]["x"][0].Start = 99
	got.Add("a", "x", num(5))
	if len(first["a"]["x"]) != 1 {
		t.Errorf("input slice grew: %v", first["a"]["x"])
	}
}

func TestObjectExpand(t *testing.T) {
	v := 3.0
	tests := []struct {
		name string
		obj  Object
		want []Span
	}{
		{
			name: "string encoded",
			obj:  Object{DocPath: "text", Fact: "PER", StrVal: "Kalle", Spans: []byte(`"[[0, 5], [10, 15]]"`)},
			want: []Span{
				{Fact: "PER", StrVal: "Kalle", Start: 0, End: 5},
				{Fact: "PER", StrVal: "Kalle", Start: 10, End: 15},
			},
		},
		{
			name: "array",
			obj:  Object{DocPath: "text", Fact: "AGE", NumVal: &v, Spans: []byte(`[[1,2]]`)},
			want: []Span{{Fact: "AGE", NumVal: &v, Start: 1, End: 2}},
		},
		{
			name: "missing spans",
			obj:  Object{DocPath: "text", Fact: "TAG", StrVal: "x"},
			want: []Span{{Fact: "TAG", StrVal: "x"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.obj.Expand()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestObjectExpand_Invalid(t *testing.T) {
	_, err := Object{Fact: "PER", Spans: []byte(`"not json"`)}.Expand()
	if err == nil {
		t.Fatal("expected error for malformed spans")
	}
}

package domain

import (
	"errors"
	"testing"
)

func TestParseDatasets(t *testing.T) {
	got, err := ParseDatasets(" news/article, blogs ,")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Dataset{{Index: "news", Mapping: "article"}, {Index: "blogs"}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dataset %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestParseDatasets_Errors(t *testing.T) {
	if _, err := ParseDatasets(" , "); !errors.Is(err, ErrNoDatasets) {
		t.Errorf("blank list: got %v, want ErrNoDatasets", err)
	}
	for _, in := range []string{"/article", "news/a/b"} {
		if _, err := ParseDatasets(in); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("%q: got %v, want ErrInvalidArgument", in, err)
		}
	}
}

func TestFactProperties(t *testing.T) {
	props := FactProperties()
	if props["type"] != "nested" {
		t.Errorf("type = %v, want nested", props["type"])
	}
	inner := props["properties"].(map[string]any)
	for _, f := range []string{"doc_path", "fact", "num_val", "spans", "str_val"} {
		if _, ok := inner[f]; !ok {
			t.Errorf("missing property %s", f)
		}
	}
}

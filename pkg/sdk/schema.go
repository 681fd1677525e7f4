package factdex

import (
	"fmt"
	"reflect"
	"strings"
)

// sourceFields returns the _source paths T decodes, taken from json tags.
// Nested structs contribute dotted paths.
func sourceFields[T any]() ([]string, error) {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("factdex: %s is not a struct", t)
	}
	var out []string
	collectFields(t, "", &out, 0)
	if len(out) == 0 {
		return nil, fmt.Errorf("factdex: %s has no exported fields", t)
	}
	return out, nil
}

const maxFieldDepth = 8

func collectFields(t reflect.Type, prefix string, out *[]string, depth int) {
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, skip := jsonName(f)
		if skip {
			continue
		}
		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if f.Anonymous && ft.Kind() == reflect.Struct && f.Tag.Get("json") == "" {
			collectFields(ft, prefix, out, depth)
			continue
		}
		path := prefix + name
		if ft.Kind() == reflect.Struct && ft.PkgPath() != "time" && depth < maxFieldDepth {
			collectFields(ft, path+".", out, depth+1)
			continue
		}
		*out = append(*out, path)
	}
}

func jsonName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}
	return name, false
}

package postgres

import (
	"reflect"
	"sync"

	"github.com/Masterminds/squirrel"
)

// Builder returns a squirrel builder with PostgreSQL placeholders.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Columns lists the "db" tags of T, descending into embedded structs.
// Fields tagged "-" are skipped.
func Columns[T any]() []string {
	return typeFields(reflect.TypeOf((*T)(nil)).Elem()).columns
}

// Values maps the "db" columns of a struct (or pointer to one) to their
// values. Columns in skip are left out.
func Values(v any, skip ...string) map[string]any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	fields := typeFields(rv.Type())
	out := make(map[string]any, len(fields.columns))
	for i, path := range fields.paths {
		out[fields.columns[i]] = rv.FieldByIndex(path).Interface()
	}
	for _, s := range skip {
		delete(out, s)
	}
	return out
}

type structFields struct {
	columns []string
	paths   [][]int
}

var fieldCache sync.Map // reflect.Type -> *structFields

func typeFields(t reflect.Type) *structFields {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.(*structFields)
	}
	sf := &structFields{}
	if t.Kind() == reflect.Struct {
		collect(t, nil, sf)
	}
	fieldCache.Store(t, sf)
	return sf
}

func collect(t reflect.Type, prefix []int, sf *structFields) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		path := append(append([]int(nil), prefix...), i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			collect(f.Type, path, sf)
			continue
		}
		tag := f.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		sf.columns = append(sf.columns, tag)
		sf.paths = append(sf.paths, path)
	}
}

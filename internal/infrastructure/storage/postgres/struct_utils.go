package postgres

import (
	"reflect"
	"sync"
)

// ExtractDBColumns lists the "db" tags of T in field order, descending into
// embedded structs such as entity.BaseDocument. Fields tagged "-" or
// untagged are skipped.
func ExtractDBColumns[T any]() []string {
	var zero T
	meta := metadataOf(reflect.TypeOf(zero))
	cols := make([]string, 0, len(meta.fields))
	for _, f := range meta.fields {
		cols = append(cols, f.column)
	}
	return cols
}

// StructToMap returns column → value for every tagged field of v.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	meta := metadataOf(rv.Type())
	out := make(map[string]any, len(meta.fields))
	for _, f := range meta.fields {
		out[f.column] = rv.FieldByIndex(f.index).Interface()
	}
	return out
}

type columnField struct {
	column string
	index  []int
}

type structMetadata struct {
	fields []columnField
}

var metadataCache sync.Map // reflect.Type → *structMetadata

func metadataOf(t reflect.Type) *structMetadata {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := metadataCache.Load(t); ok {
		return cached.(*structMetadata)
	}

	meta := &structMetadata{}
	if t.Kind() == reflect.Struct {
		collectFields(t, nil, meta)
	}
	actual, _ := metadataCache.LoadOrStore(t, meta)
	return actual.(*structMetadata)
}

func collectFields(t reflect.Type, prefix []int, meta *structMetadata) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int(nil), prefix...), i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			collectFields(field.Type, index, meta)
			continue
		}

		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" || !field.IsExported() {
			continue
		}
		meta.fields = append(meta.fields, columnField{column: tag, index: index})
	}
}

package csv

import (
	"reflect"
	"strings"
	"unsafe"
)

// unsafeString views b as a string without copying, the zero-copy pattern
// grounded on the teacher's internal/fastparser/pool.go unsafeString. Only
// safe when b is not mutated for the lifetime of the returned string — used
// exclusively for field values borrowed from a stable recognizer buffer.
func unsafeString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// fieldInfo is the parsed form of a struct field's csv tag, shared by
// Marshal, FlattenStruct and parseAdvancedTag.
type fieldInfo struct {
	name      string
	omitEmpty bool
	skip      bool
}

// parseTag parses a raw csv struct tag value ("name,omitempty", "-", or
// ""), the same "name,option,option" convention
// internal/fastparser/typecache.go's computeStructInfo uses for the
// struct-mapping Unmarshal path.
func parseTag(tag string) fieldInfo {
	if tag == "-" {
		return fieldInfo{skip: true}
	}

	parts := strings.Split(tag, ",")
	info := fieldInfo{name: parts[0]}
	for _, opt := range parts[1:] {
		if strings.TrimSpace(opt) == "omitempty" {
			info.omitEmpty = true
		}
	}
	return info
}

// getFieldInfo resolves a struct field's csv tag, falling back to the Go
// field name when no tag (or an empty name within a tag) is present.
func getFieldInfo(field reflect.StructField) fieldInfo {
	info := parseTag(field.Tag.Get("csv"))
	if info.name == "" {
		info.name = field.Name
	}
	return info
}

// isEmptyValue reports whether v holds its type's zero value, the same
// notion of "empty" encoding/json's omitempty uses.
func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	}
	return false
}

// Package csv provides advanced CSV processing features.
package csv

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// AdvancedOptions configures advanced CSV processing features.
type AdvancedOptions struct {
	// PreProcess is called for each record before field processing.
	// Can modify fields before they are assigned to struct fields.
	PreProcess func([]string) []string

	// PostProcess is called for each unmarshaled struct after field assignment.
	// Can modify the struct before it's added to the result slice.
	PostProcess func(interface{}) interface{}
}

// DefaultAdvancedOptions returns default advanced options.
func DefaultAdvancedOptions() AdvancedOptions {
	return AdvancedOptions{}
}

// MultiValueSeparator is the default separator for multi-value fields.
const MultiValueSeparator = "|"

// advancedFieldInfo extends fieldInfo with advanced options.
type advancedFieldInfo struct {
	fieldInfo
	// split is the separator for multi-value fields (empty = no split)
	split string
	// recurse indicates nested struct should be flattened
	recurse bool
	// converter is the name of a registered converter
	converter string
}

// parseAdvancedTag parses a struct field's csv tag with advanced options.
// Format: "fieldname,option1,option2,split=|,converter=myconv"
func parseAdvancedTag(tag string) advancedFieldInfo {
	info := advancedFieldInfo{
		fieldInfo: parseTag(tag),
	}

	if tag == "-" {
		return info
	}

	parts := strings.Split(tag, ",")

	// Parse advanced options
	for i := 1; i < len(parts); i++ {
		opt := strings.TrimSpace(parts[i])

		if strings.HasPrefix(opt, "split=") {
			info.split = strings.TrimPrefix(opt, "split=")
		} else if strings.HasPrefix(opt, "converter=") {
			info.converter = strings.TrimPrefix(opt, "converter=")
		} else if opt == "recurse" {
			info.recurse = true
		}
	}

	return info
}

// SplitField splits a field value by the given separator.
// Returns a slice of strings.
func SplitField(value string, separator string) []string {
	if value == "" {
		return []string{}
	}
	if separator == "" {
		return []string{value}
	}
	return strings.Split(value, separator)
}

// JoinField joins a slice of values with the given separator.
func JoinField(values []string, separator string) string {
	return strings.Join(values, separator)
}

// FlattenStruct flattens a nested struct into a flat map of field names to values.
// Uses a prefix for nested field names (e.g., "Address.Street").
func FlattenStruct(v interface{}, prefix string) map[string]string {
	result := make(map[string]string)
	flattenValue(reflect.ValueOf(v), prefix, result)
	return result
}

func flattenValue(v reflect.Value, prefix string, result map[string]string) {
	// Handle pointers
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if field.PkgPath != "" {
			continue
		}

		// Get field name from tag or struct field
		info := getFieldInfo(field)
		if info.skip {
			continue
		}

		name := info.name
		if prefix != "" {
			name = prefix + "." + name
		}

		// Check for recurse option
		advInfo := parseAdvancedTag(field.Tag.Get("csv"))
		if advInfo.recurse && fieldVal.Kind() == reflect.Struct {
			flattenValue(fieldVal, name, result)
			continue
		}

		// Convert value to string
		result[name] = valueToString(fieldVal)
	}
}

func valueToString(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}

	// Handle pointers
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case reflect.Bool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.String {
			strs := make([]string, v.Len())
			for i := 0; i < v.Len(); i++ {
				strs[i] = v.Index(i).String()
			}
			return JoinField(strs, MultiValueSeparator)
		}
	}

	return ""
}

// MarshalFlat encodes v, a slice of structs, using FlattenStruct to reduce
// each element (including any field tagged "recurse") to a flat
// name-to-value map before writing, instead of Marshal's single-level
// struct-to-column mapping. The header row is the sorted union of every
// element's flattened field names, so elements with different optional
// fields still produce one consistent table.
func MarshalFlat(v interface{}) ([]byte, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("csv: MarshalFlat expects a slice, got %T", v)
	}
	if rv.Len() == 0 {
		return []byte{}, nil
	}

	rows := make([]map[string]string, rv.Len())
	seen := make(map[string]bool)
	var names []string
	for i := 0; i < rv.Len(); i++ {
		flat := FlattenStruct(rv.Index(i).Interface(), "")
		rows[i] = flat
		for name := range flat {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Write(names); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := make([]string, len(names))
		for i, name := range names {
			record[i] = row[name]
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// setAdvancedField assigns raw into field, converting int, float and bool
// kinds through registry, unsigned kinds with strconv.ParseUint, and a
// string-slice field through SplitField with its "split=" separator.
func setAdvancedField(field reflect.Value, raw string, split string, registry *ConverterRegistry) error {
	if raw == "" {
		return nil
	}
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return setAdvancedField(field.Elem(), raw, split, registry)
	}
	if field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String {
		sep := split
		if sep == "" {
			sep = MultiValueSeparator
		}
		field.Set(reflect.ValueOf(SplitField(raw, sep)))
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		conv, _ := registry.Get("int")
		n, err := conv.Convert(raw)
		if err != nil {
			return err
		}
		field.SetInt(n.(int64))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		conv, _ := registry.Get("float")
		f, err := conv.Convert(raw)
		if err != nil {
			return err
		}
		field.SetFloat(f.(float64))
	case reflect.Bool:
		conv, _ := registry.Get("bool")
		b, err := conv.Convert(raw)
		if err != nil {
			return err
		}
		field.SetBool(b.(bool))
	}
	return nil
}

// UnmarshalWithOptions behaves like Unmarshal for a slice of structs, but
// additionally applies opts.PreProcess to each record's raw fields before
// struct population, honors the "split=" csv tag option that plain
// Unmarshal ignores, and applies opts.PostProcess to each populated struct
// afterward. The "recurse" option is not applied here: a nested struct
// field is not filled from flattened "name.sub" columns.
func UnmarshalWithOptions(data []byte, v interface{}, opts AdvancedOptions) error {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || v == nil || rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("csv: UnmarshalWithOptions expects a non-nil pointer to a slice")
	}
	elem := rv.Elem()
	if elem.Kind() != reflect.Slice {
		return fmt.Errorf("csv: UnmarshalWithOptions expects pointer to slice, got %s", elem.Type())
	}

	elemType := elem.Type().Elem()
	ptrElem := elemType.Kind() == reflect.Ptr
	structType := elemType
	if ptrElem {
		structType = structType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return fmt.Errorf("csv: UnmarshalWithOptions expects slice of structs, got slice of %s", elemType)
	}

	rr := NewRowReader(bytes.NewReader(data)).SetHasHeaders(true)
	result := reflect.MakeSlice(elem.Type(), 0, 0)
	if !rr.Scan() {
		if err := rr.Err(); err != nil {
			return err
		}
		elem.Set(result)
		return nil
	}

	type boundField struct {
		structIdx int
		headerIdx int
		adv       advancedFieldInfo
	}
	headerIndex := make(map[string]int, len(rr.Headers()))
	for i, h := range rr.Headers() {
		headerIndex[h] = i
	}

	var fields []boundField
	for i := 0; i < structType.NumField(); i++ {
		f := structType.Field(i)
		if f.PkgPath != "" {
			continue
		}
		adv := parseAdvancedTag(f.Tag.Get("csv"))
		if adv.skip {
			continue
		}
		if adv.name == "" {
			adv.name = f.Name
		}
		hi, ok := headerIndex[adv.name]
		if !ok {
			continue
		}
		fields = append(fields, boundField{structIdx: i, headerIdx: hi, adv: adv})
	}

	registry := NewConverterRegistry()
	for {
		row := rr.Record()
		raw := make([]string, row.Len())
		for i := range raw {
			raw[i], _ = row.Get(i)
		}
		if opts.PreProcess != nil {
			raw = opts.PreProcess(raw)
		}

		structVal := reflect.New(structType).Elem()
		for _, bf := range fields {
			if bf.headerIdx >= len(raw) {
				continue
			}
			if err := setAdvancedField(structVal.Field(bf.structIdx), raw[bf.headerIdx], bf.adv.split, registry); err != nil {
				return fmt.Errorf("csv: field %s: %w", bf.adv.name, err)
			}
		}

		var out interface{} = structVal.Interface()
		if opts.PostProcess != nil {
			out = opts.PostProcess(out)
		}
		outVal := reflect.ValueOf(out)
		if ptrElem {
			ptr := reflect.New(structType)
			ptr.Elem().Set(outVal)
			result = reflect.Append(result, ptr)
		} else {
			result = reflect.Append(result, outVal)
		}

		if !rr.Scan() {
			break
		}
	}
	if err := rr.Err(); err != nil {
		return err
	}
	elem.Set(result)
	return nil
}

// TransformOptions configures field transformation hooks.
type TransformOptions struct {
	// FieldTransform is called for each field value during unmarshal.
	// Can modify the value before type conversion.
	FieldTransform func(fieldName, value string) string

	// RowTransform is called for each row before field assignment.
	// Can modify or filter the record.
	RowTransform func(record []string, headers []string) []string
}

// ProcessWithTransforms applies transformations during CSV processing.
type ProcessWithTransforms struct {
	transforms TransformOptions
	headers    []string
}

// NewProcessWithTransforms creates a processor with transformation hooks.
func NewProcessWithTransforms(opts TransformOptions) *ProcessWithTransforms {
	return &ProcessWithTransforms{
		transforms: opts,
	}
}

// SetHeaders sets the header row for field name lookups.
func (p *ProcessWithTransforms) SetHeaders(headers []string) {
	p.headers = make([]string, len(headers))
	copy(p.headers, headers)
}

// TransformRow applies row transformation.
func (p *ProcessWithTransforms) TransformRow(record []string) []string {
	if p.transforms.RowTransform == nil {
		return record
	}
	return p.transforms.RowTransform(record, p.headers)
}

// TransformField applies field transformation.
func (p *ProcessWithTransforms) TransformField(fieldName, value string) string {
	if p.transforms.FieldTransform == nil {
		return value
	}
	return p.transforms.FieldTransform(fieldName, value)
}

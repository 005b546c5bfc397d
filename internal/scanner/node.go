package scanner

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
)

// Kind tags a value reachable from a response payload.
type Kind int

const (
	KindScalar Kind = iota
	KindMapping
	KindSequence
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	case KindOpaque:
		return "opaque"
	default:
		return "scalar"
	}
}

// Mapper is implemented by values that can expose themselves as a plain map.
type Mapper interface {
	AsMap() map[string]any
}

type node struct {
	kind     Kind
	mapping  map[string]any
	sequence []any
	str      string
	isString bool
	opaque   any
}

// classify tags v without converting opaque values.
func classify(v any) node {
	switch tv := v.(type) {
	case nil:
		return node{kind: KindScalar}
	case string:
		return node{kind: KindScalar, str: tv, isString: true}
	case Mapper:
		return node{kind: KindOpaque, opaque: tv}
	case map[string]any:
		return node{kind: KindMapping, mapping: tv}
	case []any:
		return node{kind: KindSequence, sequence: tv}
	case []byte, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return node{kind: KindScalar}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return node{kind: KindScalar, str: rv.String(), isString: true}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return node{kind: KindScalar}
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			if !iter.Value().CanInterface() {
				continue
			}
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return node{kind: KindMapping, mapping: m}
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return node{kind: KindScalar}
		}
		items := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			if rv.Index(i).CanInterface() {
				items = append(items, rv.Index(i).Interface())
			}
		}
		return node{kind: KindSequence, sequence: items}
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return node{kind: KindScalar}
		}
		return node{kind: KindOpaque, opaque: v}
	case reflect.Struct:
		return node{kind: KindOpaque, opaque: v}
	default:
		return node{kind: KindScalar}
	}
}

// normalize turns an opaque value into a mapping or sequence view by trying,
// in order: Mapper, the exported struct fields, a JSON round-trip. Values
// with no view come back as a scalar with ok=false.
func normalize(v any) (view node, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			view, ok = node{kind: KindScalar}, false
		}
	}()

	if m, isMapper := v.(Mapper); isMapper {
		if d := m.AsMap(); d != nil {
			return node{kind: KindMapping, mapping: d}, true
		}
	}

	if d, isStruct := attributeMap(v); isStruct {
		return node{kind: KindMapping, mapping: d}, true
	}

	if raw, err := json.Marshal(v); err == nil {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err == nil {
			switch decoded.(type) {
			case map[string]any, []any:
				return classify(decoded), true
			}
		}
	}

	return node{kind: KindScalar}, false
}

// attributeMap collects the exported fields of a struct (or pointer to one),
// keyed by json tag name when present.
func attributeMap(v any) (map[string]any, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}

	rt := rv.Type()
	out := make(map[string]any, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, hasTag := field.Tag.Lookup("json"); hasTag {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		fv := rv.Field(i)
		if !fv.CanInterface() {
			continue
		}
		out[name] = fv.Interface()
	}
	return out, true
}

// identity names the storage behind a container so cycles are entered once
type identity struct {
	kind Kind
	ptr  uintptr
	len  int
}

// identityOf reports the identity of maps, slices and pointers. Values
// without shared storage (structs, empty containers) have none.
func identityOf(n node) (identity, bool) {
	var rv reflect.Value
	switch n.kind {
	case KindMapping:
		rv = reflect.ValueOf(n.mapping)
	case KindSequence:
		rv = reflect.ValueOf(n.sequence)
	case KindOpaque:
		rv = reflect.ValueOf(n.opaque)
		if rv.Kind() != reflect.Pointer {
			return identity{}, false
		}
	default:
		return identity{}, false
	}
	if rv.IsNil() || rv.Pointer() == 0 {
		return identity{}, false
	}
	id := identity{kind: n.kind, ptr: rv.Pointer()}
	if rv.Kind() != reflect.Pointer {
		id.len = rv.Len()
	}
	return id, true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

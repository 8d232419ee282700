// Package serialize turns arbitrary state nodes into stable JSON strings and
// parses them back.
//
// Marshal tolerates repeated references and cycles. The traversal is depth
// first and remembers every map, slice and pointer it has entered during the
// call. The first occurrence of a reference is serialized; every later
// occurrence is omitted: dropped from its enclosing object, written as null
// inside an array. Output for genuinely shared substructure is therefore
// lossy. Graph-aware serialization is not attempted.
package serialize

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ErrUnsupported is returned for values JSON cannot represent, such as
// channels, functions and complex numbers.
var ErrUnsupported = errors.New("unsupported value")

var (
	marshalerType     = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// Marshal returns the deterministic JSON encoding of v. Map keys are sorted.
// The input is never modified and no state is shared between calls.
func Marshal(v any) (string, error) {
	p := &pruner{seen: make(map[visitKey]struct{})}

	pruned, ok, err := p.prune(reflect.ValueOf(v))
	if err != nil {
		return "", err
	}
	if !ok {
		pruned = nil
	}

	data, err := json.Marshal(pruned)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnsupported, err)
	}

	return string(data), nil
}

// Unmarshal parses a payload produced by Marshal into generic JSON values:
// map[string]any, []any, float64, string, bool and nil.
func Unmarshal(payload string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return nil, fmt.Errorf("parsing payload: %w", err)
	}
	return v, nil
}

// visitKey identifies a reference. The type is part of the key so that a
// pointer to a struct and a pointer to its first field stay distinct. len
// tells apart slices sharing a backing array start, such as s[:2] and s.
type visitKey struct {
	typ reflect.Type
	ptr uintptr
	len int
}

// pruner rewrites a value into an acyclic tree of plain JSON values.
type pruner struct {
	seen map[visitKey]struct{}
}

// visit marks a reference as entered. It returns false if it was entered
// before during this pass.
func (p *pruner) visit(v reflect.Value) bool {
	key := visitKey{typ: v.Type(), ptr: v.Pointer()}
	if v.Kind() == reflect.Slice {
		key.len = v.Len()
	}
	if _, ok := p.seen[key]; ok {
		return false
	}
	p.seen[key] = struct{}{}
	return true
}

// prune returns the JSON-ready form of v. ok is false when v is a repeated
// reference and must be omitted.
func (p *pruner) prune(v reflect.Value) (any, bool, error) {
	if !v.IsValid() {
		return nil, true, nil
	}

	if v.Type().Implements(marshalerType) {
		if v.Kind() == reflect.Pointer && v.IsNil() {
			return nil, true, nil
		}
		return v.Interface(), true, nil
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil, true, nil
		}
		return p.prune(v.Elem())

	case reflect.Pointer:
		if v.IsNil() {
			return nil, true, nil
		}
		if !p.visit(v) {
			return nil, false, nil
		}
		return p.prune(v.Elem())

	case reflect.Map:
		if v.IsNil() {
			return nil, true, nil
		}
		if !p.visit(v) {
			return nil, false, nil
		}
		return p.pruneMap(v)

	case reflect.Slice:
		if v.IsNil() {
			return nil, true, nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Interface(), true, nil
		}
		// Empty slices may all share one backing address.
		if v.Len() > 0 && !p.visit(v) {
			return nil, false, nil
		}
		return p.pruneList(v)

	case reflect.Array:
		return p.pruneList(v)

	case reflect.Struct:
		out := make(map[string]any)
		if err := p.pruneStruct(v, out); err != nil {
			return nil, false, err
		}
		return out, true, nil

	case reflect.Chan, reflect.Func, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return nil, false, fmt.Errorf("%w: %s", ErrUnsupported, v.Type())

	default:
		return v.Interface(), true, nil
	}
}

// pruneMap visits entries in sorted key order, so the first occurrence of a
// repeated reference is the one under the smallest key.
func (p *pruner) pruneMap(v reflect.Value) (any, bool, error) {
	type kv struct {
		key string
		val reflect.Value
	}

	entries := make([]kv, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key, err := mapKey(iter.Key())
		if err != nil {
			return nil, false, err
		}
		entries = append(entries, kv{key: key, val: iter.Value()})
	}
	slices.SortFunc(entries, func(a, b kv) int { return strings.Compare(a.key, b.key) })

	out := make(map[string]any, len(entries))
	for _, e := range entries {
		val, ok, err := p.prune(e.val)
		if err != nil {
			return nil, false, fmt.Errorf("key %q: %w", e.key, err)
		}
		if !ok {
			continue
		}
		out[e.key] = val
	}

	return out, true, nil
}

func (p *pruner) pruneList(v reflect.Value) (any, bool, error) {
	out := make([]any, v.Len())

	for i := range out {
		val, ok, err := p.prune(v.Index(i))
		if err != nil {
			return nil, false, fmt.Errorf("index %d: %w", i, err)
		}
		if ok {
			out[i] = val
		}
	}

	return out, true, nil
}

// pruneStruct writes the exported fields of v into out, following the
// encoding/json field naming rules for tags, omitempty and embedding.
func (p *pruner) pruneStruct(v reflect.Value, out map[string]any) error {
	t := v.Type()

	for i := range t.NumField() {
		field := t.Field(i)
		name, omitEmpty := parseTag(field.Tag.Get("json"))
		if name == "-" {
			continue
		}

		fv := v.Field(i)

		if field.Anonymous && name == "" {
			ft := field.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if err := p.pruneStruct(fv, out); err != nil {
					return err
				}
				continue
			}
		}

		if !field.IsExported() {
			continue
		}
		if name == "" {
			name = field.Name
		}
		if omitEmpty && isEmptyValue(fv) {
			continue
		}

		val, ok, err := p.prune(fv)
		if err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
		if !ok {
			continue
		}
		out[name] = val
	}

	return nil
}

func parseTag(tag string) (string, bool) {
	if tag == "-" {
		return "-", false
	}

	name, opts, _ := strings.Cut(tag, ",")
	omitEmpty := false
	for opt := range strings.SplitSeq(opts, ",") {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}

	return name, omitEmpty
}

func mapKey(k reflect.Value) (string, error) {
	if k.Kind() == reflect.String {
		return k.String(), nil
	}

	if k.Type().Implements(textMarshalerType) {
		text, err := k.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return "", fmt.Errorf("%w: map key: %w", ErrUnsupported, err)
		}
		return string(text), nil
	}

	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	default:
		return "", fmt.Errorf("%w: map key type %s", ErrUnsupported, k.Type())
	}
}

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
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	default:
		return false
	}
}

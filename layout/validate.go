package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/wippyai/storage-layout/errors"
)

// Parse validates the shape of a raw storageLayout document and decodes it.
// source names the document in errors (file path or qualified contract name).
func Parse(data []byte, source string) (*StorageLayout, error) {
	if err := ValidateJSON(data, source); err != nil {
		return nil, err
	}

	var l StorageLayout
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, errors.New(errors.PhaseValidate, errors.KindInvalidLayout).
			Source(source).
			Detail("decode layout").
			Cause(err).
			Build()
	}
	return &l, nil
}

// ValidateJSON checks object structure but not contents: field presence and
// primitive kinds of storage elements and type catalog entries.
func ValidateJSON(data []byte, source string) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return errors.New(errors.PhaseValidate, errors.KindInvalidLayout).
			Source(source).
			Detail("not a JSON document").
			Cause(err).
			Build()
	}

	v := &shapeValidator{source: source}
	return v.layout(root)
}

type shapeValidator struct {
	source string
}

func (v *shapeValidator) fail(path []string, format string, args ...any) error {
	return errors.InvalidLayout(v.source, path, fmt.Sprintf(format, args...))
}

func (v *shapeValidator) layout(root any) error {
	obj, ok := root.(map[string]any)
	if !ok {
		return v.fail(nil, "expected object, got %s", kindOf(root))
	}

	storage, ok := obj["storage"].([]any)
	if !ok {
		return v.fail([]string{"storage"}, "expected array, got %s", kindOf(obj["storage"]))
	}
	for i, el := range storage {
		if err := v.element([]string{"storage", strconv.Itoa(i)}, el); err != nil {
			return err
		}
	}

	rawTypes, present := obj["types"]
	if !present || rawTypes == nil {
		if len(storage) > 0 {
			return v.fail([]string{"types"}, "type catalog is null but storage declares %d variables", len(storage))
		}
		return nil
	}

	types, ok := rawTypes.(map[string]any)
	if !ok {
		return v.fail([]string{"types"}, "expected object or null, got %s", kindOf(rawTypes))
	}
	if len(types) == 0 && len(storage) > 0 {
		return v.fail([]string{"types"}, "type catalog is empty but storage declares %d variables", len(storage))
	}
	for id, t := range types {
		if err := v.storageType([]string{"types", id}, t); err != nil {
			return err
		}
	}
	return nil
}

func (v *shapeValidator) element(path []string, raw any) error {
	obj, ok := raw.(map[string]any)
	if !ok {
		return v.fail(path, "expected object, got %s", kindOf(raw))
	}
	for _, field := range []string{"contract", "label", "slot", "type"} {
		if _, ok := obj[field].(string); !ok {
			return v.fail(append(path, field), "expected string, got %s", kindOf(obj[field]))
		}
	}
	if _, ok := obj["offset"].(json.Number); !ok {
		return v.fail(append(path, "offset"), "expected number, got %s", kindOf(obj["offset"]))
	}
	return nil
}

func (v *shapeValidator) storageType(path []string, raw any) error {
	obj, ok := raw.(map[string]any)
	if !ok {
		return v.fail(path, "expected object, got %s", kindOf(raw))
	}

	enc, _ := obj["encoding"].(string)
	if !Encoding(enc).Valid() {
		return v.fail(append(path, "encoding"), "unknown encoding %v", obj["encoding"])
	}
	if _, ok := obj["label"].(string); !ok {
		return v.fail(append(path, "label"), "expected string, got %s", kindOf(obj["label"]))
	}
	if _, ok := obj["numberOfBytes"].(string); !ok {
		return v.fail(append(path, "numberOfBytes"), "expected string, got %s", kindOf(obj["numberOfBytes"]))
	}

	if base, present := obj["base"]; present {
		if _, ok := base.(string); !ok {
			return v.fail(append(path, "base"), "expected string, got %s", kindOf(base))
		}
	}

	if rawMembers, present := obj["members"]; present {
		members, ok := rawMembers.([]any)
		if !ok {
			return v.fail(append(path, "members"), "expected array, got %s", kindOf(rawMembers))
		}
		for i, m := range members {
			if err := v.element(append(append([]string{}, path...), "members", strconv.Itoa(i)), m); err != nil {
				return err
			}
		}
	}
	return nil
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Validate applies the shape rules to an in-memory layout, additionally
// requiring decimal slot and numberOfBytes values.
func (l *StorageLayout) Validate(source string) error {
	if l == nil {
		return errors.InvalidLayout(source, nil, "layout is nil")
	}
	if len(l.Types) == 0 && len(l.Storage) > 0 {
		return errors.InvalidLayout(source, []string{"types"}, fmt.Sprintf("type catalog is empty but storage declares %d variables", len(l.Storage)))
	}
	for i, el := range l.Storage {
		if err := validateElement(source, []string{"storage", strconv.Itoa(i)}, el); err != nil {
			return err
		}
	}
	for id, t := range l.Types {
		path := []string{"types", id}
		if !t.Encoding.Valid() {
			return errors.InvalidLayout(source, append(path, "encoding"), fmt.Sprintf("unknown encoding %q", t.Encoding))
		}
		if !isDecimal(t.NumberOfBytes) {
			return errors.InvalidLayout(source, append(path, "numberOfBytes"), fmt.Sprintf("not a decimal integer: %q", t.NumberOfBytes))
		}
		for j, m := range t.Members {
			if err := validateElement(source, append(append([]string{}, path...), "members", strconv.Itoa(j)), m); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateElement(source string, path []string, el StorageElement) error {
	if el.Type == "" {
		return errors.InvalidLayout(source, append(path, "type"), "missing type id")
	}
	if !isDecimal(el.Slot) {
		return errors.InvalidLayout(source, append(path, "slot"), fmt.Sprintf("not a decimal integer: %q", el.Slot))
	}
	if el.Offset < 0 || el.Offset >= SlotSize {
		return errors.InvalidLayout(source, append(path, "offset"), fmt.Sprintf("offset %d outside slot", el.Offset))
	}
	return nil
}

func isDecimal(s string) bool {
	n, ok := new(big.Int).SetString(s, 10)
	return ok && n.Sign() >= 0
}

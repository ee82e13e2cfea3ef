package editor

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/alexanderovie/fascinante-listings/ledger"
)

// Diff compares two location snapshots over exactly the field paths named
// in the comma-separated update mask. Fields outside the mask never appear
// in the result, even when both snapshots carry them. Values are
// structurally normalized before comparison so equivalent encodings of the
// same value do not produce phantom changes.
func Diff(before, after map[string]any, updateMask string) map[string]ledger.FieldChange {
	changes := make(map[string]ledger.FieldChange)

	for _, field := range strings.Split(updateMask, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		oldVal, oldOK := lookupPath(before, field)
		newVal, newOK := lookupPath(after, field)
		if !oldOK && !newOK {
			continue
		}

		oldNorm := normalize(oldVal)
		newNorm := normalize(newVal)
		if reflect.DeepEqual(oldNorm, newNorm) {
			continue
		}

		changes[field] = ledger.FieldChange{Old: oldNorm, New: newNorm}
	}

	return changes
}

// lookupPath resolves a dotted field path ("storefrontAddress.locality").
func lookupPath(m map[string]any, path string) (any, bool) {
	if m == nil {
		return nil, false
	}

	parts := strings.Split(path, ".")
	var current any = m
	for _, part := range parts {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// normalize round-trips v through JSON so numeric widths and nested struct
// encodings compare structurally.
func normalize(v any) any {
	if v == nil {
		return nil
	}
	buf, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(buf, &out); err != nil {
		return v
	}
	return out
}

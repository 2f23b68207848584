/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package docstore

import (
	"fmt"
	"strings"
)

// FieldID is a name of the document field which holds its identifier.
const FieldID = "id"

// Document is a JSON object stored in a collection.
type Document map[string]interface{}

// ID returns the document identifier or an empty string if it's missing or not a string.
func (d Document) ID() string {
	id, _ := d[FieldID].(string)
	return id
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneValue(map[string]interface{}(d)).(map[string]interface{})
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case Document:
		return Document(cloneValue(map[string]interface{}(val)).(map[string]interface{}))
	case map[string]interface{}:
		res := make(map[string]interface{}, len(val))
		for k, item := range val {
			res[k] = cloneValue(item)
		}
		return res
	case []interface{}:
		res := make([]interface{}, len(val))
		for i, item := range val {
			res[i] = cloneValue(item)
		}
		return res
	default:
		return val
	}
}

// validateName checks that the name may be safely used as a file or directory name.
func validateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("empty")
	case name == "." || name == "..":
		return fmt.Errorf("%q is reserved", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%q contains path separator", name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%q contains NUL", name)
	}
	return nil
}

func validateID(id string) error {
	if err := validateName(id); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	return nil
}

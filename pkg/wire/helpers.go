package wire

import "fmt"

// GetInt returns the int64 field named name, or an error if absent/wrong type.
func (o Object) GetInt(name string) (int64, error) {
	v, ok := o.Get(name)
	if !ok {
		return 0, fmt.Errorf("wire: missing field %q", name)
	}
	if v.Type != TypeInt {
		return 0, fmt.Errorf("wire: field %q is not an int", name)
	}
	return v.Int, nil
}

// GetString returns the string field named name, or an error if absent/wrong type.
func (o Object) GetString(name string) (string, error) {
	v, ok := o.Get(name)
	if !ok {
		return "", fmt.Errorf("wire: missing field %q", name)
	}
	if v.Type != TypeString {
		return "", fmt.Errorf("wire: field %q is not a string", name)
	}
	return v.Str, nil
}

// GetStringOr returns the string field named name, or def if absent.
func (o Object) GetStringOr(name, def string) string {
	v, ok := o.Get(name)
	if !ok || v.Type != TypeString {
		return def
	}
	return v.Str
}

// GetIntOr returns the int field named name, or def if absent.
func (o Object) GetIntOr(name string, def int64) int64 {
	v, ok := o.Get(name)
	if !ok || v.Type != TypeInt {
		return def
	}
	return v.Int
}

// GetObjectList returns the list of objects in the field named name.
func (o Object) GetObjectList(name string) ([]Object, error) {
	v, ok := o.Get(name)
	if !ok {
		return nil, fmt.Errorf("wire: missing field %q", name)
	}
	if v.Type != TypeList {
		return nil, fmt.Errorf("wire: field %q is not a list", name)
	}
	out := make([]Object, 0, len(v.List))
	for _, item := range v.List {
		if item.Type != TypeObject {
			return nil, fmt.Errorf("wire: field %q is not a list of objects", name)
		}
		out = append(out, item.Object)
	}
	return out, nil
}

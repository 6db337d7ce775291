package wire

import (
	"encoding/binary"
	"fmt"
)

// Decode parses a galactic-buffer message, dispatching on the leading
// version byte.
func Decode(data []byte) (*Object, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("wire: empty message")
	}
	switch Version(data[0]) {
	case V1:
		return decodeV1(data)
	case V2:
		return decodeV2(data)
	default:
		return nil, fmt.Errorf("wire: unsupported version %d", data[0])
	}
}

func decodeFieldName(data []byte, offset int) (string, int, error) {
	if offset >= len(data) {
		return "", offset, fmt.Errorf("wire: truncated field name length")
	}
	nameLen := int(data[offset])
	offset++
	if offset+nameLen > len(data) {
		return "", offset, fmt.Errorf("wire: truncated field name")
	}
	name := string(data[offset : offset+nameLen])
	return name, offset + nameLen, nil
}

// --- v1 ---

func decodeStringV1(data []byte, offset int) (string, int, error) {
	if offset+2 > len(data) {
		return "", offset, fmt.Errorf("wire: truncated string length")
	}
	strLen := int(binary.BigEndian.Uint16(data[offset : offset+2]))
	offset += 2
	if offset+strLen > len(data) {
		return "", offset, fmt.Errorf("wire: truncated string data")
	}
	return string(data[offset : offset+strLen]), offset + strLen, nil
}

func decodeObjectV1(data []byte, offset int) (Object, int, error) {
	if offset >= len(data) {
		return Object{}, offset, fmt.Errorf("wire: truncated object field count")
	}
	count := int(data[offset])
	offset++
	obj := *NewObject()
	for i := 0; i < count; i++ {
		name, next, err := decodeFieldName(data, offset)
		if err != nil {
			return Object{}, offset, err
		}
		offset = next
		if offset >= len(data) {
			return Object{}, offset, fmt.Errorf("wire: truncated object type id")
		}
		typeID := data[offset]
		offset++
		switch typeID {
		case TypeInt:
			v, next, err := decodeInt(data, offset)
			if err != nil {
				return Object{}, offset, err
			}
			offset = next
			obj.Set(name, Int(v))
		case TypeString:
			v, next, err := decodeStringV1(data, offset)
			if err != nil {
				return Object{}, offset, err
			}
			offset = next
			obj.Set(name, Str(v))
		default:
			return Object{}, offset, fmt.Errorf("wire: nested lists/objects in object not supported (v1)")
		}
	}
	return obj, offset, nil
}

func decodeV1(data []byte) (*Object, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("wire: message too short for v1")
	}
	fieldCount := int(data[1])
	offset := 4
	result := NewObject()

	for i := 0; i < fieldCount; i++ {
		name, next, err := decodeFieldName(data, offset)
		if err != nil {
			return nil, err
		}
		offset = next
		if offset >= len(data) {
			return nil, fmt.Errorf("wire: truncated type id")
		}
		typeID := data[offset]
		offset++

		switch typeID {
		case TypeInt:
			v, next, err := decodeInt(data, offset)
			if err != nil {
				return nil, err
			}
			offset = next
			result.Set(name, Int(v))
		case TypeString:
			v, next, err := decodeStringV1(data, offset)
			if err != nil {
				return nil, err
			}
			offset = next
			result.Set(name, Str(v))
		case TypeList:
			v, next, err := decodeListV1(data, offset)
			if err != nil {
				return nil, err
			}
			offset = next
			result.Set(name, v)
		case TypeObject:
			obj, next, err := decodeObjectV1(data, offset)
			if err != nil {
				return nil, err
			}
			offset = next
			result.Set(name, ObjVal(&obj))
		default:
			return nil, fmt.Errorf("wire: unsupported type id %d in v1", typeID)
		}
	}
	return result, nil
}

func decodeListV1(data []byte, offset int) (Value, int, error) {
	if offset+3 > len(data) {
		return Value{}, offset, fmt.Errorf("wire: truncated list header")
	}
	elemType := data[offset]
	offset++
	count := int(binary.BigEndian.Uint16(data[offset : offset+2]))
	offset += 2

	items := make([]Value, 0, count)
	for i := 0; i < count; i++ {
		switch elemType {
		case TypeInt:
			v, next, err := decodeInt(data, offset)
			if err != nil {
				return Value{}, offset, err
			}
			offset = next
			items = append(items, Int(v))
		case TypeString:
			v, next, err := decodeStringV1(data, offset)
			if err != nil {
				return Value{}, offset, err
			}
			offset = next
			items = append(items, Str(v))
		case TypeObject:
			obj, next, err := decodeObjectV1(data, offset)
			if err != nil {
				return Value{}, offset, err
			}
			offset = next
			items = append(items, ObjVal(&obj))
		default:
			return Value{}, offset, fmt.Errorf("wire: unsupported list element type %d (v1)", elemType)
		}
	}
	return Value{Type: TypeList, List: items}, offset, nil
}

// --- v2 ---

func decodeStringV2(data []byte, offset int) (string, int, error) {
	if offset+4 > len(data) {
		return "", offset, fmt.Errorf("wire: truncated string length (v2)")
	}
	strLen := int(binary.BigEndian.Uint32(data[offset : offset+4]))
	offset += 4
	if offset+strLen > len(data) {
		return "", offset, fmt.Errorf("wire: truncated string data (v2)")
	}
	return string(data[offset : offset+strLen]), offset + strLen, nil
}

func decodeBytesV2(data []byte, offset int) ([]byte, int, error) {
	if offset+4 > len(data) {
		return nil, offset, fmt.Errorf("wire: truncated bytes length (v2)")
	}
	n := int(binary.BigEndian.Uint32(data[offset : offset+4]))
	offset += 4
	if offset+n > len(data) {
		return nil, offset, fmt.Errorf("wire: truncated bytes data (v2)")
	}
	out := make([]byte, n)
	copy(out, data[offset:offset+n])
	return out, offset + n, nil
}

func decodeObjectV2(data []byte, offset int) (Object, int, error) {
	if offset >= len(data) {
		return Object{}, offset, fmt.Errorf("wire: truncated object field count (v2)")
	}
	count := int(data[offset])
	offset++
	obj := *NewObject()
	for i := 0; i < count; i++ {
		name, next, err := decodeFieldName(data, offset)
		if err != nil {
			return Object{}, offset, err
		}
		offset = next
		if offset >= len(data) {
			return Object{}, offset, fmt.Errorf("wire: truncated object type id (v2)")
		}
		typeID := data[offset]
		offset++
		switch typeID {
		case TypeInt:
			v, next, err := decodeInt(data, offset)
			if err != nil {
				return Object{}, offset, err
			}
			offset = next
			obj.Set(name, Int(v))
		case TypeString:
			v, next, err := decodeStringV2(data, offset)
			if err != nil {
				return Object{}, offset, err
			}
			offset = next
			obj.Set(name, Str(v))
		case TypeBytes:
			v, next, err := decodeBytesV2(data, offset)
			if err != nil {
				return Object{}, offset, err
			}
			offset = next
			obj.Set(name, BytesVal(v))
		default:
			return Object{}, offset, fmt.Errorf("wire: nested lists/objects in object not supported (v2)")
		}
	}
	return obj, offset, nil
}

func decodeListV2(data []byte, offset int) (Value, int, error) {
	if offset+5 > len(data) {
		return Value{}, offset, fmt.Errorf("wire: truncated list header (v2)")
	}
	elemType := data[offset]
	offset++
	count := int(binary.BigEndian.Uint32(data[offset : offset+4]))
	offset += 4

	items := make([]Value, 0, count)
	for i := 0; i < count; i++ {
		switch elemType {
		case TypeInt:
			v, next, err := decodeInt(data, offset)
			if err != nil {
				return Value{}, offset, err
			}
			offset = next
			items = append(items, Int(v))
		case TypeString:
			v, next, err := decodeStringV2(data, offset)
			if err != nil {
				return Value{}, offset, err
			}
			offset = next
			items = append(items, Str(v))
		case TypeBytes:
			v, next, err := decodeBytesV2(data, offset)
			if err != nil {
				return Value{}, offset, err
			}
			offset = next
			items = append(items, BytesVal(v))
		case TypeObject:
			obj, next, err := decodeObjectV2(data, offset)
			if err != nil {
				return Value{}, offset, err
			}
			offset = next
			items = append(items, ObjVal(&obj))
		default:
			return Value{}, offset, fmt.Errorf("wire: unsupported list element type %d (v2)", elemType)
		}
	}
	return Value{Type: TypeList, List: items}, offset, nil
}

func decodeV2(data []byte) (*Object, error) {
	if len(data) < 6 {
		return nil, fmt.Errorf("wire: message too short for v2")
	}
	fieldCount := int(data[1])
	offset := 6
	result := NewObject()

	for i := 0; i < fieldCount; i++ {
		name, next, err := decodeFieldName(data, offset)
		if err != nil {
			return nil, err
		}
		offset = next
		if offset >= len(data) {
			return nil, fmt.Errorf("wire: truncated type id (v2)")
		}
		typeID := data[offset]
		offset++

		switch typeID {
		case TypeInt:
			v, next, err := decodeInt(data, offset)
			if err != nil {
				return nil, err
			}
			offset = next
			result.Set(name, Int(v))
		case TypeString:
			v, next, err := decodeStringV2(data, offset)
			if err != nil {
				return nil, err
			}
			offset = next
			result.Set(name, Str(v))
		case TypeBytes:
			v, next, err := decodeBytesV2(data, offset)
			if err != nil {
				return nil, err
			}
			offset = next
			result.Set(name, BytesVal(v))
		case TypeList:
			v, next, err := decodeListV2(data, offset)
			if err != nil {
				return nil, err
			}
			offset = next
			result.Set(name, v)
		case TypeObject:
			obj, next, err := decodeObjectV2(data, offset)
			if err != nil {
				return nil, err
			}
			offset = next
			result.Set(name, ObjVal(&obj))
		default:
			return nil, fmt.Errorf("wire: unsupported type id %d in v2", typeID)
		}
	}
	return result, nil
}

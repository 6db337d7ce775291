package wire

import (
	"encoding/binary"
	"fmt"
)

// Encode serializes fields as a message in the given version.
func Encode(version Version, fields *Object) ([]byte, error) {
	switch version {
	case V1:
		return encodeV1(fields)
	case V2:
		return encodeV2(fields)
	default:
		return nil, fmt.Errorf("wire: unsupported version %d", version)
	}
}

func encodeFieldName(out *[]byte, name string) error {
	nb := []byte(name)
	if len(nb) < 1 || len(nb) > 255 {
		return fmt.Errorf("wire: invalid field name length %d", len(nb))
	}
	*out = append(*out, byte(len(nb)))
	*out = append(*out, nb...)
	return nil
}

// --- v1 ---

func encodeStringV1(out *[]byte, s string) error {
	data := []byte(s)
	if len(data) > 0xFFFF {
		return fmt.Errorf("wire: string too long for v1")
	}
	lenBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(lenBuf, uint16(len(data)))
	*out = append(*out, lenBuf...)
	*out = append(*out, data...)
	return nil
}

func encodeObjectV1(obj Object) ([]byte, error) {
	var body []byte
	names := obj.Names()
	if len(names) > 255 {
		return nil, fmt.Errorf("wire: too many fields in object")
	}
	for _, name := range names {
		v, _ := obj.Get(name)
		if err := encodeFieldName(&body, name); err != nil {
			return nil, err
		}
		switch v.Type {
		case TypeInt:
			body = append(body, TypeInt)
			body = append(body, encodeInt(v.Int)...)
		case TypeString:
			body = append(body, TypeString)
			if err := encodeStringV1(&body, v.Str); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("wire: unsupported object field type %d in v1", v.Type)
		}
	}
	out := append([]byte{byte(len(names))}, body...)
	return out, nil
}

func encodeListV1(elemType byte, values []Value) ([]byte, error) {
	if len(values) > 0xFFFF {
		return nil, fmt.Errorf("wire: too many list elements for v1")
	}
	out := []byte{elemType}
	countBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(countBuf, uint16(len(values)))
	out = append(out, countBuf...)

	switch elemType {
	case TypeInt:
		for _, v := range values {
			out = append(out, encodeInt(v.Int)...)
		}
	case TypeString:
		for _, v := range values {
			if err := encodeStringV1(&out, v.Str); err != nil {
				return nil, err
			}
		}
	case TypeObject:
		for _, v := range values {
			encoded, err := encodeObjectV1(v.Object)
			if err != nil {
				return nil, err
			}
			out = append(out, encoded...)
		}
	default:
		return nil, fmt.Errorf("wire: unsupported list element type %d in v1", elemType)
	}
	return out, nil
}

func encodeV1(fields *Object) ([]byte, error) {
	var body []byte
	names := fields.Names()

	for _, name := range names {
		v, _ := fields.Get(name)
		if err := encodeFieldName(&body, name); err != nil {
			return nil, err
		}
		switch v.Type {
		case TypeInt:
			body = append(body, TypeInt)
			body = append(body, encodeInt(v.Int)...)
		case TypeString:
			body = append(body, TypeString)
			if err := encodeStringV1(&body, v.Str); err != nil {
				return nil, err
			}
		case TypeList:
			elemType, err := listElemType(v.List)
			if err != nil {
				return nil, err
			}
			body = append(body, TypeList)
			encoded, err := encodeListV1(elemType, v.List)
			if err != nil {
				return nil, err
			}
			body = append(body, encoded...)
		case TypeObject:
			body = append(body, TypeObject)
			encoded, err := encodeObjectV1(v.Object)
			if err != nil {
				return nil, err
			}
			body = append(body, encoded...)
		default:
			return nil, fmt.Errorf("wire: unsupported field type %d in v1", v.Type)
		}
	}

	if len(names) > 255 {
		return nil, fmt.Errorf("wire: too many fields")
	}
	totalLen := 4 + len(body)
	if totalLen > 0xFFFF {
		return nil, fmt.Errorf("wire: message too big for v1")
	}
	header := []byte{byte(V1), byte(len(names)), 0, 0}
	binary.BigEndian.PutUint16(header[2:], uint16(totalLen))
	return append(header, body...), nil
}

func listElemType(values []Value) (byte, error) {
	if len(values) == 0 {
		return TypeInt, nil
	}
	t := values[0].Type
	for _, v := range values {
		if v.Type != t {
			return 0, fmt.Errorf("wire: mixed-type lists not supported")
		}
	}
	return t, nil
}

// --- v2 ---

func encodeStringV2(out *[]byte, s string) {
	data := []byte(s)
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(data)))
	*out = append(*out, lenBuf...)
	*out = append(*out, data...)
}

func encodeBytesV2(out *[]byte, b []byte) {
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(b)))
	*out = append(*out, lenBuf...)
	*out = append(*out, b...)
}

func encodeObjectV2(obj Object) ([]byte, error) {
	var body []byte
	names := obj.Names()
	if len(names) > 255 {
		return nil, fmt.Errorf("wire: too many fields in object")
	}
	for _, name := range names {
		v, _ := obj.Get(name)
		if err := encodeFieldName(&body, name); err != nil {
			return nil, err
		}
		switch v.Type {
		case TypeInt:
			body = append(body, TypeInt)
			body = append(body, encodeInt(v.Int)...)
		case TypeString:
			body = append(body, TypeString)
			encodeStringV2(&body, v.Str)
		case TypeBytes:
			body = append(body, TypeBytes)
			encodeBytesV2(&body, v.Bytes)
		default:
			return nil, fmt.Errorf("wire: unsupported object field type %d in v2", v.Type)
		}
	}
	return append([]byte{byte(len(names))}, body...), nil
}

func encodeListV2(elemType byte, values []Value) ([]byte, error) {
	out := []byte{elemType}
	countBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(countBuf, uint32(len(values)))
	out = append(out, countBuf...)

	switch elemType {
	case TypeInt:
		for _, v := range values {
			out = append(out, encodeInt(v.Int)...)
		}
	case TypeString:
		for _, v := range values {
			encodeStringV2(&out, v.Str)
		}
	case TypeBytes:
		for _, v := range values {
			encodeBytesV2(&out, v.Bytes)
		}
	case TypeObject:
		for _, v := range values {
			encoded, err := encodeObjectV2(v.Object)
			if err != nil {
				return nil, err
			}
			out = append(out, encoded...)
		}
	default:
		return nil, fmt.Errorf("wire: unsupported list element type %d in v2", elemType)
	}
	return out, nil
}

func encodeV2(fields *Object) ([]byte, error) {
	var body []byte
	names := fields.Names()

	for _, name := range names {
		v, _ := fields.Get(name)
		if err := encodeFieldName(&body, name); err != nil {
			return nil, err
		}
		switch v.Type {
		case TypeInt:
			body = append(body, TypeInt)
			body = append(body, encodeInt(v.Int)...)
		case TypeString:
			body = append(body, TypeString)
			encodeStringV2(&body, v.Str)
		case TypeBytes:
			body = append(body, TypeBytes)
			encodeBytesV2(&body, v.Bytes)
		case TypeList:
			elemType, err := listElemType(v.List)
			if err != nil {
				return nil, err
			}
			body = append(body, TypeList)
			encoded, err := encodeListV2(elemType, v.List)
			if err != nil {
				return nil, err
			}
			body = append(body, encoded...)
		case TypeObject:
			body = append(body, TypeObject)
			encoded, err := encodeObjectV2(v.Object)
			if err != nil {
				return nil, err
			}
			body = append(body, encoded...)
		default:
			return nil, fmt.Errorf("wire: unsupported field type %d in v2", v.Type)
		}
	}

	if len(names) > 255 {
		return nil, fmt.Errorf("wire: too many fields")
	}
	header := make([]byte, 6)
	header[0] = byte(V2)
	header[1] = byte(len(names))
	binary.BigEndian.PutUint32(header[2:], uint32(6+len(body)))
	return append(header, body...), nil
}

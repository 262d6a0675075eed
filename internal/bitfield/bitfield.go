// Package bitfield packs and unpacks struct fields into integers.
// Simplified version based on golang.org/x/text/internal/gen/bitfield, adapted
// to also unpack (internal/board decodes the firmware's board revision
// word with Unpack).
package bitfield

import (
	"fmt"
	"reflect"
)

// Config determines settings for packing and unpacking.
type Config struct {
	// NumBits fixes the maximum allowed bits for the integer representation.
	NumBits uint
}

type field struct {
	index  int
	bits   uint
	offset uint
}

func fields(t reflect.Type) ([]field, error) {
	var fs []field
	var offset uint
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("bitfield")
		if tag == "" {
			continue
		}
		var bits uint
		if _, err := fmt.Sscanf(tag, ",%d", &bits); err != nil {
			var methodName string
			if _, err := fmt.Sscanf(tag, "%s,%d", &methodName, &bits); err != nil {
				return nil, fmt.Errorf("bitfield: invalid tag %q on field %s", tag, t.Field(i).Name)
			}
		}
		if bits == 0 {
			continue
		}
		fs = append(fs, field{index: i, bits: bits, offset: offset})
		offset += bits
	}
	return fs, nil
}

// Pack packs annotated bit ranges of struct x into an integer.
// Only fields with a "bitfield" tag are packed.
func Pack(x interface{}, c *Config) (packed uint64, err error) {
	if c == nil {
		c = &Config{NumBits: 64}
	}

	v := reflect.ValueOf(x)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return 0, fmt.Errorf("bitfield.Pack: expected struct, got %v", v.Kind())
	}

	fs, err := fields(v.Type())
	if err != nil {
		return 0, err
	}

	var bitOffset uint
	for _, f := range fs {
		fv := v.Field(f.index)
		var bits uint64
		switch fv.Kind() {
		case reflect.Bool:
			if fv.Bool() {
				bits = 1
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			bits = fv.Uint()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			sv := fv.Int()
			if sv < 0 {
				return 0, fmt.Errorf("bitfield.Pack: negative value %d for field %s", sv, v.Type().Field(f.index).Name)
			}
			bits = uint64(sv)
		default:
			return 0, fmt.Errorf("bitfield.Pack: unsupported field type %v for field %s", fv.Kind(), v.Type().Field(f.index).Name)
		}

		maxValue := uint64((1 << f.bits) - 1)
		if bits > maxValue {
			return 0, fmt.Errorf("bitfield.Pack: value %d exceeds %d bits for field %s", bits, f.bits, v.Type().Field(f.index).Name)
		}

		packed |= bits << f.offset
		bitOffset = f.offset + f.bits
	}

	if c.NumBits > 0 && bitOffset > c.NumBits {
		return 0, fmt.Errorf("bitfield.Pack: total bits %d exceeds NumBits %d", bitOffset, c.NumBits)
	}
	return packed, nil
}

// Unpack is Pack's inverse: it reads bit ranges back out of packed and
// stores them into the tagged fields of the struct pointed to by x.
func Unpack(packed uint64, x interface{}, c *Config) error {
	v := reflect.ValueOf(x)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("bitfield.Unpack: expected pointer to struct, got %v", v.Kind())
	}
	v = v.Elem()

	fs, err := fields(v.Type())
	if err != nil {
		return err
	}

	for _, f := range fs {
		mask := uint64((1 << f.bits) - 1)
		bits := (packed >> f.offset) & mask
		fv := v.Field(f.index)
		if !fv.CanSet() {
			continue
		}
		switch fv.Kind() {
		case reflect.Bool:
			fv.SetBool(bits != 0)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			fv.SetUint(bits)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			fv.SetInt(int64(bits))
		default:
			return fmt.Errorf("bitfield.Unpack: unsupported field type %v for field %s", fv.Kind(), v.Type().Field(f.index).Name)
		}
	}
	return nil
}

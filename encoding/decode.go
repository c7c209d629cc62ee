package encoding

import (
	"reflect"
	"unsafe"

	"github.com/modern-go/reflect2"
	"github.com/pkg/errors"

	"github.com/wnxd/microtrace/emulator"
)

// Decode fills each pointer in vals from consecutive slots of stream. A nil
// entry skips one slot. Integers take one slot, strings and pointers
// dereference guest memory, structs and arrays take one slot per element.
func Decode(stream Stream, vals ...any) error {
	for i, val := range vals {
		if val == nil || reflect2.IsNil(val) {
			if err := stream.Skip(1); err != nil {
				return err
			}
			continue
		}
		typ := reflect2.TypeOf(val)
		if typ.Kind() != reflect.Pointer {
			return errors.Wrapf(ErrNotAPointer, "argument %d: %s", i, typ)
		}
		elem := typ.(reflect2.PtrType).Elem()
		if err := decode(stream, elem, reflect2.PtrOf(val)); err != nil {
			return errors.Wrapf(err, "argument %d", i)
		}
	}
	return nil
}

func decode(stream Stream, typ reflect2.Type, ptr unsafe.Pointer) error {
	switch typ.Kind() {
	case reflect.Struct:
		return decodeStruct(stream, typ.(reflect2.StructType), ptr)
	case reflect.Array:
		return decodeArray(stream, typ.(reflect2.ArrayType), ptr)
	}
	slot, err := stream.ReadSlot()
	if err != nil {
		return err
	}
	switch typ.Kind() {
	case reflect.Bool:
		*(*bool)(ptr) = slot != 0
	case reflect.Int8:
		*(*int8)(ptr) = int8(slot)
	case reflect.Int16:
		*(*int16)(ptr) = int16(slot)
	case reflect.Int32:
		*(*int32)(ptr) = int32(slot)
	case reflect.Int64:
		*(*int64)(ptr) = int64(slot)
	case reflect.Int:
		*(*int)(ptr) = signed(slot, stream.BlockSize())
	case reflect.Uint8:
		*(*uint8)(ptr) = uint8(slot)
	case reflect.Uint16:
		*(*uint16)(ptr) = uint16(slot)
	case reflect.Uint32:
		*(*uint32)(ptr) = uint32(slot)
	case reflect.Uint64:
		*(*uint64)(ptr) = slot
	case reflect.Uint, reflect.Uintptr:
		*(*uint)(ptr) = uint(slot)
	case reflect.String:
		return decodeString(stream, slot, ptr)
	case reflect.Pointer:
		return decodePointer(stream, typ.(reflect2.PtrType).Elem(), slot, ptr)
	default:
		return errors.Wrapf(ErrUnsupported, "%s", typ)
	}
	return nil
}

func decodeStruct(stream Stream, typ reflect2.StructType, ptr unsafe.Pointer) error {
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.Tag().Get("encoding") == "ignore" {
			continue
		}
		err := decode(stream, field.Type(), unsafe.Add(ptr, field.Offset()))
		if err != nil {
			return errors.Wrapf(err, "field %s", field.Name())
		}
	}
	return nil
}

func decodeArray(stream Stream, typ reflect2.ArrayType, ptr unsafe.Pointer) error {
	elem := typ.Elem()
	size := elem.Type1().Size()
	for i := 0; i < typ.Len(); i++ {
		err := decode(stream, elem, unsafe.Add(ptr, uintptr(i)*size))
		if err != nil {
			return err
		}
	}
	return nil
}

func decodeString(stream Stream, addr uint64, ptr unsafe.Pointer) error {
	if addr == 0 {
		*(*string)(ptr) = ""
		return nil
	}
	mem := stream.Memory()
	if mem == nil {
		return ErrNoMemory
	}
	str, err := emulator.ToPointer(mem, addr).MemReadString()
	if err != nil && !errors.Is(err, emulator.ErrStringTruncated) {
		return err
	}
	*(*string)(ptr) = str
	return err
}

// decodePointer copies the guest object at addr verbatim; the layout of elem
// must match the guest ABI.
func decodePointer(stream Stream, elem reflect2.Type, addr uint64, ptr unsafe.Pointer) error {
	if addr == 0 {
		*(*unsafe.Pointer)(ptr) = nil
		return nil
	}
	mem := stream.Memory()
	if mem == nil {
		return ErrNoMemory
	}
	obj := elem.UnsafeNew()
	err := emulator.ToPointer(mem, addr).MemReadPtr(uint64(elem.Type1().Size()), obj)
	if err != nil {
		return err
	}
	*(*unsafe.Pointer)(ptr) = obj
	return nil
}

func signed(slot uint64, blockSize int) int {
	if blockSize == 4 {
		return int(int32(slot))
	}
	return int(int64(slot))
}

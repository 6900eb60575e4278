package util

import (
	"encoding/binary"
	"math"
	"reflect"

	"github.com/pkg/errors"
)

type Datatype int

const (
	DatatypeByte Datatype = iota
	DatatypeInt32
	DatatypeInt64
	DatatypeFloat64
)

// ByteSize returns the number of bytes one value of this datatype occupies.
func (d Datatype) ByteSize() int {
	switch d {
	case DatatypeByte:
		return 1
	case DatatypeInt32:
		return 4
	case DatatypeInt64:
		return 8
	case DatatypeFloat64:
		return 8
	}
	return 0
}

type BinaryItem interface {
	Write(object any, data []byte, index int) (int, error)
	Read(object any, data []byte, index int) (int, error)
}

type BinarySchema struct {
	Items []BinaryItem // All items of this object schema. They are written and read in the given order.
}

func (b *BinarySchema) Write(object any, data []byte, index int) (int, error) {
	var err error

	for _, item := range b.Items {
		index, err = item.Write(object, data, index)
		if err != nil {
			return -1, err
		}
	}

	return index, nil
}

func (b *BinarySchema) Read(object any, data []byte, index int) (int, error) {
	var err error

	for _, item := range b.Items {
		index, err = item.Read(object, data, index)
		if err != nil {
			return -1, err
		}
	}

	return index, nil
}

// ByteSize returns the size of one record of this schema. All items must be plain BinaryDataItem entries.
func (b *BinarySchema) ByteSize() int {
	size := 0
	for _, item := range b.Items {
		dataItem, ok := item.(*BinaryDataItem)
		if !ok {
			return -1
		}
		size += dataItem.BinaryType.ByteSize()
	}
	return size
}

type BinaryDataItem struct {
	FieldName  string   // Name of the golang struct field.
	BinaryType Datatype // Type this field should be stored to. This has to be compatible with the FieldType.
}

func (b *BinaryDataItem) Write(object any, data []byte, index int) (int, error) {
	field := reflect.Indirect(reflect.ValueOf(object)).FieldByName(b.FieldName)
	return writeBinaryValue(b.BinaryType, b.FieldName, field, data, index)
}

func (b *BinaryDataItem) Read(object any, data []byte, index int) (int, error) {
	field := reflect.Indirect(reflect.ValueOf(object)).FieldByName(b.FieldName)
	return readBinaryValue(b.BinaryType, b.FieldName, field, data, index)
}

func writeBinaryValue(binaryType Datatype, fieldName string, value reflect.Value, data []byte, index int) (int, error) {
	switch binaryType {
	case DatatypeByte:
		data[index] = byte(value.Uint())
		index += 1
	case DatatypeInt32:
		binary.LittleEndian.PutUint32(data[index:], uint32(value.Int()))
		index += 4
	case DatatypeInt64:
		binary.LittleEndian.PutUint64(data[index:], uint64(value.Int()))
		index += 8
	case DatatypeFloat64:
		binary.LittleEndian.PutUint64(data[index:], math.Float64bits(value.Float()))
		index += 8
	default:
		return -1, errors.Errorf("Unsupported datatype %d for field %s", binaryType, fieldName)
	}
	return index, nil
}

func readBinaryValue(binaryType Datatype, fieldName string, value reflect.Value, data []byte, index int) (int, error) {
	switch binaryType {
	case DatatypeByte:
		value.Set(reflect.ValueOf(data[index]))
		index += 1
	case DatatypeInt32:
		value.Set(reflect.ValueOf(int32(binary.LittleEndian.Uint32(data[index:]))))
		index += 4
	case DatatypeInt64:
		value.Set(reflect.ValueOf(int64(binary.LittleEndian.Uint64(data[index:]))))
		index += 8
	case DatatypeFloat64:
		value.Set(reflect.ValueOf(math.Float64frombits(binary.LittleEndian.Uint64(data[index:]))))
		index += 8
	default:
		return -1, errors.Errorf("Unsupported datatype %d for field %s", binaryType, fieldName)
	}

	return index, nil
}

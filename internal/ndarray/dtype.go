// Package ndarray models the rectangular numeric arrays that chunks and
// bands are made of. It is the narrow, Go-native stand-in for the original
// engine's typed-array payloads.
package ndarray

import "fmt"

// DType is a Zarr-style dtype string, e.g. "<f4", "|u1", "<i2".
type DType string

const (
	DTypeI1 DType = "<i1"
	DTypeU1 DType = "|u1"
	DTypeI2 DType = "<i2"
	DTypeU2 DType = "<u2"
	DTypeI4 DType = "<i4"
	DTypeU4 DType = "<u4"
	DTypeU8 DType = "<u8"
	DTypeF4 DType = "<f4"
	DTypeF8 DType = "<f8"
	DTypeS1 DType = "|S1"
)

// DefaultFillValue returns the spec-mandated default fill value for a dtype
// when the pyramid metadata does not supply one explicitly. Values per
// spec.md §6.
func (d DType) DefaultFillValue() (float64, error) {
	switch d {
	case DTypeS1:
		return 0, nil // \x00
	case DTypeI1:
		return -127, nil
	case DTypeU1:
		return 255, nil
	case DTypeI2:
		return -32767, nil
	case DTypeU2:
		return 65535, nil
	case DTypeI4:
		return -2147483647, nil
	case DTypeU4:
		return 4294967295, nil
	case DTypeU8:
		return 1.8446744073709552e19, nil
	case DTypeF4, DTypeF8:
		return 9.969209968386869e36, nil
	default:
		return 0, fmt.Errorf("ndarray: unknown dtype %q", d)
	}
}

// ByteWidth returns the size in bytes of one element of this dtype.
func (d DType) ByteWidth() int {
	switch d {
	case DTypeS1, DTypeI1, DTypeU1:
		return 1
	case DTypeI2, DTypeU2:
		return 2
	case DTypeI4, DTypeU4, DTypeF4:
		return 4
	case DTypeU8, DTypeF8:
		return 8
	default:
		return 8
	}
}

package ntfs

import (
	"unicode/utf16"

	"encoding/binary"

	"github.com/dsoprea/go-logging"
)

// UnicodeFromUtf16le decodes raw little-endian UTF-16 data into a string. An
// embedded NUL terminates the string (on-disk labels are frequently padded
// with trailing NULs up to their field size).
func UnicodeFromUtf16le(raw []byte) string {
	units := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		unit := binary.LittleEndian.Uint16(raw[i : i+2])
		if unit == 0 {
			break
		}

		units = append(units, unit)
	}

	return string(utf16.Decode(units))
}

// Utf16leFromUnicode encodes a string into little-endian UTF-16 bytes.
func Utf16leFromUnicode(s string) []byte {
	units := utf16.Encode([]rune(s))

	raw := make([]byte, len(units)*2)
	for i, unit := range units {
		binary.LittleEndian.PutUint16(raw[i*2:], unit)
	}

	return raw
}

// IsPowerOf2 indicates whether the value is a non-zero power of two.
func IsPowerOf2(value uint64) bool {
	return value != 0 && value&(value-1) == 0
}

// Align rounds the value up to the next multiple of the alignment.
func Align(value, alignment uint64) uint64 {
	if remainder := value % alignment; remainder != 0 {
		value += alignment - remainder
	}

	return value
}

// IsAligned indicates whether the value is a multiple of the alignment.
func IsAligned(value, alignment uint64) bool {
	if IsPowerOf2(alignment) == true {
		return value&(alignment-1) == 0
	}

	return value%alignment == 0
}

func assertAligned(value, alignment uint64, description string) {
	if IsAligned(value, alignment) != true {
		log.Panicf("%s not aligned: (%d) %% (%d)", description, value, alignment)
	}
}

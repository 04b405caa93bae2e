// This file decodes the $AttrDef system file, which defines the attribute
// types the volume supports and their constraints.

package ntfs

import (
	"fmt"
	"reflect"

	"unicode/utf16"

	"github.com/dsoprea/go-logging"
)

const (
	attrDefEntrySize = 160
)

const (
	AttrDefFlagIndexed     = 0x02
	AttrDefFlagResident    = 0x40
	AttrDefFlagNonResident = 0x80
)

// AttrDefEntry is one 160-byte entry of the $AttrDef table.
type AttrDefEntry struct {
	// Label is the attribute name, NUL-padded UTF-16.
	Label [64]uint16

	Type          uint32
	DisplayRule   uint32
	CollationRule uint32
	Flags         uint32

	MinimumSize uint64
	MaximumSize uint64
}

// Name decodes the label.
func (ade AttrDefEntry) Name() string {
	length := 0
	for length < len(ade.Label) && ade.Label[length] != 0 {
		length++
	}

	return string(utf16.Decode(ade.Label[:length]))
}

// String returns a description of the entry.
func (ade AttrDefEntry) String() string {
	return fmt.Sprintf("AttrDef<LABEL=[%s] TYPE=(0x%03x)>", ade.Name(), ade.Type)
}

// LoadAttrDefs reads and decodes the volume's $AttrDef file. The table ends
// at the first entry with an empty label.
func LoadAttrDefs(volume *Volume) (entries []AttrDefEntry, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			if classified, ok := errRaw.(Error); ok == true {
				err = classified
			} else if errInner, ok := errRaw.(error); ok == true {
				err = log.Wrap(errInner)
			} else {
				err = log.Errorf("Error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	file, err := NewFileFromIndex(volume, SystemFileAttrDef)
	log.PanicIf(err)

	defer file.Close()

	buffer := make([]byte, file.AlignedSize)

	_, err = file.Read(0, buffer)
	log.PanicIf(err)

	content := buffer[:file.Size]

	entries = make([]AttrDefEntry, 0)
	for position := 0; position+attrDefEntrySize <= len(content); position += attrDefEntrySize {
		entry := AttrDefEntry{}

		err = parseStruct(content[position:position+attrDefEntrySize], &entry)
		log.PanicIf(err)

		if entry.Label[0] == 0 {
			break
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

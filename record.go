// This file decodes individual MFT file records: the fixed record header,
// followed by the variable-length attribute table.

package ntfs

import (
	"fmt"
	"reflect"

	"github.com/dsoprea/go-logging"
)

// ResidentAttr is the body of an attribute whose value is stored inline in
// the record. Data is a non-owning slice into the record buffer; it stays
// valid for as long as the owning File is open.
type ResidentAttr struct {
	Data []byte
	Size uint32
}

// NonResidentAttr is the body of an attribute whose value is stored in
// clusters referenced by the run list.
type NonResidentAttr struct {
	Size        uint64
	AlignedSize uint64
	Runs        []DataRun
}

// Attr is one parsed attribute of an MFT record. Exactly one of Resident and
// NonResident is set.
type Attr struct {
	Type  AttrType
	Flags AttrFlags
	Id    uint16

	// nameRaw aliases the record buffer; nil for the unnamed attribute.
	nameRaw []byte

	Resident    *ResidentAttr
	NonResident *NonResidentAttr
}

// IsUnnamed indicates that the attribute carries no name (the main $DATA
// stream of a file is unnamed).
func (attr *Attr) IsUnnamed() bool {
	return attr.nameRaw == nil
}

// Name returns the attribute's name, or the empty string for the unnamed
// attribute.
func (attr *Attr) Name() string {
	if attr.nameRaw == nil {
		return ""
	}

	return UnicodeFromUtf16le(attr.nameRaw)
}

// String returns a description of the attribute.
func (attr *Attr) String() string {
	if attr.NonResident != nil {
		return fmt.Sprintf("Attr<TYPE=[%s] NAME=[%s] NONRESIDENT SIZE=(%d) ALIGNED=(%d) RUNS=(%d)>", attr.Type, attr.Name(), attr.NonResident.Size, attr.NonResident.AlignedSize, len(attr.NonResident.Runs))
	}

	return fmt.Sprintf("Attr<TYPE=[%s] NAME=[%s] RESIDENT SIZE=(%d)>", attr.Type, attr.Name(), attr.Resident.Size)
}

// MftRecord is one parsed MFT file record: the raw (arena-owned) record
// bytes plus the decoded attribute list.
type MftRecord struct {
	index  uint64
	isDir  bool
	buffer []byte

	attrList DynList[Attr]
}

// Index returns the record's MFT index.
func (record *MftRecord) Index() uint64 {
	return record.index
}

// IsDir indicates that the record describes a directory.
func (record *MftRecord) IsDir() bool {
	return record.isDir
}

// Buffer returns the raw record bytes.
func (record *MftRecord) Buffer() []byte {
	return record.buffer
}

// Attrs returns the parsed attributes in on-disk order.
func (record *MftRecord) Attrs() []Attr {
	return record.attrList.Items()
}

// FindAttr returns the first attribute of the given type, or nil.
func (record *MftRecord) FindAttr(attrType AttrType) *Attr {
	for i := 0; i < record.attrList.Len(); i++ {
		attr := record.attrList.At(i)
		if attr.Type == attrType {
			return attr
		}
	}

	return nil
}

// FindUnnamedDataAttr returns the first unnamed $DATA attribute (the file's
// main content stream), or nil.
func (record *MftRecord) FindUnnamedDataAttr() *Attr {
	for i := 0; i < record.attrList.Len(); i++ {
		attr := record.attrList.At(i)
		if attr.Type == AttributeTypeData && attr.IsUnnamed() == true {
			return attr
		}
	}

	return nil
}

// loadRecordFromIndex reads one MFT record into the arena, validates the
// record header, and walks the attribute table.
//
// Note that the update sequence array is not applied, so the final two bytes
// of each sector inside the record buffer are the sequence value rather than
// the original content.
func loadRecordFromIndex(volume *Volume, arena *Arena, index uint64) (record *MftRecord, err error) {
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

	recordOffset := volume.MftCluster()*volume.BytesPerCluster() + index*volume.BytesPerMftEntry()

	buffer := arena.Alloc(volume.BytesPerMftEntry())
	if err := volume.Read(recordOffset, buffer); err != nil {
		panic(ErrRecordFailedRead)
	}

	rh := RecordHeader{}

	err = parseStruct(buffer[:recordHeaderSize], &rh)
	log.PanicIf(err)

	isValid := rh.Magic == fileRecordMagic
	isValid = isValid && uint32(rh.AttributesOffset) < rh.RealSize
	isValid = isValid && rh.RealSize <= rh.AllocatedSize
	isValid = isValid && uint64(rh.AllocatedSize) == volume.BytesPerMftEntry()
	isValid = isValid && uint64(rh.MftIndex) == index
	isValid = isValid && rh.Flags&RecordFlagInUse > 0
	if isValid != true {
		panic(ErrRecordFailedValidation)
	}

	record = &MftRecord{
		index:  uint64(rh.MftIndex),
		isDir:  rh.Flags&RecordFlagIsDirectory > 0,
		buffer: buffer,
	}

	position := uint64(rh.AttributesOffset)
	end := uint64(rh.RealSize)
	for position+4 <= end {
		marker := defaultEncoding.Uint32(buffer[position:])
		if marker == fileRecordAttrEndMarker {
			break
		}

		attr, totalSize := parseAttr(volume, buffer, position, end)
		record.attrList.Push(attr)

		position += totalSize
	}

	return record, nil
}

// parseAttr decodes the attribute whose header starts at `position`,
// panicking with ErrRecordFailedValidation on any structural contradiction.
func parseAttr(volume *Volume, buffer []byte, position, end uint64) (attr Attr, totalSize uint64) {
	if position+attrHeaderSize > end {
		panic(ErrRecordFailedValidation)
	}

	ah := AttrHeader{}

	err := parseStruct(buffer[position:position+attrHeaderSize], &ah)
	log.PanicIf(err)

	totalSize = uint64(ah.TotalSize)

	// The walker advances by the attribute's total size; a size that is too
	// small or that escapes the record bound can not be stepped over.
	if totalSize < attrHeaderSize || position+totalSize > end {
		panic(ErrRecordFailedValidation)
	}

	attr = Attr{
		Type:  ah.Type,
		Flags: ah.Flags,
		Id:    ah.Id,
	}

	if ah.NameLength > 0 {
		nameOffset := uint64(ah.NameOffset)
		nameSize := uint64(ah.NameLength) * 2
		if nameOffset+nameSize > totalSize {
			panic(ErrRecordFailedValidation)
		}

		attr.nameRaw = buffer[position+nameOffset : position+nameOffset+nameSize]
	}

	if ah.NonResidentFlag == 1 {
		if totalSize < attrHeaderSize+attrNonResidentHeaderSize {
			panic(ErrRecordFailedValidation)
		}

		nrh := AttrNonResidentHeader{}

		err := parseStruct(buffer[position+attrHeaderSize:position+attrHeaderSize+attrNonResidentHeaderSize], &nrh)
		log.PanicIf(err)

		if nrh.RealSize > nrh.AllocatedSize {
			panic(ErrRecordFailedValidation)
		} else if IsAligned(nrh.AllocatedSize, volume.BytesPerCluster()) != true {
			panic(ErrRecordFailedValidation)
		}

		runsOffset := uint64(nrh.DataRunsOffset)
		if runsOffset < attrHeaderSize || runsOffset > totalSize {
			panic(ErrRecordFailedValidation)
		}

		runList, err := loadDataRuns(buffer[position+runsOffset : position+totalSize])
		log.PanicIf(err)

		attr.NonResident = &NonResidentAttr{
			Size:        nrh.RealSize,
			AlignedSize: nrh.AllocatedSize,
			Runs:        runList.Items(),
		}
	} else {
		if totalSize < attrHeaderSize+attrResidentHeaderSize {
			panic(ErrRecordFailedValidation)
		}

		rh := AttrResidentHeader{}

		err := parseStruct(buffer[position+attrHeaderSize:position+attrHeaderSize+attrResidentHeaderSize], &rh)
		log.PanicIf(err)

		if uint64(rh.Offset)+uint64(rh.Size) > totalSize {
			panic(ErrRecordFailedValidation)
		}

		resident := &ResidentAttr{
			Size: rh.Size,
		}

		if rh.Size > 0 {
			dataOffset := position + uint64(rh.Offset)
			resident.Data = buffer[dataOffset : dataOffset+uint64(rh.Size)]
		}

		attr.Resident = resident
	}

	return attr, totalSize
}

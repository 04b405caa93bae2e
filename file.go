// This file provides the high-level view of one MFT record: timestamps,
// flags, name, parent, and content sizes, stitched together from
// $STANDARD_INFORMATION, $FILE_NAME, and the unnamed $DATA attribute.

package ntfs

import (
	"fmt"
	"reflect"
	"time"

	"github.com/dsoprea/go-logging"
)

const (
	// Seconds between the FILETIME epoch (1601-01-01) and the Unix epoch.
	filetimeEpochDeltaSeconds = 11644473600
)

// TimeFromFiletime converts a FILETIME value (100ns ticks since 1601-01-01
// UTC) into a time.Time. The span exceeds what a time.Duration can hold, so
// the conversion goes through Unix seconds.
func TimeFromFiletime(value uint64) time.Time {
	seconds := int64(value/10000000) - filetimeEpochDeltaSeconds
	nanoseconds := int64(value%10000000) * 100

	return time.Unix(seconds, nanoseconds).UTC()
}

// File is the usable view of one file on the volume. The raw record bytes and
// the name are carved out of one arena, which Close destroys. The attribute
// list and the run lists are ordinary Go slices, not arena memory; Close drops
// the record that references them.
type File struct {
	volume *Volume
	arena  *Arena
	record *MftRecord

	// The four FILETIME timestamps from $STANDARD_INFORMATION.
	CreationTime uint64
	ModifiedTime uint64
	ChangedTime  uint64
	ReadTime     uint64

	Flags FileFlags

	// ParentIndex is the MFT index of the containing directory.
	ParentIndex uint64

	// Size is the exact content size; AlignedSize is the cluster-rounded
	// allocation. Both are zero when the record has no unnamed $DATA (e.g.
	// directories).
	Size        uint64
	AlignedSize uint64

	nameRaw []byte
}

// NewFileFromIndex decodes the MFT record at `index` into a File. The
// returned File must be closed on both success and failure of subsequent
// operations.
func NewFileFromIndex(volume *Volume, index uint64) (file *File, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			// Release whatever was acquired before the failure.
			if file != nil {
				file.Close()
				file = nil
			}

			if classified, ok := errRaw.(Error); ok == true {
				err = classified
			} else if errInner, ok := errRaw.(error); ok == true {
				err = log.Wrap(errInner)
			} else {
				err = log.Errorf("Error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	arena := NewArena()

	record, err := loadRecordFromIndex(volume, arena, index)
	if err != nil {
		arena.Destroy()
		log.PanicIf(err)
	}

	file = &File{
		volume: volume,
		arena:  arena,
		record: record,
	}

	hasStdInfo := false
	hasFileName := false
	for _, attr := range record.Attrs() {
		if attr.Type == AttributeTypeStandardInformation && attr.Resident != nil {
			hasStdInfo = true

			err := file.loadStandardInformation(&attr)
			log.PanicIf(err)
		} else if attr.Type == AttributeTypeFileName && attr.Resident != nil {
			hasFileName = true

			err := file.loadFileName(&attr)
			log.PanicIf(err)
		} else if attr.Type == AttributeTypeData && attr.IsUnnamed() == true {
			if attr.NonResident != nil {
				file.Size = attr.NonResident.Size
				file.AlignedSize = attr.NonResident.AlignedSize
			} else {
				file.Size = uint64(attr.Resident.Size)
				file.AlignedSize = Align(file.Size, volume.BytesPerCluster())
			}
		}
	}

	if hasStdInfo != true || hasFileName != true {
		panic(ErrFileFailedInfoValidation)
	}

	return file, nil
}

func (file *File) loadStandardInformation(attr *Attr) (err error) {
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

	if len(attr.Resident.Data) < 36 {
		panic(ErrFileFailedInfoValidation)
	}

	sih := StandardInformationHeader{}

	err = parseStruct(attr.Resident.Data[:36], &sih)
	log.PanicIf(err)

	file.CreationTime = sih.CreationTime
	file.ModifiedTime = sih.ModifiedTime
	file.ChangedTime = sih.ChangedTime
	file.ReadTime = sih.ReadTime
	file.Flags = FileFlags(sih.Flags)

	// A FILETIME is never negative.
	isValid := file.CreationTime&(1<<63) == 0
	isValid = isValid && file.ModifiedTime&(1<<63) == 0
	isValid = isValid && file.ChangedTime&(1<<63) == 0
	isValid = isValid && file.ReadTime&(1<<63) == 0
	if isValid != true {
		panic(ErrFileFailedInfoValidation)
	}

	return nil
}

func (file *File) loadFileName(attr *Attr) (err error) {
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

	data := attr.Resident.Data
	if len(data) < 0x42 {
		panic(ErrFileFailedInfoValidation)
	}

	fnh := FileNameHeader{}

	err = parseStruct(data[:0x42], &fnh)
	log.PanicIf(err)

	file.ParentIndex = fnh.ParentIndex()

	nameSize := uint64(fnh.NameLength) * 2
	if nameSize > uint64(len(data))-0x42 {
		panic(ErrFileFailedInfoValidation)
	}

	// Copy the name out of the record buffer so the file carries its own.
	file.nameRaw = file.arena.PushCopy(data[0x42 : 0x42+nameSize])

	return nil
}

// Record returns the underlying parsed MFT record.
func (file *File) Record() *MftRecord {
	return file.record
}

// Name returns the file name from $FILE_NAME.
func (file *File) Name() string {
	return UnicodeFromUtf16le(file.nameRaw)
}

// IsDir indicates that this is a directory.
func (file *File) IsDir() bool {
	return file.record.IsDir()
}

// Close releases everything the file owns. It tolerates repeated calls and
// partially-initialised files.
func (file *File) Close() {
	if file.arena != nil {
		file.arena.Destroy()
		file.arena = nil
	}

	file.record = nil
	file.nameRaw = nil
}

// String returns a description of the file.
func (file *File) String() string {
	return fmt.Sprintf("File<NAME=[%s] SIZE=(%d) DIR=[%v]>", file.Name(), file.Size, file.IsDir())
}

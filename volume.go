// This file manages access to one NTFS volume: locating it on the underlying
// medium (directly, or behind an MBR partition table), deriving the geometry
// from the boot sector, and loading the volume metadata files.

package ntfs

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"reflect"
	"runtime"

	"encoding/binary"
	"unicode/utf16"

	"github.com/dsoprea/go-logging"
)

var (
	requiredOemId = []byte("NTFS    ")
)

// Volume knows where to find the statically-located NTFS structures and how
// to read sector-aligned ranges of the underlying medium. It is read-only
// after open; concurrent reads through one Volume are safe as long as the
// underlying io.ReaderAt supports positioned concurrent reads.
type Volume struct {
	reader io.ReaderAt

	// closer is only set when the volume opened the handle itself.
	closer io.Closer

	startOffset       uint64
	bytesPerSector    uint64
	sectorsPerCluster uint64
	bytesPerCluster   uint64
	bytesPerMftEntry  uint64
	mftCluster        uint64
	serialNumber      uint64

	name string

	// caseTable is the raw $UpCase content (65,536 little-endian UTF-16
	// units), owned by the volume's arena.
	caseTable []byte
	arena     *Arena
}

// OpenVolume opens the raw volume device for a drive letter and parses it.
func OpenVolume(driveLetter byte) (volume *Volume, err error) {
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

	f, err := os.Open(volumeDevicePath(driveLetter))
	if err != nil {
		return nil, ErrVolumeOpen
	}

	volume, err = loadVolume(f, f, 0)
	if err != nil {
		f.Close()
		log.PanicIf(err)
	}

	return volume, nil
}

func volumeDevicePath(driveLetter byte) string {
	if runtime.GOOS == "windows" {
		return fmt.Sprintf(`\\.\%c:`, driveLetter)
	}

	// There is no drive-letter convention elsewhere; the path will simply
	// fail to open and surface as ErrVolumeOpen.
	return fmt.Sprintf("%c:", driveLetter)
}

// OpenVolumeFromFile opens a disk-image file and parses the NTFS volume in
// it. An image that starts with an NTFS boot sector is used directly; any
// other signed sector is treated as an MBR and the first used partition
// entry selects the volume position.
func OpenVolumeFromFile(filepath string) (volume *Volume, err error) {
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

	f, err := os.Open(filepath)
	if err != nil {
		return nil, ErrVolumeOpen
	}

	volume, err = loadVolumeFromReader(f, f)
	if err != nil {
		f.Close()
		log.PanicIf(err)
	}

	return volume, nil
}

// NewVolume parses the NTFS volume that starts at `startOffset` of the
// reader. How the reader is obtained (device handle, image file, memory
// buffer) is the caller's responsibility; the volume does not assume
// ownership and will not close it.
func NewVolume(reader io.ReaderAt, startOffset uint64) (volume *Volume, err error) {
	volume, err = loadVolume(reader, nil, startOffset)
	if err != nil {
		return nil, err
	}

	return volume, nil
}

// NewVolumeFromReader parses a whole disk image from the reader, walking the
// MBR partition table when the image does not start with an NTFS boot
// sector. The reader is not closed by the volume.
func NewVolumeFromReader(reader io.ReaderAt) (volume *Volume, err error) {
	volume, err = loadVolumeFromReader(reader, nil)
	if err != nil {
		return nil, err
	}

	return volume, nil
}

func loadVolumeFromReader(reader io.ReaderAt, closer io.Closer) (volume *Volume, err error) {
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

	bootSector := make([]byte, bootRecordSize)
	if _, err := reader.ReadAt(bootSector, 0); err != nil {
		panic(ErrVolumeReadBootRecord)
	}

	signature := defaultEncoding.Uint16(bootSector[510:])
	if signature != bootRecordSignature {
		panic(ErrVolumeUnknownSignature)
	}

	// A bare volume image carries the NTFS VBR in its first sector rather
	// than an MBR.
	if bytes.Equal(bootSector[0x03:0x0b], requiredOemId) == true {
		volume, err := loadVolume(reader, closer, 0)
		log.PanicIf(err)

		return volume, nil
	}

	for i := 0; i < mbrPartitionEntryCount; i++ {
		entryOffset := mbrPartitionTableOffset + i*mbrPartitionEntrySize
		entryRaw := bootSector[entryOffset : entryOffset+mbrPartitionEntrySize]

		pe := MbrPartitionEntry{}

		err = parseStruct(entryRaw, &pe)
		log.PanicIf(err)

		if pe.IsUsed() == true {
			volume, err := loadVolume(reader, closer, pe.ByteOffset())
			log.PanicIf(err)

			return volume, nil
		}
	}

	panic(ErrVolumePartitionNotFound)
}

func loadVolume(reader io.ReaderAt, closer io.Closer, startOffset uint64) (volume *Volume, err error) {
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

	// Seed the sector size so the first aligned read works.
	volume = &Volume{
		reader:         reader,
		closer:         closer,
		startOffset:    startOffset,
		bytesPerSector: bootRecordSize,
	}

	bootSector := make([]byte, bootRecordSize)
	if err := volume.Read(0, bootSector); err != nil {
		panic(ErrVolumeReadBootRecord)
	}

	bsh, err := NewBootSectorHeaderFromBytes(bootSector)
	log.PanicIf(err)

	volume.bytesPerSector = uint64(bsh.BytesPerSector)
	volume.sectorsPerCluster = uint64(bsh.SectorsPerCluster)
	volume.bytesPerCluster = bsh.BytesPerCluster()
	volume.bytesPerMftEntry = bsh.BytesPerFileRecord()
	volume.mftCluster = bsh.MftClusterNumber
	volume.serialNumber = bsh.SerialNumber

	isValid := IsPowerOf2(volume.bytesPerSector)
	isValid = isValid && IsPowerOf2(volume.sectorsPerCluster)
	isValid = isValid && volume.bytesPerMftEntry <= volume.bytesPerCluster
	if isValid != true {
		panic(ErrVolumeFailedValidation)
	}

	err = volume.loadInformation()
	log.PanicIf(err)

	return volume, nil
}

// loadInformation reads the $Volume and $UpCase system files: the volume
// name, the format revision (3.1 only), and the case table used for
// case-insensitive name comparison.
func (volume *Volume) loadInformation() (err error) {
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

	volumeFile, err := NewFileFromIndex(volume, SystemFileVolume)
	if err != nil {
		panic(ErrVolumeFailedLoadInfoFile)
	}

	defer volumeFile.Close()

	for _, attr := range volumeFile.Record().Attrs() {
		if attr.Resident == nil {
			continue
		}

		if attr.Type == AttributeTypeVolumeName {
			nameRaw := attr.Resident.Data
			if len(nameRaw) > volumeNameMaxLength*2 {
				nameRaw = nameRaw[:volumeNameMaxLength*2]
			}

			volume.name = UnicodeFromUtf16le(nameRaw)
		} else if attr.Type == AttributeTypeVolumeInformation {
			vih := VolumeInformationHeader{}

			err = parseStruct(attr.Resident.Data, &vih)
			log.PanicIf(err)

			if vih.MajorVersion != 3 || vih.MinorVersion != 1 {
				panic(ErrVolumeUnsupportedVersion)
			}
		}
	}

	err = volume.loadCaseTable()
	log.PanicIf(err)

	return nil
}

func (volume *Volume) loadCaseTable() (err error) {
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

	upCaseFile, err := NewFileFromIndex(volume, SystemFileUpCase)
	if err != nil {
		panic(ErrVolumeFailedLoadCaseTable)
	}

	defer upCaseFile.Close()

	dataAttr := upCaseFile.Record().FindUnnamedDataAttr()

	if dataAttr == nil || dataAttr.NonResident == nil {
		panic(ErrVolumeFailedLoadCaseTable)
	} else if dataAttr.NonResident.AlignedSize != upCaseTableSize {
		panic(ErrVolumeFailedLoadCaseTable)
	} else if len(dataAttr.NonResident.Runs) != 1 {
		panic(ErrVolumeFailedLoadCaseTable)
	}

	caseOffset := dataAttr.NonResident.Runs[0].StartLCN * volume.bytesPerCluster

	volume.arena = NewArena()
	volume.caseTable = volume.arena.Alloc(upCaseTableSize)

	if err := volume.Read(caseOffset, volume.caseTable); err != nil {
		panic(ErrVolumeFailedLoadCaseTable)
	}

	return nil
}

// Read reads one sector-aligned range of the volume. Both the offset and the
// buffer length must be multiples of the sector size.
func (volume *Volume) Read(from uint64, buffer []byte) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("Error not an error: [%s] [%v]", reflect.TypeOf(err).Name(), err)
			}
		}
	}()

	assertAligned(from, volume.bytesPerSector, "volume read offset")
	assertAligned(uint64(len(buffer)), volume.bytesPerSector, "volume read size")

	_, err = volume.reader.ReadAt(buffer, int64(from+volume.startOffset))
	log.PanicIf(err)

	return nil
}

// Close releases the reader handle (when the volume owns it) and the case
// table. It tolerates partially-initialised volumes and repeated calls.
func (volume *Volume) Close() {
	if volume.closer != nil {
		volume.closer.Close()
		volume.closer = nil
	}

	if volume.arena != nil {
		volume.arena.Destroy()
		volume.arena = nil
	}

	volume.reader = nil
	volume.caseTable = nil
}

// StartOffset returns the byte position of the NTFS partition within the
// underlying medium.
func (volume *Volume) StartOffset() uint64 {
	return volume.startOffset
}

// BytesPerSector returns the sector size.
func (volume *Volume) BytesPerSector() uint64 {
	return volume.bytesPerSector
}

// SectorsPerCluster returns the sectors-per-cluster count.
func (volume *Volume) SectorsPerCluster() uint64 {
	return volume.sectorsPerCluster
}

// BytesPerCluster returns the allocation-unit size.
func (volume *Volume) BytesPerCluster() uint64 {
	return volume.bytesPerCluster
}

// BytesPerMftEntry returns the size of one MFT file record.
func (volume *Volume) BytesPerMftEntry() uint64 {
	return volume.bytesPerMftEntry
}

// MftCluster returns the starting cluster of the $MFT file.
func (volume *Volume) MftCluster() uint64 {
	return volume.mftCluster
}

// SerialNumber returns the 64-bit volume serial number.
func (volume *Volume) SerialNumber() uint64 {
	return volume.serialNumber
}

// Name returns the volume label from $VOLUME_NAME.
func (volume *Volume) Name() string {
	return volume.name
}

// UpcaseUnit maps one UTF-16 unit through the volume's $UpCase table.
func (volume *Volume) UpcaseUnit(unit uint16) uint16 {
	if volume.caseTable == nil {
		return unit
	}

	return binary.LittleEndian.Uint16(volume.caseTable[int(unit)*2:])
}

// NamesEqual compares two names case-insensitively the way the filesystem
// does: unit by unit through the up-case table.
func (volume *Volume) NamesEqual(a, b string) bool {
	unitsA := utf16.Encode([]rune(a))
	unitsB := utf16.Encode([]rune(b))

	if len(unitsA) != len(unitsB) {
		return false
	}

	for i, unit := range unitsA {
		if volume.UpcaseUnit(unit) != volume.UpcaseUnit(unitsB[i]) {
			return false
		}
	}

	return true
}

// Dump prints the volume geometry and identity.
func (volume *Volume) Dump() {
	fmt.Printf("Volume\n")
	fmt.Printf("======\n")
	fmt.Printf("\n")

	fmt.Printf("StartOffset: (%d)\n", volume.startOffset)
	fmt.Printf("BytesPerSector: (%d)\n", volume.bytesPerSector)
	fmt.Printf("SectorsPerCluster: (%d)\n", volume.sectorsPerCluster)
	fmt.Printf("BytesPerCluster: (%d)\n", volume.bytesPerCluster)
	fmt.Printf("BytesPerMftEntry: (%d)\n", volume.bytesPerMftEntry)
	fmt.Printf("MftCluster: (%d)\n", volume.mftCluster)
	fmt.Printf("SerialNumber: (0x%016x)\n", volume.serialNumber)
	fmt.Printf("Name: [%s]\n", volume.name)
	fmt.Printf("\n")
}

// This file manages the low-level, on-disk storage structures.

package ntfs

import (
	"fmt"
	"reflect"

	"encoding/binary"

	"github.com/dsoprea/go-logging"
	"github.com/go-restruct/restruct"
)

var (
	defaultEncoding = binary.LittleEndian
)

const (
	bootRecordSize          = 512
	bootRecordSignature     = uint16(0xaa55)
	mbrPartitionTableOffset = 0x01be
	mbrPartitionEntrySize   = 0x10
	mbrPartitionEntryCount  = 4

	fileRecordMagic         = uint32(0x454c4946)
	fileRecordAttrEndMarker = uint32(0xffffffff)

	recordHeaderSize          = 48
	attrHeaderSize            = 16
	attrResidentHeaderSize    = 8
	attrNonResidentHeaderSize = 48

	upCaseTableSize = 128 * 1024

	volumeNameMaxLength = 127
)

// Indices of the system files that occupy the first MFT records on every
// NTFS volume.
const (
	SystemFileMft        = 0
	SystemFileMftMirror  = 1
	SystemFileLogFile    = 2
	SystemFileVolume     = 3
	SystemFileAttrDef    = 4
	SystemFileRootFolder = 5
	SystemFileBitmap     = 6
	SystemFileBoot       = 7
	SystemFileBadClus    = 8
	SystemFileSecure     = 9
	SystemFileUpCase     = 10
	SystemFileExtend     = 11
)

func parseStruct(raw []byte, x interface{}) (err error) {
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

	err = restruct.Unpack(raw, defaultEncoding, x)
	log.PanicIf(err)

	return nil
}

// BootSectorHeader is the BIOS parameter block occupying the first sector of
// an NTFS volume (the VBR, stored on disk as the $Boot file).
type BootSectorHeader struct {
	// Jump is the x86 jump over the BPB into the boot code.
	Jump [3]byte

	// OemId identifies the formatting filesystem. The valid value is, in
	// ASCII characters, "NTFS    ", which includes four trailing spaces.
	OemId [8]byte

	// BytesPerSector is the size of a hardware sector, commonly 512. Must be
	// a power of two.
	BytesPerSector uint16

	// SectorsPerCluster is the number of sectors per allocation unit. Must be
	// a power of two.
	SectorsPerCluster uint8

	// ReservedSectors is unused by NTFS and zero on real volumes.
	ReservedSectors uint16

	// MustBeZero1 directly corresponds to the FAT table-count/root-entries
	// range of the FAT-family BPB, which NTFS keeps zeroed.
	MustBeZero1 [3]byte

	// MustBeZero2 corresponds to the FAT small-sector count.
	MustBeZero2 uint16

	// MediaDescriptor is F8h for fixed disks.
	MediaDescriptor uint8

	// MustBeZero3 corresponds to the FAT sectors-per-FAT count.
	MustBeZero3 uint16

	// SectorsPerTrack aids legacy CHS boot-strapping. Unused here.
	SectorsPerTrack uint16

	// NumberOfHeads aids legacy CHS boot-strapping. Unused here.
	NumberOfHeads uint16

	// HiddenSectors is the number of sectors preceding the partition.
	HiddenSectors uint32

	// Unused1 is not used or checked by NTFS.
	Unused1 uint32

	// Unused2 is always 80 00 80 00 on a real volume.
	Unused2 uint32

	// TotalSectors is the total count of sectors in the volume.
	TotalSectors uint64

	// MftClusterNumber is the cluster holding the start of the $MFT file.
	// This is the bootstrap: the MFT record that describes the MFT itself is
	// found through this field.
	MftClusterNumber uint64

	// MftMirrorClusterNumber is the cluster of the $MFTMirr copy.
	MftMirrorClusterNumber uint64

	// ClustersPerFileRecord sizes one MFT file record. A positive value
	// denotes clusters; a negative value denotes 2 to the power of the
	// absolute value, in bytes (F6h = -10 -> 1024).
	ClustersPerFileRecord int8

	// Unused3 pads the file-record size field.
	Unused3 [3]byte

	// ClustersPerIndexBuffer sizes one index buffer, encoded the same way as
	// ClustersPerFileRecord.
	ClustersPerIndexBuffer int8

	// Unused4 pads the index-buffer size field.
	Unused4 [3]byte

	// SerialNumber is the 64-bit volume serial number.
	SerialNumber uint64

	// Checksum is unused and zero.
	Checksum uint32

	// BootCode holds the boot-strapping instructions.
	BootCode [426]byte

	// BootSignature must be AA55h. Any other value invalidates the sector.
	BootSignature uint16
}

// BytesPerCluster returns the derived allocation-unit size.
func (bsh BootSectorHeader) BytesPerCluster() uint64 {
	return uint64(bsh.BytesPerSector) * uint64(bsh.SectorsPerCluster)
}

// BytesPerFileRecord returns the derived MFT file-record size, decoding the
// negative power-of-two convention.
func (bsh BootSectorHeader) BytesPerFileRecord() uint64 {
	if bsh.ClustersPerFileRecord < 0 {
		return uint64(1) << uint(-bsh.ClustersPerFileRecord)
	}

	return uint64(bsh.ClustersPerFileRecord) * bsh.BytesPerCluster()
}

// Dump prints all of the BSH parameters along with the common calculated
// ones.
func (bsh BootSectorHeader) Dump() {
	fmt.Printf("Boot Sector Header\n")
	fmt.Printf("==================\n")
	fmt.Printf("\n")

	fmt.Printf("OemId: [%s]\n", string(bsh.OemId[:]))
	fmt.Printf("BytesPerSector: (%d)\n", bsh.BytesPerSector)
	fmt.Printf("SectorsPerCluster: (%d)\n", bsh.SectorsPerCluster)
	fmt.Printf("-> Bytes-per-cluster: (%d)\n", bsh.BytesPerCluster())
	fmt.Printf("MediaDescriptor: (0x%02x)\n", bsh.MediaDescriptor)
	fmt.Printf("HiddenSectors: (%d)\n", bsh.HiddenSectors)
	fmt.Printf("TotalSectors: (%d)\n", bsh.TotalSectors)
	fmt.Printf("MftClusterNumber: (%d)\n", bsh.MftClusterNumber)
	fmt.Printf("MftMirrorClusterNumber: (%d)\n", bsh.MftMirrorClusterNumber)
	fmt.Printf("ClustersPerFileRecord: (%d)\n", bsh.ClustersPerFileRecord)
	fmt.Printf("-> Bytes-per-file-record: (%d)\n", bsh.BytesPerFileRecord())
	fmt.Printf("ClustersPerIndexBuffer: (%d)\n", bsh.ClustersPerIndexBuffer)
	fmt.Printf("SerialNumber: (0x%016x)\n", bsh.SerialNumber)
	fmt.Printf("\n")
}

// String returns a description of the BSH.
func (bsh BootSectorHeader) String() string {
	return fmt.Sprintf("BootSector<SN=(0x%016x) MFT-CLUSTER=(%d)>", bsh.SerialNumber, bsh.MftClusterNumber)
}

// NewBootSectorHeaderFromBytes parses and signature-checks one boot sector.
func NewBootSectorHeaderFromBytes(raw []byte) (bsh BootSectorHeader, err error) {
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

	if len(raw) < bootRecordSize {
		log.Panicf("boot sector requires (%d) bytes: (%d)", bootRecordSize, len(raw))
	}

	err = parseStruct(raw[:bootRecordSize], &bsh)
	log.PanicIf(err)

	if bsh.BootSignature != bootRecordSignature {
		panic(ErrVolumeUnknownSignature)
	}

	return bsh, nil
}

// MbrPartitionEntry is one of the four 16-byte slots of a legacy MBR
// partition table.
type MbrPartitionEntry struct {
	Status      uint8
	ChsFirst    [3]byte
	Type        uint8
	ChsLast     [3]byte
	Lba         uint32
	SectorCount uint32
}

// IsUsed indicates that the slot describes a partition (non-zero type byte).
func (pe MbrPartitionEntry) IsUsed() bool {
	return pe.Type != 0
}

// ByteOffset returns the absolute byte position of the partition on the
// medium (LBA sectors are always 512 bytes in the MBR).
func (pe MbrPartitionEntry) ByteOffset() uint64 {
	return uint64(pe.Lba) * bootRecordSize
}

// RecordHeader is the fixed header of one MFT file record, before the
// attribute table.
type RecordHeader struct {
	// Magic is the ASCII string "FILE" for a live record ("BAAD" marks a
	// record with a detected multi-sector write failure).
	Magic uint32

	// UsaOffset/UsaCount locate the update sequence array. This decoder does
	// not apply the fix-up, so the last two bytes of each sector inside a
	// record are suspect.
	UsaOffset uint16
	UsaCount  uint16

	// Lsn is the $LogFile sequence number of the last record change.
	Lsn uint64

	SequenceNumber uint16
	HardLinkCount  uint16

	// AttributesOffset is the byte offset of the first attribute header.
	AttributesOffset uint16

	// Flags: 0x01 = record in use, 0x02 = directory.
	Flags uint16

	// RealSize/AllocatedSize bound the record content; AllocatedSize always
	// equals the volume's file-record size.
	RealSize      uint32
	AllocatedSize uint32

	// BaseRecord points at the base record when this is an extension record.
	BaseRecord uint64

	NextAttributeId uint16
	Reserved        uint16

	// MftIndex is the record's own index, which must agree with the position
	// it was read from.
	MftIndex uint32
}

const (
	RecordFlagInUse       = 0x0001
	RecordFlagIsDirectory = 0x0002
)

// AttrType is the type code of one MFT record attribute.
type AttrType uint32

const (
	AttributeTypeStandardInformation AttrType = 0x10
	AttributeTypeAttributeList       AttrType = 0x20
	AttributeTypeFileName            AttrType = 0x30
	AttributeTypeVolumeVersion       AttrType = 0x40
	AttributeTypeSecurityDescriptor  AttrType = 0x50
	AttributeTypeVolumeName          AttrType = 0x60
	AttributeTypeVolumeInformation   AttrType = 0x70
	AttributeTypeData                AttrType = 0x80
	AttributeTypeIndexRoot           AttrType = 0x90
	AttributeTypeIndexAllocation     AttrType = 0xa0
	AttributeTypeBitmap              AttrType = 0xb0
	AttributeTypeSymbolicLink        AttrType = 0xc0
	AttributeTypeEaInformation       AttrType = 0xd0
	AttributeTypeEa                  AttrType = 0xe0
	AttributeTypePropertySet         AttrType = 0xf0
	AttributeTypeLoggedUtilityStream AttrType = 0x100
)

// String returns the conventional name of the attribute type.
func (at AttrType) String() string {
	switch at {
	case AttributeTypeStandardInformation:
		return "Standard Information"
	case AttributeTypeAttributeList:
		return "Attribute List"
	case AttributeTypeFileName:
		return "File Name"
	case AttributeTypeVolumeVersion:
		return "Volume Version"
	case AttributeTypeSecurityDescriptor:
		return "Security Descriptor"
	case AttributeTypeVolumeName:
		return "Volume Name"
	case AttributeTypeVolumeInformation:
		return "Volume Information"
	case AttributeTypeData:
		return "Data"
	case AttributeTypeIndexRoot:
		return "Index Root"
	case AttributeTypeIndexAllocation:
		return "Index Allocation"
	case AttributeTypeBitmap:
		return "Bitmap"
	case AttributeTypeSymbolicLink:
		return "Symbolic Link"
	case AttributeTypeEaInformation:
		return "Ea Information"
	case AttributeTypeEa:
		return "Ea"
	case AttributeTypePropertySet:
		return "Property Set"
	case AttributeTypeLoggedUtilityStream:
		return "Logged Utility Stream"
	}

	return "(unknown)"
}

// AttrHeader is the common header shared by resident and non-resident
// attributes.
type AttrHeader struct {
	Type            AttrType
	TotalSize       uint32
	NonResidentFlag uint8
	NameLength      uint8
	NameOffset      uint16
	Flags           AttrFlags
	Id              uint16
}

// AttrFlags represents the storage-transform flags of an attribute's data.
type AttrFlags uint16

const (
	AttrFlagCompressed AttrFlags = 0x0001
	AttrFlagEncrypted  AttrFlags = 0x4000
	AttrFlagSparse     AttrFlags = 0x8000
)

// IsCompressed indicates that the data is stored compressed.
func (af AttrFlags) IsCompressed() bool {
	return af&AttrFlagCompressed > 0
}

// IsEncrypted indicates that the data is stored encrypted.
func (af AttrFlags) IsEncrypted() bool {
	return af&AttrFlagEncrypted > 0
}

// IsSparse indicates that the data has unallocated runs.
func (af AttrFlags) IsSparse() bool {
	return af&AttrFlagSparse > 0
}

// AttrResidentHeader is the body header of a resident attribute (the value
// follows inside the record).
type AttrResidentHeader struct {
	Size        uint32
	Offset      uint16
	IndexedFlag uint8
	Reserved    uint8
}

// AttrNonResidentHeader is the body header of a non-resident attribute (the
// value lives in clusters referenced by the data runs).
type AttrNonResidentHeader struct {
	FirstVcn        uint64
	LastVcn         uint64
	DataRunsOffset  uint16
	CompressionUnit uint16
	Reserved        uint32

	// AllocatedSize is cluster-aligned; RealSize is the value's exact byte
	// size and never exceeds it.
	AllocatedSize   uint64
	RealSize        uint64
	InitializedSize uint64
}

// StandardInformationHeader is the leading, always-present portion of a
// $STANDARD_INFORMATION value.
type StandardInformationHeader struct {
	// The four FILETIME timestamps (100ns ticks since 1601-01-01 UTC). A
	// valid FILETIME never has its top bit set.
	CreationTime uint64
	ModifiedTime uint64
	ChangedTime  uint64
	ReadTime     uint64

	Flags uint32
}

// FileNameHeader is the fixed portion of a $FILE_NAME value; the UTF-16 name
// itself follows it immediately.
type FileNameHeader struct {
	// ParentReference packs the parent directory's MFT index into the low 48
	// bits and its sequence number into the high 16.
	ParentReference uint64

	CreationTime uint64
	ModifiedTime uint64
	ChangedTime  uint64
	ReadTime     uint64

	AllocatedSize uint64
	RealSize      uint64

	Flags        uint32
	ReparseValue uint32

	// NameLength counts UTF-16 code units, not bytes.
	NameLength uint8
	Namespace  uint8
}

// ParentIndex unpacks the parent directory's MFT index.
func (fnh FileNameHeader) ParentIndex() uint64 {
	return fnh.ParentReference & 0x0000ffffffffffff
}

// VolumeInformationHeader is the $VOLUME_INFORMATION value carrying the
// on-disk format revision.
type VolumeInformationHeader struct {
	Reserved     uint64
	MajorVersion uint8
	MinorVersion uint8
	Flags        uint16
}

// FileFlags is the DOS-style attribute word stored in
// $STANDARD_INFORMATION.
type FileFlags uint32

const (
	FileFlagReadOnly          FileFlags = 0x0001
	FileFlagHidden            FileFlags = 0x0002
	FileFlagSystem            FileFlags = 0x0004
	FileFlagArchive           FileFlags = 0x0020
	FileFlagDevice            FileFlags = 0x0040
	FileFlagNormal            FileFlags = 0x0080
	FileFlagTemporary         FileFlags = 0x0100
	FileFlagSparseFile        FileFlags = 0x0200
	FileFlagReparsePoint      FileFlags = 0x0400
	FileFlagCompressed        FileFlags = 0x0800
	FileFlagOffline           FileFlags = 0x1000
	FileFlagNotContentIndexed FileFlags = 0x2000
	FileFlagEncrypted         FileFlags = 0x4000
)

// IsReadOnly indicates the DOS read-only flag.
func (ff FileFlags) IsReadOnly() bool {
	return ff&FileFlagReadOnly > 0
}

// IsHidden indicates the DOS hidden flag.
func (ff FileFlags) IsHidden() bool {
	return ff&FileFlagHidden > 0
}

// IsSystem indicates the DOS system flag.
func (ff FileFlags) IsSystem() bool {
	return ff&FileFlagSystem > 0
}

// IsArchive indicates the archive flag.
func (ff FileFlags) IsArchive() bool {
	return ff&FileFlagArchive > 0
}

// IsDevice indicates the device flag.
func (ff FileFlags) IsDevice() bool {
	return ff&FileFlagDevice > 0
}

// IsNormal indicates a file with no other flags set.
func (ff FileFlags) IsNormal() bool {
	return ff&FileFlagNormal > 0
}

// IsTemporary indicates the temporary flag.
func (ff FileFlags) IsTemporary() bool {
	return ff&FileFlagTemporary > 0
}

// IsSparseFile indicates a sparse data stream.
func (ff FileFlags) IsSparseFile() bool {
	return ff&FileFlagSparseFile > 0
}

// IsReparsePoint indicates an attached reparse point.
func (ff FileFlags) IsReparsePoint() bool {
	return ff&FileFlagReparsePoint > 0
}

// IsCompressed indicates a compressed data stream.
func (ff FileFlags) IsCompressed() bool {
	return ff&FileFlagCompressed > 0
}

// IsOffline indicates the offline flag.
func (ff FileFlags) IsOffline() bool {
	return ff&FileFlagOffline > 0
}

// IsNotContentIndexed indicates exclusion from content indexing.
func (ff FileFlags) IsNotContentIndexed() bool {
	return ff&FileFlagNotContentIndexed > 0
}

// IsEncrypted indicates an encrypted data stream.
func (ff FileFlags) IsEncrypted() bool {
	return ff&FileFlagEncrypted > 0
}

// DumpBareIndented prints the file flags with arbitrary indentation.
func (ff FileFlags) DumpBareIndented(indent string) {
	fmt.Printf("%sRaw Value: (%08b)\n", indent, uint32(ff))
	fmt.Printf("%sIsReadOnly: [%v]\n", indent, ff.IsReadOnly())
	fmt.Printf("%sIsHidden: [%v]\n", indent, ff.IsHidden())
	fmt.Printf("%sIsSystem: [%v]\n", indent, ff.IsSystem())
	fmt.Printf("%sIsArchive: [%v]\n", indent, ff.IsArchive())
	fmt.Printf("%sIsDevice: [%v]\n", indent, ff.IsDevice())
	fmt.Printf("%sIsNormal: [%v]\n", indent, ff.IsNormal())
	fmt.Printf("%sIsTemporary: [%v]\n", indent, ff.IsTemporary())
	fmt.Printf("%sIsSparseFile: [%v]\n", indent, ff.IsSparseFile())
	fmt.Printf("%sIsReparsePoint: [%v]\n", indent, ff.IsReparsePoint())
	fmt.Printf("%sIsCompressed: [%v]\n", indent, ff.IsCompressed())
	fmt.Printf("%sIsOffline: [%v]\n", indent, ff.IsOffline())
	fmt.Printf("%sIsNotContentIndexed: [%v]\n", indent, ff.IsNotContentIndexed())
	fmt.Printf("%sIsEncrypted: [%v]\n", indent, ff.IsEncrypted())
}

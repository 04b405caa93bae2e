// Shared fixtures: builders for synthetic NTFS volumes that the tests drive
// the parser against. The standard image is small but complete, with a boot
// sector, an MFT, the $Volume/$AttrDef/$UpCase system files, and a handful
// of content files (plus deliberately damaged records in the tail slots).

package ntfs

import (
	"encoding/binary"
	"unicode/utf16"
)

const (
	testBytesPerSector    = 512
	testSectorsPerCluster = 8
	testBytesPerCluster   = testBytesPerSector * testSectorsPerCluster
	testBytesPerMftEntry  = 1024
	testMftCluster        = 4
	testSerialNumber      = uint64(0x3d51a05800112233)

	testVolumeName = "TESTVOL"

	testUpCaseCluster  = 64
	testAttrDefCluster = 120

	// MFT indices of the content fixtures.
	TestFileIndexHello     = 16
	TestFileIndexScattered = 17
	TestFileIndexDir       = 18
	TestFileIndexBadMagic  = 19
	TestFileIndexBadSelf   = 20
	TestFileIndexNotInUse  = 21
	TestFileIndexNoName    = 22

	testRecordCount = 23

	testHelloContent = "Hello"

	// The scattered fixture occupies runs {2 @ 100} and {3 @ 200}.
	testScatteredSize        = 4*testBytesPerCluster + 123
	testScatteredAlignedSize = 5 * testBytesPerCluster

	testImageSize = 200*testBytesPerCluster + 3*testBytesPerCluster
)

func testAlign8(value int) int {
	return int(Align(uint64(value), 8))
}

func testBuildBootSector() []byte {
	raw := make([]byte, bootRecordSize)

	copy(raw[0x03:], []byte("NTFS    "))
	binary.LittleEndian.PutUint16(raw[0x0b:], testBytesPerSector)
	raw[0x0d] = testSectorsPerCluster
	raw[0x15] = 0xf8
	binary.LittleEndian.PutUint64(raw[0x28:], testImageSize/testBytesPerSector)
	binary.LittleEndian.PutUint64(raw[0x30:], testMftCluster)
	binary.LittleEndian.PutUint64(raw[0x38:], testMftCluster+1000)
	raw[0x40] = 0xf6 // -10 -> 1024 bytes per file record
	raw[0x44] = 0x01
	binary.LittleEndian.PutUint64(raw[0x48:], testSerialNumber)
	binary.LittleEndian.PutUint16(raw[0x1fe:], bootRecordSignature)

	return raw
}

// testBuildResidentAttr encodes one resident attribute with the given value.
func testBuildResidentAttr(attrType AttrType, name string, data []byte) []byte {
	nameRaw := Utf16leFromUnicode(name)

	dataOffset := testAlign8(attrHeaderSize + attrResidentHeaderSize + len(nameRaw))
	totalSize := testAlign8(dataOffset + len(data))

	raw := make([]byte, totalSize)

	binary.LittleEndian.PutUint32(raw[0x00:], uint32(attrType))
	binary.LittleEndian.PutUint32(raw[0x04:], uint32(totalSize))
	raw[0x08] = 0
	raw[0x09] = uint8(len(nameRaw) / 2)
	binary.LittleEndian.PutUint16(raw[0x0a:], uint16(attrHeaderSize+attrResidentHeaderSize))
	binary.LittleEndian.PutUint32(raw[0x10:], uint32(len(data)))
	binary.LittleEndian.PutUint16(raw[0x14:], uint16(dataOffset))

	copy(raw[attrHeaderSize+attrResidentHeaderSize:], nameRaw)
	copy(raw[dataOffset:], data)

	return raw
}

// testBuildNonResidentAttr encodes one non-resident attribute around the
// given packed run bytes.
func testBuildNonResidentAttr(attrType AttrType, name string, realSize, allocatedSize uint64, runs []byte) []byte {
	nameRaw := Utf16leFromUnicode(name)

	runsOffset := testAlign8(attrHeaderSize + attrNonResidentHeaderSize + len(nameRaw))
	totalSize := testAlign8(runsOffset + len(runs))

	raw := make([]byte, totalSize)

	binary.LittleEndian.PutUint32(raw[0x00:], uint32(attrType))
	binary.LittleEndian.PutUint32(raw[0x04:], uint32(totalSize))
	raw[0x08] = 1
	raw[0x09] = uint8(len(nameRaw) / 2)
	binary.LittleEndian.PutUint16(raw[0x0a:], uint16(attrHeaderSize+attrNonResidentHeaderSize))

	lastVcn := uint64(0)
	if allocatedSize > 0 {
		lastVcn = allocatedSize/testBytesPerCluster - 1
	}

	binary.LittleEndian.PutUint64(raw[0x18:], lastVcn)
	binary.LittleEndian.PutUint16(raw[0x20:], uint16(runsOffset))
	binary.LittleEndian.PutUint64(raw[0x28:], allocatedSize)
	binary.LittleEndian.PutUint64(raw[0x30:], realSize)
	binary.LittleEndian.PutUint64(raw[0x38:], realSize)

	copy(raw[attrHeaderSize+attrNonResidentHeaderSize:], nameRaw)
	copy(raw[runsOffset:], runs)

	return raw
}

func testBuildStandardInformation(flags uint32) []byte {
	raw := make([]byte, 48)

	// 2020-01-01T00:00:00Z and the three hours after it, as FILETIMEs.
	base := uint64(132223104000000000)
	binary.LittleEndian.PutUint64(raw[0x00:], base)
	binary.LittleEndian.PutUint64(raw[0x08:], base+36000000000)
	binary.LittleEndian.PutUint64(raw[0x10:], base+72000000000)
	binary.LittleEndian.PutUint64(raw[0x18:], base+108000000000)
	binary.LittleEndian.PutUint32(raw[0x20:], flags)

	return raw
}

func testBuildFileName(parentIndex uint64, name string) []byte {
	units := utf16.Encode([]rune(name))

	raw := make([]byte, 0x42+len(units)*2)

	binary.LittleEndian.PutUint64(raw[0x00:], parentIndex|uint64(1)<<48)
	raw[0x40] = uint8(len(units))
	raw[0x41] = 3 // Win32+DOS namespace

	copy(raw[0x42:], Utf16leFromUnicode(name))

	return raw
}

// testBuildRecord assembles one MFT file record from encoded attributes.
func testBuildRecord(index uint32, isDir bool, attrs ...[]byte) []byte {
	raw := make([]byte, testBytesPerMftEntry)

	flags := uint16(RecordFlagInUse)
	if isDir == true {
		flags |= RecordFlagIsDirectory
	}

	binary.LittleEndian.PutUint32(raw[0x00:], fileRecordMagic)
	binary.LittleEndian.PutUint16(raw[0x04:], recordHeaderSize)
	binary.LittleEndian.PutUint16(raw[0x10:], 1)
	binary.LittleEndian.PutUint16(raw[0x12:], 1)
	binary.LittleEndian.PutUint16(raw[0x14:], 0x38)
	binary.LittleEndian.PutUint16(raw[0x16:], flags)
	binary.LittleEndian.PutUint32(raw[0x1c:], testBytesPerMftEntry)
	binary.LittleEndian.PutUint16(raw[0x28:], uint16(len(attrs)+1))
	binary.LittleEndian.PutUint32(raw[0x2c:], index)

	position := 0x38
	for _, attr := range attrs {
		copy(raw[position:], attr)
		position += len(attr)
	}

	binary.LittleEndian.PutUint32(raw[position:], fileRecordAttrEndMarker)
	position += 4

	binary.LittleEndian.PutUint32(raw[0x18:], uint32(position))

	return raw
}

func testBuildUpCaseContent() []byte {
	raw := make([]byte, upCaseTableSize)

	for unit := 0; unit < 65536; unit++ {
		mapped := unit
		if unit >= 'a' && unit <= 'z' {
			mapped = unit - 0x20
		}

		binary.LittleEndian.PutUint16(raw[unit*2:], uint16(mapped))
	}

	return raw
}

func testBuildAttrDefEntry(label string, attrType uint32, flags uint32) []byte {
	raw := make([]byte, attrDefEntrySize)

	copy(raw[0:], Utf16leFromUnicode(label))
	binary.LittleEndian.PutUint32(raw[0x80:], attrType)
	binary.LittleEndian.PutUint32(raw[0x8c:], flags)
	binary.LittleEndian.PutUint64(raw[0x98:], 0xffffffffffffffff)

	return raw
}

func testBuildAttrDefContent() []byte {
	raw := make([]byte, 0)

	raw = append(raw, testBuildAttrDefEntry("$STANDARD_INFORMATION", 0x10, AttrDefFlagResident)...)
	raw = append(raw, testBuildAttrDefEntry("$ATTRIBUTE_LIST", 0x20, 0)...)
	raw = append(raw, testBuildAttrDefEntry("$FILE_NAME", 0x30, AttrDefFlagIndexed|AttrDefFlagResident)...)
	raw = append(raw, testBuildAttrDefEntry("$DATA", 0x80, 0)...)

	return raw
}

func testStandardRecord(index uint32, name string, extra ...[]byte) []byte {
	attrs := [][]byte{
		testBuildResidentAttr(AttributeTypeStandardInformation, "", testBuildStandardInformation(uint32(FileFlagSystem))),
		testBuildResidentAttr(AttributeTypeFileName, "", testBuildFileName(SystemFileRootFolder, name)),
	}
	attrs = append(attrs, extra...)

	return testBuildRecord(index, false, attrs...)
}

// testBuildVolumeImage builds the standard bare-volume image (VBR in sector
// zero, no partition table).
func testBuildVolumeImage() []byte {
	image := make([]byte, testImageSize)

	copy(image[0:], testBuildBootSector())

	records := make(map[uint32][]byte)

	// 0: $MFT, describing its own six clusters.
	records[SystemFileMft] = testStandardRecord(
		SystemFileMft, "$MFT",
		testBuildNonResidentAttr(AttributeTypeData, "", 6*testBytesPerCluster, 6*testBytesPerCluster,
			[]byte{0x11, 0x06, testMftCluster, 0x00}))

	// 3: $Volume, carrying the label and the 3.1 format revision.
	volumeInformation := make([]byte, 12)
	volumeInformation[0x08] = 3
	volumeInformation[0x09] = 1

	records[SystemFileVolume] = testStandardRecord(
		SystemFileVolume, "$Volume",
		testBuildResidentAttr(AttributeTypeVolumeName, "", Utf16leFromUnicode(testVolumeName)),
		testBuildResidentAttr(AttributeTypeVolumeInformation, "", volumeInformation))

	// 4: $AttrDef.
	attrDefContent := testBuildAttrDefContent()

	records[SystemFileAttrDef] = testStandardRecord(
		SystemFileAttrDef, "$AttrDef",
		testBuildNonResidentAttr(AttributeTypeData, "", uint64(len(attrDefContent)), testBytesPerCluster,
			[]byte{0x11, 0x01, testAttrDefCluster, 0x00}))

	// 10: $UpCase, 128KiB in a single 32-cluster run.
	records[SystemFileUpCase] = testStandardRecord(
		SystemFileUpCase, "$UpCase",
		testBuildNonResidentAttr(AttributeTypeData, "", upCaseTableSize, upCaseTableSize,
			[]byte{0x11, 0x20, testUpCaseCluster, 0x00}))

	// 16: a small file with resident content.
	records[TestFileIndexHello] = testStandardRecord(
		TestFileIndexHello, "hello.txt",
		testBuildResidentAttr(AttributeTypeData, "", []byte(testHelloContent)))

	// 17: a file scattered over two runs: clusters {2 @ 100} and {3 @ 200}.
	records[TestFileIndexScattered] = testStandardRecord(
		TestFileIndexScattered, "data.bin",
		testBuildNonResidentAttr(AttributeTypeData, "", testScatteredSize, testScatteredAlignedSize,
			[]byte{0x11, 0x02, 100, 0x11, 0x03, 100, 0x00}))

	// 18: a directory (no $DATA).
	records[TestFileIndexDir] = testBuildRecord(
		TestFileIndexDir, true,
		testBuildResidentAttr(AttributeTypeStandardInformation, "", testBuildStandardInformation(0)),
		testBuildResidentAttr(AttributeTypeFileName, "", testBuildFileName(SystemFileRootFolder, "subdir")))

	// 19: wrong record magic.
	badMagic := testStandardRecord(TestFileIndexBadMagic, "bad-magic")
	copy(badMagic[0:4], []byte("BAAD"))
	records[TestFileIndexBadMagic] = badMagic

	// 20: self-recorded index disagrees with the slot.
	records[TestFileIndexBadSelf] = testStandardRecord(99, "bad-self")

	// 21: in-use flag clear (a freed slot).
	notInUse := testStandardRecord(TestFileIndexNotInUse, "freed")
	binary.LittleEndian.PutUint16(notInUse[0x16:], 0)
	records[TestFileIndexNotInUse] = notInUse

	// 22: missing $FILE_NAME.
	records[TestFileIndexNoName] = testBuildRecord(
		TestFileIndexNoName, false,
		testBuildResidentAttr(AttributeTypeStandardInformation, "", testBuildStandardInformation(0)))

	mftOffset := testMftCluster * testBytesPerCluster
	for index := uint32(0); index < testRecordCount; index++ {
		record, found := records[index]
		if found != true {
			record = testStandardRecord(index, "unused")
		}

		copy(image[mftOffset+int(index)*testBytesPerMftEntry:], record)
	}

	copy(image[testUpCaseCluster*testBytesPerCluster:], testBuildUpCaseContent())
	copy(image[testAttrDefCluster*testBytesPerCluster:], testBuildAttrDefContent())

	// Content of the scattered file: an ascending byte pattern split across
	// its two runs.
	scattered := testBuildScatteredContent()
	copy(image[100*testBytesPerCluster:], scattered[:2*testBytesPerCluster])
	copy(image[200*testBytesPerCluster:], scattered[2*testBytesPerCluster:])

	return image
}

func testBuildScatteredContent() []byte {
	raw := make([]byte, testScatteredAlignedSize)
	for i := range raw {
		raw[i] = byte(i / testBytesPerCluster * 16)
	}

	return raw
}

// testBuildDiskImage wraps the standard volume image behind an MBR with a
// single NTFS partition at LBA 2048.
func testBuildDiskImage() []byte {
	volume := testBuildVolumeImage()

	partitionOffset := 2048 * bootRecordSize
	image := make([]byte, partitionOffset+len(volume))

	entry := image[mbrPartitionTableOffset:]
	entry[0x04] = 0x07 // NTFS/exFAT partition type
	binary.LittleEndian.PutUint32(entry[0x08:], 2048)
	binary.LittleEndian.PutUint32(entry[0x0c:], uint32(len(volume)/bootRecordSize))

	binary.LittleEndian.PutUint16(image[0x1fe:], bootRecordSignature)

	copy(image[partitionOffset:], volume)

	return image
}

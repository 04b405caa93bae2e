package ntfs

import (
	"bytes"
	"testing"

	"encoding/binary"

	"github.com/dsoprea/go-logging"
)

func getTestVolume() *Volume {
	volume, err := NewVolumeFromReader(bytes.NewReader(testBuildVolumeImage()))
	log.PanicIf(err)

	return volume
}

func TestNewVolumeFromReader_Geometry(t *testing.T) {
	volume := getTestVolume()

	defer volume.Close()

	if volume.StartOffset() != 0 {
		t.Fatalf("Start offset not correct: (%d)", volume.StartOffset())
	} else if volume.BytesPerSector() != 512 {
		t.Fatalf("Bytes-per-sector not correct: (%d)", volume.BytesPerSector())
	} else if volume.SectorsPerCluster() != 8 {
		t.Fatalf("Sectors-per-cluster not correct: (%d)", volume.SectorsPerCluster())
	} else if volume.BytesPerCluster() != 4096 {
		t.Fatalf("Bytes-per-cluster not correct: (%d)", volume.BytesPerCluster())
	} else if volume.BytesPerMftEntry() != 1024 {
		t.Fatalf("Bytes-per-MFT-entry not correct: (%d)", volume.BytesPerMftEntry())
	} else if volume.MftCluster() != testMftCluster {
		t.Fatalf("MFT cluster not correct: (%d)", volume.MftCluster())
	} else if volume.SerialNumber() != testSerialNumber {
		t.Fatalf("Serial number not correct: (0x%016x)", volume.SerialNumber())
	}
}

func TestNewVolumeFromReader_Information(t *testing.T) {
	volume := getTestVolume()

	defer volume.Close()

	if volume.Name() != testVolumeName {
		t.Fatalf("Volume name not correct: [%s]", volume.Name())
	}
}

func TestNewVolumeFromReader_DiskImage(t *testing.T) {
	volume, err := NewVolumeFromReader(bytes.NewReader(testBuildDiskImage()))
	if err != nil {
		t.Fatalf("Disk image did not open: [%s]", err)
	}

	defer volume.Close()

	if volume.StartOffset() != 2048*512 {
		t.Fatalf("Partition offset not correct: (%d)", volume.StartOffset())
	} else if volume.MftCluster()*volume.BytesPerCluster() != 16384 {
		t.Fatalf("MFT position not correct: (%d)", volume.MftCluster()*volume.BytesPerCluster())
	}

	if volume.Name() != testVolumeName {
		t.Fatalf("Volume name not correct behind the partition table: [%s]", volume.Name())
	}
}

func TestNewVolumeFromReader_BadSignature(t *testing.T) {
	image := testBuildVolumeImage()
	image[0x1fe] = 0x00

	_, err := NewVolumeFromReader(bytes.NewReader(image))
	if ErrorCode(err) != ErrVolumeUnknownSignature {
		t.Fatalf("Bad signature not detected: [%v]", err)
	}
}

func TestNewVolumeFromReader_PartitionNotFound(t *testing.T) {
	// A signed sector that is neither an NTFS VBR nor carries any used
	// partition slot.
	image := make([]byte, bootRecordSize)
	binary.LittleEndian.PutUint16(image[0x1fe:], bootRecordSignature)

	_, err := NewVolumeFromReader(bytes.NewReader(image))
	if ErrorCode(err) != ErrVolumePartitionNotFound {
		t.Fatalf("Empty partition table not detected: [%v]", err)
	}
}

func TestNewVolumeFromReader_FailedValidation(t *testing.T) {
	image := testBuildVolumeImage()

	// A non-power-of-two sector count per cluster.
	image[0x0d] = 3

	_, err := NewVolumeFromReader(bytes.NewReader(image))
	if ErrorCode(err) != ErrVolumeFailedValidation {
		t.Fatalf("Bad geometry not detected: [%v]", err)
	}
}

func TestNewVolumeFromReader_MftEntryLargerThanCluster(t *testing.T) {
	image := testBuildVolumeImage()

	// 2^13 = 8192 bytes per record, above the 4096-byte cluster.
	image[0x40] = 0xf3

	_, err := NewVolumeFromReader(bytes.NewReader(image))
	if ErrorCode(err) != ErrVolumeFailedValidation {
		t.Fatalf("Oversized MFT entry not detected: [%v]", err)
	}
}

func TestNewVolumeFromReader_UnsupportedVersion(t *testing.T) {
	image := testBuildVolumeImage()

	volumeInformation := make([]byte, 12)
	volumeInformation[0x08] = 3
	volumeInformation[0x09] = 2

	record := testStandardRecord(
		SystemFileVolume, "$Volume",
		testBuildResidentAttr(AttributeTypeVolumeName, "", Utf16leFromUnicode(testVolumeName)),
		testBuildResidentAttr(AttributeTypeVolumeInformation, "", volumeInformation))

	copy(image[testMftCluster*testBytesPerCluster+SystemFileVolume*testBytesPerMftEntry:], record)

	_, err := NewVolumeFromReader(bytes.NewReader(image))
	if ErrorCode(err) != ErrVolumeUnsupportedVersion {
		t.Fatalf("Unsupported version not detected: [%v]", err)
	}
}

func TestNewVolumeFromReader_FailedLoadInfoFile(t *testing.T) {
	image := testBuildVolumeImage()

	// Destroy the $Volume record magic.
	copy(image[testMftCluster*testBytesPerCluster+SystemFileVolume*testBytesPerMftEntry:], []byte("XXXX"))

	_, err := NewVolumeFromReader(bytes.NewReader(image))
	if ErrorCode(err) != ErrVolumeFailedLoadInfoFile {
		t.Fatalf("Broken $Volume record not detected: [%v]", err)
	}
}

func TestNewVolumeFromReader_FailedLoadCaseTable(t *testing.T) {
	image := testBuildVolumeImage()

	// An $UpCase whose allocation is only 64KiB.
	record := testStandardRecord(
		SystemFileUpCase, "$UpCase",
		testBuildNonResidentAttr(AttributeTypeData, "", 64*1024, 64*1024,
			[]byte{0x11, 0x10, testUpCaseCluster, 0x00}))

	copy(image[testMftCluster*testBytesPerCluster+SystemFileUpCase*testBytesPerMftEntry:], record)

	_, err := NewVolumeFromReader(bytes.NewReader(image))
	if ErrorCode(err) != ErrVolumeFailedLoadCaseTable {
		t.Fatalf("Short case table not detected: [%v]", err)
	}
}

func TestNewVolumeFromReader_FragmentedCaseTable(t *testing.T) {
	image := testBuildVolumeImage()

	// The right size, but split over two runs.
	record := testStandardRecord(
		SystemFileUpCase, "$UpCase",
		testBuildNonResidentAttr(AttributeTypeData, "", upCaseTableSize, upCaseTableSize,
			[]byte{0x11, 0x10, testUpCaseCluster, 0x11, 0x10, 0x10, 0x00}))

	copy(image[testMftCluster*testBytesPerCluster+SystemFileUpCase*testBytesPerMftEntry:], record)

	_, err := NewVolumeFromReader(bytes.NewReader(image))
	if ErrorCode(err) != ErrVolumeFailedLoadCaseTable {
		t.Fatalf("Fragmented case table not rejected: [%v]", err)
	}
}

func TestVolume_Read_Aligned(t *testing.T) {
	volume := getTestVolume()

	defer volume.Close()

	buffer := make([]byte, 512)

	err := volume.Read(0, buffer)
	log.PanicIf(err)

	if binary.LittleEndian.Uint16(buffer[0x1fe:]) != bootRecordSignature {
		t.Fatalf("Aligned read returned wrong content.")
	}
}

func TestVolume_Read_UnalignedRejected(t *testing.T) {
	volume := getTestVolume()

	defer volume.Close()

	buffer := make([]byte, 512)

	if err := volume.Read(100, buffer); err == nil {
		t.Fatalf("Unaligned read offset not rejected.")
	}

	if err := volume.Read(0, buffer[:100]); err == nil {
		t.Fatalf("Unaligned read size not rejected.")
	}
}

func TestVolume_UpcaseUnit(t *testing.T) {
	volume := getTestVolume()

	defer volume.Close()

	if volume.UpcaseUnit('a') != 'A' {
		t.Fatalf("Lowercase unit not mapped: (0x%04x)", volume.UpcaseUnit('a'))
	} else if volume.UpcaseUnit('A') != 'A' {
		t.Fatalf("Uppercase unit not stable: (0x%04x)", volume.UpcaseUnit('A'))
	} else if volume.UpcaseUnit('7') != '7' {
		t.Fatalf("Digit unit not stable: (0x%04x)", volume.UpcaseUnit('7'))
	}
}

func TestVolume_NamesEqual(t *testing.T) {
	volume := getTestVolume()

	defer volume.Close()

	if volume.NamesEqual("hello.txt", "HELLO.TXT") != true {
		t.Fatalf("Case-insensitive match failed.")
	} else if volume.NamesEqual("hello.txt", "Hello.Txt") != true {
		t.Fatalf("Mixed-case match failed.")
	} else if volume.NamesEqual("hello.txt", "hello.txz") == true {
		t.Fatalf("Distinct names matched.")
	} else if volume.NamesEqual("hello", "hello.txt") == true {
		t.Fatalf("Different-length names matched.")
	}
}

func TestVolume_Close_Idempotent(t *testing.T) {
	volume := getTestVolume()

	volume.Close()
	volume.Close()
}

func TestVolume_Dump(t *testing.T) {
	volume := getTestVolume()

	defer volume.Close()

	volume.Dump()
}

package ntfs

import (
	"bytes"
	"testing"

	"encoding/binary"

	"github.com/dsoprea/go-logging"
)

func TestLoadRecordFromIndex(t *testing.T) {
	volume := getTestVolume()

	defer volume.Close()

	arena := NewArena()

	defer arena.Destroy()

	record, err := loadRecordFromIndex(volume, arena, TestFileIndexHello)
	log.PanicIf(err)

	if record.Index() != TestFileIndexHello {
		t.Fatalf("Record index not correct: (%d)", record.Index())
	} else if record.IsDir() == true {
		t.Fatalf("File record reported as directory.")
	} else if len(record.Buffer()) != testBytesPerMftEntry {
		t.Fatalf("Record buffer size not correct: (%d)", len(record.Buffer()))
	}

	if len(record.Attrs()) != 3 {
		t.Fatalf("Attribute count not correct: (%d)", len(record.Attrs()))
	}

	if record.FindAttr(AttributeTypeStandardInformation) == nil {
		t.Fatalf("$STANDARD_INFORMATION not found.")
	} else if record.FindAttr(AttributeTypeFileName) == nil {
		t.Fatalf("$FILE_NAME not found.")
	} else if record.FindAttr(AttributeTypeBitmap) != nil {
		t.Fatalf("Absent attribute type reported found.")
	}
}

func TestLoadRecordFromIndex_Directory(t *testing.T) {
	volume := getTestVolume()

	defer volume.Close()

	arena := NewArena()

	defer arena.Destroy()

	record, err := loadRecordFromIndex(volume, arena, TestFileIndexDir)
	log.PanicIf(err)

	if record.IsDir() != true {
		t.Fatalf("Directory record not reported as directory.")
	}

	if record.FindUnnamedDataAttr() != nil {
		t.Fatalf("Directory has an unnamed $DATA attribute.")
	}
}

func TestLoadRecordFromIndex_ResidentData(t *testing.T) {
	volume := getTestVolume()

	defer volume.Close()

	arena := NewArena()

	defer arena.Destroy()

	record, err := loadRecordFromIndex(volume, arena, TestFileIndexHello)
	log.PanicIf(err)

	dataAttr := record.FindUnnamedDataAttr()
	if dataAttr == nil {
		t.Fatalf("Unnamed $DATA not found.")
	}

	if dataAttr.IsUnnamed() != true {
		t.Fatalf("Unnamed attribute reported named.")
	} else if dataAttr.NonResident != nil {
		t.Fatalf("Resident attribute carries a non-resident body.")
	} else if dataAttr.Resident.Size != uint32(len(testHelloContent)) {
		t.Fatalf("Resident size not correct: (%d)", dataAttr.Resident.Size)
	}

	if bytes.Equal(dataAttr.Resident.Data, []byte(testHelloContent)) != true {
		t.Fatalf("Resident data not correct: [%s]", string(dataAttr.Resident.Data))
	}
}

func TestLoadRecordFromIndex_NonResidentData(t *testing.T) {
	volume := getTestVolume()

	defer volume.Close()

	arena := NewArena()

	defer arena.Destroy()

	record, err := loadRecordFromIndex(volume, arena, TestFileIndexScattered)
	log.PanicIf(err)

	dataAttr := record.FindUnnamedDataAttr()
	if dataAttr == nil {
		t.Fatalf("Unnamed $DATA not found.")
	} else if dataAttr.Resident != nil {
		t.Fatalf("Non-resident attribute carries a resident body.")
	}

	if dataAttr.NonResident.Size != testScatteredSize {
		t.Fatalf("Real size not correct: (%d)", dataAttr.NonResident.Size)
	} else if dataAttr.NonResident.AlignedSize != testScatteredAlignedSize {
		t.Fatalf("Aligned size not correct: (%d)", dataAttr.NonResident.AlignedSize)
	}

	runs := dataAttr.NonResident.Runs
	if len(runs) != 2 {
		t.Fatalf("Run count not correct: (%d)", len(runs))
	}

	if runs[0].Count != 2 || runs[0].StartLCN != 100 {
		t.Fatalf("First run not correct: %s", runs[0])
	} else if runs[1].Count != 3 || runs[1].StartLCN != 200 {
		t.Fatalf("Second run not correct: %s", runs[1])
	}
}

func TestLoadRecordFromIndex_NamedAttr(t *testing.T) {
	image := testBuildVolumeImage()

	record := testStandardRecord(
		TestFileIndexHello, "streams.txt",
		testBuildResidentAttr(AttributeTypeData, "", []byte(testHelloContent)),
		testBuildResidentAttr(AttributeTypeData, "ads", []byte("alternate")))

	copy(image[testMftCluster*testBytesPerCluster+TestFileIndexHello*testBytesPerMftEntry:], record)

	volume2, err := NewVolumeFromReader(bytes.NewReader(image))
	log.PanicIf(err)

	defer volume2.Close()

	arena := NewArena()

	defer arena.Destroy()

	parsed, err := loadRecordFromIndex(volume2, arena, TestFileIndexHello)
	log.PanicIf(err)

	attrs := parsed.Attrs()
	if len(attrs) != 4 {
		t.Fatalf("Attribute count not correct: (%d)", len(attrs))
	}

	named := attrs[3]
	if named.IsUnnamed() == true {
		t.Fatalf("Named attribute reported unnamed.")
	} else if named.Name() != "ads" {
		t.Fatalf("Attribute name not correct: [%s]", named.Name())
	}

	// The unnamed stream must still be the one FindUnnamedDataAttr returns.
	dataAttr := parsed.FindUnnamedDataAttr()
	if dataAttr == nil || dataAttr.IsUnnamed() != true {
		t.Fatalf("Unnamed $DATA not selected.")
	}
}

func TestLoadRecordFromIndex_BadMagic(t *testing.T) {
	volume := getTestVolume()

	defer volume.Close()

	arena := NewArena()

	defer arena.Destroy()

	_, err := loadRecordFromIndex(volume, arena, TestFileIndexBadMagic)
	if ErrorCode(err) != ErrRecordFailedValidation {
		t.Fatalf("Bad magic not detected: [%v]", err)
	}
}

func TestLoadRecordFromIndex_SelfIndexMismatch(t *testing.T) {
	volume := getTestVolume()

	defer volume.Close()

	arena := NewArena()

	defer arena.Destroy()

	_, err := loadRecordFromIndex(volume, arena, TestFileIndexBadSelf)
	if ErrorCode(err) != ErrRecordFailedValidation {
		t.Fatalf("Self-index mismatch not detected: [%v]", err)
	}
}

func TestLoadRecordFromIndex_NotInUse(t *testing.T) {
	volume := getTestVolume()

	defer volume.Close()

	arena := NewArena()

	defer arena.Destroy()

	_, err := loadRecordFromIndex(volume, arena, TestFileIndexNotInUse)
	if ErrorCode(err) != ErrRecordFailedValidation {
		t.Fatalf("Freed record not detected: [%v]", err)
	}
}

func TestLoadRecordFromIndex_AttrEscapesRecord(t *testing.T) {
	image := testBuildVolumeImage()

	// Claim an attribute size that runs off the end of the record.
	recordOffset := testMftCluster*testBytesPerCluster + TestFileIndexHello*testBytesPerMftEntry
	binary.LittleEndian.PutUint32(image[recordOffset+0x38+0x04:], 0x7fffffff)

	volume, err := NewVolumeFromReader(bytes.NewReader(image))
	log.PanicIf(err)

	defer volume.Close()

	arena := NewArena()

	defer arena.Destroy()

	_, err = loadRecordFromIndex(volume, arena, TestFileIndexHello)
	if ErrorCode(err) != ErrRecordFailedValidation {
		t.Fatalf("Escaping attribute not detected: [%v]", err)
	}
}

func TestAttr_String(t *testing.T) {
	volume := getTestVolume()

	defer volume.Close()

	arena := NewArena()

	defer arena.Destroy()

	record, err := loadRecordFromIndex(volume, arena, TestFileIndexHello)
	log.PanicIf(err)

	for _, attr := range record.Attrs() {
		if attr.String() == "" {
			t.Fatalf("Attribute description empty.")
		}
	}
}

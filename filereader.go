// This file translates file-relative reads into cluster-aligned volume reads
// through the run list of the unnamed $DATA attribute.

package ntfs

import (
	"reflect"

	"github.com/dsoprea/go-logging"
)

// Read copies file content starting at `offset` into the buffer and returns
// the number of bytes read. Both `offset` and the buffer length must be
// multiples of the cluster size. Reads past the last run simply return the
// short count.
func (file *File) Read(offset uint64, buffer []byte) (resultSize int, err error) {
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

	if len(buffer) == 0 {
		return 0, nil
	}

	bytesPerCluster := file.volume.BytesPerCluster()

	assertAligned(offset, bytesPerCluster, "file read offset")
	assertAligned(uint64(len(buffer)), bytesPerCluster, "file read size")

	dataAttr := file.record.FindUnnamedDataAttr()
	if dataAttr == nil {
		panic(ErrFileReadDataAttrNotFound)
	}

	if dataAttr.Resident != nil {
		copySize := uint64(dataAttr.Resident.Size)
		if copySize > uint64(len(buffer)) {
			copySize = uint64(len(buffer))
		}

		copy(buffer, dataAttr.Resident.Data[:copySize])

		return int(copySize), nil
	}

	// The cursor walks the requested window while fileOffset tracks where
	// each run begins in the file. A run's full length always advances
	// fileOffset, regardless of how much of it the window consumed.

	cursor := offset
	remaining := uint64(len(buffer))
	fileOffset := uint64(0)
	bufferOffset := uint64(0)

	for _, run := range dataAttr.NonResident.Runs {
		if remaining == 0 {
			break
		}

		runSize := run.Count * bytesPerCluster

		if cursor < fileOffset+runSize {
			skip := cursor - fileOffset

			readSize := runSize - skip
			if readSize > remaining {
				readSize = remaining
			}

			readOffset := run.StartLCN*bytesPerCluster + skip

			if err := file.volume.Read(readOffset, buffer[bufferOffset:bufferOffset+readSize]); err != nil {
				panic(ErrFileReadFailed)
			}

			cursor += readSize
			bufferOffset += readSize
			remaining -= readSize
		}

		fileOffset += runSize
	}

	return int(bufferOffset), nil
}

// This file decodes the packed data-run sequence of a non-resident
// attribute. Each run is a header byte whose nibbles give the width of the
// length field and of the signed cluster-offset delta that follow it.

package ntfs

import (
	"fmt"
	"reflect"

	"github.com/dsoprea/go-logging"
)

// DataRun is one decoded extent of a non-resident attribute. StartLCN is the
// absolute starting cluster on the volume (the decoder has already
// accumulated the signed on-disk deltas); Count is the extent length in
// clusters.
type DataRun struct {
	StartLCN uint64
	Count    uint64
}

// String returns a description of the run.
func (run DataRun) String() string {
	return fmt.Sprintf("DataRun<LCN=(%d) COUNT=(%d)>", run.StartLCN, run.Count)
}

// loadDataRuns decodes data runs until the zero header byte or the end of
// the window. A delta of zero marks a sparse run: the emitted run repeats
// the previous position and describes clusters with no physical backing.
//
// A negative delta accumulated from the very first run wraps around the
// unsigned cluster position; the wrapped bit pattern is preserved as-is.
func loadDataRuns(window []byte) (runList DynList[DataRun], err error) {
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

	position := 0
	prevLcn := uint64(0)
	for position < len(window) {
		header := window[position]
		if header == 0 {
			break
		}

		lengthSize := int(header & 0x0f)
		offsetSize := int(header>>4) & 0x0f
		position++

		if position+lengthSize+offsetSize > len(window) {
			panic(ErrRecordFailedValidation)
		}

		length := uint64(0)
		for j := 0; j < lengthSize; j++ {
			length |= uint64(window[position]) << (8 * uint(j))
			position++
		}

		offset := int64(0)
		for j := 0; j < offsetSize; j++ {
			offset |= int64(window[position]) << (8 * uint(j))
			position++
		}

		// The delta is two's-complement: the high bit of its last byte is
		// the sign.
		if offsetSize > 0 && offsetSize < 8 && window[position-1]&0x80 != 0 {
			offset |= ^int64(0) << (8 * uint(offsetSize))
		}

		prevLcn += uint64(offset)

		runList.Push(DataRun{
			StartLCN: prevLcn,
			Count:    length,
		})
	}

	return runList, nil
}

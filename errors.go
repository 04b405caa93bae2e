// This package is a read-only parser for the NTFS on-disk format. It locates
// the MFT on a raw volume or disk image, decodes file records and their
// attributes, and reads file content by resolving non-resident data runs.

package ntfs

import (
	"github.com/go-errors/errors"
)

// Error is the stable failure classification carried by every constructor in
// this package. The zero value is ErrSuccess.
type Error int

const (
	ErrSuccess Error = iota
	ErrMemory

	// Volume related errors.
	ErrVolumeOpen
	ErrVolumeReadBootRecord
	ErrVolumeUnknownSignature
	ErrVolumePartitionNotFound
	ErrVolumeFailedValidation
	ErrVolumeFailedLoadInfoFile
	ErrVolumeUnsupportedVersion
	ErrVolumeFailedLoadCaseTable

	// File related errors.
	ErrRecordFailedRead
	ErrRecordFailedValidation
	ErrFileFailedInfoValidation
	ErrFileReadDataAttrNotFound
	ErrFileReadFailed
)

var errorStrings = map[Error]string{
	ErrSuccess:                   "ntfs success",
	ErrMemory:                    "ntfs failed to allocate memory",
	ErrVolumeOpen:                "ntfs failed opening handle to volume",
	ErrVolumeReadBootRecord:      "ntfs failed reading volume boot record",
	ErrVolumeUnknownSignature:    "ntfs failed unknown volume signature",
	ErrVolumePartitionNotFound:   "ntfs failed partition was not found",
	ErrVolumeFailedValidation:    "ntfs failed volume fields validation",
	ErrVolumeFailedLoadInfoFile:  "ntfs failed volume load information file",
	ErrVolumeUnsupportedVersion:  "ntfs failed volume unsupported version",
	ErrVolumeFailedLoadCaseTable: "ntfs failed volume load case table",
	ErrRecordFailedRead:          "ntfs failed reading mft file record",
	ErrRecordFailedValidation:    "ntfs failed file record validation",
	ErrFileFailedInfoValidation:  "ntfs failed file validation extra info",
	ErrFileReadDataAttrNotFound:  "ntfs failed file unnamed data attribute was not found",
	ErrFileReadFailed:            "ntfs failed file read",
}

// Error returns the description for the classification.
func (e Error) Error() string {
	if s, found := errorStrings[e]; found == true {
		return s
	}

	return ""
}

// ErrorCode extracts the Error classification from an error returned by this
// package. Errors that passed through a go-logging wrap are unwrapped first.
// Errors that did not originate as a classification map to ErrSuccess for nil
// and ErrMemory otherwise.
func ErrorCode(err error) Error {
	for err != nil {
		if code, ok := err.(Error); ok == true {
			return code
		}

		if wrapped, ok := err.(*errors.Error); ok == true {
			err = wrapped.Err
			continue
		}

		break
	}

	if err == nil {
		return ErrSuccess
	}

	return ErrMemory
}

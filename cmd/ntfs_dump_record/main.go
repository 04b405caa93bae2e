package main

import (
	"fmt"
	"os"

	"encoding/hex"

	"github.com/dsoprea/go-logging"
	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"

	"github.com/dsoprea/go-ntfs"
)

type rootParameters struct {
	FilesystemFilepath string `short:"f" long:"filesystem-filepath" description:"File-path of NTFS volume or disk image" required:"true"`
	MftIndex           uint64 `short:"i" long:"mft-index" description:"MFT index of the record to dump" required:"true"`
	ShowData           bool   `short:"d" long:"show-data" description:"Hex-dump resident attribute values"`
}

var (
	rootArguments = new(rootParameters)
)

func main() {
	defer func() {
		if state := recover(); state != nil {
			err := log.Wrap(state.(error))
			log.PrintError(err)
			os.Exit(-1)
		}
	}()

	p := flags.NewParser(rootArguments, flags.Default)

	_, err := p.Parse()
	if err != nil {
		os.Exit(1)
	}

	volume, err := ntfs.OpenVolumeFromFile(rootArguments.FilesystemFilepath)
	log.PanicIf(err)

	defer volume.Close()

	file, err := ntfs.NewFileFromIndex(volume, rootArguments.MftIndex)
	log.PanicIf(err)

	defer file.Close()

	fmt.Printf("Record (%d)\n", file.Record().Index())
	fmt.Printf("==========\n")
	fmt.Printf("\n")

	fmt.Printf("Name: [%s]\n", file.Name())
	fmt.Printf("IsDir: [%v]\n", file.IsDir())
	fmt.Printf("ParentIndex: (%d)\n", file.ParentIndex)
	fmt.Printf("Size: (%d) -> %s\n", file.Size, humanize.IBytes(file.Size))
	fmt.Printf("AlignedSize: (%d)\n", file.AlignedSize)
	fmt.Printf("\n")

	fmt.Printf("Created: %s\n", ntfs.TimeFromFiletime(file.CreationTime))
	fmt.Printf("Modified: %s\n", ntfs.TimeFromFiletime(file.ModifiedTime))
	fmt.Printf("Changed: %s\n", ntfs.TimeFromFiletime(file.ChangedTime))
	fmt.Printf("Read: %s\n", ntfs.TimeFromFiletime(file.ReadTime))
	fmt.Printf("\n")

	fmt.Printf("Flags:\n")
	file.Flags.DumpBareIndented("  ")
	fmt.Printf("\n")

	for i, attr := range file.Record().Attrs() {
		fmt.Printf("#### Attribute %02d ####\n", i)
		fmt.Printf("\n")

		fmt.Printf("%s\n", attr.String())

		if attr.NonResident != nil {
			fmt.Printf("\n")
			fmt.Printf("    Count       LCN\n")

			for _, run := range attr.NonResident.Runs {
				fmt.Printf("    %-10d  %d\n", run.Count, run.StartLCN)
			}
		} else if rootArguments.ShowData == true && len(attr.Resident.Data) > 0 {
			fmt.Printf("\n")
			fmt.Printf("%s", hex.Dump(attr.Resident.Data))
		}

		fmt.Printf("\n")
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/dsoprea/go-logging"
	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"

	"github.com/dsoprea/go-ntfs"
)

type rootParameters struct {
	FilesystemFilepath string `short:"f" long:"filesystem-filepath" description:"File-path of NTFS volume or disk image" required:"true"`
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

	entries, err := ntfs.LoadAttrDefs(volume)
	log.PanicIf(err)

	for i, entry := range entries {
		fmt.Printf("### Attribute %d ###\n", i)
		fmt.Printf("\n")

		fmt.Printf("Label:          %s\n", entry.Name())
		fmt.Printf("Type:           0x%03x\n", entry.Type)
		fmt.Printf("Display Rule:   %d\n", entry.DisplayRule)
		fmt.Printf("Collation Rule: %d\n", entry.CollationRule)

		fmt.Printf("Flags:          0x%02x", entry.Flags)
		if entry.Flags != 0 {
			fmt.Printf(" ( ")
			if entry.Flags&ntfs.AttrDefFlagIndexed > 0 {
				fmt.Printf("Indexed ")
			}
			if entry.Flags&ntfs.AttrDefFlagResident > 0 {
				fmt.Printf("Resident ")
			}
			if entry.Flags&ntfs.AttrDefFlagNonResident > 0 {
				fmt.Printf("Non-Resident ")
			}
			fmt.Printf(")")
		}
		fmt.Printf("\n")

		fmt.Printf("Minimum size:   0x%02x\n", entry.MinimumSize)
		if entry.MaximumSize == 0xffffffffffffffff {
			fmt.Printf("Maximum size:   (unbounded)\n")
		} else {
			fmt.Printf("Maximum size:   0x%02x (%s)\n", entry.MaximumSize, humanize.IBytes(entry.MaximumSize))
		}

		fmt.Printf("\n")
	}
}

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

	bootSector := make([]byte, volume.BytesPerSector())

	err = volume.Read(0, bootSector)
	log.PanicIf(err)

	bsh, err := ntfs.NewBootSectorHeaderFromBytes(bootSector)
	log.PanicIf(err)

	bsh.Dump()

	fmt.Printf("Cluster size: %s\n", humanize.IBytes(volume.BytesPerCluster()))
	fmt.Printf("File-record size: %s\n", humanize.IBytes(volume.BytesPerMftEntry()))
	fmt.Printf("Volume name: [%s]\n", volume.Name())
}

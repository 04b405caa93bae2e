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
	MftIndex           uint64 `short:"i" long:"mft-index" description:"MFT index of the file to extract" required:"true"`
	OutputFilepath     string `short:"o" long:"output-filepath" description:"File-path to write to ('-' for STDOUT)" required:"true"`
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

	// Content reads are cluster-granular; the tail past Size is allocation
	// padding that we simply do not write out.
	buffer := make([]byte, file.AlignedSize)

	resultSize, err := file.Read(0, buffer)
	log.PanicIf(err)

	if uint64(resultSize) < file.Size {
		fmt.Printf("Content is incomplete: (%d) of (%d) bytes.\n", resultSize, file.Size)
		os.Exit(2)
	}

	var g *os.File

	if rootArguments.OutputFilepath == "-" {
		g = os.Stdout
	} else {
		var err error

		g, err = os.Create(rootArguments.OutputFilepath)
		log.PanicIf(err)

		defer func() {
			g.Close()
		}()
	}

	_, err = g.Write(buffer[:file.Size])
	log.PanicIf(err)

	if rootArguments.OutputFilepath != "-" {
		fmt.Printf("(%d) bytes written for [%s] (%s).\n", file.Size, file.Name(), humanize.IBytes(file.Size))
	}
}

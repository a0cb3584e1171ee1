package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wkalt/ulog/container"
	"github.com/wkalt/ulog/reader"
)

var rootCmd = &cobra.Command{
	Use:   "ulog",
	Short: "inspect and produce ULog files",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func bailf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func checkErr(err error) {
	if err != nil {
		bailf("error: %v", err)
	}
}

const chunkSize = 4048

// loadFile parses a log into a container, feeding the reader in chunks.
func loadFile(path string, storage container.StorageConfig) *container.DataContainer {
	f, err := os.Open(path)
	checkErr(err)
	defer f.Close()

	dc := container.New(storage)
	r := reader.New(dc)
	buf := make([]byte, chunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			checkErr(r.ReadChunk(buf[:n]))
		}
		if err != nil {
			break
		}
	}
	if dc.HadFatalError() {
		bailf("failed to parse %s: %v", path, dc.ParsingErrors())
	}
	return dc
}

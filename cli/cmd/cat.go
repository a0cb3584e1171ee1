package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/wkalt/ulog/container"
	"github.com/wkalt/ulog/reader"
	"github.com/wkalt/ulog/writer"
)

var (
	catMultiID int
	catCopy    string
)

var catCmd = &cobra.Command{
	Use:   "cat [file] [topic]",
	Short: "print samples of a topic as JSON lines",
	Long: `Print the samples of one topic as JSON lines. Without a topic,
list the topics of the file. With --copy, re-serialize the parsed stream to
a new file instead; the output of a well-formed input is byte-identical.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		if catCopy != "" {
			copyFile(args[0], catCopy)
			return
		}
		dc := loadFile(args[0], container.StorageFullLog)
		if len(args) < 2 {
			for _, name := range dc.SubscriptionNames() {
				fmt.Println(name)
			}
			return
		}
		sub, err := dc.Subscription(args[1], uint8(catMultiID))
		checkErr(err)
		enc := json.NewEncoder(os.Stdout)
		for i := 0; i < sub.Size(); i++ {
			view, err := sub.At(i)
			checkErr(err)
			checkErr(enc.Encode(sampleToMap(view)))
		}
	},
}

func init() { // nolint:gochecknoinits
	catCmd.PersistentFlags().IntVarP(&catMultiID, "multi-id", "", 0, "topic instance to print")
	catCmd.PersistentFlags().StringVarP(&catCopy, "copy", "", "", "re-serialize the stream to this file")
	rootCmd.AddCommand(catCmd)
}

// copyFile parses input and echoes every record to output by wiring a
// low-level writer in as the reader's sink.
func copyFile(input, output string) {
	in, err := os.Open(input)
	checkErr(err)
	defer in.Close()
	out, err := os.Create(output)
	checkErr(err)
	defer out.Close()

	echo := writer.New(func(p []byte) {
		_, err := out.Write(p)
		checkErr(err)
	})
	r := reader.New(echo)
	buf := make([]byte, chunkSize)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			checkErr(r.ReadChunk(buf[:n]))
		}
		if err != nil {
			break
		}
	}
}

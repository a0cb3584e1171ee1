package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/wkalt/ulog/reader"
	"github.com/wkalt/ulog/record"
)

var logsCmd = &cobra.Command{
	Use:   "logs [file]",
	Short: "print the log messages of a ULog file",
	Long: `Print logging records as they stream out of the parser, without
building the full in-memory log. Dropouts and stream errors are reported
inline.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		f, err := os.Open(args[0])
		checkErr(err)
		defer f.Close()

		r := reader.New(&logPrinter{})
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
	},
}

func init() { // nolint:gochecknoinits
	rootCmd.AddCommand(logsCmd)
}

// nolint:gochecknoglobals
var levelColors = map[record.LogLevel]*color.Color{
	record.LevelEmergency: color.New(color.FgRed, color.Bold),
	record.LevelAlert:     color.New(color.FgRed, color.Bold),
	record.LevelCritical:  color.New(color.FgRed, color.Bold),
	record.LevelError:     color.New(color.FgRed),
	record.LevelWarning:   color.New(color.FgYellow),
	record.LevelNotice:    color.New(color.FgCyan),
	record.LevelInfo:      color.New(color.FgWhite),
	record.LevelDebug:     color.New(color.FgHiBlack),
}

// logPrinter is a streaming sink that prints logging records as they are
// parsed.
type logPrinter struct {
	reader.NopHandler
}

func (p *logPrinter) Logging(l record.Logging) error {
	c, ok := levelColors[l.Level]
	if !ok {
		c = color.New(color.FgWhite)
	}
	if l.HasTag {
		c.Printf("%12d [%s] (tag %d) %s\n", l.Timestamp, l.Level, l.Tag, l.Message)
		return nil
	}
	c.Printf("%12d [%s] %s\n", l.Timestamp, l.Level, l.Message)
	return nil
}

func (p *logPrinter) Dropout(d record.Dropout) error {
	color.New(color.FgMagenta).Printf("dropout: %d ms\n", d.DurationMS)
	return nil
}

func (p *logPrinter) Error(msg string, recoverable bool) {
	fmt.Fprintf(os.Stderr, "stream error (recoverable=%t): %s\n", recoverable, msg)
}

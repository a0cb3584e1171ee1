package cmd

import (
	"encoding/binary"
	"math"

	"github.com/spf13/cobra"
	"github.com/wkalt/ulog/record"
	"github.com/wkalt/ulog/schema"
	"github.com/wkalt/ulog/writer"
)

var genSamples int

var genCmd = &cobra.Command{
	Use:   "gen [file]",
	Short: "write a small demonstration ULog file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		checkErr(writeDemoFile(args[0], genSamples))
	},
}

func init() { // nolint:gochecknoinits
	genCmd.PersistentFlags().IntVarP(&genSamples, "samples", "n", 100, "number of samples to write")
	rootCmd.AddCommand(genCmd)
}

// writeDemoFile produces a log with one topic and a handful of header
// entries, exercising the validating writer end to end.
func writeDemoFile(path string, samples int) error {
	w, err := writer.NewSimpleWriterFile(path, 0)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.WriteInfoString("sys_name", "ulog-gen"); err != nil {
		return err
	}
	if err := w.WriteParameterFloat32("PARAM_A", 382.23); err != nil {
		return err
	}
	if err := w.WriteParameterInt32("PARAM_B", 8272); err != nil {
		return err
	}

	err = w.WriteMessageFormat("my_data", []*schema.Field{
		schema.NewField("uint64_t", "timestamp", -1),
		schema.NewField("float", "debug_array", 4),
		schema.NewField("float", "cpuload", -1),
		schema.NewField("float", "temperature", -1),
		schema.NewField("int8_t", "counter", -1),
	})
	if err != nil {
		return err
	}
	if err := w.HeaderComplete(); err != nil {
		return err
	}
	msgID, err := w.WriteAddLoggedMessage("my_data", 0)
	if err != nil {
		return err
	}
	if err := w.WriteTextMessage(record.LevelInfo, "hello from ulog gen", 0); err != nil {
		return err
	}

	cpuload := float32(25.423)
	buf := make([]byte, 33)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint64(buf[0:8], uint64(i)*1000)
		for j := 0; j < 4; j++ {
			binary.LittleEndian.PutUint32(buf[8+4*j:], math.Float32bits(float32(i*j)))
		}
		binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(cpuload))
		binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(38.5))
		buf[32] = byte(int8(i))
		if err := w.WriteData(msgID, buf); err != nil {
			return err
		}
		cpuload -= 0.424
	}
	return w.Fsync()
}

package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/wkalt/ulog/container"
	"github.com/wkalt/ulog/util"
)

var infoJSON bool

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "show header information of a ULog file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dc := loadFile(args[0], container.StorageFullLog)
		if infoJSON {
			printInfoJSON(dc)
			return
		}
		printInfo(dc)
	},
}

func init() { // nolint:gochecknoinits
	infoCmd.PersistentFlags().BoolVarP(&infoJSON, "json", "", false, "print as JSON")
	rootCmd.AddCommand(infoCmd)
}

func printInfo(dc *container.DataContainer) {
	hdr := dc.GetFileHeader()
	fmt.Printf("ULog version %d, start time %d us\n", hdr.Version, hdr.Timestamp)
	if n := len(dc.ParsingErrors()); n > 0 {
		fmt.Printf("%d parsing errors\n", n)
	}

	infos := dc.MessageInfos()
	if len(infos) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"key", "value"})
		for _, key := range util.Okeys(infos) {
			tw.AppendRow(table.Row{key, renderValue(infos[key].TypedValue())})
		}
		tw.Render()
	}
	for _, key := range util.Okeys(dc.MessageInfoMulti()) {
		fmt.Printf("info multi %s: %d lists\n", key, len(dc.MessageInfoMulti()[key]))
	}

	params := dc.InitialParameters()
	defaults := dc.DefaultParameters()
	if len(params) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"parameter", "value", "default"})
		for _, key := range util.Okeys(params) {
			row := table.Row{key, renderValue(params[key].TypedValue()), ""}
			if def, ok := defaults[key]; ok {
				row[2] = renderValue(def.TypedValue())
			}
			tw.AppendRow(row)
		}
		tw.Render()
	}

	formats := dc.MessageFormats()
	for _, name := range util.Okeys(formats) {
		size, err := formats[name].SizeBytes()
		if err != nil {
			fmt.Printf("format %s: unresolved\n", name)
			continue
		}
		fmt.Printf("format %s: %d fields, %d bytes\n", name, len(formats[name].Fields()), size)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"topic", "multi id", "msg id", "samples"})
	for _, key := range dc.SubscriptionNames() {
		for multiID := 0; multiID < 256; multiID++ {
			sub, err := dc.Subscription(key, uint8(multiID))
			if err != nil {
				continue
			}
			tw.AppendRow(table.Row{key, multiID, sub.AddLoggedMessage().MsgID, sub.Size()})
		}
	}
	tw.Render()

	fmt.Printf("%d log messages, %d dropouts\n", len(dc.LogMessages()), len(dc.Dropouts()))
}

func printInfoJSON(dc *container.DataContainer) {
	hdr := dc.GetFileHeader()
	out := map[string]any{
		"version":   hdr.Version,
		"timestamp": hdr.Timestamp,
	}
	infos := map[string]any{}
	for key, m := range dc.MessageInfos() {
		infos[key] = renderValue(m.TypedValue())
	}
	out["info"] = infos
	params := map[string]any{}
	for key, p := range dc.InitialParameters() {
		params[key] = renderValue(p.TypedValue())
	}
	out["parameters"] = params
	defaults := map[string]any{}
	for key, p := range dc.DefaultParameters() {
		defaults[key] = renderValue(p.TypedValue())
	}
	out["default_parameters"] = defaults
	formats := map[string]any{}
	for name, f := range dc.MessageFormats() {
		formats[name] = f.Encode()
	}
	out["formats"] = formats
	subs := []map[string]any{}
	for key, sub := range dc.SubscriptionsByNameAndMultiID() {
		subs = append(subs, map[string]any{
			"topic":    key.Name,
			"multi_id": key.MultiID,
			"msg_id":   sub.AddLoggedMessage().MsgID,
			"samples":  sub.Size(),
		})
	}
	out["subscriptions"] = subs
	out["parsing_errors"] = dc.ParsingErrors()

	bytes, err := json.MarshalIndent(out, "", "  ")
	checkErr(err)
	fmt.Println(string(bytes))
}

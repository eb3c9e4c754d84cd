package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/srg/padhost/internal/device"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <hex>",
	Short: "Decode a device table blob",
	Long: `Decode the value of the device table characteristic, as read by a BLE
client, into one row per slot. Spaces and colons in the hex string are ignored.`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

var decodeFormat string

func init() {
	decodeCmd.Flags().StringVarP(&decodeFormat, "format", "f", "table", "Output format (table, json)")
}

func runDecode(cmd *cobra.Command, args []string) error {
	if decodeFormat != "table" && decodeFormat != "json" {
		return fmt.Errorf("invalid format '%s': must be one of [table json]", decodeFormat)
	}

	clean := strings.NewReplacer(" ", "", ":", "", "\n", "").Replace(args[0])
	blob, err := hex.DecodeString(clean)
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}
	records, err := device.DecodeTable(blob)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true
	if decodeFormat == "json" {
		return displayRecordsJSON(cmd.OutOrStdout(), records)
	}
	return displayRecordsTable(cmd.OutOrStdout(), records)
}

func displayRecordsJSON(w io.Writer, records []device.Record) error {
	type slot struct {
		Slot   int            `json:"slot"`
		Record *device.Record `json:"record"`
	}
	out := make([]slot, len(records))
	for i := range records {
		out[i].Slot = i
		if !records[i].IsZero() {
			out[i].Record = &records[i]
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func displayRecordsTable(base io.Writer, records []device.Record) error {
	ready := color.New(color.FgGreen).SprintFunc()
	pending := color.New(color.FgYellow).SprintFunc()

	w := tabwriter.NewWriter(base, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SLOT\tADDRESS\tVID:PID\tSTATE\tTYPE\tNAME")
	for i, r := range records {
		if r.IsZero() {
			fmt.Fprintf(w, "%d\t-\t-\tfree\t-\t-\n", i)
			continue
		}
		state := r.State.String()
		if r.State == device.StateReady {
			state = ready(state)
		} else {
			state = pending(state)
		}
		fmt.Fprintf(w, "%d\t%s\t%04x:%04x\t%s\t%s\t%s\n",
			i, r.Address, r.VendorID, r.ProductID, state, r.Type, r.NameString())
	}
	return w.Flush()
}

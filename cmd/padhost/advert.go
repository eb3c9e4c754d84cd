package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srg/padhost/internal/service"
)

var advertCmd = &cobra.Command{
	Use:   "advert",
	Short: "Print the advertising payload",
	Long: `Print the advertising data the host transmits: flags, the complete local
name and the 128-bit controller service UUID.`,
	Args: cobra.NoArgs,
	RunE: runAdvert,
}

var advertName string

func init() {
	advertCmd.Flags().StringVarP(&advertName, "name", "n", service.DefaultAdvertisingName, "Advertised local name (1-8 bytes)")
}

func runAdvert(cmd *cobra.Command, _ []string) error {
	payload, err := service.AdvertisingData(advertName)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "% X\n", payload)
	return err
}

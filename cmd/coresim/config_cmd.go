package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var configOut string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if configOut != "" {
			return cfg.Save(configOut)
		}

		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))

		return nil
	},
}

func init() {
	configCmd.Flags().StringVarP(&configOut, "output", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(configCmd)
}

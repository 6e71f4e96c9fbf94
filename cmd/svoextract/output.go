package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

func normalizeOutputFormat(value string) string {
	format := strings.ToLower(strings.TrimSpace(value))
	if format == "" || format == "text" {
		return outputTable
	}
	if format == "yml" {
		return outputYAML
	}
	return format
}

func validateOutputFormat(value string) error {
	switch normalizeOutputFormat(value) {
	case outputTable, outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (expected table, json or yaml)", value)
	}
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML emits v as YAML using the same snake_case keys as the JSON form.
func writeYAML(cmd *cobra.Command, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

// emit writes v in the selected structured format, or calls renderText for
// the default table output.
func (c *commandContext) emit(cmd *cobra.Command, v any, renderText func() error) error {
	switch c.outputFormat() {
	case outputJSON:
		return writeJSON(cmd, v)
	case outputYAML:
		return writeYAML(cmd, v)
	default:
		return renderText()
	}
}

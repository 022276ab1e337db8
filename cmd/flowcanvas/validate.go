package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rendis/flowcanvas/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check an integration file",
	Long:  `Runs the structural, semantic and condition checks on an integration YAML file ("-" for stdin) and reports every issue.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(ctx context.Context, stdin io.Reader, out io.Writer, path string) error {
	in, err := readIntegration(ctx, stdin, path)
	if err != nil {
		return err
	}

	v, err := validation.NewValidator()
	if err != nil {
		return err
	}
	result := v.ValidateIntegration(in)

	for _, issue := range result.Issues() {
		fmt.Fprintln(out, issue)
	}
	if !result.Valid() {
		return fmt.Errorf("%d validation error(s)", len(result.Errors))
	}
	fmt.Fprintf(out, "%s is valid (%d steps)\n", in.Metadata.Name, len(in.Steps))
	return nil
}

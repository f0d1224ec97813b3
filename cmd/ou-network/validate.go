package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	ounet "github.com/lex00/ou-network-go"
	"github.com/lex00/ou-network-go/internal/validation"
)

var errValidationFailed = errors.New("validation failed")

func newValidateCmd(root *rootOptions) *cobra.Command {
	var (
		dir          string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Lint the stack templates with cfn-lint",
		Long: `Validate runs cfn-lint over every template. Without --dir the stacks are
synthesized in memory first; with --dir the templates listed in the
manifest of an earlier synth are linted.

Examples:
    ou-network validate
    ou-network validate --dir cdk.out -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				results []ounet.ValidateResult
				err     error
			)
			if dir != "" {
				results, err = validation.ValidateDir(dir)
			} else {
				_, a, loadErr := root.loadApp(cmd.Context())
				if loadErr != nil {
					return loadErr
				}
				results, err = validation.ValidateApp(a)
			}
			if err != nil {
				return err
			}
			if err := writeValidation(cmd.OutOrStdout(), results, outputFormat == "json"); err != nil {
				return err
			}
			if !validation.Passed(results) {
				return errValidationFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Lint the templates of a synth output directory")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func writeValidation(w io.Writer, results []ounet.ValidateResult, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	for _, r := range results {
		status := "ok"
		if !r.Success {
			status = "FAILED"
		}
		fmt.Fprintf(w, "%s: %s\n", r.Stack, status)
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  error   %s\n", e)
		}
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  warning %s\n", warn)
		}
	}
	return nil
}

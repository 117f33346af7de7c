package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gabrielmiguelok/fundingintake/internal/application"
	"github.com/gabrielmiguelok/fundingintake/pkg/forms"
)

var errInvalidDraft = errors.New("draft is invalid")

func newValidateCmd() *cobra.Command {
	var (
		file string
		step int
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a draft application against the wizard schemas",
		Long: "validate reads a draft as a JSON object and prints every field error. " +
			"Legacy field names are accepted. Documents cannot be checked offline.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return runValidate(in, cmd.OutOrStdout(), step)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "draft JSON file, - for stdin")
	cmd.Flags().IntVar(&step, "step", -1, "validate a single step (0-5) instead of the whole application")
	return cmd
}

func runValidate(in io.Reader, out io.Writer, step int) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read draft: %w", err)
	}
	values, err := forms.ValuesFromJSON(data)
	if err != nil {
		return fmt.Errorf("parse draft: %w", err)
	}
	values = application.Canonicalize(values)

	schema := application.FullSchema()
	if step >= 0 {
		if schema = application.StepSchema(step); schema == nil {
			return fmt.Errorf("step %d out of range (0-%d)", step, len(application.Steps())-1)
		}
	}

	errs := schema.Validate(values)
	if errs.Len() == 0 {
		_, err := fmt.Fprintln(out, "valid")
		return err
	}
	for _, field := range errs.Fields() {
		for _, msg := range errs[field] {
			fmt.Fprintf(out, "%s: %s\n", field, msg)
		}
	}
	return fmt.Errorf("%w: %d field(s) failed", errInvalidDraft, len(errs.Fields()))
}

// file: internal/commands/errors.go
package commands

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/dkoosis/freshbooks-mcp/internal/mcperror"
)

func newErrorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "errors",
		Short: "Print the error code reference",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			docs := mcperror.Catalog()
			if raw, _ := cmd.Flags().GetString("code"); raw != "" {
				code, err := parseCodeFlag(raw)
				if err != nil {
					return err
				}
				doc, ok := mcperror.Lookup(code)
				if !ok {
					return errors.Newf("no documentation for code %s", code)
				}
				docs = []mcperror.Doc{doc}
			}
			return mcperror.RenderCatalog(cmd.OutOrStdout(), docs)
		},
	}
	cmd.Flags().String("code", "", "Show one code, by number (-32004) or name (RATE_LIMITED)")
	return cmd
}

// parseCodeFlag accepts a numeric code or a taxonomy name.
func parseCodeFlag(raw string) (mcperror.Code, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		code := mcperror.Code(n)
		if !code.Valid() {
			return 0, errors.Newf("unknown error code %d", n)
		}
		return code, nil
	}
	code, ok := mcperror.ParseCode(raw)
	if !ok {
		return 0, errors.Newf("unknown error code %q", raw)
	}
	return code, nil
}

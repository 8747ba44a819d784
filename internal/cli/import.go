package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Merge expense rows from a CSV file",
		Long: `Merge the expense rows of a CSV file into the ledger.

The file needs the columns 학원, 금액, 승인 날짜, 거래처 and 결제 주기. UTF-8
(with or without BOM) and EUC-KR are accepted. Rows already present with the
same merchant, amount and approval date are skipped.

Example:
  jichul import ./card_statement.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			if err := rootOpts.Config.ValidateStorage(); err != nil {
				return err
			}

			ledger, res, err := openLedger(cmd.Context(), rootOpts.Config, rootOpts.Logger)
			if err != nil {
				return err
			}
			defer res.Close()

			result, err := ledger.ImportBatch(cmd.Context(), raw)
			if err != nil {
				return err
			}

			p := rootOpts.printer(cmd)
			return p.Result(result, func() {
				p.Success("%d건 추가", result.Inserted)
				for _, e := range result.Errors {
					p.Warning("%s", e)
				}
			})
		},
	}
}

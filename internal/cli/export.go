package cli

import (
	"github.com/spf13/cobra"

	"jichul/internal/storage"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all expenses to a CSV file",
		Long: `Write every expense, oldest approval date first, to a CSV file that
the import command and spreadsheet tools can read back.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.Config.ValidateStorage(); err != nil {
				return err
			}
			res, err := openReadOnly(cmd.Context(), rootOpts.Config, rootOpts.Logger)
			if err != nil {
				return err
			}
			defer res.Close()

			snap, err := res.Store.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			p := rootOpts.printer(cmd)
			if len(snap.Expenses) == 0 {
				return p.Result(map[string]any{"exported": 0}, func() {
					p.Warning("내보낼 지출 내역이 없습니다")
				})
			}
			if err := storage.ExportExpenses(out, snap.Expenses); err != nil {
				return err
			}
			return p.Result(map[string]any{"exported": len(snap.Expenses), "path": out}, func() {
				p.Success("%d건을 %s에 저장했습니다", len(snap.Expenses), out)
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "expenses_export.csv", "output file")

	return cmd
}

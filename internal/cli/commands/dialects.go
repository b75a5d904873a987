package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqllineage/internal/cli/output"
	"github.com/leapstack-labs/sqllineage/pkg/dialect"
)

// DialectInfo is the JSON shape of one dialect.
type DialectInfo struct {
	Name  string `json:"name"`
	Quote string `json:"quote"`
	Limit string `json:"limit"`
}

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List supported SQL dialects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(getConfig().OutputFormat))
			return renderDialects(r, dialectInfos())
		},
	}
}

func dialectInfos() []DialectInfo {
	names := dialect.List()
	infos := make([]DialectInfo, 0, len(names))
	for _, name := range names {
		d := dialect.MustGet(name)
		infos = append(infos, DialectInfo{
			Name:  d.Name,
			Quote: d.Identifiers.Quote + d.Identifiers.QuoteEnd,
			Limit: d.Limit.String(),
		})
	}
	return infos
}

func renderDialects(r *output.Renderer, infos []DialectInfo) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}
	rows := make([][]string, len(infos))
	for i, d := range infos {
		rows[i] = []string{d.Name, d.Quote, d.Limit}
	}
	r.Table([]string{"Dialect", "Quote", "Limit"}, rows)
	return nil
}

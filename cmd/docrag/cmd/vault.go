package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrag/internal/output"
)

func newGraphCmd(root *rootOptions) *cobra.Command {
	var vault string

	cmd := &cobra.Command{
		Use:   "graph <canvas>",
		Short: "Print the node and edge graph of a canvas as JSON",
		Long: `Print the node and edge graph of a canvas as JSON, with its color
legend and node counts.

The canvas is looked up by relative path, by name with or without the
.canvas extension, or by a recursive search of the vault.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), root, appOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			doc, err := a.engine.Graph(cmd.Context(), vault, args[0])
			if err != nil {
				return err
			}
			return output.New(cmd.OutOrStdout(), false).JSON(doc)
		},
	}

	cmd.Flags().StringVar(&vault, "vault", "", "Vault path (default: configured or active vault)")
	return cmd
}

func newFileCmd(root *rootOptions) *cobra.Command {
	var vault string

	cmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Print a file of the vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), root, appOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			content, err := a.engine.File(cmd.Context(), vault, args[0])
			if err != nil {
				return err
			}
			output.New(cmd.OutOrStdout(), false).Text(content)
			return nil
		},
	}

	cmd.Flags().StringVar(&vault, "vault", "", "Vault path (default: configured or active vault)")
	return cmd
}

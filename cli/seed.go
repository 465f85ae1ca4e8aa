package cli

import (
	"fmt"
	"os"

	"shrimpy/database"

	"github.com/spf13/cobra"
)

func newSeedCmd(configFile *string) *cobra.Command {
	var (
		file  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the default menu into an empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			if file != "" {
				b, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("读取菜单文件失败: %w", err)
				}
				data = b
			}
			items, err := database.ParseSeed(data)
			if err != nil {
				return err
			}

			if _, err := bootstrap(*configFile); err != nil {
				return err
			}

			n, err := database.SeedMenu(cmd.Context(), database.DB, items, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d menu items\n", n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "菜单 YAML 文件，默认使用内置菜单")
	cmd.Flags().BoolVar(&force, "force", false, "菜单非空时仍然导入")
	return cmd
}

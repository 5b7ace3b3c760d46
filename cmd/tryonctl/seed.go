package main

import (
	catalogRepository "TryOnGolang/internal/api/catalog/repository"
	catalogService "TryOnGolang/internal/api/catalog/service"
	"TryOnGolang/pkg/log"
	"TryOnGolang/pkg/utils"
	"fmt"
	"github.com/spf13/cobra"
	"os"
	"text/tabwriter"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the stock glasses into the catalog",
	Long:  "Insert the stock Grey, Black and Brown glasses. Entries whose model path already exists are left alone.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		svc := catalogService.NewCatalogService(logger, catalogRepository.New(db, logger), utils.New())

		inserted, err := svc.Seed(cmd.Context())
		if err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}

		list, err := svc.GetAllGlasses(cmd.Context(), 1, 100)
		if err != nil {
			return err
		}

		log.Info(log.Fields{"inserted": inserted, "total": list.Total}, "Catalog seeded")

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCOLOR\tMODEL")
		fmt.Fprintln(w, "--\t----\t-----\t-----")
		for _, g := range list.Glasses {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", g.ID, g.Name, g.Color, g.AssetPath)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

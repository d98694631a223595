package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meur/residency/internal/models"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Load companies, positions and students from a JSON file",
	Long: `Load companies with their positions and students from a JSON seed file.
Everything is inserted in one transaction, so a bad record leaves the database unchanged.

Examples:
  residency seed seeds/sample.json`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	seed, err := readSeed(args[0])
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.BulkCreate(cmd.Context(), seed); err != nil {
		return fmt.Errorf("failed to seed %s: %w", args[0], err)
	}

	positions := 0
	for _, c := range seed.Companies {
		positions += len(c.Positions)
	}
	log.Info("seeding complete",
		zap.String("file", args[0]),
		zap.Int("companies", len(seed.Companies)),
		zap.Int("positions", positions),
		zap.Int("students", len(seed.Students)),
	)
	return nil
}

func readSeed(path string) (*models.Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var seed models.Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for _, c := range seed.Companies {
		for _, p := range c.Positions {
			if !models.ValidTerm(p.ResidencyTerm) {
				return nil, fmt.Errorf("%s: position %q has unknown residency term %q", c.Name, p.Title, p.ResidencyTerm)
			}
		}
	}
	return &seed, nil
}

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the stored places dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		table, err := loadTable(cmd)
		if err != nil {
			return err
		}

		s := table.Stats()

		fmt.Printf("Places: %d\n", s.Count)
		fmt.Printf("Mean confidence: %.3f\n", s.MeanConfidence)
		fmt.Printf("Confidence: %d high (>=0.8), %d medium (>=0.6), %d low (<0.6)\n",
			s.HighConfidence, s.MediumConfidence, s.LowConfidence)
		fmt.Printf("Completeness: %d named, %d with address, %d with website, %d with phone\n",
			s.WithNames, s.WithAddresses, s.WithWebsites, s.WithPhones)

		fmt.Println("\nBy country:")
		printCounts(s.ByCountry)

		fmt.Println("\nBy religion:")
		printCounts(s.ByReligion)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

// printCounts prints a count map sorted by count descending, then key.
func printCounts(counts map[string]int) {
	type entry struct {
		key   string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for k, v := range counts {
		entries = append(entries, entry{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})

	fmt.Printf("%-20s %s\n", "KEY", "COUNT")
	fmt.Println(strings.Repeat("-", 28))
	for _, e := range entries {
		fmt.Printf("%-20s %d\n", e.key, e.count)
	}
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var provinceCmd = &cobra.Command{
	Use:   "province <id|name>",
	Short: "Show one province with its hierarchy, prompt and generations",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		names, err := s.ProvinceNames()
		if err != nil {
			return fmt.Errorf("reading province names: %w", err)
		}

		arg := strings.Join(args, " ")
		id, ok, suggestions := resolveProvince(arg, names)
		if !ok {
			if len(suggestions) > 0 {
				return fmt.Errorf("no province %q; did you mean %s?", arg, strings.Join(suggestions, ", "))
			}
			return fmt.Errorf("no province %q", arg)
		}

		p, err := s.ReadProvince(id)
		if err != nil {
			return err
		}

		fmt.Printf("%s (#%d)\n", p.Name, p.ID)
		fmt.Printf("  continent:   %s\n", p.Continent)
		fmt.Printf("  superregion: %s\n", p.SuperRegion)
		fmt.Printf("  region:      %s\n", p.Region)
		fmt.Printf("  area:        %s\n", p.Area)
		fmt.Printf("  terrain:     %s", p.Terrain)
		if p.IsWater {
			fmt.Printf(" (water)")
		}
		fmt.Println()
		fmt.Printf("  climate:     %s\n", p.Climate)
		if p.Winter != "" {
			fmt.Printf("  winter:      %s\n", p.Winter)
		}
		if p.Monsoon != "" {
			fmt.Printf("  monsoon:     %s\n", p.Monsoon)
		}
		if p.Description != "" {
			fmt.Printf("\nDescription:\n  %s\n", p.Description)
		}
		if p.Prompt != "" {
			fmt.Printf("\nPrompt:\n  %s\n", p.Prompt)
		}
		if p.ImageURL != "" {
			fmt.Printf("\nImage: %s\n", p.ImageURL)
		}

		gens, err := s.ReadGenerations(id)
		if err != nil {
			return fmt.Errorf("reading generations: %w", err)
		}
		if len(gens) > 0 {
			fmt.Printf("\nGenerations:\n")
			for _, g := range gens {
				fmt.Printf("  %s  %-9s  %s", g.CreatedAt, g.Status, g.Model)
				if g.Error != "" {
					fmt.Printf("  %s", g.Error)
				}
				fmt.Println()
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(provinceCmd)
}

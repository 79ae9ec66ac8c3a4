package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	"github.com/bjornbryggman/eu4-modding-tools/internal/llm"
	"github.com/bjornbryggman/eu4-modding-tools/internal/model"
	"github.com/bjornbryggman/eu4-modding-tools/internal/prompt"
	"github.com/bjornbryggman/eu4-modding-tools/internal/ratelimit"
	"github.com/spf13/cobra"
)

var (
	promptsOverwrite    bool
	promptsIncludeWater bool
	promptsLimit        int
	promptsContinent    string
	promptsTerrain      string
	promptsUseLLM       bool
	promptsModel        string
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Build image prompts for provinces, optionally rewritten by a text model",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("use-llm") {
			promptsUseLLM = cfg.Prompts.UseLLM
		}
		if !cmd.Flags().Changed("include-water") {
			promptsIncludeWater = cfg.Prompts.IncludeWater
		}

		templates, err := prompt.LoadTemplates(cfg.Prompts.File)
		if err != nil {
			return err
		}
		b := &prompt.Builder{
			Templates: templates,
			Base:      cfg.Prompts.Template,
			System:    cfg.Prompts.VariationSystem,
			User:      cfg.Prompts.VariationUser,
		}
		if _, err := templates.Get(b.Base); err != nil {
			return err
		}

		var client *llm.Client
		if promptsUseLLM {
			client, err = llm.NewClient(cfg.LLM.Endpoint, cfg.LLM.Model, cfg.LLM.APIKeyEnv)
			if err != nil {
				return err
			}
			client.MaxTokens = cfg.LLM.MaxTokens
			client.Temperature = cfg.LLM.Temperature
			client.Limiter = ratelimit.New(cfg.Prompts.RateLimit)
			if promptsModel == "" {
				promptsModel = b.Model()
			}
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		filter := model.ProvinceFilter{
			Continent:    promptsContinent,
			Terrain:      promptsTerrain,
			IncludeWater: promptsIncludeWater,
			Limit:        promptsLimit,
		}
		if !promptsOverwrite {
			filter.HasPrompt = boolPtr(false)
		}
		todo, err := s.ReadProvinces(filter)
		if err != nil {
			return fmt.Errorf("reading provinces (run import first): %w", err)
		}
		if len(todo) == 0 {
			fmt.Println("All matching provinces already have prompts.")
			return nil
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		via := "templates"
		if client != nil {
			via = client.Model
			if promptsModel != "" {
				via = promptsModel
			}
		}
		fmt.Printf("Building prompts for %d provinces using %s...\n", len(todo), via)

		var done, failed, totalIn, totalOut int
		var totalCost float64
		for i, p := range todo {
			select {
			case <-ctx.Done():
				fmt.Printf("\nInterrupted after %d/%d provinces\n", i, len(todo))
				return nil
			default:
			}

			fmt.Printf("  [%d/%d] %s (#%d)...", i+1, len(todo), p.Name, p.ID)

			text, err := b.Build(p)
			if err != nil {
				// Template errors hit every province alike.
				fmt.Println()
				return err
			}

			if client != nil {
				system, user, err := b.Variation(p, text)
				if err != nil {
					fmt.Println()
					return err
				}
				c, err := client.Complete(ctx, promptsModel, []llm.Message{
					{Role: "system", Content: system},
					{Role: "user", Content: user},
				})
				if err != nil {
					if apperr.Is(err, apperr.TypeAuth) {
						fmt.Println()
						return err
					}
					if ctx.Err() != nil {
						fmt.Printf("\nInterrupted after %d/%d provinces\n", i, len(todo))
						return nil
					}
					fmt.Fprintf(os.Stderr, " ERROR: %v\n", err)
					failed++
					continue
				}
				text = llm.ParsePrompt(c.Text)
				totalIn += c.Usage.PromptTokens
				totalOut += c.Usage.CompletionTokens
				if cfg.LLM.TrackCost && c.ID != "" {
					if cost, err := client.Cost(ctx, c.ID); err != nil {
						logger.Debug().Err(err).Str("generation", c.ID).Msg("cost lookup failed")
					} else {
						totalCost += cost
					}
				}
			}

			if err := s.SetPrompt(p.ID, text); err != nil {
				fmt.Fprintf(os.Stderr, " ERROR saving: %v\n", err)
				failed++
				continue
			}
			done++
			fmt.Printf(" %d chars\n", len(text))
			logVerbose("    %s", text)
		}

		fmt.Printf("\nDone. %d prompts written, %d failed.\n", done, failed)
		if client != nil {
			fmt.Printf("Tokens: %d input, %d output\n", totalIn, totalOut)
			if cfg.LLM.TrackCost {
				fmt.Printf("Cost: $%.4f\n", totalCost)
			}
		}
		return nil
	},
}

func boolPtr(b bool) *bool {
	return &b
}

func init() {
	promptsCmd.Flags().BoolVar(&promptsOverwrite, "overwrite", false, "Rebuild prompts that already exist")
	promptsCmd.Flags().BoolVar(&promptsIncludeWater, "include-water", false, "Include sea and lake provinces")
	promptsCmd.Flags().IntVar(&promptsLimit, "limit", 0, "Process at most this many provinces")
	promptsCmd.Flags().StringVar(&promptsContinent, "continent", "", "Only provinces on this continent")
	promptsCmd.Flags().StringVar(&promptsTerrain, "terrain", "", "Only provinces with this terrain")
	promptsCmd.Flags().BoolVar(&promptsUseLLM, "use-llm", false, "Rewrite each prompt with the text model")
	promptsCmd.Flags().StringVar(&promptsModel, "model", "", "Text model (overrides llm.model and the template's model)")
	rootCmd.AddCommand(promptsCmd)
}

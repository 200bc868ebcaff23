package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"emotion-backend/pkg/audio"
	"emotion-backend/pkg/models"

	"github.com/spf13/cobra"
)

func predictVoiceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "predict-voice <file>",
		Short: "Classify the emotion in an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			p, err := buildVoice(cfg)
			if err != nil {
				return err
			}
			resp, err := p.Predict(cmd.Context(), raw, audio.ResolveFormat(args[0], ""))
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
}

func scrapeCmd() *cobra.Command {
	var retrieval string
	cmd := &cobra.Command{
		Use:   "scrape <query>",
		Short: "Search the web, index the results and print the best passages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cache, err := openCache(cfg)
			if err != nil {
				return err
			}
			defer cache.Close()

			p, err := buildPipeline(cfg, cache)
			if err != nil {
				return err
			}
			resp, err := p.Run(cmd.Context(), args[0], retrieval)
			if err != nil && !errors.Is(err, models.ErrPipelineExhausted) {
				return err
			}
			return printJSON(resp)
		},
	}
	cmd.Flags().StringVarP(&retrieval, "retrieval-query", "r", "", "query used to rank passages (default: the search query)")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

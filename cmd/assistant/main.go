package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aibanking/conversation-core/internal/app"
	"github.com/aibanking/conversation-core/internal/config"
	"github.com/aibanking/conversation-core/internal/model"
)

func main() {
	root := &cobra.Command{
		Use:   "assistant",
		Short: "Interactive banking assistant demo",
	}
	root.AddCommand(chatCmd(), askCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildApp(ctx context.Context) (*app.App, error) {
	_ = godotenv.Load()
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.Build(ctx, cfg)
}

// chatCmd runs an interactive multi-turn session on stdin.
func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			application, err := buildApp(ctx)
			if err != nil {
				return err
			}

			sessionID, err := application.Pipeline.State().CreateSession(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Session %s. Type your request, or \"quit\" to exit.\n\n", sessionID)

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				query := strings.TrimSpace(scanner.Text())
				if query == "" {
					continue
				}
				if query == "quit" || query == "exit" {
					return nil
				}

				resp := application.Pipeline.Process(ctx, &model.ProcessRequest{
					Query:     query,
					SessionID: sessionID,
				})
				printResponse(resp)
			}
		},
	}
}

// askCmd processes a single utterance and prints the raw response.
func askCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ask [utterance]",
		Short: "Process a single request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			application, err := buildApp(ctx)
			if err != nil {
				return err
			}
			resp := application.Pipeline.Process(ctx, &model.ProcessRequest{
				Query: strings.Join(args, " "),
			})
			if asJSON {
				payload, err := json.MarshalIndent(resp, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(payload))
				return nil
			}
			printResponse(resp)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full response as JSON")
	return cmd
}

func printResponse(resp *model.TurnResponse) {
	fmt.Printf("[%s] %s\n", resp.Status, resp.Message)
	if resp.Intent != "" {
		fmt.Printf("    intent: %s (%.2f)\n", resp.Intent, resp.Confidence)
	}
	if resp.RefinementApplied {
		fmt.Printf("    refined: %s\n", resp.RefinementReason)
	}
	if resp.Approval != nil {
		fmt.Printf("    approval: %s via %s\n", resp.Approval.Token, resp.Approval.ApprovalMethod)
	}
	if resp.Execution != nil && resp.Execution.ReferenceID != "" {
		fmt.Printf("    reference: %s\n", resp.Execution.ReferenceID)
	}
	fmt.Println()
}

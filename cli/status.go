package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/storyloom/storyloom/config"
	"github.com/storyloom/storyloom/editor"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the backend's generation status for the configured project",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the raw status as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	root, err := config.FindProjectRoot()
	if err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	client := editor.New(cfg.Server.URL, cfg.Project.ID)
	status, err := client.GenerationStatus(ctx)
	if err != nil {
		return fmt.Errorf("fetch generation status: %w", err)
	}

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	fmt.Printf("Project:   %d\n", status.ProjectID)
	fmt.Printf("Status:    %s\n", status.Status)
	if status.Phase != "" {
		fmt.Printf("Phase:     %s\n", status.Phase)
	}
	if status.TotalChapters > 0 {
		fmt.Printf("Chapters:  %d/%d\n", status.CurrentChapter, status.TotalChapters)
	}
	fmt.Printf("Words:     %d\n", status.TotalWords)
	if status.TokensUsed > 0 {
		fmt.Printf("Tokens:    %d\n", status.TokensUsed)
	}
	if status.EstimatedCost > 0 {
		fmt.Printf("Est. cost: $%.4f\n", status.EstimatedCost)
	}

	if strings.EqualFold(status.Status, "generating") {
		fmt.Println("\nGeneration is running. storyloom write streams live progress.")
	}
	return nil
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/storyloom/storyloom/config"
)

var (
	initProjectID int
	initServerURL string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a .storyloom.yaml in the current directory",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().IntVar(&initProjectID, "project", 0, "Project ID on the backend (required)")
	initCmd.Flags().StringVar(&initServerURL, "server", "", "Backend base URL (default http://localhost:8000)")
	_ = initCmd.MarkFlagRequired("project")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", config.ConfigFileName)
	}

	cfg := config.DefaultConfig()
	cfg.Project.ID = initProjectID
	if initServerURL != "" {
		cfg.Server.URL = initServerURL
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}

	fmt.Printf("Created %s (project %d, server %s)\n", config.ConfigFileName, cfg.Project.ID, cfg.Server.URL)
	fmt.Println("Run 'storyloom write' to start a session.")
	return nil
}

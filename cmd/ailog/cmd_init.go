package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/fieldkit/internal/config"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration and directories",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Printf("Config already exists at %s\n", cfgPath)
		if !confirm("Overwrite?") {
			return nil
		}
	}

	baseDir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(filepath.Join(baseDir, "inbox"), 0o755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(baseDir, "staging", "logs"), 0o755); err != nil {
		return fmt.Errorf("create staging: %w", err)
	}

	cfg := config.DefaultAilog()
	if err := cfg.Save(cfgPath); err != nil {
		return err
	}

	fmt.Printf("Created config at %s\n", cfgPath)
	fmt.Printf("Created inbox at %s\n", filepath.Join(baseDir, "inbox"))
	fmt.Printf("Created staging at %s\n", filepath.Join(baseDir, "staging"))
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Install rclone: brew install rclone (or apt install rclone)")
	fmt.Println("  2. Configure rclone: rclone config")
	fmt.Println("  3. Run sync: ailog sync")
	return nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

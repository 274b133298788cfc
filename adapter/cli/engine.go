package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var engineCmd = &cobra.Command{
	Use:   "engine",
	Short: "Manage chronoforge allocation strategy engines",
	Long:  "Commands for inspecting built-in and loaded AllocationStrategy engines.",
}

var engineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered allocation engines",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.EngineRegistry == nil {
			return fmt.Errorf("engine registry not available")
		}

		entries := app.EngineRegistry.List()
		if len(entries) == 0 {
			fmt.Println("No engines registered")
			return nil
		}

		fmt.Println("Allocation Engines:")
		fmt.Println(strings.Repeat("-", 40))
		for _, entry := range entries {
			id, name, version := "", "", ""
			if entry.Manifest != nil {
				id, name, version = entry.Manifest.ID, entry.Manifest.Name, entry.Manifest.Version
			}
			if entry.Engine != nil {
				meta := entry.Engine.Metadata()
				id, name, version = meta.ID, meta.Name, meta.Version
			}
			builtinStr := ""
			if entry.Builtin {
				builtinStr = " [built-in]"
			}
			fmt.Printf("  %s (v%s)%s\n", name, version, builtinStr)
			fmt.Printf("    ID: %s\n", id)
			fmt.Printf("    Status: %s\n", entry.Status)
		}

		fmt.Printf("\nTotal: %d engines\n", app.EngineRegistry.Count())
		return nil
	},
}

var engineInfoCmd = &cobra.Command{
	Use:   "info <engine-id>",
	Short: "Show detailed information about an engine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.EngineRegistry == nil {
			return fmt.Errorf("engine registry not available")
		}

		ctx := context.Background()
		engineID := args[0]

		engine, err := app.EngineRegistry.Get(ctx, engineID)
		if err != nil {
			return fmt.Errorf("engine not found: %s", engineID)
		}

		meta := engine.Metadata()
		fmt.Printf("Engine: %s\n", meta.Name)
		fmt.Printf("ID: %s\n", meta.ID)
		fmt.Printf("Version: %s\n", meta.Version)
		fmt.Printf("Type: %s\n", engine.Type())

		if meta.Author != "" {
			fmt.Printf("Author: %s\n", meta.Author)
		}
		if meta.Description != "" {
			fmt.Printf("Description: %s\n", meta.Description)
		}
		if len(meta.Tags) > 0 {
			fmt.Printf("Tags: %s\n", strings.Join(meta.Tags, ", "))
		}
		if len(meta.Capabilities) > 0 {
			fmt.Printf("Capabilities: %s\n", strings.Join(meta.Capabilities, ", "))
		}

		health := engine.HealthCheck(ctx)
		fmt.Printf("Health: healthy=%t %s\n", health.Healthy, health.Message)

		return nil
	},
}

func init() {
	engineCmd.AddCommand(engineListCmd)
	engineCmd.AddCommand(engineInfoCmd)
	rootCmd.AddCommand(engineCmd)
}

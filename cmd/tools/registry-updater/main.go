// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"talent-match-workers/internal/common/validation"
	"talent-match-workers/pkg/registry"
)

var registryPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "registry-updater",
		Short:         "Inspect and maintain the activity registry used by the match workers",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&registryPath, "path", "configs/activities.json", "path to the registry file")

	root.AddCommand(exportCmd(), validateCmd(), checkCmd(), updateCmd())
	return root
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the built-in registry to --path so it can be customised",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := registry.DefaultRegistry()
			reg.LastUpdated = time.Now().Format(time.RFC3339)
			if err := saveRegistry(reg, registryPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d activities to %s\n", len(reg.Activities), registryPath)
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check registry structure and compile every input schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			if err := reg.Validate(); err != nil {
				return err
			}
			if _, err := validation.NewValidator(reg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed. Found %d activities.\n", len(reg.Activities))
			return nil
		},
	}
}

func checkCmd() *cobra.Command {
	var taskType, varsFile string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a job variables document against a task type's input schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			data, err := os.ReadFile(varsFile)
			if err != nil {
				return err
			}
			return checkVariables(cmd.OutOrStdout(), reg, taskType, data)
		},
	}
	cmd.Flags().StringVar(&taskType, "task", "", "task type, e.g. find-best-matches")
	cmd.Flags().StringVar(&varsFile, "vars", "", "JSON file holding the job variables")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("vars")
	return cmd
}

func updateCmd() *cobra.Command {
	var id, field, value string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Set one field of an activity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			if err := updateActivity(reg, id, field, value); err != nil {
				return err
			}
			if err := reg.Validate(); err != nil {
				return err
			}
			reg.LastUpdated = time.Now().Format(time.RFC3339)
			if err := saveRegistry(reg, registryPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated activity %s, field %s to %s\n", id, field, value)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "activity id")
	cmd.Flags().StringVar(&field, "field", "", "status, version, description, timeout or retries")
	cmd.Flags().StringVar(&value, "value", "", "new value")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("field")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func checkVariables(out io.Writer, reg *registry.ActivityRegistry, taskType string, data []byte) error {
	if _, ok := reg.Find(taskType); !ok {
		return fmt.Errorf("task type %s is not registered", taskType)
	}
	var vars map[string]interface{}
	if err := json.Unmarshal(data, &vars); err != nil {
		return fmt.Errorf("variables are not a JSON object: %w", err)
	}

	v, err := validation.NewValidator(reg)
	if err != nil {
		return err
	}
	res := v.Validate(taskType, vars)
	if res.Valid {
		fmt.Fprintf(out, "Variables are valid for %s\n", taskType)
		return nil
	}
	msgs := res.GetErrorMessages()
	sort.Strings(msgs)
	for _, m := range msgs {
		fmt.Fprintf(out, "  - %s\n", m)
	}
	return fmt.Errorf("%d validation error(s) for %s", len(msgs), taskType)
}

func updateActivity(reg *registry.ActivityRegistry, id, field, value string) error {
	for i := range reg.Activities {
		a := &reg.Activities[i]
		if a.ID != id {
			continue
		}
		switch field {
		case "status":
			a.ImplementationStatus = value
		case "version":
			a.Version = value
		case "description":
			a.Description = value
		case "timeout":
			if _, err := time.ParseDuration(value); err != nil {
				return fmt.Errorf("invalid timeout value: %w", err)
			}
			a.Timeout = value
		case "retries":
			retries, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid retries value: %w", err)
			}
			a.Retries = retries
		default:
			return fmt.Errorf("unknown field: %s", field)
		}
		return nil
	}
	return fmt.Errorf("activity with ID %s not found", id)
}

func saveRegistry(reg *registry.ActivityRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

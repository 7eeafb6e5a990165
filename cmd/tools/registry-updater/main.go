// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"medsearch-service/pkg/registry"
)

const defaultRegistryPath = "configs/activity-registry.json"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run dispatches one subcommand. Every subcommand accepts -path.
func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		help(out)
		return fmt.Errorf("missing command")
	}

	switch args[0] {
	case "add":
		return runAdd(args[1:], out)
	case "update":
		return runUpdate(args[1:], out)
	case "validate":
		return runValidate(args[1:], out)
	case "list":
		return runList(args[1:], out)
	case "help", "-h", "--help":
		help(out)
		return nil
	default:
		help(out)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func newFlagSet(name string, path *string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(path, "path", defaultRegistryPath, "Path to registry file")
	return fs
}

func runAdd(args []string, out io.Writer) error {
	var path string
	fs := newFlagSet("add", &path)
	activity := registry.Activity{}
	var status string
	fs.StringVar(&activity.ID, "id", "", "Activity ID (e.g., medication.search.run)")
	fs.StringVar(&activity.DisplayName, "displayName", "", "Display Name (e.g., Medication Search)")
	fs.StringVar(&activity.Description, "description", "", "Description")
	fs.StringVar(&activity.Category, "category", "", "Category (e.g., medication)")
	fs.StringVar(&activity.TaskType, "taskType", "", "Zeebe job type (e.g., medication-search)")
	fs.StringVar(&activity.Version, "version", "1.0.0", "Version")
	fs.StringVar(&activity.Timeout, "timeout", "60s", "Job timeout as a Go duration")
	fs.IntVar(&activity.Retries, "retries", 3, "Job retries")
	fs.StringVar(&status, "status", string(registry.StatusPlanned), "Implementation status (planned, in-progress, completed, verified)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if activity.ID == "" || activity.DisplayName == "" || activity.Category == "" || activity.TaskType == "" {
		fs.Usage()
		return fmt.Errorf("id, displayName, category and taskType are required for add")
	}
	activity.ImplementationStatus = registry.Status(status)

	reg, err := registry.LoadRegistry(path)
	switch {
	case os.IsNotExist(err):
		reg = &registry.ActivityRegistry{Version: "1.0.0"}
	case err != nil:
		return fmt.Errorf("failed to load registry: %w", err)
	}

	for _, existing := range reg.Activities {
		if existing.ID == activity.ID {
			return fmt.Errorf("activity with ID %s already exists", activity.ID)
		}
	}
	reg.Activities = append(reg.Activities, activity)

	if err := save(reg, path); err != nil {
		return err
	}
	fmt.Fprintf(out, "Added activity: %s\n", activity.ID)
	return nil
}

func runUpdate(args []string, out io.Writer) error {
	var path, id, field, value string
	fs := newFlagSet("update", &path)
	fs.StringVar(&id, "id", "", "Activity ID to update")
	fs.StringVar(&field, "field", "", "Field to update (status, version, timeout, retries, ...)")
	fs.StringVar(&value, "value", "", "New value for the field")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if id == "" || field == "" || value == "" {
		fs.Usage()
		return fmt.Errorf("id, field and value are required for update")
	}

	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	var target *registry.Activity
	for i := range reg.Activities {
		if reg.Activities[i].ID == id {
			target = &reg.Activities[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("activity with ID %s not found", id)
	}
	if err := setField(target, field, value); err != nil {
		return err
	}

	if err := save(reg, path); err != nil {
		return err
	}
	fmt.Fprintf(out, "Updated activity %s, field %s to %s\n", id, field, value)
	return nil
}

func setField(a *registry.Activity, field, value string) error {
	switch field {
	case "status":
		a.ImplementationStatus = registry.Status(value)
	case "version":
		a.Version = value
	case "displayName":
		a.DisplayName = value
	case "description":
		a.Description = value
	case "category":
		a.Category = value
	case "taskType":
		a.TaskType = value
	case "timeout":
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

func runValidate(args []string, out io.Writer) error {
	var path string
	if err := newFlagSet("validate", &path).Parse(args); err != nil {
		return err
	}
	reg, err := registry.LoadRegistry(path)
	if err == nil {
		err = reg.Validate()
	}
	if err != nil {
		return fmt.Errorf("registry validation failed: %w", err)
	}
	fmt.Fprintf(out, "Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}

func runList(args []string, out io.Writer) error {
	var path string
	if err := newFlagSet("list", &path).Parse(args); err != nil {
		return err
	}
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	for _, a := range reg.Activities {
		status := a.ImplementationStatus
		if status == "" {
			status = registry.StatusPlanned
		}
		fmt.Fprintf(out, "%-32s %-24s %-12s %s\n", a.ID, a.TaskType, status, a.Timeout)
	}
	return nil
}

// save validates before writing so a bad edit never lands on disk.
func save(reg *registry.ActivityRegistry, path string) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	return reg.Save(path)
}

func help(out io.Writer) {
	fmt.Fprintln(out, `
Usage: registry-updater <command> [flags]

Commands:
  add      Add a new activity to the registry
  update   Update an existing activity's field
  validate Validate the registry file
  list     List registered activities
  help     Show this help message

Examples:
  registry-updater add -id medication.interactions.check -displayName "Check Interactions" -category medication -taskType check-interactions
  registry-updater update -id medication.search.run -field timeout -value 45s
  registry-updater validate -path configs/activity-registry.json`)
}

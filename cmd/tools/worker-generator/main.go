// cmd/tools/worker-generator/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"medsearch-service/pkg/registry"
)

// WorkerData holds data for templates
type WorkerData struct {
	Name         string
	PackageName  string
	TaskType     string
	Category     string
	Description  string
	Timeout      string
	ErrorCodes   []string
	InputFields  string
	OutputFields string
	Dir          string
}

// parseSchema extracts properties from a JSON schema object
func parseSchema(schemaObj map[string]interface{}) map[string]interface{} {
	if props, ok := schemaObj["properties"].(map[string]interface{}); ok {
		return props
	}
	return map[string]interface{}{}
}

func requiredSet(schemaObj map[string]interface{}) map[string]bool {
	set := map[string]bool{}
	if req, ok := schemaObj["required"].([]interface{}); ok {
		for _, r := range req {
			if name, ok := r.(string); ok {
				set[name] = true
			}
		}
	}
	return set
}

// goTypeFromJSONType maps JSON schema types to Go types
func goTypeFromJSONType(jsonType interface{}) string {
	switch jsonType {
	case "string":
		return "string"
	case "integer":
		return "int"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "object":
		return "map[string]interface{}"
	case "array":
		return "[]interface{}"
	default:
		return "interface{}"
	}
}

// generateStructFields renders struct fields for a schema, sorted by property
// name. Optional properties get omitempty.
func generateStructFields(schemaObj map[string]interface{}) string {
	properties := parseSchema(schemaObj)
	required := requiredSet(schemaObj)

	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]string, 0, len(names))
	for _, name := range names {
		details, _ := properties[name].(map[string]interface{})
		tag := name
		if !required[name] {
			tag += ",omitempty"
		}
		field := fmt.Sprintf("\t%s %s `json:\"%s\"`", exportedName(name), goTypeFromJSONType(details["type"]), tag)
		if desc, ok := details["description"].(string); ok && desc != "" {
			field += " // " + desc
		}
		fields = append(fields, field)
	}
	return strings.Join(fields, "\n")
}

// exportedName turns searchType or search_type into SearchType.
func exportedName(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' })
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(strings.ToUpper(p[:1]) + p[1:])
	}
	return b.String()
}

func packageName(taskType string) string {
	return strings.ToLower(strings.NewReplacer("-", "", "_", "", ".", "").Replace(taskType))
}

func newWorkerData(a *registry.Activity) WorkerData {
	return WorkerData{
		Name:         a.DisplayName,
		PackageName:  packageName(a.TaskType),
		TaskType:     a.TaskType,
		Category:     a.Category,
		Description:  a.Description,
		Timeout:      a.Timeout,
		ErrorCodes:   a.ErrorCodes,
		InputFields:  generateStructFields(a.InputSchema),
		OutputFields: generateStructFields(a.OutputSchema),
		Dir:          filepath.ToSlash(filepath.Join("internal", "workers", strings.ToLower(a.Category), a.TaskType)),
	}
}

const configTemplate = `// {{ .Dir }}/config.go
package {{ .PackageName }}

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	timeout, err := time.ParseDuration("{{ .Timeout }}")
	if err != nil || timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Config{Timeout: timeout}
}
`

const modelsTemplate = `// {{ .Dir }}/models.go
package {{ .PackageName }}

type Input struct {
{{ .InputFields }}
}

type Output struct {
{{ .OutputFields }}
}
`

const handlerTemplate = `// {{ .Dir }}/handler.go
package {{ .PackageName }}

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "medsearch-service/internal/common/errors"
	"medsearch-service/internal/common/validation"
)

const (
	TaskType = "{{ .TaskType }}"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Handler runs the {{ .Name }} activity.{{ if .Description }} {{ .Description }}{{ end }}
type Handler struct {
	config       *Config
	validator    *validation.Validator
	logger       Logger
	errorHandler *apperrors.ErrorHandler
}

// NewHandler takes the activity's input validator from the registry. A nil
// validator accepts any JSON object.
func NewHandler(config *Config, validator *validation.Validator, logger Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	log := logger.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		validator:    validator,
		logger:       log,
		errorHandler: apperrors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job.Variables)
	if err == nil {
		var output *Output
		if output, err = h.execute(ctx, input); err == nil {
			h.completeJob(ctx, client, job, output)
			return
		}
	}
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) parseInput(variables string) (*Input, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(variables), &raw); err != nil {
		return nil, apperrors.NewInvalidSearchRequestError("job variables are not a JSON object")
	}
	if h.validator != nil {
		if result := h.validator.ValidateObject(raw); !result.Valid {
			return nil, apperrors.NewInvalidSearchRequestError(strings.Join(result.GetErrorMessages(), "; "))
		}
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewInvalidSearchRequestError(err.Error())
	}
	return &input, nil
}

// TODO: implement {{ .TaskType }}{{ range .ErrorCodes }}; may fail with {{ . }}{{ end }}.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	return nil, fmt.Errorf("%s is not implemented", TaskType)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{"jobKey": job.Key, "error": err.Error()})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("Failed to send complete job", map[string]interface{}{"jobKey": job.Key, "error": err.Error()})
	}
}
`

const testTemplate = `package {{ .PackageName }}

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type nopLogger struct{}

func (nopLogger) Info(string, map[string]interface{})    {}
func (nopLogger) Warn(string, map[string]interface{})    {}
func (nopLogger) Error(string, map[string]interface{})   {}
func (l nopLogger) With(map[string]interface{}) Logger { return l }

func TestHandler_ParseInput_RejectsNonObject(t *testing.T) {
	h := NewHandler(nil, nil, nopLogger{})
	_, err := h.parseInput("[]")
	assert.Error(t, err)
}
`

var templates = []struct {
	file string
	body string
}{
	{"config.go", configTemplate},
	{"models.go", modelsTemplate},
	{"handler.go", handlerTemplate},
	{"handler_test.go", testTemplate},
}

// generate writes the scaffold under root and returns the worker directory.
// Existing files are never overwritten.
func generate(root string, data WorkerData) (string, error) {
	workerDir := filepath.Join(root, filepath.FromSlash(data.Dir))
	if err := os.MkdirAll(workerDir, 0755); err != nil {
		return "", fmt.Errorf("creating %s: %w", workerDir, err)
	}

	for _, t := range templates {
		tmpl, err := template.New(t.file).Parse(t.body)
		if err != nil {
			return "", fmt.Errorf("parsing template %s: %w", t.file, err)
		}

		path := filepath.Join(workerDir, t.file)
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			return "", fmt.Errorf("creating %s: %w", path, err)
		}
		err = tmpl.Execute(file, data)
		file.Close()
		if err != nil {
			return "", fmt.Errorf("rendering %s: %w", path, err)
		}
		fmt.Printf("Generated %s\n", path)
	}
	return workerDir, nil
}

func main() {
	activityID := flag.String("activity", "", "Activity ID from registry (e.g., medication.search.run)")
	root := flag.String("root", ".", "Module root the worker is generated under")
	registryPath := flag.String("registry", "configs/activity-registry.json", "Path to the activity registry JSON file")
	flag.Parse()

	if *activityID == "" {
		fmt.Println("Usage: worker-generator -activity <id> [-root <dir>] [-registry <path>]")
		fmt.Println("\nExample:")
		fmt.Println("  go run ./cmd/tools/worker-generator -activity medication.interactions.check")
		os.Exit(1)
	}

	reg, err := registry.LoadRegistry(*registryPath)
	if err != nil {
		fmt.Printf("Error loading registry from %s: %v\n", *registryPath, err)
		os.Exit(1)
	}

	var activity *registry.Activity
	for i := range reg.Activities {
		if reg.Activities[i].ID == *activityID {
			activity = &reg.Activities[i]
			break
		}
	}
	if activity == nil {
		fmt.Printf("Activity '%s' not found in registry %s\n", *activityID, *registryPath)
		os.Exit(1)
	}

	workerDir, err := generate(*root, newWorkerData(activity))
	if err != nil {
		fmt.Printf("Error generating worker: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nWorker scaffold generated at: %s\n", workerDir)
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("  1. Implement execute in handler.go\n")
	fmt.Printf("  2. Register the worker in cmd/worker-manager/main.go\n")
	fmt.Printf("  3. Add a workers.%s section to configs/config.yaml\n", activity.TaskType)
}

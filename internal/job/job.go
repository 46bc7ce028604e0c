package job

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/openbuilders/sol-batch-sender/internal/errors"
	"github.com/openbuilders/sol-batch-sender/internal/types"

	"github.com/xeipuuv/gojsonschema"
	"sigs.k8s.io/yaml"
)

//go:embed schema.yaml
var schemaYAML []byte

var schema *gojsonschema.Schema

func init() {
	schemaJSON, err := yaml.YAMLToJSON(schemaYAML)
	if err != nil {
		panic(fmt.Sprintf("job schema: %v", err))
	}

	schema, err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("job schema: %v", err))
	}
}

// Load reads and decodes the job document at path.
func Load(path string) (*types.Job, error) {
	data, err := Read(path)
	if err != nil {
		return nil, err
	}

	return Decode(data)
}

func Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeInput, "read job document", err)
	}

	return data, nil
}

// Decode accepts YAML or JSON. The document is checked against the job
// schema first, so every structural problem is reported at once.
func Decode(data []byte) (*types.Job, error) {
	doc, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, errors.New(errors.CodeInput, "parse job document", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return nil, errors.New(errors.CodeInput, "parse job document", err)
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}

		return nil, errors.New(errors.CodeValidation, "invalid job document",
			fmt.Errorf("%s", strings.Join(problems, "; ")))
	}

	var job types.Job
	if err := json.Unmarshal(doc, &job); err != nil {
		return nil, errors.New(errors.CodeValidation, "invalid job document", err)
	}

	return &job, nil
}

func Encode(job *types.Job) ([]byte, error) {
	data, err := yaml.Marshal(job)
	if err != nil {
		return nil, errors.New(errors.CodeOutput, "encode job document", err)
	}

	return data, nil
}

// Save writes the job to path through a temporary file in the same
// directory, so readers never see a partial document.
func Save(path string, job *types.Job) error {
	data, err := Encode(job)
	if err != nil {
		return err
	}

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".*")
	if err != nil {
		return errors.New(errors.CodeOutput, "create output file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.New(errors.CodeOutput, "write output file", err)
	}

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return errors.New(errors.CodeOutput, "write output file", err)
	}

	if err := tmp.Close(); err != nil {
		return errors.New(errors.CodeOutput, "write output file", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.New(errors.CodeOutput, "replace output file", err)
	}

	return nil
}

// Package input loads lead lists from JSON or YAML files.
package input

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lead-cli/internal/model"
)

// entry accepts either a bare profile URL or a full lead object.
type entry model.LeadInput

func (e *entry) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		e.URL = value.Value
		return nil
	}
	var in model.LeadInput
	if err := value.Decode(&in); err != nil {
		return err
	}
	*e = entry(in)
	return nil
}

// Load reads a list of leads. JSON is parsed as YAML, so both formats share
// one decoder. Entries may be URL strings or objects with url, name and
// email. Every entry is validated and order is preserved.
func Load(path string) ([]model.LeadInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "input: read %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a lead list.
func Parse(data []byte) ([]model.LeadInput, error) {
	var entries []entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, eris.Wrap(err, "input: decode leads")
	}

	validate := validator.New()
	leads := make([]model.LeadInput, 0, len(entries))
	var problems []string
	for i, e := range entries {
		in := model.LeadInput(e)
		in.URL = strings.TrimSpace(in.URL)
		in.Name = strings.TrimSpace(in.Name)
		in.Email = strings.TrimSpace(in.Email)
		if err := validate.Struct(in); err != nil {
			problems = append(problems, fmt.Sprintf("lead %d (%q): %v", i, in.URL, err))
			continue
		}
		leads = append(leads, in)
	}
	if len(problems) > 0 {
		return nil, eris.Errorf("input: %d invalid leads: %s", len(problems), strings.Join(problems, "; "))
	}
	return leads, nil
}

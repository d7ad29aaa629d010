package state

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML property file, expands environment variables, and
// flattens it into a State.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("state file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read state file %q: %w", path, err)
	}
	st, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	return st, nil
}

// Parse expands environment variables in data and flattens the YAML
// mapping into a State.
func Parse(data []byte) (*State, error) {
	expanded, err := ExpandEnv(string(data))
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, err
	}
	return FromMap(raw)
}

// FromMap flattens an already decoded YAML mapping into a State.
func FromMap(raw map[string]any) (*State, error) {
	props := make(map[string]string)
	if err := flatten("", raw, props); err != nil {
		return nil, err
	}
	return New(props), nil
}

func flatten(prefix string, node map[string]any, out map[string]string) error {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			if err := flatten(key, val, out); err != nil {
				return err
			}
		case []any:
			return fmt.Errorf("property %q: sequences are not supported", key)
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(val)
		}
	}
	return nil
}

package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Metadata describes a model's tensors. It is read from an optional JSON
// sidecar next to the .onnx file; fields left out fall back to the defaults
// for the model kind.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
	Classes     []string `json:"classes,omitempty"`
}

// ImageDefaults matches the exported KL grade classifier.
func ImageDefaults() Metadata {
	return Metadata{
		InputShape:  []int64{1, 200, 200, 1},
		OutputShape: []int64{1, 5},
		InputName:   "input",
		OutputName:  "output",
	}
}

// QuestionnaireDefaults matches the exported symptom questionnaire classifier.
func QuestionnaireDefaults() Metadata {
	return Metadata{
		InputShape:  []int64{1, 8},
		OutputShape: []int64{1, 3},
		InputName:   "input",
		OutputName:  "output",
	}
}

// InputSize is the number of float32 values the model consumes.
func (m Metadata) InputSize() int { return volume(m.InputShape) }

// OutputSize is the number of float32 values the model produces.
func (m Metadata) OutputSize() int { return volume(m.OutputShape) }

func volume(shape []int64) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= int(d)
	}
	return n
}

// Validate reports shapes that cannot back a tensor.
func (m Metadata) Validate() error {
	for _, s := range []struct {
		name  string
		shape []int64
	}{{"input_shape", m.InputShape}, {"output_shape", m.OutputShape}} {
		if len(s.shape) == 0 {
			return fmt.Errorf("metadata %s is empty", s.name)
		}
		for _, d := range s.shape {
			if d <= 0 {
				return fmt.Errorf("metadata %s has non-positive dimension %d", s.name, d)
			}
		}
	}
	if m.InputName == "" || m.OutputName == "" {
		return errors.New("metadata tensor names must be set")
	}
	if len(m.Classes) > 0 && len(m.Classes) != m.OutputSize() {
		return fmt.Errorf("metadata lists %d classes for %d outputs", len(m.Classes), m.OutputSize())
	}
	return nil
}

// LoadMetadata reads the sidecar at path and fills unset fields from
// defaults. A missing file, or an empty path, yields defaults unchanged.
func LoadMetadata(path string, defaults Metadata) (Metadata, error) {
	if path == "" {
		return defaults, nil
	}

	metaFile, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaults, nil
		}
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}

	if len(metadata.InputShape) == 0 {
		metadata.InputShape = defaults.InputShape
	}
	if len(metadata.OutputShape) == 0 {
		metadata.OutputShape = defaults.OutputShape
	}
	if metadata.InputName == "" {
		metadata.InputName = defaults.InputName
	}
	if metadata.OutputName == "" {
		metadata.OutputName = defaults.OutputName
	}
	if metadata.Classes == nil {
		metadata.Classes = defaults.Classes
	}

	if err := metadata.Validate(); err != nil {
		return Metadata{}, err
	}
	return metadata, nil
}

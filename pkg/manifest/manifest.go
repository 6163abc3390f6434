package manifest

import (
	"encoding/json"
	"fmt"
	"os"
)

/*
	Written next to the draft when a receive run ends with gaps,
	consumed by a later send run to replay only the missing parts.
*/

type Manifest struct {
	Filename   string `json:"filename"`
	TotalParts int    `json:"total_parts"`
	Missing    []int  `json:"missing"`
}

func New(filename string, totalParts int, missing []int) *Manifest {
	return &Manifest{
		Filename:   filename,
		TotalParts: totalParts,
		Missing:    missing,
	}
}

func (m *Manifest) Validate() error {
	if m.Filename == "" {
		return fmt.Errorf("manifest has no filename")
	}
	if m.TotalParts < 1 {
		return fmt.Errorf("manifest total_parts %d is invalid", m.TotalParts)
	}
	if len(m.Missing) == 0 {
		return fmt.Errorf("manifest has no missing parts")
	}
	prev := 0
	for _, part := range m.Missing {
		if part < 1 || part > m.TotalParts {
			return fmt.Errorf("missing part %d out of range [1, %d]", part, m.TotalParts)
		}
		if part <= prev {
			return fmt.Errorf("missing parts are not strictly increasing at %d", part)
		}
		prev = part
	}
	return nil
}

func (m *Manifest) Save(path string) error {
	buf, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

func Load(path string) (*Manifest, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	m := &Manifest{}
	if err = json.Unmarshal(buf, m); err != nil {
		return nil, fmt.Errorf("parse manifest %s error: %v", path, err)
	}
	if err = m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %s is invalid: %v", path, err)
	}
	return m, nil
}

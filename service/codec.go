package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/andrewpaige1/stakemap/models"
)

// Format is an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml; empty means json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", models.ErrInvalid, s)
}

func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// EncodeExport renders doc. YAML goes through the JSON form so both encodings
// share the json field names.
func EncodeExport(doc *models.Export, f Format) ([]byte, error) {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	if f != FormatYAML {
		return raw, nil
	}
	out, err := yaml.JSONToYAML(raw)
	if err != nil {
		return nil, fmt.Errorf("encode export as yaml: %w", err)
	}
	return out, nil
}

// DecodeExport reads a JSON or YAML export document.
func DecodeExport(raw []byte) (*models.Export, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty import document", models.ErrInvalid)
	}
	if trimmed[0] != '{' {
		converted, err := yaml.YAMLToJSON(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%w: decode yaml: %v", models.ErrInvalid, err)
		}
		trimmed = converted
	}
	var doc models.Export
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode json: %v", models.ErrInvalid, err)
	}
	if doc.Maps == nil {
		doc.Maps = []models.StakeholderMap{}
	}
	return &doc, nil
}

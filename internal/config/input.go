package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"inputswitch/internal/ddc"
)

// Input is an input source value that reads from YAML as a name ("hdmi1",
// "DP-2") or a number (17, 0x11). Zero means unset.
type Input int

func (i *Input) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: input source must be a scalar", node.Line)
	}
	if node.Value == "" || node.Tag == "!!null" {
		*i = 0
		return nil
	}

	v, err := ddc.ParseInput(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*i = Input(v)

	return nil
}

func (i Input) MarshalYAML() (any, error) {
	if i == 0 {
		return nil, nil
	}
	return i.String(), nil
}

// String renders known inputs by name and others as hex.
func (i Input) String() string {
	if i == 0 {
		return ""
	}
	name := ddc.InputName(int(i))
	if name == fmt.Sprintf("Input-0x%02X", int(i)) {
		return fmt.Sprintf("0x%02X", int(i))
	}
	return name
}

package ddc

import (
	"fmt"
	"strconv"
	"strings"
)

// Standard VCP 0x60 input source values
const (
	InputVGA1         = 0x01
	InputDVI1         = 0x03
	InputDVI2         = 0x04
	InputDisplayPort1 = 0x0F
	InputDisplayPort2 = 0x10
	InputHDMI1        = 0x11
	InputHDMI2        = 0x12
	InputHDMI3        = 0x13
	InputUSBC         = 0x1B
)

var inputNames = map[int]string{
	InputVGA1:         "VGA",
	InputDVI1:         "DVI-1",
	InputDVI2:         "DVI-2",
	InputDisplayPort1: "DisplayPort-1",
	InputDisplayPort2: "DisplayPort-2",
	InputHDMI1:        "HDMI-1",
	InputHDMI2:        "HDMI-2",
	InputHDMI3:        "HDMI-3",
	InputUSBC:         "USB-C",
}

// Accepted spellings, compared after lowercasing and stripping '-', '_' and spaces.
var inputAliases = map[string]int{
	"vga":          InputVGA1,
	"dvi":          InputDVI1,
	"dvi1":         InputDVI1,
	"dvi2":         InputDVI2,
	"dp":           InputDisplayPort1,
	"dp1":          InputDisplayPort1,
	"dp2":          InputDisplayPort2,
	"displayport":  InputDisplayPort1,
	"displayport1": InputDisplayPort1,
	"displayport2": InputDisplayPort2,
	"hdmi":         InputHDMI1,
	"hdmi1":        InputHDMI1,
	"hdmi2":        InputHDMI2,
	"hdmi3":        InputHDMI3,
	"usbc":         InputUSBC,
	"thunderbolt":  InputUSBC,
}

// InputName renders an input source value, e.g. 0x11 -> "HDMI-1".
func InputName(value int) string {
	if name, ok := inputNames[value]; ok {
		return name
	}
	return fmt.Sprintf("Input-0x%02X", value)
}

// ParseInput accepts an input name ("hdmi1", "DP-2"), a decimal value ("17")
// or a hex value ("0x11").
func ParseInput(s string) (int, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "", "_", "", " ", "").Replace(key)
	if v, ok := inputAliases[key]; ok {
		return v, nil
	}

	v, err := strconv.ParseInt(key, 0, 16)
	if err != nil || v <= 0 || v > 0xFF {
		return 0, fmt.Errorf("unknown input source %q", s)
	}
	return int(v), nil
}

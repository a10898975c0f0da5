package ddc

import (
	"fmt"
	"regexp"
	"strconv"
)

// dialect translates backend operations into one DDC tool's command line.
type dialect interface {
	// binary is the executable looked up on PATH.
	binary() string
	// listCommand returns the command that enumerates displays.
	listCommand(tool string) (string, []string)
	parseList(output string) ([]DisplayDescriptor, error)
	getArgs(displayID string, code VCPCode) ([]string, error)
	parseValue(output string) (VCPValue, error)
	setArgs(displayID string, code VCPCode, value int) ([]string, error)
}

type ddcutilDialect struct{}

func (ddcutilDialect) binary() string { return defaultDDCTool }

func (ddcutilDialect) listCommand(tool string) (string, []string) {
	return tool, []string{"detect"}
}

func (ddcutilDialect) parseList(output string) ([]DisplayDescriptor, error) {
	return parseDetectOutput(output), nil
}

func (ddcutilDialect) getArgs(displayID string, code VCPCode) ([]string, error) {
	return []string{"getvcp", formatCode(code), "--display=" + displayID}, nil
}

func (ddcutilDialect) parseValue(output string) (VCPValue, error) {
	return parseVCPReply(output)
}

func (ddcutilDialect) setArgs(displayID string, code VCPCode, value int) ([]string, error) {
	return []string{"setvcp", formatCode(code), strconv.Itoa(value), "--display=" + displayID}, nil
}

// The macOS tools address external displays by their 1-based position and
// only know a handful of controls by name.
var (
	m1ddcControls = map[VCPCode]string{
		BrightnessCode:  "luminance",
		ContrastCode:    "contrast",
		InputSourceCode: "input",
		VolumeCode:      "volume",
	}
	ddcctlControls = map[VCPCode]string{
		BrightnessCode:  "-b",
		ContrastCode:    "-c",
		InputSourceCode: "-i",
		VolumeCode:      "-v",
	}
)

// Reply formats, tried in order:
//
//	"15"
//	"input: 15"
var m1ddcReplyPatterns = []replyPattern{
	{regexp.MustCompile(`(?:luminance|contrast|volume|input):\s*(\d+)`), 10},
	{regexp.MustCompile(`(?m)^\s*(\d+)\s*$`), 10},
}

// Reply formats, tried in order:
//
//	"I: VCP control #96 (0x60) = current: 15, max: 18"
//	"control #96 = 15"
//	"input = 15"
var ddcctlReplyPatterns = []replyPattern{
	{regexp.MustCompile(`current:\s*(\d+)`), 10},
	{regexp.MustCompile(`control\s+#\d+\s+=\s+(\d+)`), 10},
	{regexp.MustCompile(`(?:brightness|contrast|volume|input)\s*=\s*(\d+)`), 10},
}

func displayNumber(displayID string) (string, error) {
	n, err := strconv.Atoi(displayID)
	if err != nil || n < 1 {
		return "", fmt.Errorf("invalid display id %q", displayID)
	}
	return strconv.Itoa(n), nil
}

// macDisplays enumerates external displays through system_profiler, since
// neither macOS tool lists displays reliably.
type macDisplays struct{}

func (macDisplays) listCommand(string) (string, []string) {
	return "system_profiler", []string{"SPDisplaysDataType", "-json"}
}

func (macDisplays) parseList(output string) ([]DisplayDescriptor, error) {
	return parseSystemProfiler(output)
}

type m1ddcDialect struct{ macDisplays }

func (m1ddcDialect) binary() string { return "m1ddc" }

func (m1ddcDialect) getArgs(displayID string, code VCPCode) ([]string, error) {
	n, control, err := m1ddcTarget(displayID, code)
	if err != nil {
		return nil, err
	}
	return []string{"display", n, "get", control}, nil
}

func (m1ddcDialect) parseValue(output string) (VCPValue, error) {
	return parseReply(output, m1ddcReplyPatterns)
}

func (m1ddcDialect) setArgs(displayID string, code VCPCode, value int) ([]string, error) {
	n, control, err := m1ddcTarget(displayID, code)
	if err != nil {
		return nil, err
	}
	return []string{"display", n, "set", control, strconv.Itoa(value)}, nil
}

func m1ddcTarget(displayID string, code VCPCode) (string, string, error) {
	n, err := displayNumber(displayID)
	if err != nil {
		return "", "", err
	}
	control, ok := m1ddcControls[code]
	if !ok {
		return "", "", fmt.Errorf("unsupported VCP code for m1ddc: %s", formatCode(code))
	}
	return n, control, nil
}

type ddcctlDialect struct{ macDisplays }

func (ddcctlDialect) binary() string { return "ddcctl" }

func (ddcctlDialect) getArgs(displayID string, code VCPCode) ([]string, error) {
	n, flag, err := ddcctlTarget(displayID, code)
	if err != nil {
		return nil, err
	}
	return []string{"-d", n, flag, "?"}, nil
}

func (ddcctlDialect) parseValue(output string) (VCPValue, error) {
	return parseReply(output, ddcctlReplyPatterns)
}

func (ddcctlDialect) setArgs(displayID string, code VCPCode, value int) ([]string, error) {
	n, flag, err := ddcctlTarget(displayID, code)
	if err != nil {
		return nil, err
	}
	return []string{"-d", n, flag, strconv.Itoa(value)}, nil
}

func ddcctlTarget(displayID string, code VCPCode) (string, string, error) {
	n, err := displayNumber(displayID)
	if err != nil {
		return "", "", err
	}
	flag, ok := ddcctlControls[code]
	if !ok {
		return "", "", fmt.Errorf("unsupported VCP code for ddcctl: %s", formatCode(code))
	}
	return n, flag, nil
}

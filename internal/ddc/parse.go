package ddc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	detectDisplayLine = regexp.MustCompile(`^Display (\d+)(?::\s*(.*)|\s*)$`)
	deviceIDLabel     = regexp.MustCompile(`#(.+?)#`)
)

// Reply formats seen across ddcutil versions, tried in order:
//
//	"... value: 17"
//	"VCP code 0x60 (Input Source): current value = 17, max value = 255"
//	"VCP code 0x60 (Input Source                  ): HDMI-1 (sl=0x11)"
//	"VCP 60 SNC x11"                 (--brief)
//	"VCP 10 C 75 100"                (--brief, continuous)
var vcpReplyPatterns = []replyPattern{
	{regexp.MustCompile(`value:\s*(\d+)`), 10},
	{regexp.MustCompile(`current value\s*=\s*(\d+)`), 10},
	{regexp.MustCompile(`sl=0x([0-9a-fA-F]+)`), 16},
	{regexp.MustCompile(`(?m)^VCP [0-9a-fA-F]+ SNC x([0-9a-fA-F]+)`), 16},
	{regexp.MustCompile(`(?m)^VCP [0-9a-fA-F]+ C (\d+)`), 10},
}

// parseDetectOutput extracts displays from `ddcutil detect` output. Lines
// that are not recognized are skipped, so garbage yields an empty result.
func parseDetectOutput(output string) []DisplayDescriptor {
	displays := []DisplayDescriptor{}
	var current *DisplayDescriptor
	var modelSeen bool

	flush := func() {
		if current != nil {
			displays = append(displays, *current)
		}
		current = nil
		modelSeen = false
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		raw := scanner.Text()
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		indented := raw[0] == ' ' || raw[0] == '\t'

		if matches := detectDisplayLine.FindStringSubmatch(line); matches != nil && !indented {
			flush()
			current = &DisplayDescriptor{
				ID:    matches[1],
				Label: "Display " + matches[1],
			}
			if rest := strings.TrimSpace(matches[2]); rest != "" {
				current.Label = rest
				modelSeen = true
			}
			continue
		}

		// Any other top-level line ("Invalid display", "Phantom display")
		// closes the current block.
		if !indented {
			flush()
			continue
		}

		if current == nil {
			continue
		}

		switch {
		case strings.HasPrefix(line, "Model:"):
			if model := extractField(line, "Model:"); model != "" {
				current.Label = model
				modelSeen = true
			}
		case strings.HasPrefix(line, "Monitor:") && !modelSeen:
			// Monitor: DEL:DELL U2720Q:5K1B2C3
			parts := strings.Split(extractField(line, "Monitor:"), ":")
			if len(parts) >= 2 && strings.TrimSpace(parts[1]) != "" {
				current.Label = strings.TrimSpace(parts[1])
			}
		}
	}
	flush()

	return displays
}

func extractField(line, fieldName string) string {
	parts := strings.SplitN(line, fieldName, 2)
	if len(parts) < 2 {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

type replyPattern struct {
	re   *regexp.Regexp
	base int
}

func parseVCPReply(output string) (VCPValue, error) {
	return parseReply(output, vcpReplyPatterns)
}

// parseReply reads the value(s) out of a tool reply. The first pattern that
// matches wins; every match of that pattern becomes one element.
func parseReply(output string, patterns []replyPattern) (VCPValue, error) {
	output = strings.TrimSpace(output)

	for _, p := range patterns {
		matches := p.re.FindAllStringSubmatch(output, -1)
		if len(matches) == 0 {
			continue
		}

		value := make(VCPValue, 0, len(matches))
		for _, m := range matches {
			n, err := strconv.ParseInt(m[1], p.base, 32)
			if err != nil {
				continue
			}
			value = append(value, int(n))
		}
		if len(value) > 0 {
			return value, nil
		}
	}

	return nil, fmt.Errorf("could not parse value from output: '%s'", output)
}

type systemProfilerOutput struct {
	Displays []struct {
		Ndrvs []struct {
			Name           string `json:"_name"`
			DisplayID      string `json:"_spdisplays_displayID"`
			VendorID       string `json:"_spdisplays_display-vendor-id"`
			ConnectionType string `json:"spdisplays_connection_type"`
		} `json:"spdisplays_ndrvs"`
	} `json:"SPDisplaysDataType"`
}

var knownVendors = map[string]string{
	"610":  "Apple",
	"5e3":  "ASUS",
	"10ac": "Dell",
	"1e6d": "LG",
	"4c2d": "Samsung",
}

// parseSystemProfiler numbers the external displays in
// `system_profiler SPDisplaysDataType -json` output from 1, the way m1ddc and
// ddcctl address them. Built-in panels are skipped.
func parseSystemProfiler(output string) ([]DisplayDescriptor, error) {
	var sp systemProfilerOutput
	if err := json.Unmarshal([]byte(output), &sp); err != nil {
		return nil, fmt.Errorf("parse system_profiler output: %w", err)
	}

	displays := []DisplayDescriptor{}
	for _, gpu := range sp.Displays {
		for _, ndrv := range gpu.Ndrvs {
			if ndrv.ConnectionType == "spdisplays_internal" {
				continue
			}

			id := strconv.Itoa(len(displays) + 1)
			label := ndrv.Name
			switch {
			case label != "" && label != "(null)":
			case knownVendors[ndrv.VendorID] != "":
				label = knownVendors[ndrv.VendorID] + " Display"
			default:
				label = "Display " + id
			}

			displays = append(displays, DisplayDescriptor{ID: id, Label: label})
		}
	}

	return displays, nil
}

// labelFromDeviceID pulls the hardware id out of a device interface path,
// e.g. `\\?\DISPLAY#DEL4106#5&1a2b3c&0&UID4352#{e6f07b5f-...}` -> "DEL4106".
func labelFromDeviceID(id, fallback string) string {
	if m := deviceIDLabel.FindStringSubmatch(id); m != nil {
		return m[1]
	}
	if fallback != "" {
		return fallback
	}
	return "Unknown"
}

// Command ghadapter runs a regiondiff binary and exposes its JSON result as GitHub Actions step
// outputs. Nested objects are flattened with underscores, so report.dissimilar becomes
// report_dissimilar. With FAIL_ABOVE set, a diffAmount above it fails the step.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strconv"
)

func main() {
	if len(os.Args) < 2 {
		os.Exit(1)
	}

	var args []string
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}

	cmd := exec.Command(os.Args[1], args...)
	cmd.Stdin = os.Stdin
	cmd.Stderr = os.Stderr

	output, err := cmd.Output()
	if err != nil {
		os.Exit(1)
	}
	_, _ = os.Stdout.Write(output)

	var result map[string]any
	if err := json.Unmarshal(output, &result); err != nil {
		return
	}
	outputs := flatten("", result, map[string]string{})

	if githubOutput := os.Getenv("GITHUB_OUTPUT"); githubOutput != "" {
		f, err := os.OpenFile(githubOutput, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return
		}
		defer f.Close()

		write(f, outputs)
	}

	if limit, err := strconv.ParseFloat(os.Getenv("FAIL_ABOVE"), 64); err == nil {
		if amount, err := strconv.ParseFloat(outputs["diffAmount"], 64); err == nil && amount > limit {
			fmt.Fprintf(os.Stderr, "diffAmount %v is above %v\n", amount, limit)
			os.Exit(2)
		}
	}
}

// flatten stores scalars under their underscore joined path. Arrays are kept as JSON.
func flatten(prefix string, value any, out map[string]string) map[string]string {
	switch v := value.(type) {
	case map[string]any:
		for key, child := range v {
			if prefix != "" {
				key = prefix + "_" + key
			}
			flatten(key, child, out)
		}
	case []any:
		b, _ := json.Marshal(v)
		out[prefix] = string(b)
	case nil:
		out[prefix] = ""
	default:
		out[prefix] = fmt.Sprint(v)
	}
	return out
}

func write(w io.Writer, outputs map[string]string) {
	for _, key := range slices.Sorted(maps.Keys(outputs)) {
		_, _ = fmt.Fprintf(w, "%s=%s\n", key, outputs[key])
	}
}

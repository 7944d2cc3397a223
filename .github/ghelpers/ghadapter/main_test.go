package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFlatten(t *testing.T) {
	var result map[string]any
	if err := json.Unmarshal([]byte(`{
		"diffPath": "/tmp/Comparison/diff/1.png",
		"diffAmount": 0.25,
		"report": {"compared": 12, "dissimilar": 2, "regions": [{"x1": 0}]}
	}`), &result); err != nil {
		t.Fatal(err)
	}

	var got bytes.Buffer
	write(&got, flatten("", result, map[string]string{}))

	want := `diffAmount=0.25
diffPath=/tmp/Comparison/diff/1.png
report_compared=12
report_dissimilar=2
report_regions=[{"x1":0}]
`
	if diff := cmp.Diff(want, got.String()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

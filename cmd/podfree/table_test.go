package main

import (
	"strings"
	"testing"
)

func TestRenderTableKeepsFooterCase(t *testing.T) {
	out := renderTable(
		[]string{"start", "duration"},
		[][]string{{"0.000", "59.5s"}},
		[]columnAlignment{alignRight, alignRight},
		[]string{"total", "1m1.5s"},
	)
	requireContains(t, out, "START")
	requireContains(t, out, "total")
	requireContains(t, out, "1m1.5s")
	if strings.Contains(out, "1M1.5S") || strings.Contains(out, "TOTAL") {
		t.Errorf("footer upper-cased:\n%s", out)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"a", "b"}, [][]string{{"only"}}, nil, nil)
	requireContains(t, out, "only")
	if renderTable(nil, nil, nil, nil) != "" {
		t.Error("table without columns rendered output")
	}
}

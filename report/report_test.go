package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	r := LogReporter{Logger: zerolog.New(&buf)}
	c := &Collector{}
	combined := CombinedReporter{Reporters: []Reporter{r, c}}

	combined.Report(InvalidInput{Side: "right", Label: "B", Field: "key", Value: "nope"})
	combined.Report(MismatchingRow{
		Key:                "2",
		MismatchingColumns: []string{"v"},
		LeftVals:           []string{"20"},
		RightVals:          []string{"99"},
	})
	combined.Report(Summary{Title: "key summary", Metrics: []Metric{{Name: "Matching key values", Value: 2}}})
	combined.Report(struct{}{})
	combined.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	require.Contains(t, lines[0], `"side":"right"`)
	require.Contains(t, lines[0], `"key":"nope"`)
	require.Contains(t, lines[0], `"message":"invalid key"`)
	require.Contains(t, lines[1], `"left_values":{"v":"20"}`)
	require.Contains(t, lines[1], `"right_values":{"v":"99"}`)
	require.Contains(t, lines[2], `"Matching key values":2`)
	require.Contains(t, lines[3], `"message":"unknown object type"`)

	require.Len(t, c.Objects(), 4)
	require.True(t, c.Closed())
}

package reconcile

import (
	"strings"

	"github.com/cockroachdb/differ/compose"
)

type Side int

const (
	Left Side = iota
	Right
)

var sides = [2]Side{Left, Right}

func (s Side) String() string {
	if s == Right {
		return "right"
	}
	return "left"
}

// Dataset is one side of a reconciliation.
type Dataset struct {
	Label  string
	Query  string
	Key    string
	Filter string
}

func (d Dataset) source() compose.Source {
	return compose.Source{Query: d.Query, Filter: d.Filter}
}

var defaultLabels = [2]string{"A", "B"}

// normalizeDatasets trims the inputs, fills in default labels and defaults
// the right key to the left key. Equal labels get the side appended.
func normalizeDatasets(datasets [2]Dataset) [2]Dataset {
	for i := range datasets {
		d := &datasets[i]
		d.Label = strings.TrimSpace(d.Label)
		d.Query = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(d.Query), ";"))
		d.Key = strings.TrimSpace(d.Key)
		d.Filter = strings.TrimSpace(d.Filter)
		if d.Label == "" {
			d.Label = defaultLabels[i]
		}
	}
	if datasets[1].Key == "" {
		datasets[1].Key = datasets[0].Key
	}
	if datasets[0].Label == datasets[1].Label {
		for i, side := range sides {
			datasets[i].Label += " (" + side.String() + ")"
		}
	}
	return datasets
}

func labelsOf(datasets [2]Dataset) [2]string {
	return [2]string{datasets[0].Label, datasets[1].Label}
}

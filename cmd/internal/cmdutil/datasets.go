package cmdutil

import (
	"fmt"

	"github.com/cockroachdb/differ/reconcile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var datasetFlags = []struct {
	name  string
	usage string
}{
	{"query", "SQL query returning the %s dataset"},
	{"key", "column joining the %s dataset"},
	{"label", "name given to the %s dataset in the output"},
	{"filter", "SQL condition restricting the rows of the %s dataset"},
}

func RegisterDatasetFlags(cmd *cobra.Command) {
	for _, side := range []string{"left", "right"} {
		for _, f := range datasetFlags {
			cmd.PersistentFlags().String(side+"-"+f.name, "", fmt.Sprintf(f.usage, side))
		}
	}
	cmd.PersistentFlags().Lookup("right-key").Usage += " (defaults to the left key)"
}

// Datasets reads the left and right dataset settings.
func Datasets(v *viper.Viper) [2]reconcile.Dataset {
	var ret [2]reconcile.Dataset
	for i, side := range []string{"left", "right"} {
		ret[i] = reconcile.Dataset{
			Label:  v.GetString(side + ".label"),
			Query:  v.GetString(side + ".query"),
			Key:    v.GetString(side + ".key"),
			Filter: v.GetString(side + ".filter"),
		}
	}
	return ret
}

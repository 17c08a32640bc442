package cmdutil

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/oserror"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type configConfig struct {
	file     string
	envFiles []string
}

var configCfg = configConfig{
	envFiles: []string{".env.local", ".env"},
}

func RegisterConfigFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&configCfg.file,
		"config",
		configCfg.file,
		"job file (yaml, json or toml) holding the conn, left, right and export settings",
	)
	cmd.PersistentFlags().StringSliceVar(
		&configCfg.envFiles,
		"env-file",
		configCfg.envFiles,
		"files loaded into the environment if present; earlier files take precedence",
	)
}

// configKey maps a flag to its key in the job file, e.g. left-query to
// left.query.
func configKey(flag string) string {
	for _, section := range []string{"left", "right", "export"} {
		if rest, ok := strings.CutPrefix(flag, section+"-"); ok {
			return section + "." + rest
		}
	}
	return flag
}

// LoadConfig loads the env files and the job file of cmd. Flags set on the
// command line take precedence over DIFFER_ environment variables, which
// take precedence over the job file.
func LoadConfig(cmd *cobra.Command) (*viper.Viper, error) {
	for _, f := range configCfg.envFiles {
		if err := godotenv.Load(f); err != nil && !oserror.IsNotExist(err) {
			return nil, errors.Wrapf(err, "error loading %s", f)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("differ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if configCfg.file != "" {
		v.SetConfigFile(configCfg.file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "error reading config file %s", configCfg.file)
		}
	}

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		switch f.Name {
		case "config", "env-file", "help":
			return
		}
		bindErr = errors.CombineErrors(bindErr, v.BindPFlag(configKey(f.Name), f))
	})
	return v, bindErr
}

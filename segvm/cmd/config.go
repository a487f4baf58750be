package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sarchlab/segvm/mem/vm/batch"
)

// Environment variables that provide flag defaults.
const (
	EnvInit        = "SEGVM_INIT"
	EnvInput       = "SEGVM_INPUT"
	EnvOutput      = "SEGVM_OUTPUT"
	EnvPolicy      = "SEGVM_POLICY"
	EnvSentinel    = "SEGVM_SENTINEL"
	EnvRecord      = "SEGVM_RECORD"
	EnvMonitorPort = "SEGVM_MONITOR_PORT"
)

// Defaults used when neither a flag nor the environment says otherwise.
const (
	DefaultInitFile   = "init-dp.txt"
	DefaultInputFile  = "input-dp.txt"
	DefaultOutputFile = "output-dp.txt"
)

// Config is what a command run needs, after flags, environment and defaults
// have been merged. Flags win over the environment.
type Config struct {
	InitFile    string
	InputFile   string
	OutputFile  string
	Options     batch.Options
	RecordPath  string
	MonitorPort int
}

// LoadEnvFile adds the variables of a .env file to the environment. Variables
// already set are kept. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}

func addFileFlags(cmd *cobra.Command) {
	cmd.Flags().String("init", "",
		"Init file. Defaults to $"+EnvInit+" or "+DefaultInitFile+".")
	cmd.Flags().String("input", "",
		"Address file. Defaults to $"+EnvInput+" or "+DefaultInputFile+".")
	cmd.Flags().String("output", "",
		"Result file, - for stdout. Defaults to $"+EnvOutput+" or "+
			DefaultOutputFile+".")
}

func addPolicyFlags(cmd *cobra.Command) {
	cmd.Flags().String("policy", "",
		"What to do with a failed translation: abort or sentinel. "+
			"Defaults to $"+EnvPolicy+" or abort.")
	cmd.Flags().Int64("sentinel", batch.DefaultSentinel,
		"Value written for a failed translation under the sentinel policy. "+
			"Defaults to $"+EnvSentinel+".")
}

// resolveConfig merges the flags that cmd defines with the environment.
func resolveConfig(cmd *cobra.Command) (Config, error) {
	cfg := Config{
		InitFile:   stringSetting(cmd, "init", EnvInit, DefaultInitFile),
		InputFile:  stringSetting(cmd, "input", EnvInput, DefaultInputFile),
		OutputFile: stringSetting(cmd, "output", EnvOutput, DefaultOutputFile),
		RecordPath: stringSetting(cmd, "record", EnvRecord, ""),
		Options:    batch.DefaultOptions(),
	}

	policy, err := batch.ParsePolicy(stringSetting(cmd, "policy", EnvPolicy, ""))
	if err != nil {
		return Config{}, err
	}

	cfg.Options.Policy = policy

	cfg.Options.Sentinel, err = int64Setting(cmd, "sentinel", EnvSentinel,
		batch.DefaultSentinel)
	if err != nil {
		return Config{}, err
	}

	port, err := int64Setting(cmd, "port", EnvMonitorPort, 0)
	if err != nil {
		return Config{}, err
	}

	cfg.MonitorPort = int(port)

	return cfg, nil
}

func stringSetting(cmd *cobra.Command, flag, env, fallback string) string {
	if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
		return f.Value.String()
	}

	if v, ok := os.LookupEnv(env); ok && v != "" {
		return v
	}

	return fallback
}

func int64Setting(
	cmd *cobra.Command,
	flag, env string,
	fallback int64,
) (int64, error) {
	s := stringSetting(cmd, flag, env, "")
	if s == "" {
		return fallback, nil
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", flag, err)
	}

	return v, nil
}

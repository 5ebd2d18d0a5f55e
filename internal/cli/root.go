// Package cli implements the psyscore command: offline scoring and
// validation of test definitions.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mind-engage/mindengage-psych/internal/psytest"
)

// NewRootCmd builds the command tree. Each call gets its own viper instance.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:   "psyscore",
		Short: "Score and validate psychometric test definitions offline",
		Long: `psyscore runs the same scoring pipeline as the psyd service against local
files: a test definition (YAML or JSON) and an answer sheet.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cfgFile)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .psyscore.yaml if present)")
	root.PersistentFlags().StringP("format", "f", "text", "output format (text|json)")
	root.PersistentFlags().Bool("no-color", false, "disable styled output")
	_ = v.BindPFlag("format", root.PersistentFlags().Lookup("format"))
	_ = v.BindPFlag("no-color", root.PersistentFlags().Lookup("no-color"))

	root.AddCommand(newScoreCmd(v), newValidateCmd(v))
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := NewRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func initConfig(v *viper.Viper, cfgFile string) error {
	v.SetEnvPrefix("PSYSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		return v.ReadInConfig()
	}
	v.SetConfigName(".psyscore")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// loadDefinition reads a YAML or JSON test definition.
func loadDefinition(path string) (psytest.TestDefinition, error) {
	var d psytest.TestDefinition
	raw, err := os.ReadFile(path)
	if err != nil {
		return d, err
	}
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return d, fmt.Errorf("parse %s: %w", path, err)
	}
	return d, nil
}

// loadAnswers reads an answer sheet: a mapping of question id to answer.
func loadAnswers(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var answers map[string]any
	if err := yaml.Unmarshal(raw, &answers); err != nil {
		return nil, fmt.Errorf("parse %s: answers must be a mapping of question id to answer: %w", path, err)
	}
	if answers == nil {
		answers = map[string]any{}
	}
	return answers, nil
}

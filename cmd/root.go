/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/moamenhredeen/apihacker/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is reported by --version
const version = "0.1.2"

var (
	cfgFile string

	// v holds flags, APIHACKER_* environment variables and the optional config file
	v = viper.New()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "apihacker",
	Short: "Send HTTP requests to every operation of an OpenAPI file",
	Long: `apihacker reads an OpenAPI document and sends one request to every
operation (path and method) it declares, with synthetic parameter values.

It checks that the API is up first, then submits the requests to a pool of
workers, surfacing liveness, authentication and error handling issues.

Examples:
  # Scan the server declared in the document
  apihacker --openapi_file api.json

  # Four workers, one submission every two seconds, with a token
  apihacker --openapi_file api.json --threads 4 --delay 2 -H "Authorization: Bearer XXXX"

  # Through an intercepting proxy, without certificate checks
  apihacker --openapi_file api.json --proxy http://127.0.0.1:8080 --no-verify`,
	Version: version,
	Args:    cobra.NoArgs,
	Run:     runRoot,
}

func Execute() {
	cobra.OnInitialize(initConfig)
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// initConfig loads the config file named by --config, if any, and turns on the
// environment lookup. Flags set on the command line take precedence over both.
func initConfig() {
	v.SetEnvPrefix("APIHACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if cfgFile == "" {
		return
	}
	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	config.SetDefaults(v)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (any format viper reads: yaml, json, toml, ...)")
	rootCmd.PersistentFlags().BoolP(config.KeyVerbose, "v", false, "Show debug diagnostics and every completed request")

	if err := v.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
}

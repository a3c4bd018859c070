package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sagarc03/storehouse/clientcli"
)

var (
	version = "dev"

	cfgFile    string
	profile    string
	endpoint   string
	secret     string
	algorithm  string
	jsonOutput bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:     "storehouse-cli",
	Version: version,
	Short:   "Client for the storehouse server",
	Long: `storehouse-cli signs and sends requests to a storehouse server.

  - upload: send local files as signed multipart uploads
  - fetch:  ask the server to download a URL and store it
  - sign:   print the signature for a set of form fields`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.storehouse/config.yaml, env: STOREHOUSE_CLIENT_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "profile name (env: STOREHOUSE_PROFILE)")
	rootCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "", "server URL (default: http://localhost:8888, env: STOREHOUSE_ENDPOINT)")
	rootCmd.PersistentFlags().StringVarP(&secret, "secret", "s", "", "shared secret (env: STOREHOUSE_SECRET)")
	rootCmd.PersistentFlags().StringVar(&algorithm, "algorithm", "", "signature hash: sha1, sha256 (env: STOREHOUSE_ALGORITHM)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(configureCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if p := clientcli.ConfigPathFromEnv(); p != "" {
		return p
	}
	return clientcli.DefaultConfigPath()
}

// buildConfig merges profile, env vars and flags (flags take precedence).
func buildConfig() (*clientcli.Config, error) {
	var configs []*clientcli.Config

	profileName := profile
	if profileName == "" {
		profileName = clientcli.ProfileFromEnv()
	}

	if path := getConfigPath(); path != "" {
		cf, err := clientcli.LoadConfigFile(path)
		switch {
		case err == nil:
			p, profileErr := cf.GetProfile(profileName)
			if profileErr != nil && (profileName != "" || !errors.Is(profileErr, clientcli.ErrNoProfiles)) {
				return nil, profileErr
			}
			if p != nil {
				configs = append(configs, clientcli.ConfigFromProfile(p))
			}
		case errors.Is(err, os.ErrNotExist) && profileName == "":
			// Only a named profile requires the file.
		default:
			return nil, err
		}
	}

	configs = append(configs,
		clientcli.ConfigFromEnv(),
		&clientcli.Config{
			Endpoint:  endpoint,
			Secret:    secret,
			Algorithm: algorithm,
		},
	)

	return clientcli.MergeConfig(configs...), nil
}

func getFormatter() clientcli.Formatter {
	return clientcli.NewFormatter(jsonOutput, quiet)
}

func getClient() (*clientcli.Client, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}

	return clientcli.New(cfg)
}

// parseFields turns repeated --field key=value flags into a map.
func parseFields(values []string) (map[string]string, error) {
	fields := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field %q: expected key=value", v)
		}
		fields[name] = value
	}
	return fields, nil
}

// Package config provides configuration loading and validation for storehouse.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (STOREHOUSE_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"storehouse.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx = config.WithContext(ctx, cfg)
//
// # Environment Variables
//
// All config keys map to environment variables with STOREHOUSE_ prefix:
//   - server.port → STOREHOUSE_SERVER_PORT
//   - storage.path → STOREHOUSE_STORAGE_PATH
//   - auth.secret → STOREHOUSE_AUTH_SECRET
//
// # Secrets
//
// The shared secret is not required by Load. It is resolved at startup from
// auth.secret or, failing that, auth.secret_file (default .storehouse_key),
// and a missing secret is fatal there. AuthConfig implements slog.LogValuer
// so logging the config never prints it.
package config

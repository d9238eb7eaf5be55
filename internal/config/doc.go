// Package config loads the agent configuration.
//
// Configuration is YAML with ${VAR} expansion. A .env file next to the config
// file (or in the working directory) is loaded first, so endpoint settings can
// be supplied by the environment the way the dashboard's build did.
package config

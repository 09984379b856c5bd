// Package config loads and validates application settings.
//
// Values come from built-in defaults, an optional YAML file and CARDS_*
// environment variables (highest precedence). Secrets such as token signing
// keys and the card encryption key are only ever read here and handed to
// components through their constructors.
package config

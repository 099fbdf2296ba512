package config

// Package config loads application settings from an optional config
// file and the environment, with typed decode hooks for durations and
// human-readable byte sizes.

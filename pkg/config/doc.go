// Package config defines the YAML configuration for a cascade deployment:
// backend connections, tier pricing, quality thresholds, calibration tables,
// batch limits, and tenant budgets.
//
// Loading follows a fixed sequence: parse YAML, apply defaults, validate.
// Validation collects every field error before failing so a broken file is
// fixed in one pass. The cascade core itself never reads files or
// environment variables; hosts load a Config here and pass explicit options
// down.
package config

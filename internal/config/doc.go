// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads rgbweaver settings.
//
// Precedence is ENV > YAML file > defaults. A .env file in the working directory
// is read first and never overrides variables already present in the environment.
package config

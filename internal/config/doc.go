// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for chatcore.
//
// Configuration is read from ~/.chatcore/config.toml with built-in defaults
// for anything missing, then environment variables override file values, and
// the result is validated before use.
//
// # Key Types
//
//   - Config: the complete configuration (API, Storage, Notice sections)
//   - Watcher: reloads the config file when it changes on disk
//   - ValidationError / ValidateErrors: structured validation failures
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client, err := api.NewClient(api.Config{
//	    BaseURL: cfg.API.BaseURL,
//	    Timeout: cfg.Timeout(),
//	})
package config

// Package config handles configuration loading for coven-chat.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// Missing fields take defaults; the result is validated before use.
//
// # Configuration File
//
// Locations (in order):
//
//  1. Path from the --config flag
//  2. Path from COVEN_CHAT_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/coven/chat.yaml
//  4. ~/.config/coven/chat.yaml
//
// A missing file is not an error; defaults apply.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	endpoint:
//	  url: "http://${CHAT_HOST}/api/chat"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	session:
//	  timeout: "30m"
//	endpoint:
//	  request_timeout: "2m"
//
// # Example Configuration
//
//	endpoint:
//	  url: "http://localhost:3000/api/chat"
//	  request_timeout: "2m"
//
//	storage:
//	  driver: "sqlite"        # sqlite, sqlite3, or memory
//	  path: "~/.local/share/coven/chat.db"
//	  messages_key: "coven-chat-messages"
//	  sessions_key: "coven-chat-sessions"
//
//	session:
//	  timeout: "30m"
//	  max_messages: 10
//	  max_sessions: 20
//
//	logging:
//	  level: "warn"           # debug, info, warn, error
//	  format: "text"          # text or json
//	  file: ""                # optional JSON log file
package config

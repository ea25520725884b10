/*
Package config loads botflow configuration from YAML or JSON files.

# Overview

Config wraps a decoded document and provides typed accessors that return
a default when a key is missing or has the wrong type. Keys may be dotted
paths into nested sections:

	cfg, err := config.FromFile("botflow.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	addr := cfg.String("server.addr", ":8080")
	retries := cfg.Int("retry.max_retries", 3)

LoadSettings maps a Config onto the typed Settings the service runs with:

	settings, err := config.LoadSettingsFile("botflow.yaml")

# File Format

	server:
	  addr: ":8080"
	  max_body_bytes: 1048576
	filter:
	  chat_ids: "111111,222222"   # or a list: [111111, 222222]
	  user_ids: ""
	retry:
	  max_retries: 3
	  initial_backoff: 1s
	  max_backoff: 30s
	nats:
	  url: ${NATS_URL}
	  subject: botflow.events
	  dead_letter_size: 1000
	log:
	  level: info
	  format: json

Environment references such as ${NATS_URL} are expanded when the file is read.

# Thread Safety

Config and Settings are safe for concurrent reads.
*/
package config

// Package config loads meetslot settings with viper.
//
// Settings come from built-in defaults, an optional YAML file and MEETSLOT_*
// environment variables, in increasing order of precedence. Nested keys map to
// environment variables with underscores, e.g. working_hours.start is
// MEETSLOT_WORKING_HOURS_START.
//
// Example file:
//
//	timezone: Europe/Istanbul
//	working_hours: {start: "09:00", end: "18:00"}
//	lunch: {start: "12:00", end: "13:00"}
//	scoring:
//	  default: 0.6
//	  bands: ["[10:00,11:00)=0.9", "[14:00,16:00]=0.8"]
//	routes:
//	  - {domain: outlook.com, provider: graph}
//	  - {participant: ceo@example.com, provider: google}
package config

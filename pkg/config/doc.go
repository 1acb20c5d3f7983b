// Package config defines Europa's YAML configuration model.
//
// Configuration is loaded in three steps: parse the YAML file, apply
// defaults for omitted fields, then validate. LoadConfigWithEnvOverrides
// additionally applies EUROPA_* environment variables between defaulting
// and validation, so an override can never bypass validation.
//
// Example file:
//
//	server:
//	  listen_address: "127.0.0.1:8181"
//	policy:
//	  source: file
//	  path: ./policies
//	  query_path: data
//	  watch: true
//	decision_log:
//	  enabled: true
//	  path: ./decisions.db
//	  retention: 168h
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
//	  metrics:
//	    enabled: true
package config

// Europa is a policy decision service built around the EPL rule language.
//
// It compiles declarative policies into an immutable decision tree and
// answers queries over JSON input documents, either as a long-running
// HTTP service or as one-shot CLI evaluations.
//
// Usage:
//
//	# Start the server with a configuration file
//	europa run --config /etc/europa/config.yaml
//
//	# Evaluate a query once against a policy directory
//	europa eval --policy ./policies --input '{"user": {"role": "admin"}}' --query data.authz.allow
//
//	# Validate policy files without evaluating
//	europa lint --dir ./policies
//
//	# Show version information
//	europa version
package main

func main() {
	Execute()
}

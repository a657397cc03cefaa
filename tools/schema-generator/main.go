// Command schema-generator writes the JSON Schema of the daemon
// configuration file, for editors that validate config.yml.
package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/grovetools/claude-sessions/config"
	"github.com/grovetools/claude-sessions/logging"
)

func main() {
	output := flag.String("o", "schema/config.schema.json", "output path")
	flag.Parse()

	log := logging.NewLogger("schema-generator")

	schemaBytes, err := config.GenerateSchema()
	if err != nil {
		log.Fatalf("Error generating schema: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(*output), 0755); err != nil {
		log.Fatalf("Error creating schema directory: %v", err)
	}
	if err := os.WriteFile(*output, append(schemaBytes, '\n'), 0644); err != nil {
		log.Fatalf("Error writing schema file: %v", err)
	}

	log.Infof("Generated config schema at %s", *output)
}

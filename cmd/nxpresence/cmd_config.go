package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const configFileName = ".nxpresence.yaml"

func handleConfigCommand(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: nxpresence config <command>")
		fmt.Println("Commands: show, init")
		os.Exit(1)
	}

	switch args[0] {
	case "show":
		showConfig()
	case "init":
		initConfig()
	default:
		fmt.Printf("Unknown config command: %s\n", args[0])
		os.Exit(1)
	}
}

func showConfig() {
	redacted := cfg.Redacted()
	if outputCfg.JSON {
		PrintJSON(redacted)
		return
	}

	data, err := yaml.Marshal(redacted)
	if err != nil {
		PrintError("Error: failed to marshal config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("# Active Configuration")
	fmt.Println(string(data))
	if !cfg.HasCredentials() {
		fmt.Println("# No Twitch credentials: lookups use the local catalog only")
	}
}

func initConfig() {
	if _, err := os.Stat(configFileName); err == nil {
		PrintError("Error: config file already exists at %s\n", configFileName)
		os.Exit(1)
	}

	example := `# nxpresence configuration
igdb:
  # Prefer TWITCH_CLIENT_ID / TWITCH_CLIENT_SECRET in the environment or .env
  client_id: ""
  client_secret: ""
  platforms: [130, 471]   # Nintendo Switch, Nintendo Switch 2
  timeout: 10s

server:
  port: "8080"

logging:
  level: info   # debug, info, warn, error
  format: text  # text or json
`

	if err := os.WriteFile(configFileName, []byte(example), 0o600); err != nil {
		PrintError("Error: failed to write config: %v\n", err)
		os.Exit(1)
	}

	if outputCfg.JSON {
		PrintJSON(map[string]string{"path": configFileName, "status": "created"})
	} else {
		PrintInfo("Created config file: %s\n", configFileName)
	}
}

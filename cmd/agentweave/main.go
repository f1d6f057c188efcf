// Command agentweave runs workflow definitions from the terminal.
//
// Usage:
//
//	agentweave run examples/sequential.yaml --input "Write a slogan"
//	agentweave validate examples/magentic.yaml
//	agentweave version
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// CLI defines the command-line interface.
type CLI struct {
	Run      RunCmd      `cmd:"" help:"Run a workflow definition."`
	Validate ValidateCmd `cmd:"" help:"Validate a workflow definition."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	EnvFile   string `name:"env-file" help:"Dotenv file loaded before running." default:".env" type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error). Overrides the definition file." env:"LOG_LEVEL"`
	LogFormat string `help:"Log format (json, text). Overrides the definition file." env:"LOG_FORMAT"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("agentweave version %s\n", version)
	return nil
}

// loadDotEnv loads path into the environment. A missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("agentweave"),
		kong.Description("Run multi-agent workflows from YAML definitions."),
		kong.UsageOnError(),
	)

	if err := loadDotEnv(cli.EnvFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}

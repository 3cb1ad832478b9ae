// Package cliutil holds the small pieces of command-line plumbing shared
// across swapctl's subcommands: version reporting, consistent error exit
// codes, and usage formatting.
package cliutil

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
)

const (
	Version   = "0.1.0"
	BuildDate = "2026-08-01"
	CommitSHA = "unknown"
)

// VersionInfo is swapctl's structured --version payload.
type VersionInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	CommitSHA string `json:"commit_sha"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Arch      string `json:"arch"`
}

func GetVersionInfo() *VersionInfo {
	return &VersionInfo{
		Version:   Version,
		BuildDate: BuildDate,
		CommitSHA: CommitSHA,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// PrintVersion prints version information in a consistent format.
func PrintVersion(toolName string, jsonOutput bool) {
	info := GetVersionInfo()

	if jsonOutput {
		data, err := json.MarshalIndent(map[string]interface{}{
			"tool":         toolName,
			"version_info": info,
		}, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to marshal version info to JSON: %v\n", err)
		} else {
			fmt.Println(string(data))
			return
		}
	}

	fmt.Printf("%s v%s\n", toolName, info.Version)
	fmt.Printf("Build Date: %s\n", info.BuildDate)
	fmt.Printf("Go Version: %s\n", info.GoVersion)
	fmt.Printf("Platform: %s/%s\n", info.Platform, info.Arch)
}

// ExitWithError prints an error message to stderr and exits with code 1.
func ExitWithError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "swapctl: "+format+"\n", args...)
	os.Exit(1)
}

// ExitWithCode exits with the given code, optionally printing a message.
func ExitWithCode(code int, format string, args ...interface{}) {
	if format != "" {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}

	os.Exit(code)
}

// CommandInfo describes one swapctl subcommand for usage() output.
type CommandInfo struct {
	Name        string
	Description string
}

// PrintUsage prints swapctl's top-level usage banner.
func PrintUsage(tool string, commands []CommandInfo) {
	fmt.Printf("%s - swap-area management\n\n", tool)
	fmt.Printf("USAGE:\n    %s <command> [OPTIONS]\n\n", tool)

	if len(commands) > 0 {
		fmt.Printf("COMMANDS:\n")

		for _, cmd := range commands {
			fmt.Printf("    %-12s %s\n", cmd.Name, cmd.Description)
		}

		fmt.Printf("\n")
	}

	fmt.Printf("GLOBAL OPTIONS:\n")
	fmt.Printf("    --help, -h     Show help information\n")
	fmt.Printf("    --version, -v  Show version information\n")
	fmt.Printf("    --json         Output version in JSON format\n\n")
	fmt.Printf("Use '%s <command> -h' for more information about a command.\n", tool)
}

package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/fatih/color"
	"github.com/srg/padhost/internal/service"
)

// executeCommand runs the root command with args and returns its combined output.
// Flag variables are reset first since cobra keeps them between runs.
func executeCommand(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	decodeFormat = "table"
	advertName = service.DefaultAdvertisingName
	serveConfigPath = ""
	serveControllers = nil
	_ = rootCmd.PersistentFlags().Set("log-level", "")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

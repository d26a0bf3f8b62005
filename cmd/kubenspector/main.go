package main

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/Zipfer/kubenspector/internal/app"
	"github.com/Zipfer/kubenspector/internal/k8s"
	"github.com/Zipfer/kubenspector/internal/logging"
	"github.com/spf13/cobra"
)

var (
	version    = "1.0.0"
	verbose    bool
	isFirstRun bool
)

// Exit codes for structured error reporting. Findings are scan output,
// not failures, so a scan that detects issues still exits zero.
const (
	ExitSuccess    = 0
	ExitInternal   = 1
	ExitInvalidArg = 2
	ExitNotFound   = 3
	ExitAuth       = 4
	ExitNetwork    = 5
)

func main() {
	logging.Init(false)
	isFirstRun = app.IsFirstRun()

	root := &cobra.Command{
		Use:   "kubenspector",
		Short: "Kubernetes cluster diagnostics",
		Long: `Kubenspector takes a point-in-time snapshot of cluster state and
reports unhealthy pods, nodes, storage claims and workloads with
remediation suggestions.

It can also validate manifest files against the API server before
they are applied.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(verbose)
		},
	}

	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging")
	root.SilenceUsage = true
	root.SilenceErrors = true

	root.AddCommand(NewScanCmd())
	root.AddCommand(NewValidateCmd())
	root.AddCommand(NewVersionCmd())

	if err := root.Execute(); err != nil {
		slog.Error("command failed", slog.String("error", err.Error()))
		os.Exit(classifyError(err))
	}
}

func classifyError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, k8s.ErrUnauthorized) {
		return ExitAuth
	}
	if errors.Is(err, k8s.ErrUnreachable) {
		return ExitNetwork
	}

	if os.IsNotExist(err) {
		return ExitNotFound
	}

	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "not a directory") ||
		strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "no such file") ||
		strings.Contains(msg, "not found") {
		return ExitNotFound
	}

	if strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "forbidden") {
		return ExitAuth
	}

	if strings.Contains(msg, "dial") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "network is unreachable") {
		return ExitNetwork
	}

	if strings.Contains(msg, "required") ||
		strings.Contains(msg, "invalid") ||
		strings.Contains(msg, "must be") ||
		strings.Contains(msg, "unsupported") {
		return ExitInvalidArg
	}

	return ExitInternal
}

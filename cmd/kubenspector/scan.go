package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Zipfer/kubenspector/internal/aggregator"
	"github.com/Zipfer/kubenspector/internal/baseline"
	"github.com/Zipfer/kubenspector/internal/evaluator"
	"github.com/Zipfer/kubenspector/internal/k8s"
	"github.com/Zipfer/kubenspector/internal/reporter"
	"github.com/Zipfer/kubenspector/internal/validator"
	"github.com/Zipfer/kubenspector/pkg/config"
	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command
func NewScanCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	// Config file values become flag defaults; flags override them.
	if fileCfg, path, err := config.AutoLoadFile(); err != nil {
		slog.Warn("ignoring config file", "error", err)
	} else if fileCfg != nil {
		if err := fileCfg.ApplyTo(cfg); err != nil {
			slog.Warn("ignoring config file", "path", path, "error", err)
		} else {
			slog.Debug("loaded config file", "path", path)
		}
	}

	// String variables for custom duration parsing
	var pvcGraceStr string
	var deploymentGraceStr string
	var pendingGraceStr string
	var eventLookbackStr string
	var apiTimeoutStr string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan cluster state and report findings",
		Long: `Scan fetches pods, nodes, persistent volume claims, deployments and
recent warning events, evaluates health rules against the snapshot,
and prints deduplicated findings ordered by severity.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			durations := []struct {
				value *string
				dst   *time.Duration
				flag  string
			}{
				{&pvcGraceStr, &cfg.PVCGrace, "--pvc-grace"},
				{&deploymentGraceStr, &cfg.DeploymentGrace, "--deployment-grace"},
				{&pendingGraceStr, &cfg.PendingGrace, "--pending-grace"},
				{&eventLookbackStr, &cfg.EventLookback, "--event-lookback"},
				{&apiTimeoutStr, &cfg.APITimeout, "--api-timeout"},
			}
			for _, d := range durations {
				if *d.value == "" {
					continue
				}
				parsed, err := config.ParseDuration(*d.value)
				if err != nil {
					return fmt.Errorf("invalid %s duration: %w", d.flag, err)
				}
				*d.dst = parsed
			}

			switch cfg.Format {
			case "text", "json", "sarif":
			default:
				return fmt.Errorf("invalid --format value: %q (expected text, json or sarif)", cfg.Format)
			}

			if cfg.RestartThreshold < 1 {
				return fmt.Errorf("invalid --restart-threshold: must be at least 1")
			}
			if cfg.APIRateLimit < 1 {
				return fmt.Errorf("invalid --api-rate-limit: must be at least 1")
			}
			if cfg.Apply && cfg.ManifestPath == "" {
				return fmt.Errorf("--apply requires --manifest")
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Verbose = verbose
			return runScan(cmd.Context(), cfg)
		},
	}

	// Cluster flags
	cmd.Flags().StringVar(&cfg.KubeConfig, "kubeconfig", cfg.KubeConfig, "Path to kubeconfig (default: in-cluster, then ~/.kube/config)")
	cmd.Flags().StringVarP(&cfg.Namespace, "namespace", "n", cfg.Namespace, "Limit the scan to one namespace (default: all namespaces)")
	cmd.Flags().StringSliceVar(&cfg.ExcludeNamespaces, "exclude-namespaces", cfg.ExcludeNamespaces, "Namespaces to skip (glob patterns allowed)")
	cmd.Flags().StringVar(&apiTimeoutStr, "api-timeout", "", "API request timeout (e.g., 30s, 1m)")
	cmd.Flags().IntVar(&cfg.APIRateLimit, "api-rate-limit", cfg.APIRateLimit, "API rate limit (requests/sec)")

	// Rule flags
	cmd.Flags().Int32Var(&cfg.RestartThreshold, "restart-threshold", cfg.RestartThreshold, "Container restart count that triggers a finding")
	cmd.Flags().StringVar(&pvcGraceStr, "pvc-grace", "", "Grace period before a Pending PVC is flagged (e.g., 5m)")
	cmd.Flags().StringVar(&deploymentGraceStr, "deployment-grace", "", "Grace period before an under-replicated deployment is flagged")
	cmd.Flags().StringVar(&pendingGraceStr, "pending-grace", "", "Grace period before a Pending pod is flagged")
	cmd.Flags().StringVar(&eventLookbackStr, "event-lookback", "", "How far back to collect warning events (e.g., 60m, 2h)")

	// Output flags
	cmd.Flags().StringVarP(&cfg.Format, "format", "o", cfg.Format, "Output format (text, json, sarif)")
	cmd.Flags().StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "Directory for report files (optional)")

	// Baseline flags
	cmd.Flags().StringVar(&cfg.BaselinePath, "baseline", cfg.BaselinePath, "Baseline file of known findings to suppress")
	cmd.Flags().BoolVar(&cfg.UpdateBaseline, "update-baseline", cfg.UpdateBaseline, "Record current findings into the baseline file")

	// Manifest flags
	cmd.Flags().StringVarP(&cfg.ManifestPath, "manifest", "f", cfg.ManifestPath, "Manifest file to validate after the scan")
	cmd.Flags().BoolVar(&cfg.Apply, "apply", cfg.Apply, "Apply the manifest when validation passes (requires --manifest)")

	return cmd
}

// runScan executes the scan workflow
func runScan(ctx context.Context, cfg *config.Config) error {
	startTime := time.Now()
	cfg.Normalize()

	if cfg.Apply && cfg.ManifestPath == "" {
		return fmt.Errorf("--apply requires --manifest")
	}

	progress("Connecting to cluster...")
	client, err := k8s.NewClient(cfg.KubeConfig)
	if err != nil {
		return fmt.Errorf("failed to create cluster client: %w", err)
	}

	progress("Taking cluster snapshot...")
	fetcher := k8s.NewFetcher(client.Clientset(), cfg)
	snap, err := fetcher.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch cluster state: %w", err)
	}
	progress("Snapshot: %d pods, %d nodes, %d PVCs, %d deployments, %d events",
		len(snap.Pods), len(snap.Nodes), len(snap.PVCs), len(snap.Deployments), len(snap.Events))
	for _, omission := range snap.Omissions {
		slog.Warn("partial snapshot", "kind", omission.Kind.String(), "reason", omission.Reason)
	}

	progress("Evaluating health rules...")
	findings := evaluator.New(cfg).Evaluate(snap)
	findings = aggregator.Aggregate(findings)
	report := aggregator.BuildReport(snap, findings, version, startTime)

	if cfg.BaselinePath != "" {
		known, err := baseline.Load(cfg.BaselinePath)
		if err != nil {
			return fmt.Errorf("failed to load baseline: %w", err)
		}
		suppressed, remaining := baseline.SuppressKnown(report, known)
		if suppressed > 0 {
			slog.Debug("baseline applied", "suppressed", suppressed, "remaining", remaining)
		}
	}

	if cfg.UpdateBaseline {
		path := cfg.BaselinePath
		if path == "" {
			path = baseline.DefaultPath
		}
		set, err := baseline.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load baseline: %w", err)
		}
		baseline.AddAll(set, baseline.CollectFingerprints(report))
		if err := baseline.Save(path, set); err != nil {
			return fmt.Errorf("failed to update baseline: %w", err)
		}
		progress("Baseline updated: %s", path)
	}

	if err := reporter.New(cfg).Generate(report); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if cfg.ManifestPath != "" {
		if err := runManifestStage(ctx, cfg, client); err != nil {
			return err
		}
	}

	progress("Scan complete in %s", time.Since(startTime).Round(time.Millisecond))
	return nil
}

// runManifestStage validates, and optionally applies, the manifest
// configured for the scan.
func runManifestStage(ctx context.Context, cfg *config.Config, client *k8s.Client) error {
	v := validator.New(client.Dynamic(), client.RESTMapper(), cfg.Namespace)

	var result *validator.Result
	var err error
	if cfg.Apply {
		progress("Applying manifest %s...", cfg.ManifestPath)
		result, err = v.ApplyFile(ctx, cfg.ManifestPath)
	} else {
		progress("Validating manifest %s...", cfg.ManifestPath)
		result, err = v.ValidateFile(ctx, cfg.ManifestPath)
	}
	if result != nil {
		printValidation(result)
	}
	if err != nil {
		return err
	}
	if result.HasInvalid() {
		return fmt.Errorf("manifest %s is invalid", cfg.ManifestPath)
	}

	return nil
}

func printValidation(result *validator.Result) {
	for _, doc := range result.Documents {
		name := doc.Document.Name
		if name == "" {
			name = fmt.Sprintf("document %d", doc.Document.Index)
		}
		fmt.Printf("%-8s %s %s: %s\n", doc.Status, doc.Document.Kind, name, doc.Message)
	}
}

// progress prints workflow milestones to stderr so machine-readable
// formats keep stdout clean.
func progress(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

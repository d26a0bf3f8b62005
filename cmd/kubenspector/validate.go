package main

import (
	"fmt"
	"log/slog"

	"github.com/Zipfer/kubenspector/internal/k8s"
	"github.com/Zipfer/kubenspector/internal/validator"
	"github.com/spf13/cobra"
)

// NewValidateCmd creates the validate command
func NewValidateCmd() *cobra.Command {
	var (
		kubeconfig   string
		namespace    string
		manifestPath string
		apply        bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a manifest file against the cluster",
		Long: `Validate checks every document in a multi-document manifest with a
server-side dry-run. Without cluster access only structural checks run
and server-dependent results are reported as unknown.

With --apply the manifest is applied after a clean dry-run pass;
application stops at the first failure and nothing is rolled back.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if manifestPath == "" {
				return fmt.Errorf("--manifest is required")
			}

			v, err := buildValidator(kubeconfig, namespace, apply)
			if err != nil {
				return err
			}

			var result *validator.Result
			if apply {
				result, err = v.ApplyFile(cmd.Context(), manifestPath)
			} else {
				result, err = v.ValidateFile(cmd.Context(), manifestPath)
			}
			if result != nil {
				printValidation(result)
			}
			if err != nil {
				return err
			}
			if result.HasInvalid() {
				return fmt.Errorf("manifest %s is invalid", manifestPath)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "f", "", "Manifest file to validate (required)")
	cmd.Flags().StringVar(&kubeconfig, "kubeconfig", "", "Path to kubeconfig (default: in-cluster, then ~/.kube/config)")
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Namespace for documents that do not set one")
	cmd.Flags().BoolVar(&apply, "apply", false, "Apply the manifest when validation passes")

	return cmd
}

// buildValidator wires a validator against the cluster. Without cluster
// access validation degrades to structural checks; apply never does.
func buildValidator(kubeconfig, namespace string, apply bool) (*validator.Validator, error) {
	client, err := k8s.NewClient(kubeconfig)
	if err != nil {
		if apply {
			return nil, fmt.Errorf("apply requires cluster access: %w", err)
		}
		slog.Warn("cluster unreachable, falling back to structural checks", "error", err)
		return validator.New(nil, nil, namespace), nil
	}

	return validator.New(client.Dynamic(), client.RESTMapper(), namespace), nil
}

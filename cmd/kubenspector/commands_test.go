package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Zipfer/kubenspector/internal/k8s"
)

func TestNewScanCmdPreRunValidation(t *testing.T) {
	tests := []struct {
		name    string
		flags   map[string]string
		wantErr string
	}{
		{
			name: "valid_defaults",
		},
		{
			name:  "valid_durations",
			flags: map[string]string{"pvc-grace": "10m", "event-lookback": "2h", "api-timeout": "45s"},
		},
		{
			name:  "valid_day_suffix",
			flags: map[string]string{"event-lookback": "1d"},
		},
		{
			name:    "invalid_pvc_grace",
			flags:   map[string]string{"pvc-grace": "bad"},
			wantErr: "invalid --pvc-grace duration",
		},
		{
			name:    "invalid_event_lookback",
			flags:   map[string]string{"event-lookback": "soon"},
			wantErr: "invalid --event-lookback duration",
		},
		{
			name:    "invalid_api_timeout",
			flags:   map[string]string{"api-timeout": "fast"},
			wantErr: "invalid --api-timeout duration",
		},
		{
			name:    "invalid_format",
			flags:   map[string]string{"format": "yaml"},
			wantErr: "invalid --format value",
		},
		{
			name:    "invalid_restart_threshold",
			flags:   map[string]string{"restart-threshold": "0"},
			wantErr: "invalid --restart-threshold",
		},
		{
			name:    "invalid_rate_limit",
			flags:   map[string]string{"api-rate-limit": "0"},
			wantErr: "invalid --api-rate-limit",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd := NewScanCmd()

			for flag, value := range tc.flags {
				if err := cmd.Flags().Set(flag, value); err != nil {
					t.Fatalf("failed to set %s flag: %v", flag, err)
				}
			}

			err := cmd.PreRunE(cmd, nil)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestNewValidateCmdRequiresManifest(t *testing.T) {
	cmd := NewValidateCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.RunE(cmd, nil)
	if err == nil || !strings.Contains(err.Error(), "--manifest is required") {
		t.Fatalf("expected manifest requirement error, got %v", err)
	}
}

func TestNewVersionCmdOutput(t *testing.T) {
	cmd := NewVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	cmd.Run(cmd, nil)

	rendered := out.String()
	if !strings.Contains(rendered, version) {
		t.Fatalf("expected version in output, got %q", rendered)
	}
	if !strings.Contains(rendered, "go:") || !strings.Contains(rendered, "platform:") {
		t.Fatalf("expected runtime details in output, got %q", rendered)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitSuccess},
		{name: "auth_sentinel", err: fmt.Errorf("fetch: %w", k8s.ErrUnauthorized), want: ExitAuth},
		{name: "network_sentinel", err: fmt.Errorf("fetch: %w", k8s.ErrUnreachable), want: ExitNetwork},
		{name: "missing_file", err: errors.New("open manifest: no such file or directory"), want: ExitNotFound},
		{name: "forbidden_text", err: errors.New("pods is forbidden"), want: ExitAuth},
		{name: "connection_refused", err: errors.New("dial tcp: connection refused"), want: ExitNetwork},
		{name: "invalid_flag", err: errors.New("invalid --format value"), want: ExitInvalidArg},
		{name: "unsupported_format", err: errors.New("unsupported output format"), want: ExitInvalidArg},
		{name: "internal", err: errors.New("something broke"), want: ExitInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyError(tc.err); got != tc.want {
				t.Fatalf("classifyError(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestScanRejectsApplyWithoutManifest(t *testing.T) {
	cmd := NewScanCmd()
	if err := cmd.Flags().Set("apply", "true"); err != nil {
		t.Fatalf("failed to set apply flag: %v", err)
	}

	err := cmd.PreRunE(cmd, nil)
	if err == nil || !strings.Contains(err.Error(), "--apply requires --manifest") {
		t.Fatalf("expected apply/manifest error, got %v", err)
	}
}

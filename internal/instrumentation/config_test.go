package instrumentation

import (
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("INSTRUMENTATION_ENABLED", "")
	t.Setenv("METRICS_EXPORTER", "")
	t.Setenv("TRACING_EXPORTER", "")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "")

	config := DefaultConfig()

	if config.ServiceName != "graphcal" {
		t.Errorf("expected ServiceName 'graphcal', got %q", config.ServiceName)
	}
	if !config.Enabled {
		t.Error("expected Enabled to be true by default")
	}
	if config.MetricsExporter != ExporterPrometheus {
		t.Errorf("expected MetricsExporter 'prometheus', got %q", config.MetricsExporter)
	}
	if config.TracingExporter != ExporterNone {
		t.Errorf("expected TracingExporter 'none', got %q", config.TracingExporter)
	}
	if config.TraceSamplingRate != 0.1 {
		t.Errorf("expected TraceSamplingRate 0.1, got %f", config.TraceSamplingRate)
	}
	if !config.AuditLogging.Enabled || config.AuditLogging.IncludePII {
		t.Errorf("unexpected audit defaults: %+v", config.AuditLogging)
	}
}

func TestDefaultConfig_FromEnv(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "graphcal-test")
	t.Setenv("INSTRUMENTATION_ENABLED", "false")
	t.Setenv("METRICS_EXPORTER", "stdout")
	t.Setenv("TRACING_EXPORTER", "stdout")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.5")
	t.Setenv("AUDIT_LOGGING_INCLUDE_PII", "true")

	config := DefaultConfig()

	if config.ServiceName != "graphcal-test" {
		t.Errorf("expected ServiceName 'graphcal-test', got %q", config.ServiceName)
	}
	if config.Enabled {
		t.Error("expected Enabled to be false")
	}
	if config.MetricsExporter != ExporterStdout || config.TracingExporter != ExporterStdout {
		t.Errorf("unexpected exporters %q/%q", config.MetricsExporter, config.TracingExporter)
	}
	if config.TraceSamplingRate != 0.5 {
		t.Errorf("expected TraceSamplingRate 0.5, got %f", config.TraceSamplingRate)
	}
	if !config.AuditLogging.IncludePII {
		t.Error("expected IncludePII from env")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:   "valid defaults",
			config: Config{MetricsExporter: ExporterPrometheus, TracingExporter: ExporterNone, TraceSamplingRate: 0.1},
		},
		{
			name:   "metrics none",
			config: Config{MetricsExporter: ExporterNone, TracingExporter: ExporterNone},
		},
		{
			name:    "sampling rate too high",
			config:  Config{TraceSamplingRate: 1.5},
			wantErr: "sampling rate",
		},
		{
			name:    "sampling rate negative",
			config:  Config{TraceSamplingRate: -0.1},
			wantErr: "sampling rate",
		},
		{
			name:    "invalid metrics exporter",
			config:  Config{MetricsExporter: "graphite"},
			wantErr: "invalid metrics exporter",
		},
		{
			name:    "invalid tracing exporter",
			config:  Config{TracingExporter: "zipkin"},
			wantErr: "invalid tracing exporter",
		},
		{
			name:    "otlp tracing without endpoint",
			config:  Config{TracingExporter: ExporterOTLP},
			wantErr: "OTLP endpoint",
		},
		{
			name:   "otlp with endpoint",
			config: Config{MetricsExporter: ExporterOTLP, TracingExporter: ExporterOTLP, OTLPEndpoint: "localhost:4318"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGetEnvBoolOrDefault(t *testing.T) {
	t.Setenv("GRAPHCAL_TEST_BOOL", "not-a-bool")
	if !getEnvBoolOrDefault("GRAPHCAL_TEST_BOOL", true) {
		t.Error("expected default for unparsable value")
	}
	t.Setenv("GRAPHCAL_TEST_BOOL", "false")
	if getEnvBoolOrDefault("GRAPHCAL_TEST_BOOL", true) {
		t.Error("expected parsed false")
	}
}

func TestGetEnvFloatOrDefault(t *testing.T) {
	t.Setenv("GRAPHCAL_TEST_FLOAT", "abc")
	if got := getEnvFloatOrDefault("GRAPHCAL_TEST_FLOAT", 0.25); got != 0.25 {
		t.Errorf("expected default 0.25, got %f", got)
	}
	t.Setenv("GRAPHCAL_TEST_FLOAT", "0.75")
	if got := getEnvFloatOrDefault("GRAPHCAL_TEST_FLOAT", 0.25); got != 0.75 {
		t.Errorf("expected 0.75, got %f", got)
	}
}

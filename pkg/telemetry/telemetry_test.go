package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "default config",
			config:  DefaultConfig(),
			wantErr: false,
		},
		{
			name: "custom config",
			config: Config{
				ServiceName:    "test-service",
				ServiceVersion: "1.0.0",
				Environment:    "test",
				EnableTracing:  true,
				EnableMetrics:  true,
			},
			wantErr: false,
		},
		{
			name: "metrics only",
			config: Config{
				ServiceName:    "test-service",
				ServiceVersion: "1.0.0",
				Environment:    "test",
				EnableTracing:  false,
				EnableMetrics:  true,
			},
			wantErr: false,
		},
		{
			name: "tracing only",
			config: Config{
				ServiceName:    "test-service",
				ServiceVersion: "1.0.0",
				Environment:    "test",
				EnableTracing:  true,
				EnableMetrics:  false,
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(ctx, tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewProvider() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if err == nil {
				if provider == nil {
					t.Error("NewProvider() returned nil provider")
					return
				}

				if tt.config.EnableTracing && provider.Tracer() == nil {
					t.Error("Tracer() returned nil when tracing is enabled")
				}

				if tt.config.EnableMetrics && provider.Meter() == nil {
					t.Error("Meter() returned nil when metrics are enabled")
				}

				if err := provider.Shutdown(ctx); err != nil {
					t.Errorf("Shutdown() error = %v", err)
				}
			}
		})
	}
}

func TestRecordElementsPlanned(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, DefaultConfig())
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	defer provider.Shutdown(ctx)

	// Should not panic
	provider.RecordElementsPlanned(ctx, "double", 3)
}

func TestRecordElementExecution(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, DefaultConfig())
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	defer provider.Shutdown(ctx)

	tests := []struct {
		name     string
		nodeID   string
		dirName  string
		duration time.Duration
		success  bool
	}{
		{name: "succeeded element", nodeID: "double", dirName: "x:1", duration: 10 * time.Millisecond, success: true},
		{name: "failed element", nodeID: "double", dirName: "x:2", duration: 5 * time.Millisecond, success: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Should not panic
			provider.RecordElementExecution(ctx, tt.nodeID, tt.dirName, tt.duration, tt.success)
		})
	}
}

func TestRecordCacheLookup(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, DefaultConfig())
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	defer provider.Shutdown(ctx)

	// Should not panic
	provider.RecordCacheLookup(ctx, "deadbeef", true)
	provider.RecordCacheLookup(ctx, "deadbeef", false)
}

func TestRecordCacheLockWaitAndNodeCompletion(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, DefaultConfig())
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	defer provider.Shutdown(ctx)

	// Should not panic
	provider.RecordCacheLockWait(ctx, 3*time.Millisecond)
	provider.RecordNodeCompletion(ctx, "double", 25*time.Millisecond)
}

func TestShutdown(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, DefaultConfig())
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	if err := provider.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	// Second shutdown should handle already shut down state gracefully.
	_ = provider.Shutdown(ctx)
}

func TestProviderWithNilMetrics(t *testing.T) {
	ctx := context.Background()

	config := Config{
		ServiceName:    "test",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		EnableTracing:  true,
		EnableMetrics:  false,
	}

	provider, err := NewProvider(ctx, config)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	defer provider.Shutdown(ctx)

	// These should not panic even with nil metrics
	provider.RecordElementsPlanned(ctx, "double", 3)
	provider.RecordElementExecution(ctx, "double", "x:1", time.Millisecond, true)
	provider.RecordCacheLookup(ctx, "deadbeef", true)
	provider.RecordCacheLockWait(ctx, time.Millisecond)
	provider.RecordNodeCompletion(ctx, "double", time.Millisecond)
}

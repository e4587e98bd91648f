package fumble

import (
	"errors"
	"strings"
	"testing"

	"github.com/lborres/fumble/core"
	"github.com/lborres/fumble/services"
)

// dummy HTTP Adapter
type dummyHTTP struct {
	registered *Fumble
	err        error
}

func (d *dummyHTTP) RegisterRoutes(f *Fumble) error {
	d.registered = f
	return d.err
}

const testSecret = "01234567890123456789012345678901"

func TestNewShouldReturnErrSecretTooShort(t *testing.T) {
	cfg := Config{
		Secret:   "short-secret",
		Database: services.NewFakeStorage(),
		HTTP:     &dummyHTTP{},
	}

	_, err := New(cfg)
	if !errors.Is(err, ErrSecretTooShort) {
		t.Fatalf("expected ErrSecretTooShort sentinel (errors.Is), got %v", err)
	}
	// Message should include the minimum length
	if !strings.Contains(err.Error(), "32") {
		t.Fatalf("expected error message to include minimum length, got %v", err)
	}
}

func TestNewShouldValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "missing secret", cfg: Config{Database: services.NewFakeStorage(), HTTP: &dummyHTTP{}}, wantErr: ErrSecretRequired},
		{name: "missing database", cfg: Config{Secret: testSecret, HTTP: &dummyHTTP{}}, wantErr: ErrDBAdapterRequired},
		{name: "missing http adapter", cfg: Config{Secret: testSecret, Database: services.NewFakeStorage()}, wantErr: ErrHTTPAdapterRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNewShouldRegisterRoutesWithDefaults(t *testing.T) {
	adapter := &dummyHTTP{}
	discord := services.NewFakeProvider(core.ProviderDiscord, &core.SSOProfile{ID: "d-1"})

	f, err := New(Config{
		Secret:    testSecret,
		Database:  services.NewFakeStorage(),
		HTTP:      adapter,
		Providers: []core.SSOProvider{discord},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if adapter.registered != f {
		t.Fatal("expected the adapter to receive the constructed instance")
	}
	if f.BasePath != "/api" {
		t.Errorf("expected default base path /api, got %q", f.BasePath)
	}
	if got := f.Auth.Providers(); len(got) != 1 || got[0] != core.ProviderDiscord {
		t.Errorf("expected the discord provider to be registered, got %v", got)
	}
	if f.Sessions.Config().MaxAge != DefaultSessionConfig().MaxAge {
		t.Errorf("expected default session max age, got %v", f.Sessions.Config().MaxAge)
	}
	if len(f.Endpoints.Endpoints()) == 0 {
		t.Error("expected base endpoints to be registered")
	}
}

func TestNewShouldReturnAdapterError(t *testing.T) {
	adapterErr := errors.New("route conflict")

	_, err := New(Config{
		Secret:   testSecret,
		Database: services.NewFakeStorage(),
		HTTP:     &dummyHTTP{err: adapterErr},
	})
	if !errors.Is(err, adapterErr) {
		t.Fatalf("expected adapter error, got %v", err)
	}
}

func TestNewShouldRejectDuplicateProviders(t *testing.T) {
	_, err := New(Config{
		Secret:   testSecret,
		Database: services.NewFakeStorage(),
		HTTP:     &dummyHTTP{},
		Providers: []core.SSOProvider{
			services.NewFakeProvider(core.ProviderDiscord, nil),
			services.NewFakeProvider(core.ProviderDiscord, nil),
		},
	})
	if !errors.Is(err, core.ErrProviderExists) {
		t.Fatalf("expected ErrProviderExists, got %v", err)
	}
}

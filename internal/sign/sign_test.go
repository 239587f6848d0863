package sign

import (
	"testing"
	"time"

	"github.com/invsync/inventory-sync-server/internal/target"
)

func TestBuildKnownVectors(t *testing.T) {
	tests := []struct {
		name string
		alg  target.Algorithm
		want string
	}{
		{"sha1", target.SHA1, "tok:96e61bd1d768f815584650ee8c40f90583ec35eb"},
		{"sha256", target.SHA256, "tok:faf55db3fc98808907ca20bd60b649e605ef16426e508308126dfab0c53a9274"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Build("GET", "/api/stock", "2024-01-15T10:30:00Z", "tok", "topsecret", tt.alg)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Build() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBuildMethodUppercased(t *testing.T) {
	upper, err := Build("PUT", "/api/stock/abc123", "2024-01-15T10:30:00Z", "tok", "topsecret", target.SHA1)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	lower, err := Build("put", "/api/stock/abc123", "2024-01-15T10:30:00Z", "tok", "topsecret", target.SHA1)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := "tok:bbaf41f11c5dfe238dbafd99d654ebf319b08d5d"
	if upper != want {
		t.Errorf("Build(PUT) = %s, want %s", upper, want)
	}
	if lower != upper {
		t.Errorf("Build should uppercase the method: %s != %s", lower, upper)
	}
}

func TestBuildDecodesPath(t *testing.T) {
	got, err := Build("GET", "/api/stock%20items", "2024-01-15T10:30:00Z", "tok", "topsecret", target.SHA1)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	want := "tok:a3478e9ebded25fd46e22f0dd68f1ca7e0e2fcae"
	if got != want {
		t.Errorf("percent-encoded path: Build() = %s, want %s", got, want)
	}

	// An already-decoded path must not be decoded again.
	decoded, err := Build("GET", "/api/stock items", "2024-01-15T10:30:00Z", "tok", "topsecret", target.SHA1)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if decoded != want {
		t.Errorf("decoded path: Build() = %s, want %s", decoded, want)
	}
}

func TestBuildDeterministicAndSensitive(t *testing.T) {
	base := func() (string, error) {
		return Build("GET", "/api/stock", "2024-01-15T10:30:00Z", "tok", "topsecret", target.SHA1)
	}

	a, err := base()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	b, _ := base()
	if a != b {
		t.Errorf("Build not deterministic: %s != %s", a, b)
	}

	variants := []struct {
		name, method, path, ts, token, secret string
		alg                                   target.Algorithm
	}{
		{"method", "PUT", "/api/stock", "2024-01-15T10:30:00Z", "tok", "topsecret", target.SHA1},
		{"path", "GET", "/api/stocks", "2024-01-15T10:30:00Z", "tok", "topsecret", target.SHA1},
		{"adjacent timestamp", "GET", "/api/stock", "2024-01-15T10:30:01Z", "tok", "topsecret", target.SHA1},
		{"secret", "GET", "/api/stock", "2024-01-15T10:30:00Z", "tok", "topsecret2", target.SHA1},
		{"algorithm", "GET", "/api/stock", "2024-01-15T10:30:00Z", "tok", "topsecret", target.SHA256},
	}
	for _, v := range variants {
		got, err := Build(v.method, v.path, v.ts, v.token, v.secret, v.alg)
		if err != nil {
			t.Fatalf("Build(%s) error = %v", v.name, err)
		}
		if got == a {
			t.Errorf("changing %s did not change the signature", v.name)
		}
	}
}

func TestBuildMissingCredentials(t *testing.T) {
	if _, err := Build("GET", "/api/stock", "2024-01-15T10:30:00Z", "", "topsecret", target.SHA1); err == nil {
		t.Error("expected error for missing token")
	}
	if _, err := Build("GET", "/api/stock", "2024-01-15T10:30:00Z", "tok", "", target.SHA1); err == nil {
		t.Error("expected error for missing secret")
	}
}

func TestTimestampFormat(t *testing.T) {
	ts := Timestamp(time.Date(2024, 1, 15, 10, 30, 0, 123456789, time.FixedZone("MSK", 3*3600)))
	if ts != "2024-01-15T07:30:00Z" {
		t.Errorf("Timestamp() = %s, want 2024-01-15T07:30:00Z", ts)
	}
}

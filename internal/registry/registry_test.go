package registry

import (
	"archive/tar"
	"bytes"
	"net"
	"strings"
	"testing"
)

func tarWith(t *testing.T, entries map[string]string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, content := range entries {
		if err := tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf
}

func TestExtractFile(t *testing.T) {
	buf := tarWith(t, map[string]string{
		"./modguard.yaml": "modules: {}",
		"etc/other.txt":   "noise",
	})

	data, err := ExtractFile(buf, "modguard.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "modules: {}" {
		t.Errorf("data = %q", data)
	}
}

func TestExtractFileMissing(t *testing.T) {
	buf := tarWith(t, map[string]string{"other.yaml": "x"})

	_, err := ExtractFile(buf, "modguard.yaml")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v", err)
	}
}

func TestExtractFileTraversal(t *testing.T) {
	buf := tarWith(t, map[string]string{"../../etc/passwd": "x"})

	_, err := ExtractFile(buf, "modguard.yaml")
	if err == nil || !strings.Contains(err.Error(), "escapes") {
		t.Errorf("err = %v", err)
	}
}

func TestExtractFileOversized(t *testing.T) {
	buf := tarWith(t, map[string]string{
		"modguard.yaml": strings.Repeat("a", MaxPolicySize+1),
	})

	_, err := ExtractFile(buf, "modguard.yaml")
	if err == nil || !strings.Contains(err.Error(), "maximum size") {
		t.Errorf("err = %v", err)
	}
}

func TestValidatePolicyURL(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		allowPrivate bool
		wantErr      bool
	}{
		{"valid https", "https://policies.example.com/modguard.yaml", false, false},
		{"http rejected", "http://policies.example.com/modguard.yaml", false, true},
		{"file rejected", "file:///etc/modguard.yaml", false, true},
		{"empty", "", false, true},
		{"localhost rejected", "https://localhost/policy.yaml", false, true},
		{"localhost allowed when private ok", "https://localhost/policy.yaml", true, false},
		{"loopback ip rejected", "https://127.0.0.1/policy.yaml", false, true},
		{"private ip rejected", "https://10.0.0.8/policy.yaml", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePolicyURL(tt.url, tt.allowPrivate)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePolicyURL(%q) = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestIsPrivateOrReservedIP(t *testing.T) {
	private := []string{
		"127.0.0.1", "10.1.2.3", "172.16.0.1", "192.168.1.1",
		"169.254.0.1", "0.0.0.0", "100.64.0.1", "192.0.2.1",
		"198.51.100.7", "203.0.113.9", "240.0.0.1", "::1", "fe80::1",
	}
	for _, s := range private {
		if !IsPrivateOrReservedIP(net.ParseIP(s)) {
			t.Errorf("%s should be private/reserved", s)
		}
	}

	public := []string{"8.8.8.8", "1.1.1.1", "151.101.1.140", "2606:4700::1111"}
	for _, s := range public {
		if IsPrivateOrReservedIP(net.ParseIP(s)) {
			t.Errorf("%s should be public", s)
		}
	}
}

func TestVerifyRequiresDigestPin(t *testing.T) {
	err := Verify(t.Context(), "ghcr.io/acme/policies:latest")
	if err == nil || !strings.Contains(err.Error(), "not digest-pinned") {
		t.Errorf("err = %v", err)
	}
}

package security

import (
	"path/filepath"
	"testing"
)

func TestComputeDigest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foo-1.0.0.jar")
	writeFile(t, path, []byte("hello"))

	tests := []struct {
		algo Algorithm
		want string
	}{
		{SHA256, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
		{SHA512, "9b71d224bd62f3785d96d46ad3ea3d73319bfbc2890caadae2dff72519673ca72323c3d99ba5c11d7c7acc6e14b8c5da0c4663475c2e5c3adef46f73bcdec043"},
	}
	for _, tt := range tests {
		got, err := ComputeDigest(path, tt.algo)
		if err != nil {
			t.Fatalf("ComputeDigest(%s) failed: %v", tt.algo, err)
		}
		if got != tt.want {
			t.Errorf("ComputeDigest(%s) = %s, want %s", tt.algo, got, tt.want)
		}
		fromBytes, _ := DigestBytes([]byte("hello"), tt.algo)
		if fromBytes != tt.want {
			t.Errorf("DigestBytes(%s) = %s", tt.algo, fromBytes)
		}
	}
}

func TestComputeDigestErrors(t *testing.T) {
	if _, err := ComputeDigest(filepath.Join(t.TempDir(), "absent.jar"), SHA256); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := DigestBytes(nil, Algorithm("md5")); err == nil {
		t.Error("expected error for unsupported algorithm")
	}
}

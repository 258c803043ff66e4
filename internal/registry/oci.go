// Package registry distributes policies as OCI artifacts and over HTTPS.
// Teams publish a policy image once and every repo pulls it by digest, so
// CI runs are pinned to an exact policy revision.
package registry

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/go-containerregistry/pkg/crane"
	"github.com/google/go-containerregistry/pkg/name"
)

// DefaultPolicyFile is the path looked up inside a policy image.
const DefaultPolicyFile = "modguard.yaml"

// MaxPolicySize caps extracted policy documents. Policies are small; a
// larger entry indicates a wrong or hostile image.
const MaxPolicySize = 4 * 1024 * 1024

// PullResult is a policy retrieved from a registry, pinned by digest.
type PullResult struct {
	Ref    string
	Digest string
	Data   []byte
}

// ResolveDigest resolves a tag or digest reference to its digest.
func ResolveDigest(ctx context.Context, imageRef string) (string, error) {
	ref, err := name.ParseReference(imageRef)
	if err != nil {
		return "", fmt.Errorf("failed to parse image reference: %w", err)
	}

	digest, err := crane.Digest(ref.String(), crane.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to resolve digest: %w", err)
	}

	return digest, nil
}

// Pull fetches a policy image and extracts the policy document from its
// flattened filesystem. The returned result carries the digest-pinned
// reference so callers can record exactly what they pulled.
func Pull(ctx context.Context, imageRef, policyPath string) (*PullResult, error) {
	if policyPath == "" {
		policyPath = DefaultPolicyFile
	}

	ref, err := name.ParseReference(imageRef)
	if err != nil {
		return nil, fmt.Errorf("failed to parse image reference: %w", err)
	}

	digest, err := crane.Digest(ref.String(), crane.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve digest: %w", err)
	}
	pinned := ref.Context().Name() + "@" + digest

	img, err := crane.Pull(pinned, crane.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to pull policy image: %w", err)
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(crane.Export(img, pw))
	}()

	data, err := ExtractFile(pr, policyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s from %s: %w", policyPath, pinned, err)
	}

	return &PullResult{Ref: pinned, Digest: digest, Data: data}, nil
}

// Verify checks that a digest-pinned reference still resolves. Used to
// validate a recorded pin without re-downloading layers.
func Verify(ctx context.Context, pinnedRef string) error {
	if !strings.Contains(pinnedRef, "@sha256:") {
		return fmt.Errorf("reference is not digest-pinned: %s", pinnedRef)
	}
	if _, err := crane.Manifest(pinnedRef, crane.WithContext(ctx)); err != nil {
		return fmt.Errorf("digest verification failed: %w", err)
	}
	return nil
}

// ExtractFile reads one file out of a tar stream. Entry names are
// normalized and traversal components rejected before comparison.
func ExtractFile(r io.Reader, target string) ([]byte, error) {
	target = path.Clean(strings.TrimPrefix(target, "/"))
	tr := tar.NewReader(r)

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("corrupt tar stream: %w", err)
		}

		clean := path.Clean(strings.TrimPrefix(hdr.Name, "/"))
		if strings.HasPrefix(clean, "..") {
			return nil, fmt.Errorf("tar entry escapes archive root: %s", hdr.Name)
		}
		if clean != target || hdr.Typeflag != tar.TypeReg {
			continue
		}

		data, err := io.ReadAll(io.LimitReader(tr, MaxPolicySize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read tar entry: %w", err)
		}
		if int64(len(data)) > MaxPolicySize {
			return nil, fmt.Errorf("policy exceeds maximum size limit (%d bytes)", MaxPolicySize)
		}
		return data, nil
	}

	return nil, fmt.Errorf("file not found in image: %s", target)
}

package gitserve

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// GenerateSelfSignedCert shells out to openssl to create a self-signed
// localhost certificate in dir, returning the certificate and key paths.
// Certificate generation stays with the external TLS toolkit; this package
// only loads the result into the listener.
func GenerateSelfSignedCert(ctx context.Context, dir string) (certFile, keyFile string, err error) {
	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")

	cmd := exec.CommandContext(ctx, "openssl",
		"req", "-x509", "-newkey", "rsa:4096",
		"-keyout", keyFile, "-out", certFile,
		"-days", "365", "-nodes",
		"-subj", "/CN=localhost",
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", "", fmt.Errorf("openssl req failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	return certFile, keyFile, nil
}

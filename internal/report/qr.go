package report

import (
	"fmt"
	"path/filepath"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// SourceQR renders a QR code identifying the CSV a view was built from. The
// payload is "<base name>@sha256:<digest>".
func SourceQR(file, digest string, size int) ([]byte, error) {
	payload, err := sourcePayload(file, digest)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 128
	}
	return qrcode.Encode(payload, qrcode.Medium, size)
}

// sourcePayload accepts digests printed with ':' or ' ' separators.
func sourcePayload(file, digest string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(digest)) {
		switch {
		case r >= '0' && r <= '9' || r >= 'a' && r <= 'f':
			b.WriteRune(r)
		case r == ':' || r == ' ':
		default:
			return "", fmt.Errorf("source digest %q is not hex", digest)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("source digest is empty")
	}
	name := filepath.Base(strings.TrimSpace(file))
	if name == "." || name == string(filepath.Separator) {
		name = ""
	}
	return name + "@sha256:" + b.String(), nil
}

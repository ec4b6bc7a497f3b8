package safepath

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/ferry/core"
)

func TestValidator_ValidateURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{name: "https", url: "https://example.test/file.bin", wantErr: nil},
		{name: "http with port", url: "http://127.0.0.1:8080/upload", wantErr: nil},
		{name: "oci tag", url: "oci://ghcr.io/org/file:v1", wantErr: nil},
		{name: "unknown scheme is engine business", url: "ftp://example.test/file", wantErr: nil},
		{name: "empty", url: "", wantErr: core.ErrInvalidArgument},
		{name: "whitespace", url: "   ", wantErr: core.ErrInvalidArgument},
		{name: "no scheme", url: "example.test/file", wantErr: core.ErrInvalidArgument},
		{name: "no host", url: "https:///file", wantErr: core.ErrInvalidArgument},
		{name: "relative", url: "/file", wantErr: core.ErrInvalidArgument},
		{name: "null byte", url: "https://example.test/\x00", wantErr: core.ErrInvalidArgument},
		{name: "newline", url: "https://example.test/a\nb", wantErr: core.ErrInvalidArgument},
		{name: "bad escape", url: "https://example.test/%zz", wantErr: core.ErrInvalidArgument},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			u, err := v.ValidateURL(tt.url)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr, "ValidateURL(%q)", tt.url)
				assert.Nil(t, u)
			} else {
				require.NoError(t, err, "ValidateURL(%q)", tt.url)
				assert.NotEmpty(t, u.Host)
			}
		})
	}
}

func TestValidator_ValidatePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{name: "simple file", path: "foo.txt", wantErr: nil},
		{name: "nested path", path: "foo/bar/baz.txt", wantErr: nil},
		{name: "absolute path", path: "/tmp/out.bin", wantErr: nil},
		{name: "parent reference", path: "../sibling/file", wantErr: nil},
		{name: "empty path", path: "", wantErr: core.ErrInvalidArgument},
		{name: "null byte", path: "foo\x00bar", wantErr: core.ErrInvalidArgument},
		{name: "trailing slash", path: "downloads/", wantErr: core.ErrInvalidArgument},
		{name: "dot", path: ".", wantErr: core.ErrInvalidArgument},
		{name: "dot dot", path: "..", wantErr: core.ErrInvalidArgument},
		{name: "root", path: "/", wantErr: core.ErrInvalidArgument},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := v.ValidatePath(tt.path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr, "ValidatePath(%q)", tt.path)
			} else {
				assert.NoError(t, err, "ValidatePath(%q)", tt.path)
			}
		})
	}
}

func TestValidator_ValidateRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     *core.Request
		wantErr bool
	}{
		{
			name: "download",
			req:  &core.Request{Kind: core.KindDownload, URL: "https://example.test/a", LocalPath: "a"},
		},
		{
			name: "upload with credentials",
			req: &core.Request{
				Kind:        core.KindUpload,
				URL:         "https://example.test/a",
				LocalPath:   "a",
				Credentials: &core.Credentials{Username: "u", Password: "p"},
			},
		},
		{
			name: "oci download by tag",
			req:  &core.Request{Kind: core.KindDownload, URL: "oci://localhost:5000/acme/file:v1", LocalPath: "a"},
		},
		{
			name: "oci download by digest",
			req: &core.Request{
				Kind:      core.KindDownload,
				URL:       "oci://localhost:5000/acme/file@sha256:" + strings.Repeat("a", 64),
				LocalPath: "a",
			},
		},
		{
			name: "oci upload without tag",
			req:  &core.Request{Kind: core.KindUpload, URL: "oci://localhost:5000/acme/file", LocalPath: "a"},
		},
		{
			name:    "oci without repository",
			req:     &core.Request{Kind: core.KindDownload, URL: "oci://localhost:5000", LocalPath: "a"},
			wantErr: true,
		},
		{
			name:    "oci invalid repository",
			req:     &core.Request{Kind: core.KindDownload, URL: "oci://h/Bad Repo:t", LocalPath: "a"},
			wantErr: true,
		},
		{
			name: "oci upload by digest",
			req: &core.Request{
				Kind:      core.KindUpload,
				URL:       "oci://localhost:5000/acme/file@sha256:" + strings.Repeat("a", 64),
				LocalPath: "a",
			},
			wantErr: true,
		},
		{name: "nil", req: nil, wantErr: true},
		{
			name:    "unknown kind",
			req:     &core.Request{Kind: core.Kind(9), URL: "https://example.test/a", LocalPath: "a"},
			wantErr: true,
		},
		{
			name: "download with credentials",
			req: &core.Request{
				Kind:        core.KindDownload,
				URL:         "https://example.test/a",
				LocalPath:   "a",
				Credentials: &core.Credentials{Username: "u"},
			},
			wantErr: true,
		},
		{
			name:    "empty url",
			req:     &core.Request{Kind: core.KindDownload, LocalPath: "a"},
			wantErr: true,
		},
		{
			name:    "empty path",
			req:     &core.Request{Kind: core.KindUpload, URL: "https://example.test/a"},
			wantErr: true,
		},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := v.ValidateRequest(tt.req)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrInvalidArgument)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func Test_containsNull(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"normal path", "normal", false},
		{"null in middle", "with\x00null", true},
		{"null at start", "\x00start", true},
		{"null at end", "end\x00", true},
		{"empty string", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := containsNull(tt.path)
			assert.Equal(t, tt.want, got, "containsNull(%q)", tt.path)
		})
	}
}

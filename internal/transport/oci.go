package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/registry"
	"oras.land/oras-go/v2/registry/remote"

	"github.com/meigma/ferry/core"
	"github.com/meigma/ferry/internal/progress"
)

const (
	// ArtifactType marks manifests published by ferry uploads.
	ArtifactType = "application/vnd.meigma.ferry.file.v1"

	// LayerMediaType is the media type of the single file layer.
	LayerMediaType = "application/octet-stream"
)

// parseOCIReference turns oci://host/repo[:tag|@digest] into a registry reference.
func parseOCIReference(u *url.URL) (registry.Reference, error) {
	if u.Host == "" {
		return registry.Reference{}, fmt.Errorf("%w: missing registry host", core.ErrInvalidArgument)
	}
	ref, err := registry.ParseReference(u.Host + u.Path)
	if err != nil {
		return registry.Reference{}, fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	}
	return ref, nil
}

func (e *Engine) newRepository(ref registry.Reference, creds *core.Credentials) (*remote.Repository, error) {
	repo, err := remote.NewRepository(ref.Registry + "/" + ref.Repository)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	}
	client, err := e.client(ref.Host(), creds)
	if err != nil {
		return nil, err
	}
	repo.Client = client
	repo.PlainHTTP = e.plainHTTP
	return repo, nil
}

// ociGet resolves the reference to a single-layer manifest and streams the
// layer blob into dst, verifying its digest.
func (e *Engine) ociGet(ctx context.Context, u *url.URL, dst io.Writer, fn core.ProgressFunc) error {
	ref, err := parseOCIReference(u)
	if err != nil {
		return err
	}
	repo, err := e.newRepository(ref, nil)
	if err != nil {
		return err
	}

	layer, err := e.resolveLayer(ctx, repo, ref.ReferenceOrDefault())
	if err != nil {
		return err
	}

	rc, err := repo.Blobs().Fetch(ctx, layer)
	if err != nil {
		return fmt.Errorf("fetch blob: %w", mapError(err))
	}
	defer rc.Close()

	vr := content.NewVerifyReader(rc, layer)
	pw := progress.NewWriter(dst, layer.Size, e.step, progress.Callback(fn)).WithContext(ctx)
	if _, err := io.Copy(pw, vr); err != nil {
		return mapError(err)
	}
	if err := vr.Verify(); err != nil {
		return fmt.Errorf("%w: verify blob: %w", core.ErrTransport, err)
	}
	pw.Flush()
	return nil
}

func (e *Engine) resolveLayer(ctx context.Context, repo *remote.Repository, reference string) (ocispec.Descriptor, error) {
	desc, rc, err := repo.FetchReference(ctx, reference)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("fetch manifest: %w", mapError(err))
	}
	defer rc.Close()

	if desc.MediaType != ocispec.MediaTypeImageManifest {
		return ocispec.Descriptor{}, fmt.Errorf("%w: %w: %s", core.ErrTransport, ErrUnsupportedManifest, desc.MediaType)
	}

	data, err := content.ReadAll(rc, desc)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("read manifest: %w", mapError(err))
	}

	var manifest ocispec.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("%w: parse manifest: %w", core.ErrTransport, err)
	}
	if len(manifest.Layers) != 1 {
		return ocispec.Descriptor{}, fmt.Errorf("%w: %w: found %d", core.ErrTransport, ErrMultipleLayers, len(manifest.Layers))
	}
	return manifest.Layers[0], nil
}

// ociPut pushes src as the single layer of an artifact manifest and tags it.
// The digest must be known before the push, so src has to be seekable.
func (e *Engine) ociPut(ctx context.Context, u *url.URL, src io.Reader, size int64, creds *core.Credentials, fn core.ProgressFunc) error {
	ref, err := parseOCIReference(u)
	if err != nil {
		return err
	}
	if ref.Reference != "" {
		if err := ref.ValidateReferenceAsTag(); err != nil {
			return fmt.Errorf("%w: upload needs a tag: %w", core.ErrInvalidArgument, err)
		}
	}

	seeker, ok := src.(io.Seeker)
	if !ok {
		return fmt.Errorf("%w: oci upload source must be seekable", core.ErrInvalidArgument)
	}
	dgst, err := digest.Canonical.FromReader(src)
	if err != nil {
		return mapError(err)
	}
	if _, err := seeker.Seek(0, io.SeekStart); err != nil {
		return mapError(err)
	}

	repo, err := e.newRepository(ref, creds)
	if err != nil {
		return err
	}

	layer := ocispec.Descriptor{
		MediaType: LayerMediaType,
		Digest:    dgst,
		Size:      size,
	}
	if err := e.pushLayer(ctx, repo, layer, src, fn); err != nil {
		return err
	}

	config := ocispec.DescriptorEmptyJSON
	if err := repo.Blobs().Push(ctx, config, bytes.NewReader(config.Data)); err != nil {
		return fmt.Errorf("push config: %w", mapError(err))
	}

	manifest := ocispec.Manifest{
		Versioned:    specs.Versioned{SchemaVersion: 2},
		MediaType:    ocispec.MediaTypeImageManifest,
		ArtifactType: ArtifactType,
		Config:       config,
		Layers:       []ocispec.Descriptor{layer},
		Annotations: map[string]string{
			ocispec.AnnotationCreated: time.Now().UTC().Format(time.RFC3339),
		},
	}
	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	manifestDesc := content.NewDescriptorFromBytes(ocispec.MediaTypeImageManifest, manifestJSON)
	manifestDesc.ArtifactType = ArtifactType
	if err := repo.PushReference(ctx, manifestDesc, bytes.NewReader(manifestJSON), ref.ReferenceOrDefault()); err != nil {
		return fmt.Errorf("push manifest: %w", mapError(err))
	}

	e.logger.Debug("pushed artifact", "ref", ref.String(), "digest", manifestDesc.Digest.String())
	return nil
}

func (e *Engine) pushLayer(ctx context.Context, repo *remote.Repository, layer ocispec.Descriptor, src io.Reader, fn core.ProgressFunc) error {
	exists, err := repo.Blobs().Exists(ctx, layer)
	if err != nil {
		e.logger.Debug("blob exists check failed", "digest", layer.Digest.String(), "error", err)
	}
	if exists {
		if fn != nil {
			fn(layer.Size, layer.Size)
		}
		return nil
	}

	body := progress.NewReader(src, layer.Size, e.step, progress.Callback(fn)).WithContext(ctx)
	if err := repo.Blobs().Push(ctx, layer, body); err != nil {
		return fmt.Errorf("push blob: %w", mapError(err))
	}
	return nil
}

package docker

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/moby/patternmatcher/ignorefile"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/shipyard/pkg/errors"
)

const (
	dockerignoreFile = ".dockerignore"

	// DeployIDLabel and RevisionLabel are set on every image and container
	// that shipyard creates.
	DeployIDLabel = "shipyard.deploy-id"
	RevisionLabel = "shipyard.revision"
)

// BuildOptions describes an image build.
type BuildOptions struct {
	// ContextDir is the directory sent to the daemon as the build context.
	ContextDir string

	// Dockerfile is relative to ContextDir.
	Dockerfile string

	// Tag is the fixed name the image is tagged with. Rebuilding replaces
	// the tag, leaving the old image untagged.
	Tag string

	Labels map[string]string

	// Excludes are left out of the build context, in addition to the
	// patterns in .dockerignore.
	Excludes []string
}

// Builder builds images from the synced project directory.
type Builder struct {
	Client Client
}

// Build builds the image, and returns its ID. Any error reported in the
// build output fails the build.
func (b Builder) Build(ctx context.Context, opts BuildOptions) (string, error) {
	buildCtx, err := tarContext(opts.ContextDir, opts.Dockerfile, opts.Excludes)
	if err != nil {
		return "", errors.WithContext(err, "create build context")
	}
	defer buildCtx.Close()

	log.WithFields(log.Fields{
		"image":      opts.Tag,
		"dockerfile": opts.Dockerfile,
	}).Info("Building image")

	resp, err := b.Client.ImageBuild(ctx, buildCtx, types.ImageBuildOptions{
		Tags:        []string{opts.Tag},
		Dockerfile:  opts.Dockerfile,
		Labels:      opts.Labels,
		Remove:      true,
		ForceRemove: true,
	})
	if err != nil {
		return "", errors.WithContext(err, "start build")
	}
	defer resp.Body.Close()

	var imageID string
	out := log.StandardLogger().WriterLevel(log.InfoLevel)
	defer out.Close()
	err = jsonmessage.DisplayJSONMessagesStream(resp.Body, out, 0, false,
		func(msg jsonmessage.JSONMessage) {
			var result types.BuildResult
			if msg.Aux != nil && json.Unmarshal(*msg.Aux, &result) == nil && result.ID != "" {
				imageID = result.ID
			}
		})
	if err != nil {
		return "", errors.WithContext(err, "build")
	}

	// Older daemons don't report the image ID in the build output.
	if imageID == "" {
		inspect, _, err := b.Client.ImageInspectWithRaw(ctx, opts.Tag)
		if err != nil {
			return "", errors.WithContext(err, "inspect built image")
		}
		imageID = inspect.ID
	}

	log.WithFields(log.Fields{
		"image": opts.Tag,
		"id":    imageID,
	}).Info("Built image")
	return imageID, nil
}

// tarContext archives `dir`, honoring its .dockerignore. The Dockerfile and
// .dockerignore are always sent since the daemon needs them.
func tarContext(dir, dockerfile string, extraExcludes []string) (io.ReadCloser, error) {
	excludes, err := readDockerignore(filepath.Join(dir, dockerignoreFile))
	if err != nil {
		return nil, err
	}
	excludes = append(excludes, extraExcludes...)

	if len(excludes) != 0 {
		excludes = append(excludes, "!"+filepath.ToSlash(dockerfile), "!"+dockerignoreFile)
	}

	return archive.TarWithOptions(dir, &archive.TarOptions{
		ExcludePatterns: excludes,
	})
}

func readDockerignore(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WithContext(err, "open")
	}
	defer f.Close()

	excludes, err := ignorefile.ReadAll(f)
	if err != nil {
		return nil, errors.WithContext(err, "parse "+dockerignoreFile)
	}
	return excludes, nil
}

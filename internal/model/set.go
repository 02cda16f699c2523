package model

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"
)

// Spec locates one model on disk and, optionally, remotely.
type Spec struct {
	Path         string
	MetadataPath string
	Source       Source
	Defaults     Metadata
}

// Set is the pair of classifiers the process serves. It is built once at
// startup and shared read-only by every front-end.
type Set struct {
	Image         *Server
	Questionnaire *Server
}

// LoadSet fetches any missing artifacts in parallel and opens both models.
func LoadSet(ctx context.Context, client *http.Client, image, questionnaire Spec, logger *slog.Logger) (*Set, error) {
	g, gctx := errgroup.WithContext(ctx)
	for _, spec := range []Spec{image, questionnaire} {
		g.Go(func() error {
			return EnsureArtifact(gctx, client, spec.Path, spec.Source, logger)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	imageServer, err := open(image)
	if err != nil {
		return nil, fmt.Errorf("image model: %w", err)
	}
	questionnaireServer, err := open(questionnaire)
	if err != nil {
		imageServer.Close()
		return nil, fmt.Errorf("questionnaire model: %w", err)
	}

	return &Set{Image: imageServer, Questionnaire: questionnaireServer}, nil
}

func open(spec Spec) (*Server, error) {
	metadata, err := LoadMetadata(spec.MetadataPath, spec.Defaults)
	if err != nil {
		return nil, err
	}
	return NewServer(spec.Path, metadata)
}

// Close releases both models.
func (s *Set) Close() {
	if s.Image != nil {
		s.Image.Close()
	}
	if s.Questionnaire != nil {
		s.Questionnaire.Close()
	}
}

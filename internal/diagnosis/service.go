// Package diagnosis turns preprocessed inputs into classifier calls and maps
// the resulting scores to labels.
package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Brownie44l1/osteo-care/internal/metrics"
	"github.com/Brownie44l1/osteo-care/internal/preprocess"
)

// Classifier scores a flattened input tensor.
type Classifier interface {
	Predict(ctx context.Context, input []float32) ([]float32, error)
}

// sizedClassifier is a Classifier that knows its input length, typically
// from the loaded model's metadata.
type sizedClassifier interface {
	InputSize() int
}

// Grade is the image classifier result.
type Grade struct {
	KLGrade       int    `json:"kl_grade"`
	SeverityLabel string `json:"severity_label"`
}

// Risk is the questionnaire classifier result.
type Risk struct {
	Level   int      `json:"risk_level"`
	Label   string   `json:"risk_label"`
	Answers []string `json:"answers"`
}

// Service runs both inference paths. It holds no mutable state and is safe
// for concurrent use as long as its classifiers are.
type Service struct {
	images   Classifier
	survey   Classifier
	severity Labels
	logger   *slog.Logger
	metrics  *metrics.Recorder
}

// Option configures a Service.
type Option func(*Service)

// WithSeverityLabels sets the wording used for KL grades. Defaults to
// WebSeverityLabels.
func WithSeverityLabels(l Labels) Option {
	return func(s *Service) { s.severity = l }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService builds a Service around the image and questionnaire classifiers.
func NewService(images, survey Classifier, opts ...Option) *Service {
	s := &Service{
		images:   images,
		survey:   survey,
		severity: WebSeverityLabels,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GradeImage decodes an encoded image and grades it.
func (s *Service) GradeImage(ctx context.Context, r io.Reader) (*Grade, error) {
	tensor, err := preprocess.Image(r)
	if err != nil {
		if errors.Is(err, preprocess.ErrDecode) {
			s.metrics.Failure(metrics.KindImage, "decode")
		}
		return nil, err
	}
	return s.grade(ctx, tensor.Data)
}

// GradeTensor grades an image the caller has already preprocessed into a
// flattened tensor. The expected length comes from the image classifier when
// it reports one, else (1, 200, 200, 1).
func (s *Service) GradeTensor(ctx context.Context, data []float32) (*Grade, error) {
	want := preprocess.Size * preprocess.Size
	if c, ok := s.images.(sizedClassifier); ok {
		want = c.InputSize()
	}
	if len(data) != want {
		s.metrics.Failure(metrics.KindImage, "shape")
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrInputRejected, want, len(data))
	}
	return s.grade(ctx, data)
}

func (s *Service) grade(ctx context.Context, data []float32) (*Grade, error) {
	scores, err := s.run(ctx, metrics.KindImage, s.images, data)
	if err != nil {
		return nil, err
	}
	idx, err := Argmax(scores)
	if err != nil {
		s.metrics.Failure(metrics.KindImage, outputFailure(err))
		return nil, err
	}

	g := &Grade{KLGrade: idx, SeverityLabel: s.severity.At(idx)}
	if g.SeverityLabel == UnknownLabel {
		s.logger.WarnContext(ctx, "class index outside severity labels", "index", idx, "labels", len(s.severity))
	}
	s.metrics.Prediction(metrics.KindImage, g.SeverityLabel)
	return g, nil
}

// AssessRisk scores questionnaire answers.
func (s *Service) AssessRisk(ctx context.Context, answers preprocess.Answers) (*Risk, error) {
	scores, err := s.run(ctx, metrics.KindQuestionnaire, s.survey, answers.Tensor().Data)
	if err != nil {
		return nil, err
	}
	idx, err := Argmax(scores)
	if err != nil {
		s.metrics.Failure(metrics.KindQuestionnaire, outputFailure(err))
		return nil, err
	}

	r := &Risk{Level: idx, Label: RiskLabels.At(idx), Answers: answers.Display()}
	if r.Label == UnknownLabel {
		s.logger.WarnContext(ctx, "class index outside risk labels", "index", idx)
	}
	s.metrics.Prediction(metrics.KindQuestionnaire, r.Label)
	return r, nil
}

func (s *Service) run(ctx context.Context, kind string, c Classifier, input []float32) ([]float32, error) {
	if c == nil {
		s.metrics.Failure(kind, "unavailable")
		return nil, fmt.Errorf("%w: %s classifier not loaded", ErrPrediction, kind)
	}

	start := time.Now()
	scores, err := c.Predict(ctx, input)
	s.metrics.ObserveInference(kind, time.Since(start))
	if err != nil {
		s.metrics.Failure(kind, "inference")
		return nil, fmt.Errorf("%w: %w", ErrPrediction, err)
	}

	s.logger.DebugContext(ctx, "inference complete", "kind", kind, "scores", scores, "elapsed", time.Since(start))
	return scores, nil
}

func outputFailure(err error) string {
	if errors.Is(err, ErrNaNOutput) {
		return "nan_output"
	}
	return "empty_output"
}

package diagnosis

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/osteo-care/internal/metrics"
	"github.com/Brownie44l1/osteo-care/internal/preprocess"
)

type fakeClassifier struct {
	mu     sync.Mutex
	scores []float32
	err    error
	inputs [][]float32
}

func (f *fakeClassifier) Predict(_ context.Context, input []float32) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, append([]float32(nil), input...))
	if f.err != nil {
		return nil, f.err
	}
	return f.scores, nil
}

func (f *fakeClassifier) lastInput() []float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inputs) == 0 {
		return nil
	}
	return f.inputs[len(f.inputs)-1]
}

type sizedFake struct {
	fakeClassifier
	size int
}

func (f *sizedFake) InputSize() int { return f.size }

func rgbJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestService_GradeImage(t *testing.T) {
	t.Parallel()

	images := &fakeClassifier{scores: []float32{0.05, 0.05, 0.1, 0.7, 0.1}}

	t.Run("dashboard wording", func(t *testing.T) {
		t.Parallel()
		svc := NewService(images, nil, WithSeverityLabels(DashboardSeverityLabels))
		g, err := svc.GradeImage(context.Background(), bytes.NewReader(rgbJPEG(t, 500, 400)))
		require.NoError(t, err)
		require.Equal(t, &Grade{KLGrade: 3, SeverityLabel: "Moderate"}, g)
	})

	t.Run("web wording", func(t *testing.T) {
		t.Parallel()
		svc := NewService(images, nil)
		g, err := svc.GradeImage(context.Background(), bytes.NewReader(rgbJPEG(t, 500, 400)))
		require.NoError(t, err)
		require.Equal(t, &Grade{KLGrade: 3, SeverityLabel: "High Risk"}, g)
		require.Len(t, images.lastInput(), 200*200)
	})
}

func TestService_GradeImage_Errors(t *testing.T) {
	t.Parallel()

	rec := metrics.New()
	ctx := context.Background()
	jpg := rgbJPEG(t, 64, 64)

	t.Run("decode error", func(t *testing.T) {
		svc := NewService(&fakeClassifier{scores: []float32{1}}, nil, WithMetrics(rec))
		_, err := svc.GradeImage(ctx, bytes.NewReader([]byte("nope")))
		require.ErrorIs(t, err, preprocess.ErrDecode)
	})

	t.Run("empty output", func(t *testing.T) {
		svc := NewService(&fakeClassifier{scores: []float32{}}, nil, WithMetrics(rec))
		_, err := svc.GradeImage(ctx, bytes.NewReader(jpg))
		require.ErrorIs(t, err, ErrEmptyOutput)
	})

	t.Run("classifier failure", func(t *testing.T) {
		boom := errors.New("session run failed")
		svc := NewService(&fakeClassifier{err: boom}, nil, WithMetrics(rec))
		_, err := svc.GradeImage(ctx, bytes.NewReader(jpg))
		require.ErrorIs(t, err, ErrPrediction)
		require.ErrorIs(t, err, boom)
	})

	t.Run("missing classifier", func(t *testing.T) {
		svc := NewService(nil, nil, WithMetrics(rec))
		_, err := svc.GradeImage(ctx, bytes.NewReader(jpg))
		require.ErrorIs(t, err, ErrPrediction)
	})
}

func TestService_GradeImage_UnknownIndex(t *testing.T) {
	t.Parallel()

	six := &fakeClassifier{scores: []float32{0, 0, 0, 0, 0, 0.9}}
	svc := NewService(six, nil)
	g, err := svc.GradeImage(context.Background(), bytes.NewReader(rgbJPEG(t, 20, 20)))
	require.NoError(t, err)
	require.Equal(t, 5, g.KLGrade)
	require.Equal(t, UnknownLabel, g.SeverityLabel)
}

func TestService_GradeTensor(t *testing.T) {
	t.Parallel()

	images := &fakeClassifier{scores: []float32{0.9, 0.1}}
	svc := NewService(images, nil)

	g, err := svc.GradeTensor(context.Background(), make([]float32, 200*200))
	require.NoError(t, err)
	require.Equal(t, 0, g.KLGrade)
	require.Equal(t, "Normal", g.SeverityLabel)

	_, err = svc.GradeTensor(context.Background(), make([]float32, 10))
	require.ErrorIs(t, err, ErrInputRejected)
}

func TestService_GradeTensor_ClassifierInputSize(t *testing.T) {
	t.Parallel()

	images := &sizedFake{fakeClassifier: fakeClassifier{scores: []float32{0.1, 0.9}}, size: 64 * 64}
	svc := NewService(images, nil)

	g, err := svc.GradeTensor(context.Background(), make([]float32, 64*64))
	require.NoError(t, err)
	require.Equal(t, 1, g.KLGrade)

	_, err = svc.GradeTensor(context.Background(), make([]float32, 200*200))
	require.ErrorIs(t, err, ErrInputRejected)
	require.ErrorContains(t, err, "expected 4096 values, got 40000")
}

func TestService_NaNOutput(t *testing.T) {
	t.Parallel()

	nan := float32(math.NaN())
	rec := metrics.New()
	svc := NewService(
		&fakeClassifier{scores: []float32{0.1, nan, 0.2, 0.3, 0.4}},
		&fakeClassifier{scores: []float32{nan, 0.5, 0.5}},
		WithMetrics(rec),
	)

	_, err := svc.GradeTensor(context.Background(), make([]float32, 200*200))
	require.ErrorIs(t, err, ErrNaNOutput)

	_, err = svc.AssessRisk(context.Background(), preprocess.Answers{})
	require.ErrorIs(t, err, ErrPrediction)
}

func TestService_AssessRisk(t *testing.T) {
	t.Parallel()

	survey := &fakeClassifier{scores: []float32{0.1, 0.7, 0.2}}
	rec := metrics.New()
	svc := NewService(nil, survey, WithMetrics(rec))

	answers := preprocess.Answers{true, true, false, false, false, true}
	r, err := svc.AssessRisk(context.Background(), answers)
	require.NoError(t, err)
	require.Equal(t, 1, r.Level)
	require.Equal(t, "Moderate Risk", r.Label)
	require.Equal(t, []string{"Yes", "Yes", "No", "No", "No", "Yes"}, r.Answers)
	require.Equal(t, []float32{1, 1, 0, 0, 0, 1, 0, 0}, survey.lastInput())
}

func TestService_AssessRisk_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := NewService(nil, &fakeClassifier{scores: nil}).AssessRisk(ctx, preprocess.Answers{})
	require.ErrorIs(t, err, ErrPrediction)

	r, err := NewService(nil, &fakeClassifier{scores: []float32{0, 0, 0, 1}}).AssessRisk(ctx, preprocess.Answers{})
	require.NoError(t, err)
	require.Equal(t, UnknownLabel, r.Label)
}

func TestService_ConcurrentUse(t *testing.T) {
	t.Parallel()

	svc := NewService(
		&fakeClassifier{scores: []float32{0, 0, 1, 0, 0}},
		&fakeClassifier{scores: []float32{0, 0, 1}},
		WithSeverityLabels(DashboardSeverityLabels),
	)
	jpg := rgbJPEG(t, 50, 30)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, err := svc.GradeImage(context.Background(), bytes.NewReader(jpg))
			if assert.NoError(t, err) {
				assert.Equal(t, "Mild", g.SeverityLabel)
			}

			r, err := svc.AssessRisk(context.Background(), preprocess.Answers{true})
			if assert.NoError(t, err) {
				assert.Equal(t, "High Risk", r.Label)
			}
		}()
	}
	wg.Wait()
}

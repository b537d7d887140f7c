package ml

import (
	"context"
	"math"

	onnxruntime "github.com/yalue/onnxruntime_go"

	"midas/pkg/errors"
	"midas/pkg/logger"
)

// FinBERT class order: index 0 positive, 1 negative, 2 neutral.
const (
	classPositive = 0
	classNegative = 1
	classNeutral  = 2
	numClasses    = 3
)

// ONNXScorer runs a FinBERT sentiment model through ONNX Runtime.
// It satisfies the model scorer contract of the sentiment pipeline:
// polarity is P(positive) - P(negative), intensity is 1 - P(neutral).
type ONNXScorer struct {
	session   *onnxruntime.DynamicAdvancedSession
	tokenizer *WordPieceTokenizer
	maxSeqLen int
	log       *logger.Logger
}

// NewONNXScorer initializes the ONNX runtime environment and loads the
// sentiment model together with its vocabulary.
func NewONNXScorer(modelPath, vocabPath string, maxSeqLen int) (*ONNXScorer, error) {
	if err := onnxruntime.InitializeEnvironment(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize ONNX runtime")
	}

	tokenizer, err := NewWordPieceTokenizer(vocabPath, maxSeqLen)
	if err != nil {
		return nil, err
	}

	options, err := onnxruntime.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session options")
	}
	defer options.Destroy()

	session, err := onnxruntime.NewDynamicAdvancedSession(modelPath,
		[]string{"input_ids", "attention_mask"}, []string{"logits"}, options)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load sentiment model")
	}

	return &ONNXScorer{
		session:   session,
		tokenizer: tokenizer,
		maxSeqLen: maxSeqLen,
		log:       logger.Get().With("component", "onnx_scorer"),
	}, nil
}

// Name returns the scorer identifier used in metrics and logs.
func (s *ONNXScorer) Name() string { return "onnx" }

// Score runs the model on the document text and derives polarity and
// intensity from class probabilities. Inference runs in a goroutine so
// the caller's context cancellation is honored; the ONNX call itself
// cannot be interrupted and finishes in the background.
func (s *ONNXScorer) Score(ctx context.Context, text string) (float64, float64, error) {
	type inference struct {
		probs [numClasses]float64
		err   error
	}
	done := make(chan inference, 1)

	go func() {
		probs, err := s.infer(text)
		done <- inference{probs: probs, err: err}
	}()

	select {
	case <-ctx.Done():
		return 0, 0, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return 0, 0, res.err
		}
		polarity := res.probs[classPositive] - res.probs[classNegative]
		intensity := 1 - res.probs[classNeutral]
		return polarity, intensity, nil
	}
}

func (s *ONNXScorer) infer(text string) ([numClasses]float64, error) {
	var probs [numClasses]float64

	inputIDs, attentionMask := s.tokenizer.Encode(text)
	shape := onnxruntime.NewShape(1, int64(s.maxSeqLen))

	idsTensor, err := onnxruntime.NewTensor(shape, inputIDs)
	if err != nil {
		return probs, errors.Wrap(err, "failed to create input_ids tensor")
	}
	defer idsTensor.Destroy()

	maskTensor, err := onnxruntime.NewTensor(shape, attentionMask)
	if err != nil {
		return probs, errors.Wrap(err, "failed to create attention_mask tensor")
	}
	defer maskTensor.Destroy()

	logits := make([]float32, numClasses)
	logitsTensor, err := onnxruntime.NewTensor(onnxruntime.NewShape(1, numClasses), logits)
	if err != nil {
		return probs, errors.Wrap(err, "failed to create logits tensor")
	}
	defer logitsTensor.Destroy()

	inputs := []onnxruntime.Value{idsTensor, maskTensor}
	outputs := []onnxruntime.Value{logitsTensor}
	if err := s.session.Run(inputs, outputs); err != nil {
		return probs, errors.Wrap(errors.ErrScorerUnavailable, err.Error())
	}

	return softmax(logits), nil
}

// Close releases the ONNX session.
func (s *ONNXScorer) Close() {
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
}

func softmax(logits []float32) [numClasses]float64 {
	var probs [numClasses]float64

	max := float64(logits[0])
	for _, l := range logits[1:] {
		if float64(l) > max {
			max = float64(l)
		}
	}

	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(float64(l) - max)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

package ted

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every configuration error New returns.
var ErrInvalidConfig = errors.New("invalid policy config")

const (
	LossSoftmax = "softmax"
	LossMargin  = "margin"

	SimilarityAuto   = "auto"
	SimilarityCosine = "cosine"
	SimilarityInner  = "inner"

	BatchSequence = "sequence"
	BatchBalanced = "balanced"
)

// Config is the hyperparameter set of the policy. YAML keys are the names
// used in policy configuration files.
type Config struct {
	// Hidden layer sizes before the dialogue and label embedding layers.
	HiddenLayersSizesDialogue []int `yaml:"hidden_layers_sizes_dialogue"`
	HiddenLayersSizesLabel    []int `yaml:"hidden_layers_sizes_label"`

	TransformerSize      int `yaml:"transformer_size"`
	NumTransformerLayers int `yaml:"number_of_transformer_layers"`
	MaxSequenceLength    int `yaml:"maximum_sequence_length"`
	NumAttentionHeads    int `yaml:"number_of_attention_heads"`

	// BatchSizes holds the initial and final batch size; the batch size grows
	// linearly over the epochs.
	BatchSizes    []int  `yaml:"batch_size"`
	BatchStrategy string `yaml:"batch_strategy"`
	Epochs        int    `yaml:"epochs"`
	RandomSeed    *int   `yaml:"random_seed"`

	EmbeddingDimension       int     `yaml:"embedding_dimension"`
	NumNegativeExamples      int     `yaml:"number_of_negative_examples"`
	SimilarityType           string  `yaml:"similarity_type"`
	LossType                 string  `yaml:"loss_type"`
	RankingLength            int     `yaml:"ranking_length"`
	MaxPositiveSimilarity    float64 `yaml:"maximum_positive_similarity"`
	MaxNegativeSimilarity    float64 `yaml:"maximum_negative_similarity"`
	UseMaxNegativeSimilarity bool    `yaml:"use_maximum_negative_similarity"`
	ScaleLoss                bool    `yaml:"scale_loss"`

	RegularizationConstant float64 `yaml:"regularization_constant"`
	NegativeMarginScale    float64 `yaml:"negative_margin_scale"`
	DropRateDialogue       float64 `yaml:"droprate_dialogue"`
	DropRateLabel          float64 `yaml:"droprate_label"`

	// EvaluateEveryNumberOfEpochs of -1 evaluates once, after the last epoch.
	EvaluateEveryNumberOfEpochs int `yaml:"evaluate_every_number_of_epochs"`
	EvaluateOnNumberOfExamples  int `yaml:"evaluate_on_number_of_examples"`
}

var defaults = Config{
	HiddenLayersSizesDialogue:   []int{},
	HiddenLayersSizesLabel:      []int{},
	TransformerSize:             128,
	NumTransformerLayers:        1,
	MaxSequenceLength:           256,
	NumAttentionHeads:           4,
	BatchSizes:                  []int{8, 32},
	BatchStrategy:               BatchBalanced,
	Epochs:                      1,
	EmbeddingDimension:          20,
	NumNegativeExamples:         20,
	SimilarityType:              SimilarityAuto,
	LossType:                    LossSoftmax,
	RankingLength:               10,
	MaxPositiveSimilarity:       0.8,
	MaxNegativeSimilarity:       -0.2,
	UseMaxNegativeSimilarity:    true,
	ScaleLoss:                   true,
	RegularizationConstant:      0.001,
	NegativeMarginScale:         0.8,
	DropRateDialogue:            0.1,
	DropRateLabel:               0.0,
	EvaluateEveryNumberOfEpochs: 20,
	EvaluateOnNumberOfExamples:  0,
}

// Defaults returns a copy of the default configuration. Callers may modify
// the result freely.
func Defaults() Config {
	return defaults.clone()
}

func (c Config) clone() Config {
	out := c
	out.HiddenLayersSizesDialogue = slices.Clone(c.HiddenLayersSizesDialogue)
	out.HiddenLayersSizesLabel = slices.Clone(c.HiddenLayersSizesLabel)
	out.BatchSizes = slices.Clone(c.BatchSizes)
	if c.RandomSeed != nil {
		seed := *c.RandomSeed
		out.RandomSeed = &seed
	}

	return out
}

// Merge returns a copy of c with the named overrides applied. Keys are the
// YAML names of the fields. Unknown keys and values of the wrong type are
// errors wrapping ErrInvalidConfig. The overrides map is not modified.
func (c Config) Merge(overrides map[string]any) (Config, error) {
	merged := c.clone()
	if len(overrides) == 0 {
		return merged, nil
	}

	data, err := yaml.Marshal(overrides)
	if err != nil {
		return Config{}, fmt.Errorf("ted: merge config: %w: %v", ErrInvalidConfig, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&merged); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("ted: merge config: %w: %v", ErrInvalidConfig, err)
	}

	return merged, nil
}

// Validate checks that every value is within its allowed range.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("ted: config: %w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	switch c.LossType {
	case LossSoftmax, LossMargin:
	default:
		return invalid("loss_type %q must be %q or %q", c.LossType, LossSoftmax, LossMargin)
	}

	switch c.SimilarityType {
	case SimilarityAuto, SimilarityCosine, SimilarityInner:
	default:
		return invalid("similarity_type %q must be %q, %q or %q",
			c.SimilarityType, SimilarityAuto, SimilarityCosine, SimilarityInner)
	}

	switch c.BatchStrategy {
	case BatchSequence, BatchBalanced:
	default:
		return invalid("batch_strategy %q must be %q or %q", c.BatchStrategy, BatchSequence, BatchBalanced)
	}

	if n := len(c.BatchSizes); n < 1 || n > 2 {
		return invalid("batch_size must hold one or two values, got %d", n)
	}
	for _, b := range c.BatchSizes {
		if b < 1 {
			return invalid("batch_size values must be positive, got %d", b)
		}
	}

	if c.Epochs < 1 {
		return invalid("epochs must be at least 1, got %d", c.Epochs)
	}
	if c.EmbeddingDimension < 1 {
		return invalid("embedding_dimension must be at least 1, got %d", c.EmbeddingDimension)
	}
	if c.RankingLength < 0 {
		return invalid("ranking_length must not be negative, got %d", c.RankingLength)
	}
	if c.NumNegativeExamples < 0 {
		return invalid("number_of_negative_examples must not be negative, got %d", c.NumNegativeExamples)
	}

	for name, rate := range map[string]float64{
		"droprate_dialogue": c.DropRateDialogue,
		"droprate_label":    c.DropRateLabel,
	} {
		if rate < 0 || rate >= 1 {
			return invalid("%s must be in [0, 1), got %g", name, rate)
		}
	}

	if c.EvaluateEveryNumberOfEpochs != -1 && c.EvaluateEveryNumberOfEpochs < 1 {
		return invalid("evaluate_every_number_of_epochs must be -1 or at least 1, got %d",
			c.EvaluateEveryNumberOfEpochs)
	}
	if c.EvaluateOnNumberOfExamples < 0 {
		return invalid("evaluate_on_number_of_examples must not be negative, got %d",
			c.EvaluateOnNumberOfExamples)
	}

	return nil
}

// resolve replaces the "auto" and "-1" placeholders with concrete values.
// It expects a validated config.
func (c Config) resolve() Config {
	out := c.clone()

	if out.SimilarityType == SimilarityAuto {
		switch out.LossType {
		case LossSoftmax:
			out.SimilarityType = SimilarityInner
		case LossMargin:
			out.SimilarityType = SimilarityCosine
		}
	}

	if out.EvaluateEveryNumberOfEpochs == -1 {
		out.EvaluateEveryNumberOfEpochs = out.Epochs
	}

	return out
}

// Map returns the configuration as a plain mapping keyed by YAML names.
func (c Config) Map() map[string]any {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil
	}

	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil
	}

	return m
}

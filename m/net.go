package m

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"mrs/convert"
	"mrs/utils"
)

// DefaultLayerSizes is the rating network: 19 features in, a 5-wide rating
// distribution out.
var DefaultLayerSizes = []int{19, 30, 15, 5}

// RateScaling selects how the learning rate is applied to each per-example
// weight update.
type RateScaling int

const (
	// ScaleByDatasetSize divides the learning rate by the size of the
	// training set on every update, as in a mini-batch derivation.
	ScaleByDatasetSize RateScaling = iota
	// ScalePerExample applies the learning rate unscaled (plain SGD).
	ScalePerExample
)

var (
	// ErrEmptyTrainingSet is returned when there are no examples to train on or score.
	ErrEmptyTrainingSet = errors.New("training set is empty")

	// ErrInvalidEpochs is returned by Train for a non-positive epoch count.
	ErrInvalidEpochs = errors.New("epochs must be > 0")

	// ErrInvalidLearningRate is returned by Train for a rate that is not a positive finite number.
	ErrInvalidLearningRate = errors.New("learning rate must be a positive number")
)

// InvalidExampleError reports a training example whose inputs or targets do
// not fit the network.
type InvalidExampleError struct {
	Index int
	Field string
	Got   int
	Want  int
}

func (e *InvalidExampleError) Error() string {
	return fmt.Sprintf("example %d: %s has length %d, network expects %d", e.Index, e.Field, e.Got, e.Want)
}

// Decoder turns vectors back into scalar ratings for error evaluation.
type Decoder interface {
	// Decode maps a target vector to a rating.
	Decode(target []float64) float64
	// DecodeCapped maps a raw network output to a bounded rating.
	DecodeCapped(output []float64) float64
}

// Config describes a Network. Zero fields take the defaults applied by NewNetwork.
type Config struct {
	LayerSizes []int
	// Activator is used by the hidden layers; the output layer is always
	// sigmoid.
	Activator   Activator
	Source      rand.Source
	Decoder     Decoder
	RateScaling RateScaling
	Logger      *slog.Logger
}

// layer holds one stage of the network. weights is nil for the input layer.
type layer struct {
	weights *mat.Dense
	beta    *mat.Dense
	alpha   *mat.Dense
	delta   *mat.Dense
}

func (l layer) clone() layer {
	return layer{
		weights: copyDense(l.weights),
		beta:    copyDense(l.beta),
		alpha:   copyDense(l.alpha),
		delta:   copyDense(l.delta),
	}
}

// bestModel is a deep copy of the network state with the lowest error seen
// in the current training run.
type bestModel struct {
	layers []layer
	rmse   float64
}

// EpochResult is the evaluation taken at the start of one epoch.
type EpochResult struct {
	Epoch    int
	RMSE     float64
	BestRMSE float64
}

// Report summarises a Train call.
type Report struct {
	Epochs   []EpochResult
	BestRMSE float64
	Timing   utils.TimingStats
}

// Network is a fixed-topology multilayer perceptron. It is not safe for
// concurrent use.
type Network struct {
	config  Config
	sizes   []int
	layers  []layer
	best    bestModel
	rng     *rand.Rand
	logger  *slog.Logger
	epoch   int
	trained bool
}

// NewNetwork builds a network whose weights are drawn independently from
// the standard normal distribution. It panics on a layer table with fewer
// than two layers or a non-positive width.
func NewNetwork(c Config) *Network {
	if c.LayerSizes == nil {
		c.LayerSizes = DefaultLayerSizes
	}
	if len(c.LayerSizes) < 2 {
		panic(fmt.Sprintf("m: need at least 2 layers, got %d", len(c.LayerSizes)))
	}
	for i, n := range c.LayerSizes {
		if n <= 0 {
			panic(fmt.Sprintf("m: layer %d has width %d", i+1, n))
		}
	}
	if c.Activator == nil {
		c.Activator = Sigmoid{}
	}
	if c.Source == nil {
		c.Source = rand.NewSource(uint64(time.Now().UnixNano()))
	}
	if c.Decoder == nil {
		c.Decoder = convert.Ratings
	}
	if c.Logger == nil {
		c.Logger = defaultLogger()
	}

	net := &Network{
		config: c,
		sizes:  append([]int(nil), c.LayerSizes...),
		layers: make([]layer, len(c.LayerSizes)),
		best:   bestModel{rmse: math.Inf(1)},
		rng:    rand.New(c.Source),
		logger: c.Logger,
	}
	for l := 1; l < len(net.layers); l++ {
		rows, cols := net.sizes[l-1], net.sizes[l]
		net.layers[l].weights = mat.NewDense(rows, cols, randomArray(rows*cols, c.Source))
	}

	return net
}

func defaultLogger() *slog.Logger {
	if !utils.Verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(utils.Output, nil))
}

// LayerSizes returns the width of every layer, input first.
func (net *Network) LayerSizes() []int {
	return append([]int(nil), net.sizes...)
}

// NumLayers is the number of layers, input included.
func (net *Network) NumLayers() int {
	return len(net.sizes)
}

// Trained reports whether Train has completed on this network.
func (net *Network) Trained() bool {
	return net.trained
}

// BestError is the lowest RMSE observed since the last Train call began.
func (net *Network) BestError() float64 {
	return net.best.rmse
}

// Weights returns copies of the weight matrices, one per layer transition.
func (net *Network) Weights() []*mat.Dense {
	out := make([]*mat.Dense, 0, len(net.layers)-1)
	for _, l := range net.layers[1:] {
		out = append(out, mat.DenseCopyOf(l.weights))
	}
	return out
}

// SetWeights replaces every weight matrix. Shapes must match the layer table.
func (net *Network) SetWeights(newWeights []mat.Matrix) error {
	if len(newWeights) != len(net.layers)-1 {
		return fmt.Errorf("got %d weight matrices, network has %d", len(newWeights), len(net.layers)-1)
	}
	for i, w := range newWeights {
		r, c := w.Dims()
		if r != net.sizes[i] || c != net.sizes[i+1] {
			return fmt.Errorf("weights %d: shape (%d, %d), want (%d, %d)", i, r, c, net.sizes[i], net.sizes[i+1])
		}
	}
	for i, w := range newWeights {
		net.layers[i+1].weights = mat.DenseCopyOf(w)
	}
	return nil
}

func (net *Network) lastIndex() int {
	return len(net.layers) - 1
}

func (net *Network) activatorFor(l int) Activator {
	if l == net.lastIndex() {
		return Sigmoid{}
	}
	return net.config.Activator
}

// FeedForward runs one input row through the network and returns the output
// layer's activations. The input layer is not activated. It panics if row
// does not have exactly LayerSizes()[0] entries.
func (net *Network) FeedForward(row []float64) []float64 {
	if len(row) != net.sizes[0] {
		panic(fmt.Sprintf("m: input has %d features, network expects %d", len(row), net.sizes[0]))
	}

	net.layers[0].alpha = rowVector(row)
	for l := 1; l < len(net.layers); l++ {
		prev, cur := &net.layers[l-1], &net.layers[l]
		_, c := prev.alpha.Dims()
		r, _ := cur.weights.Dims()
		if c != r {
			panic(fmt.Sprintf("m: layer %d has %d activations but layer %d weights have %d rows", l, c, l+1, r))
		}
		cur.beta = dot(prev.alpha, cur.weights)
		cur.alpha = apply(net.activatorFor(l).Activate, cur.beta)
	}
	net.checkShapes()

	return mat.Row(nil, 0, net.layers[net.lastIndex()].alpha)
}

// checkShapes panics if any forward buffer disagrees with the layer table.
func (net *Network) checkShapes() {
	for l, ly := range net.layers {
		want := net.sizes[l]
		if r, c := ly.alpha.Dims(); r != 1 || c != want {
			panic(fmt.Sprintf("m: layer %d activation is (%d, %d), want (1, %d)", l+1, r, c, want))
		}
		if l == 0 {
			continue
		}
		if r, c := ly.beta.Dims(); r != 1 || c != want {
			panic(fmt.Sprintf("m: layer %d pre-activation is (%d, %d), want (1, %d)", l+1, r, c, want))
		}
	}
}

// Predict returns the bounded rating the network assigns to row.
func (net *Network) Predict(row []float64) float64 {
	return net.config.Decoder.DecodeCapped(net.FeedForward(row))
}

// Evaluate returns the root-mean-square error between the decoded
// predictions and the decoded targets of examples. It never touches the best
// snapshot, so it is the one to use for held-out data.
func (net *Network) Evaluate(examples Lines) (float64, error) {
	if len(examples) == 0 {
		return 0, ErrEmptyTrainingSet
	}

	residuals := make([]float64, len(examples))
	for i, ex := range examples {
		predicted := net.config.Decoder.DecodeCapped(net.FeedForward(ex.Inputs))
		residuals[i] = predicted - net.config.Decoder.Decode(ex.Targets)
	}
	return rootMeanSquare(residuals), nil
}

// CalculateError is Evaluate on the training set. When the error is below
// the best seen so far the current network state becomes the best snapshot.
func (net *Network) CalculateError(examples Lines) (float64, error) {
	rmse, err := net.Evaluate(examples)
	if err != nil {
		return 0, err
	}

	if rmse < net.best.rmse {
		net.best = net.snapshot(rmse)
		net.logger.Info("new best error", "epoch", net.epoch, "rmse", rmse)
	}

	return rmse, nil
}

// Train runs stochastic gradient descent for the given number of epochs.
// Each epoch shuffles an internal copy of examples, evaluates the error on
// it and then updates the weights once per example. When it returns, the
// network holds the state with the lowest error seen during this call, not
// necessarily the last epoch's. The caller's slice is not reordered.
func (net *Network) Train(examples Lines, epochs int, learningRate float64) (Report, error) {
	if err := net.validate(examples, epochs, learningRate); err != nil {
		return Report{}, err
	}

	start := time.Now()
	report := Report{Epochs: make([]EpochResult, 0, epochs)}
	net.best = bestModel{rmse: math.Inf(1)}

	rate := learningRate
	if net.config.RateScaling == ScaleByDatasetSize {
		rate /= float64(len(examples))
	}

	shuffled := make(Lines, len(examples))
	copy(shuffled, examples)

	for epoch := 1; epoch <= epochs; epoch++ {
		net.epoch = epoch

		t := time.Now()
		Shuffle(shuffled, net.rng)
		report.Timing.ShuffleTime += time.Since(t)

		t = time.Now()
		rmse, err := net.CalculateError(shuffled)
		if err != nil {
			return report, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		report.Timing.ErrorEvalTime += time.Since(t)

		for _, ex := range shuffled {
			net.trainOneSGD(ex, rate, &report.Timing)
		}

		report.Epochs = append(report.Epochs, EpochResult{
			Epoch:    epoch,
			RMSE:     rmse,
			BestRMSE: net.best.rmse,
		})
		net.logger.Debug("epoch complete", "epoch", epoch, "epochs", epochs, "rmse", rmse, "best_rmse", net.best.rmse)
	}

	net.restore(net.best)
	net.epoch = 0
	net.trained = true

	report.BestRMSE = net.best.rmse
	report.Timing.TotalTime = time.Since(start)
	return report, nil
}

func (net *Network) validate(examples Lines, epochs int, learningRate float64) error {
	if epochs <= 0 {
		return fmt.Errorf("%w (got %d)", ErrInvalidEpochs, epochs)
	}
	if learningRate <= 0 || math.IsInf(learningRate, 0) || math.IsNaN(learningRate) {
		return fmt.Errorf("%w (got %v)", ErrInvalidLearningRate, learningRate)
	}
	if len(examples) == 0 {
		return ErrEmptyTrainingSet
	}

	in, out := net.sizes[0], net.sizes[net.lastIndex()]
	for i, ex := range examples {
		if len(ex.Inputs) != in {
			return &InvalidExampleError{Index: i, Field: "inputs", Got: len(ex.Inputs), Want: in}
		}
		if len(ex.Targets) != out {
			return &InvalidExampleError{Index: i, Field: "targets", Got: len(ex.Targets), Want: out}
		}
	}
	return nil
}

func (net *Network) trainOneSGD(ex Line, rate float64, timing *utils.TimingStats) {
	t := time.Now()
	net.FeedForward(ex.Inputs)
	timing.ForwardPassTime += time.Since(t)

	t = time.Now()
	net.backpropagate(ex.Targets)
	timing.BackwardPassTime += time.Since(t)

	t = time.Now()
	net.updateWeights(rate)
	timing.UpdateTime += time.Since(t)
}

// backpropagate fills every layer's delta from the last forward pass.
func (net *Network) backpropagate(targets []float64) {
	last := net.lastIndex()
	out := &net.layers[last]

	r, c := out.alpha.Dims()
	target := mat.NewDense(r, c, append([]float64(nil), targets...))
	out.delta = multiply(subtract(out.alpha, target), Sigmoid{}.Deactivate(out.beta))

	for l := last - 1; l >= 1; l-- {
		cur, next := &net.layers[l], &net.layers[l+1]
		propagated := dot(next.weights, next.delta.T())
		cur.delta = transpose(multiply(propagated, net.activatorFor(l).Deactivate(cur.beta.T())))
	}
}

func (net *Network) updateWeights(rate float64) {
	for l := net.lastIndex(); l >= 1; l-- {
		cur := &net.layers[l]
		gradient := dot(net.layers[l-1].alpha.T(), cur.delta)
		cur.weights = subtract(cur.weights, scale(rate, gradient))
	}
}

func (net *Network) snapshot(rmse float64) bestModel {
	layers := make([]layer, len(net.layers))
	for i, l := range net.layers {
		layers[i] = l.clone()
	}
	return bestModel{layers: layers, rmse: rmse}
}

// restore copies b into the live layers. A model with no layers is ignored.
func (net *Network) restore(b bestModel) {
	if b.layers == nil {
		return
	}
	for i, l := range b.layers {
		net.layers[i] = l.clone()
	}
}

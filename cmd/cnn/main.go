package main

import (
	"flag"
	"log/slog"
	"math/rand"
	"os"

	"github.com/FlavioCFOliveira/GoCNN/gocnn"
	"gonum.org/v1/gonum/stat"
)

// Trains the MNIST-style pipeline on synthetic 12x12 images of horizontal and
// vertical bars.
func main() {
	epochs := flag.Int("epochs", 10, "training epochs")
	samples := flag.Int("samples", 200, "synthetic images per epoch")
	batch := flag.Int("batch", 1, "examples per optimizer step")
	lr := flag.Float64("lr", 0.01, "AdaGrad learning rate")
	l2 := flag.Float64("l2", 0.001, "L2 weight decay")
	lrStep := flag.Int("lr-step", 5, "epochs between learning rate decays")
	lrGamma := flag.Float64("lr-gamma", 0.5, "learning rate decay factor")
	seed := flag.Int64("seed", 42, "random seed")
	save := flag.String("save", "", "write the trained model to this file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	gocnn.SetLogger(logger)

	defs := []gocnn.Def{
		gocnn.Input(12, 12, 1),
		gocnn.Conv(3, 4, 1, 1),
		gocnn.DefaultLRN(),
		gocnn.Pool(2, 2, 0),
		gocnn.Conv(3, 8, 1, 1),
		gocnn.DefaultLRN(),
		gocnn.Pool(2, 2, 0),
		gocnn.FullyConnected(2),
		gocnn.SoftMax(2),
	}

	network, err := gocnn.NewNetwork(defs, gocnn.WithSeed(*seed))
	if err != nil {
		logger.Error("build network", "err", err)
		os.Exit(1)
	}
	if err := network.Summary(os.Stdout); err != nil {
		logger.Error("summary", "err", err)
	}

	optimizer := gocnn.AdaGrad(*lr, gocnn.Decay{L2: *l2})
	scheduler := gocnn.StepLR(optimizer, *lrStep, *lrGamma)
	trainer := gocnn.NewTrainer(network, optimizer, *batch)
	rng := rand.New(rand.NewSource(*seed + 1))

	for epoch := 0; epoch < *epochs; epoch++ {
		losses := make([]float64, *samples)
		hits := make([]float64, *samples)
		for i := range losses {
			img, label := bars(rng)
			res := trainer.Train(img, label)
			losses[i] = res.Loss
			if network.Prediction() == label {
				hits[i] = 1
			}
		}
		loss := stat.Mean(losses, nil)
		logger.Info("epoch",
			"epoch", epoch,
			"loss", loss,
			"accuracy", stat.Mean(hits, nil),
			"lr", scheduler.LearningRate(),
		)
		scheduler.Step(loss)
	}

	if *save != "" {
		if err := network.Save(*save); err != nil {
			logger.Error("save model", "path", *save, "err", err)
			os.Exit(1)
		}
		logger.Info("model saved", "path", *save)
	}
}

// bars draws one horizontal (label 0) or vertical (label 1) bar at a random
// row or column over low-amplitude noise.
func bars(rng *rand.Rand) (*gocnn.Tensor, int) {
	img := gocnn.NewTensor(12, 12, 1, 0)
	for i := range img.Values {
		img.Values[i] = rng.Float64() * 0.1
	}

	label := rng.Intn(2)
	pos := rng.Intn(12)
	for i := 0; i < 12; i++ {
		if label == 0 {
			img.Set(i, pos, 0, 1)
		} else {
			img.Set(pos, i, 0, 1)
		}
	}
	return img, label
}

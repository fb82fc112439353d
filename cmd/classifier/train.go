package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/synaptica-ai/classifier/pkg/common/config"
	"github.com/synaptica-ai/classifier/pkg/common/logger"
	"github.com/synaptica-ai/classifier/pkg/ml/linear"
)

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "train a model",
		Long:  "train a logistic-regression model from a binary training data file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return train(cmd)
		},
	}
	attachFlags(cmd, []string{"data", "dim", "out", "init", "profile", "learning-rate", "epochs", "regularization", "strength"})
	return cmd
}

func train(cmd *cobra.Command) error {
	if dataFlag == "" {
		return fmt.Errorf("--data is required")
	}
	if dimFlag < 0 {
		return fmt.Errorf("--dim must not be negative, got %d", dimFlag)
	}

	opts, err := trainOptions(cmd)
	if err != nil {
		return err
	}

	data, err := readTrainingFile(dataFlag, dimFlag)
	if err != nil {
		return err
	}

	model := linear.NewModel(dimFlag)
	if initFlag != "" {
		if model, err = readModelFile(initFlag); err != nil {
			return err
		}
		if model.Dim() != dimFlag {
			return fmt.Errorf("initial model has dimension %d, data has %d: %w", model.Dim(), dimFlag, linear.ErrDimensionMismatch)
		}
	}

	log := logger.Component("cli").WithField("samples", len(data))
	log.WithField("epochs", opts.Epochs).Info("Training started")

	if err := linear.NewTrainer(model).Train(data, opts); err != nil {
		return err
	}
	metrics, err := linear.Evaluate(model, data)
	if err != nil {
		return err
	}
	if err := writeModelFile(outFlag, model); err != nil {
		return err
	}

	log.WithField("loss", metrics.Loss).WithField("accuracy", metrics.Accuracy).Info("Training completed")
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: loss=%.6f accuracy=%.4f\n", outFlag, metrics.Loss, metrics.Accuracy)
	return nil
}

// trainOptions starts from the profile and applies any flags set explicitly.
func trainOptions(cmd *cobra.Command) (linear.Options, error) {
	profile, err := config.LoadTrainingProfile(profileFlag)
	if err != nil {
		return linear.Options{}, err
	}
	opts, err := profile.Options()
	if err != nil {
		return linear.Options{}, err
	}

	set := cmd.Flags().Changed
	if set("learning-rate") {
		opts.LearningRate = learningRateFlag
	}
	if set("epochs") {
		opts.Epochs = epochsFlag
	}
	if set("regularization") {
		if opts.Regularization, err = linear.ParseRegularization(regularizationFlag); err != nil {
			return linear.Options{}, err
		}
	}
	if set("strength") {
		opts.Strength = strengthFlag
	}
	return opts, nil
}

func readTrainingFile(path string, dim int) (linear.TrainingSet, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return linear.ReadTrainingSet(bufio.NewReader(f), dim)
}

func readModelFile(path string) (*linear.Model, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return linear.ReadModel(bufio.NewReader(f))
}

func writeModelFile(path string, model *linear.Model) error {
	blob, err := model.MarshalBinary()
	if err != nil {
		return err
	}
	return os.WriteFile(path, blob, 0o644)
}

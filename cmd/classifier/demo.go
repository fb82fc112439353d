package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/synaptica-ai/classifier/pkg/ml/linear"
)

func demoSet() linear.TrainingSet {
	return linear.TrainingSet{
		{Features: []float32{1.0, 1.0}, Label: 1},
		{Features: []float32{1.2, 0.8}, Label: 1},
		{Features: []float32{0.8, 1.2}, Label: 1},
		{Features: []float32{1.5, 1.3}, Label: 1},
		{Features: []float32{0.9, 1.1}, Label: 1},
		{Features: []float32{-1.0, -1.0}, Label: 0},
		{Features: []float32{-1.2, -0.8}, Label: 0},
		{Features: []float32{-0.8, -1.2}, Label: 0},
		{Features: []float32{-1.5, -1.3}, Label: 0},
		{Features: []float32{-0.9, -1.1}, Label: 0},
	}
}

var demoQueries = [][]float32{
	{0.5, 0.5},
	{1.5, 1.0},
	{-0.5, -0.5},
	{-1.5, -1.0},
	{0, 0},
}

func demoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "train on two toy clusters and classify a few points",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return demo(cmd)
		},
	}
	attachFlags(cmd, []string{"export"})
	return cmd
}

func demo(cmd *cobra.Command) error {
	model := linear.NewModel(2)
	opts := linear.Options{LearningRate: 0.5, Epochs: 200}
	if err := linear.NewTrainer(model).Train(demoSet(), opts); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printModel(cmd, model)
	for _, q := range demoQueries {
		result, err := model.Classify(q)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "(%g, %g) -> %s %.4f\n", q[0], q[1], result.Label, result.Confidence)
	}

	if exportFlag != "" {
		if err := writeModelFile(exportFlag, model); err != nil {
			return err
		}
		fmt.Fprintf(out, "exported %s\n", exportFlag)
	}
	return nil
}

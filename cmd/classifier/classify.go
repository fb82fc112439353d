package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/synaptica-ai/classifier/pkg/ml/linear"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [features...]",
		Short: "classify one feature vector",
		Long:  "classify one feature vector; put -- before the features when any are negative",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if modelFlag == "" {
				return fmt.Errorf("--model is required")
			}
			features, err := parseFeatures(args)
			if err != nil {
				return err
			}
			model, err := readModelFile(modelFlag)
			if err != nil {
				return err
			}
			result, err := model.Classify(features)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %.6f\n", result.Label, result.Confidence)
			return nil
		},
	}
	attachFlags(cmd, []string{"model"})
	return cmd
}

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "print a model's parameters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if modelFlag == "" {
				return fmt.Errorf("--model is required")
			}
			model, err := readModelFile(modelFlag)
			if err != nil {
				return err
			}
			printModel(cmd, model)
			return nil
		},
	}
	attachFlags(cmd, []string{"model"})
	return cmd
}

func printModel(cmd *cobra.Command, model *linear.Model) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "dimension: %d\n", model.Dim())
	for i, w := range model.Weights() {
		fmt.Fprintf(out, "w[%d]: %.6f\n", i, w)
	}
	fmt.Fprintf(out, "bias: %.6f\n", model.Bias())
}

func parseFeatures(args []string) ([]float32, error) {
	features := make([]float32, len(args))
	for i, arg := range args {
		v, err := strconv.ParseFloat(arg, 32)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		features[i] = float32(v)
	}
	return features, nil
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/synaptica-ai/classifier/pkg/common/logger"
)

var flags *pflag.FlagSet

var (
	dataFlag           string
	dimFlag            int
	modelFlag          string
	outFlag            string
	initFlag           string
	profileFlag        string
	learningRateFlag   float32
	epochsFlag         int
	regularizationFlag string
	strengthFlag       float32
	exportFlag         string
)

func init() {
	resetFlags()
}

// resetFlags rebuilds the shared flag set so tests can run commands repeatedly.
func resetFlags() {
	flags = &pflag.FlagSet{}

	flags.StringVarP(&dataFlag, "data", "d", "", "binary training data file")
	flags.IntVar(&dimFlag, "dim", 0, "feature dimension of the training data")
	flags.StringVarP(&modelFlag, "model", "m", "", "model artifact path")
	flags.StringVarP(&outFlag, "out", "o", "model.bin", "where to write the trained model")
	flags.StringVar(&initFlag, "init", "", "warm-start from an existing model artifact")
	flags.StringVarP(&profileFlag, "profile", "p", "", "YAML training profile")
	flags.Float32Var(&learningRateFlag, "learning-rate", 0.1, "gradient descent step size")
	flags.IntVar(&epochsFlag, "epochs", 100, "number of full passes over the data")
	flags.StringVar(&regularizationFlag, "regularization", "none", "none, l1 or l2")
	flags.Float32Var(&strengthFlag, "strength", 0, "regularization strength")
	flags.StringVar(&exportFlag, "export", "", "write the demo model to this path")
}

func attachFlags(cmd *cobra.Command, names []string) {
	cmdFlags := cmd.Flags()
	for _, name := range names {
		if flag := flags.Lookup(name); flag != nil {
			cmdFlags.AddFlag(flag)
		} else {
			panic(fmt.Errorf("could not find flag '%s' to attach to command '%s'", name, cmd.Name()))
		}
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "classifier",
		Short:         "Train and run binary logistic-regression models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(trainCmd(), classifyCmd(), inspectCmd(), demoCmd())
	return root
}

func main() {
	logger.Configure(os.Stderr, os.Getenv("LOG_LEVEL"), "text")

	if err := newRootCmd().Execute(); err != nil {
		logger.Log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/danpilch/foldjson/pkg/baseline"
	"github.com/danpilch/foldjson/pkg/flamegraph"
)

func readTree(path string, opts flamegraph.ReadOptions) (*flamegraph.Tree, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open input")
	}
	defer file.Close()

	stacks, _, err := flamegraph.ReadStacks(file, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	flamegraph.SortStacks(stacks)
	return flamegraph.BuildStacks(stacks), nil
}

func (a *app) baselineCommand() *cobra.Command {
	var dir string
	read := flamegraph.DefaultReadOptions()

	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Save profiles as baselines and compare new profiles against them",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", baseline.DefaultDir(), "Baseline directory")

	save := &cobra.Command{
		Use:   "save NAME FILE",
		Short: "Save the frame distribution of FILE as baseline NAME",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := readTree(args[1], read)
			if err != nil {
				return err
			}
			b := baseline.New(args[0], tree)
			b.Source = args[1]
			if err := b.Save(dir); err != nil {
				return err
			}
			a.logger.WithFields(logrus.Fields{
				"name":    b.Name,
				"samples": b.Total,
				"frames":  len(b.Frames),
			}).Info("Baseline saved")
			return nil
		},
	}
	save.Flags().IntVar(&read.SampleIndex, "sample-index", read.SampleIndex, "pprof sample value index, negative for the last one")

	var minShare float64
	var failOnRegression bool
	compare := &cobra.Command{
		Use:   "compare NAME FILE",
		Short: "Compare the frame distribution of FILE against baseline NAME",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := baseline.Load(args[0], dir)
			if err != nil {
				return err
			}
			tree, err := readTree(args[1], read)
			if err != nil {
				return err
			}
			comparisons := baseline.Compare(b, tree, minShare)
			baseline.RenderComparison(a.stdout, b, comparisons)
			if failOnRegression && baseline.Regressions(comparisons) > 0 {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	compare.Flags().Float64Var(&minShare, "min-share", 1, "Skip frames below this self share (percent) in both profiles")
	compare.Flags().BoolVar(&failOnRegression, "fail-on-regression", false, "Exit 1 when a frame regressed")
	compare.Flags().IntVar(&read.SampleIndex, "sample-index", read.SampleIndex, "pprof sample value index, negative for the last one")

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved baselines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := baseline.List(dir)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(a.stdout, name)
			}
			return nil
		},
	}

	cmd.AddCommand(save, compare, list)
	return cmd
}

package main

import (
	"fmt"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/henderiw/temporal/pkg/state"
	"github.com/henderiw/temporal/pkg/tempo"
	"github.com/henderiw/temporal/pkg/tempomap"
	"github.com/henderiw/temporal/pkg/timerange"
	"github.com/spf13/cobra"
)

type options struct {
	mapFile    string
	sampleRate int64
	verbosity  int
	yaml       bool
	normalized bool
}

func newRootCmd() *cobra.Command {
	o := &options{}

	cmd := &cobra.Command{
		Use:           "tempomap",
		Short:         "Convert between samples and musical time",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&o.mapFile, "map", "", "tempo map YAML file, the default map is used when empty")
	cmd.PersistentFlags().Int64Var(&o.sampleRate, "sample-rate", 48000, "sample rate of the default map")
	cmd.PersistentFlags().IntVarP(&o.verbosity, "verbose", "v", 0, "log verbosity")

	dump := &cobra.Command{
		Use:   "dump",
		Short: "Print the sections of the map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tm, err := o.load(cmd)
			if err != nil {
				return err
			}
			if o.yaml {
				return state.Save(cmd.OutOrStdout(), tm)
			}
			return tm.Dump(cmd.OutOrStdout())
		},
	}
	dump.Flags().BoolVar(&o.yaml, "yaml", false, "print the map as YAML")

	subtract := &cobra.Command{
		Use:   "subtract RANGE RANGE...",
		Short: "Subtract ranges (start-end) from the first range",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rr := make([]timerange.Range[int64], 0, len(args))
			for _, arg := range args {
				r, err := timerange.ParseRange[int64](arg)
				if err != nil {
					return err
				}
				rr = append(rr, r)
			}
			if o.normalized {
				var b timerange.SetBuilder[int64]
				b.AddRange(rr[0])
				for _, r := range rr[1:] {
					b.RemoveRange(r)
				}
				set, err := b.Set()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s length %d\n", set, set.Length())
				return nil
			}
			left := rr[0].Subtract(timerange.NewRangeList(rr[1:]...))
			fmt.Fprintln(cmd.OutOrStdout(), left)
			return nil
		},
	}
	subtract.Flags().BoolVar(&o.normalized, "normalized", false, "print the result as a normalized set with its length")

	cmd.AddCommand(
		dump,
		&cobra.Command{
			Use:   "at-sample SAMPLE",
			Short: "Print the musical position of a sample",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid sample %q: %w", args[0], err)
				}
				tm, err := o.load(cmd)
				if err != nil {
					return err
				}
				return printSample(cmd, tm, s)
			},
		},
		&cobra.Command{
			Use:   "at-quarter QUARTERS",
			Short: "Print the position of a number of quarter notes",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				qn, err := strconv.ParseFloat(args[0], 64)
				if err != nil {
					return fmt.Errorf("invalid quarter notes %q: %w", args[0], err)
				}
				tm, err := o.load(cmd)
				if err != nil {
					return err
				}
				s, err := tm.SampleAtQuarterNote(qn)
				if err != nil {
					return err
				}
				return printSample(cmd, tm, s)
			},
		},
		&cobra.Command{
			Use:   "at-bbt BARS|BEATS|TICKS",
			Short: "Print the position of a bars|beats|ticks time",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				bbt, err := tempo.ParseBBT(args[0])
				if err != nil {
					return err
				}
				tm, err := o.load(cmd)
				if err != nil {
					return err
				}
				s, err := tm.SampleAtBBT(bbt)
				if err != nil {
					return err
				}
				return printSample(cmd, tm, s)
			},
		},
		&cobra.Command{
			Use:   "grid LOWER UPPER",
			Short: "Print the beats between two samples",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				r, err := timerange.ParseRange[int64](args[0] + "-" + args[1])
				if err != nil {
					return err
				}
				tm, err := o.load(cmd)
				if err != nil {
					return err
				}
				points, err := tm.Grid(r.Start(), r.End())
				if err != nil {
					return err
				}
				for _, p := range points {
					fmt.Fprintf(cmd.OutOrStdout(), "%d %s %s %s\n", p.Sample, p.BBT, p.Tempo, p.Meter)
				}
				return nil
			},
		},
		subtract,
	)
	return cmd
}

func (o *options) logger(cmd *cobra.Command) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), prefix, args)
			return
		}
		fmt.Fprintln(cmd.ErrOrStderr(), args)
	}, funcr.Options{Verbosity: o.verbosity})
}

func (o *options) load(cmd *cobra.Command) (*tempomap.TempoMap, error) {
	log := o.logger(cmd)
	if o.mapFile == "" {
		return tempomap.New(o.sampleRate, tempomap.WithLogger(log))
	}
	log.V(1).Info("loading tempo map", "file", o.mapFile)
	return state.LoadFile(o.mapFile, tempomap.WithLogger(log))
}

func printSample(cmd *cobra.Command, tm *tempomap.TempoMap, s int64) error {
	minute, err := tm.MinuteAtSample(s)
	if err != nil {
		return err
	}
	qn, err := tm.QuartersAtSample(s)
	if err != nil {
		return err
	}
	bbt, err := tm.BBTAtSample(s)
	if err != nil {
		return err
	}
	t, err := tm.TempoAtSample(s)
	if err != nil {
		return err
	}
	m, err := tm.MeterAtSample(s)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sample %d minute %g quarters %g bbt %s tempo %s meter %s\n", s, minute, qn, bbt, t, m)
	return nil
}

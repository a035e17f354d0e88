package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/cfnc/dataset"
	"github.com/robert-malhotra/cfnc/internal/recipe"
	"github.com/robert-malhotra/cfnc/netcdf"
)

var errCheckFailed = errors.New("check failed")

func (a *app) buildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build recipe",
		Short: "Build a netCDF-4 file from a recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, res, r, err := a.load(args[0])
			if err != nil {
				return err
			}
			out := a.cfg.GetString("output")
			if out == "" {
				out = r.OutputPath()
			}
			if out == "" {
				return fmt.Errorf("%s names no output; pass --output", args[0])
			}
			opts := []netcdf.Option{netcdf.WithLogger(a.log)}
			if a.cfg.GetBool("strict") {
				opts = append(opts, netcdf.WithStrictConventions())
			}
			return netcdf.Write(ds, res, out, opts...)
		},
	}
	cmd.Flags().StringP("output", "o", "", "output file, overriding the recipe")
	cmd.Flags().Bool("strict", false, "treat CF convention warnings as errors")
	cmd.Flags().String("generator", "cfnc", "tool name recorded in the history attribute")
	return cmd
}

func (a *app) checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check recipe",
		Short: "Build a recipe in memory and report every problem without writing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, res, _, err := a.load(args[0])
			if err != nil {
				return err
			}
			return a.check(cmd.OutOrStdout(), args[0], ds, res)
		},
	}
	cmd.Flags().Bool("strict", false, "treat CF convention warnings as errors")
	return cmd
}

func (a *app) load(path string) (*dataset.Dataset, *netcdf.Resolver, *recipe.Recipe, error) {
	r, err := recipe.Load(path)
	if err != nil {
		return nil, nil, nil, err
	}
	generator := a.cfg.GetString("generator")
	if generator == "" {
		generator = "cfnc"
	}
	ds, res, err := r.Build(a.log, dataset.WithGenerator(generator))
	if err != nil {
		return nil, nil, nil, err
	}
	return ds, res, r, nil
}

// check prints convention warnings and encoding problems. It fails when
// the dataset cannot be encoded, or on warnings in strict mode.
func (a *app) check(w io.Writer, name string, ds *dataset.Dataset, res *netcdf.Resolver) error {
	strict := a.cfg.GetBool("strict")
	warnings := ds.CheckConventions()
	for _, p := range warnings {
		fmt.Fprintf(w, "warning: %v\n", p)
	}

	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	data, err := netcdf.Marshal(ds, res, netcdf.WithLogger(quiet))
	if err != nil {
		var verr *dataset.ValidationError
		if errors.As(err, &verr) {
			for _, p := range verr.Problems {
				fmt.Fprintf(w, "error: %v\n", p)
			}
		} else {
			fmt.Fprintf(w, "error: %v\n", err)
		}
		return fmt.Errorf("%s: %w", name, errCheckFailed)
	}
	if strict && len(warnings) > 0 {
		return fmt.Errorf("%s: %d convention warning(s): %w", name, len(warnings), errCheckFailed)
	}
	fmt.Fprintf(w, "%s: ok, %d dimension(s), %d variable(s), %d bytes\n",
		name, len(ds.Dimensions()), len(ds.Variables()), len(data))
	return nil
}

package main

import (
	"fmt"
	"io"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/cfnc/dataset"
	"github.com/robert-malhotra/cfnc/netcdf"
)

func (a *app) inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect file.nc",
		Short: "Print the header of a netCDF-4 file in CDL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := netcdf.Open(args[0])
			if err != nil {
				return err
			}
			name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			return writeCDL(cmd.OutOrStdout(), name, f, a.cfg.GetBool("values"))
		},
	}
	cmd.Flags().Bool("values", false, "also print variable values")
	return cmd
}

// writeCDL prints f the way ncdump prints a header.
func writeCDL(w io.Writer, name string, f *netcdf.File, values bool) error {
	var b strings.Builder
	fmt.Fprintf(&b, "netcdf %s {\n", name)

	fmt.Fprintln(&b, "dimensions:")
	for _, d := range f.Dimensions() {
		fmt.Fprintf(&b, "\t%s = %d ;\n", d.Name, d.Len)
	}

	fmt.Fprintln(&b, "variables:")
	for _, v := range f.Variables() {
		fmt.Fprintf(&b, "\t%s %s", v.Kind.CDL(), v.Name)
		if len(v.Dims) > 0 {
			fmt.Fprintf(&b, "(%s)", strings.Join(v.Dims, ", "))
		}
		fmt.Fprintln(&b, " ;")
		if v.Fill != nil {
			fmt.Fprintf(&b, "\t\t%s:%s = %s ;\n", v.Name, netcdf.AttrFillValue, formatValue(v.Fill))
		}
		for _, attr := range v.Attrs.All() {
			fmt.Fprintf(&b, "\t\t%s:%s = %s ;\n", v.Name, attr.Key, formatValue(attr.Value))
		}
		if v.Compressed {
			fmt.Fprintf(&b, "\t\t%s:_DeflateLevel = %d ;\n", v.Name, v.Level)
			if v.Shuffle {
				fmt.Fprintf(&b, "\t\t%s:_Shuffle = \"true\" ;\n", v.Name)
			}
		}
	}

	if f.Attrs().Len() > 0 {
		fmt.Fprintln(&b, "\n// global attributes:")
		for _, attr := range f.Attrs().All() {
			fmt.Fprintf(&b, "\t\t:%s = %s ;\n", attr.Key, formatValue(attr.Value))
		}
	}

	if values {
		fmt.Fprintln(&b, "data:")
		for _, v := range f.Variables() {
			fmt.Fprintf(&b, "\n %s = %s ;\n", v.Name, formatArray(v.Values))
		}
	}
	fmt.Fprintln(&b, "}")

	_, err := io.WriteString(w, b.String())
	return err
}

// formatValue renders an attribute value in CDL, with the type suffixes
// ncdump uses.
func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32) + "f"
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int8:
		return strconv.FormatInt(int64(x), 10) + "b"
	case int16:
		return strconv.FormatInt(int64(x), 10) + "s"
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10) + "LL"
	case uint8:
		return strconv.FormatUint(uint64(x), 10) + "UB"
	case uint16:
		return strconv.FormatUint(uint64(x), 10) + "US"
	case uint32:
		return strconv.FormatUint(uint64(x), 10) + "U"
	case uint64:
		return strconv.FormatUint(x, 10) + "ULL"
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return fmt.Sprint(v)
	}
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = formatValue(rv.Index(i).Interface())
	}
	return strings.Join(parts, ", ")
}

// formatArray lists the cells of a, with "_" for missing cells.
func formatArray(a *dataset.Array) string {
	parts := make([]string, a.Len())
	for i := range parts {
		switch {
		case a.IsMissing(i):
			parts[i] = "_"
		case a.Kind() == dataset.Float32:
			parts[i] = strconv.FormatFloat(a.Float(i), 'g', -1, 32)
		case a.Kind().IsFloat():
			parts[i] = strconv.FormatFloat(a.Float(i), 'g', -1, 64)
		case a.Kind().IsUnsigned():
			u, _ := a.Uint(i)
			parts[i] = strconv.FormatUint(u, 10)
		default:
			x, _ := a.Int(i)
			parts[i] = strconv.FormatInt(x, 10)
		}
	}
	return strings.Join(parts, ", ")
}

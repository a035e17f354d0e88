package dataset

import (
	"fmt"
	"regexp"
	"strings"
)

// Axes whose direction must be declared with the positive attribute.
var verticalAxes = map[string]bool{
	"depth":        true,
	"altitude":     true,
	"height":       true,
	"air_pressure": true,
}

var timeUnitsPattern = regexp.MustCompile(
	`^\s*(seconds?|minutes?|hours?|days?|secs?|mins?|hrs?|s|h|d)\s+since\s+\d{4}-\d{1,2}-\d{1,2}([ T]\d{1,2}:\d{2}(:\d{2}(\.\d+)?)?)?\s*(Z|UTC|[+-]\d{1,2}(:?\d{2})?)?\s*$`)

// CheckConventions reports CF metadata problems on coordinate variables.
// Each problem wraps ErrConvention. The result is nil when none are found.
func (d *Dataset) CheckConventions() []error {
	var problems []error
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format+": %w", append(args, ErrConvention)...))
	}

	for _, c := range d.coords {
		attrs := c.attrs
		std, _ := attrs.String("standard_name")
		if !attrs.Has("standard_name") && !attrs.Has("long_name") {
			report("coordinate %q declares neither standard_name nor long_name", c.name)
		}
		units, hasUnits := attrs.String("units")
		if !attrs.Has("units") {
			report("coordinate %q declares no units (use \"1\" for dimensionless)", c.name)
		}

		axis := strings.ToLower(std)
		if axis == "" {
			axis = strings.ToLower(c.name)
		}
		if verticalAxes[axis] {
			switch p, _ := attrs.String("positive"); strings.ToLower(p) {
			case "up", "down":
			case "":
				report("vertical coordinate %q declares no positive direction", c.name)
			default:
				report("coordinate %q: positive must be \"up\" or \"down\", got %q", c.name, p)
			}
		}
		if axis == "time" && hasUnits && !timeUnitsPattern.MatchString(units) {
			report("time coordinate %q: units %q are not of the form \"<unit> since <instant>\"", c.name, units)
		}
	}
	return problems
}

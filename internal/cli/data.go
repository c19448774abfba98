package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/groundwater-client/internal/domain"
	"github.com/couchcryptid/groundwater-client/internal/groundwater"
)

func runForecast(ctx context.Context, a *app, args []string) error {
	verb, rest, err := subcommand("forecast", args, "history", "generate")
	if err != nil {
		return err
	}

	switch verb {
	case "history":
		fs := a.flags("forecast history")
		limit := fs.Int("limit", 10, "maximum number of forecasts")
		if err := parse(fs, rest); err != nil {
			return err
		}
		history, err := a.svc.ForecastHistory(ctx, *limit)
		if err != nil {
			return err
		}
		return a.print(history)

	default:
		fs := a.flags("forecast generate")
		var req domain.ForecastRequest
		fs.StringVar(&req.State, "state", "", "state name")
		fs.StringVar(&req.District, "district", "", "district name")
		fs.IntVar(&req.ForecastHorizon, "horizon", 1, "months ahead")
		fs.Float64Var(&req.RainfallValue, "rainfall", 0, "rainfall in mm")
		fs.Float64Var(&req.LagGW, "lag-gw", 0, "previous groundwater level in m bgl")
		if err := parse(fs, rest); err != nil {
			return err
		}
		if err := required(fs, "state", "district"); err != nil {
			return err
		}
		forecast, err := a.svc.GenerateForecast(ctx, req)
		if err != nil {
			return err
		}
		return a.print(forecast)
	}
}

func runStates(ctx context.Context, a *app, args []string) error {
	if err := parse(a.flags("states"), args); err != nil {
		return err
	}
	states, err := a.svc.States(ctx)
	if err != nil {
		return err
	}
	return a.print(domain.StateList{States: states})
}

func runDistricts(ctx context.Context, a *app, args []string) error {
	fs := a.flags("districts")
	state := fs.String("state", "", "state name")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "state"); err != nil {
		return err
	}
	districts, err := a.svc.Districts(ctx, *state)
	if err != nil {
		return err
	}
	return a.print(domain.DistrictList{State: *state, Districts: districts})
}

func runOptimizerStates(ctx context.Context, a *app, args []string) error {
	if err := parse(a.flags("optimizer-states"), args); err != nil {
		return err
	}
	states, err := a.svc.OptimizerStates(ctx)
	if err != nil {
		return err
	}
	return a.print(domain.StateList{States: states})
}

func runPolicy(ctx context.Context, a *app, args []string) error {
	verb, rest, err := subcommand("policy", args, "simulate", "history", "export", "states")
	if err != nil {
		return err
	}

	switch verb {
	case "simulate":
		fs := a.flags("policy simulate")
		var req domain.PolicyRequest
		fs.StringVar(&req.State, "state", "", "state name")
		fs.Float64Var(&req.PumpingChange, "pumping-change", 0, "change in pumping, percent")
		fs.IntVar(&req.RechargeStructures, "recharge-structures", 0, "number of new recharge structures")
		fs.Float64Var(&req.CropIntensityChange, "crop-intensity-change", 0, "change in crop intensity, percent")
		fs.IntVar(&req.MonthsAhead, "months", 12, "months to simulate")
		if err := parse(fs, rest); err != nil {
			return err
		}
		if err := required(fs, "state"); err != nil {
			return err
		}
		result, err := a.svc.SimulatePolicy(ctx, req)
		if err != nil {
			return err
		}
		return a.print(result)

	case "history":
		fs := a.flags("policy history")
		limit := fs.Int("limit", 10, "maximum number of interventions")
		if err := parse(fs, rest); err != nil {
			return err
		}
		history, err := a.svc.PolicyHistory(ctx, *limit)
		if err != nil {
			return err
		}
		return a.print(history)

	case "export":
		fs := a.flags("policy export")
		id := fs.String("id", "", "intervention id")
		out := fs.String("out", "", "output file (default: server filename in -dir)")
		dir := fs.String("dir", ".", "output directory when -out is not set")
		if err := parse(fs, rest); err != nil {
			return err
		}
		if err := required(fs, "id"); err != nil {
			return err
		}
		doc, err := a.svc.ExportPolicyPDF(ctx, *id)
		if err != nil {
			return err
		}
		return a.save(doc, *out, *dir)

	default:
		if err := parse(a.flags("policy states"), rest); err != nil {
			return err
		}
		states, err := a.svc.PolicyStates(ctx)
		if err != nil {
			return err
		}
		return a.print(domain.StateList{States: states})
	}
}

func runOptimize(ctx context.Context, a *app, args []string) error {
	fs := a.flags("optimize")
	var req domain.OptimizeRequest
	fs.StringVar(&req.State, "state", "", "state name")
	objectives := fs.String("objectives", "impact,cost", "comma-separated objectives")
	budget := fs.Float64("budget", 0, "maximum budget; 0 means unconstrained")
	fs.StringVar(&req.NLQuery, "query", "", "natural-language constraints")
	fs.IntVar(&req.NSites, "sites", 5, "number of sites to select")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "state"); err != nil {
		return err
	}
	req.Objectives = splitList(*objectives)
	if *budget > 0 {
		req.MaxBudget = budget
	}

	result, err := a.svc.Optimize(ctx, req)
	if err != nil {
		return err
	}
	return a.print(result)
}

func runValidation(ctx context.Context, a *app, args []string) error {
	verb, rest, err := subcommand("validation", args,
		"metrics", "history", "model-info", "limitations", "confidence", "regions", "districts", "uncertainty")
	if err != nil {
		return err
	}
	fs := a.flags("validation " + verb)

	var result any
	switch verb {
	case "metrics":
		if err := parse(fs, rest); err != nil {
			return err
		}
		result, err = a.svc.ValidationMetrics(ctx)
	case "history":
		limit := fs.Int("limit", 10, "maximum number of snapshots")
		if err := parse(fs, rest); err != nil {
			return err
		}
		result, err = a.svc.MetricsHistory(ctx, *limit)
	case "model-info":
		if err := parse(fs, rest); err != nil {
			return err
		}
		result, err = a.svc.ModelInfo(ctx)
	case "limitations":
		if err := parse(fs, rest); err != nil {
			return err
		}
		result, err = a.svc.Limitations(ctx)
	case "confidence":
		if err := parse(fs, rest); err != nil {
			return err
		}
		result, err = a.svc.ConfidenceMap(ctx)
	case "regions":
		raw := fs.Bool("raw", false, "print the boundaries without confidence")
		if err := parse(fs, rest); err != nil {
			return err
		}
		if *raw {
			result, err = a.svc.RawRegions(ctx)
		} else {
			var fc domain.FeatureCollection
			fc, _, err = a.svc.ConfidenceRegions(ctx)
			result = fc
		}
	case "districts":
		state := fs.String("state", "", "state name")
		if err := parse(fs, rest); err != nil {
			return err
		}
		if err := required(fs, "state"); err != nil {
			return err
		}
		result, err = a.svc.DistrictConfidence(ctx, *state)
	default:
		state := fs.String("state", "", "state name")
		horizon := fs.Int("horizon", 6, "months ahead")
		if err := parse(fs, rest); err != nil {
			return err
		}
		if err := required(fs, "state"); err != nil {
			return err
		}
		result, err = a.svc.Uncertainty(ctx, *state, *horizon)
	}
	if err != nil {
		return err
	}
	return a.print(result)
}

func runLocation(ctx context.Context, a *app, args []string) error {
	verb, rest, err := subcommand("location", args, "insight", "report")
	if err != nil {
		return err
	}

	fs := a.flags("location " + verb)
	var req domain.LocationRequest
	fs.Float64Var(&req.Latitude, "lat", 0, "latitude")
	fs.Float64Var(&req.Longitude, "lon", 0, "longitude")
	fs.IntVar(&req.MonthsAhead, "months", 6, "months ahead")
	fs.IntVar(&req.K, "k", 5, "number of nearest stations")
	fs.Float64Var(&req.Power, "power", domain.DefaultIDWPower, "inverse-distance weighting power")
	out := fs.String("out", "", "report output file (report only)")
	dir := fs.String("dir", ".", "report output directory when -out is not set")
	if err := parse(fs, rest); err != nil {
		return err
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		return usagef("location: -lat/-lon out of range")
	}

	if verb == "insight" {
		insight, err := a.svc.LocationGroundwater(ctx, req)
		if err != nil {
			return err
		}
		return a.print(insight)
	}
	doc, err := a.svc.LocationReportPDF(ctx, req)
	if err != nil {
		return err
	}
	return a.save(doc, *out, *dir)
}

func runDrivers(ctx context.Context, a *app, args []string) error {
	fs := a.flags("drivers")
	state := fs.String("state", "", "state name")
	district := fs.String("district", "", "district name (optional)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "state"); err != nil {
		return err
	}

	attribution, err := a.svc.DriverAttribution(ctx, *state, *district)
	if err != nil {
		return err
	}
	return a.print(attribution)
}

func runAlerts(ctx context.Context, a *app, args []string) error {
	fs := a.flags("alerts")
	severity := fs.String("severity", "", "critical, high or medium (default all)")
	if err := parse(fs, args); err != nil {
		return err
	}

	alerts, err := a.svc.Alerts(ctx, *severity)
	if err != nil {
		return err
	}
	return a.print(domain.AlertList{Alerts: alerts})
}

// save writes doc to out, or to dir joined with the server's filename.
func (a *app) save(doc *groundwater.Document, out, dir string) error {
	path := out
	if path == "" {
		path = filepath.Join(dir, doc.Filename)
	}
	if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return a.print(map[string]any{"file": path, "bytes": len(doc.Data)})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

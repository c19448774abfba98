package cli

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// section is one independently fetched part of the dashboard.
type section struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type dashboard struct {
	Validation      section `json:"validation"`
	Alerts          section `json:"alerts"`
	ForecastHistory section `json:"forecast_history"`
}

// fill runs fetch and records its outcome in s. It never returns an error so
// one failing section does not affect the others.
func fill(s *section, fetch func() (any, error)) func() error {
	return func() error {
		v, err := fetch()
		if err != nil {
			s.Error = err.Error()
			return nil
		}
		s.Data = v
		return nil
	}
}

func runDashboard(ctx context.Context, a *app, args []string) error {
	fs := a.flags("dashboard")
	limit := fs.Int("limit", 5, "forecasts to include")
	severity := fs.String("severity", "", "alert severity filter")
	if err := parse(fs, args); err != nil {
		return err
	}

	var d dashboard
	var g errgroup.Group
	g.Go(fill(&d.Validation, func() (any, error) { return a.svc.ValidationMetrics(ctx) }))
	g.Go(fill(&d.Alerts, func() (any, error) { return a.svc.Alerts(ctx, *severity) }))
	g.Go(fill(&d.ForecastHistory, func() (any, error) { return a.svc.ForecastHistory(ctx, *limit) }))
	_ = g.Wait()

	if err := a.print(d); err != nil {
		return err
	}
	if d.Validation.Error != "" && d.Alerts.Error != "" && d.ForecastHistory.Error != "" {
		return errAllSectionsFailed
	}
	return nil
}

var errAllSectionsFailed = errors.New("dashboard: every section failed")

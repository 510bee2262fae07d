package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/evalysfun/evalys-arcium-bridge-service/business/httpapi"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/asset"
	"github.com/evalysfun/evalys-arcium-bridge-service/pkg/bridgeclient"
	"github.com/evalysfun/evalys-arcium-bridge-service/pkg/ui"
)

type options struct {
	url     string
	timeout time.Duration
	raw     bool
	size    string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "bridge-demo",
		Short:        "Send sample confidential computations to a running bridge",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.url, "url", "http://localhost:8010", "bridge base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "per request timeout")
	root.PersistentFlags().BoolVar(&opts.raw, "json", false, "print raw JSON instead of a summary")
	root.PersistentFlags().StringVar(&opts.size, "size", "", "order size in SOL for plan and curve samples, e.g. 2.5")

	root.AddCommand(
		newKindCmd(opts, "plan", "Request a confidential strategy plan", ui.KindPlan),
		newKindCmd(opts, "risk", "Request a confidential risk score", ui.KindRisk),
		newKindCmd(opts, "curve", "Request a confidential curve evaluation", ui.KindCurve),
		newAllCmd(opts),
		newTUICmd(opts),
	)
	return root
}

func newKindCmd(opts *options, use, short string, kind ui.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := newDemo(opts)
			if err != nil {
				return err
			}
			return d.print(cmd.Context(), cmd.OutOrStdout(), kind)
		},
	}
}

func newAllCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run all three sample computations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := newDemo(opts)
			if err != nil {
				return err
			}
			for _, k := range ui.Kinds {
				if err := d.print(cmd.Context(), cmd.OutOrStdout(), k); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newTUICmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := newDemo(opts)
			if err != nil {
				return err
			}
			p := tea.NewProgram(ui.New(opts.url, d.run, d.health), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
}

type demo struct {
	client *bridgeclient.Client
	raw    bool
	size   asset.Lamports // zero keeps the sample size
}

func newDemo(opts *options) (*demo, error) {
	size, err := parseSize(opts.size)
	if err != nil {
		return nil, err
	}
	c, err := bridgeclient.New(opts.url, opts.timeout)
	if err != nil {
		return nil, err
	}
	return &demo{client: c, raw: opts.raw, size: size}, nil
}

func parseSize(s string) (asset.Lamports, error) {
	if s == "" {
		return 0, nil
	}
	size, err := asset.ParseSOL(s)
	if err != nil {
		return 0, fmt.Errorf("--size: %w", err)
	}
	if size == 0 || uint64(size) > math.MaxInt64 {
		return 0, fmt.Errorf("--size: %s is out of range", s)
	}
	return size, nil
}

func (d *demo) planRequest() httpapi.PlanRequest {
	req := bridgeclient.SamplePlanRequest()
	if d.size > 0 {
		req.UserPreferences.DesiredSize = int64(d.size)
	}
	return req
}

// curveRequest widens max_size when the requested target exceeds it.
func (d *demo) curveRequest() httpapi.CurveEvalRequest {
	req := bridgeclient.SampleCurveEvalRequest()
	if d.size > 0 {
		req.SizingPreferences.TargetSize = int64(d.size)
		req.SizingPreferences.MaxSize = max(req.SizingPreferences.MaxSize, int64(d.size))
	}
	return req
}

// call runs kind with its sample request and returns the decoded response.
func (d *demo) call(ctx context.Context, kind ui.Kind) (any, error) {
	switch kind {
	case ui.KindPlan:
		return d.client.Plan(ctx, d.planRequest())
	case ui.KindRisk:
		return d.client.RiskScore(ctx, bridgeclient.SampleRiskScoreRequest())
	default:
		return d.client.CurveEval(ctx, d.curveRequest())
	}
}

func (d *demo) run(ctx context.Context, kind ui.Kind) ui.ResultMsg {
	start := time.Now()
	res, err := d.call(ctx, kind)
	msg := ui.ResultMsg{Kind: kind, Latency: time.Since(start), Err: err}
	if err == nil {
		msg.Fields = fields(res)
	}
	return msg
}

func (d *demo) health(ctx context.Context) ui.HealthMsg {
	h, err := d.client.Health(ctx)
	if err != nil {
		return ui.HealthMsg{Err: err}
	}
	return ui.HealthMsg{Service: h.Service}
}

func (d *demo) print(ctx context.Context, w io.Writer, kind ui.Kind) error {
	fmt.Fprintf(w, "\n== %s ==\n", kind)
	start := time.Now()
	res, err := d.call(ctx, kind)
	if err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}

	if d.raw {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	for _, f := range fields(res) {
		fmt.Fprintf(w, "  %-18s %s\n", f.Label, f.Value)
	}
	fmt.Fprintf(w, "  %-18s %s\n", "latency", time.Since(start).Round(time.Millisecond))
	return nil
}

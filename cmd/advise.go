package main

import (
	"encoding/json"
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
)

type adviseFlags struct {
	query     string
	sessionID string
	soilType  string
	ph        float64
	moisture  float64
	tempC     float64
	rainfall  float64
	humidity  int
}

var adviseOpts adviseFlags

var adviseCmd = &cobra.Command{
	Use:   "advise",
	Short: "Run one advisory turn and print the result as JSON",
	Example: `  agri-advisor advise --query "my tomato leaves are yellow" --ph 6.2 --moisture 35
  agri-advisor advise --ph 8.1 --rainfall 14`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "advise")
		if err != nil {
			return err
		}
		defer env.Close()

		req := adviseOpts.request(cmd.Flags().Changed)
		res, err := env.Pipeline.Run(ctx, req)
		if err != nil {
			return eris.Wrap(err, "advise")
		}
		return writeResult(cmd.OutOrStdout(), res)
	},
}

// request builds the boundary request. Only flags the user set become
// readings; the rest stay unknown.
func (f adviseFlags) request(changed func(string) bool) model.Request {
	req := model.Request{
		Query:     f.query,
		SessionID: f.sessionID,
		SoilType:  f.soilType,
	}
	r := &req.EnvironmentalContext
	if changed("ph") {
		r.SoilPH = model.Float(f.ph)
	}
	if changed("moisture") {
		r.SoilMoisturePct = model.Float(f.moisture)
	}
	if changed("temp") {
		r.TemperatureC = model.Float(f.tempC)
	}
	if changed("rainfall") {
		r.RainfallMM = model.Float(f.rainfall)
	}
	if changed("humidity") {
		r.HumidityPct = model.Int(f.humidity)
	}
	return req
}

func writeResult(w io.Writer, res *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(res), "write result")
}

func init() {
	f := adviseCmd.Flags()
	f.StringVar(&adviseOpts.query, "query", "", "farmer question (blank for a field analysis)")
	f.StringVar(&adviseOpts.sessionID, "session", "", "session id to continue")
	f.StringVar(&adviseOpts.soilType, "soil-type", "", "soil type, e.g. clay or loam")
	f.Float64Var(&adviseOpts.ph, "ph", 0, "soil pH")
	f.Float64Var(&adviseOpts.moisture, "moisture", 0, "soil moisture percent")
	f.Float64Var(&adviseOpts.tempC, "temp", 0, "air temperature in °C")
	f.Float64Var(&adviseOpts.rainfall, "rainfall", 0, "24h rainfall in mm")
	f.IntVar(&adviseOpts.humidity, "humidity", 0, "relative humidity percent")
	rootCmd.AddCommand(adviseCmd)
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/you/go-flight-offers/internal/app"
	"github.com/you/go-flight-offers/internal/config"
	"github.com/you/go-flight-offers/internal/service"
)

var (
	fromArg    string
	toArg      string
	dateArg    string
	classArg   string
	airlineArg string
	limitArg   int
	debugFlag  bool
)

var rootCmd = &cobra.Command{
	Use:          "flightsearch",
	Short:        "Search flight offers and print them with prices in INR",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log := zap.NewNop()
		if debugFlag {
			if log, err = app.SetupLogger("debug"); err != nil {
				return err
			}
		}

		p, err := app.Build(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer p.Close()

		res, err := p.Search.Run(cmd.Context(), service.SearchRequest{
			Origin:      fromArg,
			Destination: toArg,
			TravelDate:  dateArg,
			CabinClass:  classArg,
			Airline:     airlineArg,
			Limit:       limitArg,
		})
		if err != nil {
			return err
		}
		printOffers(cmd.OutOrStdout(), res)
		return nil
	},
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&fromArg, "from", "f", "", "Origin IATA code")
	rootCmd.Flags().StringVarP(&toArg, "to", "t", "", "Destination IATA code")
	rootCmd.Flags().StringVarP(&dateArg, "date", "d", "", "Travel date, DD-MM-YYYY")
	rootCmd.Flags().StringVarP(&classArg, "class", "c", "Economy", "Cabin class, e.g. \"Premium Economy\"")
	rootCmd.Flags().StringVarP(&airlineArg, "airline", "a", "", "Only show this airline (name or IATA code)")
	rootCmd.Flags().IntVarP(&limitArg, "limit", "n", 0, "Maximum offers to request (0 uses offer_limit)")
	rootCmd.Flags().BoolVarP(&debugFlag, "debug", "v", false, "Enable debug logs")
	_ = rootCmd.MarkFlagRequired("from")
	_ = rootCmd.MarkFlagRequired("to")
	_ = rootCmd.MarkFlagRequired("date")
}

func printOffers(w io.Writer, res service.SearchResult) {
	head := color.New(color.Bold)
	price := color.New(color.FgGreen)
	dim := color.New(color.Faint)

	head.Fprintf(w, "%s -> %s on %s (%s): %d offers\n", res.Origin, res.Destination, res.TravelDate, res.CabinClass, len(res.Offers))
	for _, o := range res.Offers {
		price.Fprintf(w, "INR %12s", o.PriceINR)
		fmt.Fprintf(w, "  %-24s %-20s %d stop(s)  %s\n", o.AirlineName, o.AircraftName, o.Stops, timings(o.Timings))
		if len(o.Layovers) > 0 {
			dim.Fprintf(w, "    layovers: %s\n", strings.Join(o.Layovers, ", "))
		}
		dim.Fprintf(w, "    fare: %s  basis: %s  seats: %s\n", o.FareDescription, o.FareBasisCode, o.NumberOfSeatsAvailable)
	}
}

func timings(ts []service.SegmentTiming) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.Departure + "-" + t.Arrival
	}
	return strings.Join(parts, " | ")
}

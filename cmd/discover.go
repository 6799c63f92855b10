package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/leadfinder/internal/leads"
	"github.com/sells-group/leadfinder/internal/quota"
)

var discoverFlags struct {
	category       string
	origin         string
	lat            float64
	lng            float64
	radiusMiles    float64
	reviewCeiling  int
	lowCompetition bool
	jsonOut        bool
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find qualified business leads around a location",
	Example: `  leadfinder discover --category coffee --origin "Austin, TX"
  leadfinder discover --category plumber --lat 30.2672 --lng -97.7431 --radius 5
  leadfinder discover --category barbershop --origin "Tulsa, OK" --low-competition`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "discover")
		if err != nil {
			return err
		}
		defer env.Close()

		req := leads.SearchRequest{
			Category:       discoverFlags.category,
			Origin:         discoverFlags.origin,
			RadiusMiles:    discoverFlags.radiusMiles,
			ReviewCeiling:  discoverFlags.reviewCeiling,
			LowCompetition: discoverFlags.lowCompetition,
			// A local CLI run is not metered.
			Caller: quota.AccountIdentity("cli", quota.TierUnlimited),
		}
		if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
			req.Coordinates = &leads.GeoPoint{Lat: discoverFlags.lat, Lng: discoverFlags.lng}
		}

		res, err := env.Pipeline.Discover(cmd.Context(), req)
		if err != nil {
			return err
		}

		if discoverFlags.jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		printLeads(res)
		return nil
	},
}

func printLeads(res *leads.Result) {
	fmt.Printf("%d leads for %q near (%.4f, %.4f)\n\n",
		len(res.Leads), res.Category, res.Center.Lat, res.Center.Lng)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tPHONE\tRATING\tREVIEWS\tDIST (m)")
	for _, l := range res.Leads {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%d\t%.0f\n",
			l.Name, l.Address, l.Phone, l.Rating, l.ReviewCount, l.DistanceMeters)
	}
	w.Flush()

	if res.Truncated {
		fmt.Println("\n(result list truncated by plan limit)")
	}
}

func init() {
	discoverCmd.Flags().StringVar(&discoverFlags.category, "category", "", "business category to search for (required)")
	discoverCmd.Flags().StringVar(&discoverFlags.origin, "origin", "", "location text, e.g. \"Austin, TX\"")
	discoverCmd.Flags().Float64Var(&discoverFlags.lat, "lat", 0, "search center latitude (overrides --origin)")
	discoverCmd.Flags().Float64Var(&discoverFlags.lng, "lng", 0, "search center longitude (overrides --origin)")
	discoverCmd.Flags().Float64Var(&discoverFlags.radiusMiles, "radius", 0, "search radius in miles (default 3)")
	discoverCmd.Flags().IntVar(&discoverFlags.reviewCeiling, "max-reviews", 0, "drop leads with more reviews than this")
	discoverCmd.Flags().BoolVar(&discoverFlags.lowCompetition, "low-competition", false, "keep only operational businesses with no website and few reviews")
	discoverCmd.Flags().BoolVar(&discoverFlags.jsonOut, "json", false, "print the full result as JSON")
	_ = discoverCmd.MarkFlagRequired("category")
	rootCmd.AddCommand(discoverCmd)
}

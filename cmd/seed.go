package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fasaldhan/fasaldhan-cli/internal/model"
)

func ptr(v float64) *float64 { return &v }

// seedCrops covers the major Indian crop categories with realistic
// per-quintal base prices and per-acre yields.
var seedCrops = []model.Crop{
	{Name: "Wheat", Category: "cereal", GrowingSeason: "rabi", HarvestDays: 120,
		AverageYieldPerAcre: ptr(18), CurrentMarketPrice: ptr(2200), PriceVolatilityScore: ptr(0.3)},
	{Name: "Rice", Category: "cereal", Variety: "Basmati", GrowingSeason: "kharif", HarvestDays: 135,
		AverageYieldPerAcre: ptr(22), CurrentMarketPrice: ptr(3800), PriceVolatilityScore: ptr(0.35)},
	{Name: "Cotton", Category: "fiber", GrowingSeason: "kharif", HarvestDays: 180,
		AverageYieldPerAcre: ptr(8), CurrentMarketPrice: ptr(6500), PriceVolatilityScore: ptr(0.5)},
	{Name: "Sugarcane", Category: "cash", GrowingSeason: "annual", HarvestDays: 365,
		AverageYieldPerAcre: ptr(320), CurrentMarketPrice: ptr(340), PriceVolatilityScore: ptr(0.2)},
	{Name: "Tomato", Category: "vegetable", GrowingSeason: "kharif", HarvestDays: 70,
		AverageYieldPerAcre: ptr(100), CurrentMarketPrice: ptr(1500), PriceVolatilityScore: ptr(0.8)},
	{Name: "Onion", Category: "vegetable", GrowingSeason: "rabi", HarvestDays: 110,
		AverageYieldPerAcre: ptr(120), CurrentMarketPrice: ptr(1800), PriceVolatilityScore: ptr(0.75)},
	{Name: "Soybean", Category: "oilseed", GrowingSeason: "kharif", HarvestDays: 100,
		AverageYieldPerAcre: ptr(10), CurrentMarketPrice: ptr(4600), PriceVolatilityScore: ptr(0.45)},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load sample crops and market prices",
	Long:  "Seeds the store with a starter crop catalog and a week of market prices per crop. Intended for development and demos.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "seed: migrate")
		}

		now := time.Now().UTC()
		var cropCount, priceCount, listingCount int
		for i := range seedCrops {
			crop, err := st.CreateCrop(ctx, &seedCrops[i])
			if err != nil {
				return eris.Wrapf(err, "seed: create crop %s", seedCrops[i].Name)
			}
			cropCount++

			// A week of daily prices around the crop's base price,
			// alternating a small spread so trends have shape.
			base := *crop.CurrentMarketPrice
			for day := 0; day < 7; day++ {
				spread := float64(day%3-1) * base * 0.02
				_, err := st.AddMarketPrice(ctx, &model.MarketPrice{
					CropID:          crop.ID,
					Location:        "Nashik",
					MarketName:      "Nashik APMC",
					PricePerQuintal: base + spread,
					Date:            now.AddDate(0, 0, -day),
					Season:          crop.GrowingSeason,
				})
				if err != nil {
					return eris.Wrapf(err, "seed: price for crop %s", crop.Name)
				}
				priceCount++
			}

			// One active demo listing per cereal so dashboards and
			// trends have something to show out of the box.
			if crop.Category != "cereal" {
				continue
			}
			_, err = st.CreateListing(ctx, &model.CropListing{
				FarmerID:          1,
				CropID:            crop.ID,
				QuantityAvailable: 100,
				ExpectedPrice:     base,
				QualityGrade:      model.GradeA,
				HarvestDate:       now.AddDate(0, 2, 0),
				FarmLocation:      "Nashik",
				Status:            model.ListingStatusActive,
			})
			if err != nil {
				return eris.Wrapf(err, "seed: listing for crop %s", crop.Name)
			}
			listingCount++
		}

		zap.L().Info("seed complete",
			zap.Int("crops", cropCount),
			zap.Int("prices", priceCount),
			zap.Int("listings", listingCount),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

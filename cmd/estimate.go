package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/fasaldhan/fasaldhan-cli/internal/estimator"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Run the scoring engine from the command line",
}

var (
	estimateCropID     int64
	estimateLocation   string
	estimateQuantity   float64
	estimateSeason     string
	estimateImage      string
	estimateLandSize   float64
	estimateFarming    string
	estimateContractID string
)

var estimatePriceCmd = &cobra.Command{
	Use:   "price",
	Short: "Estimate a fair price for a crop",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if estimateCropID <= 0 {
			return eris.New("estimate: --crop-id is required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		est := initEngine(st).EstimatePrice(ctx, estimator.PriceRequest{
			CropID:   estimateCropID,
			Location: estimateLocation,
			Quantity: estimateQuantity,
			Season:   estimateSeason,
		})

		formatKV(os.Stdout, [][2]string{
			{"PREDICTED PRICE", fmt.Sprintf("₹%.2f/quintal", est.PredictedPrice)},
			{"RANGE", fmt.Sprintf("₹%.2f - ₹%.2f", est.PriceRange.Min, est.PriceRange.Max)},
			{"CONFIDENCE", fmt.Sprintf("%.0f%%", est.Confidence*100)},
			{"METHOD", est.Method},
		})
		return nil
	},
}

var estimateQualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Assess crop quality from an image reference",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		a := initEngine(st).AssessQuality(ctx, estimator.QualityRequest{ImageReference: estimateImage})

		formatKV(os.Stdout, [][2]string{
			{"QUALITY SCORE", fmt.Sprintf("%.2f", a.QualityScore)},
			{"GRADE", string(a.QualityGrade)},
			{"RIPENESS", fmt.Sprintf("%.2f", a.RipenessScore)},
			{"RECOMMENDATIONS", strings.Join(a.Recommendations, "; ")},
			{"METHOD", a.Method},
		})
		return nil
	},
}

var estimateYieldCmd = &cobra.Command{
	Use:   "yield",
	Short: "Estimate expected yield for a planted area",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if estimateCropID <= 0 {
			return eris.New("estimate: --crop-id is required")
		}
		if estimateLandSize <= 0 {
			return eris.New("estimate: --land-size must be positive")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		est := initEngine(st).EstimateYield(ctx, estimator.YieldRequest{
			CropID:      estimateCropID,
			LandSize:    estimateLandSize,
			FarmingType: estimateFarming,
			Location:    estimateLocation,
		})

		formatKV(os.Stdout, [][2]string{
			{"PREDICTED YIELD", fmt.Sprintf("%.2f quintals", est.PredictedYield)},
			{"PER ACRE", fmt.Sprintf("%.2f quintals", est.YieldPerAcre)},
			{"FARMING FACTOR", fmt.Sprintf("%.2f", est.Factors.FarmingTypeFactor)},
			{"CONFIDENCE", fmt.Sprintf("%.0f%%", est.Confidence*100)},
			{"METHOD", est.Method},
		})
		return nil
	},
}

var estimateRiskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Assess the default risk of a contract",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if estimateContractID == "" {
			return eris.New("estimate: --contract-id is required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		a := initEngine(st).AssessContractRisk(ctx, estimator.RiskRequest{ContractID: estimateContractID})

		formatKV(os.Stdout, [][2]string{
			{"OVERALL RISK", fmt.Sprintf("%.3f (%s)", a.OverallRiskScore, a.RiskLevel)},
			{"FARMER RELIABILITY", fmt.Sprintf("%.3f", a.RiskFactors.FarmerReliability)},
			{"BUYER RELIABILITY", fmt.Sprintf("%.3f", a.RiskFactors.BuyerReliability)},
			{"CROP VOLATILITY", fmt.Sprintf("%.3f", a.RiskFactors.CropVolatility)},
			{"QUANTITY RISK", fmt.Sprintf("%.3f", a.RiskFactors.Quantity)},
			{"RECOMMENDATIONS", strings.Join(a.Recommendations, "; ")},
			{"METHOD", a.Method},
		})
		return nil
	},
}

func formatKV(out io.Writer, rows [][2]string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", r[0], r[1])
	}
	_ = w.Flush()
}

func init() {
	estimatePriceCmd.Flags().Int64Var(&estimateCropID, "crop-id", 0, "crop ID (required)")
	estimatePriceCmd.Flags().StringVar(&estimateLocation, "location", "", "market location")
	estimatePriceCmd.Flags().Float64Var(&estimateQuantity, "quantity", 0, "quantity in quintals")
	estimatePriceCmd.Flags().StringVar(&estimateSeason, "season", "", "growing season")

	estimateQualityCmd.Flags().StringVar(&estimateImage, "image", "", "image reference")

	estimateYieldCmd.Flags().Int64Var(&estimateCropID, "crop-id", 0, "crop ID (required)")
	estimateYieldCmd.Flags().Float64Var(&estimateLandSize, "land-size", 0, "planted area in acres (required)")
	estimateYieldCmd.Flags().StringVar(&estimateFarming, "farming-type", "traditional", "organic, traditional, hydroponic, or mixed")
	estimateYieldCmd.Flags().StringVar(&estimateLocation, "location", "", "farm location")

	estimateRiskCmd.Flags().StringVar(&estimateContractID, "contract-id", "", "contract ID (required)")

	estimateCmd.AddCommand(estimatePriceCmd)
	estimateCmd.AddCommand(estimateQualityCmd)
	estimateCmd.AddCommand(estimateYieldCmd)
	estimateCmd.AddCommand(estimateRiskCmd)
	rootCmd.AddCommand(estimateCmd)
}

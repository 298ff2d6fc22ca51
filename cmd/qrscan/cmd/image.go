package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/qrscan"
	"github.com/MeKo-Tech/qrscan/decode"
)

const (
	outputFormatJSON = "json"
	outputFormatText = "text"
)

// imageResult is the per-input outcome reported by the image command.
type imageResult struct {
	Source  string `json:"source"`
	Found   bool   `json:"found"`
	Payload string `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// imageCmd represents the image command.
var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Decode QR codes from static images",
	Long: `Decode QR codes from one or more image files or http(s) URLs.

Supported formats: JPEG, PNG, BMP, TIFF, GIF

Examples:
  qrscan image ticket.png
  qrscan image *.jpg --format json
  qrscan image photo.png --region 100,100,400,400 --retry-full
  qrscan image https://example.com/code.png`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("no input files provided")
		}

		cfg := GetConfig()

		format, _ := cmd.Flags().GetString("format")
		validFormats := []string{outputFormatText, outputFormatJSON}
		isValidFormat := false
		for _, f := range validFormats {
			if format == f {
				isValidFormat = true
				break
			}
		}
		if !isValidFormat {
			return fmt.Errorf("invalid output format: %s (must be one of: %s)",
				format, strings.Join(validFormats, ", "))
		}

		regionFlag, _ := cmd.Flags().GetString("region")
		roi, err := parseRegionFlag(regionFlag)
		if err != nil {
			return err
		}

		retryFull := cfg.Decode.RetryFull
		if cmd.Flags().Changed("retry-full") {
			retryFull, _ = cmd.Flags().GetBool("retry-full")
		}

		opts := []qrscan.ScanOption{qrscan.WithScanTimeout(cfg.DecodeTimeout())}
		if !roi.Empty() {
			opts = append(opts, qrscan.WithScanRegion(roi))
			if retryFull {
				opts = append(opts, qrscan.WithRetryWithoutRegion())
			}
		}

		results := make([]imageResult, 0, len(args))
		var hardErr error
		for _, source := range args {
			payload, err := qrscan.ScanImage(cmd.Context(), source, opts...)
			result := imageResult{Source: source}
			switch {
			case err == nil:
				result.Found = true
				result.Payload = payload
			case errors.Is(err, decode.ErrNotFound):
				result.Error = "no QR code found"
			default:
				result.Error = err.Error()
				if hardErr == nil {
					hardErr = err
				}
			}
			results = append(results, result)
		}

		if format == outputFormatJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return fmt.Errorf("failed to write results: %w", err)
			}
		} else {
			for _, r := range results {
				switch {
				case r.Found:
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", r.Source, r.Payload)
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", r.Source, r.Error)
				}
			}
		}

		return hardErr
	},
}

// parseRegionFlag parses the --region value "x,y,width,height".
func parseRegionFlag(value string) (image.Rectangle, error) {
	if value == "" {
		return image.Rectangle{}, nil
	}
	var x, y, width, height int
	if _, err := fmt.Sscanf(value, "%d,%d,%d,%d", &x, &y, &width, &height); err != nil {
		return image.Rectangle{}, fmt.Errorf("invalid region %q (expected x,y,width,height)", value)
	}
	if width <= 0 || height <= 0 {
		return image.Rectangle{}, fmt.Errorf("invalid region %q (width and height must be positive)", value)
	}
	return image.Rect(x, y, x+width, y+height), nil
}

func init() {
	rootCmd.AddCommand(imageCmd)
	imageCmd.Flags().StringP("format", "f", "text", "output format (text, json)")
	imageCmd.Flags().String("region", "", "scan region as x,y,width,height (default whole image)")
	imageCmd.Flags().Bool("retry-full", true, "retry against the whole image when the region holds no code")
}

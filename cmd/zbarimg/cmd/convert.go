package cmd

import (
	"bufio"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/zbargo/internal/raster"
	"github.com/MeKo-Tech/zbargo/internal/utils"
)

func newConvertCommand(_ *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <images...> --output <recording.zbf>",
		Short: "Convert images into .zbf frame containers",
		Long: `Convert images into zstd-compressed .zbf frames in a given sample format.
Several inputs, or --append, build a recording that "zbarimg video" plays
back frame by frame.

Formats: ` + formatList() + `

Examples:
  zbarimg convert label.png -o label.zbf
  zbarimg convert frame*.png -o capture.zbf --fourcc YUYV
  zbarimg convert next.png -o capture.zbf --append --sequence 42`,
		Args: minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			if output == "" {
				return usageError{fmt.Errorf("--output is required")}
			}
			code, _ := cmd.Flags().GetString("fourcc")
			format, err := raster.ParseFormat(code)
			if err != nil {
				return err
			}
			width, _ := cmd.Flags().GetInt("width")
			height, _ := cmd.Flags().GetInt("height")
			seq, _ := cmd.Flags().GetInt("sequence")
			appendMode, _ := cmd.Flags().GetBool("append")
			quiet, _ := cmd.Flags().GetBool("quiet")

			flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
			if appendMode {
				flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
			}
			f, err := os.OpenFile(output, flags, 0o644) //nolint:gosec // G302,G304: user-chosen output file
			if err != nil {
				return err
			}
			w := bufio.NewWriter(f)

			for i, path := range args {
				frame, err := convertImage(path, format, width, height)
				if err != nil {
					_ = f.Close()
					return err
				}
				frame.Sequence = seq + i
				if err := raster.WriteFrame(w, frame); err != nil {
					_ = f.Close()
					return err
				}
				if !quiet {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s -> frame %d: %dx%d %s\n",
						path, frame.Sequence, frame.Width, frame.Height, frame.Format)
				}
			}
			if err := w.Flush(); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringP("output", "o", "", "output .zbf file")
	cmd.Flags().String("fourcc", "Y800", "target sample format")
	cmd.Flags().Int("width", 0, "crop or pad frames to this width (default: image width)")
	cmd.Flags().Int("height", 0, "crop or pad frames to this height (default: image height)")
	cmd.Flags().Int("sequence", 0, "sequence number of the first frame")
	cmd.Flags().Bool("append", false, "append to an existing recording")
	cmd.Flags().BoolP("quiet", "q", false, "do not list converted frames")
	return cmd
}

// convertImage loads path and converts it to format, keeping colour for
// colour targets.
func convertImage(path string, format raster.Format, width, height int) (*raster.Image, error) {
	frame, err := loadSourceFrame(path, format.IsGray())
	if err != nil {
		return nil, err
	}
	if width <= 0 {
		width = frame.Width
	}
	if height <= 0 {
		height = frame.Height
	}
	return raster.ConvertResize(frame, format, width, height)
}

// loadSourceFrame reads path as a frame. Frame containers keep their stored
// format; images become Y800 or, when colour is wanted, RGB4.
func loadSourceFrame(path string, gray bool) (*raster.Image, error) {
	if strings.EqualFold(filepath.Ext(path), raster.FrameExt) {
		f, err := os.Open(path) //nolint:gosec // G304: user-chosen input file
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		return raster.ReadFrame(bufio.NewReader(f))
	}
	src, _, err := utils.LoadImage(path)
	if err != nil {
		return nil, err
	}
	if gray {
		return raster.FromImage(src)
	}
	return colourFrame(src)
}

// colourFrame wraps src as an RGB4 frame.
func colourFrame(src image.Image) (*raster.Image, error) {
	nrgba := imaging.Clone(src)
	b := nrgba.Bounds()
	return raster.New(b.Dx(), b.Dy(), raster.RGB4, nrgba.Pix)
}

func formatList() string {
	names := make([]string, 0, len(raster.Formats()))
	for _, f := range raster.Formats() {
		names = append(names, strings.TrimSpace(f.String()))
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}

// fwextract pulls firmware images out of FW manager binaries: it reads one
// input file, runs the extraction core over it, and persists every
// recovered image (plus the legacy metadata sidecar, when present) into the
// output directory.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	clihander "github.com/apex/log/handlers/cli"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Civil/bfb-extract-fw/pkg/mfa"
)

var (
	inputFile string
	outputDir string
	verbose   bool
)

func init() {
	log.SetHandler(clihander.Default)

	rootCmd.Flags().StringVarP(&inputFile, "file", "f", "", "Path to the binary file to extract data from")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory to save the extracted files")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "V", false, "Verbose output")
	rootCmd.MarkFlagRequired("file")
	rootCmd.MarkFlagRequired("output")
}

var rootCmd = &cobra.Command{
	Use:           "fwextract",
	Short:         "Extract firmware images from FW Manager's binary files",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}

		data, err := os.ReadFile(inputFile)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", inputFile)
		}

		ex, err := mfa.Extract(data)
		if err != nil {
			return errors.Wrapf(err, "failed to extract firmware from %s", inputFile)
		}
		for _, d := range ex.Diags {
			log.Warn(d.String())
		}
		if ex.Kind == mfa.KindStructured && !ex.TrailerOK {
			log.Warn("container checksum did not verify; extracted data may be unreliable")
		}

		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create %s", outputDir)
		}
		return persist(ex)
	},
}

func persist(ex *mfa.Extraction) error {
	written := 0
	unrecognized := 0
	perGen := make(map[mfa.Generation]int)
	for _, img := range ex.Images {
		var name string
		switch {
		case img.Generation == mfa.GenUnknown:
			name = fmt.Sprintf("unrecognized_%d.bin", unrecognized)
			unrecognized++
		case len(img.Data) < mfa.MinFirmwareSize:
			log.Debugf("skipping %s: smaller than any plausible firmware", img)
			continue
		default:
			name = fmt.Sprintf("firmware_%s_%d.bin", img.Generation, perGen[img.Generation])
			perGen[img.Generation]++
		}
		path := filepath.Join(outputDir, name)
		if err := os.WriteFile(path, img.Data, 0o644); err != nil {
			return errors.Wrapf(err, "failed to write %s", path)
		}
		log.WithFields(log.Fields{
			"size": humanize.Bytes(uint64(len(img.Data))),
		}).Infof("extracted %s", name)
		written++
	}
	if written == 0 {
		return fmt.Errorf("no firmware images written to %s", outputDir)
	}

	if len(ex.Metadata) > 0 {
		var sb strings.Builder
		for _, b := range ex.Metadata {
			sb.WriteString(b.PSID + "\t" + b.Description)
			if b.Version != "" {
				sb.WriteString("\t" + b.Version)
			}
			sb.WriteByte('\n')
		}
		path := filepath.Join(outputDir, "metadata.txt")
		if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
			return errors.Wrapf(err, "failed to write %s", path)
		}
		log.Infof("wrote %d board record(s) to metadata.txt", len(ex.Metadata))
	}
	for _, b := range ex.Boards {
		log.Debugf("board %s: %d image(s)", b.PSID, len(b.Images))
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

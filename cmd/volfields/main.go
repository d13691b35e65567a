package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"volfields/internal/models"
	"volfields/pkg/config"
	"volfields/pkg/fields"
	"volfields/pkg/visualization"
	"volfields/pkg/volumeio"
)

func main() {
	configPath := flag.String("config", "volfields.yaml", "YAML configuration file (defaults are used if missing)")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	segmentation := flag.String("segmentation", "", "Label volume (.nrrd or .mha) to convert into indicator fields")
	sigma := flag.Float64("sigma", -1, "Gaussian smoothing width in physical units (overrides config)")
	numCores := flag.Int("cores", 0, "Number of labels or files processed at once (overrides config)")
	outputDir := flag.String("output", "", "Directory for the written fields (overrides config)")
	flag.Bool("compress", false, "Write gzip encoded NRRD files")
	flag.Bool("preview", false, "Save the centre slice of every field along each axis")
	flag.Bool("skip-background", false, "Do not build a field for label 0")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] [field.nrrd ...]\n\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *sigma >= 0 {
		cfg.Processing.Sigma = *sigma
	}
	if *numCores > 0 {
		cfg.Processing.NumCores = *numCores
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	applyBoolFlags(flag.CommandLine, cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	rawFiles := flag.Args()
	if *segmentation == "" && len(rawFiles) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("VOLUME TO SCALAR FIELD CONVERSION")
	fmt.Println("================================")
	fmt.Printf("Sigma: %g, cores: %d, output: %s\n",
		cfg.Processing.Sigma, cfg.Processing.NumCores, cfg.Output.Dir)

	extractor := fields.NewExtractor(cfg.Params())
	startTime := time.Now()

	var all []*models.ScalarField
	if *segmentation != "" {
		fmt.Println("Step 1: Extracting indicator fields...")
		indicators, err := extractor.IndicatorFields(*segmentation)
		if err != nil {
			log.Fatalf("Indicator extraction failed: %v", err)
		}
		all = append(all, indicators...)
	}
	if len(rawFiles) > 0 {
		fmt.Println("Step 2: Loading raw fields...")
		raw, err := extractor.RawFields(rawFiles)
		if err != nil {
			log.Fatalf("Field loading failed: %v", err)
		}
		all = append(all, raw...)
	}

	fmt.Println("Step 3: Writing fields...")
	if err := fields.CheckOutputNames(all); err != nil {
		log.Fatalf("Cannot write fields: %v", err)
	}
	opts := volumeio.WriteOptions{Compress: cfg.Output.Compress}
	var written uint64
	for _, f := range all {
		path, err := fields.WriteField(f, filepath.Join(cfg.Output.Dir, f.Name), opts)
		if err != nil {
			log.Fatalf("Failed to write field %s: %v", f.Name, err)
		}
		if info, err := os.Stat(path); err == nil {
			written += uint64(info.Size())
		}
		printSummary(f, path)

		if cfg.Output.Preview {
			previewDir := filepath.Join(cfg.Output.Dir, "preview")
			if _, err := visualization.NewViewer(f).SaveMidSlices(previewDir, cfg.Output.PreviewFormat); err != nil {
				log.Printf("Warning: Failed to save preview for %s: %v", f.Name, err)
			}
		}
	}

	fmt.Printf("\nConverted %d fields in %.2f seconds (%s written)\n",
		len(all), time.Since(startTime).Seconds(), humanize.Bytes(written))
}

// applyBoolFlags copies the boolean flags that were set on fs into cfg.
// Unset flags leave the config value alone, so -compress=false can turn off
// compression enabled in the config file.
func applyBoolFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.Visit(func(f *flag.Flag) {
		g, ok := f.Value.(flag.Getter)
		if !ok {
			return
		}
		v, ok := g.Get().(bool)
		if !ok {
			return
		}
		switch f.Name {
		case "compress":
			cfg.Output.Compress = v
		case "preview":
			cfg.Output.Preview = v
		case "skip-background":
			cfg.Processing.SkipBackground = v
		}
	})
}

func printSummary(f *models.ScalarField, path string) {
	fmt.Printf("- %s: %dx%dx%d voxels (%s), scale %gx%gx%g, warning=%t, error=%s -> %s\n",
		f.Name, f.X, f.Y, f.Z, humanize.Comma(int64(f.Len())),
		f.Scale[0], f.Scale[1], f.Scale[2], f.Warning, f.Error, path)
}
